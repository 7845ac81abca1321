package catalog

import (
	"bytes"
	"errors"
	"testing"

	"github.com/soberlab/somersaultd/internal/testutil/testlog"
)

func TestDecodeForwardFlips(t *testing.T) {
	testlog.Start(t)
	msgs, err := Decode([]byte{0xBA, 0x12, 0x03})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(msgs))
	}
	msg := msgs[0]
	if msg.Service != ServiceForwardFlips {
		t.Fatalf("service=%s", msg.Service)
	}
	if msg.Flip == nil || msg.Flip.SobernessCheck != 0x12 || msg.Flip.NumFlips != 3 {
		t.Fatalf("flip params: %+v", msg.Flip)
	}
	if !bytes.Equal(msg.Raw, []byte{0xBA, 0x12, 0x03}) {
		t.Fatalf("raw=%#v", msg.Raw)
	}
}

func TestDecodeSessionServices(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		raw  []byte
		want Service
	}{
		{[]byte{0x10, 0x00}, ServiceSessionStart},
		{[]byte{0x11, 0x00}, ServiceSessionStop},
		{[]byte{0x3E, 0x00}, ServiceTesterPresent},
		{[]byte{0xBB, 0x12, 0x01}, ServiceBackwardFlips},
		{[]byte{0xBC, 0x05}, ServiceHeadstand},
	}
	for _, tc := range cases {
		msgs, err := Decode(tc.raw)
		if err != nil {
			t.Fatalf("decode %#v: %v", tc.raw, err)
		}
		if len(msgs) != 1 || msgs[0].Service != tc.want {
			t.Fatalf("decode %#v: got %s", tc.raw, msgs[0].Service)
		}
	}
}

func TestDecodeFailures(t *testing.T) {
	testlog.Start(t)
	cases := [][]byte{
		nil,
		{0x10},
		{0x10, 0x01},
		{0x3E, 0x00, 0x00},
		{0xBA, 0x12},
	}
	for _, raw := range cases {
		if _, err := Decode(raw); !errors.Is(err, ErrDecode) {
			t.Fatalf("decode %#v: expected ErrDecode, got %v", raw, err)
		}
	}
}

func TestDecodeUnknownServiceID(t *testing.T) {
	testlog.Start(t)
	msgs, err := Decode([]byte{0x31, 0x01, 0x02})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Service != ServiceUnrecognized {
		t.Fatalf("unexpected decode result: %+v", msgs)
	}
	if msgs[0].Raw[0] != 0x31 {
		t.Fatalf("raw=%#v", msgs[0].Raw)
	}
}

func TestEncodeFlipsNotDoneValidatesReason(t *testing.T) {
	testlog.Start(t)
	_, err := EncodeFlipsNotDone(FlipFailReason(7), 0)
	var bad EncodeValueError
	if !errors.As(err, &bad) {
		t.Fatalf("expected EncodeValueError, got %v", err)
	}
	if bad.Param != "reason" || bad.Value != 7 {
		t.Fatalf("unexpected error detail: %+v", bad)
	}
}

func TestEncodeFlipsNotDoneLayout(t *testing.T) {
	testlog.Start(t)
	raw, err := EncodeFlipsNotDone(ReasonTooDizzy, 1)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(raw, []byte{0x7F, 0xBA, 0x01, 0x01}) {
		t.Fatalf("raw=%#v", raw)
	}
}

func TestEncodeGrudgingForwardBounds(t *testing.T) {
	testlog.Start(t)
	if _, err := EncodeGrudgingForward(256); err == nil {
		t.Fatalf("expected error for out-of-range count")
	}
	raw, err := EncodeGrudgingForward(3)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(raw, []byte{0xFA, 0x03}) {
		t.Fatalf("raw=%#v", raw)
	}
}

func TestDecodeResponseNegative(t *testing.T) {
	testlog.Start(t)
	resp, err := DecodeResponse([]byte{0x7F, 0x31, 0x7F})
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Kind != ResponseNegative {
		t.Fatalf("kind=%s", resp.Kind)
	}
	if resp.RequestSID != 0x31 || resp.Code != 0x7F {
		t.Fatalf("resp=%+v", resp)
	}
	if resp.Service != ServiceUnrecognized {
		t.Fatalf("service=%s", resp.Service)
	}
}

func TestSessionResponseVariants(t *testing.T) {
	testlog.Start(t)
	resp, err := DecodeResponse(EncodeSessionStopNegative())
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Kind != ResponseNegative || resp.Service != ServiceSessionStop {
		t.Fatalf("resp=%+v", resp)
	}
	if resp.Code != CodeConditionsNotCorrect {
		t.Fatalf("code=%#x", resp.Code)
	}
	resp, err = DecodeResponse(EncodeSessionStopPositive())
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Kind != ResponsePositive || resp.Service != ServiceSessionStop {
		t.Fatalf("resp=%+v", resp)
	}
}

func TestDecodeResponsePositive(t *testing.T) {
	testlog.Start(t)
	resp, err := DecodeResponse(EncodeSessionStartPositive(false))
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Kind != ResponsePositive || resp.Service != ServiceSessionStart {
		t.Fatalf("resp=%+v", resp)
	}
}

func TestRequestBuildersRoundTrip(t *testing.T) {
	testlog.Start(t)
	req, err := ForwardFlipsRequest(0x12, 50)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	msgs, err := Decode(req)
	if err != nil {
		t.Fatalf("decode built request: %v", err)
	}
	if msgs[0].Flip.NumFlips != 50 {
		t.Fatalf("num_flips=%d", msgs[0].Flip.NumFlips)
	}
	if _, err := ForwardFlipsRequest(0x12, 300); err == nil {
		t.Fatalf("expected error for oversized flip count")
	}
}
