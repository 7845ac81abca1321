// Package catalog is the diagnostic message catalog of the somersault
// ECU: the service identities it understands, request decoding, and
// the positive/negative response encodings for each service. The
// byte layouts follow the UDS A_PDU convention: request SID first,
// positive responses echo SID+0x40, negative responses start 0x7F.
package catalog

import (
	"errors"
	"fmt"
)

// Service enumerates the catalog's request services. The zero value
// is the explicit unrecognized arm so a total switch over Service
// always has somewhere to land.
type Service int

const (
	ServiceUnrecognized Service = iota
	ServiceTesterPresent
	ServiceSessionStart
	ServiceSessionStop
	ServiceForwardFlips
	ServiceBackwardFlips
	ServiceHeadstand
)

func (s Service) String() string {
	switch s {
	case ServiceTesterPresent:
		return "tester_present"
	case ServiceSessionStart:
		return "session_start"
	case ServiceSessionStop:
		return "session_stop"
	case ServiceForwardFlips:
		return "do_forward_flips"
	case ServiceBackwardFlips:
		return "do_backward_flips"
	case ServiceHeadstand:
		return "headstand"
	default:
		return "unrecognized"
	}
}

// Request SIDs and response markers.
const (
	SIDSessionStart  byte = 0x10
	SIDSessionStop   byte = 0x11
	SIDTesterPresent byte = 0x3E
	SIDForwardFlips  byte = 0xBA
	SIDBackwardFlips byte = 0xBB
	SIDHeadstand     byte = 0xBC

	// NegativeResponseSID opens every catalog negative response.
	NegativeResponseSID byte = 0x7F

	// positiveOffset maps a request SID to its positive response SID.
	positiveOffset byte = 0x40

	// CodeConditionsNotCorrect is the negative-response code for a
	// service refused in the current session state.
	CodeConditionsNotCorrect byte = 0x22
)

var ErrDecode = errors.New("catalog: undecodable request")

// FlipRequest carries the decoded do_forward_flips parameters.
type FlipRequest struct {
	SobernessCheck byte
	NumFlips       int
}

// Message is one decoded request. Raw keeps the coded bytes so
// responses can echo the request SID. Flip is set only for
// ServiceForwardFlips.
type Message struct {
	Service Service
	Raw     []byte
	Flip    *FlipRequest
}

// Decode parses one inbound frame against the catalog. Requests are
// uniquely decodable, so the slice always has exactly one element on
// success; callers treat any other count as a decode failure.
func Decode(raw []byte) ([]Message, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrDecode)
	}

	msg := Message{Raw: append([]byte(nil), raw...)}
	switch raw[0] {
	case SIDTesterPresent:
		if err := expectSubfunction(raw); err != nil {
			return nil, err
		}
		msg.Service = ServiceTesterPresent
	case SIDSessionStart:
		if err := expectSubfunction(raw); err != nil {
			return nil, err
		}
		msg.Service = ServiceSessionStart
	case SIDSessionStop:
		if err := expectSubfunction(raw); err != nil {
			return nil, err
		}
		msg.Service = ServiceSessionStop
	case SIDForwardFlips:
		if len(raw) != 3 {
			return nil, fmt.Errorf("%w: do_forward_flips wants 3 bytes, got %d", ErrDecode, len(raw))
		}
		msg.Service = ServiceForwardFlips
		msg.Flip = &FlipRequest{
			SobernessCheck: raw[1],
			NumFlips:       int(raw[2]),
		}
	case SIDBackwardFlips:
		if len(raw) != 3 {
			return nil, fmt.Errorf("%w: do_backward_flips wants 3 bytes, got %d", ErrDecode, len(raw))
		}
		msg.Service = ServiceBackwardFlips
	case SIDHeadstand:
		if len(raw) != 2 {
			return nil, fmt.Errorf("%w: headstand wants 2 bytes, got %d", ErrDecode, len(raw))
		}
		msg.Service = ServiceHeadstand
	default:
		// A service id the catalog does not know still decodes, to
		// the explicit unrecognized arm; the dispatcher decides how
		// to answer it. Only malformed known requests are decode
		// failures.
		msg.Service = ServiceUnrecognized
	}

	return []Message{msg}, nil
}

func expectSubfunction(raw []byte) error {
	if len(raw) != 2 {
		return fmt.Errorf("%w: service %#x wants 2 bytes, got %d", ErrDecode, raw[0], len(raw))
	}
	if raw[1] != 0x00 {
		return fmt.Errorf("%w: service %#x unknown subfunction %#x", ErrDecode, raw[0], raw[1])
	}
	return nil
}
