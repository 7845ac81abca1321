package catalog

import "fmt"

// ResponseKind classifies an inbound response frame on the tester
// side.
type ResponseKind int

const (
	ResponseUnknown ResponseKind = iota
	ResponsePositive
	ResponseNegative
)

func (k ResponseKind) String() string {
	switch k {
	case ResponsePositive:
		return "positive"
	case ResponseNegative:
		return "negative"
	default:
		return "unknown"
	}
}

// Response is one classified response frame. For negatives,
// RequestSID echoes the refused request and Code carries the error
// or reason byte that follows it.
type Response struct {
	Kind       ResponseKind
	Service    Service
	RequestSID byte
	Code       byte
	Raw        []byte
}

// DecodeResponse classifies one response frame. Negative responses
// are matched on the 0x7F marker; positive ones on the SID+0x40 echo
// of a catalog service.
func DecodeResponse(raw []byte) (Response, error) {
	if len(raw) == 0 {
		return Response{}, fmt.Errorf("%w: empty response", ErrDecode)
	}

	if raw[0] == NegativeResponseSID {
		if len(raw) < 3 {
			return Response{}, fmt.Errorf("%w: short negative response", ErrDecode)
		}
		return Response{
			Kind:       ResponseNegative,
			Service:    serviceForSID(raw[1]),
			RequestSID: raw[1],
			Code:       raw[2],
			Raw:        append([]byte(nil), raw...),
		}, nil
	}

	if svc := serviceForSID(raw[0] - positiveOffset); svc != ServiceUnrecognized {
		return Response{
			Kind:       ResponsePositive,
			Service:    svc,
			RequestSID: raw[0] - positiveOffset,
			Raw:        append([]byte(nil), raw...),
		}, nil
	}

	return Response{}, fmt.Errorf("%w: unknown response id %#x", ErrDecode, raw[0])
}

func serviceForSID(sid byte) Service {
	switch sid {
	case SIDTesterPresent:
		return ServiceTesterPresent
	case SIDSessionStart:
		return ServiceSessionStart
	case SIDSessionStop:
		return ServiceSessionStop
	case SIDForwardFlips:
		return ServiceForwardFlips
	case SIDBackwardFlips:
		return ServiceBackwardFlips
	case SIDHeadstand:
		return ServiceHeadstand
	default:
		return ServiceUnrecognized
	}
}
