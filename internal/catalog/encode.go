package catalog

import "fmt"

// FlipFailReason enumerates the flips_not_done reason parameter.
type FlipFailReason byte

const (
	ReasonNotSober FlipFailReason = 0
	ReasonTooDizzy FlipFailReason = 1
	ReasonStumbled FlipFailReason = 2
)

func (r FlipFailReason) String() string {
	switch r {
	case ReasonNotSober:
		return "not_sober"
	case ReasonTooDizzy:
		return "too_dizzy"
	case ReasonStumbled:
		return "stumbled"
	default:
		return fmt.Sprintf("reason(%d)", byte(r))
	}
}

// EncodeValueError reports a parameter value outside its enumerated
// or valid set. It is surfaced to the caller unmodified.
type EncodeValueError struct {
	Service Service
	Param   string
	Value   int
}

func (e EncodeValueError) Error() string {
	return fmt.Sprintf("catalog: %s parameter %s has invalid value %d", e.Service, e.Param, e.Value)
}

// EncodeTesterPresentResponse builds the keepalive acknowledgement,
// positive while a session is open and negative otherwise.
func EncodeTesterPresentResponse(positive bool) []byte {
	if positive {
		return []byte{SIDTesterPresent + positiveOffset, 0x00}
	}
	return []byte{NegativeResponseSID, SIDTesterPresent, CodeConditionsNotCorrect}
}

// EncodeSessionStartPositive builds the session_start positive
// response carrying the backward-flip capability flag.
func EncodeSessionStartPositive(canDoBackwardFlips bool) []byte {
	flag := byte(0x00)
	if canDoBackwardFlips {
		flag = 0x01
	}
	return []byte{SIDSessionStart + positiveOffset, 0x00, flag}
}

func EncodeSessionStartNegative() []byte {
	return []byte{NegativeResponseSID, SIDSessionStart, CodeConditionsNotCorrect}
}

func EncodeSessionStopPositive() []byte {
	return []byte{SIDSessionStop + positiveOffset, 0x00}
}

func EncodeSessionStopNegative() []byte {
	return []byte{NegativeResponseSID, SIDSessionStop, CodeConditionsNotCorrect}
}

// EncodeGrudgingForward builds the do_forward_flips positive response.
func EncodeGrudgingForward(flipsDone int) ([]byte, error) {
	if flipsDone < 0 || flipsDone > 0xFF {
		return nil, EncodeValueError{Service: ServiceForwardFlips, Param: "flips_successfully_done", Value: flipsDone}
	}
	return []byte{SIDForwardFlips + positiveOffset, byte(flipsDone)}, nil
}

// EncodeFlipsNotDone builds the do_forward_flips negative response.
// The reason must be one of the three enumerated failure reasons.
func EncodeFlipsNotDone(reason FlipFailReason, flipsDone int) ([]byte, error) {
	switch reason {
	case ReasonNotSober, ReasonTooDizzy, ReasonStumbled:
	default:
		return nil, EncodeValueError{Service: ServiceForwardFlips, Param: "reason", Value: int(reason)}
	}
	if flipsDone < 0 || flipsDone > 0xFF {
		return nil, EncodeValueError{Service: ServiceForwardFlips, Param: "flips_successfully_done", Value: flipsDone}
	}
	return []byte{NegativeResponseSID, SIDForwardFlips, byte(reason), byte(flipsDone)}, nil
}

// Tester-side request builders.

func TesterPresentRequest() []byte {
	return []byte{SIDTesterPresent, 0x00}
}

func SessionStartRequest() []byte {
	return []byte{SIDSessionStart, 0x00}
}

func SessionStopRequest() []byte {
	return []byte{SIDSessionStop, 0x00}
}

func ForwardFlipsRequest(sobernessCheck byte, numFlips int) ([]byte, error) {
	if numFlips < 0 || numFlips > 0xFF {
		return nil, EncodeValueError{Service: ServiceForwardFlips, Param: "num_flips", Value: numFlips}
	}
	return []byte{SIDForwardFlips, sobernessCheck, byte(numFlips)}, nil
}
