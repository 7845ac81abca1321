package ecu

import (
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/soberlab/somersaultd/internal/catalog"
)

// SobernessCheckValue is the single accepted forward_soberness_check
// code.
const SobernessCheckValue byte = 0x12

// stumbleDrawBound is the exclusive upper bound of the per-step
// uniform draw.
const stumbleDrawBound = 10000

// FlipOutcome reports one do_forward_flips execution. FlipsDone is
// the value reported on the wire: the executed count on the success
// and stumble paths, and the count that would still have fit on the
// too-dizzy path.
type FlipOutcome struct {
	OK        bool
	Reason    catalog.FlipFailReason
	FlipsDone int
}

// FlipOperation performs bounded probabilistic forward flips against
// a session. The integer source is injectable so tests can force or
// suppress the stumble branch.
type FlipOperation struct {
	stumbleThreshold int
	drawInt          func(n int) int
	logger           zerolog.Logger
}

func NewFlipOperation(stumbleThreshold int, drawInt func(n int) int, logger zerolog.Logger) *FlipOperation {
	if drawInt == nil {
		drawInt = rand.Intn
	}
	return &FlipOperation{
		stumbleThreshold: stumbleThreshold,
		drawInt:          drawInt,
		logger:           logger,
	}
}

// Execute runs one flip request against st. The session lock is held
// for the whole operation; it never suspends, so no other mutation
// interleaves mid-flip.
func (f *FlipOperation) Execute(st *SessionState, req catalog.FlipRequest) FlipOutcome {
	st.mu.Lock()
	defer st.mu.Unlock()

	if req.SobernessCheck != SobernessCheckValue {
		return FlipOutcome{Reason: catalog.ReasonNotSober, FlipsDone: 0}
	}

	// Too dizzy to do them all: report how many would still have
	// fit and saturate the counter. The reported count is a
	// theoretical fit, not an executed count; the stumble path below
	// reports executed counts and does not saturate.
	if st.dizziness+req.NumFlips > st.maxDizziness {
		fit := st.maxDizziness - st.dizziness
		st.dizziness = st.maxDizziness
		return FlipOutcome{Reason: catalog.ReasonTooDizzy, FlipsDone: fit}
	}

	for i := 0; i < req.NumFlips; i++ {
		if f.drawInt(stumbleDrawBound) < f.stumbleThreshold {
			f.logger.Debug().Int("flips_done", i).Msg("stumbled mid-flip")
			return FlipOutcome{Reason: catalog.ReasonStumbled, FlipsDone: i}
		}
		st.dizziness++
	}

	return FlipOutcome{OK: true, FlipsDone: req.NumFlips}
}
