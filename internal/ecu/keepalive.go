package ecu

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/soberlab/somersaultd/internal/observability"
)

// idleGuardFactor pads the protocol-mandated tester-present cadence
// so scheduling jitter alone never closes a live session.
const idleGuardFactor = 1.05

// KeepaliveSupervisor closes the diagnostic session when the tester
// falls silent for longer than the idle timeout. It runs until
// cancelled; an ordinary timeout is never an error.
type KeepaliveSupervisor struct {
	name    string
	state   *SessionState
	wait    time.Duration
	traffic chan struct{}
	logger  zerolog.Logger
}

func NewKeepaliveSupervisor(name string, state *SessionState, idleTimeout time.Duration, logger zerolog.Logger) *KeepaliveSupervisor {
	return &KeepaliveSupervisor{
		name:  name,
		state: state,
		wait:  time.Duration(float64(idleTimeout) * idleGuardFactor),
		// Edge-triggered: one pending signal is enough, later edges
		// within the same window coalesce.
		traffic: make(chan struct{}, 1),
		logger:  logger,
	}
}

// NotifyTraffic records an inbound-data edge. Safe from any
// goroutine, never blocks.
func (s *KeepaliveSupervisor) NotifyTraffic() {
	select {
	case s.traffic <- struct{}{}:
	default:
	}
}

// Run races the traffic signal against the guarded idle timer until
// ctx is cancelled. The only error it ever returns is ctx.Err().
func (s *KeepaliveSupervisor) Run(ctx context.Context) error {
	timer := time.NewTimer(s.wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.traffic:
			// Tester seen; restart the silence window.
			if !timer.Stop() {
				<-timer.C
			}
		case <-timer.C:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if s.state.CloseIfOpen() {
				s.logger.Info().Msg("closing diagnostic session after tester-present timeout")
				observability.RecordSessionClose(s.name, "idle")
			}
		}
		timer.Reset(s.wait)
	}
}
