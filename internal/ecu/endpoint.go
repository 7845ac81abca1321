// Package ecu implements the simulated diagnostic endpoint: the
// session state machine, the request dispatcher, the forward-flip
// operation and the keepalive supervisor, all behind one transport
// channel.
package ecu

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/soberlab/somersaultd/internal/catalog"
	"github.com/soberlab/somersaultd/internal/observability"
	"github.com/soberlab/somersaultd/internal/transport"
)

var (
	// ErrReceiveClosed reports the transport receive path ending
	// while the endpoint was still supposed to be serving.
	ErrReceiveClosed = errors.New("ecu: transport receive channel closed")
	// ErrSupervisorStopped reports the keepalive supervisor ending
	// without being cancelled, which must never happen.
	ErrSupervisorStopped = errors.New("ecu: keepalive supervisor terminated unexpectedly")
)

// Config carries the endpoint runtime parameters.
type Config struct {
	// Name tags logs and metrics for this endpoint.
	Name string
	// MaxDizziness bounds the cumulative flip cost.
	MaxDizziness int
	// StumbleThreshold is the per-step stumble bound on a uniform
	// draw from [0, 10000).
	StumbleThreshold int
	// IdleTimeout is the tester-present silence interval; the
	// supervisor pads it with the guard factor.
	IdleTimeout time.Duration
	// DrawInt overrides the stumble draw source. Nil selects
	// math/rand.
	DrawInt func(n int) int
	Logger  zerolog.Logger
}

func (c Config) WithDefaults() Config {
	if c.Name == "" {
		c.Name = "somersault_lazy_ecu"
	}
	if c.MaxDizziness == 0 {
		c.MaxDizziness = 10
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 3 * time.Second
	}
	return c
}

// Endpoint is one simulated ECU bound to one transport channel.
type Endpoint struct {
	name   string
	ch     transport.Channel
	state  *SessionState
	flip   *FlipOperation
	super  *KeepaliveSupervisor
	logger zerolog.Logger
}

func NewEndpoint(ch transport.Channel, cfg Config) *Endpoint {
	cfg = cfg.WithDefaults()
	logger := cfg.Logger.With().Str("component", cfg.Name).Logger()
	state := NewSessionState(cfg.MaxDizziness)
	return &Endpoint{
		name:   cfg.Name,
		ch:     ch,
		state:  state,
		flip:   NewFlipOperation(cfg.StumbleThreshold, cfg.DrawInt, logger),
		super:  NewKeepaliveSupervisor(cfg.Name, state, cfg.IdleTimeout, logger),
		logger: logger,
	}
}

// SessionSnapshot exposes the current session state for the admin
// surface.
func (e *Endpoint) SessionSnapshot() SessionSnapshot {
	return e.state.Snapshot()
}

// Run serves inbound frames until ctx is cancelled. Any return value
// other than ctx.Err() means the endpoint died without being asked,
// which the caller must treat as fatal.
func (e *Endpoint) Run(ctx context.Context) error {
	e.logger.Info().Msg("running diagnostic server")

	supCtx, cancelSup := context.WithCancel(ctx)
	defer cancelSup()
	supDone := make(chan error, 1)
	go func() {
		supDone <- e.super.Run(supCtx)
	}()

	for {
		select {
		case <-ctx.Done():
			cancelSup()
			<-supDone
			return ctx.Err()
		case err := <-supDone:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err == nil {
				err = errors.New("no error recorded")
			}
			return fmt.Errorf("%w: %v", ErrSupervisorStopped, err)
		case frame, ok := <-e.ch.Recv():
			if !ok {
				cancelSup()
				<-supDone
				return ErrReceiveClosed
			}
			if err := e.handleFrame(frame); err != nil {
				cancelSup()
				<-supDone
				return err
			}
		}
	}
}

// handleFrame runs the full decode -> dispatch -> encode -> write
// path for one inbound frame. It never suspends. The returned error
// is only ever a catalog encode fault, surfaced unmodified.
func (e *Endpoint) handleFrame(raw []byte) error {
	// Any inbound frame restarts the idle window, even one that turns
	// out to be garbage.
	e.super.NotifyTraffic()
	e.logger.Debug().Hex("data", raw).Msg("data received")

	msgs, err := catalog.Decode(raw)
	if err != nil {
		e.logger.Warn().Err(err).Msg("could not decode request")
		observability.RecordDecodeFailure(e.name)
		return nil
	}
	if len(msgs) != 1 {
		e.logger.Warn().Int("count", len(msgs)).Msg("request did not decode uniquely")
		observability.RecordDecodeFailure(e.name)
		return nil
	}
	return e.dispatch(msgs[0])
}

func (e *Endpoint) dispatch(msg catalog.Message) error {
	e.logger.Info().Str("service", msg.Service.String()).Msg("received message")

	switch msg.Service {
	case catalog.ServiceTesterPresent:
		open := e.state.IsOpen()
		observability.RecordRequest(e.name, msg.Service.String(), outcomeLabel(open))
		e.writeFrame(catalog.EncodeTesterPresentResponse(open))
		return nil

	case catalog.ServiceSessionStart:
		if e.state.StartSession() {
			observability.RecordRequest(e.name, msg.Service.String(), "positive")
			e.writeFrame(catalog.EncodeSessionStartPositive(false))
		} else {
			observability.RecordRequest(e.name, msg.Service.String(), "negative")
			e.writeFrame(catalog.EncodeSessionStartNegative())
		}
		return nil
	}

	// From here on a session must be open, or the request gets the
	// generic "service not supported in active session" frame. That
	// frame is built without the catalog: the catalog has no encoding
	// path for a service that must not be reached.
	if !e.state.IsOpen() {
		observability.RecordRequest(e.name, msg.Service.String(), "refused")
		e.writeFrame(genericNegative(msg.Raw))
		return nil
	}

	switch msg.Service {
	case catalog.ServiceSessionStop:
		e.state.StopSession()
		observability.RecordRequest(e.name, msg.Service.String(), "positive")
		observability.RecordSessionClose(e.name, "stop")
		e.writeFrame(catalog.EncodeSessionStopPositive())
		return nil

	case catalog.ServiceForwardFlips:
		return e.dispatchForwardFlips(msg)

	default:
		// Known to the catalog but not implemented by this lazy
		// variant, or unrecognized outright: ignored in an open
		// session.
		observability.RecordRequest(e.name, msg.Service.String(), "ignored")
		e.logger.Debug().Str("service", msg.Service.String()).Msg("service not handled; ignoring")
		return nil
	}
}

func (e *Endpoint) dispatchForwardFlips(msg catalog.Message) error {
	out := e.flip.Execute(e.state, *msg.Flip)
	observability.RecordFlips(e.name, out.FlipsDone)

	if out.OK {
		resp, err := catalog.EncodeGrudgingForward(out.FlipsDone)
		if err != nil {
			return err
		}
		observability.RecordRequest(e.name, msg.Service.String(), "positive")
		e.writeFrame(resp)
		return nil
	}

	resp, err := catalog.EncodeFlipsNotDone(out.Reason, out.FlipsDone)
	if err != nil {
		return err
	}
	observability.RecordRequest(e.name, msg.Service.String(), out.Reason.String())
	e.writeFrame(resp)
	return nil
}

func (e *Endpoint) writeFrame(resp []byte) {
	if err := e.ch.Write(resp); err != nil {
		// Disconnect edges are logged only.
		e.logger.Warn().Err(err).Msg("response write failed")
	}
}

func outcomeLabel(positive bool) string {
	if positive {
		return "positive"
	}
	return "negative"
}

// genericNegative is the 3-byte "service not supported in active
// session" frame, echoing the first request byte when there is one.
func genericNegative(codedRequest []byte) []byte {
	rq := byte(0)
	if len(codedRequest) > 0 {
		rq = codedRequest[0]
	}
	return []byte{0x7F, rq, 0x7F}
}
