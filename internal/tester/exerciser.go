// Package tester drives a somersault endpoint through a fixed
// diagnostic scenario and classifies every response it gets back. It
// is the client half of the simulation and doubles as the self-test
// harness.
package tester

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/soberlab/somersaultd/internal/catalog"
	"github.com/soberlab/somersaultd/internal/transport"
)

const defaultResponseTimeout = 500 * time.Millisecond

var (
	// ErrResponseTimeout reports the endpoint staying silent past the
	// per-request bound. It is terminal for the scenario.
	ErrResponseTimeout = errors.New("tester: timed out waiting for response")
	// ErrUnexpectedResponse reports a response whose classification
	// does not match the scenario step.
	ErrUnexpectedResponse = errors.New("tester: unexpected response")
)

// Step is one scripted request and the response class it must draw.
type Step struct {
	Name    string
	Request []byte
	Expect  catalog.ResponseKind
}

// Scenario is the fixed exercise script: one gated flip attempt
// before the session opens, then a session with flips that hit the
// success, soberness and capacity paths in turn.
func Scenario() ([]Step, error) {
	sober := func(n int) ([]byte, error) { return catalog.ForwardFlipsRequest(0x12, n) }

	flip1, err := sober(1)
	if err != nil {
		return nil, err
	}
	flipDrunk, err := catalog.ForwardFlipsRequest(0x23, 1)
	if err != nil {
		return nil, err
	}
	flip3, err := sober(3)
	if err != nil {
		return nil, err
	}
	flip50, err := sober(50)
	if err != nil {
		return nil, err
	}

	return []Step{
		{Name: "flip_without_session", Request: flip1, Expect: catalog.ResponseNegative},
		{Name: "session_start", Request: catalog.SessionStartRequest(), Expect: catalog.ResponsePositive},
		{Name: "flip_x1", Request: flip1, Expect: catalog.ResponsePositive},
		{Name: "flip_not_sober", Request: flipDrunk, Expect: catalog.ResponseNegative},
		{Name: "flip_x3", Request: flip3, Expect: catalog.ResponsePositive},
		{Name: "flip_x50_too_dizzy", Request: flip50, Expect: catalog.ResponseNegative},
	}, nil
}

// Config carries the exerciser runtime parameters.
type Config struct {
	// ResponseTimeout bounds each await. Zero selects the default.
	ResponseTimeout time.Duration
	Logger          zerolog.Logger
}

func (c Config) WithDefaults() Config {
	if c.ResponseTimeout == 0 {
		c.ResponseTimeout = defaultResponseTimeout
	}
	return c
}

// Exerciser runs the scripted scenario against one channel.
type Exerciser struct {
	ch      transport.Channel
	timeout time.Duration
	logger  zerolog.Logger
}

func NewExerciser(ch transport.Channel, cfg Config) *Exerciser {
	cfg = cfg.WithDefaults()
	return &Exerciser{
		ch:      ch,
		timeout: cfg.ResponseTimeout,
		logger:  cfg.Logger.With().Str("component", "somersault_tester").Logger(),
	}
}

// Run plays the scenario start to finish. Every step must draw a
// decodable response of the expected class within the timeout.
func (e *Exerciser) Run(ctx context.Context) error {
	e.logger.Info().Msg("running diagnostic tester")

	steps, err := Scenario()
	if err != nil {
		return err
	}
	for _, step := range steps {
		resp, err := e.exchange(ctx, step)
		if err != nil {
			return fmt.Errorf("step %s: %w", step.Name, err)
		}
		e.logResponse(step, resp)
		if resp.Kind != step.Expect {
			return fmt.Errorf("step %s: %w: got %s, want %s",
				step.Name, ErrUnexpectedResponse, resp.Kind, step.Expect)
		}
	}

	e.logger.Info().Msg("scenario complete")
	return nil
}

func (e *Exerciser) exchange(ctx context.Context, step Step) (catalog.Response, error) {
	e.logger.Debug().Str("step", step.Name).Hex("data", step.Request).Msg("sending request")
	if err := e.ch.Write(step.Request); err != nil {
		return catalog.Response{}, err
	}

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return catalog.Response{}, ctx.Err()
	case <-timer.C:
		return catalog.Response{}, ErrResponseTimeout
	case raw, ok := <-e.ch.Recv():
		if !ok {
			return catalog.Response{}, transport.ErrChannelClosed
		}
		return catalog.DecodeResponse(raw)
	}
}

func (e *Exerciser) logResponse(step Step, resp catalog.Response) {
	ev := e.logger.Info().
		Str("step", step.Name).
		Str("kind", resp.Kind.String()).
		Str("service", resp.Service.String())
	if resp.Kind == catalog.ResponseNegative {
		ev = ev.Uint8("code", resp.Code)
	}
	if resp.Service == catalog.ServiceForwardFlips && len(resp.Raw) >= 2 {
		ev = ev.Uint8("flips_done", resp.Raw[len(resp.Raw)-1])
	}
	ev.Msg("response received")
}
