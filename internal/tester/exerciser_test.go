package tester

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/soberlab/somersaultd/internal/catalog"
	"github.com/soberlab/somersaultd/internal/ecu"
	"github.com/soberlab/somersaultd/internal/testutil/testlog"
	"github.com/soberlab/somersaultd/internal/transport"
)

func TestScenarioShape(t *testing.T) {
	testlog.Start(t)
	steps, err := Scenario()
	if err != nil {
		t.Fatalf("scenario: %v", err)
	}
	if len(steps) != 6 {
		t.Fatalf("scenario has %d steps", len(steps))
	}
	if steps[0].Expect != catalog.ResponseNegative {
		t.Fatalf("sessionless step must expect a negative response")
	}
	if steps[1].Request[0] != 0x10 {
		t.Fatalf("second step must open the session, got %#v", steps[1].Request)
	}
}

func TestExerciserAgainstEndpoint(t *testing.T) {
	testlog.Start(t)
	ecuCh, testerCh := transport.Pair(0x7D0, 0x1B8)
	ep := ecu.NewEndpoint(ecuCh, ecu.Config{
		IdleTimeout: time.Hour,
		DrawInt:     func(int) int { return 9999 },
		Logger:      zerolog.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- ep.Run(ctx) }()

	ex := NewExerciser(testerCh, Config{Logger: zerolog.Nop()})
	if err := ex.Run(ctx); err != nil {
		t.Fatalf("scenario failed: %v", err)
	}

	// The capacity-gated final step saturates the counter.
	if snap := ep.SessionSnapshot(); snap.Dizziness != snap.MaxDizziness {
		t.Fatalf("dizziness=%d, want saturation at %d", snap.Dizziness, snap.MaxDizziness)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("endpoint returned %v", err)
	}
}

func TestExerciserTimesOutWithoutEndpoint(t *testing.T) {
	testlog.Start(t)
	_, testerCh := transport.Pair(0x7D0, 0x1B8)

	ex := NewExerciser(testerCh, Config{
		ResponseTimeout: 50 * time.Millisecond,
		Logger:          zerolog.Nop(),
	})
	err := ex.Run(context.Background())
	if !errors.Is(err, ErrResponseTimeout) {
		t.Fatalf("expected response timeout, got %v", err)
	}
}

func TestExerciserStopsOnCancel(t *testing.T) {
	testlog.Start(t)
	_, testerCh := transport.Pair(0x7D0, 0x1B8)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ex := NewExerciser(testerCh, Config{ResponseTimeout: time.Hour, Logger: zerolog.Nop()})
	if err := ex.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
