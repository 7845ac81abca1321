// somersaultd runs the somersault diagnostic simulation: the lazy ECU
// endpoint, the scripted tester, or both wired back to back in
// process.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/soberlab/somersaultd/internal/admin"
	"github.com/soberlab/somersaultd/internal/config"
	"github.com/soberlab/somersaultd/internal/ecu"
	"github.com/soberlab/somersaultd/internal/logging"
	"github.com/soberlab/somersaultd/internal/tester"
	"github.com/soberlab/somersaultd/internal/transport"
)

const endpointName = "somersault_lazy_ecu"

func main() {
	var (
		mode       = flag.String("mode", "unittest", "run mode: server, tester or unittest")
		configPath = flag.String("config", "", "path to a TOML endpoint config")
		listenAddr = flag.String("listen", "", "local UDP address (server and tester modes)")
		remoteAddr = flag.String("remote", "", "peer UDP address (server and tester modes)")
		adminAddr  = flag.String("admin", "", "HTTP admin listen address, overrides the config file")
	)
	flag.Parse()

	logging.ConfigureRuntime()

	cfg := config.DefaultEndpointConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("could not load config")
		}
		cfg = loaded
	}
	if *adminAddr != "" {
		cfg.AdminAddr = *adminAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch *mode {
	case "server":
		err = runServer(ctx, cfg, *listenAddr, *remoteAddr)
	case "tester":
		err = runTester(ctx, *listenAddr, *remoteAddr)
	case "unittest":
		err = runUnittest(ctx, cfg)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		log.Fatal().Err(err).Str("mode", *mode).Msg("somersaultd failed")
	}
}

// runServer serves the ECU endpoint over UDP until interrupted. The
// endpoint dying on its own is fatal.
func runServer(ctx context.Context, cfg config.EndpointConfig, listen, remote string) error {
	if listen == "" || remote == "" {
		return errors.New("server mode needs --listen and --remote")
	}
	ch, err := transport.OpenUDP(listen, remote, log.Logger)
	if err != nil {
		return err
	}
	defer ch.Close()

	ep := ecu.NewEndpoint(ch, endpointConfig(cfg))
	startAdmin(ctx, cfg.AdminAddr, ep)

	if err := ep.Run(ctx); !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server task terminated: %w", err)
	}
	return nil
}

// runTester plays the scripted scenario against a remote endpoint.
func runTester(ctx context.Context, listen, remote string) error {
	if listen == "" || remote == "" {
		return errors.New("tester mode needs --listen and --remote")
	}
	ch, err := transport.OpenUDP(listen, remote, log.Logger)
	if err != nil {
		return err
	}
	defer ch.Close()

	return tester.NewExerciser(ch, tester.Config{Logger: log.Logger}).Run(ctx)
}

// runUnittest wires the endpoint and the tester back to back over an
// in-process pair and reports whether the scenario held up.
func runUnittest(ctx context.Context, cfg config.EndpointConfig) error {
	ecuCh, testerCh := transport.Pair(cfg.ReceiveID, cfg.SendID)

	ep := ecu.NewEndpoint(ecuCh, endpointConfig(cfg))
	startAdmin(ctx, cfg.AdminAddr, ep)

	epCtx, cancelEp := context.WithCancel(ctx)
	defer cancelEp()
	epDone := make(chan error, 1)
	go func() { epDone <- ep.Run(epCtx) }()

	exDone := make(chan error, 1)
	go func() {
		exDone <- tester.NewExerciser(testerCh, tester.Config{Logger: log.Logger}).Run(ctx)
	}()

	select {
	case err := <-epDone:
		if err == nil || errors.Is(err, context.Canceled) {
			return errors.New("server task terminated before the scenario finished")
		}
		return fmt.Errorf("server task terminated: %w", err)
	case err := <-exDone:
		cancelEp()
		if epErr := <-epDone; !errors.Is(epErr, context.Canceled) {
			return fmt.Errorf("server task terminated: %w", epErr)
		}
		if err != nil {
			return err
		}
	}

	snap := ep.SessionSnapshot()
	log.Info().
		Int("dizziness", snap.Dizziness).
		Int("max_dizziness", snap.MaxDizziness).
		Msg("scenario held up")
	return nil
}

func endpointConfig(cfg config.EndpointConfig) ecu.Config {
	return ecu.Config{
		Name:             endpointName,
		MaxDizziness:     cfg.MaxDizziness,
		StumbleThreshold: cfg.StumbleThreshold,
		IdleTimeout:      cfg.IdleTimeout,
		Logger:           log.Logger,
	}
}

func startAdmin(ctx context.Context, addr string, ep *ecu.Endpoint) {
	if addr == "" {
		return
	}
	srv := admin.New(endpointName, addr, ep, nil)
	go func() {
		if err := srv.Run(ctx); err != nil {
			log.Error().Err(err).Str("addr", addr).Msg("admin server failed")
		}
	}()
}
