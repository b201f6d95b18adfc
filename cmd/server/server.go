package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"gavel/internal/api"
	"gavel/internal/config"
	"gavel/internal/house"
	"gavel/internal/ledger"
	gavelNet "gavel/internal/net"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load config")
	}
	cfg.SetupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := house.New(ledger.New())
	srv := gavelNet.New(cfg.TCP.Address, cfg.TCP.Port, cfg.TCP.Workers, h)
	httpAPI := api.New(h)

	t := &tomb.Tomb{}
	t.Go(func() error {
		return srv.Serve(t)
	})
	t.Go(func() error {
		return httpAPI.Serve(t, cfg.HTTP.Address)
	})
	t.Go(func() error {
		return h.RunCloser(t, cfg.Closer.Interval)
	})

	// Wait until either a signal arrives or a component fails.
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown requested")
		t.Kill(nil)
	case <-t.Dying():
	}

	if err := t.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped")
}
