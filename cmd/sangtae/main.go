package main

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/smok95/Sangtae/internal/config"
	"github.com/smok95/Sangtae/internal/publish"
	"github.com/smok95/Sangtae/internal/sched"
	"github.com/smok95/Sangtae/internal/source"
	"github.com/smok95/Sangtae/internal/ui"
)

func main() {
	cfg := config.FromFlags(os.Args[1:])
	logger := newLogger(cfg)

	src := source.NewSystem(cfg, source.DefaultRunner(), logger)
	pub := publish.New()
	scheduler := sched.New(cfg, src, pub, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		scheduler.Run(ctx)
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return ui.Run(ctx, pub)
	})
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("exited with error")
		os.Exit(1)
	}
}

// newLogger writes diagnostics to the configured file; the terminal belongs
// to the TUI, so without one the logs are discarded.
func newLogger(cfg config.Config) zerolog.Logger {
	var w io.Writer = io.Discard
	if cfg.LogFile != "" {
		if f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			w = f
		}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}
