package app

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"polymarket-edge/internal/devserver"
)

// ServeFixtures runs the development API until interrupted. Options left
// zero fall back to the fixtures config section.
func (a *App) ServeFixtures(ctx context.Context, opts ServeOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := a.Config.Fixtures
	if opts.Addr == "" {
		opts.Addr = cfg.Addr
	}
	if opts.Path == "" {
		opts.Path = cfg.Path
	}
	if opts.FailFirst == 0 {
		opts.FailFirst = cfg.FailFirst
	}

	fixtures := devserver.SampleFixtures(time.Now())
	if opts.Path != "" {
		loaded, err := devserver.LoadFixtures(opts.Path)
		if err != nil {
			return err
		}
		fixtures = loaded
	}

	srv := devserver.New(fixtures, devserver.Options{
		FailFirst:  opts.FailFirst,
		StaleAfter: cfg.StaleAfter,
	}, a.Logger)
	return srv.ListenAndServe(ctx, opts.Addr)
}
