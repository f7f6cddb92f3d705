package serverrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	cfgpkg "github.com/gemologic/lattice/internal/config"
	"github.com/gemologic/lattice/internal/ratelimit"
	"github.com/gemologic/lattice/internal/runtime"
	httpserver "github.com/gemologic/lattice/internal/server/http"
	eventsvc "github.com/gemologic/lattice/internal/services/events"
	webhooksvc "github.com/gemologic/lattice/internal/services/webhooks"
	pebblestore "github.com/gemologic/lattice/internal/storage/pebble"
	logpkg "github.com/gemologic/lattice/pkg/log"
)

// Options configures one server run. Addr overrides the configured port
// when set; everything else comes from Config.
type Options struct {
	Addr          string
	FsyncInterval time.Duration
	Config        cfgpkg.Config
}

// FsyncMode maps the configured fsync string onto the storage layer's mode.
func FsyncMode(value string) (pebblestore.FsyncMode, error) {
	switch value {
	case "always":
		return pebblestore.FsyncModeAlways, nil
	case "interval":
		return pebblestore.FsyncModeInterval, nil
	case "never":
		return pebblestore.FsyncModeNever, nil
	default:
		return 0, fmt.Errorf("invalid fsync mode %q; use always|interval|never", value)
	}
}

// Run starts the HTTP server and the webhook dispatcher and blocks until
// ctx is canceled.
func Run(ctx context.Context, opts Options) error {
	// Layer a local signal context over the provided one so a caller that
	// did not wire signals still shuts down cleanly.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logpkg.ApplyConfig(&cfg.Log)
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	// Pebble logs through the stdlib logger; route that through ours.
	logpkg.RedirectStdLog(logger)
	cfg.LogStartupWarnings(logger)

	fsync, err := FsyncMode(cfg.Fsync)
	if err != nil {
		return err
	}
	rt, err := runtime.Open(runtime.Options{
		DataDir:       filepath.Join(cfg.DataDir, "store"),
		Fsync:         fsync,
		FsyncInterval: opts.FsyncInterval,
		Config:        cfg,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	addr := opts.Addr
	if addr == "" {
		addr = fmt.Sprintf(":%d", cfg.Port)
	}

	limiter := ratelimit.New(cfg.RateLimits, logger)
	events := eventsvc.New(rt.Events(), rt.Store(), logger)
	dispatcher := webhooksvc.New(rt.Events(), rt.Store(), logger)
	srv := httpserver.New(rt, limiter, events, dispatcher, logger)

	logger.Info("starting lattice server",
		logpkg.Str("addr", addr),
		logpkg.Str("data_dir", cfg.DataDir),
		logpkg.Bool("auth", cfg.AuthEnabled()),
		logpkg.Str("fsync", cfg.Fsync))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run(sctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.ListenAndServe(sctx, addr); err != nil && sctx.Err() == nil {
			logger.Error("http server error", logpkg.Err(err))
			stop()
		}
	}()

	<-sctx.Done()
	// Stop accepting connections before closing the runtime/DB so in-flight
	// handlers never race a closed store.
	srv.Close()
	wg.Wait()
	return nil
}
