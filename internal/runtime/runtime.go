package runtime

import (
	"context"
	"errors"
	"time"

	cfgpkg "github.com/gemologic/lattice/internal/config"
	"github.com/gemologic/lattice/internal/eventlog"
	pebblestore "github.com/gemologic/lattice/internal/storage/pebble"
	"github.com/gemologic/lattice/internal/store"
	logpkg "github.com/gemologic/lattice/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	DataDir       string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
	Logger        logpkg.Logger
}

// Runtime wires storage, config, and the tracker facades for a
// single-node instance.
type Runtime struct {
	db     *pebblestore.DB
	events *eventlog.Log
	store  *store.Store
	config cfgpkg.Config
}

// Open initializes the underlying storage and returns a Runtime.
func Open(opts Options) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	db, err := pebblestore.Open(pebblestore.Options{DataDir: opts.DataDir, Fsync: opts.Fsync, FsyncInterval: opts.FsyncInterval})
	if err != nil {
		return nil, err
	}
	events := eventlog.Open(db)
	rt := &Runtime{
		db:     db,
		events: events,
		store:  store.New(db, events, logger),
		config: opts.Config,
	}
	return rt, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth performs a simple health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	it.Close()
	return nil
}

// Events returns the append-only project event log.
func (r *Runtime) Events() *eventlog.Log { return r.events }

// Store returns the tracker store.
func (r *Runtime) Store() *store.Store { return r.store }

// DB exposes the underlying DB for advanced operations (internal use only).
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
