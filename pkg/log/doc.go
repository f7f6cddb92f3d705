// Package log provides Lattice's structured logging facade and utilities.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. Internally it is backed by Go's
// standard library slog via a custom handler that preserves the
// formatter/outputs pipeline, so output stays consistent across the codebase
// while remaining compatible with the slog ecosystem.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("webhooks"))
//	l.Info("dispatcher started", log.Int("batch", 100))
//
// # Configuration
//
// Use ApplyConfig to build a logger from a declarative Config holding a level
// and a format ("text" or "json").
//
// # Interop
//
// RedirectStdLog routes standard library log output (used by Pebble, among
// others) through a Logger so every line shares one format.
package log
