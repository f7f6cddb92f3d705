// Package config provides loading and environment overlay for Lattice
// runtime configuration. It exposes a Default() baseline, file loading in
// JSON or YAML, and a LATTICE_* environment overlay.
//
// Example:
//
//	cfg, err := config.Load("/etc/lattice.yaml")
//	if err != nil {
//	    return err
//	}
//	config.FromEnv(&cfg)
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
