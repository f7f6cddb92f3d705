// Package serverrun boots a lattice server instance: it opens storage,
// builds the rate limiter and services, starts the webhook dispatcher, and
// serves HTTP until the context or a signal stops it.
package serverrun
