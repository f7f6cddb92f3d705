// Package client contains the Cobra commands that talk to a running
// lattice server over its HTTP API.
package client
