// Package runtime wires storage, config, and the tracker facades into a
// single-node Lattice instance. It exposes Open/Close, a basic health
// check, and accessors for the store and event log used by the HTTP
// layer and the delivery services.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: cfg})
//	defer rt.Close()
//	// Health
//	_ = rt.CheckHealth(context.Background())
//	// Create a project and read it back
//	_, _ = rt.Store().CreateProject(context.Background(), "Acme", "acme", "ship it")
package runtime
