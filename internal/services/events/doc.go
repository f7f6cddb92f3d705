// Package eventsvc streams the activity log to SSE subscribers. Each
// subscription validates its project filter, positions itself at the tail
// of the log, and then polls forward, pushing rendered frames through a
// caller-provided sink.
//
// Example:
//
//	svc := eventsvc.New(events, st, logger)
//	sub, err := svc.Subscribe(ctx, []string{"ACME"})
//	if err != nil {
//		return err // unknown project, reported before any stream bytes
//	}
//	_ = sub.Stream(mySink)
package eventsvc
