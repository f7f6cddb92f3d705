// Package store holds the tracker records (projects, tasks, questions, spec
// sections, webhooks) in Pebble and implements every mutation that produces
// a system event.
//
// Records are JSON values under per-kind key prefixes:
//
//	proj/<slug>                         project (carries the task counter)
//	task/<slug>/<task id>               task
//	ques/<task id>/<question id>        open question
//	spec/<slug>/<section>               spec section, current content
//	specrev/<slug>/<section>/<rev id>   spec revision history
//	hook/<slug>/<webhook id>            webhook subscription
//
// Record ids come from pkg/id, so a reverse scan over a prefix yields
// newest-first order without a secondary index.
//
// A single mutex serializes mutations. Each mutation stages its record
// writes and its event-log row into one Pebble batch and commits them
// together: an event is never visible without the change it describes, and
// vice versa. Mutations whose target is missing return a NotFound error
// before anything is staged. Reads take no lock.
package store
