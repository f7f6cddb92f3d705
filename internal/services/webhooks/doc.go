// Package webhooksvc posts committed events to per-project webhook
// subscriptions.
//
// A single dispatcher tails the event log on a fixed interval, renders
// each event for the subscriber's platform (Slack, Discord, or generic
// JSON), and delivers it over HTTP. A failed delivery is retried once
// after a short delay and then dropped; durability ends at the event
// log, not at the subscriber.
package webhooksvc
