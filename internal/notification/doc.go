// Package notification holds the shared vocabulary of the dispatch pipeline:
// requests, envelopes, receipts, statuses, the channel enum and its routing,
// and the error taxonomy used by the gateway and the workers.
package notification
