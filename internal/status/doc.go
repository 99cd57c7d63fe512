// Package status records the delivery lifecycle of every notification.
//
// A record is created PENDING by the dispatcher before the envelope is
// published and moves exactly once to DELIVERED or FAILED:
//
//	pending ──▶ delivered   (sent, or skipped by user preference)
//	   │
//	   └──────▶ failed      (invalid envelope, lookup, render or transport error)
//
// Terminal records are write-once. A second Transition returns
// ErrAlreadyFinal and leaves the stored record untouched, which is how
// duplicate broker deliveries are made harmless.
//
// PostgresTracker enforces this with a conditional UPDATE inside a
// transaction that also appends to the notification_status_events history.
// MemoryTracker gives the same guarantees in process. Reconciler sweeps
// records left PENDING when a publish failed after Create.
package status
