// Package dispatcher accepts notification requests and enqueues them.
//
// Submit validates the request, answers replays from the idempotency store,
// assigns a notification_id, records the notification as PENDING and
// publishes the envelope to the channel's queue. It returns as soon as the
// broker has confirmed the publish; delivery happens in the channel
// workers.
//
// Redrive moves envelopes from the failed queue back into the pipeline as
// new notifications. The original FAILED record is kept and the request's
// idempotency entry is not touched, so a client replay still returns the
// first receipt while status lookups by request_id report the latest
// attempt.
package dispatcher
