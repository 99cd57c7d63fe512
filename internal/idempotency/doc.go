// Package idempotency remembers the receipt issued for each request_id so a
// resubmitted request is answered from the cache instead of being enqueued
// again.
//
// Two backends are provided: RedisStore for production, keyed as
// "<prefix><request_id>" with a per-entry TTL, and MemoryStore for tests and
// local development. Both follow last-write-wins semantics; neither takes a
// distributed lock.
//
//	store := idempotency.NewRedisStore(client, idempotency.WithKeyPrefix("idempotency:"))
//	rec, err := store.Get(ctx, "req-1")
//	if err != nil {
//		// backend down: callers must fail the request, never skip the check
//	}
//	if rec == nil {
//		// first time this request_id is seen
//	}
//
// Every backend failure is reported as ErrUnavailable joined with the cause.
package idempotency
