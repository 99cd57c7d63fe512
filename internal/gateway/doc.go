// Package gateway is the HTTP edge of the notification pipeline.
//
// Routes:
//
//	POST /api/v1/notifications                       submit a request
//	GET  /api/v1/notifications/{request_id}/status   latest status for a request
//	GET  /health                                     liveness
//	GET  /ready                                      dependency readiness
//
// Every /api/v1 body uses the handler.APIResponse envelope. A replayed submit
// answers with the stored receipt, the original 201 status and the
// Idempotent-Replayed header.
package gateway
