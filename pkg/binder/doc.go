// Package binder decodes HTTP request data into Go structs.
//
// Binders share the signature func(r *http.Request, v any) error so they can
// be chained by handler.Wrap. JSON reads a size-limited body in strict mode:
// unknown fields and trailing data are rejected. Path copies router
// parameters into fields tagged `path:"name"`.
//
//	type StatusRequest struct {
//	    RequestID string `path:"request_id"`
//	}
//
//	r.Get("/notifications/{request_id}/status", handler.Wrap(h,
//	    handler.WithBinders[handler.Context, StatusRequest](binder.Path(chi.URLParam)),
//	))
//
// Every failure wraps one of the package sentinels so callers can map it to
// a 400 response with errors.Is.
package binder
