// Package handler adapts typed handler functions to net/http.
//
// A HandlerFunc receives a Context and a request value populated by the
// configured binders and returns a Response. Wrap turns it into an
// http.HandlerFunc:
//
//	submit := func(ctx handler.Context, req CreateRequest) handler.Response {
//		out, err := svc.Create(ctx, req)
//		if err != nil {
//			return handler.JSONError(err)
//		}
//		return handler.JSON(out, handler.WithJSONStatus(http.StatusCreated))
//	}
//
//	r.Post("/items", handler.Wrap(submit,
//		handler.WithBinders[handler.Context, CreateRequest](binder.JSON()),
//		handler.WithErrorHandler[handler.Context, CreateRequest](handler.NewErrorHandler(log)),
//	))
//
// JSON responses share the APIResponse envelope
// {success, data, error, message}. Errors of 5xx responses are reduced to a
// status key such as "service_unavailable"; the cause is only logged.
package handler
