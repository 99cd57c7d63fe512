// Package clientip resolves the originating client address of a request
// behind reverse proxies and carries it in the request context so the
// access log can record it.
//
// Only headers set by a proxy you control should be trusted; a direct
// client can put anything in X-Forwarded-For.
//
//	res := clientip.NewResolver("X-Forwarded-For")
//	r.Use(clientip.Middleware(res))
package clientip
