package clientip

import (
	"net"
	"net/http"
	"net/textproto"
	"strings"
)

// DefaultHeaders are consulted in order before falling back to RemoteAddr.
var DefaultHeaders = []string{"X-Forwarded-For", "X-Real-IP"}

// Resolver finds the originating client address of a request.
type Resolver struct {
	headers []string
}

// NewResolver trusts the given proxy headers in priority order. With no
// headers it uses DefaultHeaders.
func NewResolver(headers ...string) *Resolver {
	if len(headers) == 0 {
		headers = DefaultHeaders
	}
	canon := make([]string, 0, len(headers))
	for _, h := range headers {
		if h = strings.TrimSpace(h); h != "" {
			canon = append(canon, textproto.CanonicalMIMEHeaderKey(h))
		}
	}
	return &Resolver{headers: canon}
}

// NewResolverRemoteOnly ignores proxy headers.
func NewResolverRemoteOnly() *Resolver {
	return &Resolver{}
}

// IP returns the normalized client address or "" when none is valid.
// Comma-separated header values yield their first valid entry.
func (res *Resolver) IP(r *http.Request) string {
	for _, h := range res.headers {
		for v := range strings.SplitSeq(r.Header.Get(h), ",") {
			if ip := parseIP(v); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

func parseIP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return ""
	}
	return ip.String()
}
