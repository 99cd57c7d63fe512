package correlation

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

const (
	// Header is used on HTTP requests and as the broker message header key.
	Header      = "X-Correlation-ID"
	maxIDLength = 128
)

var validID = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Middleware reuses a well-formed inbound Header value or mints a UUID,
// echoes it on the response and stores it in the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if !IsValid(id) {
			id = New()
		}
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), id)))
	})
}

func New() string {
	return uuid.NewString()
}

// IsValid reports whether id is safe to propagate into logs and headers.
func IsValid(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}
	return validID.MatchString(id)
}
