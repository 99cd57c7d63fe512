// Package correlation carries a per-request correlation id from the HTTP
// edge, through broker message headers, into worker logs.
package correlation
