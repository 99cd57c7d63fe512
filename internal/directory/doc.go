// Package directory resolves a user_id to delivery addresses and channel
// preferences.
//
// HTTPClient talks to the user service (GET /api/v1/users/{id}) and retries
// transport errors and 5xx responses with exponential backoff. Memory is an
// in-process directory that can be seeded from a YAML fixture file:
//
//	users:
//	  - id: u1
//	    name: Ann
//	    email: ann@example.com
//	    push_token: tok-1
//	    preferences: {email: true, push: false}
package directory
