// Package templates looks up notification templates by code and renders
// them with request variables.
//
// Stores return the highest version of a code. MongoStore reads the
// "templates" collection, Memory keeps templates in process and can load a
// YAML fixture, and Cached puts an LRU with TTL in front of either.
//
// Renderer uses text/template for subjects and push bodies and html/template
// for email bodies, so variables are escaped in HTML. Both run with
// missingkey=error: a variable the template references but the request did
// not supply fails the render instead of producing "<no value>".
// Handlebars-style placeholders such as {{name}} are accepted and rewritten
// to {{.name}} before parsing.
package templates
