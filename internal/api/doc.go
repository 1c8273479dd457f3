// Package api provides an optional REST shell over one disambiguation
// engine: submit mentions, inspect stats, and read the review queue. The
// engine's decision pipeline has no import of this package or of Gin —
// api is a caller of internal/engine, never the other way around.
package api
