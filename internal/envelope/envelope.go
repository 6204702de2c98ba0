// Package envelope normalizes an inbound HTTP request into a read-only
// Request value and serializes outbound Response values.
//
// The pipeline never touches *http.Request directly: middleware, the router
// and route handlers all see the same Request built once per call.
package envelope
