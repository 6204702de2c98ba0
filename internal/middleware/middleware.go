// Package middleware stores the request pipeline and the host middleware.
//
// The pipeline (Chain) runs CORS, security, rate limiting and error
// translation over an envelope.Request before the router is consulted.
// The host ring wraps the whole pipeline in echo and handles request ids,
// request-scoped logging, tracing, authentication and panic recovery.
package middleware
