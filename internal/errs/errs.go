// Package errs defines the error taxonomy of the API.
//
// Every fault that reaches a client is an *HTTPError: it carries the status
// code the pipeline should answer with, a machine-friendly code and a
// human-friendly message. Faults that are not HTTPErrors are treated as
// internal faults (500).
package errs
