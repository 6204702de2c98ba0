// Package validation binds request payloads and reports validation failures
// as field-level API errors.
package validation
