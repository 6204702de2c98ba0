// Package handler holds the route handlers. A handler binds and validates
// its payload, calls the service layer and returns the JSON body the
// application driver sends.
package handler
