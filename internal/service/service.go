// Package service contains the business logic.
//
// It sits between the handler and repository layers: it receives validated
// input from the handlers, applies the business rules and calls the
// repositories and the e-mail client.
package service
