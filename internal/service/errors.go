// Package service holds the MapIt business operations: accounts, maps,
// zones, packages and orders. Services validate input before touching the
// database, run multi-statement work in transactions and report failures as
// *Error values whose Kind the HTTP layer maps to a status code.
package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/mapit/internal/repository"
)

// Kind classifies a service failure.
type Kind int

const (
	KindServer Kind = iota
	KindValidation
	KindUnauthorized
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "server"
	}
}

// Error is the error type returned by every service operation. Message is
// safe to show to clients; Err keeps the cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, KindServer for foreign errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindServer
}

// Validation builds a KindValidation error.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a KindNotFound error.
func NotFound(msg string) error { return &Error{Kind: KindNotFound, Message: msg} }

// Conflict builds a KindConflict error.
func Conflict(msg string) error { return &Error{Kind: KindConflict, Message: msg} }

// Server wraps an unexpected failure.
func Server(msg string, err error) error { return &Error{Kind: KindServer, Message: msg, Err: err} }

// ErrInvalidCredentials is shared by unknown-email and wrong-password
// outcomes so callers cannot tell them apart.
var ErrInvalidCredentials = &Error{Kind: KindUnauthorized, Message: "invalid email or password"}

// Messages reused across services.
const (
	msgMapNotFound        = "map not found"
	msgMapNotOwned        = "map not found or no permission"
	msgZoneNotFound       = "zone not found"
	msgCustomerNotFound   = "customer not found"
	msgPackageNotFound    = "package not found or inactive"
	msgCurrentPkgNotFound = "no completed order found for customer"
)

// fromRepo translates repository sentinels. notFound is the message used
// for ErrNotFound and ErrReference; op names the operation for server
// errors.
func fromRepo(err error, op, notFound string) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrReference), errors.Is(err, repository.ErrForbidden):
		return &Error{Kind: KindNotFound, Message: notFound, Err: err}
	case errors.Is(err, repository.ErrEmailExists):
		return &Error{Kind: KindConflict, Message: "email already exists", Err: err}
	case errors.Is(err, repository.ErrConflict):
		return &Error{Kind: KindConflict, Message: conflictMessage(err), Err: err}
	case errors.Is(err, repository.ErrInvalidInput):
		return &Error{Kind: KindValidation, Message: "invalid input: " + detailOf(err), Err: err}
	}
	return Server(op+" failed", err)
}

func conflictMessage(err error) string {
	var ce *repository.ConstraintError
	if errors.As(err, &ce) && ce.Constraint != "" {
		return "duplicate value violates " + ce.Constraint
	}
	return "duplicate value"
}

func detailOf(err error) string {
	var ce *repository.ConstraintError
	if errors.As(err, &ce) && ce.Detail != "" {
		return ce.Detail
	}
	return "rejected by database"
}
