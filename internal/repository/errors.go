// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers to distinguish
// between different failure scenarios without inspecting driver errors.
// Postgres errors are translated once, in translate, using the SQLSTATE code
// carried by *pgconn.PgError.
package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource owned by someone else. Services collapse it into a not-found
// response so that the existence of other customers' maps is not leaked.
var ErrForbidden = errors.New("forbidden")

// ErrConflict signals a unique constraint violation (duplicate email,
// duplicate map code, duplicate package name).
var ErrConflict = errors.New("conflict")

// ErrReference signals a foreign key violation: the row points at a
// customer, map or package that does not exist.
var ErrReference = errors.New("referenced record does not exist")

// ErrInvalidInput signals that Postgres rejected a value (too long,
// malformed JSON or uuid, failed check constraint).
var ErrInvalidInput = errors.New("invalid input")

// Postgres SQLSTATE codes handled by translate.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
	pgStringTooLong       = "22001"
	pgInvalidText         = "22P02"
	pgInvalidJSON         = "22032"
)

// translate maps driver errors onto the sentinels above. Errors that are
// not recognised are returned unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return &ConstraintError{Err: ErrConflict, Constraint: pgErr.ConstraintName, Detail: pgErr.Detail}
	case pgForeignKeyViolation:
		return &ConstraintError{Err: ErrReference, Constraint: pgErr.ConstraintName, Detail: pgErr.Detail}
	case pgCheckViolation, pgNotNullViolation, pgStringTooLong, pgInvalidText, pgInvalidJSON:
		return &ConstraintError{Err: ErrInvalidInput, Constraint: pgErr.ConstraintName, Detail: pgErr.Message}
	}
	return err
}

// ConstraintError carries the violated constraint alongside a sentinel.
type ConstraintError struct {
	Err        error
	Constraint string
	Detail     string
}

func (e *ConstraintError) Error() string {
	if e.Detail != "" {
		return e.Err.Error() + ": " + e.Detail
	}
	return e.Err.Error()
}

func (e *ConstraintError) Unwrap() error { return e.Err }

// Violates reports whether err was raised by the named constraint.
func Violates(err error, constraint string) bool {
	var ce *ConstraintError
	return errors.As(err, &ce) && ce.Constraint == constraint
}
