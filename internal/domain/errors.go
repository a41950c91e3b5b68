// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates a request failed input validation.
var ErrValidation = errors.New("validation failed")

// ErrConflict indicates the target is busy, e.g. a thread that already has an active turn.
var ErrConflict = errors.New("conflict")
