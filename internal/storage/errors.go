package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when an insert collides with an existing
	// natural key.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)

// Error wraps every failure coming out of a Store with the operation that
// produced it.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap returns nil for a nil err.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Op: op, Err: err}
}
