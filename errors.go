package cardkit

import (
	"errors"
	"fmt"
)

// Common mount and resource errors
var (
	// ErrMountFailed is returned when a source cannot be read or decoded
	ErrMountFailed = errors.New("mount failed")
	// ErrUnsupportedSource is returned for an unrecognized source variant
	ErrUnsupportedSource = errors.New("unsupported mount source")
	// ErrNotMounted is returned when no runtime exists and recovery is impossible
	ErrNotMounted = errors.New("card not mounted")
	// ErrResourceNotFound is returned when a path is absent from the file index
	ErrResourceNotFound = errors.New("resource not found")
	// ErrEmptyCardID is returned when the card identifier is empty
	ErrEmptyCardID = errors.New("card id cannot be empty")
	// ErrInvalidPath is returned for paths that escape the bundle root
	ErrInvalidPath = errors.New("invalid resource path")
	// ErrStoreCorrupt is returned when the mount table document cannot be decoded
	ErrStoreCorrupt = errors.New("mount table corrupt")
	// ErrNotSupported is returned when an operation is not available for a source kind
	ErrNotSupported = errors.New("operation not supported")
)

// CardError records an error together with the operation, card, and
// resource path that caused it
type CardError struct {
	Op   string
	Card string
	Path string
	Err  error
}

// Error implements the error interface
func (e *CardError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Card, e.Err)
	}
	return fmt.Sprintf("%s %s:%s: %v", e.Op, e.Card, e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *CardError) Unwrap() error {
	return e.Err
}

// wrapCardErr wraps err in a CardError unless it already is one.
func wrapCardErr(op, card, path string, err error) error {
	var ce *CardError
	if errors.As(err, &ce) {
		return err
	}
	return &CardError{Op: op, Card: card, Path: path, Err: err}
}

// IsNotMounted reports whether an error indicates that a card has no
// runtime and could not be recovered
func IsNotMounted(err error) bool {
	return errors.Is(err, ErrNotMounted)
}

// IsResourceNotFound reports whether an error indicates that a resource
// path is absent from a mounted card's index
func IsResourceNotFound(err error) bool {
	return errors.Is(err, ErrResourceNotFound)
}

// IsMountFailed reports whether an error indicates an unreadable or
// corrupt mount source
func IsMountFailed(err error) bool {
	return errors.Is(err, ErrMountFailed)
}
