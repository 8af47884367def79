package core

import (
	"errors"
	"fmt"
)

var (
	ErrStorageUnavailable   = errors.New("storage unavailable")
	ErrGeneratorUnavailable = errors.New("embedding generator unavailable")
	ErrNotFound             = errors.New("not found")
	ErrMalformedVector      = errors.New("malformed vector")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrInvalidConfig        = errors.New("invalid configuration")
)

// OpError records the operation (and word, when there is one) that failed.
type OpError struct {
	Op   string
	Word string
	Err  error
}

func (e *OpError) Error() string {
	if e.Word != "" {
		return fmt.Sprintf("%s [word=%s]: %v", e.Op, e.Word, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func NewOpError(op, word string, err error) *OpError {
	return &OpError{Op: op, Word: word, Err: err}
}

// Unavailable wraps err so that it matches both sentinel and the original cause.
func Unavailable(sentinel, err error) error {
	if err == nil || errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
