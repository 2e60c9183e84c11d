package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidCriteria     = errors.New("invalid search criteria")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrUnavailable         = errors.New("provider unavailable")
	ErrUnsupportedCategory = errors.New("unsupported category")
	ErrBadModelOutput      = errors.New("unparsable model output")
)

// LookupError is returned by place lookup collaborators.
type LookupError struct {
	Op  string
	Err error
}

func (e *LookupError) Error() string { return fmt.Sprintf("lookup %s: %v", e.Op, e.Err) }

func (e *LookupError) Unwrap() error { return e.Err }
