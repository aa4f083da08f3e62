package hook

import (
	"errors"
)

// Hook is an interface for before/after hooks around processing a value T.
//
// R is whatever the Before hook hands back to the caller.
type Hook[T any, R any] interface {
	// Before is called before the value T is processed.
	//
	// When Before fails, the processing should not happen.
	Before(T) (R, error)

	// After is called after the value T is processed.
	After(T) error
}

var ErrHookFailed = errors.New("hook failed")
