package hook

import (
	"errors"
	"fmt"
)

var (
	ErrNotInitialized     = errors.New("hook engine not initialized")
	ErrUnavailable        = errors.New("function unavailable")
	ErrCallingUnsupported = errors.New("calling unsupported")
	ErrHookNotFound       = errors.New("hook not found")
)

// OpError is a primitive failure for one target.
type OpError struct {
	Op     string
	Target uintptr
	Err    error
}

// InitError carries the cached cause of a failed engine initialization.
type InitError struct {
	Err error
}

type CommitError struct {
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s hook at %#x: %v", e.Op, e.Target, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initialize hook engine: %v", e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

func (e *InitError) Is(target error) bool {
	return target == ErrNotInitialized
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("apply queued hooks: %v", e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}
