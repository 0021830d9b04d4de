package sftkit

import (
	"errors"
	"fmt"
)

// Sentinel errors for normalization and dataset construction.
// All use prefix "sftkit:" for identification. Callers should use errors.Is/errors.As.
var (
	ErrMissingChatKey  = errors.New("sftkit: record has no chat field")
	ErrInvalidMessage  = errors.New("sftkit: message object is malformed")
	ErrTerminalRole    = errors.New("sftkit: last message must be from assistant")
	ErrSystemPlacement = errors.New("sftkit: system message must be the only one and come first")
	ErrLoadTrain       = errors.New("sftkit: required train split could not be loaded")
	ErrDatasetNotFound = errors.New("sftkit: dataset not found")
)

// RecordError wraps a normalization failure with the split and row index it came from.
// Use errors.Is(err, ErrTerminalRole) and errors.As(err, &recordErr) to inspect.
type RecordError struct {
	Split Split
	Index int
	Err   error
}

// Error implements error.
func (e *RecordError) Error() string {
	return fmt.Sprintf("sftkit: record %d in split %q: %v", e.Index, e.Split, e.Err)
}

// Unwrap returns the wrapped error for errors.Is/errors.As.
func (e *RecordError) Unwrap() error { return e.Err }

// Compile-time check that RecordError implements error.
var _ error = (*RecordError)(nil)
