package transport

import (
	"errors"
	"fmt"
)

// UnreachableError indicates the transport could not establish a connection.
// Fatal to the current operation, not to the process.
type UnreachableError struct {
	Target string
	Err    error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("transport unreachable: %s: %v", e.Target, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// NotFoundError indicates a path vanished or never existed.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.Path)
}

// PermissionError indicates access was denied. Never retried automatically.
type PermissionError struct {
	Path string
	Err  error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: %s: %v", e.Path, e.Err)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// TransferError indicates a failed or interrupted copy. Partial reports
// whether any data had been written locally before the failure; the partial
// file is always removed before the error is returned.
type TransferError struct {
	Path    string
	Partial bool
	Err     error
}

func (e *TransferError) Error() string {
	if e.Partial {
		return fmt.Sprintf("transfer failed (partial data discarded): %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("transfer failed: %s: %v", e.Path, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// IsUnreachable reports whether err is an UnreachableError.
func IsUnreachable(err error) bool {
	var target *UnreachableError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsPermission reports whether err is a PermissionError.
func IsPermission(err error) bool {
	var target *PermissionError
	return errors.As(err, &target)
}

// IsTransfer reports whether err is a TransferError.
func IsTransfer(err error) bool {
	var target *TransferError
	return errors.As(err, &target)
}
