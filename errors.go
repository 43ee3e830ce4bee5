package ferry

import (
	"errors"
	"fmt"
)

// Common transfer errors
var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrTimeout             = errors.New("connect timed out")
	ErrConnection          = errors.New("connection failed")
	ErrAuth                = errors.New("authentication failed")
	ErrTransfer            = errors.New("transfer failed")
	ErrUnsupportedProtocol = errors.New("unsupported protocol")
	ErrClosed              = errors.New("session already closed")
)

// PathError records an error and the operation and file path that caused it
type PathError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface
func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *PathError) Unwrap() error {
	return e.Err
}

// transferError tags err as a transfer failure of op on path.
func transferError(op, path string, err error) error {
	if errors.Is(err, ErrTransfer) {
		return &PathError{Op: op, Path: path, Err: err}
	}
	return &PathError{Op: op, Path: path, Err: fmt.Errorf("%w: %w", ErrTransfer, err)}
}

// IsNotFound reports whether an error indicates an unknown profile or a
// missing local path
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether an error was caused by an invalid profile
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsTimeout reports whether an error indicates the connect deadline passed
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsConnection reports whether an error was reported by the transport while
// establishing a session. Authentication failures are connection failures too.
func IsConnection(err error) bool {
	return errors.Is(err, ErrConnection) || errors.Is(err, ErrAuth)
}
