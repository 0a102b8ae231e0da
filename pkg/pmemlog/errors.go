package pmemlog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Common errors returned by pmemlog operations
var (
	// ErrClosed is reported when a record is appended after Close.
	ErrClosed = errors.New("pmemlog: logger is closed")

	// ErrLocked is returned by Open when another logger owns the file.
	ErrLocked = errors.New("pmemlog: file is owned by another logger")

	// ErrInvalidConfig is returned for configuration values out of range.
	ErrInvalidConfig = errors.New("pmemlog: invalid configuration")
)

// Operations reported in LogError.Operation.
const (
	OpGrow  = "grow"
	OpWrite = "write"
	OpClose = "close"
)

// LogError represents an error that occurred while appending or closing.
type LogError struct {
	Operation string    // The operation that failed
	Path      string    // The backing file
	Message   string    // Human readable error message
	Err       error     // The underlying error
	Timestamp time.Time // When the error occurred
}

// Error implements the error interface
func (e LogError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error
func (e LogError) Unwrap() error {
	return e.Err
}

func newLogError(op, path string, err error) LogError {
	return LogError{
		Operation: op,
		Path:      path,
		Message:   fmt.Sprintf("%s %s: %v", op, path, err),
		Err:       err,
		Timestamp: time.Now(),
	}
}

// ErrorHandler receives errors that Logv cannot return to its caller.
type ErrorHandler func(err LogError)

// SilentErrorHandler discards all errors (used in tests)
var SilentErrorHandler ErrorHandler = func(err LogError) {}

// StderrErrorHandler writes errors to stderr
var StderrErrorHandler ErrorHandler = func(err LogError) {
	fmt.Fprintf(os.Stderr, "pmemlog: %s\n", err.Message)
}

// isTestMode detects if we're running under go test
func isTestMode() bool {
	for _, arg := range os.Args {
		if strings.HasPrefix(arg, "-test.") {
			return true
		}
	}
	if exe, err := os.Executable(); err == nil {
		if strings.HasSuffix(filepath.Base(exe), ".test") {
			return true
		}
	}
	return false
}

// getDefaultErrorHandler returns the appropriate error handler based on environment
func getDefaultErrorHandler() ErrorHandler {
	if isTestMode() {
		return SilentErrorHandler
	}
	return StderrErrorHandler
}
