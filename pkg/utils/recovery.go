package utils

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// PanicError wraps a panic value as an error
type PanicError struct {
	Stage      string
	Value      interface{}
	StackTrace string
}

func (e *PanicError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("panic: %v", e.Value)
	}
	return fmt.Sprintf("panic in %s: %v", e.Stage, e.Value)
}

// RecoverAsError recovers from a panic and converts it to an error.
// It should be called with defer at the beginning of a function.
//
// Example:
//
//	func scoreBatch() (err error) {
//	    defer RecoverAsError(&err)
//	    // ... inference that might panic
//	}
func RecoverAsError(errPtr *error) {
	if r := recover(); r != nil {
		*errPtr = newPanicError("", r, slog.Default())
	}
}

// RecoverStage is RecoverAsError with a stage label and an explicit logger.
// A nil logger uses slog.Default().
func RecoverStage(errPtr *error, logger *slog.Logger, stage string) {
	if r := recover(); r != nil {
		if logger == nil {
			logger = slog.Default()
		}
		*errPtr = newPanicError(stage, r, logger)
	}
}

func newPanicError(stage string, r interface{}, logger *slog.Logger) *PanicError {
	stack := string(debug.Stack())
	logger.Error("Recovered from panic", "stage", stage, "panic", r, "stack", stack)
	return &PanicError{Stage: stage, Value: r, StackTrace: stack}
}
