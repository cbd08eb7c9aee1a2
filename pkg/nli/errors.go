package nli

import "errors"

// Common classifier errors
var (
	// ErrClassifierClosed indicates the classifier was used after Close
	ErrClassifierClosed = errors.New("NLI classifier is closed")

	// ErrModelNotFound indicates the model directory or graph file does not exist
	ErrModelNotFound = errors.New("NLI model not found")

	// ErrShapeMismatch indicates the model returned an unexpected number of scores
	ErrShapeMismatch = errors.New("NLI model output shape mismatch")
)

// InferenceError reports a failed forward pass for a batch.
type InferenceError struct {
	Backend   string
	BatchSize int
	Err       error
}

func (e *InferenceError) Error() string {
	return "NLI inference failed (" + e.Backend + "): " + e.Err.Error()
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support for InferenceError.
func (e *InferenceError) Is(target error) bool {
	_, ok := target.(*InferenceError)
	return ok
}

// NewInferenceError creates a new inference error for a batch
func NewInferenceError(backend string, batchSize int, err error) *InferenceError {
	return &InferenceError{Backend: backend, BatchSize: batchSize, Err: err}
}
