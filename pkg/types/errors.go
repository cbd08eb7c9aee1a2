package types

import "errors"

// Common analysis errors
var (
	// ErrInvalidMode indicates an unsupported analysis mode was requested
	ErrInvalidMode = errors.New("invalid analysis mode")

	// ErrTooFewSentences indicates the text does not contain two analysable sentences
	ErrTooFewSentences = errors.New("at least 2 sentences are required for contradiction analysis")

	// ErrEncoderUnavailable indicates the embedding encoder could not be loaded or used
	ErrEncoderUnavailable = errors.New("embedding encoder unavailable")

	// ErrClassifierUnavailable indicates the NLI classifier could not be loaded or used
	ErrClassifierUnavailable = errors.New("NLI classifier unavailable")
)

// InputError reports input that cannot be analysed. It is not fatal to the caller.
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	if e.Message == "" {
		return ErrTooFewSentences.Error()
	}
	return e.Message
}

// Is implements errors.Is support for InputError.
func (e *InputError) Is(target error) bool {
	if target == ErrTooFewSentences {
		return true
	}
	_, ok := target.(*InputError)
	return ok
}

// NewInputError creates a new input error with optional custom message
func NewInputError(message ...string) *InputError {
	err := &InputError{}
	if len(message) > 0 {
		err.Message = message[0]
	}
	return err
}

// ConfigError reports invalid analysis settings, detected before any model load.
type ConfigError struct {
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	return e.Message
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support for ConfigError.
func (e *ConfigError) Is(target error) bool {
	_, ok := target.(*ConfigError)
	return ok
}

// NewConfigError creates a new configuration error wrapping an optional cause
func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{Message: message, Err: cause}
}

// EncodingError reports a failure of the embedding encoder.
type EncodingError struct {
	Model string
	Err   error
}

func (e *EncodingError) Error() string {
	if e.Err == nil {
		return "embedding encoder " + e.Model + " unavailable"
	}
	return "embedding encoder " + e.Model + ": " + e.Err.Error()
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support for EncodingError.
func (e *EncodingError) Is(target error) bool {
	if target == ErrEncoderUnavailable {
		return true
	}
	_, ok := target.(*EncodingError)
	return ok
}

// NewEncodingError creates a new encoding error for the named model
func NewEncodingError(model string, cause error) *EncodingError {
	return &EncodingError{Model: model, Err: cause}
}

// ScoringError reports a failure to load or run the NLI classifier.
type ScoringError struct {
	Model string
	Err   error
}

func (e *ScoringError) Error() string {
	if e.Err == nil {
		return "NLI classifier " + e.Model + " unavailable"
	}
	return "NLI classifier " + e.Model + ": " + e.Err.Error()
}

func (e *ScoringError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support for ScoringError.
func (e *ScoringError) Is(target error) bool {
	if target == ErrClassifierUnavailable {
		return true
	}
	_, ok := target.(*ScoringError)
	return ok
}

// NewScoringError creates a new scoring error for the named model
func NewScoringError(model string, cause error) *ScoringError {
	return &ScoringError{Model: model, Err: cause}
}
