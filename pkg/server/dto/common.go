package dto

import "errors"

// MaxContentLength bounds the text accepted by one analysis request.
const MaxContentLength = 200_000

// ErrContentTooLong is returned when a request text exceeds MaxContentLength.
var ErrContentTooLong = errors.New("text exceeds maximum length")

// Result represents a generic API result
type Result struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
