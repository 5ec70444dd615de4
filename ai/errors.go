package ai

import "errors"

var (
	// ErrEmptyResponse is returned when a model produces no usable output.
	ErrEmptyResponse = errors.New("model returned an empty response")

	// ErrMalformedResponse is returned when a model response cannot be parsed
	// after every allowed attempt.
	ErrMalformedResponse = errors.New("model response could not be parsed")
)
