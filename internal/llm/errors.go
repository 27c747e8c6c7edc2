package llm

import (
	"errors"
	"fmt"
)

// FailureKind classifies why one extraction call failed.
type FailureKind string

const (
	// TransportFailure covers network errors and non-success HTTP statuses.
	TransportFailure FailureKind = "TRANSPORT_FAILURE"
	// MalformedResponse means the answer did not parse as the label record,
	// even after stripping wrapper markup.
	MalformedResponse FailureKind = "MALFORMED_RESPONSE"
	// ExplicitServiceError means the service answered with a structured error payload.
	ExplicitServiceError FailureKind = "EXPLICIT_SERVICE_ERROR"
)

// ErrExtractionFailed is the terminal failure returned once every attempt is spent.
var ErrExtractionFailed = errors.New("extraction failed")

// ExtractionError is the typed failure returned by a FieldExtractor.
type ExtractionError struct {
	Kind  FailureKind
	Op    string
	Cause error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// NewTransportError builds a TransportFailure.
func NewTransportError(op string, cause error) *ExtractionError {
	return &ExtractionError{Kind: TransportFailure, Op: op, Cause: cause}
}

// NewMalformedError builds a MalformedResponse failure.
func NewMalformedError(op string, cause error) *ExtractionError {
	return &ExtractionError{Kind: MalformedResponse, Op: op, Cause: cause}
}

// NewServiceError builds an ExplicitServiceError from the service's own message.
func NewServiceError(op, message string) *ExtractionError {
	return &ExtractionError{Kind: ExplicitServiceError, Op: op, Cause: errors.New(message)}
}

// KindOf returns the failure kind of err, or "" if err is not an ExtractionError.
func KindOf(err error) FailureKind {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return ""
}
