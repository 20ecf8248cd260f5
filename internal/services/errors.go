package services

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure. Kinds that degrade a single criteria
// group (index, embedding, count) never abort the turn; only merge and
// extraction failures do.
type Kind string

const (
	KindIndexUnavailable        Kind = "index_unavailable"
	KindExtractionRejected      Kind = "extraction_rejected"
	KindExtractionMalformed     Kind = "extraction_malformed"
	KindCountServiceFailure     Kind = "count_service_failure"
	KindEmbeddingServiceFailure Kind = "embedding_service_failure"
)

type ServiceError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func serviceErr(kind Kind, message string, err error) *ServiceError {
	return &ServiceError{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the failure kind from err, or "" when err carries none.
func KindOf(err error) Kind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
