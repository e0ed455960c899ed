package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeUnreadable    = "UNREADABLE_DOCUMENT"
	ErrCodeUpstream      = "UPSTREAM_SERVICE_ERROR"
	ErrCodeUnavailable   = "STORE_UNAVAILABLE"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrInvalidDocumentStatus  = NewDomainError(ErrCodeValidation, "invalid document status")
	ErrInvalidIngestJobStatus = NewDomainError(ErrCodeValidation, "invalid ingest job status")
	ErrInvalidMetadataProfile = NewDomainError(ErrCodeValidation, "invalid metadata profile")
	ErrMissingRequiredField   = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrDocumentNotFound  = NewDomainError(ErrCodeNotFound, "document not found")
	ErrObjectNotFound    = NewDomainError(ErrCodeNotFound, "stored object not found")
	ErrIngestJobNotFound = NewDomainError(ErrCodeNotFound, "ingest job not found")
)

// Pipeline errors; each wraps the upstream cause when raised
var (
	ErrUnreadableDocument = NewDomainError(ErrCodeUnreadable, "document bytes are not a readable PDF")
	ErrEmbeddingService   = NewDomainError(ErrCodeUpstream, "embedding service failed")
	ErrCompletionService  = NewDomainError(ErrCodeUpstream, "completion service failed")
	ErrStoreUnavailable   = NewDomainError(ErrCodeUnavailable, "chunk store unavailable")
	ErrBlobFetchFailed    = NewDomainError(ErrCodeInternalError, "failed to fetch object from storage")
)

// Authorization errors
var (
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)
