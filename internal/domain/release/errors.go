package release

import (
	"errors"
	"fmt"

	"github.com/strapi/strapi-sub004/internal/domain/content"
)

// ErrorCode identifies well-known error categories surfaced by release
// operations. Callers switch on codes rather than on message text.
type ErrorCode string

const (
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeValidation       ErrorCode = "VALIDATION_ERROR"
	ErrCodeAlreadyOnRelease ErrorCode = "ALREADY_ON_RELEASE"
	ErrCodePublishFailed    ErrorCode = "PUBLISH_FAILED"
	ErrCodeConflict         ErrorCode = "CONFLICT"
	ErrCodeCancelled        ErrorCode = "CANCELLED"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// Messages shared between the service and its tests.
const (
	MsgAlreadyPublished = "release already published"
	MsgNoEntries        = "no entries to publish"
	MsgScheduleChanged  = "release schedule changed"
)

// DomainError represents a typed error enriched with contextual data such as
// the release, action and content type involved.
type DomainError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As usage.
func (e *DomainError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches another DomainError with the same code and message.
func (e *DomainError) Is(target error) bool {
	var domainErr *DomainError
	if !errors.As(target, &domainErr) {
		return false
	}
	return e.Code == domainErr.Code && e.Message == domainErr.Message
}

// WithContext clones the error with additional contextual metadata.
func (e *DomainError) WithContext(ctx map[string]interface{}) *DomainError {
	if e == nil {
		return nil
	}
	merged := make(map[string]interface{}, len(e.Context)+len(ctx))
	for k, v := range e.Context {
		merged[k] = v
	}
	for k, v := range ctx {
		merged[k] = v
	}
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Cause:   e.Cause,
		Context: merged,
	}
}

// NewError constructs a DomainError.
func NewError(code ErrorCode, message string, cause error, context map[string]interface{}) *DomainError {
	return &DomainError{Code: code, Message: message, Cause: cause, Context: context}
}

// NotFound reports a missing release, action or entry.
func NotFound(message string, context map[string]interface{}) *DomainError {
	return NewError(ErrCodeNotFound, message, nil, context)
}

// Validation reports a rejected request.
func Validation(message string, context map[string]interface{}) *DomainError {
	return NewError(ErrCodeValidation, message, nil, context)
}

// AlreadyOnRelease reports a duplicate (contentType, document, locale) tuple.
func AlreadyOnRelease(releaseID string, key content.EntryKey) *DomainError {
	return NewError(ErrCodeAlreadyOnRelease, "entry already in release", nil, map[string]interface{}{
		"release_id":   releaseID,
		"content_type": key.ContentType,
		"document_id":  key.DocumentID,
		"locale":       key.Locale,
	})
}

// CodeOf returns the code of the first DomainError in err's chain, or an
// empty code for foreign errors.
func CodeOf(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

func IsNotFound(err error) bool         { return CodeOf(err) == ErrCodeNotFound }
func IsValidation(err error) bool       { return CodeOf(err) == ErrCodeValidation }
func IsAlreadyOnRelease(err error) bool { return CodeOf(err) == ErrCodeAlreadyOnRelease }
func IsPublishFailed(err error) bool    { return CodeOf(err) == ErrCodePublishFailed }

// IsScheduleChanged reports a timer whose instant no longer matches the
// stored scheduledAt.
func IsScheduleChanged(err error) bool {
	return errors.Is(err, Validation(MsgScheduleChanged, nil))
}
