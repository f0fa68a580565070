package utils

import (
	"context"
	"errors"
	"fmt"

	"epub2pdf/pkg/types"
)

// ErrorType represents different types of errors
type ErrorType string

const (
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeExtraction ErrorType = "extraction"
	ErrorTypeUnpack     ErrorType = "unpack"
	ErrorTypeProcessing ErrorType = "processing"
	ErrorTypeAssembly   ErrorType = "assembly"
	ErrorTypeMetadata   ErrorType = "metadata"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeIO         ErrorType = "io"
)

// Well-known failure reasons surfaced in job results
const (
	ReasonNoImages          = "no_images"
	ReasonCorruptArchive    = "corrupt_archive"
	ReasonInvalidResizeSpec = "invalid_resize_spec"
	ReasonNoChunks          = "no_chunks"
	ReasonWriteFailed       = "write_failed"
	ReasonTimeout           = "timeout"
	ReasonAlreadyExists     = "already_exists"
)

// AppError is an application error carrying the failure taxonomy: the
// error type, an optional machine-readable reason, and the pipeline
// stage it belongs to.
type AppError struct {
	Type    ErrorType
	Reason  string
	Message string
	Cause   error
	// GroupIndex identifies the failing image group for processing
	// errors; -1 otherwise.
	GroupIndex int
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := e.Message
	if e.Reason != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Reason)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, msg)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on error type so callers can test against a bare
// &AppError{Type: ...} sentinel.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Type == t.Type
	}
	return false
}

// Stage maps the error type onto the pipeline stage it occurred in
func (e *AppError) Stage() types.Stage {
	switch e.Type {
	case ErrorTypeExtraction:
		return types.StageExtraction
	case ErrorTypeUnpack:
		return types.StageUnpack
	case ErrorTypeProcessing:
		return types.StageProcessing
	case ErrorTypeAssembly:
		return types.StageAssembly
	case ErrorTypeMetadata:
		return types.StageMetadata
	}
	return ""
}

// NewError creates a new application error
func NewError(errorType ErrorType, message string, cause error) *AppError {
	return &AppError{Type: errorType, Message: message, Cause: cause, GroupIndex: -1}
}

// NewConfigError creates a configuration error that aborts the batch
// before any job runs.
func NewConfigError(reason, message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeConfig, Reason: reason, Message: message, Cause: cause, GroupIndex: -1}
}

// NewExtractionError creates an archive extraction error
func NewExtractionError(reason, message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeExtraction, Reason: reason, Message: message, Cause: cause, GroupIndex: -1}
}

// NewUnpackError creates an e-book unpack error
func NewUnpackError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeUnpack, Message: message, Cause: cause, GroupIndex: -1}
}

// NewProcessingError creates a rasterization error for one image group
func NewProcessingError(groupIndex int, message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeProcessing, Message: message, Cause: cause, GroupIndex: groupIndex}
}

// NewAssemblyError creates a chunk concatenation error
func NewAssemblyError(reason, message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeAssembly, Reason: reason, Message: message, Cause: cause, GroupIndex: -1}
}

// NewMetadataError creates a metadata stamping error. The orchestrator
// always downgrades these to warnings.
func NewMetadataError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeMetadata, Message: message, Cause: cause, GroupIndex: -1}
}

// NewIOError creates an I/O error
func NewIOError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeIO, Message: message, Cause: cause, GroupIndex: -1}
}

// NewTimeoutError creates a timeout error for an external tool stage
func NewTimeoutError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeTimeout, Reason: ReasonTimeout, Message: message, Cause: cause, GroupIndex: -1}
}

// WrapTimeout converts a context deadline failure from an external tool
// into a timeout error; other errors pass through unchanged.
func WrapTimeout(ctx context.Context, err error, toolName string) error {
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(fmt.Sprintf("%s timed out", toolName), err)
	}
	return err
}

// AsAppError extracts an AppError from an error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
