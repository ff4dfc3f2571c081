package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes carried by AppError.
const (
	CodeEngineUnavailable = "ENGINE_UNAVAILABLE"
	CodeEngineFailed      = "ENGINE_FAILED"
	CodeSourceReadFailed  = "SOURCE_READ_FAILED"
	CodeConfig            = "CONFIG_ERROR"
	CodeNotFound          = "NOT_FOUND"
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")

	// ErrEngineUnavailable: the handwriting engine is not installed. Degrades to fast-only.
	ErrEngineUnavailable = errors.New("recognition engine unavailable")
	// ErrEngineInvocationFailed: process/IO error or malformed output from an engine.
	ErrEngineInvocationFailed = errors.New("recognition engine invocation failed")
	// ErrSourceReadFailed: the document itself cannot be read. Fatal for the request.
	ErrSourceReadFailed = errors.New("source document unreadable")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// EngineFailed wraps an engine error so that errors.Is(err, ErrEngineInvocationFailed) holds.
func EngineFailed(engine string, cause error) *AppError {
	return NewAppError(CodeEngineFailed, engine, fmt.Errorf("%w: %w", ErrEngineInvocationFailed, cause))
}

// SourceReadFailed wraps an I/O error on the source document.
func SourceReadFailed(path string, cause error) *AppError {
	return NewAppError(CodeSourceReadFailed, path, fmt.Errorf("%w: %w", ErrSourceReadFailed, cause))
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

func InternalErrorf(format string, args ...interface{}) error {
	return InternalError(fmt.Sprintf(format, args...))
}

// ToGRPC maps application errors to gRPC status errors.
func ToGRPC(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return NotFoundError(err.Error())
	case errors.Is(err, ErrInvalidInput):
		return InvalidArgumentError(err.Error())
	default:
		return InternalError(err.Error())
	}
}
