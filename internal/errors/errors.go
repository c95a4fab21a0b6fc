package errors

import (
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   appErr,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes.
//
// CONFIG_INVALID covers caller configuration that can never work: unsupported
// social choice functions, audit types, or assertion kinds, assorters with no
// scoring capability, style-based sampling without a CVR list. PRECONDITION
// covers inconsistent state handed to a computation: nonpositive margins,
// unequal sample lengths, comparison cards missing the contest under style
// sampling. Neither is retried.
const (
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodePrecondition    = "PRECONDITION_FAILED"
	CodeParseError      = "PARSE_ERROR"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeInternalError   = "INTERNAL_ERROR"
	CodeExternalService = "EXTERNAL_SERVICE_ERROR"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func Precondition(message string) *AppError {
	return New(CodePrecondition, message)
}

func ParseError(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeParseError,
		Message: message,
		Cause:   cause,
	}
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

// AssorterInvalid flags an assorter constructed without a usable scoring
// capability or with a nonpositive bound.
func AssorterInvalid(message string) *AppError {
	return New(CodeConfigInvalid, fmt.Sprintf("assorter: %s", message))
}

// UnsupportedChoiceFunction flags a social choice function the core cannot audit.
func UnsupportedChoiceFunction(scf string) *AppError {
	return New(CodeConfigInvalid, fmt.Sprintf("social choice function %s is not supported", scf))
}

// UnsupportedAuditType flags an audit type the core cannot run.
func UnsupportedAuditType(at string) *AppError {
	return New(CodeConfigInvalid, fmt.Sprintf("audit type %s is not supported", at))
}

// UnsupportedAssertionType flags an imported assertion kind the core cannot build.
func UnsupportedAssertionType(at string) *AppError {
	return New(CodeConfigInvalid, fmt.Sprintf("assertion type %s is not supported", at))
}
