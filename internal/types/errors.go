package types

import "fmt"

// ErrorCode identifies a validation or extraction failure class
type ErrorCode string

const (
	ErrInvalidFileType             ErrorCode = "invalid_file_type"
	ErrFileTooLarge                ErrorCode = "file_too_large"
	ErrXMLParse                    ErrorCode = "xml_parse_error"
	ErrNotEPCIS                    ErrorCode = "not_epcis"
	ErrVersionMismatch             ErrorCode = "version_mismatch"
	ErrTransactionStatementMissing ErrorCode = "transaction_statement_missing"
	ErrZipNotSupported             ErrorCode = "zip_not_supported"
)

// ValidationError is a typed failure produced by the validation pipeline or
// the extractor. Structural faults only; field-level problems degrade to
// sentinels instead of erroring.
type ValidationError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error, if any
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError with the given code and message
func NewValidationError(code ErrorCode, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

// WrapValidationError creates a ValidationError wrapping an underlying cause
func WrapValidationError(code ErrorCode, message string, err error) *ValidationError {
	return &ValidationError{Code: code, Message: message, Err: err}
}

// CodeOf extracts the ErrorCode from an error, or empty string if the error
// is not a ValidationError
func CodeOf(err error) ErrorCode {
	if ve, ok := err.(*ValidationError); ok {
		return ve.Code
	}
	return ""
}
