package errors

import (
	"net/http"

	"herald/internal/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// Predefined error types
var (
	// Credential-related errors
	ErrUnknownMerchant = NewBaseError(
		http.StatusNotFound,
		"UNKNOWN_MERCHANT",
		"找不到該商家的授權資料",
		"",
	)

	ErrCredentialInvalid = NewBaseError(
		http.StatusBadRequest,
		"CREDENTIAL_INVALID",
		"商家授權資料不完整",
		"",
	)

	// Provider-related errors
	ErrProviderUnavailable = NewBaseError(
		http.StatusBadGateway,
		"PROVIDER_UNAVAILABLE",
		"支付平台暫時無法回應",
		"",
	)

	ErrProviderNotSupported = NewBaseError(
		http.StatusBadRequest,
		"PROVIDER_NOT_SUPPORTED",
		"不支援的支付平台",
		"",
	)

	ErrAttributeSchemaMissing = NewBaseError(
		http.StatusFailedDependency,
		"ATTRIBUTE_SCHEMA_MISSING",
		"支付平台尚未建立自訂屬性定義",
		"",
	)

	// Key material errors
	ErrKeyConsistencyViolation = NewBaseError(
		http.StatusConflict,
		"KEY_CONSISTENCY_VIOLATION",
		"商家金鑰資料不一致，需要人工處理",
		"",
	)

	ErrKeyNotProvisioned = NewBaseError(
		http.StatusNotFound,
		"KEY_NOT_PROVISIONED",
		"找不到商家的金鑰資料",
		"",
	)

	// Publishing errors
	ErrPublishFailed = NewBaseError(
		http.StatusBadGateway,
		"PUBLISH_FAILED",
		"發布商家檔案失敗",
		"",
	)

	// OAuth-related errors
	ErrOAuthFailed = NewBaseError(
		http.StatusUnauthorized,
		"OAUTH_FAILED",
		"OAuth 認證失敗",
		"",
	)

	ErrOAuthCodeInvalid = NewBaseError(
		http.StatusBadRequest,
		"OAUTH_CODE_INVALID",
		"無效的授權碼",
		"",
	)

	ErrOAuthStateInvalid = NewBaseError(
		http.StatusBadRequest,
		"OAUTH_STATE_INVALID",
		"無效的 state 參數",
		"",
	)

	ErrTokenInvalid = NewBaseError(
		http.StatusUnauthorized,
		"TOKEN_INVALID",
		"無效或已過期的存取權杖",
		"",
	)

	// Validation-related errors
	ErrValidationFailed = NewBaseError(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"輸入資料驗證失敗",
		"",
	)

	// General errors
	ErrInternalError = NewBaseError(
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
		"系統內部錯誤",
		"",
	)

	ErrNotFound = NewBaseError(
		http.StatusNotFound,
		"NOT_FOUND",
		"找不到該資源",
		"",
	)

	ErrConflict = NewBaseError(
		http.StatusConflict,
		"CONFLICT",
		"資源衝突",
		"",
	)
)

// DatabaseExecuteError represents a database execution error, implementing the AppError interface
type DatabaseExecuteError struct {
	err     error
	details string
}

// NewDatabaseExecuteError creates a database-related error
func NewDatabaseExecuteError(err error, details string) AppError {
	return &DatabaseExecuteError{
		err:     err,
		details: details,
	}
}

// Error implements the error interface
func (e *DatabaseExecuteError) Error() string {
	return errors.Wrap(e.err, "database execution failed").Error()
}

// HTTPCode returns the HTTP status code
func (e *DatabaseExecuteError) HTTPCode() int {
	return http.StatusInternalServerError
}

// ErrorCode returns the business error code
func (e *DatabaseExecuteError) ErrorCode() string {
	return "DATABASE_EXECUTE_FAILED"
}

// Message returns the user-friendly error message
func (e *DatabaseExecuteError) Message() string {
	return "資料庫執行失敗"
}

// Details returns detailed error information
func (e *DatabaseExecuteError) Details() string {
	return e.details
}
