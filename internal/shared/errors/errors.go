package errors

import "errors"

// Domain errors
var (
	// Session gate errors
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrAccountLocked           = errors.New("account locked")
	ErrMissingCredentials      = errors.New("username and password are required")
	ErrNoCredentialsConfigured = errors.New("no gate credentials configured")
	ErrInvalidToken            = errors.New("invalid session token")
	ErrUnauthorized            = errors.New("unauthorized")

	// Scan errors
	ErrInvalidTarget   = errors.New("invalid target")
	ErrEmptyTarget     = errors.New("target cannot be empty")
	ErrUnknownTool     = errors.New("unknown tool")
	ErrScanInProgress  = errors.New("scan already in progress")
	ErrScanCancelled   = errors.New("scan cancelled")
	ErrReportNotFound  = errors.New("report not found")
	ErrInvalidSeverity = errors.New("invalid severity")
	ErrEmptyCatalog    = errors.New("catalog has no vectors")

	// Blog errors
	ErrPostNotFound  = errors.New("post not found")
	ErrInvalidPost   = errors.New("invalid post")
	ErrMissingPostID = errors.New("post ID is required")

	// Repository errors
	ErrRepositoryOperation   = errors.New("repository operation failed")
	ErrInvalidData           = errors.New("invalid data")
	ErrSerializationFailed   = errors.New("serialization failed")
	ErrDeserializationFailed = errors.New("deserialization failed")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidInput    = errors.New("invalid input")
	ErrMissingRequired = errors.New("missing required field")
)
