// Package errors provides custom error types for the finpro engine.
// All service-layer errors should use AppError so callers can branch on
// stable error codes instead of matching message strings.
package errors

import "fmt"

// AppError represents a structured application error with a stable error
// code, human-readable message, and optional internal cause.
type AppError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Internal error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is reports whether target carries the same code, so sentinel values can be
// matched with errors.Is even after Wrap or WithMessage.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// Wrap creates a new AppError with the same code/message but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:     sentinel.Code,
		Message:  sentinel.Message,
		Internal: internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:     sentinel.Code,
		Message:  message,
		Internal: sentinel.Internal,
	}
}

// WithMessagef creates a new AppError with a formatted message.
func WithMessagef(sentinel *AppError, format string, args ...any) *AppError {
	return WithMessage(sentinel, fmt.Sprintf(format, args...))
}

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input"}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found"}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred"}
)

// Validation errors. Constraint violations, reserved-identifier collisions and
// mode-switch precondition failures all surface synchronously and are never retried.
var (
	ErrValidation           = &AppError{Code: "VALIDATION_ERROR", Message: "Validation failed"}
	ErrReservedIdentifier   = &AppError{Code: "RESERVED_IDENTIFIER", Message: "Identifier is reserved by a system formula"}
	ErrSystemRecord         = &AppError{Code: "SYSTEM_RECORD", Message: "System records cannot be modified or deleted"}
	ErrModeSwitchBlocked    = &AppError{Code: "MODE_SWITCH_BLOCKED", Message: "Account has holdings; clear them or pass force"}
	ErrInvalidAccountMode   = &AppError{Code: "INVALID_ACCOUNT_MODE", Message: "Unknown account mode"}
	ErrHoldingNotAllowed    = &AppError{Code: "HOLDING_NOT_ALLOWED", Message: "Managed accounts cannot hold raw holdings"}
	ErrConstraintNotAllowed = &AppError{Code: "CONSTRAINT_NOT_ALLOWED", Message: "Constraint is not supported by this data type"}
)

// External provider errors. ProviderUnavailable and RateLimited are transient
// and safe to retry later; InvalidResponse signals schema drift and must not
// trigger a retry storm; EmptyResult is a successful call with no data.
var (
	ErrProviderUnavailable = &AppError{Code: "PROVIDER_UNAVAILABLE", Message: "Market data provider is unavailable"}
	ErrRateLimited         = &AppError{Code: "RATE_LIMITED", Message: "Market data provider rate limit exceeded"}
	ErrInvalidResponse     = &AppError{Code: "INVALID_RESPONSE", Message: "Market data provider returned a malformed payload"}
	ErrEmptyResult         = &AppError{Code: "EMPTY_RESULT", Message: "Market data provider returned no data"}
)

// Formula errors. Fatal to a single column resolution, never to the batch.
var (
	ErrFormulaEvaluation = &AppError{Code: "FORMULA_EVALUATION", Message: "Formula evaluation failed"}
	ErrDependencyCycle   = &AppError{Code: "DEPENDENCY_CYCLE", Message: "Formula dependencies form a cycle"}
	ErrFormulaNotFound   = &AppError{Code: "FORMULA_NOT_FOUND", Message: "Formula not found"}
	ErrDuplicateFormula  = &AppError{Code: "DUPLICATE_FORMULA", Message: "A formula with this key already exists"}
)

// Reference data errors.
var (
	ErrAssetNotFound    = &AppError{Code: "ASSET_NOT_FOUND", Message: "Asset not found"}
	ErrUnknownSymbol    = &AppError{Code: "UNKNOWN_SYMBOL", Message: "Symbol not present in the active snapshot"}
	ErrNoActiveSnapshot = &AppError{Code: "NO_ACTIVE_SNAPSHOT", Message: "No active snapshot for this asset class"}
	ErrDuplicateAsset   = &AppError{Code: "DUPLICATE_ASSET", Message: "An asset with this symbol already exists"}
)

// Account / holding errors.
var (
	ErrAccountNotFound   = &AppError{Code: "ACCOUNT_NOT_FOUND", Message: "Account not found"}
	ErrHoldingNotFound   = &AppError{Code: "HOLDING_NOT_FOUND", Message: "Holding not found"}
	ErrSchemaNotFound    = &AppError{Code: "SCHEMA_NOT_FOUND", Message: "No schema configured for this account type and mode"}
	ErrColumnNotFound    = &AppError{Code: "COLUMN_NOT_FOUND", Message: "Schema column not found"}
	ErrColumnNotEditable = &AppError{Code: "COLUMN_NOT_EDITABLE", Message: "This column does not accept user overrides"}
)

// Allocation / analytics errors.
var (
	ErrScenarioNotFound = &AppError{Code: "SCENARIO_NOT_FOUND", Message: "Allocation scenario not found"}
	ErrAnalyticNotFound = &AppError{Code: "ANALYTIC_NOT_FOUND", Message: "Analytic not found"}
)
