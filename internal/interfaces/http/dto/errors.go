package dto

import "net/http"

// API error codes. Format: ERR_<CATEGORY>_<DESCRIPTION>
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"

	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeBadRequest         = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput       = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON        = "ERR_INVALID_JSON"
	ErrCodeRequestTooLarge    = "ERR_REQUEST_TOO_LARGE"

	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"

	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"

	ErrCodeInvalidState = "ERR_INVALID_STATE"

	ErrCodeUpstreamFailure = "ERR_UPSTREAM_FAILURE"
)

// Ledger error codes
const (
	ErrCodeParentNotFound          = "ERR_PARENT_NOT_FOUND"
	ErrCodeReservationNotFound     = "ERR_RESERVATION_NOT_FOUND"
	ErrCodeQuantityExceedsBalance  = "ERR_QUANTITY_EXCEEDS_BALANCE"
	ErrCodeStackAllocationMismatch = "ERR_STACK_ALLOCATION_MISMATCH"
	ErrCodeInvalidTransition       = "ERR_INVALID_TRANSITION"
	ErrCodeBalanceOverdrawn        = "ERR_BALANCE_OVERDRAWN"
	ErrCodeParentNotOfferable      = "ERR_PARENT_NOT_OFFERABLE"
	ErrCodeInvalidQuantity         = "ERR_INVALID_QUANTITY"
	ErrCodeMissingAttachment       = "ERR_MISSING_ATTACHMENT"
	ErrCodeMissingRemark           = "ERR_MISSING_REMARK"
	ErrCodeInvalidStackAllocation  = "ERR_INVALID_STACK_ALLOCATION"
	ErrCodeInvalidParentKind       = "ERR_INVALID_PARENT_KIND"
	ErrCodeInvalidKind             = "ERR_INVALID_KIND"
	ErrCodeInvalidStatus           = "ERR_INVALID_STATUS"
)

// ErrorCodeHTTPStatus maps API error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeInvalidInput:       http.StatusBadRequest,
	ErrCodeInvalidJSON:        http.StatusBadRequest,
	ErrCodeRequestTooLarge:    http.StatusRequestEntityTooLarge,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeParentNotFound:      http.StatusNotFound,
	ErrCodeReservationNotFound: http.StatusNotFound,

	ErrCodeAlreadyExists:           http.StatusConflict,
	ErrCodeConflict:                http.StatusConflict,
	ErrCodeConcurrencyConflict:     http.StatusConflict,
	ErrCodeQuantityExceedsBalance:  http.StatusConflict,
	ErrCodeStackAllocationMismatch: http.StatusConflict,
	ErrCodeInvalidTransition:       http.StatusConflict,
	ErrCodeBalanceOverdrawn:        http.StatusConflict,
	ErrCodeParentNotOfferable:      http.StatusConflict,

	ErrCodeInvalidQuantity:        http.StatusBadRequest,
	ErrCodeMissingAttachment:      http.StatusBadRequest,
	ErrCodeMissingRemark:          http.StatusBadRequest,
	ErrCodeInvalidStackAllocation: http.StatusBadRequest,
	ErrCodeInvalidParentKind:      http.StatusBadRequest,
	ErrCodeInvalidKind:            http.StatusBadRequest,
	ErrCodeInvalidStatus:          http.StatusBadRequest,

	ErrCodeInvalidState: http.StatusUnprocessableEntity,

	ErrCodeUpstreamFailure: http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status for an API error code, 500 when unknown
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// domainCodeMapping maps domain error codes to API error codes.
// UNAUTHORIZED from the domain means an authenticated actor lacks authority.
var domainCodeMapping = map[string]string{
	"NOT_FOUND":                 ErrCodeNotFound,
	"ALREADY_EXISTS":            ErrCodeAlreadyExists,
	"INVALID_INPUT":             ErrCodeInvalidInput,
	"INVALID_STATE":             ErrCodeInvalidState,
	"UNAUTHORIZED":              ErrCodeForbidden,
	"FORBIDDEN":                 ErrCodeForbidden,
	"CONCURRENCY_CONFLICT":      ErrCodeConcurrencyConflict,
	"UPSTREAM_FAILURE":          ErrCodeUpstreamFailure,
	"VALIDATION_ERROR":          ErrCodeValidation,
	"BAD_REQUEST":               ErrCodeBadRequest,
	"INTERNAL_ERROR":            ErrCodeInternal,
	"PARENT_NOT_FOUND":          ErrCodeParentNotFound,
	"RESERVATION_NOT_FOUND":     ErrCodeReservationNotFound,
	"QUANTITY_EXCEEDS_BALANCE":  ErrCodeQuantityExceedsBalance,
	"STACK_ALLOCATION_MISMATCH": ErrCodeStackAllocationMismatch,
	"INVALID_TRANSITION":        ErrCodeInvalidTransition,
	"BALANCE_OVERDRAWN":         ErrCodeBalanceOverdrawn,
	"PARENT_NOT_OFFERABLE":      ErrCodeParentNotOfferable,
	"INVALID_QUANTITY":          ErrCodeInvalidQuantity,
	"MISSING_ATTACHMENT":        ErrCodeMissingAttachment,
	"MISSING_REMARK":            ErrCodeMissingRemark,
	"INVALID_STACK_ALLOCATION":  ErrCodeInvalidStackAllocation,
	"INVALID_PARENT_KIND":       ErrCodeInvalidParentKind,
	"INVALID_KIND":              ErrCodeInvalidKind,
	"INVALID_STATUS":            ErrCodeInvalidStatus,
}

// NormalizeErrorCode converts a domain error code to its API code.
// Codes already in API form, or unknown, are returned as-is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := domainCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
