package dto

import "net/http"

// Error codes returned by the trigger API
const (
	ErrCodeInternal      = "ERR_INTERNAL"
	ErrCodeValidation    = "ERR_VALIDATION"
	ErrCodeBadRequest    = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON   = "ERR_INVALID_JSON"
	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeConflict      = "ERR_CONFLICT"
	ErrCodeInvalidState  = "ERR_INVALID_STATE"
	ErrCodeTimeout       = "ERR_TIMEOUT"
	ErrCodeUnavailable   = "ERR_UNAVAILABLE"
	ErrCodeTooLarge      = "ERR_REQUEST_TOO_LARGE"
	ErrCodeRunInProgress = "ERR_RUN_IN_PROGRESS"
	ErrCodeRateLimited   = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:      http.StatusInternalServerError,
	ErrCodeValidation:    http.StatusBadRequest,
	ErrCodeBadRequest:    http.StatusBadRequest,
	ErrCodeInvalidJSON:   http.StatusBadRequest,
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeConflict:      http.StatusConflict,
	ErrCodeInvalidState:  http.StatusUnprocessableEntity,
	ErrCodeTimeout:       http.StatusGatewayTimeout,
	ErrCodeUnavailable:   http.StatusServiceUnavailable,
	ErrCodeTooLarge:      http.StatusRequestEntityTooLarge,
	ErrCodeRunInProgress: http.StatusConflict,
	ErrCodeRateLimited:   http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status for an error code, 500 when unknown
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// domainErrorCodes maps domain error codes onto API codes
var domainErrorCodes = map[string]string{
	"INVALID_PROCESS_LIMIT": ErrCodeValidation,
	"INVITATION_NOT_FOUND":  ErrCodeNotFound,
	"PARCEL_NOT_FOUND":      ErrCodeNotFound,
	"SHIPPER_NOT_FOUND":     ErrCodeNotFound,
	"REQUESTER_NOT_FOUND":   ErrCodeNotFound,
	"INVALID_TRANSITION":    ErrCodeInvalidState,
	"INVALID_REASON":        ErrCodeInvalidState,
	"UNKNOWN_ENTITY_KIND":   ErrCodeInvalidState,
	"INVALID_ENTITY_ID":     ErrCodeValidation,
	"INVALID_RECIPIENT":     ErrCodeValidation,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Unknown codes are returned as-is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := domainErrorCodes[code]; ok {
		return apiCode
	}
	return code
}
