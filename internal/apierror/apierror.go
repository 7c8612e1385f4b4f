package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

type ErrorCode string

const (
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrPrecondition   ErrorCode = "PRECONDITION_FAILED"
	ErrCorrelation    ErrorCode = "CORRELATION_FAILED"
	ErrProvider       ErrorCode = "PROVIDER_ERROR"
	ErrInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"
)

type APIError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code ErrorCode, message string, details interface{}) APIError {
	logrus.Error(details)
	return APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// IsCode reports whether err is an APIError carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// IsPrecondition reports whether err is a fatal precondition failure
// (mixed-host batch, missing host, missing provider account, batch not
// found). These reject the whole operation without partial mutation.
func IsPrecondition(err error) bool {
	return IsCode(err, ErrPrecondition)
}

// IsCorrelation reports whether err is a per-expense correlation failure
// (outcome batch id does not match the expense's stored batch id). These are
// recovered at per-expense granularity.
func IsCorrelation(err error) bool {
	return IsCode(err, ErrCorrelation)
}

func MapErrorToHTTPStatus(err error) int {
	if apiErr, ok := err.(APIError); ok {
		switch apiErr.Code {
		case ErrNotFound:
			return http.StatusNotFound
		case ErrPrecondition:
			return http.StatusPreconditionFailed
		case ErrCorrelation:
			return http.StatusConflict
		case ErrProvider:
			return http.StatusBadGateway
		case ErrInvalidInput:
			return http.StatusBadRequest
		case ErrInternalServer:
			return http.StatusInternalServerError
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}
