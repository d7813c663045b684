package myerrors

import (
	"fmt"
	"net/http"
)

// Error types as they appear in the "type" field of an error response
const (
	TypeInvalidRequest       = "invalid_request"
	TypeRequestNotIdempotent = "request_not_idempotent"
	TypeProcessingError      = "processing_error"
	TypeServiceUnavailable   = "service_unavailable"
)

// Error codes as they appear in the "code" field of an error response
const (
	CodeInvalid             = "invalid"
	CodeMissing             = "missing"
	CodeNotFound            = "not_found"
	CodeTerminalState       = "terminal_state"
	CodeRequires3DS         = "requires_3ds"
	CodeIdempotencyConflict = "idempotency_conflict"
	CodeUnauthorized        = "unauthorized"
	CodePaymentDeclined     = "payment_declined"
	CodeInternal            = "internal"
	CodeUnavailable         = "unavailable"
)

type httpErrorCoder interface {
	error
	GetHTTPErrorCode() int
	GetType() string
	GetCode() string
	GetParam() string
}

type httpError struct {
	httpCode int
	errType  string
	code     string
	param    string
	err      error
}

func (e httpError) Error() string {
	return fmt.Sprintf("status: %d, code: %s, err: %s", e.httpCode, e.code, e.err.Error())
}

func (e httpError) GetHTTPErrorCode() int {
	return e.httpCode
}

func (e httpError) GetType() string {
	return e.errType
}

func (e httpError) GetCode() string {
	return e.code
}

func (e httpError) GetParam() string {
	return e.param
}

func (e httpError) Unwrap() error {
	return e.err
}

func newError(httpCode int, errType string, code string, param string, err error) *httpError {
	return &httpError{
		httpCode: httpCode,
		errType:  errType,
		code:     code,
		param:    param,
		err:      err,
	}
}

func NewInvalidInputError(err error) *httpError {
	return newError(http.StatusBadRequest, TypeInvalidRequest, CodeInvalid, "", err)
}

func NewInvalidInputErrorf(format string, args ...interface{}) *httpError {
	return NewInvalidInputError(fmt.Errorf(format, args...))
}

// NewInvalidFieldError points at the offending field with a JSONPath param
func NewInvalidFieldError(param string, err error) *httpError {
	return newError(http.StatusBadRequest, TypeInvalidRequest, CodeInvalid, param, err)
}

func NewMissingFieldError(param string) *httpError {
	return newError(http.StatusBadRequest, TypeInvalidRequest, CodeMissing, param, fmt.Errorf("missing required field %s", param))
}

func NewNotFoundError(err error) *httpError {
	return newError(http.StatusNotFound, TypeInvalidRequest, CodeNotFound, "", err)
}

// NewTerminalStateError is returned on any mutation of a completed or canceled session
func NewTerminalStateError(err error) *httpError {
	return newError(http.StatusMethodNotAllowed, TypeInvalidRequest, CodeTerminalState, "", err)
}

// NewAuthenticationRequiredError is returned when a completion attempt lacks
// the authentication_result for a session that requires a challenge
func NewAuthenticationRequiredError(err error) *httpError {
	return newError(http.StatusBadRequest, TypeInvalidRequest, CodeRequires3DS, "$.authentication_result", err)
}

func NewIdempotencyConflictError(err error) *httpError {
	return newError(http.StatusConflict, TypeRequestNotIdempotent, CodeIdempotencyConflict, "", err)
}

func NewUnauthorizedError(err error) *httpError {
	return newError(http.StatusUnauthorized, TypeInvalidRequest, CodeUnauthorized, "", err)
}

// NewProcessingError wraps an opaque downstream (PSP, tax) failure; safe to retry
func NewProcessingError(err error) *httpError {
	return newError(http.StatusBadGateway, TypeProcessingError, CodeInternal, "", err)
}

func NewInternalError(err error) *httpError {
	return newError(http.StatusInternalServerError, TypeProcessingError, CodeInternal, "", err)
}

func NewUnavailableError(err error) *httpError {
	return newError(http.StatusServiceUnavailable, TypeServiceUnavailable, CodeUnavailable, "", err)
}

func GetHTTPStatus(err error) int {
	if err != nil {
		myError, ok := err.(httpErrorCoder)
		if ok {
			return myError.GetHTTPErrorCode()
		}
	}
	return http.StatusInternalServerError
}

func GetType(err error) string {
	if err != nil {
		myError, ok := err.(httpErrorCoder)
		if ok {
			return myError.GetType()
		}
	}
	return TypeProcessingError
}

func GetCode(err error) string {
	if err != nil {
		myError, ok := err.(httpErrorCoder)
		if ok {
			return myError.GetCode()
		}
	}
	return CodeInternal
}

func GetParam(err error) string {
	if err != nil {
		myError, ok := err.(httpErrorCoder)
		if ok {
			return myError.GetParam()
		}
	}
	return ""
}
