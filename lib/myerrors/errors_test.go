package myerrors

import (
	"fmt"
	"testing"
)

func TestErrors(t *testing.T) {
	myErr := fmt.Errorf("my error")

	testCases := []struct {
		name       string
		in         error
		httpStatus int
		errType    string
		code       string
		param      string
	}{
		{
			name:       "No http error",
			in:         myErr,
			httpStatus: 500,
			errType:    "processing_error",
			code:       "internal",
		},
		{
			name:       "Invalid input error",
			in:         NewInvalidInputError(myErr),
			httpStatus: 400,
			errType:    "invalid_request",
			code:       "invalid",
		},
		{
			name:       "Invalid field error",
			in:         NewInvalidFieldError("$.line_items[0].item.quantity", myErr),
			httpStatus: 400,
			errType:    "invalid_request",
			code:       "invalid",
			param:      "$.line_items[0].item.quantity",
		},
		{
			name:       "Missing field error",
			in:         NewMissingFieldError("$.currency"),
			httpStatus: 400,
			errType:    "invalid_request",
			code:       "missing",
			param:      "$.currency",
		},
		{
			name:       "Not found error",
			in:         NewNotFoundError(myErr),
			httpStatus: 404,
			errType:    "invalid_request",
			code:       "not_found",
		},
		{
			name:       "Terminal state error",
			in:         NewTerminalStateError(myErr),
			httpStatus: 405,
			errType:    "invalid_request",
			code:       "terminal_state",
		},
		{
			name:       "Authentication required error",
			in:         NewAuthenticationRequiredError(myErr),
			httpStatus: 400,
			errType:    "invalid_request",
			code:       "requires_3ds",
			param:      "$.authentication_result",
		},
		{
			name:       "Idempotency conflict error",
			in:         NewIdempotencyConflictError(myErr),
			httpStatus: 409,
			errType:    "request_not_idempotent",
			code:       "idempotency_conflict",
		},
		{
			name:       "Unauthorized error",
			in:         NewUnauthorizedError(myErr),
			httpStatus: 401,
			errType:    "invalid_request",
			code:       "unauthorized",
		},
		{
			name:       "Processing error",
			in:         NewProcessingError(myErr),
			httpStatus: 502,
			errType:    "processing_error",
			code:       "internal",
		},
		{
			name:       "Internal error",
			in:         NewInternalError(myErr),
			httpStatus: 500,
			errType:    "processing_error",
			code:       "internal",
		},
		{
			name:       "Not available error",
			in:         NewUnavailableError(myErr),
			httpStatus: 503,
			errType:    "service_unavailable",
			code:       "unavailable",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := GetHTTPStatus(tc.in); got != tc.httpStatus {
				t.Errorf("HttpStatus: got %v, want %v", got, tc.httpStatus)
			}
			if got := GetType(tc.in); got != tc.errType {
				t.Errorf("Type: got %v, want %v", got, tc.errType)
			}
			if got := GetCode(tc.in); got != tc.code {
				t.Errorf("Code: got %v, want %v", got, tc.code)
			}
			if got := GetParam(tc.in); got != tc.param {
				t.Errorf("Param: got %v, want %v", got, tc.param)
			}
		})
	}
}
