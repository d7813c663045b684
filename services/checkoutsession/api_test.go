package checkoutsession

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sklim84/agentic-commerce-protocol/lib/myerrors"
)

func TestRequestValidation(t *testing.T) {
	tests := []struct {
		name          string
		request       interface{ Validate() error }
		expectedParam string
	}{
		{
			name:          "Create without currency",
			request:       CreateCheckoutSessionRequest{Items: []ItemParam{{UID: "prod_tennis_balls", Quantity: 1}}},
			expectedParam: "$.currency",
		},
		{
			name:          "Create with lowercase currency",
			request:       CreateCheckoutSessionRequest{Currency: "eur", Items: []ItemParam{{UID: "prod_tennis_balls", Quantity: 1}}},
			expectedParam: "$.currency",
		},
		{
			name:          "Create without items",
			request:       CreateCheckoutSessionRequest{Currency: "EUR"},
			expectedParam: "$.items",
		},
		{
			name:          "Create with zero quantity",
			request:       CreateCheckoutSessionRequest{Currency: "EUR", Items: []ItemParam{{UID: "prod_tennis_balls", Quantity: 0}}},
			expectedParam: "$.items[0].quantity",
		},
		{
			name:    "Valid create",
			request: CreateCheckoutSessionRequest{Currency: "EUR", Items: []ItemParam{{UID: "prod_tennis_balls", Quantity: 1}}},
		},
		{
			name:          "Update emptying the items",
			request:       UpdateCheckoutSessionRequest{Items: &[]ItemParam{}},
			expectedParam: "$.items",
		},
		{
			name:    "Update without items leaves them untouched",
			request: UpdateCheckoutSessionRequest{},
		},
		{
			name:          "Complete without payment token",
			request:       CompleteCheckoutSessionRequest{},
			expectedParam: "$.payment_data.token",
		},
		{
			name:          "Cancel with trace without reason code",
			request:       CancelCheckoutSessionRequest{IntentTrace: &IntentTraceParam{}},
			expectedParam: "$.intent_trace.reason_code",
		},
		{
			name:    "Cancel without trace",
			request: CancelCheckoutSessionRequest{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.request.Validate()
			if tc.expectedParam == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Equal(t, 400, myerrors.GetHTTPStatus(err))
				assert.Equal(t, tc.expectedParam, myerrors.GetParam(err))
			}
		})
	}
}

func TestReasonCodeCoercion(t *testing.T) {
	assert.Equal(t, "shipping_cost", coerceReasonCode("shipping_cost"))
	assert.Equal(t, "other", coerceReasonCode("other"))
	assert.Equal(t, "other", coerceReasonCode("weather_too_nice"))
	assert.Equal(t, "other", coerceReasonCode(""))
}
