package checkoutsession

import (
	"fmt"

	"github.com/sklim84/agentic-commerce-protocol/lib/myerrors"
	"github.com/sklim84/agentic-commerce-protocol/services/authgate"
)

// Request types use pointer fields where the protocol distinguishes "field
// omitted" from "field explicitly empty": an absent field leaves the current
// value untouched, a present one replaces it.

type ItemParam struct {
	UID      string `json:"id"`
	Quantity int64  `json:"quantity"`
}

type AddressParam struct {
	LineOne    string  `json:"line_one"`
	LineTwo    *string `json:"line_two,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state,omitempty"`
	Country    string  `json:"country"`
	PostalCode string  `json:"postal_code"`
}

type FulfillmentDetailsParam struct {
	Name        string        `json:"name,omitempty"`
	Email       string        `json:"email,omitempty"`
	PhoneNumber string        `json:"phone_number,omitempty"`
	Address     *AddressParam `json:"address,omitempty"`
}

type SelectedFulfillmentOptionParam struct {
	OptionUID string `json:"option_id"`
}

type CreateCheckoutSessionRequest struct {
	Currency                   string                           `json:"currency"`
	Items                      []ItemParam                      `json:"items"`
	FulfillmentDetails         *FulfillmentDetailsParam         `json:"fulfillment_details,omitempty"`
	SelectedFulfillmentOptions []SelectedFulfillmentOptionParam `json:"selected_fulfillment_options,omitempty"`
}

func (req CreateCheckoutSessionRequest) Validate() error {
	if req.Currency == "" {
		return myerrors.NewMissingFieldError("$.currency")
	}
	if !isISO4217(req.Currency) {
		return myerrors.NewInvalidFieldError("$.currency", fmt.Errorf("currency must be a 3-letter ISO-4217 code, got %q", req.Currency))
	}
	if len(req.Items) == 0 {
		return myerrors.NewMissingFieldError("$.items")
	}
	if err := validateItems(req.Items); err != nil {
		return err
	}
	return nil
}

type UpdateCheckoutSessionRequest struct {
	Items                      *[]ItemParam                      `json:"items,omitempty"`
	FulfillmentDetails         *FulfillmentDetailsParam          `json:"fulfillment_details,omitempty"`
	SelectedFulfillmentOptions *[]SelectedFulfillmentOptionParam `json:"selected_fulfillment_options,omitempty"`
}

func (req UpdateCheckoutSessionRequest) Validate() error {
	if req.Items != nil {
		if len(*req.Items) == 0 {
			return myerrors.NewInvalidFieldError("$.items", fmt.Errorf("items must not be emptied"))
		}
		if err := validateItems(*req.Items); err != nil {
			return err
		}
	}
	return nil
}

type PaymentDataParam struct {
	Token    string `json:"token"`
	Provider string `json:"provider,omitempty"`
}

type CompleteCheckoutSessionRequest struct {
	PaymentData          PaymentDataParam `json:"payment_data"`
	AuthenticationResult *authgate.Result `json:"authentication_result,omitempty"`
}

func (req CompleteCheckoutSessionRequest) Validate() error {
	if req.PaymentData.Token == "" {
		return myerrors.NewMissingFieldError("$.payment_data.token")
	}
	return nil
}

type IntentTraceParam struct {
	ReasonCode string         `json:"reason_code"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type CancelCheckoutSessionRequest struct {
	IntentTrace *IntentTraceParam `json:"intent_trace,omitempty"`
}

func (req CancelCheckoutSessionRequest) Validate() error {
	if req.IntentTrace != nil && req.IntentTrace.ReasonCode == "" {
		return myerrors.NewMissingFieldError("$.intent_trace.reason_code")
	}
	return nil
}

func validateItems(items []ItemParam) error {
	for i, item := range items {
		if item.UID == "" {
			return myerrors.NewMissingFieldError(fmt.Sprintf("$.items[%d].id", i))
		}
		if item.Quantity < 1 {
			return myerrors.NewInvalidFieldError(fmt.Sprintf("$.items[%d].quantity", i), fmt.Errorf("quantity must be at least 1, got %d", item.Quantity))
		}
	}
	return nil
}

func isISO4217(currency string) bool {
	if len(currency) != 3 {
		return false
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
