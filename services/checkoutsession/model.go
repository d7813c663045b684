package checkoutsession

import (
	"time"

	"github.com/sklim84/agentic-commerce-protocol/services/authgate"
)

type Status string

const (
	StatusNotReadyForPayment     Status = "not_ready_for_payment"
	StatusReadyForPayment        Status = "ready_for_payment"
	StatusInProgress             Status = "in_progress"
	StatusAuthenticationRequired Status = "authentication_required"
	StatusCompleted              Status = "completed"
	StatusCanceled               Status = "canceled"
)

// IsTerminal reports whether no further mutation is allowed
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// CheckoutSession is the aggregate root. Totals and status are derived on
// every mutation, never set directly by a client.
type CheckoutSession struct {
	UID                        string                      `json:"id"`
	Status                     Status                      `json:"status"`
	Currency                   string                      `json:"currency"`
	LineItems                  []LineItem                  `json:"line_items"`
	FulfillmentDetails         *FulfillmentDetails         `json:"fulfillment_details,omitempty"`
	FulfillmentOptions         []FulfillmentOption         `json:"fulfillment_options"`
	SelectedFulfillmentOptions []SelectedFulfillmentOption `json:"selected_fulfillment_options"`
	Totals                     []Total                     `json:"totals"`
	AuthenticationMetadata     *authgate.Metadata          `json:"authentication_metadata,omitempty"`
	Order                      *Order                      `json:"order,omitempty"`
	Messages                   []Message                   `json:"messages"`
	Links                      []Link                      `json:"links"`
	CreatedAt                  time.Time                   `json:"created_at"`
	LastModified               *time.Time                  `json:"last_modified,omitempty"`
}

// deriveStatus decides between the two pre-payment states: the session is
// ready once a definitive total can be computed, which needs items, a
// destination and a fulfillment selection.
func (s CheckoutSession) deriveStatus() Status {
	if len(s.LineItems) == 0 {
		return StatusNotReadyForPayment
	}
	if s.FulfillmentDetails == nil || s.FulfillmentDetails.Address == nil {
		return StatusNotReadyForPayment
	}
	if len(s.SelectedFulfillmentOptions) == 0 {
		return StatusNotReadyForPayment
	}
	return StatusReadyForPayment
}

func (s CheckoutSession) totalAmount() int64 {
	for _, total := range s.Totals {
		if total.Type == "total" {
			return total.Amount
		}
	}
	return 0
}

func (s CheckoutSession) fulfillmentAmount() int64 {
	var sum int64
	for _, selected := range s.SelectedFulfillmentOptions {
		for _, option := range s.FulfillmentOptions {
			if option.UID == selected.OptionUID {
				sum += option.Total
			}
		}
	}
	return sum
}

// Item is the reference to a catalog entry
type Item struct {
	UID      string `json:"id"`
	Quantity int64  `json:"quantity"`
}

// LineItem is one resolved catalog item. Total = Subtotal + Tax - Discount by
// construction. The unit price and tariff are kept for recomputation but are
// not part of the wire format.
type LineItem struct {
	UID                string `json:"id"`
	Item               Item   `json:"item"`
	Description        string `json:"description,omitempty"`
	BaseAmount         int64  `json:"base_amount"`
	Discount           int64  `json:"discount"`
	Subtotal           int64  `json:"subtotal"`
	Tax                int64  `json:"tax"`
	Total              int64  `json:"total"`
	UnitBaseAmount     int64  `json:"-"`
	TaxRateBasisPoints int64  `json:"-"`
}

type Total struct {
	Type        string `json:"type"`
	DisplayText string `json:"display_text,omitempty"`
	Amount      int64  `json:"amount"`
}

type FulfillmentDetails struct {
	Name        string   `json:"name,omitempty"`
	Email       string   `json:"email,omitempty"`
	PhoneNumber string   `json:"phone_number,omitempty"`
	Address     *Address `json:"address,omitempty"`
}

// Address distinguishes an omitted line_two from an explicitly empty one
type Address struct {
	LineOne    string  `json:"line_one"`
	LineTwo    *string `json:"line_two,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state,omitempty"`
	Country    string  `json:"country"`
	PostalCode string  `json:"postal_code"`
}

type FulfillmentOption struct {
	UID      string `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Carrier  string `json:"carrier,omitempty"`
	Subtotal int64  `json:"subtotal"`
	Tax      int64  `json:"tax"`
	Total    int64  `json:"total"`
}

type SelectedFulfillmentOption struct {
	OptionUID string `json:"option_id"`
}

const (
	MessageTypeInfo  = "info"
	MessageTypeError = "error"
)

type Message struct {
	Type        string `json:"type"`
	Code        string `json:"code,omitempty"`
	Param       string `json:"param,omitempty"`
	ContentType string `json:"content_type"`
	Content     string `json:"content"`
}

type Link struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Order is created exactly once, on the transition into completed, and is
// immutable from then on.
type Order struct {
	UID                string    `json:"id"`
	CheckoutSessionUID string    `json:"checkout_session_id"`
	PermalinkURL       string    `json:"permalink_url"`
	CreatedAt          time.Time `json:"created_at"`
}

// Known intent-trace reason codes. Unrecognized codes are coerced to "other"
// so that newer clients keep working against this server.
const (
	ReasonCodePriceTooHigh    = "price_too_high"
	ReasonCodeShippingCost    = "shipping_cost"
	ReasonCodeItemUnavailable = "item_unavailable"
	ReasonCodeChangedMind     = "changed_mind"
	ReasonCodeOther           = "other"
)

// IntentTraceRecord lives in a write-only side channel: it is persisted on
// cancellation and never surfaced through session retrieval.
type IntentTraceRecord struct {
	UID          string
	SessionUID   string
	ReasonCode   string
	MetadataJSON string `datastore:",noindex"`
	CreatedAt    time.Time
}

func coerceReasonCode(raw string) string {
	switch raw {
	case ReasonCodePriceTooHigh, ReasonCodeShippingCost, ReasonCodeItemUnavailable, ReasonCodeChangedMind, ReasonCodeOther:
		return raw
	default:
		return ReasonCodeOther
	}
}
