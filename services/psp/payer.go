package psp

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"

	"github.com/sklim84/agentic-commerce-protocol/lib/myerrors"
)

type AuthorizationStatus string

const (
	AuthorizationStatusAuthorized AuthorizationStatus = "authorized"
	AuthorizationStatusDeclined   AuthorizationStatus = "declined"
)

type AuthorizationRequest struct {
	SessionUID    string
	AmountInCents int64
	Currency      string
	PaymentToken  string
}

type AuthorizationResult struct {
	PSPReference  string
	Status        AuthorizationStatus
	DeclineReason string
}

//go:generate mockgen -source=payer.go -package psp -destination payer_mock.go Payer
type Payer interface {
	UseAPIKey(key string)
	Authorize(ctx context.Context, req AuthorizationRequest) (AuthorizationResult, error)
}

type stripePayer struct{}

func NewPayer() Payer {
	return &stripePayer{}
}

func (p *stripePayer) UseAPIKey(apiKey string) {
	stripe.Key = apiKey
}

// Authorize confirms the delegated payment token as a payment-intent. A
// decline is a regular result, not an error; errors are opaque downstream
// failures that are safe to retry.
func (p *stripePayer) Authorize(ctx context.Context, req AuthorizationRequest) (AuthorizationResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.AmountInCents),
		Currency:      stripe.String(strings.ToLower(req.Currency)),
		PaymentMethod: stripe.String(req.PaymentToken),
		Confirm:       stripe.Bool(true),
	}
	params.Metadata = map[string]string{
		"checkout_session_id": req.SessionUID,
	}
	params.IdempotencyKey = stripe.String(req.SessionUID)

	intent, err := paymentintent.New(params)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok && stripeErr.Code == stripe.ErrorCodeCardDeclined {
			return AuthorizationResult{
				Status:        AuthorizationStatusDeclined,
				DeclineReason: string(stripeErr.Code),
			}, nil
		}
		return AuthorizationResult{}, myerrors.NewProcessingError(fmt.Errorf("error authorizing payment for session %s: %s", req.SessionUID, err))
	}

	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusRequiresCapture:
		return AuthorizationResult{
			PSPReference: intent.ID,
			Status:       AuthorizationStatusAuthorized,
		}, nil
	default:
		return AuthorizationResult{
			PSPReference:  intent.ID,
			Status:        AuthorizationStatusDeclined,
			DeclineReason: string(intent.Status),
		}, nil
	}
}
