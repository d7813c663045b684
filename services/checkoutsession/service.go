package checkoutsession

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sklim84/agentic-commerce-protocol/lib/myerrors"
	"github.com/sklim84/agentic-commerce-protocol/lib/mylog"
	"github.com/sklim84/agentic-commerce-protocol/lib/mypublisher"
	"github.com/sklim84/agentic-commerce-protocol/lib/mystore"
	"github.com/sklim84/agentic-commerce-protocol/lib/mytime"
	"github.com/sklim84/agentic-commerce-protocol/lib/myuuid"
	"github.com/sklim84/agentic-commerce-protocol/services/authgate"
	"github.com/sklim84/agentic-commerce-protocol/services/catalog"
	"github.com/sklim84/agentic-commerce-protocol/services/checkoutsession/sessionevents"
	"github.com/sklim84/agentic-commerce-protocol/services/pricing"
	"github.com/sklim84/agentic-commerce-protocol/services/psp"
)

type service struct {
	baseURL      string
	sessionStore mystore.Store[CheckoutSession]
	traceStore   mystore.Store[IntentTraceRecord]
	productStore catalog.Catalog
	gate         *authgate.Gate
	payer        psp.Payer
	publisher    mypublisher.Publisher
	nower        mytime.Nower
	uuider       myuuid.UUIDer
	logger       mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(baseURL string, sessionStore mystore.Store[CheckoutSession], traceStore mystore.Store[IntentTraceRecord], productStore catalog.Catalog, gate *authgate.Gate, payer psp.Payer, publisher mypublisher.Publisher, nower mytime.Nower, uuider myuuid.UUIDer, logger mylog.Logger) *service {
	return &service{
		baseURL:      baseURL,
		sessionStore: sessionStore,
		traceStore:   traceStore,
		productStore: productStore,
		gate:         gate,
		payer:        payer,
		publisher:    publisher,
		nower:        nower,
		uuider:       uuider,
		logger:       logger,
	}
}

func (s *service) createCheckoutSession(c context.Context, req CreateCheckoutSessionRequest) (CheckoutSession, error) {
	if err := req.Validate(); err != nil {
		return CheckoutSession{}, err
	}

	now := s.nower.Now()
	session := CheckoutSession{
		UID:       "cs_" + s.uuider.Create(),
		Currency:  req.Currency,
		Messages:  []Message{},
		Links:     []Link{},
		CreatedAt: now,
	}

	lineItems, err := s.resolveLineItems(req.Items)
	if err != nil {
		return CheckoutSession{}, err
	}
	session.LineItems = lineItems

	if req.FulfillmentDetails != nil {
		session.FulfillmentDetails = fulfillmentDetailsFromParam(req.FulfillmentDetails)
	}
	session.FulfillmentOptions = fulfillmentOptionsFor(session.FulfillmentDetails)

	if err := applySelectedOptions(&session, selectedOptionsFromParams(req.SelectedFulfillmentOptions)); err != nil {
		return CheckoutSession{}, err
	}

	if err := s.recompute(&session); err != nil {
		return CheckoutSession{}, err
	}
	session.Status = session.deriveStatus()

	err = s.sessionStore.RunInTransaction(c, func(c context.Context) error {
		return s.sessionStore.Put(c, session.UID, session)
	})
	if err != nil {
		return CheckoutSession{}, myerrors.NewInternalError(fmt.Errorf("error storing checkout session %s: %s", session.UID, err))
	}

	s.logger.Log(c, session.UID, mylog.SeverityInfo, "Created checkout session %s in status %s", session.UID, session.Status)

	return session, nil
}

func (s *service) retrieveCheckoutSession(c context.Context, sessionUID string) (CheckoutSession, error) {
	session, found, err := s.sessionStore.Get(c, sessionUID)
	if err != nil {
		return CheckoutSession{}, myerrors.NewInternalError(fmt.Errorf("error fetching checkout session %s: %s", sessionUID, err))
	}
	if !found {
		return CheckoutSession{}, myerrors.NewNotFoundError(fmt.Errorf("checkout session %s not found", sessionUID))
	}
	return session, nil
}

func (s *service) updateCheckoutSession(c context.Context, sessionUID string, req UpdateCheckoutSessionRequest) (CheckoutSession, error) {
	if err := req.Validate(); err != nil {
		return CheckoutSession{}, err
	}

	var session CheckoutSession
	err := s.sessionStore.RunInTransaction(c, func(c context.Context) error {
		var err error
		session, err = s.retrieveCheckoutSession(c, sessionUID)
		if err != nil {
			return err
		}
		if session.Status.IsTerminal() {
			return myerrors.NewTerminalStateError(fmt.Errorf("checkout session %s is %s and can no longer change", sessionUID, session.Status))
		}
		if session.Status == StatusAuthenticationRequired {
			return myerrors.NewInvalidInputErrorf("checkout session %s awaits authentication and cannot be updated", sessionUID)
		}

		if req.Items != nil {
			lineItems, err := s.resolveLineItems(*req.Items)
			if err != nil {
				return err
			}
			session.LineItems = lineItems
		}
		if req.FulfillmentDetails != nil {
			session.FulfillmentDetails = fulfillmentDetailsFromParam(req.FulfillmentDetails)
		}

		// a changed destination can change the available options, which can
		// orphan an earlier selection
		session.FulfillmentOptions = fulfillmentOptionsFor(session.FulfillmentDetails)
		selected := session.SelectedFulfillmentOptions
		if req.SelectedFulfillmentOptions != nil {
			selected = selectedOptionsFromParams(*req.SelectedFulfillmentOptions)
		}
		if err := applySelectedOptions(&session, selected); err != nil {
			return err
		}

		if err := s.recompute(&session); err != nil {
			return err
		}
		session.Status = session.deriveStatus()
		now := s.nower.Now()
		session.LastModified = &now

		return s.sessionStore.Put(c, session.UID, session)
	})
	if err != nil {
		return CheckoutSession{}, err
	}

	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Updated checkout session %s into status %s", sessionUID, session.Status)

	return session, nil
}

// completeCheckoutSession drives the payment leg of the state machine. The
// whole decision runs inside the store transaction so that two concurrent
// completes serialize: the second observes whatever state the first left
// behind.
func (s *service) completeCheckoutSession(c context.Context, sessionUID string, req CompleteCheckoutSessionRequest) (CheckoutSession, error) {
	if err := req.Validate(); err != nil {
		return CheckoutSession{}, err
	}

	var session CheckoutSession
	err := s.sessionStore.RunInTransaction(c, func(c context.Context) error {
		var err error
		session, err = s.retrieveCheckoutSession(c, sessionUID)
		if err != nil {
			return err
		}
		if session.Status.IsTerminal() {
			return myerrors.NewTerminalStateError(fmt.Errorf("checkout session %s is %s and can no longer change", sessionUID, session.Status))
		}

		switch session.Status {
		case StatusNotReadyForPayment:
			return myerrors.NewInvalidInputErrorf("checkout session %s is not ready for payment", sessionUID)
		case StatusReadyForPayment:
			if s.gate.ChallengeRequired(session.totalAmount()) {
				return s.requireAuthentication(c, &session)
			}
		case StatusAuthenticationRequired:
			// the client must report the challenge attempt, even a failed one
			if req.AuthenticationResult == nil {
				return myerrors.NewAuthenticationRequiredError(fmt.Errorf("checkout session %s requires an authentication_result", sessionUID))
			}
			if err := s.gate.ValidateResult(*session.AuthenticationMetadata, *req.AuthenticationResult); err != nil {
				return err
			}
			if req.AuthenticationResult.Outcome == authgate.OutcomeFailed {
				return s.declinePayment(c, &session, "payment authentication failed")
			}
		}

		return s.authorizePayment(c, &session, req.PaymentData)
	})
	if err != nil {
		return CheckoutSession{}, err
	}

	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Completion attempt on checkout session %s resulted in status %s", sessionUID, session.Status)

	return session, nil
}

func (s *service) requireAuthentication(c context.Context, session *CheckoutSession) error {
	metadata := s.gate.NewChallenge()
	session.AuthenticationMetadata = &metadata
	session.Status = StatusAuthenticationRequired
	now := s.nower.Now()
	session.LastModified = &now

	return s.sessionStore.Put(c, session.UID, *session)
}

func (s *service) declinePayment(c context.Context, session *CheckoutSession, reason string) error {
	session.Status = StatusReadyForPayment
	session.AuthenticationMetadata = nil
	session.Messages = append(session.Messages, Message{
		Type:        MessageTypeError,
		Code:        myerrors.CodePaymentDeclined,
		ContentType: "plain",
		Content:     fmt.Sprintf("Payment was declined: %s. Try another payment method.", reason),
	})
	now := s.nower.Now()
	session.LastModified = &now

	return s.sessionStore.Put(c, session.UID, *session)
}

func (s *service) authorizePayment(c context.Context, session *CheckoutSession, paymentData PaymentDataParam) error {
	session.Status = StatusInProgress

	result, err := s.payer.Authorize(c, psp.AuthorizationRequest{
		SessionUID:    session.UID,
		AmountInCents: session.totalAmount(),
		Currency:      session.Currency,
		PaymentToken:  paymentData.Token,
	})
	if err != nil {
		return err
	}
	if result.Status != psp.AuthorizationStatusAuthorized {
		return s.declinePayment(c, session, result.DeclineReason)
	}

	now := s.nower.Now()
	order := Order{
		UID:                "ord_" + s.uuider.Create(),
		CheckoutSessionUID: session.UID,
		PermalinkURL:       fmt.Sprintf("%s/orders/%s", s.baseURL, session.UID),
		CreatedAt:          now,
	}
	session.Status = StatusCompleted
	session.AuthenticationMetadata = nil
	session.Order = &order
	session.Links = append(session.Links, Link{
		Type: "order",
		URL:  order.PermalinkURL,
	})
	session.LastModified = &now

	err = s.publisher.Publish(c, sessionevents.TopicName, sessionevents.OrderCreated{
		OrderUID:           order.UID,
		CheckoutSessionUID: session.UID,
		AmountInCents:      session.totalAmount(),
		Currency:           session.Currency,
		PSPReference:       result.PSPReference,
	})
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error publishing order-created event for session %s: %s", session.UID, err))
	}

	return s.sessionStore.Put(c, session.UID, *session)
}

func (s *service) cancelCheckoutSession(c context.Context, sessionUID string, req CancelCheckoutSessionRequest) (CheckoutSession, error) {
	if err := req.Validate(); err != nil {
		return CheckoutSession{}, err
	}

	var session CheckoutSession
	err := s.sessionStore.RunInTransaction(c, func(c context.Context) error {
		var err error
		session, err = s.retrieveCheckoutSession(c, sessionUID)
		if err != nil {
			return err
		}
		if session.Status.IsTerminal() {
			return myerrors.NewTerminalStateError(fmt.Errorf("checkout session %s is %s and can no longer change", sessionUID, session.Status))
		}

		session.Status = StatusCanceled
		session.AuthenticationMetadata = nil
		session.Messages = append(session.Messages, Message{
			Type:        MessageTypeInfo,
			ContentType: "plain",
			Content:     "Checkout session was canceled",
		})
		now := s.nower.Now()
		session.LastModified = &now

		reasonCode := ""
		if req.IntentTrace != nil {
			reasonCode = coerceReasonCode(req.IntentTrace.ReasonCode)
			if err := s.storeIntentTrace(c, session.UID, reasonCode, req.IntentTrace.Metadata); err != nil {
				return err
			}
		}

		err = s.publisher.Publish(c, sessionevents.TopicName, sessionevents.SessionCanceled{
			CheckoutSessionUID: session.UID,
			ReasonCode:         reasonCode,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error publishing canceled event for session %s: %s", session.UID, err))
		}

		return s.sessionStore.Put(c, session.UID, session)
	})
	if err != nil {
		return CheckoutSession{}, err
	}

	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Canceled checkout session %s", sessionUID)

	return session, nil
}

// storeIntentTrace writes to the side channel. One trace per session, so a
// replayed or retried cancel never duplicates it.
func (s *service) storeIntentTrace(c context.Context, sessionUID string, reasonCode string, metadata map[string]any) error {
	metadataJSON := ""
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return myerrors.NewInvalidFieldError("$.intent_trace.metadata", err)
		}
		metadataJSON = string(raw)
	}

	return s.traceStore.Put(c, sessionUID, IntentTraceRecord{
		UID:          sessionUID,
		SessionUID:   sessionUID,
		ReasonCode:   reasonCode,
		MetadataJSON: metadataJSON,
		CreatedAt:    s.nower.Now(),
	})
}

func (s *service) listCheckoutSessions(c context.Context, filter sessionListFilter) ([]CheckoutSession, error) {
	filters := []mystore.Filter{}
	if filter.Status != "" {
		filters = append(filters, mystore.Filter{Field: "Status", Compare: "=", Value: Status(filter.Status)})
	}
	if filter.Currency != "" {
		filters = append(filters, mystore.Filter{Field: "Currency", Compare: "=", Value: filter.Currency})
	}

	sessions, err := s.sessionStore.Query(c, filters, "CreatedAt")
	if err != nil {
		return nil, myerrors.NewInternalError(fmt.Errorf("error querying checkout sessions: %s", err))
	}
	return sessions, nil
}

func (s *service) resolveLineItems(items []ItemParam) ([]LineItem, error) {
	lineItems := make([]LineItem, 0, len(items))
	for _, item := range items {
		product, found := s.productStore.Lookup(item.UID)
		if !found {
			return nil, myerrors.NewInvalidFieldError(fmt.Sprintf("$.items[?(@.id=='%s')].id", item.UID), fmt.Errorf("unknown item %s", item.UID))
		}

		line := LineItem{
			UID: "li_" + item.UID,
			Item: Item{
				UID:      item.UID,
				Quantity: item.Quantity,
			},
			Description:        product.Description,
			UnitBaseAmount:     product.UnitPriceInCents,
			TaxRateBasisPoints: product.TaxRateBasisPoints,
		}
		lineItems = append(lineItems, line)
	}
	return lineItems, nil
}

// recompute re-derives every per-line amount and the totals sequence from
// first principles. Called on every mutation so stored amounts can never
// drift from the line items they were derived from.
func (s *service) recompute(session *CheckoutSession) error {
	lineResults := make([]pricing.LineResult, 0, len(session.LineItems))
	for i := range session.LineItems {
		line := &session.LineItems[i]
		result, err := pricing.CalculateLine(pricing.LineInput{
			ItemUID:            line.Item.UID,
			Quantity:           line.Item.Quantity,
			UnitBaseAmount:     line.UnitBaseAmount,
			Discount:           line.Discount,
			TaxRateBasisPoints: line.TaxRateBasisPoints,
		})
		if err != nil {
			return err
		}
		line.BaseAmount = result.BaseAmount
		line.Subtotal = result.Subtotal
		line.Tax = result.Tax
		line.Total = result.Total
		lineResults = append(lineResults, result)
	}

	totals, err := pricing.CalculateTotals(lineResults, session.fulfillmentAmount())
	if err != nil {
		return err
	}

	session.Totals = make([]Total, 0, len(totals))
	for _, total := range totals {
		session.Totals = append(session.Totals, Total{
			Type:        total.Type,
			DisplayText: total.DisplayText,
			Amount:      total.Amount,
		})
	}

	return nil
}

func fulfillmentDetailsFromParam(param *FulfillmentDetailsParam) *FulfillmentDetails {
	details := &FulfillmentDetails{
		Name:        param.Name,
		Email:       param.Email,
		PhoneNumber: param.PhoneNumber,
	}
	if param.Address != nil {
		details.Address = &Address{
			LineOne:    param.Address.LineOne,
			LineTwo:    param.Address.LineTwo,
			City:       param.Address.City,
			State:      param.Address.State,
			Country:    param.Address.Country,
			PostalCode: param.Address.PostalCode,
		}
	}
	return details
}

func selectedOptionsFromParams(params []SelectedFulfillmentOptionParam) []SelectedFulfillmentOption {
	selected := make([]SelectedFulfillmentOption, 0, len(params))
	for _, param := range params {
		selected = append(selected, SelectedFulfillmentOption{OptionUID: param.OptionUID})
	}
	return selected
}

// applySelectedOptions validates the selection against the currently offered
// options before accepting it.
func applySelectedOptions(session *CheckoutSession, selected []SelectedFulfillmentOption) error {
	for _, sel := range selected {
		found := false
		for _, option := range session.FulfillmentOptions {
			if option.UID == sel.OptionUID {
				found = true
				break
			}
		}
		if !found {
			return myerrors.NewInvalidFieldError("$.selected_fulfillment_options", fmt.Errorf("fulfillment option %s is not offered for this session", sel.OptionUID))
		}
	}
	session.SelectedFulfillmentOptions = selected
	return nil
}

// fulfillmentOptionsFor offers shipping options once a destination is known.
// Flat-rate demo tariffs; a real merchant would quote a carrier here.
func fulfillmentOptionsFor(details *FulfillmentDetails) []FulfillmentOption {
	if details == nil || details.Address == nil {
		return []FulfillmentOption{}
	}
	return []FulfillmentOption{
		{
			UID:      "fo_standard",
			Type:     "shipping",
			Title:    "Standard shipping",
			Subtitle: "3-5 business days",
			Carrier:  "PostNL",
			Subtotal: 500,
			Tax:      0,
			Total:    500,
		},
		{
			UID:      "fo_express",
			Type:     "shipping",
			Title:    "Express shipping",
			Subtitle: "Next business day",
			Carrier:  "DHL",
			Subtotal: 1500,
			Tax:      0,
			Total:    1500,
		},
	}
}
