package checkoutsession

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/sklim84/agentic-commerce-protocol/lib/mycontext"
	"github.com/sklim84/agentic-commerce-protocol/lib/myerrors"
	"github.com/sklim84/agentic-commerce-protocol/lib/myhttp"
	"github.com/sklim84/agentic-commerce-protocol/lib/mylog"
	"github.com/sklim84/agentic-commerce-protocol/lib/mypublisher"
	"github.com/sklim84/agentic-commerce-protocol/lib/mystore"
	"github.com/sklim84/agentic-commerce-protocol/lib/mytime"
	"github.com/sklim84/agentic-commerce-protocol/lib/myuuid"
	"github.com/sklim84/agentic-commerce-protocol/services/authgate"
	"github.com/sklim84/agentic-commerce-protocol/services/catalog"
	"github.com/sklim84/agentic-commerce-protocol/services/checkoutsession/sessionevents"
	"github.com/sklim84/agentic-commerce-protocol/services/idempotency"
	"github.com/sklim84/agentic-commerce-protocol/services/psp"
)

const (
	apiVersion = "2026-01-16"

	operationCreate   = "create"
	operationUpdate   = "update"
	operationComplete = "complete"
	operationCancel   = "cancel"
)

type webService struct {
	logger    mylog.Logger
	service   *service
	ledger    idempotency.Ledger
	publisher mypublisher.Publisher
	apiKey    string
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(apiKey string, baseURL string, sessionStore mystore.Store[CheckoutSession], traceStore mystore.Store[IntentTraceRecord], productStore catalog.Catalog, gate *authgate.Gate, payer psp.Payer, ledger idempotency.Ledger, publisher mypublisher.Publisher, nower mytime.Nower, uuider myuuid.UUIDer) (*webService, error) {
	logger := mylog.New("checkoutsession")

	return &webService{
		logger:    logger,
		service:   newService(baseURL, sessionStore, traceStore, productStore, gate, payer, publisher, nower, uuider, logger),
		ledger:    ledger,
		publisher: publisher,
		apiKey:    apiKey,
	}, nil
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/checkout_sessions", s.createSessionPage()).Methods("POST")
	router.HandleFunc("/checkout_sessions/{checkoutSessionUID}", s.retrieveSessionPage()).Methods("GET")
	router.HandleFunc("/checkout_sessions/{checkoutSessionUID}", s.updateSessionPage()).Methods("POST")
	router.HandleFunc("/checkout_sessions/{checkoutSessionUID}/complete", s.completeSessionPage()).Methods("POST")
	router.HandleFunc("/checkout_sessions/{checkoutSessionUID}/cancel", s.cancelSessionPage()).Methods("POST")

	router.HandleFunc("/admin/checkout_sessions", s.adminSessionListPage()).Methods("GET")

	return s.publisher.CreateTopic(c, sessionevents.TopicName)
}

func (s *webService) createSessionPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)

		rawBody, err := s.checkRequest(r)
		if err != nil {
			responseWriter.WriteError(c, w, err)
			return
		}

		req := CreateCheckoutSessionRequest{}
		if err := json.Unmarshal(rawBody, &req); err != nil {
			responseWriter.WriteError(c, w, myerrors.NewInvalidInputError(fmt.Errorf("error parsing request body: %s", err)))
			return
		}

		s.handleIdempotent(c, w, r, operationCreate, http.StatusCreated, rawBody, func(c context.Context) (CheckoutSession, error) {
			return s.service.createCheckoutSession(c, req)
		})
	}
}

func (s *webService) retrieveSessionPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)

		if _, err := s.checkRequest(r); err != nil {
			responseWriter.WriteError(c, w, err)
			return
		}

		session, err := s.service.retrieveCheckoutSession(c, mux.Vars(r)["checkoutSessionUID"])
		if err != nil {
			responseWriter.WriteError(c, w, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, session)
	}
}

func (s *webService) updateSessionPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)

		rawBody, err := s.checkRequest(r)
		if err != nil {
			responseWriter.WriteError(c, w, err)
			return
		}

		req := UpdateCheckoutSessionRequest{}
		if err := json.Unmarshal(rawBody, &req); err != nil {
			responseWriter.WriteError(c, w, myerrors.NewInvalidInputError(fmt.Errorf("error parsing request body: %s", err)))
			return
		}

		sessionUID := mux.Vars(r)["checkoutSessionUID"]
		s.handleIdempotent(c, w, r, operationUpdate, http.StatusOK, rawBody, func(c context.Context) (CheckoutSession, error) {
			return s.service.updateCheckoutSession(c, sessionUID, req)
		})
	}
}

func (s *webService) completeSessionPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)

		rawBody, err := s.checkRequest(r)
		if err != nil {
			responseWriter.WriteError(c, w, err)
			return
		}

		req := CompleteCheckoutSessionRequest{}
		if err := json.Unmarshal(rawBody, &req); err != nil {
			responseWriter.WriteError(c, w, myerrors.NewInvalidInputError(fmt.Errorf("error parsing request body: %s", err)))
			return
		}

		sessionUID := mux.Vars(r)["checkoutSessionUID"]
		s.handleIdempotent(c, w, r, operationComplete, http.StatusOK, rawBody, func(c context.Context) (CheckoutSession, error) {
			return s.service.completeCheckoutSession(c, sessionUID, req)
		})
	}
}

func (s *webService) cancelSessionPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)

		rawBody, err := s.checkRequest(r)
		if err != nil {
			responseWriter.WriteError(c, w, err)
			return
		}

		req := CancelCheckoutSessionRequest{}
		if len(rawBody) > 0 {
			if err := json.Unmarshal(rawBody, &req); err != nil {
				responseWriter.WriteError(c, w, myerrors.NewInvalidInputError(fmt.Errorf("error parsing request body: %s", err)))
				return
			}
		}

		sessionUID := mux.Vars(r)["checkoutSessionUID"]
		s.handleIdempotent(c, w, r, operationCancel, http.StatusOK, rawBody, func(c context.Context) (CheckoutSession, error) {
			return s.service.cancelCheckoutSession(c, sessionUID, req)
		})
	}
}

// handleIdempotent wraps a mutating operation in the idempotency protocol.
// Replays write the stored bytes verbatim, so a retried request observes a
// byte-identical response. Only successful outcomes are committed to the
// ledger; a failed attempt releases the key for a clean retry.
func (s *webService) handleIdempotent(c context.Context, w http.ResponseWriter, r *http.Request, operation string, successStatus int, rawBody []byte, fn func(c context.Context) (CheckoutSession, error)) {
	responseWriter := myhttp.NewWriter(s.logger)

	key := r.Header.Get("Idempotency-Key")
	if key == "" {
		session, err := fn(c)
		if err != nil {
			responseWriter.WriteError(c, w, err)
			return
		}
		responseWriter.Write(c, w, successStatus, session)
		return
	}

	fingerprint, err := idempotency.Fingerprint(rawBody)
	if err != nil {
		responseWriter.WriteError(c, w, err)
		return
	}

	result, err := s.ledger.Begin(c, key, operation, fingerprint)
	if err != nil {
		responseWriter.WriteError(c, w, err)
		return
	}

	switch result.Outcome {
	case idempotency.OutcomeReplay:
		s.logger.Log(c, key, mylog.SeverityInfo, "Replaying stored response for idempotency key %s on %s", key, operation)
		responseWriter.WriteRaw(c, w, result.ResponseStatus, result.ResponseBody)
		return
	case idempotency.OutcomeConflict:
		responseWriter.WriteError(c, w, myerrors.NewIdempotencyConflictError(fmt.Errorf("idempotency key %s was used with different parameters", key)))
		return
	}

	session, err := fn(c)
	if err != nil {
		if failErr := s.ledger.Fail(c, key, operation); failErr != nil {
			s.logger.Log(c, key, mylog.SeverityError, "Error releasing idempotency key %s: %s", key, failErr)
		}
		responseWriter.WriteError(c, w, err)
		return
	}

	responseBody, err := marshalSession(session)
	if err != nil {
		if failErr := s.ledger.Fail(c, key, operation); failErr != nil {
			s.logger.Log(c, key, mylog.SeverityError, "Error releasing idempotency key %s: %s", key, failErr)
		}
		responseWriter.WriteError(c, w, myerrors.NewInternalError(err))
		return
	}

	if err := s.ledger.Commit(c, key, operation, fingerprint, successStatus, responseBody); err != nil {
		responseWriter.WriteError(c, w, myerrors.NewInternalError(err))
		return
	}

	responseWriter.WriteRaw(c, w, successStatus, responseBody)
}

// marshalSession produces the exact bytes that are both returned and stored
// in the ledger, so first response and replay cannot diverge.
func marshalSession(session CheckoutSession) ([]byte, error) {
	body, err := json.MarshalIndent(session, "", "\t")
	if err != nil {
		return nil, fmt.Errorf("error marshalling checkout session %s: %s", session.UID, err)
	}
	return append(body, '\n'), nil
}

// checkRequest enforces the protocol headers on every endpoint and returns
// the consumed request body.
func (s *webService) checkRequest(r *http.Request) ([]byte, error) {
	if err := s.authenticate(r); err != nil {
		return nil, err
	}

	version := r.Header.Get("API-Version")
	if version == "" {
		return nil, myerrors.NewInvalidInputErrorf("missing required API-Version header")
	}
	if version != apiVersion {
		return nil, myerrors.NewInvalidInputErrorf("unsupported API-Version %q, supported: %s", version, apiVersion)
	}

	if r.Body == nil {
		return nil, nil
	}
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, myerrors.NewInvalidInputError(fmt.Errorf("error reading request body: %s", err))
	}
	return rawBody, nil
}

func (s *webService) authenticate(r *http.Request) error {
	authorization := r.Header.Get("Authorization")
	if authorization == "" {
		return myerrors.NewUnauthorizedError(fmt.Errorf("missing Authorization header"))
	}

	token, found := strings.CutPrefix(authorization, "Bearer ")
	if !found {
		return myerrors.NewUnauthorizedError(fmt.Errorf("authorization header must use the Bearer scheme"))
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.apiKey)) != 1 {
		return myerrors.NewUnauthorizedError(fmt.Errorf("invalid api key"))
	}

	return nil
}
