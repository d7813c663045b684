package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/sklim84/agentic-commerce-protocol/lib/mypublisher"
	"github.com/sklim84/agentic-commerce-protocol/lib/mypubsub"
	"github.com/sklim84/agentic-commerce-protocol/lib/myqueue"
	"github.com/sklim84/agentic-commerce-protocol/lib/mystore"
	"github.com/sklim84/agentic-commerce-protocol/lib/mytime"
	"github.com/sklim84/agentic-commerce-protocol/lib/myuuid"
	"github.com/sklim84/agentic-commerce-protocol/services/authgate"
	"github.com/sklim84/agentic-commerce-protocol/services/catalog"
	"github.com/sklim84/agentic-commerce-protocol/services/checkoutsession"
	"github.com/sklim84/agentic-commerce-protocol/services/idempotency"
	"github.com/sklim84/agentic-commerce-protocol/services/psp"
)

func main() {
	c := context.Background()

	apiKey := os.Getenv("MERCHANT_API_KEY")
	if apiKey == "" {
		log.Fatalf("Missing env MERCHANT_API_KEY")
	}

	router := mux.NewRouter()

	nower := mytime.RealNower{}
	uuider := myuuid.RealUUIDer{}

	sessionStore, sessionStoreCleanup, err := mystore.New[checkoutsession.CheckoutSession](c)
	if err != nil {
		log.Fatalf("Error creating checkout-session store: %s", err)
	}
	defer sessionStoreCleanup()

	traceStore, traceStoreCleanup, err := mystore.New[checkoutsession.IntentTraceRecord](c)
	if err != nil {
		log.Fatalf("Error creating intent-trace store: %s", err)
	}
	defer traceStoreCleanup()

	ledger, ledgerCleanup, err := idempotency.New(c, nower, idempotency.DefaultRetention)
	if err != nil {
		log.Fatalf("Error creating idempotency ledger: %s", err)
	}
	defer ledgerCleanup()

	queue, queueCleanup, err := myqueue.New(c)
	if err != nil {
		log.Fatalf("Error creating task queue: %s", err)
	}
	defer queueCleanup()

	pubsub, pubsubCleanup, err := mypubsub.New(c)
	if err != nil {
		log.Fatalf("Error creating pubsub: %s", err)
	}
	defer pubsubCleanup()

	publisher, publisherCleanup, err := mypublisher.New(c, pubsub, queue, nower)
	if err != nil {
		log.Fatalf("Error creating publisher: %s", err)
	}
	defer publisherCleanup()
	publisher.RegisterEndpoints(c, router)

	payer := psp.NewPayer()
	payer.UseAPIKey(os.Getenv("STRIPE_API_KEY"))

	gate := authgate.New(challengeThresholdFromEnv(), nower, uuider)

	sessionService, err := checkoutsession.NewWebService(apiKey, baseURLFromEnv(), sessionStore, traceStore, catalog.New(), gate, payer, ledger, publisher, nower, uuider)
	if err != nil {
		log.Fatalf("Error creating checkout-session service: %s", err)
	}
	err = sessionService.RegisterEndpoints(c, router)
	if err != nil {
		log.Fatalf("Error registering checkout-session endpoints: %s", err)
	}

	startWebServerBlocking(router)
}

// challengeThresholdFromEnv returns the amount in minor units at which a
// completion attempt requires a 3DS challenge. 0 disables challenges.
func challengeThresholdFromEnv() int64 {
	threshold := os.Getenv("CHALLENGE_THRESHOLD_IN_CENTS")
	if threshold == "" {
		return 0
	}
	value, err := strconv.ParseInt(threshold, 10, 64)
	if err != nil {
		log.Fatalf("Invalid CHALLENGE_THRESHOLD_IN_CENTS %q: %s", threshold, err)
	}
	return value
}

func baseURLFromEnv() string {
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return baseURL
}

func startWebServerBlocking(router *mux.Router) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting webserver on port %s (try http://localhost:%s)", port, port)
	err := http.ListenAndServe(fmt.Sprintf(":%s", port), router)
	if err != nil {
		log.Fatalf("Error starting webserver on port %s: %s", port, err)
	}
}
