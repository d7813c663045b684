package idempotency

import (
	"context"
	"time"
)

type Outcome int

const (
	// OutcomeFresh means no record exists; the caller proceeds and must
	// Commit (or Fail) afterwards.
	OutcomeFresh Outcome = iota
	// OutcomeReplay means a record with a matching fingerprint exists; the
	// caller must return the stored response verbatim.
	OutcomeReplay
	// OutcomeConflict means a record exists for this key with a different
	// fingerprint.
	OutcomeConflict
)

type Result struct {
	Outcome        Outcome
	ResponseStatus int
	ResponseBody   []byte
}

// Record is the stored outcome of an idempotency-key-bearing request, keyed
// by (key, operation). Never mutated after creation; reaped after the
// retention window.
type Record struct {
	UID            string
	Key            string
	Operation      string
	Fingerprint    string
	ResponseStatus int
	ResponseBody   []byte `datastore:",noindex"`
	CreatedAt      time.Time
}

//go:generate mockgen -source=api.go -package idempotency -destination ledger_mock.go Ledger
type Ledger interface {
	// Begin atomically claims (key, operation) for this caller. Two
	// concurrent callers with the same key never both observe Fresh: the
	// second blocks until the first Commits or Fails.
	Begin(c context.Context, key string, operation string, fingerprint string) (Result, error)
	// Commit stores the response so later calls with the same key replay it.
	Commit(c context.Context, key string, operation string, fingerprint string, responseStatus int, responseBody []byte) error
	// Fail releases the claim without storing a response, so a retry
	// re-executes.
	Fail(c context.Context, key string, operation string) error
}
