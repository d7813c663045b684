package idempotency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sklim84/agentic-commerce-protocol/lib/myerrors"
	"github.com/sklim84/agentic-commerce-protocol/lib/mystore"
	"github.com/sklim84/agentic-commerce-protocol/lib/mytime"
)

const DefaultRetention = time.Hour * 24

type ledger struct {
	store     mystore.Store[Record]
	nower     mytime.Nower
	retention time.Duration

	mutex    sync.Mutex
	inFlight map[string]chan struct{}
}

// Use dependency injection to isolate the infrastructure and easy testing
func New(c context.Context, nower mytime.Nower, retention time.Duration) (Ledger, func(), error) {
	store, cleanup, err := mystore.New[Record](c)
	if err != nil {
		return nil, nil, err
	}

	return &ledger{
		store:     store,
		nower:     nower,
		retention: retention,
		inFlight:  map[string]chan struct{}{},
	}, cleanup, nil
}

func (l *ledger) Begin(c context.Context, key string, operation string, fingerprint string) (Result, error) {
	uid := recordUID(key, operation)

	for {
		record, exists, err := l.store.Get(c, uid)
		if err != nil {
			return Result{}, myerrors.NewInternalError(fmt.Errorf("error fetching idempotency record %s: %s", uid, err))
		}
		if exists && l.nower.Now().Before(record.CreatedAt.Add(l.retention)) {
			if record.Fingerprint != fingerprint {
				return Result{Outcome: OutcomeConflict}, nil
			}
			return Result{
				Outcome:        OutcomeReplay,
				ResponseStatus: record.ResponseStatus,
				ResponseBody:   record.ResponseBody,
			}, nil
		}

		done, claimed := l.claim(uid)
		if claimed {
			return Result{Outcome: OutcomeFresh}, nil
		}

		// Another request holds this key: wait for its Commit or Fail, then
		// re-check the store
		select {
		case <-done:
		case <-c.Done():
			return Result{}, myerrors.NewUnavailableError(c.Err())
		}
	}
}

func (l *ledger) Commit(c context.Context, key string, operation string, fingerprint string, responseStatus int, responseBody []byte) error {
	uid := recordUID(key, operation)

	err := l.store.Put(c, uid, Record{
		UID:            uid,
		Key:            key,
		Operation:      operation,
		Fingerprint:    fingerprint,
		ResponseStatus: responseStatus,
		ResponseBody:   responseBody,
		CreatedAt:      l.nower.Now(),
	})
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error storing idempotency record %s: %s", uid, err))
	}

	l.release(uid)

	return nil
}

func (l *ledger) Fail(c context.Context, key string, operation string) error {
	l.release(recordUID(key, operation))
	return nil
}

func (l *ledger) claim(uid string) (chan struct{}, bool) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if done, exists := l.inFlight[uid]; exists {
		return done, false
	}

	done := make(chan struct{})
	l.inFlight[uid] = done
	return done, true
}

func (l *ledger) release(uid string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if done, exists := l.inFlight[uid]; exists {
		close(done)
		delete(l.inFlight, uid)
	}
}

func recordUID(key string, operation string) string {
	return key + "." + operation
}
