package idempotency

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sklim84/agentic-commerce-protocol/lib/mytime"
)

func TestFingerprint(t *testing.T) {
	t.Run("Field order does not matter", func(t *testing.T) {
		first, err := Fingerprint([]byte(`{"items":[{"id":"a","quantity":1}],"currency":"EUR"}`))
		assert.NoError(t, err)
		second, err := Fingerprint([]byte(`{"currency":"EUR","items":[{"quantity":1,"id":"a"}]}`))
		assert.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("Different parameters hash differently", func(t *testing.T) {
		first, err := Fingerprint([]byte(`{"currency":"EUR"}`))
		assert.NoError(t, err)
		second, err := Fingerprint([]byte(`{"currency":"USD"}`))
		assert.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("Empty body is valid", func(t *testing.T) {
		first, err := Fingerprint(nil)
		assert.NoError(t, err)
		second, err := Fingerprint([]byte{})
		assert.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("Malformed body rejected", func(t *testing.T) {
		_, err := Fingerprint([]byte(`{`))
		assert.Error(t, err)
	})
}

func TestLedger(t *testing.T) {
	c := context.TODO()

	t.Run("Fresh then replay", func(t *testing.T) {
		sut, cleanup := newLedger(t)
		defer cleanup()

		result, err := sut.Begin(c, "key-1", "create", "fp-1")
		assert.NoError(t, err)
		assert.Equal(t, OutcomeFresh, result.Outcome)

		err = sut.Commit(c, "key-1", "create", "fp-1", 201, []byte(`{"id":"cs_123"}`))
		assert.NoError(t, err)

		result, err = sut.Begin(c, "key-1", "create", "fp-1")
		assert.NoError(t, err)
		assert.Equal(t, OutcomeReplay, result.Outcome)
		assert.Equal(t, 201, result.ResponseStatus)
		assert.Equal(t, []byte(`{"id":"cs_123"}`), result.ResponseBody)
	})

	t.Run("Same key different fingerprint conflicts", func(t *testing.T) {
		sut, cleanup := newLedger(t)
		defer cleanup()

		result, err := sut.Begin(c, "key-1", "create", "fp-1")
		assert.NoError(t, err)
		assert.Equal(t, OutcomeFresh, result.Outcome)
		assert.NoError(t, sut.Commit(c, "key-1", "create", "fp-1", 201, []byte(`{}`)))

		result, err = sut.Begin(c, "key-1", "create", "fp-2")
		assert.NoError(t, err)
		assert.Equal(t, OutcomeConflict, result.Outcome)
	})

	t.Run("Same key different operation is independent", func(t *testing.T) {
		sut, cleanup := newLedger(t)
		defer cleanup()

		result, err := sut.Begin(c, "key-1", "create", "fp-1")
		assert.NoError(t, err)
		assert.Equal(t, OutcomeFresh, result.Outcome)
		assert.NoError(t, sut.Commit(c, "key-1", "create", "fp-1", 201, []byte(`{}`)))

		result, err = sut.Begin(c, "key-1", "complete", "fp-1")
		assert.NoError(t, err)
		assert.Equal(t, OutcomeFresh, result.Outcome)
	})

	t.Run("Fail releases the claim for a retry", func(t *testing.T) {
		sut, cleanup := newLedger(t)
		defer cleanup()

		result, err := sut.Begin(c, "key-1", "complete", "fp-1")
		assert.NoError(t, err)
		assert.Equal(t, OutcomeFresh, result.Outcome)

		assert.NoError(t, sut.Fail(c, "key-1", "complete"))

		result, err = sut.Begin(c, "key-1", "complete", "fp-1")
		assert.NoError(t, err)
		assert.Equal(t, OutcomeFresh, result.Outcome)
	})

	t.Run("Concurrent begins with same key: one fresh, one replay", func(t *testing.T) {
		sut, cleanup := newLedger(t)
		defer cleanup()

		result, err := sut.Begin(c, "key-1", "create", "fp-1")
		assert.NoError(t, err)
		assert.Equal(t, OutcomeFresh, result.Outcome)

		var wg sync.WaitGroup
		wg.Add(1)
		var second Result
		go func() {
			defer wg.Done()
			second, _ = sut.Begin(c, "key-1", "create", "fp-1")
		}()

		// give the second caller time to block on the in-flight claim
		time.Sleep(50 * time.Millisecond)
		assert.NoError(t, sut.Commit(c, "key-1", "create", "fp-1", 201, []byte(`{"id":"cs_123"}`)))

		wg.Wait()
		assert.Equal(t, OutcomeReplay, second.Outcome)
		assert.Equal(t, []byte(`{"id":"cs_123"}`), second.ResponseBody)
	})

	t.Run("Expired record is fresh again", func(t *testing.T) {
		sut, cleanup := newLedgerWithRetention(t, 10*time.Millisecond)
		defer cleanup()

		result, err := sut.Begin(c, "key-1", "create", "fp-1")
		assert.NoError(t, err)
		assert.Equal(t, OutcomeFresh, result.Outcome)
		assert.NoError(t, sut.Commit(c, "key-1", "create", "fp-1", 201, []byte(`{}`)))

		// a different fingerprint after expiry must not conflict
		time.Sleep(20 * time.Millisecond)
		result, err = sut.Begin(c, "key-1", "create", "fp-2")
		assert.NoError(t, err)
		assert.Equal(t, OutcomeFresh, result.Outcome)
	})
}

func newLedger(t *testing.T) (Ledger, func()) {
	return newLedgerWithRetention(t, DefaultRetention)
}

func newLedgerWithRetention(t *testing.T, retention time.Duration) (Ledger, func()) {
	sut, cleanup, err := New(context.TODO(), mytime.RealNower{}, retention)
	assert.NoError(t, err)
	return sut, cleanup
}
