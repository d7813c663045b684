package mystore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type record struct {
	UID       string
	Status    string
	CreatedAt time.Time
}

func TestStore(t *testing.T) {
	c := context.TODO()
	store, cleanup, err := NewInMemoryStore[record](c)
	assert.NoError(t, err)
	defer cleanup()

	t.Run("Get non-existing", func(t *testing.T) {
		_, exists, err := store.Get(c, "unknown")
		assert.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Put and get", func(t *testing.T) {
		err := store.Put(c, "1", record{UID: "1", Status: "open"})
		assert.NoError(t, err)

		got, exists, err := store.Get(c, "1")
		assert.NoError(t, err)
		assert.True(t, exists)
		assert.Equal(t, "open", got.Status)
	})

	t.Run("Rollback on error", func(t *testing.T) {
		err := store.RunInTransaction(c, func(c context.Context) error {
			innerErr := store.Put(c, "2", record{UID: "2", Status: "open"})
			assert.NoError(t, innerErr)
			return fmt.Errorf("forced error")
		})
		assert.Error(t, err)
	})

	t.Run("Query with filter and order", func(t *testing.T) {
		now := time.Now()
		assert.NoError(t, store.Put(c, "a", record{UID: "a", Status: "open", CreatedAt: now.Add(time.Second)}))
		assert.NoError(t, store.Put(c, "b", record{UID: "b", Status: "closed", CreatedAt: now}))
		assert.NoError(t, store.Put(c, "c", record{UID: "c", Status: "open", CreatedAt: now.Add(-time.Second)}))

		got, err := store.Query(c, []Filter{{Field: "Status", Compare: "=", Value: "open"}}, "CreatedAt")
		assert.NoError(t, err)
		assert.Len(t, got, 2)
		assert.Equal(t, "c", got[0].UID)
		assert.Equal(t, "a", got[1].UID)
	})
}
