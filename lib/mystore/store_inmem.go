package mystore

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"time"
)

type InMemoryStore[T any] struct {
	sync.Mutex
	Items map[string]T
}

func NewInMemoryStore[T any](c context.Context) (*InMemoryStore[T], func(), error) {
	return &InMemoryStore[T]{
		Items: make(map[string]T),
	}, func() {}, nil
}

func (s *InMemoryStore[T]) RunInTransaction(c context.Context, f func(c context.Context) error) error {
	// Start transaction
	s.Lock()

	ctx := context.WithValue(c, ctxTransactionKey{}, true)

	// Within this block everything is transactional
	err := f(ctx)
	if err != nil {
		// Rollback
		s.Unlock()

		return err
	}

	// Commit
	s.Unlock()

	return nil
}

func (s *InMemoryStore[T]) Put(c context.Context, uid string, value T) error {
	nonTransactional := c.Value(ctxTransactionKey{}) == nil

	if nonTransactional {
		s.Lock()
	}

	s.Items[uid] = value

	if nonTransactional {
		s.Unlock()
	}

	return nil
}

func (s *InMemoryStore[T]) Get(c context.Context, uid string) (T, bool, error) {
	nonTransactional := c.Value(ctxTransactionKey{}) == nil

	if nonTransactional {
		s.Lock()
	}
	result, exists := s.Items[uid]

	if nonTransactional {
		s.Unlock()
	}

	return result, exists, nil
}

func (s *InMemoryStore[T]) List(c context.Context) ([]T, error) {
	nonTransactional := c.Value(ctxTransactionKey{}) == nil

	if nonTransactional {
		s.Lock()
	}

	result := make([]T, 0, len(s.Items))
	for _, v := range s.Items {
		result = append(result, v)
	}

	if nonTransactional {
		s.Unlock()
	}

	return result, nil
}

func (s *InMemoryStore[T]) Query(c context.Context, filters []Filter, orderByField string) ([]T, error) {
	all, err := s.List(c)
	if err != nil {
		return nil, err
	}

	result := make([]T, 0, len(all))
	for _, candidate := range all {
		if matchesAll(candidate, filters) {
			result = append(result, candidate)
		}
	}

	if orderByField != "" {
		sort.SliceStable(result, func(i, j int) bool {
			return lessByField(result[i], result[j], orderByField)
		})
	}

	return result, nil
}

// Only "=" comparisons are supported, which is all the datastore variant is used for locally
func matchesAll[T any](value T, filters []Filter) bool {
	for _, f := range filters {
		fieldValue, found := fieldByName(value, f.Field)
		if !found {
			return false
		}
		if f.Compare == "=" && !reflect.DeepEqual(fieldValue, f.Value) {
			return false
		}
	}
	return true
}

func lessByField[T any](left T, right T, fieldName string) bool {
	leftValue, leftFound := fieldByName(left, fieldName)
	rightValue, rightFound := fieldByName(right, fieldName)
	if !leftFound || !rightFound {
		return false
	}

	switch l := leftValue.(type) {
	case string:
		r, ok := rightValue.(string)
		return ok && l < r
	case int:
		r, ok := rightValue.(int)
		return ok && l < r
	case int64:
		r, ok := rightValue.(int64)
		return ok && l < r
	case time.Time:
		r, ok := rightValue.(time.Time)
		return ok && l.Before(r)
	}
	return false
}

func fieldByName[T any](value T, fieldName string) (any, bool) {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, false
	}
	field := v.FieldByName(fieldName)
	if !field.IsValid() {
		return nil, false
	}
	return field.Interface(), true
}
