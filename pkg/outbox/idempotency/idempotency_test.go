package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	keys    map[string]bool
	setErr  error
	deleted []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{keys: map[string]bool{}}
}

func (f *fakeStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if f.setErr != nil {
		return false, f.setErr
	}
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.keys, key)
		f.deleted = append(f.deleted, key)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(consumer, id string) string {
	return "tp:idempotency:" + consumer + ":" + id
}

func TestCheckAndMarkProcessed(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)
	eventID := uuid.New()
	ctx := context.Background()

	already, err := manager.CheckAndMarkProcessed(ctx, "orders-worker", eventID)
	require.NoError(t, err)
	assert.False(t, already, "first delivery must process")

	already, err = manager.CheckAndMarkProcessed(ctx, "orders-worker", eventID)
	require.NoError(t, err)
	assert.True(t, already, "redelivery must be detected")

	// a different consumer keeps its own marks
	already, err = manager.CheckAndMarkProcessed(ctx, "other-worker", eventID)
	require.NoError(t, err)
	assert.False(t, already)
}

func TestDeleteClearsMark(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)
	eventID := uuid.New()
	ctx := context.Background()

	_, err = manager.CheckAndMarkProcessed(ctx, "orders-worker", eventID)
	require.NoError(t, err)
	require.NoError(t, manager.Delete(ctx, "orders-worker", eventID))

	already, err := manager.CheckAndMarkProcessed(ctx, "orders-worker", eventID)
	require.NoError(t, err)
	assert.False(t, already, "deleted mark must allow reprocessing")
}

func TestManagerValidation(t *testing.T) {
	t.Parallel()

	_, err := NewManager(nil, time.Hour)
	assert.Error(t, err)

	store := newFakeStore()
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	_, err = manager.CheckAndMarkProcessed(context.Background(), "", uuid.New())
	assert.Error(t, err)

	_, err = manager.CheckAndMarkProcessed(context.Background(), "worker", uuid.Nil)
	assert.Error(t, err)

	store.setErr = errors.New("redis down")
	_, err = manager.CheckAndMarkProcessed(context.Background(), "worker", uuid.New())
	assert.Error(t, err)
}
