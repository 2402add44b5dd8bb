package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAddGetRemove(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Hour)

	session := newTestSession(t, &scriptedAdapter{})
	store.Add(session)

	assert.Equal(t, 1, store.Count())

	got, exists := store.Get(session.ID)
	require.True(t, exists)
	assert.Equal(t, session.ID, got.ID)

	_, exists = store.Get("no-such-session")
	assert.False(t, exists)

	store.Remove(session.ID)
	assert.Equal(t, 0, store.Count())
}

func TestStoreCleanupExpired(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)

	fresh := newTestSession(t, &scriptedAdapter{})
	store.Add(fresh)

	stale := newTestSession(t, &scriptedAdapter{})
	stale.LastActivity = time.Now().Add(-2 * time.Minute)
	store.Add(stale)

	removed := store.CleanupExpired()

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Count())

	_, exists := store.Get(fresh.ID)
	assert.True(t, exists)

	_, exists = store.Get(stale.ID)
	assert.False(t, exists)
}
