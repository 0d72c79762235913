package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivePairSetMemoryFirst(t *testing.T) {
	s := NewActivePairSet(newMemActivePairStore(), discardLogger())

	s.Set("pair-a", true)
	assert.True(t, s.Has("pair-a"), "membership must be visible before persistence completes")

	s.Set("pair-a", false)
	assert.False(t, s.Has("pair-a"))
}

func TestActivePairSetPersistsInBackground(t *testing.T) {
	store := newMemActivePairStore()
	s := NewActivePairSet(store, discardLogger())

	s.Set("pair-a", true)
	s.Set("pair-b", true)

	require.Eventually(t, func() bool {
		ids, err := store.List(context.Background())
		return err == nil && len(ids) == 2
	}, time.Second, 5*time.Millisecond)

	s.Set("pair-a", false)
	require.Eventually(t, func() bool {
		ids, err := store.List(context.Background())
		return err == nil && len(ids) == 1 && ids[0] == "pair-b"
	}, time.Second, 5*time.Millisecond)
}

func TestActivePairSetLoadRestoresState(t *testing.T) {
	store := newMemActivePairStore()
	require.NoError(t, store.Add(context.Background(), "pair-a"))
	require.NoError(t, store.Add(context.Background(), "pair-b"))

	s := NewActivePairSet(store, discardLogger())
	require.NoError(t, s.Load(context.Background()))

	assert.True(t, s.Has("pair-a"))
	assert.True(t, s.Has("pair-b"))
	assert.False(t, s.Has("pair-c"))
	assert.ElementsMatch(t, []string{"pair-a", "pair-b"}, s.List())
}
