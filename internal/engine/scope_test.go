package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

func TestParseScopeMode(t *testing.T) {
	for _, valid := range []string{"all", "contracts", "singlePair"} {
		mode, err := ParseScopeMode(valid)
		require.NoError(t, err)
		assert.Equal(t, ScopeMode(valid), mode)
	}

	_, err := ParseScopeMode("everything")
	assert.Error(t, err)
}

func TestScopeAllAdmitsEverything(t *testing.T) {
	s := NewTradeScope(newMemScopeContractStore(), ScopeAll, "", discardLogger())
	assert.True(t, s.Allows(testPair()))
}

func TestScopeContractsMatchesEitherSide(t *testing.T) {
	ctx := context.Background()
	s := NewTradeScope(newMemScopeContractStore(), ScopeContracts, "", discardLogger())

	pair := testPair()
	assert.False(t, s.Allows(pair))

	// Allow-list the base token; checksummed casing must not matter.
	require.NoError(t, s.SetContract(ctx, "0x234E1D120BFFDCBA913B89082979D4CAA51DE22F", true))
	assert.True(t, s.Allows(pair))

	require.NoError(t, s.SetContract(ctx, newAddress, false))
	assert.False(t, s.Allows(pair))
}

func TestScopeSinglePair(t *testing.T) {
	s := NewTradeScope(newMemScopeContractStore(), ScopeSinglePair, "NEW_WBNB_56_pancakev2", discardLogger())

	assert.True(t, s.Allows(testPair()))

	other := testPair()
	other.ID = "OTHER_WBNB_56_pancakev2"
	assert.False(t, s.Allows(other))
}

func TestScopeModeSwitchAtRuntime(t *testing.T) {
	s := NewTradeScope(newMemScopeContractStore(), ScopeSinglePair, "nope", discardLogger())
	assert.False(t, s.Allows(testPair()))

	s.SetMode(ScopeAll, "")
	assert.True(t, s.Allows(testPair()))

	mode, single := s.Mode()
	assert.Equal(t, ScopeAll, mode)
	assert.Empty(t, single)
}

func TestScopeContractListSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	store := newMemScopeContractStore()

	first := NewTradeScope(store, ScopeContracts, "", discardLogger())
	require.NoError(t, first.SetContract(ctx, newAddress, true))

	second := NewTradeScope(store, ScopeContracts, "", discardLogger())
	require.NoError(t, second.Load(ctx))
	assert.True(t, second.Allows(testPair()))
	assert.Equal(t, []string{newAddress}, second.Contracts())
}

func TestDirectiveCacheLifecycle(t *testing.T) {
	ctx := context.Background()
	store := &memRiskStore{}
	c := NewDirectiveCache(store, discardLogger())

	_, err := c.Snapshot()
	assert.ErrorIs(t, err, domain.ErrDirectiveMissing)

	// Missing row tolerated on refresh; still missing on snapshot.
	require.NoError(t, c.Refresh(ctx))
	_, err = c.Snapshot()
	assert.ErrorIs(t, err, domain.ErrDirectiveMissing)

	require.NoError(t, c.Update(ctx, testDirective()))
	d, err := c.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 2.0, d.TPTarget)
	assert.False(t, d.UpdatedAt.IsZero())

	// A store-side change becomes visible after refresh.
	newer := testDirective()
	newer.TPTarget = 3.0
	require.NoError(t, store.Upsert(ctx, newer))
	require.NoError(t, c.Refresh(ctx))
	d, err = c.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 3.0, d.TPTarget)
}
