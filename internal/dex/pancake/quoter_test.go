package pancake

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstantProductOut(t *testing.T) {
	// Balanced pool of 1000:1000, selling 10 with a 0.25% fee. Fee-free
	// output would be 10*1000/1010 = 9.90099; the fee shaves it slightly.
	in := toUnits(10, 18)
	reserveIn := toUnits(1000, 18)
	reserveOut := toUnits(1000, 18)

	out := fromUnits(constantProductOut(in, reserveIn, reserveOut), 18)

	assert.InDelta(t, 9.8766, out, 0.001)
	assert.Less(t, out, 9.90099, "fee must reduce output below the fee-free amount")
}

func TestConstantProductOutDrainsProportionally(t *testing.T) {
	reserveIn := toUnits(1000, 18)
	reserveOut := toUnits(1000, 18)

	small := constantProductOut(toUnits(1, 18), reserveIn, reserveOut)
	large := constantProductOut(toUnits(500, 18), reserveIn, reserveOut)

	// Larger trades get strictly worse unit pricing.
	smallRate := fromUnits(small, 18) / 1
	largeRate := fromUnits(large, 18) / 500
	assert.Greater(t, smallRate, largeRate)

	// Output can never reach the full reserve.
	assert.Less(t, fromUnits(large, 18), 1000.0)
}

func TestUnitsRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		amount   float64
		decimals int
	}{
		{1, 18},
		{0.000123, 18},
		{1234.5678, 6},
		{42, 8},
	} {
		got := fromUnits(toUnits(tc.amount, tc.decimals), tc.decimals)
		assert.InEpsilon(t, tc.amount, got, 1e-9)
	}
}

func TestToUnitsScalesByDecimals(t *testing.T) {
	assert.Equal(t, 0, toUnits(1.5, 6).Cmp(big.NewInt(1_500_000)))
	assert.Equal(t, 0, toUnits(2, 0).Cmp(big.NewInt(2)))
}
