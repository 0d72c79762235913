package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const poolUpdateMsg = `{
	"jsonrpc": "2.0",
	"id": 2,
	"result": {
		"status": "ok",
		"data": {
			"event": "update",
			"pair": {
				"id": "0x6bb517ded0652e8cda918cf3d2c0df019312ae51",
				"exchange": "pancakev2",
				"token0": {"id": "0x234e1d120bffdcba913b89082979d4caa51de22f", "name": "Stake To Own", "symbol": "STCK", "decimals": 18},
				"token1": {"id": "0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c", "name": "Wrapped BNB", "symbol": "WBNB", "decimals": 18},
				"tokenIndex": 0,
				"reserve0": 283170871.3183756,
				"reserve1": 55.823190855939714,
				"liquidity": 31060.719075125737,
				"initialReserve0": 117600000,
				"initialReserve1": 133.2411038541738,
				"initialLiquidity": 73755.93838769678,
				"reserveUpdatedAt": "2022-09-28T18:31:23.000Z",
				"createdAt": "2022-09-28T15:40:51.055Z",
				"createdAtTimestamp": 1664379646,
				"creation": {"hash": "0xc402d7cc", "blockNumber": "21382824"}
			}
		}
	}
}`

const nativePriceMsg = `{
	"jsonrpc": "2.0",
	"id": 2,
	"result": {
		"status": "ok",
		"data": {"ethPriceUsd": 284.35, "ethTimestampUsd": 1664379646}
	}
}`

func TestParsePoolUpdate(t *testing.T) {
	pairEv, priceEv, err := parseMessage([]byte(poolUpdateMsg))
	require.NoError(t, err)
	require.NotNil(t, pairEv)
	assert.Nil(t, priceEv)

	p := pairEv.Pair
	assert.Equal(t, "STCK_WBNB_56_pancakev2", p.ID)
	assert.Equal(t, "STCK", p.Base)
	assert.Equal(t, "WBNB", p.Quote)
	assert.Equal(t, 56, p.ChainID)
	assert.Equal(t, "0x6bb517ded0652e8cda918cf3d2c0df019312ae51", p.Address)
	assert.Equal(t, "0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c", p.Token1.Address)
	assert.Equal(t, 18, p.Token1.Decimals)
	assert.InDelta(t, 31060.72, p.LiquidityUSD, 0.01)
	assert.InDelta(t, 55.823, p.Reserve1, 0.001)
	assert.InDelta(t, 73755.94, p.InitialLiquidityUSD, 0.01)
	assert.Equal(t, int64(1664379646), p.CreatedAt.Unix())
}

func TestParseNativePriceTick(t *testing.T) {
	pairEv, priceEv, err := parseMessage([]byte(nativePriceMsg))
	require.NoError(t, err)
	require.NotNil(t, priceEv)
	assert.Nil(t, pairEv)

	assert.InDelta(t, 284.35, priceEv.PriceUSD, 1e-9)
	assert.Equal(t, int64(1664379646), priceEv.Timestamp.Unix())
}

func TestParseIgnoresNonOKAndUnknownEvents(t *testing.T) {
	for name, msg := range map[string]string{
		"bad status":    `{"jsonrpc":"2.0","result":{"status":"error","data":{"event":"update"}}}`,
		"no result":     `{"jsonrpc":"2.0","id":2}`,
		"unknown event": `{"jsonrpc":"2.0","result":{"status":"ok","data":{"event":"snapshot","pair":{"id":"x"}}}}`,
		"no pair":       `{"jsonrpc":"2.0","result":{"status":"ok","data":{"event":"update"}}}`,
	} {
		pairEv, priceEv, err := parseMessage([]byte(msg))
		assert.NoError(t, err, name)
		assert.Nil(t, pairEv, name)
		assert.Nil(t, priceEv, name)
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	_, _, err := parseMessage([]byte("not json"))
	assert.Error(t, err)
}

func TestPairSymbolsAreTrimmed(t *testing.T) {
	w := wirePair{
		Exchange: "pancakev2",
		Token0:   wireToken{ID: "0x1", Symbol: " ABC "},
		Token1:   wireToken{ID: "0x2", Symbol: "WBNB"},
	}
	p := w.toDomain()
	assert.Equal(t, "ABC", p.Base)
	assert.Equal(t, "ABC_WBNB_56_pancakev2", p.ID)
}
