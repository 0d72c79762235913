// Package feed consumes the dextools pool stream over WebSocket and turns
// raw pool events into persisted pairs and engine callbacks.
package feed

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

// bscChainID is the BNB Smart Chain mainnet chain ID.
const bscChainID = 56

// subscribeRequest is the JSON-RPC message that opens the pool stream.
type subscribeRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  subscribeParams `json:"params"`
	ID      int             `json:"id"`
}

type subscribeParams struct {
	Chain   string `json:"chain"`
	Channel string `json:"channel"`
}

func newSubscribeRequest(chain, channel string) subscribeRequest {
	return subscribeRequest{
		JSONRPC: "2.0",
		Method:  "subscribe",
		Params:  subscribeParams{Chain: chain, Channel: channel},
		ID:      2,
	}
}

// rpcResponse is the outer JSON-RPC envelope of every stream message.
type rpcResponse struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      int        `json:"id"`
	Result  *rpcResult `json:"result"`
}

type rpcResult struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// eventData covers both payload shapes the stream multiplexes: pool update
// events carry Event+Pair, native-currency ticks carry EthPriceUsd.
type eventData struct {
	Event           string    `json:"event"`
	Pair            *wirePair `json:"pair"`
	EthPriceUsd     *float64  `json:"ethPriceUsd"`
	EthTimestampUsd int64     `json:"ethTimestampUsd"`
}

type wireToken struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// wirePair is the dextools pool snapshot. Creation block info is present
// only on some events; its presence is not a reliable created/updated
// discriminator, so the dispatcher decides against the store instead.
type wirePair struct {
	ID                 string    `json:"id"`
	Exchange           string    `json:"exchange"`
	Token0             wireToken `json:"token0"`
	Token1             wireToken `json:"token1"`
	TokenIndex         int       `json:"tokenIndex"`
	Reserve0           float64   `json:"reserve0"`
	Reserve1           float64   `json:"reserve1"`
	Liquidity          float64   `json:"liquidity"`
	InitialReserve0    float64   `json:"initialReserve0"`
	InitialReserve1    float64   `json:"initialReserve1"`
	InitialLiquidity   float64   `json:"initialLiquidity"`
	ReserveUpdatedAt   string    `json:"reserveUpdatedAt"`
	CreatedAt          string    `json:"createdAt"`
	CreatedAtTimestamp int64     `json:"createdAtTimestamp"`
	Creation           *struct {
		Hash        string `json:"hash"`
		BlockNumber string `json:"blockNumber"`
	} `json:"creation"`
}

// PairEvent is one decoded pool event.
type PairEvent struct {
	Pair domain.Pair
}

// NativePriceEvent is one decoded native-currency price tick.
type NativePriceEvent struct {
	PriceUSD  float64
	Timestamp time.Time
}

// parseMessage decodes a raw stream message into exactly one of a pair
// event or a native price event. Both results are nil for messages that are
// well-formed but carry neither (unknown events, non-ok status).
func parseMessage(raw []byte) (*PairEvent, *NativePriceEvent, error) {
	var resp rpcResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, nil, fmt.Errorf("feed: decode envelope: %w", err)
	}
	if resp.Result == nil || resp.Result.Status != "ok" || len(resp.Result.Data) == 0 {
		return nil, nil, nil
	}

	var data eventData
	if err := json.Unmarshal(resp.Result.Data, &data); err != nil {
		return nil, nil, fmt.Errorf("feed: decode event data: %w", err)
	}

	if data.EthPriceUsd != nil {
		return nil, &NativePriceEvent{
			PriceUSD:  *data.EthPriceUsd,
			Timestamp: time.Unix(data.EthTimestampUsd, 0),
		}, nil
	}

	if data.Event != "update" || data.Pair == nil {
		return nil, nil, nil
	}
	return &PairEvent{Pair: data.Pair.toDomain()}, nil, nil
}

func (w *wirePair) toDomain() domain.Pair {
	base := strings.TrimSpace(w.Token0.Symbol)
	quote := strings.TrimSpace(w.Token1.Symbol)
	chainID := chainIDForExchange(w.Exchange)

	p := domain.Pair{
		ID:         domain.PairID(base, quote, chainID, w.Exchange),
		Base:       base,
		Quote:      quote,
		ChainID:    chainID,
		ExchangeID: w.Exchange,
		Address:    w.ID,

		Token0: domain.Token{
			Address:  w.Token0.ID,
			Symbol:   base,
			Name:     w.Token0.Name,
			Decimals: w.Token0.Decimals,
		},
		Token1: domain.Token{
			Address:  w.Token1.ID,
			Symbol:   quote,
			Name:     w.Token1.Name,
			Decimals: w.Token1.Decimals,
		},

		Reserve0:     w.Reserve0,
		Reserve1:     w.Reserve1,
		LiquidityUSD: w.Liquidity,

		InitialReserve0:     w.InitialReserve0,
		InitialReserve1:     w.InitialReserve1,
		InitialLiquidityUSD: w.InitialLiquidity,
	}

	if w.CreatedAtTimestamp > 0 {
		p.CreatedAt = time.Unix(w.CreatedAtTimestamp, 0)
	} else if t, err := time.Parse(time.RFC3339, w.CreatedAt); err == nil {
		p.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, w.ReserveUpdatedAt); err == nil {
		p.ReserveUpdatedAt = t
	}
	return p
}

func chainIDForExchange(exchange string) int {
	if exchange == "pancakev2" {
		return bscChainID
	}
	return 0
}
