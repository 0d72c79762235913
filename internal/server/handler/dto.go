package handler

import (
	"encoding/json"
	"time"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

// intentView is the JSON shape of a trading intent.
type intentView struct {
	ID            string   `json:"id"`
	PairID        string   `json:"pair_id"`
	Status        string   `json:"status"`
	Entry         *float64 `json:"entry,omitempty"`
	TP            *float64 `json:"tp,omitempty"`
	SL            *float64 `json:"sl,omitempty"`
	Vol           *float64 `json:"vol,omitempty"`
	ProfitPercent *float64 `json:"profit_percent,omitempty"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
}

func toIntentView(i domain.TradingIntent) intentView {
	return intentView{
		ID:            i.ID,
		PairID:        i.PairID,
		Status:        string(i.Status),
		Entry:         i.Entry,
		TP:            i.TP,
		SL:            i.SL,
		Vol:           i.Vol,
		ProfitPercent: i.ProfitPercent,
		CreatedAt:     i.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     i.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// tradeView is the JSON shape of one trade history row.
type tradeView struct {
	ID                 string          `json:"id"`
	Sell               string          `json:"sell"`
	Buy                string          `json:"buy"`
	SellAmount         float64         `json:"sell_amount"`
	ReceivedAmount     float64         `json:"received_amount"`
	Price              float64         `json:"price"`
	PriceImpactPercent float64         `json:"price_impact_percent"`
	DurationMs         int64           `json:"duration_ms"`
	Status             string          `json:"status"`
	Receipt            json.RawMessage `json:"receipt,omitempty"`
	CreatedAt          string          `json:"created_at"`
}

func toTradeView(t domain.TradeHistoryEntry) tradeView {
	return tradeView{
		ID:                 t.ID,
		Sell:               t.Sell,
		Buy:                t.Buy,
		SellAmount:         t.SellAmount,
		ReceivedAmount:     t.ReceivedAmount,
		Price:              t.Price,
		PriceImpactPercent: t.PriceImpactPercent,
		DurationMs:         t.Duration.Milliseconds(),
		Status:             string(t.Status),
		Receipt:            t.Receipt,
		CreatedAt:          t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// riskView is the JSON shape of the risk directive.
type riskView struct {
	MinPairBudgetUSD        float64  `json:"min_pair_budget_usd"`
	MaxPairBudgetUSD        float64  `json:"max_pair_budget_usd"`
	MaxVolPercentOfLP       float64  `json:"max_vol_percent_of_lp"`
	SafeLPSizeUSD           float64  `json:"safe_lp_size_usd"`
	SlippageTolerantPercent float64  `json:"slippage_tolerant_percent"`
	TPTarget                float64  `json:"tp_target"`
	SLTarget                float64  `json:"sl_target"`
	FixedGasPriceGwei       *float64 `json:"fixed_gas_price_gwei,omitempty"`
	UpdatedAt               string   `json:"updated_at,omitempty"`
}

func toRiskView(d domain.RiskDirective) riskView {
	v := riskView{
		MinPairBudgetUSD:        d.MinPairBudgetUSD,
		MaxPairBudgetUSD:        d.MaxPairBudgetUSD,
		MaxVolPercentOfLP:       d.MaxVolPercentOfLP,
		SafeLPSizeUSD:           d.SafeLPSizeUSD,
		SlippageTolerantPercent: d.SlippageTolerantPercent,
		TPTarget:                d.TPTarget,
		SLTarget:                d.SLTarget,
		FixedGasPriceGwei:       d.FixedGasPriceGwei,
	}
	if !d.UpdatedAt.IsZero() {
		v.UpdatedAt = d.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return v
}

func (v riskView) toDomain() domain.RiskDirective {
	return domain.RiskDirective{
		MinPairBudgetUSD:        v.MinPairBudgetUSD,
		MaxPairBudgetUSD:        v.MaxPairBudgetUSD,
		MaxVolPercentOfLP:       v.MaxVolPercentOfLP,
		SafeLPSizeUSD:           v.SafeLPSizeUSD,
		SlippageTolerantPercent: v.SlippageTolerantPercent,
		TPTarget:                v.TPTarget,
		SLTarget:                v.SLTarget,
		FixedGasPriceGwei:       v.FixedGasPriceGwei,
	}
}

// quoteSymbolView is the JSON shape of one quote allow-list entry.
type quoteSymbolView struct {
	Symbol        string `json:"symbol"`
	Address       string `json:"address"`
	Decimals      int    `json:"decimals"`
	IsStable      bool   `json:"is_stable"`
	BinanceSymbol string `json:"binance_symbol,omitempty"`
}

func toQuoteSymbolView(q domain.QuoteSymbol) quoteSymbolView {
	return quoteSymbolView(q)
}

func (v quoteSymbolView) toDomain() domain.QuoteSymbol {
	return domain.QuoteSymbol(v)
}

// pairView is the JSON shape of a liquidity pair.
type pairView struct {
	ID           string  `json:"id"`
	Base         string  `json:"base"`
	Quote        string  `json:"quote"`
	ChainID      int     `json:"chain_id"`
	ExchangeID   string  `json:"exchange_id"`
	Address      string  `json:"address"`
	Token0       string  `json:"token0"`
	Token1       string  `json:"token1"`
	Reserve0     float64 `json:"reserve0"`
	Reserve1     float64 `json:"reserve1"`
	LiquidityUSD float64 `json:"liquidity_usd"`
	CreatedAt    string  `json:"created_at"`
}

func toPairView(p domain.Pair) pairView {
	return pairView{
		ID:           p.ID,
		Base:         p.Base,
		Quote:        p.Quote,
		ChainID:      p.ChainID,
		ExchangeID:   p.ExchangeID,
		Address:      p.Address,
		Token0:       p.Token0.Address,
		Token1:       p.Token1.Address,
		Reserve0:     p.Reserve0,
		Reserve1:     p.Reserve1,
		LiquidityUSD: p.LiquidityUSD,
		CreatedAt:    p.CreatedAt.UTC().Format(time.RFC3339),
	}
}
