package pancake

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

// swapFeeBps is the PancakeSwap v2 LP fee in basis points.
const swapFeeBps = 25

// bpsDenominator scales basis-point math for fees and slippage.
var bpsDenominator = big.NewInt(10_000)

// swapPlan is the opaque quote handle handed to the Executor. It pins the
// exact path and raw amounts the quote was computed for so the swap cannot
// drift from the decision that approved it.
type swapPlan struct {
	Path     []common.Address
	AmountIn *big.Int
	MinOut   *big.Int
}

// Quoter computes single-hop quotes from live pair reserves. It implements
// domain.Quoter.
type Quoter struct {
	caller  bind.ContractCaller
	factory common.Address
	logger  *slog.Logger
}

// NewQuoter creates a Quoter bound to a v2 factory contract.
func NewQuoter(caller bind.ContractCaller, factory common.Address, logger *slog.Logger) *Quoter {
	return &Quoter{
		caller:  caller,
		factory: factory,
		logger:  logger.With(slog.String("component", "pancake.quoter")),
	}
}

// Quote prices selling sellAmount of sell for buy on the direct v2 pool.
// Returns domain.ErrNoRoute when the factory has no pool for the pair and
// domain.ErrLiquidityTooLow when the pool exists but cannot fill the trade.
func (q *Quoter) Quote(ctx context.Context, sell, buy domain.Token, sellAmount float64, slippageBps int) (domain.Quote, error) {
	if sellAmount <= 0 {
		return domain.Quote{}, fmt.Errorf("pancake: sell amount %f must be positive", sellAmount)
	}

	sellAddr := common.HexToAddress(sell.Address)
	buyAddr := common.HexToAddress(buy.Address)

	pairAddr, err := q.pairFor(ctx, sellAddr, buyAddr)
	if err != nil {
		return domain.Quote{}, err
	}
	if pairAddr == (common.Address{}) {
		return domain.Quote{}, domain.ErrNoRoute
	}

	reserveIn, reserveOut, err := q.orientedReserves(ctx, pairAddr, sellAddr)
	if err != nil {
		return domain.Quote{}, err
	}
	if reserveIn.Sign() == 0 || reserveOut.Sign() == 0 {
		return domain.Quote{}, domain.ErrLiquidityTooLow
	}

	amountIn := toUnits(sellAmount, sell.Decimals)
	if amountIn.Sign() == 0 {
		return domain.Quote{}, fmt.Errorf("pancake: sell amount %f rounds to zero units", sellAmount)
	}

	amountOut := constantProductOut(amountIn, reserveIn, reserveOut)
	if amountOut.Sign() == 0 {
		return domain.Quote{}, domain.ErrLiquidityTooLow
	}

	outAmount := fromUnits(amountOut, buy.Decimals)
	midPrice := fromUnits(reserveOut, buy.Decimals) / fromUnits(reserveIn, sell.Decimals)
	nextMid := fromUnits(new(big.Int).Sub(reserveOut, amountOut), buy.Decimals) /
		fromUnits(new(big.Int).Add(reserveIn, amountIn), sell.Decimals)
	executionPrice := outAmount / sellAmount

	impact := 0.0
	if midPrice > 0 {
		impact = (midPrice - executionPrice) / midPrice * 100
	}

	slipMul := new(big.Int).Sub(bpsDenominator, big.NewInt(int64(slippageBps)))
	minOut := new(big.Int).Quo(new(big.Int).Mul(amountOut, slipMul), bpsDenominator)

	q.logger.DebugContext(ctx, "quote computed",
		slog.String("sell", sell.Symbol),
		slog.String("buy", buy.Symbol),
		slog.Float64("sell_amount", sellAmount),
		slog.Float64("execution_price", executionPrice),
		slog.Float64("price_impact_pct", impact),
	)

	return domain.Quote{
		SellToken:          sell,
		BuyToken:           buy,
		SellAmount:         sellAmount,
		ExecutionPrice:     executionPrice,
		MidPrice:           midPrice,
		NextMidPrice:       nextMid,
		PriceImpactPercent: impact,
		MinimumOut:         fromUnits(minOut, buy.Decimals),
		Handle: &swapPlan{
			Path:     []common.Address{sellAddr, buyAddr},
			AmountIn: amountIn,
			MinOut:   minOut,
		},
	}, nil
}

func (q *Quoter) pairFor(ctx context.Context, tokenA, tokenB common.Address) (common.Address, error) {
	factory := bind.NewBoundContract(q.factory, factoryABI, q.caller, nil, nil)

	var out []any
	if err := factory.Call(&bind.CallOpts{Context: ctx}, &out, "getPair", tokenA, tokenB); err != nil {
		return common.Address{}, fmt.Errorf("pancake: factory getPair: %w", err)
	}
	return *abiAddress(out[0]), nil
}

// orientedReserves returns the pool reserves ordered as (in, out) for a swap
// selling sellToken.
func (q *Quoter) orientedReserves(ctx context.Context, pairAddr, sellToken common.Address) (*big.Int, *big.Int, error) {
	pair := bind.NewBoundContract(pairAddr, pairABI, q.caller, nil, nil)
	opts := &bind.CallOpts{Context: ctx}

	var tokenOut []any
	if err := pair.Call(opts, &tokenOut, "token0"); err != nil {
		return nil, nil, fmt.Errorf("pancake: pair token0: %w", err)
	}
	token0 := *abiAddress(tokenOut[0])

	var resOut []any
	if err := pair.Call(opts, &resOut, "getReserves"); err != nil {
		return nil, nil, fmt.Errorf("pancake: pair getReserves: %w", err)
	}
	reserve0 := abiBigInt(resOut[0])
	reserve1 := abiBigInt(resOut[1])

	if sellToken == token0 {
		return reserve0, reserve1, nil
	}
	return reserve1, reserve0, nil
}

// constantProductOut applies x*y=k with the LP fee taken from the input
// side, matching the router's getAmountOut.
func constantProductOut(amountIn, reserveIn, reserveOut *big.Int) *big.Int {
	feeMul := new(big.Int).Sub(bpsDenominator, big.NewInt(swapFeeBps))
	inWithFee := new(big.Int).Mul(amountIn, feeMul)
	numerator := new(big.Int).Mul(inWithFee, reserveOut)
	denominator := new(big.Int).Add(new(big.Int).Mul(reserveIn, bpsDenominator), inWithFee)
	return new(big.Int).Quo(numerator, denominator)
}

// toUnits converts a human-readable token amount to raw integer units.
func toUnits(amount float64, decimals int) *big.Int {
	f := new(big.Float).SetPrec(128).SetFloat64(amount)
	scale := new(big.Float).SetPrec(128).SetFloat64(math.Pow10(decimals))
	f.Mul(f, scale)
	out, _ := f.Int(nil)
	return out
}

// fromUnits converts raw integer units back to a human-readable amount.
func fromUnits(v *big.Int, decimals int) float64 {
	f := new(big.Float).SetPrec(128).SetInt(v)
	scale := new(big.Float).SetPrec(128).SetFloat64(math.Pow10(decimals))
	f.Quo(f, scale)
	out, _ := f.Float64()
	return out
}

func abiAddress(v any) *common.Address {
	addr, _ := v.(common.Address)
	return &addr
}

func abiBigInt(v any) *big.Int {
	n, _ := v.(*big.Int)
	if n == nil {
		return new(big.Int)
	}
	return n
}

var _ domain.Quoter = (*Quoter)(nil)
