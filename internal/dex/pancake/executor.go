package pancake

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/sniperlabs/dexsniper/internal/crypto"
	"github.com/sniperlabs/dexsniper/internal/domain"
)

// swapDeadline bounds how long a submitted swap stays valid on-chain.
const swapDeadline = 2 * time.Minute

// maxApproval is the unlimited ERC-20 allowance granted to the router once
// per sell token.
var maxApproval = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Backend is the subset of ethclient.Client the executor needs.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Executor submits swaps through the PancakeSwap v2 router and waits for
// them to be mined. It implements domain.SwapExecutor.
type Executor struct {
	backend Backend
	router  common.Address
	wallet  *crypto.Wallet
	logger  *slog.Logger
}

// NewExecutor creates an Executor for the given router contract.
func NewExecutor(backend Backend, router common.Address, wallet *crypto.Wallet, logger *slog.Logger) *Executor {
	return &Executor{
		backend: backend,
		router:  router,
		wallet:  wallet,
		logger:  logger.With(slog.String("component", "pancake.executor")),
	}
}

// ExecuteSwap submits the swap pinned in the quote's plan and blocks until
// the transaction is mined or the context expires. A mined-but-reverted
// transaction is returned as an error.
func (e *Executor) ExecuteSwap(ctx context.Context, q domain.Quote, opts domain.SwapOptions) (domain.SwapResult, error) {
	plan, ok := q.Handle.(*swapPlan)
	if !ok || plan == nil {
		return domain.SwapResult{}, fmt.Errorf("pancake: quote carries no swap plan")
	}

	start := time.Now()

	if err := e.ensureAllowance(ctx, plan.Path[0], plan.AmountIn); err != nil {
		return domain.SwapResult{}, err
	}

	txOpts, err := e.wallet.Transactor()
	if err != nil {
		return domain.SwapResult{}, err
	}
	txOpts.Context = ctx
	if opts.GasPrice != nil {
		txOpts.GasPrice = opts.GasPrice
	}

	deadline := big.NewInt(time.Now().Add(swapDeadline).Unix())
	router := bind.NewBoundContract(e.router, routerABI, e.backend, e.backend, nil)

	tx, err := router.Transact(txOpts,
		"swapExactTokensForTokensSupportingFeeOnTransferTokens",
		plan.AmountIn, plan.MinOut, plan.Path, e.wallet.Address(), deadline,
	)
	if err != nil {
		return domain.SwapResult{}, fmt.Errorf("pancake: submit swap: %w", err)
	}

	e.logger.InfoContext(ctx, "swap submitted",
		slog.String("tx", tx.Hash().Hex()),
		slog.String("sell", q.SellToken.Symbol),
		slog.String("buy", q.BuyToken.Symbol),
	)

	receipt, err := bind.WaitMined(ctx, e.backend, tx)
	if err != nil {
		return domain.SwapResult{}, fmt.Errorf("pancake: wait for swap %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return domain.SwapResult{}, fmt.Errorf("pancake: swap %s reverted", tx.Hash().Hex())
	}

	receiptJSON, err := receipt.MarshalJSON()
	if err != nil {
		e.logger.WarnContext(ctx, "receipt marshal failed",
			slog.String("tx", tx.Hash().Hex()),
			slog.String("error", err.Error()),
		)
		receiptJSON = nil
	}

	return domain.SwapResult{
		TxHash:   tx.Hash().Hex(),
		Duration: time.Since(start),
		Receipt:  receiptJSON,
	}, nil
}

// TokenBalance reads the wallet's ERC-20 balance of token.
func (e *Executor) TokenBalance(ctx context.Context, token domain.Token) (float64, error) {
	erc20 := bind.NewBoundContract(common.HexToAddress(token.Address), erc20ABI, e.backend, e.backend, nil)

	var out []any
	if err := erc20.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", e.wallet.Address()); err != nil {
		return 0, fmt.Errorf("pancake: read %s balance: %w", token.Symbol, err)
	}
	return fromUnits(abiBigInt(out[0]), token.Decimals), nil
}

// ensureAllowance grants the router an unlimited allowance for the sell
// token the first time it is traded.
func (e *Executor) ensureAllowance(ctx context.Context, token common.Address, amount *big.Int) error {
	erc20 := bind.NewBoundContract(token, erc20ABI, e.backend, e.backend, nil)

	var out []any
	if err := erc20.Call(&bind.CallOpts{Context: ctx}, &out, "allowance", e.wallet.Address(), e.router); err != nil {
		return fmt.Errorf("pancake: read allowance for %s: %w", token.Hex(), err)
	}
	if abiBigInt(out[0]).Cmp(amount) >= 0 {
		return nil
	}

	txOpts, err := e.wallet.Transactor()
	if err != nil {
		return err
	}
	txOpts.Context = ctx

	tx, err := erc20.Transact(txOpts, "approve", e.router, maxApproval)
	if err != nil {
		return fmt.Errorf("pancake: approve %s: %w", token.Hex(), err)
	}

	e.logger.InfoContext(ctx, "router approval submitted",
		slog.String("token", token.Hex()),
		slog.String("tx", tx.Hash().Hex()),
	)

	receipt, err := bind.WaitMined(ctx, e.backend, tx)
	if err != nil {
		return fmt.Errorf("pancake: wait for approval %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("pancake: approval %s reverted", tx.Hash().Hex())
	}
	return nil
}

var _ domain.SwapExecutor = (*Executor)(nil)
