package crypto

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Wallet holds the trading account's secp256k1 key and derives transaction
// signers for on-chain swaps.
type Wallet struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int
}

// NewWallet creates a Wallet from a hex-encoded private key and the target
// chain ID (56 for BSC mainnet, 97 for the testnet).
func NewWallet(privateKeyHex string, chainID int64) (*Wallet, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto/wallet: invalid private key: %w", err)
	}

	return &Wallet{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
		chainID:    big.NewInt(chainID),
	}, nil
}

// Address returns the wallet's Ethereum address.
func (w *Wallet) Address() common.Address {
	return w.address
}

// ChainID returns the chain the wallet signs for.
func (w *Wallet) ChainID() *big.Int {
	return w.chainID
}

// Transactor returns an EIP-155 bound transactor for contract calls.
func (w *Wallet) Transactor() (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(w.privateKey, w.chainID)
	if err != nil {
		return nil, fmt.Errorf("crypto/wallet: build transactor: %w", err)
	}
	return opts, nil
}
