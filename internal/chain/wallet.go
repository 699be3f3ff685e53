package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Wallet resolves signing options for an account.
type Wallet interface {
	Accounts() []common.Address
	Transactor(ctx context.Context, account common.Address) (*bind.TransactOpts, error)
}

// KeyWallet signs with operator keys loaded from configuration.
type KeyWallet struct {
	chainID *big.Int
	keys    map[common.Address]*ecdsa.PrivateKey
	order   []common.Address
}

func NewKeyWallet(hexKeys []string, chainID *big.Int) (*KeyWallet, error) {
	w := &KeyWallet{
		chainID: chainID,
		keys:    make(map[common.Address]*ecdsa.PrivateKey, len(hexKeys)),
	}
	for i, hexKey := range hexKeys {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid private key #%d: %w", i, err)
		}
		addr := crypto.PubkeyToAddress(key.PublicKey)
		if _, exists := w.keys[addr]; exists {
			continue
		}
		w.keys[addr] = key
		w.order = append(w.order, addr)
	}
	return w, nil
}

func (w *KeyWallet) Accounts() []common.Address {
	out := make([]common.Address, len(w.order))
	copy(out, w.order)
	return out
}

func (w *KeyWallet) Transactor(ctx context.Context, account common.Address) (*bind.TransactOpts, error) {
	key, ok := w.keys[account]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWalletUnavailable, account.Hex())
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, w.chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return opts, nil
}
