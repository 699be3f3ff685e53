// internal/services/transaction_service.go
package services

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/foodsecure-backend/internal/chain"
	"github.com/javajoker/foodsecure-backend/internal/events"
	"github.com/javajoker/foodsecure-backend/internal/utils"
)

// CacheForgetter drops cached contract reads after a write that did not go through the cache.
type CacheForgetter interface {
	Forget(ctx context.Context, account common.Address, productID uint64)
}

// TransactionService relays transactions signed in the participant's browser wallet.
type TransactionService struct {
	relayer   chain.Relayer
	cache     CacheForgetter
	publisher events.Publisher
}

type RawTransactionRequest struct {
	RawTx string `json:"raw_tx" validate:"required,startswith=0x"`
}

type RelayView struct {
	TxView
	From   string `json:"from"`
	Method string `json:"method"`
}

func NewTransactionService(relayer chain.Relayer, cache CacheForgetter, publisher events.Publisher) *TransactionService {
	return &TransactionService{
		relayer:   relayer,
		cache:     cache,
		publisher: publisher,
	}
}

// Relay submits rawTx. The sender is recovered from the transaction signature.
func (s *TransactionService) Relay(ctx context.Context, wallet string, req *RawTransactionRequest) (*RelayView, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	account, err := parseAccount(wallet)
	if err != nil {
		return nil, err
	}

	call, err := s.relayer.Relay(ctx, req.RawTx)
	if err != nil {
		return nil, err
	}
	if call.From != account {
		logrus.WithFields(logrus.Fields{
			"signer": call.From.Hex(),
			"wallet": account.Hex(),
		}).Warn("Relayed transaction signer differs from session wallet")
	}

	if s.cache != nil {
		s.cache.Forget(ctx, call.From, call.ProductID)
	}

	publishEvent(ctx, s.publisher, events.EventTransactionRelayed, call.From.Hex(), events.TransactionRelayedPayload{
		Method:    call.Method,
		From:      call.From.Hex(),
		ProductID: call.ProductID,
		TxHash:    call.TxHash.Hex(),
	})

	return &RelayView{
		TxView: NewTxView(&call.Receipt),
		From:   call.From.Hex(),
		Method: call.Method,
	}, nil
}
