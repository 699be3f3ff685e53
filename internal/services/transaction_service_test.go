package services

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/foodsecure-backend/internal/chain"
	"github.com/javajoker/foodsecure-backend/internal/events"
)

type fakeRelayer struct {
	result *chain.RelayResult
	err    error
	raw    []string
}

func (r *fakeRelayer) Relay(_ context.Context, rawTx string) (*chain.RelayResult, error) {
	r.raw = append(r.raw, rawTx)
	return r.result, r.err
}

type forgetCall struct {
	account   common.Address
	productID uint64
}

type recordingForgetter struct {
	calls []forgetCall
}

func (f *recordingForgetter) Forget(_ context.Context, account common.Address, productID uint64) {
	f.calls = append(f.calls, forgetCall{account, productID})
}

func TestTransactionServiceRelay(t *testing.T) {
	relayer := &fakeRelayer{result: &chain.RelayResult{
		Receipt: chain.Receipt{TxHash: common.HexToHash("0xfeed"), BlockNumber: 88, ProductID: 4},
		From:    distributorAddr,
		Method:  "payAmountDue",
	}}
	cache := &recordingForgetter{}
	publisher := &recordingPublisher{}
	svc := NewTransactionService(relayer, cache, publisher)

	view, err := svc.Relay(context.Background(), distributorAddr.Hex(), &RawTransactionRequest{RawTx: "0x02f8"})
	require.NoError(t, err)

	assert.Equal(t, "payAmountDue", view.Method)
	assert.Equal(t, distributorAddr.Hex(), view.From)
	assert.Equal(t, "4", view.ProductID)
	assert.Equal(t, uint64(88), view.BlockNumber)
	assert.Equal(t, []string{"0x02f8"}, relayer.raw)
	assert.Equal(t, []forgetCall{{distributorAddr, 4}}, cache.calls)
	assert.Equal(t, []string{events.EventTransactionRelayed}, publisher.types())
}

func TestTransactionServiceRelayErrors(t *testing.T) {
	relayer := &fakeRelayer{err: chain.ErrInvalidInput}
	cache := &recordingForgetter{}
	publisher := &recordingPublisher{}
	svc := NewTransactionService(relayer, cache, publisher)
	ctx := context.Background()

	_, err := svc.Relay(ctx, distributorAddr.Hex(), &RawTransactionRequest{RawTx: "deadbeef"})
	var verrs validator.ValidationErrors
	assert.True(t, errors.As(err, &verrs))
	assert.Empty(t, relayer.raw)

	_, err = svc.Relay(ctx, distributorAddr.Hex(), &RawTransactionRequest{RawTx: "0x00"})
	assert.ErrorIs(t, err, chain.ErrInvalidInput)
	assert.Empty(t, cache.calls)
	assert.Empty(t, publisher.types())
}
