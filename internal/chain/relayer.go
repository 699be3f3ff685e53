package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/foodsecure-backend/internal/models"
)

// Relayer accepts a transaction signed in the browser wallet.
type Relayer interface {
	Relay(ctx context.Context, rawTx string) (*RelayResult, error)
}

type RelayResult struct {
	Receipt
	From   common.Address
	Method string
}

// SignedTx identifies the wallet-signed transaction behind a write.
type SignedTx struct {
	Hash  common.Hash
	Nonce uint64
}

type signedTxKey struct{}

// WithSignedTx marks writes made with ctx as coming from tx.
func WithSignedTx(ctx context.Context, tx SignedTx) context.Context {
	return context.WithValue(ctx, signedTxKey{}, tx)
}

// SignedTxFrom returns the signed transaction carried by ctx, if any.
func SignedTxFrom(ctx context.Context) (SignedTx, bool) {
	tx, ok := ctx.Value(signedTxKey{}).(SignedTx)
	return tx, ok
}

// DecodedCall is a signed SupplyChain transaction with its calldata unpacked.
type DecodedCall struct {
	Tx     *types.Transaction
	From   common.Address
	Method *abi.Method
	Args   []interface{}
}

// DecodeCall parses a hex encoded signed transaction addressed to contract.
func DecodeCall(rawTx string, chainID *big.Int, contract common.Address) (*DecodedCall, error) {
	raw, err := hexutil.Decode(rawTx)
	if err != nil {
		return nil, fmt.Errorf("%w: raw transaction is not hex: %v", ErrInvalidInput, err)
	}
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("%w: decode transaction: %v", ErrInvalidInput, err)
	}
	if tx.To() == nil || *tx.To() != contract {
		return nil, fmt.Errorf("%w: transaction is not addressed to the supply chain contract", ErrInvalidInput)
	}

	from, err := types.Sender(types.LatestSignerForChainID(chainID), tx)
	if err != nil {
		return nil, fmt.Errorf("%w: recover sender: %v", ErrInvalidInput, err)
	}

	data := tx.Data()
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: missing method selector", ErrInvalidInput)
	}
	method, err := SupplyChainABI.MethodById(data[:4])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("%w: unpack %s: %v", ErrInvalidInput, method.Name, err)
	}

	return &DecodedCall{Tx: tx, From: from, Method: method, Args: args}, nil
}

// EthRelayer broadcasts raw transactions to the node behind an EthContract.
type EthRelayer struct {
	contract *EthContract
	chainID  *big.Int
}

func NewEthRelayer(contract *EthContract, chainID *big.Int) *EthRelayer {
	return &EthRelayer{contract: contract, chainID: chainID}
}

func (r *EthRelayer) Relay(ctx context.Context, rawTx string) (*RelayResult, error) {
	call, err := DecodeCall(rawTx, r.chainID, r.contract.Address())
	if err != nil {
		return nil, err
	}

	if err := r.contract.backend.SendTransaction(ctx, call.Tx); err != nil {
		return nil, mapCallError(call.Method.Name, err)
	}
	logrus.WithFields(logrus.Fields{
		"method":  call.Method.Name,
		"from":    call.From.Hex(),
		"tx_hash": call.Tx.Hash().Hex(),
	}).Info("Relayed signed transaction")

	receipt, err := r.contract.wait(ctx, call.Tx)
	if err != nil {
		return nil, err
	}
	if receipt.ProductID == 0 {
		receipt.ProductID = productIDArg(call)
	}
	return &RelayResult{Receipt: *receipt, From: call.From, Method: call.Method.Name}, nil
}

// CalldataRelayer applies signed transactions to a Writer without a node.
// The signature proves the sender; the calldata selects the write. The
// writer sees the transaction hash and nonce through SignedTxFrom and is
// expected to reject replays.
type CalldataRelayer struct {
	writer   Writer
	chainID  *big.Int
	contract common.Address
}

func NewCalldataRelayer(writer Writer, chainID *big.Int, contract common.Address) *CalldataRelayer {
	return &CalldataRelayer{writer: writer, chainID: chainID, contract: contract}
}

func (r *CalldataRelayer) Relay(ctx context.Context, rawTx string) (*RelayResult, error) {
	call, err := DecodeCall(rawTx, r.chainID, r.contract)
	if err != nil {
		return nil, err
	}

	receipt, err := r.dispatch(ctx, call)
	if err != nil {
		return nil, err
	}
	return &RelayResult{Receipt: *receipt, From: call.From, Method: call.Method.Name}, nil
}

func (r *CalldataRelayer) dispatch(ctx context.Context, call *DecodedCall) (*Receipt, error) {
	ctx = WithSignedTx(ctx, SignedTx{Hash: call.Tx.Hash(), Nonce: call.Tx.Nonce()})
	a := call.Args
	switch call.Method.Name {
	case "registerRole":
		return r.writer.RegisterRole(ctx, call.From, Registration{
			Role:            models.Role(a[0].(uint8)),
			Email:           a[1].(string),
			PhysicalAddress: a[2].(string),
			CompanyName:     a[3].(string),
			LicenseCID:      a[4].(string),
			PhoneNumber:     a[5].(string),
		})
	case "createProduct":
		attrs := *abi.ConvertType(a[4], new(attributesTuple)).(*attributesTuple)
		return r.writer.CreateProduct(ctx, call.From, NewProduct{
			Barcode:             a[0].(string),
			Name:                a[1].(string),
			ComponentProductIDs: bigsToUint64s(a[2].([]*big.Int)),
			ComponentQuantities: bigsToUint64s(a[3].([]*big.Int)),
			Attributes:          attrs.toAttributes(),
		})
	case "updateShipmentBySupplier":
		return r.writer.UpdateShipmentBySupplier(ctx, call.From, bigToUint64(a[0].(*big.Int)),
			a[1].(string), a[2].(common.Address), a[3].(common.Address))
	case "updateShipmentStatus":
		return r.writer.UpdateShipmentStatus(ctx, call.From, bigToUint64(a[0].(*big.Int)),
			models.ShipmentStatus(a[1].(uint8)), a[2].(string))
	case "markParcelReceived":
		return r.writer.MarkParcelReceived(ctx, call.From, bigToUint64(a[0].(*big.Int)), a[1].(string))
	case "payAmountDue":
		return r.writer.PayAmountDue(ctx, call.From, bigToUint64(a[0].(*big.Int)), call.Tx.Value())
	case "updateSoldOut":
		return r.writer.UpdateSoldOut(ctx, call.From, bigToUint64(a[0].(*big.Int)), bigToUint64(a[1].(*big.Int)))
	default:
		return nil, fmt.Errorf("%w: %s is not a state-changing method", ErrInvalidInput, call.Method.Name)
	}
}

func productIDArg(call *DecodedCall) uint64 {
	if call.Method.Name == "registerRole" || call.Method.Name == "createProduct" || len(call.Args) == 0 {
		return 0
	}
	if id, ok := call.Args[0].(*big.Int); ok {
		return bigToUint64(id)
	}
	return 0
}

func (t attributesTuple) toAttributes() Attributes {
	return Attributes{
		PlaceOfOrigin:    t.PlaceOfOrigin,
		ProductionDate:   t.ProductionDate,
		ExpirationDate:   t.ExpirationDate,
		UnitQuantity:     bigToUint64(t.UnitQuantity),
		UnitQuantityType: t.UnitQuantityType,
		BatchQuantity:    bigToUint64(t.BatchQuantity),
		UnitPrice:        copyBig(t.UnitPrice),
		Category:         t.Category,
		Variety:          t.Variety,
		Misc:             t.Misc,
	}
}
