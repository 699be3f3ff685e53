package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/foodsecure-backend/internal/models"
)

func TestVerifySignature(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)

	sig, err := SignMessage(key, "Sign in to FoodSecure\nNonce: abc")
	require.NoError(t, err)

	assert.NoError(t, VerifySignature(addr, "Sign in to FoodSecure\nNonce: abc", sig))
	assert.ErrorIs(t, VerifySignature(addr, "a different message", sig), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature(common.HexToAddress("0x01"), "Sign in to FoodSecure\nNonce: abc", sig), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature(addr, "x", "not-hex"), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature(addr, "x", "0x1234"), ErrInvalidSignature)
}

func TestKeyWallet(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	hexKey := hexutil.Encode(crypto.FromECDSA(key))
	addr := crypto.PubkeyToAddress(key.PublicKey)

	w, err := NewKeyWallet([]string{hexKey, hexKey[2:]}, big.NewInt(11155111))
	require.NoError(t, err)
	assert.Equal(t, []common.Address{addr}, w.Accounts())

	opts, err := w.Transactor(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, addr, opts.From)

	_, err = w.Transactor(context.Background(), common.HexToAddress("0xdead"))
	assert.ErrorIs(t, err, ErrWalletUnavailable)

	_, err = NewKeyWallet([]string{"zz"}, big.NewInt(1))
	assert.Error(t, err)
}

func TestSupplyChainABI(t *testing.T) {
	for _, name := range []string{
		"registerRole", "createProduct", "updateShipmentBySupplier", "updateShipmentStatus",
		"markParcelReceived", "payAmountDue", "updateSoldOut", "getInventory",
		"getProductsForNextOwner", "getProductsForLogisticPartner", "getProductsCreatedBy",
		"getUserRole", "users", "getProduct",
	} {
		_, ok := SupplyChainABI.Methods[name]
		assert.True(t, ok, name)
	}
	for _, name := range []string{"ProductHistoryRecorded", "InvoicePaid", "ProductCreated", "RoleRegistered"} {
		_, ok := SupplyChainABI.Events[name]
		assert.True(t, ok, name)
	}
	assert.True(t, SupplyChainABI.Methods["payAmountDue"].IsPayable())
}

func TestProductTupleDecoding(t *testing.T) {
	in := productTuple{
		Id:                  big.NewInt(7),
		Barcode:             "8901",
		Name:                "Tomato sauce",
		Creator:             common.HexToAddress("0x1"),
		Owner:               common.HexToAddress("0x2"),
		ComponentProductIds: []*big.Int{big.NewInt(3)},
		ComponentQuantities: []*big.Int{big.NewInt(10)},
		PreviousLocations:   []string{"Farm"},
		Attributes: attributesTuple{
			PlaceOfOrigin:    "Farm",
			UnitQuantity:     big.NewInt(500),
			UnitQuantityType: "g",
			BatchQuantity:    big.NewInt(40),
			UnitPrice:        big.NewInt(1e15),
			Misc:             "IPFS:abc123",
		},
		LocationEntry:  locationEntryTuple{Location: "Plant", ArrivalDate: "2024-05-01"},
		NextOwner:      common.HexToAddress("0x3"),
		ShipmentStatus: 2,
		AmountDue:      big.NewInt(4e16),
	}

	packed, err := SupplyChainABI.Methods["getProduct"].Outputs.Pack(in)
	require.NoError(t, err)
	out, err := SupplyChainABI.Unpack("getProduct", packed)
	require.NoError(t, err)

	p := abi.ConvertType(out[0], new(productTuple)).(*productTuple).toProduct()
	assert.Equal(t, uint64(7), p.ID)
	assert.Equal(t, "Tomato sauce", p.Name)
	assert.Equal(t, []uint64{3}, p.ComponentProductIDs)
	assert.Equal(t, uint64(40), p.Attributes.BatchQuantity)
	assert.Equal(t, "1000000000000000", p.Attributes.UnitPrice.String())
	assert.Equal(t, "Plant", p.Location.Location)
	assert.Equal(t, models.StatusPickedUp, p.ShipmentStatus)
	assert.Equal(t, "40000000000000000", p.AmountDue.String())
}

func TestMapCallError(t *testing.T) {
	assert.NoError(t, mapCallError("x", nil))

	err := mapCallError("payAmountDue", errors.New("execution reverted: Incorrect payment"))
	assert.ErrorIs(t, err, ErrIncorrectPayment)
	assert.True(t, IsRevert(err))

	err = mapCallError("getUserRole", errors.New("execution reverted: Not registered"))
	assert.ErrorIs(t, err, ErrNotRegistered)

	err = mapCallError("createProduct", errors.New("execution reverted"))
	assert.ErrorIs(t, err, ErrTransactionReverted)

	err = mapCallError("getProduct", errors.New("dial tcp: connection refused"))
	assert.False(t, IsRevert(err))
}

func TestPaymentFilterMatches(t *testing.T) {
	payer := common.HexToAddress("0xa")
	id := uint64(4)
	p := Payment{ProductID: 4, Payer: payer, Payee: common.HexToAddress("0xb")}

	assert.True(t, PaymentFilter{}.Matches(p))
	assert.True(t, PaymentFilter{ProductID: &id, Payer: &payer}.Matches(p))
	other := common.HexToAddress("0xc")
	assert.False(t, PaymentFilter{Payee: &other}.Matches(p))
}

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) RegisterRole(ctx context.Context, from common.Address, reg Registration) (*Receipt, error) {
	args := m.Called(from, reg)
	return args.Get(0).(*Receipt), args.Error(1)
}

func (m *mockWriter) CreateProduct(ctx context.Context, from common.Address, p NewProduct) (*Receipt, error) {
	args := m.Called(from, p)
	return args.Get(0).(*Receipt), args.Error(1)
}

func (m *mockWriter) UpdateShipmentBySupplier(ctx context.Context, from common.Address, productID uint64, merchantName string, nextOwner, logisticPartner common.Address) (*Receipt, error) {
	args := m.Called(from, productID, merchantName, nextOwner, logisticPartner)
	return args.Get(0).(*Receipt), args.Error(1)
}

func (m *mockWriter) UpdateShipmentStatus(ctx context.Context, from common.Address, productID uint64, status models.ShipmentStatus, location string) (*Receipt, error) {
	args := m.Called(from, productID, status, location)
	return args.Get(0).(*Receipt), args.Error(1)
}

func (m *mockWriter) MarkParcelReceived(ctx context.Context, from common.Address, productID uint64, podCID string) (*Receipt, error) {
	args := m.Called(from, productID, podCID)
	return args.Get(0).(*Receipt), args.Error(1)
}

func (m *mockWriter) PayAmountDue(ctx context.Context, from common.Address, productID uint64, value *big.Int) (*Receipt, error) {
	args := m.Called(from, productID, value)
	return args.Get(0).(*Receipt), args.Error(1)
}

func (m *mockWriter) UpdateSoldOut(ctx context.Context, from common.Address, productID uint64, quantity uint64) (*Receipt, error) {
	args := m.Called(from, productID, quantity)
	return args.Get(0).(*Receipt), args.Error(1)
}

func signedCall(t *testing.T, chainID *big.Int, to common.Address, value *big.Int, method string, params ...interface{}) (string, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	data, err := SupplyChainABI.Pack(method, params...)
	require.NoError(t, err)

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    0,
		To:       &to,
		Value:    value,
		Gas:      300000,
		GasPrice: big.NewInt(1),
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
	require.NoError(t, err)
	raw, err := signed.MarshalBinary()
	require.NoError(t, err)
	return hexutil.Encode(raw), crypto.PubkeyToAddress(key.PublicKey)
}

func TestCalldataRelayer(t *testing.T) {
	chainID := big.NewInt(11155111)
	contract := common.HexToAddress("0x59b670e9fA9D0A427751Af201D676719a970857b")

	t.Run("pay amount due carries value", func(t *testing.T) {
		w := new(mockWriter)
		raw, from := signedCall(t, chainID, contract, big.NewInt(5000), "payAmountDue", big.NewInt(9))
		w.On("PayAmountDue", from, uint64(9), big.NewInt(5000)).
			Return(&Receipt{ProductID: 9, BlockNumber: 3}, nil)

		res, err := NewCalldataRelayer(w, chainID, contract).Relay(context.Background(), raw)
		require.NoError(t, err)
		assert.Equal(t, "payAmountDue", res.Method)
		assert.Equal(t, from, res.From)
		assert.Equal(t, uint64(9), res.ProductID)
		w.AssertExpectations(t)
	})

	t.Run("create product unpacks attributes", func(t *testing.T) {
		w := new(mockWriter)
		attrs := newAttributesTuple(Attributes{PlaceOfOrigin: "Farm", BatchQuantity: 10, UnitPrice: big.NewInt(2)})
		raw, from := signedCall(t, chainID, contract, nil, "createProduct",
			"123", "Rice", []*big.Int{}, []*big.Int{}, attrs)
		w.On("CreateProduct", from, mock.MatchedBy(func(p NewProduct) bool {
			return p.Name == "Rice" && p.Attributes.BatchQuantity == 10 && p.Attributes.UnitPrice.Int64() == 2
		})).Return(&Receipt{ProductID: 1}, nil)

		res, err := NewCalldataRelayer(w, chainID, contract).Relay(context.Background(), raw)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), res.ProductID)
		w.AssertExpectations(t)
	})

	t.Run("rejects other contracts", func(t *testing.T) {
		raw, _ := signedCall(t, chainID, common.HexToAddress("0x1"), nil, "updateSoldOut", big.NewInt(1), big.NewInt(1))
		_, err := NewCalldataRelayer(new(mockWriter), chainID, contract).Relay(context.Background(), raw)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("rejects read methods", func(t *testing.T) {
		raw, _ := signedCall(t, chainID, contract, nil, "getProduct", big.NewInt(1))
		_, err := NewCalldataRelayer(new(mockWriter), chainID, contract).Relay(context.Background(), raw)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := NewCalldataRelayer(new(mockWriter), chainID, contract).Relay(context.Background(), "0xzz")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("writer errors surface", func(t *testing.T) {
		w := new(mockWriter)
		raw, from := signedCall(t, chainID, contract, nil, "updateSoldOut", big.NewInt(2), big.NewInt(0))
		w.On("UpdateSoldOut", from, uint64(2), uint64(0)).Return((*Receipt)(nil), fmt.Errorf("wrap: %w", ErrInvalidInput))
		_, err := NewCalldataRelayer(w, chainID, contract).Relay(context.Background(), raw)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

// logBackend records the filter queries an EthContract issues.
type logBackend struct {
	Backend
	queries []ethereum.FilterQuery
}

func (b *logBackend) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	b.queries = append(b.queries, q)
	return nil, nil
}

func TestEthContractScansFromConfiguredBlock(t *testing.T) {
	contract := common.HexToAddress("0x59b670e9fA9D0A427751Af201D676719a970857b")
	backend := new(logBackend)
	eth := NewEthContract(contract, backend, nil, 0).WithFromBlock(5123000)

	events, err := eth.ProductHistory(context.Background(), 3)
	require.NoError(t, err)
	assert.Empty(t, events)

	require.Len(t, backend.queries, 1)
	assert.Equal(t, big.NewInt(5123000), backend.queries[0].FromBlock)
	assert.Equal(t, []common.Address{contract}, backend.queries[0].Addresses)
}
