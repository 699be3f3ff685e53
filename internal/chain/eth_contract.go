package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/foodsecure-backend/internal/models"
)

// Backend is the node connection EthContract needs. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// EthContract talks to a deployed SupplyChain contract over JSON-RPC.
type EthContract struct {
	address   common.Address
	backend   Backend
	bound     *bind.BoundContract
	wallet    Wallet
	txTimeout time.Duration
	// fromBlock bounds event scans; zero scans from genesis.
	fromBlock uint64
}

func NewEthContract(address common.Address, backend Backend, wallet Wallet, txTimeout time.Duration) *EthContract {
	return &EthContract{
		address:   address,
		backend:   backend,
		bound:     bind.NewBoundContract(address, SupplyChainABI, backend, backend, backend),
		wallet:    wallet,
		txTimeout: txTimeout,
	}
}

// WithFromBlock sets the first block scanned for history and payment events.
func (c *EthContract) WithFromBlock(block uint64) *EthContract {
	c.fromBlock = block
	return c
}

func (c *EthContract) Address() common.Address {
	return c.address
}

// Reads

func (c *EthContract) GetUserRole(ctx context.Context, account common.Address) (models.Role, error) {
	var out []interface{}
	if err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, "getUserRole", account); err != nil {
		return 0, mapCallError("getUserRole", err)
	}
	return models.Role(*abi.ConvertType(out[0], new(uint8)).(*uint8)), nil
}

func (c *EthContract) GetUser(ctx context.Context, account common.Address) (*User, error) {
	var out []interface{}
	if err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, "users", account); err != nil {
		return nil, mapCallError("users", err)
	}

	user := &User{
		Address:         account,
		Role:            models.Role(*abi.ConvertType(out[0], new(uint8)).(*uint8)),
		Email:           *abi.ConvertType(out[1], new(string)).(*string),
		PhysicalAddress: *abi.ConvertType(out[2], new(string)).(*string),
		CompanyName:     *abi.ConvertType(out[3], new(string)).(*string),
		LicenseCID:      *abi.ConvertType(out[4], new(string)).(*string),
		PhoneNumber:     *abi.ConvertType(out[5], new(string)).(*string),
		Registered:      *abi.ConvertType(out[6], new(bool)).(*bool),
	}
	if !user.Registered {
		return nil, ErrNotRegistered
	}
	return user, nil
}

func (c *EthContract) GetProduct(ctx context.Context, productID uint64) (*Product, error) {
	var out []interface{}
	if err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, "getProduct", new(big.Int).SetUint64(productID)); err != nil {
		return nil, mapCallError("getProduct", err)
	}
	tuple := *abi.ConvertType(out[0], new(productTuple)).(*productTuple)
	// Unknown ids come back as an empty struct.
	if tuple.Id == nil || tuple.Id.Sign() == 0 {
		return nil, ErrProductNotFound
	}
	product := tuple.toProduct()
	return &product, nil
}

func (c *EthContract) GetInventory(ctx context.Context, account common.Address) ([]Product, error) {
	return c.callProducts(ctx, "getInventory", account)
}

func (c *EthContract) GetProductsForNextOwner(ctx context.Context, account common.Address) ([]Product, error) {
	return c.callProducts(ctx, "getProductsForNextOwner", account)
}

func (c *EthContract) GetProductsForLogisticPartner(ctx context.Context, account common.Address) ([]Product, error) {
	return c.callProducts(ctx, "getProductsForLogisticPartner", account)
}

func (c *EthContract) GetProductsCreatedBy(ctx context.Context, account common.Address) ([]Product, error) {
	return c.callProducts(ctx, "getProductsCreatedBy", account)
}

func (c *EthContract) callProducts(ctx context.Context, method string, account common.Address) ([]Product, error) {
	var out []interface{}
	if err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, method, account); err != nil {
		return nil, mapCallError(method, err)
	}
	tuples := *abi.ConvertType(out[0], new([]productTuple)).(*[]productTuple)

	products := make([]Product, 0, len(tuples))
	for _, t := range tuples {
		products = append(products, t.toProduct())
	}
	return products, nil
}

func (c *EthContract) ProductHistory(ctx context.Context, productID uint64) ([]HistoryEvent, error) {
	logs, err := c.filterLogs(ctx, "ProductHistoryRecorded", []interface{}{new(big.Int).SetUint64(productID)})
	if err != nil {
		return nil, err
	}

	events := make([]HistoryEvent, 0, len(logs))
	for _, l := range logs {
		var ev productHistoryRecordedEvent
		if err := c.bound.UnpackLog(&ev, "ProductHistoryRecorded", l); err != nil {
			return nil, fmt.Errorf("decode ProductHistoryRecorded: %w", err)
		}
		events = append(events, HistoryEvent{
			ProductID:   bigToUint64(ev.ProductId),
			EventType:   ev.EventType,
			Details:     ev.Details,
			Timestamp:   ev.Timestamp.Int64(),
			TxHash:      l.TxHash,
			BlockNumber: l.BlockNumber,
		})
	}
	return events, nil
}

func (c *EthContract) Payments(ctx context.Context, filter PaymentFilter) ([]Payment, error) {
	var productRule, payerRule, payeeRule []interface{}
	if filter.ProductID != nil {
		productRule = append(productRule, new(big.Int).SetUint64(*filter.ProductID))
	}
	if filter.Payer != nil {
		payerRule = append(payerRule, *filter.Payer)
	}
	if filter.Payee != nil {
		payeeRule = append(payeeRule, *filter.Payee)
	}

	logs, err := c.filterLogs(ctx, "InvoicePaid", productRule, payerRule, payeeRule)
	if err != nil {
		return nil, err
	}

	payments := make([]Payment, 0, len(logs))
	for _, l := range logs {
		var ev invoicePaidEvent
		if err := c.bound.UnpackLog(&ev, "InvoicePaid", l); err != nil {
			return nil, fmt.Errorf("decode InvoicePaid: %w", err)
		}
		payments = append(payments, Payment{
			ProductID:   bigToUint64(ev.ProductId),
			Payer:       ev.Payer,
			Payee:       ev.Payee,
			Amount:      ev.Amount,
			Timestamp:   ev.Timestamp.Int64(),
			TxHash:      l.TxHash,
			BlockNumber: l.BlockNumber,
		})
	}
	return payments, nil
}

func (c *EthContract) filterLogs(ctx context.Context, event string, rules ...[]interface{}) ([]types.Log, error) {
	query := append([][]interface{}{{SupplyChainABI.Events[event].ID}}, rules...)
	topics, err := abi.MakeTopics(query...)
	if err != nil {
		return nil, err
	}

	logs, err := c.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(c.fromBlock),
		Addresses: []common.Address{c.address},
		Topics:    topics,
	})
	if err != nil {
		return nil, fmt.Errorf("filter %s logs: %w", event, err)
	}
	return logs, nil
}

// Writes

func (c *EthContract) RegisterRole(ctx context.Context, from common.Address, reg Registration) (*Receipt, error) {
	return c.transact(ctx, from, nil, "registerRole",
		uint8(reg.Role), reg.Email, reg.PhysicalAddress, reg.CompanyName, reg.LicenseCID, reg.PhoneNumber)
}

func (c *EthContract) CreateProduct(ctx context.Context, from common.Address, p NewProduct) (*Receipt, error) {
	return c.transact(ctx, from, nil, "createProduct",
		p.Barcode, p.Name, uint64sToBigs(p.ComponentProductIDs), uint64sToBigs(p.ComponentQuantities), newAttributesTuple(p.Attributes))
}

func (c *EthContract) UpdateShipmentBySupplier(ctx context.Context, from common.Address, productID uint64, merchantName string, nextOwner, logisticPartner common.Address) (*Receipt, error) {
	return c.productTransact(ctx, from, nil, productID, "updateShipmentBySupplier",
		new(big.Int).SetUint64(productID), merchantName, nextOwner, logisticPartner)
}

func (c *EthContract) UpdateShipmentStatus(ctx context.Context, from common.Address, productID uint64, status models.ShipmentStatus, location string) (*Receipt, error) {
	return c.productTransact(ctx, from, nil, productID, "updateShipmentStatus",
		new(big.Int).SetUint64(productID), uint8(status), location)
}

func (c *EthContract) MarkParcelReceived(ctx context.Context, from common.Address, productID uint64, podCID string) (*Receipt, error) {
	return c.productTransact(ctx, from, nil, productID, "markParcelReceived",
		new(big.Int).SetUint64(productID), podCID)
}

func (c *EthContract) PayAmountDue(ctx context.Context, from common.Address, productID uint64, value *big.Int) (*Receipt, error) {
	return c.productTransact(ctx, from, value, productID, "payAmountDue",
		new(big.Int).SetUint64(productID))
}

func (c *EthContract) UpdateSoldOut(ctx context.Context, from common.Address, productID uint64, quantity uint64) (*Receipt, error) {
	return c.productTransact(ctx, from, nil, productID, "updateSoldOut",
		new(big.Int).SetUint64(productID), new(big.Int).SetUint64(quantity))
}

func (c *EthContract) productTransact(ctx context.Context, from common.Address, value *big.Int, productID uint64, method string, params ...interface{}) (*Receipt, error) {
	receipt, err := c.transact(ctx, from, value, method, params...)
	if err != nil {
		return nil, err
	}
	receipt.ProductID = productID
	return receipt, nil
}

func (c *EthContract) transact(ctx context.Context, from common.Address, value *big.Int, method string, params ...interface{}) (*Receipt, error) {
	opts, err := c.wallet.Transactor(ctx, from)
	if err != nil {
		return nil, err
	}
	opts.Value = value

	tx, err := c.bound.Transact(opts, method, params...)
	if err != nil {
		return nil, mapCallError(method, err)
	}

	logrus.WithFields(logrus.Fields{
		"method":  method,
		"from":    from.Hex(),
		"tx_hash": tx.Hash().Hex(),
	}).Info("Contract transaction submitted")

	return c.wait(ctx, tx)
}

// wait blocks until tx is mined and converts the receipt.
func (c *EthContract) wait(ctx context.Context, tx *types.Transaction) (*Receipt, error) {
	if c.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.txTimeout)
		defer cancel()
	}

	mined, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("wait for %s: %w", tx.Hash().Hex(), err)
	}
	if mined.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s", ErrTransactionReverted, tx.Hash().Hex())
	}

	receipt := &Receipt{
		TxHash:      mined.TxHash,
		BlockNumber: mined.BlockNumber.Uint64(),
	}
	for _, l := range mined.Logs {
		if l == nil || len(l.Topics) == 0 || l.Topics[0] != SupplyChainABI.Events["ProductCreated"].ID {
			continue
		}
		var ev productCreatedEvent
		if err := c.bound.UnpackLog(&ev, "ProductCreated", *l); err == nil {
			receipt.ProductID = bigToUint64(ev.ProductId)
		}
	}
	return receipt, nil
}

// mapCallError turns an "execution reverted: reason" error into a sentinel error.
func mapCallError(method string, err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "execution reverted") && !strings.Contains(msg, "revert") {
		return fmt.Errorf("%s: %w", method, err)
	}
	for _, r := range revertReasons {
		if strings.Contains(msg, r.reason) {
			return fmt.Errorf("%s: %w", method, r.err)
		}
	}
	return fmt.Errorf("%s: %w: %v", method, ErrTransactionReverted, err)
}

// IsRevert reports whether err is a contract-level rejection rather than a transport failure.
func IsRevert(err error) bool {
	if errors.Is(err, ErrTransactionReverted) {
		return true
	}
	for _, r := range revertReasons {
		if errors.Is(err, r.err) {
			return true
		}
	}
	return false
}
