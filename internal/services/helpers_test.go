package services

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"

	"github.com/javajoker/foodsecure-backend/internal/chain"
	"github.com/javajoker/foodsecure-backend/internal/config"
	"github.com/javajoker/foodsecure-backend/internal/events"
	"github.com/javajoker/foodsecure-backend/internal/models"
)

var (
	supplierAddr     = common.HexToAddress("0x2000000000000000000000000000000000000001")
	manufacturerAddr = common.HexToAddress("0x2000000000000000000000000000000000000002")
	carrierAddr      = common.HexToAddress("0x2000000000000000000000000000000000000003")
	distributorAddr  = common.HexToAddress("0x2000000000000000000000000000000000000004")
	retailerAddr     = common.HexToAddress("0x2000000000000000000000000000000000000005")
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		JWT: config.JWTConfig{
			SecretKey:       "test-secret",
			AccessTokenTTL:  1,
			RefreshTokenTTL: 24,
			NonceTTL:        10,
		},
		Pinata: config.PinataConfig{
			APIURL:     "http://pinata.invalid",
			GatewayURL: "https://gateway.example/ipfs",
			MaxSize:    1024 * 1024,
		},
		Frontend: config.FrontendConfig{BaseURL: "https://foodsecure.example"},
	}
}

// mockContract is a testify mock of the full contract surface.
type mockContract struct {
	mock.Mock
}

var _ chain.Contract = (*mockContract)(nil)

func (m *mockContract) receipt(args mock.Arguments) (*chain.Receipt, error) {
	r, _ := args.Get(0).(*chain.Receipt)
	return r, args.Error(1)
}

func (m *mockContract) products(args mock.Arguments) ([]chain.Product, error) {
	p, _ := args.Get(0).([]chain.Product)
	return p, args.Error(1)
}

func (m *mockContract) GetUserRole(ctx context.Context, account common.Address) (models.Role, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(models.Role), args.Error(1)
}

func (m *mockContract) GetUser(ctx context.Context, account common.Address) (*chain.User, error) {
	args := m.Called(ctx, account)
	u, _ := args.Get(0).(*chain.User)
	return u, args.Error(1)
}

func (m *mockContract) GetProduct(ctx context.Context, productID uint64) (*chain.Product, error) {
	args := m.Called(ctx, productID)
	p, _ := args.Get(0).(*chain.Product)
	return p, args.Error(1)
}

func (m *mockContract) GetInventory(ctx context.Context, account common.Address) ([]chain.Product, error) {
	return m.products(m.Called(ctx, account))
}

func (m *mockContract) GetProductsForNextOwner(ctx context.Context, account common.Address) ([]chain.Product, error) {
	return m.products(m.Called(ctx, account))
}

func (m *mockContract) GetProductsForLogisticPartner(ctx context.Context, account common.Address) ([]chain.Product, error) {
	return m.products(m.Called(ctx, account))
}

func (m *mockContract) GetProductsCreatedBy(ctx context.Context, account common.Address) ([]chain.Product, error) {
	return m.products(m.Called(ctx, account))
}

func (m *mockContract) ProductHistory(ctx context.Context, productID uint64) ([]chain.HistoryEvent, error) {
	args := m.Called(ctx, productID)
	h, _ := args.Get(0).([]chain.HistoryEvent)
	return h, args.Error(1)
}

func (m *mockContract) Payments(ctx context.Context, filter chain.PaymentFilter) ([]chain.Payment, error) {
	args := m.Called(ctx, filter)
	p, _ := args.Get(0).([]chain.Payment)
	return p, args.Error(1)
}

func (m *mockContract) RegisterRole(ctx context.Context, from common.Address, reg chain.Registration) (*chain.Receipt, error) {
	return m.receipt(m.Called(ctx, from, reg))
}

func (m *mockContract) CreateProduct(ctx context.Context, from common.Address, p chain.NewProduct) (*chain.Receipt, error) {
	return m.receipt(m.Called(ctx, from, p))
}

func (m *mockContract) UpdateShipmentBySupplier(ctx context.Context, from common.Address, productID uint64, merchantName string, nextOwner, logisticPartner common.Address) (*chain.Receipt, error) {
	return m.receipt(m.Called(ctx, from, productID, merchantName, nextOwner, logisticPartner))
}

func (m *mockContract) UpdateShipmentStatus(ctx context.Context, from common.Address, productID uint64, status models.ShipmentStatus, location string) (*chain.Receipt, error) {
	return m.receipt(m.Called(ctx, from, productID, status, location))
}

func (m *mockContract) MarkParcelReceived(ctx context.Context, from common.Address, productID uint64, podCID string) (*chain.Receipt, error) {
	return m.receipt(m.Called(ctx, from, productID, podCID))
}

func (m *mockContract) PayAmountDue(ctx context.Context, from common.Address, productID uint64, value *big.Int) (*chain.Receipt, error) {
	return m.receipt(m.Called(ctx, from, productID, value))
}

func (m *mockContract) UpdateSoldOut(ctx context.Context, from common.Address, productID uint64, quantity uint64) (*chain.Receipt, error) {
	return m.receipt(m.Called(ctx, from, productID, quantity))
}

// recordingPublisher keeps every published envelope.
type recordingPublisher struct {
	mu   sync.Mutex
	envs []events.Envelope
}

func (p *recordingPublisher) Publish(_ context.Context, env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envs = append(p.envs, env)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.envs))
	for _, env := range p.envs {
		out = append(out, env.EventType)
	}
	return out
}
