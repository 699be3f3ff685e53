// Package chain defines the SupplyChain contract surface and its go-ethereum binding.
package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/javajoker/foodsecure-backend/internal/models"
)

// Contract is the full SupplyChain contract surface.
type Contract interface {
	Reader
	Writer
}

type Reader interface {
	GetUserRole(ctx context.Context, account common.Address) (models.Role, error)
	GetUser(ctx context.Context, account common.Address) (*User, error)
	GetProduct(ctx context.Context, productID uint64) (*Product, error)
	GetInventory(ctx context.Context, account common.Address) ([]Product, error)
	GetProductsForNextOwner(ctx context.Context, account common.Address) ([]Product, error)
	GetProductsForLogisticPartner(ctx context.Context, account common.Address) ([]Product, error)
	GetProductsCreatedBy(ctx context.Context, account common.Address) ([]Product, error)
	ProductHistory(ctx context.Context, productID uint64) ([]HistoryEvent, error)
	Payments(ctx context.Context, filter PaymentFilter) ([]Payment, error)
}

// Writer methods submit one transaction from the given account and wait for it to be mined.
type Writer interface {
	RegisterRole(ctx context.Context, from common.Address, reg Registration) (*Receipt, error)
	CreateProduct(ctx context.Context, from common.Address, p NewProduct) (*Receipt, error)
	UpdateShipmentBySupplier(ctx context.Context, from common.Address, productID uint64, merchantName string, nextOwner, logisticPartner common.Address) (*Receipt, error)
	UpdateShipmentStatus(ctx context.Context, from common.Address, productID uint64, status models.ShipmentStatus, location string) (*Receipt, error)
	MarkParcelReceived(ctx context.Context, from common.Address, productID uint64, podCID string) (*Receipt, error)
	PayAmountDue(ctx context.Context, from common.Address, productID uint64, value *big.Int) (*Receipt, error)
	UpdateSoldOut(ctx context.Context, from common.Address, productID uint64, quantity uint64) (*Receipt, error)
}

type User struct {
	Address         common.Address
	Role            models.Role
	Email           string
	PhysicalAddress string
	CompanyName     string
	LicenseCID      string
	PhoneNumber     string
	Registered      bool
}

type Registration struct {
	Role            models.Role
	Email           string
	PhysicalAddress string
	CompanyName     string
	LicenseCID      string
	PhoneNumber     string
}

type Attributes struct {
	PlaceOfOrigin    string
	ProductionDate   string
	ExpirationDate   string
	UnitQuantity     uint64
	UnitQuantityType string
	BatchQuantity    uint64
	UnitPrice        *big.Int // wei
	Category         string
	Variety          string
	Misc             string
}

type LocationEntry struct {
	Location    string
	ArrivalDate string
}

type Product struct {
	ID                  uint64
	Barcode             string
	Name                string
	Creator             common.Address
	Owner               common.Address
	ComponentProductIDs []uint64
	ComponentQuantities []uint64
	PreviousLocations   []string
	Attributes          Attributes
	Location            LocationEntry
	NextOwner           common.Address
	LogisticPartner     common.Address
	ShipmentStatus      models.ShipmentStatus
	AmountDue           *big.Int // wei
	InvoicePaid         bool
}

type NewProduct struct {
	Barcode             string
	Name                string
	ComponentProductIDs []uint64
	ComponentQuantities []uint64
	Attributes          Attributes
}

// HistoryEvent is one ProductHistoryRecorded log.
type HistoryEvent struct {
	ProductID   uint64
	EventType   string
	Details     string
	Timestamp   int64
	TxHash      common.Hash
	BlockNumber uint64
}

// Payment is one InvoicePaid log.
type Payment struct {
	ProductID   uint64
	Payer       common.Address
	Payee       common.Address
	Amount      *big.Int
	Timestamp   int64
	TxHash      common.Hash
	BlockNumber uint64
}

// PaymentFilter narrows InvoicePaid logs. Nil fields match everything.
type PaymentFilter struct {
	ProductID *uint64
	Payer     *common.Address
	Payee     *common.Address
}

// Matches applies the filter to an already decoded payment.
func (f PaymentFilter) Matches(p Payment) bool {
	if f.ProductID != nil && p.ProductID != *f.ProductID {
		return false
	}
	if f.Payer != nil && p.Payer != *f.Payer {
		return false
	}
	if f.Payee != nil && p.Payee != *f.Payee {
		return false
	}
	return true
}

type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	// ProductID is set by CreateProduct and by writes that target a product.
	ProductID uint64
}
