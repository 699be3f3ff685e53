package ledger

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/foodsecure-backend/internal/chain"
	"github.com/javajoker/foodsecure-backend/internal/database"
	"github.com/javajoker/foodsecure-backend/internal/models"
)

var (
	supplier     = common.HexToAddress("0x1000000000000000000000000000000000000001")
	manufacturer = common.HexToAddress("0x1000000000000000000000000000000000000002")
	carrier      = common.HexToAddress("0x1000000000000000000000000000000000000003")
	distributor  = common.HexToAddress("0x1000000000000000000000000000000000000004")
	retailer     = common.HexToAddress("0x1000000000000000000000000000000000000005")
	stranger     = common.HexToAddress("0x1000000000000000000000000000000000000006")
)

type LedgerTestSuite struct {
	suite.Suite
	ctx    context.Context
	ledger *Ledger
}

func (s *LedgerTestSuite) SetupTest() {
	db, err := database.OpenInMemory()
	s.Require().NoError(err)

	s.ctx = context.Background()
	s.ledger = New(db).WithClock(func() time.Time {
		return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	})

	for account, reg := range map[common.Address]chain.Registration{
		supplier:     {Role: models.RoleSupplier, CompanyName: "Green Farms", PhysicalAddress: "1 Farm Rd"},
		manufacturer: {Role: models.RoleManufacturer, CompanyName: "Sauce Co", PhysicalAddress: "2 Plant Ave"},
		carrier:      {Role: models.RoleLogisticPartner, CompanyName: "FastShip"},
		distributor:  {Role: models.RoleDistributionCenter, CompanyName: "Central DC", PhysicalAddress: "3 Hub St"},
		retailer:     {Role: models.RoleRetailStore, CompanyName: "Corner Shop", PhysicalAddress: "4 Main St"},
	} {
		_, err := s.ledger.RegisterRole(s.ctx, account, reg)
		s.Require().NoError(err)
	}
}

func (s *LedgerTestSuite) createTomatoes(batch uint64) uint64 {
	receipt, err := s.ledger.CreateProduct(s.ctx, supplier, chain.NewProduct{
		Barcode: "8901",
		Name:    "Tomatoes",
		Attributes: chain.Attributes{
			PlaceOfOrigin: "Green Valley",
			BatchQuantity: batch,
			UnitPrice:     big.NewInt(1000),
			Misc:          "IPFS:abc123|organic",
		},
	})
	s.Require().NoError(err)
	s.Require().NotZero(receipt.ProductID)
	return receipt.ProductID
}

func (s *LedgerTestSuite) dispatchAndDeliver(productID uint64, from, to common.Address) {
	_, err := s.ledger.UpdateShipmentBySupplier(s.ctx, from, productID, "", to, carrier)
	s.Require().NoError(err)
	for status := models.StatusPickedUp; status <= models.StatusOutForDelivery; status++ {
		_, err := s.ledger.UpdateShipmentStatus(s.ctx, carrier, productID, status, "")
		s.Require().NoError(err)
	}
	_, err = s.ledger.MarkParcelReceived(s.ctx, to, productID, "")
	s.Require().NoError(err)
}

func (s *LedgerTestSuite) TestRegisterRole() {
	role, err := s.ledger.GetUserRole(s.ctx, manufacturer)
	s.NoError(err)
	s.Equal(models.RoleManufacturer, role)
	s.Equal("Manufacturer", role.Label())

	_, err = s.ledger.RegisterRole(s.ctx, manufacturer, chain.Registration{Role: models.RoleSupplier, CompanyName: "Again"})
	s.ErrorIs(err, chain.ErrAlreadyRegistered)

	_, err = s.ledger.RegisterRole(s.ctx, stranger, chain.Registration{Role: models.Role(9), CompanyName: "X"})
	s.ErrorIs(err, chain.ErrInvalidInput)

	_, err = s.ledger.RegisterRole(s.ctx, stranger, chain.Registration{Role: models.RoleRetailStore, CompanyName: "  "})
	s.ErrorIs(err, chain.ErrInvalidInput)

	_, err = s.ledger.GetUser(s.ctx, stranger)
	s.ErrorIs(err, chain.ErrNotRegistered)
}

func (s *LedgerTestSuite) TestCreateProduct() {
	id := s.createTomatoes(100)

	p, err := s.ledger.GetProduct(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(supplier, p.Creator)
	s.Equal(supplier, p.Owner)
	s.Equal(models.StatusNotShipped, p.ShipmentStatus)
	s.Equal("Green Valley", p.Location.Location)
	s.Equal("2024-05-01", p.Location.ArrivalDate)
	s.Equal("0", p.AmountDue.String())

	history, err := s.ledger.ProductHistory(s.ctx, id)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(EventProductCreated, history[0].EventType)
	s.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Unix(), history[0].Timestamp)

	_, err = s.ledger.CreateProduct(s.ctx, carrier, chain.NewProduct{Name: "x", Barcode: "1", Attributes: chain.Attributes{BatchQuantity: 1}})
	s.ErrorIs(err, chain.ErrUnauthorized)

	_, err = s.ledger.CreateProduct(s.ctx, stranger, chain.NewProduct{Name: "x", Barcode: "1", Attributes: chain.Attributes{BatchQuantity: 1}})
	s.ErrorIs(err, chain.ErrNotRegistered)

	_, err = s.ledger.CreateProduct(s.ctx, supplier, chain.NewProduct{Name: "", Barcode: "1", Attributes: chain.Attributes{BatchQuantity: 1}})
	s.ErrorIs(err, chain.ErrInvalidInput)

	_, err = s.ledger.GetProduct(s.ctx, 999)
	s.ErrorIs(err, chain.ErrProductNotFound)
}

func (s *LedgerTestSuite) TestCreateProductConsumesComponents() {
	tomatoes := s.createTomatoes(100)
	s.dispatchAndDeliver(tomatoes, supplier, manufacturer)

	receipt, err := s.ledger.CreateProduct(s.ctx, manufacturer, chain.NewProduct{
		Barcode:             "5500",
		Name:                "Tomato sauce",
		ComponentProductIDs: []uint64{tomatoes},
		ComponentQuantities: []uint64{60},
		Attributes:          chain.Attributes{PlaceOfOrigin: "Sauce plant", BatchQuantity: 30, UnitPrice: big.NewInt(5)},
	})
	s.Require().NoError(err)

	component, err := s.ledger.GetProduct(s.ctx, tomatoes)
	s.Require().NoError(err)
	s.Equal(uint64(40), component.Attributes.BatchQuantity)

	sauce, err := s.ledger.GetProduct(s.ctx, receipt.ProductID)
	s.Require().NoError(err)
	s.Equal([]uint64{tomatoes}, sauce.ComponentProductIDs)
	s.Equal([]uint64{60}, sauce.ComponentQuantities)

	_, err = s.ledger.CreateProduct(s.ctx, manufacturer, chain.NewProduct{
		Barcode:             "5501",
		Name:                "More sauce",
		ComponentProductIDs: []uint64{tomatoes},
		ComponentQuantities: []uint64{41},
		Attributes:          chain.Attributes{BatchQuantity: 1},
	})
	s.ErrorIs(err, chain.ErrInsufficientStock)

	// The failed write must not leave a product behind.
	created, err := s.ledger.GetProductsCreatedBy(s.ctx, manufacturer)
	s.Require().NoError(err)
	s.Len(created, 1)

	_, err = s.ledger.CreateProduct(s.ctx, supplier, chain.NewProduct{
		Barcode:             "1",
		Name:                "Not mine",
		ComponentProductIDs: []uint64{tomatoes},
		ComponentQuantities: []uint64{1},
		Attributes:          chain.Attributes{BatchQuantity: 1},
	})
	s.ErrorIs(err, chain.ErrUnauthorized)

	_, err = s.ledger.CreateProduct(s.ctx, manufacturer, chain.NewProduct{
		Barcode:             "1",
		Name:                "Mismatch",
		ComponentProductIDs: []uint64{tomatoes},
		Attributes:          chain.Attributes{BatchQuantity: 1},
	})
	s.ErrorIs(err, chain.ErrInvalidInput)
}

func (s *LedgerTestSuite) TestShipmentLifecycle() {
	id := s.createTomatoes(50)

	_, err := s.ledger.UpdateShipmentBySupplier(s.ctx, carrier, id, "", distributor, carrier)
	s.ErrorIs(err, chain.ErrUnauthorized)

	_, err = s.ledger.UpdateShipmentBySupplier(s.ctx, supplier, id, "", distributor, retailer)
	s.ErrorIs(err, chain.ErrInvalidInput)

	_, err = s.ledger.UpdateShipmentBySupplier(s.ctx, supplier, id, "", stranger, carrier)
	s.ErrorIs(err, chain.ErrNotRegistered)

	_, err = s.ledger.UpdateShipmentBySupplier(s.ctx, supplier, id, "", supplier, carrier)
	s.ErrorIs(err, chain.ErrInvalidInput)

	_, err = s.ledger.UpdateShipmentBySupplier(s.ctx, supplier, id, "Central DC", distributor, carrier)
	s.Require().NoError(err)

	p, err := s.ledger.GetProduct(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(models.StatusReadyForShipment, p.ShipmentStatus)
	s.Equal("50000", p.AmountDue.String())
	s.False(p.InvoicePaid)
	s.Equal(distributor, p.NextOwner)
	s.Equal(carrier, p.LogisticPartner)

	// Dispatching twice is not allowed while in transit.
	_, err = s.ledger.UpdateShipmentBySupplier(s.ctx, supplier, id, "", retailer, carrier)
	s.ErrorIs(err, chain.ErrInvalidTransition)

	// Only the assigned carrier moves the parcel, one step at a time.
	_, err = s.ledger.UpdateShipmentStatus(s.ctx, supplier, id, models.StatusPickedUp, "")
	s.ErrorIs(err, chain.ErrUnauthorized)
	_, err = s.ledger.UpdateShipmentStatus(s.ctx, carrier, id, models.StatusSortingCenter, "")
	s.ErrorIs(err, chain.ErrInvalidTransition)

	_, err = s.ledger.UpdateShipmentStatus(s.ctx, carrier, id, models.StatusPickedUp, "Farm gate")
	s.Require().NoError(err)
	_, err = s.ledger.UpdateShipmentStatus(s.ctx, carrier, id, models.StatusSortingCenter, "Sorting center A")
	s.Require().NoError(err)

	p, err = s.ledger.GetProduct(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("Sorting center A", p.Location.Location)
	s.Equal([]string{"Green Valley", "Farm gate"}, p.PreviousLocations)

	listed, err := s.ledger.GetProductsForLogisticPartner(s.ctx, carrier)
	s.Require().NoError(err)
	s.Len(listed, 1)

	_, err = s.ledger.MarkParcelReceived(s.ctx, distributor, id, "")
	s.ErrorIs(err, chain.ErrInvalidTransition)

	for _, status := range []models.ShipmentStatus{models.StatusToDeliveryHub, models.StatusAtDeliveryHub, models.StatusOutForDelivery} {
		_, err = s.ledger.UpdateShipmentStatus(s.ctx, carrier, id, status, "")
		s.Require().NoError(err)
	}

	// Delivered is reached by the recipient, never by the carrier.
	_, err = s.ledger.UpdateShipmentStatus(s.ctx, carrier, id, models.StatusDelivered, "")
	s.ErrorIs(err, chain.ErrInvalidTransition)

	_, err = s.ledger.MarkParcelReceived(s.ctx, retailer, id, "")
	s.ErrorIs(err, chain.ErrUnauthorized)

	receipt, err := s.ledger.MarkParcelReceived(s.ctx, distributor, id, "QmProof")
	s.Require().NoError(err)
	s.Equal(id, receipt.ProductID)

	p, err = s.ledger.GetProduct(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(models.StatusDelivered, p.ShipmentStatus)
	s.Equal(distributor, p.Owner)
	s.Equal(common.Address{}, p.LogisticPartner)
	s.Equal("IPFS:abc123|organic|POD_IPFS:QmProof", p.Attributes.Misc)
	s.Equal("3 Hub St", p.Location.Location)

	inventory, err := s.ledger.GetInventory(s.ctx, distributor)
	s.Require().NoError(err)
	s.Len(inventory, 1)

	history, err := s.ledger.ProductHistory(s.ctx, id)
	s.Require().NoError(err)
	s.Len(history, 8)
	s.Equal(EventParcelReceived, history[len(history)-1].EventType)
	for i := 1; i < len(history); i++ {
		s.Greater(history[i].BlockNumber, history[i-1].BlockNumber)
	}
}

func (s *LedgerTestSuite) TestPayAmountDue() {
	id := s.createTomatoes(10)

	_, err := s.ledger.PayAmountDue(s.ctx, distributor, id, big.NewInt(10000))
	s.ErrorIs(err, chain.ErrUnauthorized)

	_, err = s.ledger.UpdateShipmentBySupplier(s.ctx, supplier, id, "", distributor, carrier)
	s.Require().NoError(err)

	incoming, err := s.ledger.GetProductsForNextOwner(s.ctx, distributor)
	s.Require().NoError(err)
	s.Require().Len(incoming, 1)
	s.Equal("10000", incoming[0].AmountDue.String())

	_, err = s.ledger.PayAmountDue(s.ctx, retailer, id, big.NewInt(10000))
	s.ErrorIs(err, chain.ErrUnauthorized)

	_, err = s.ledger.PayAmountDue(s.ctx, distributor, id, big.NewInt(9999))
	s.ErrorIs(err, chain.ErrIncorrectPayment)

	receipt, err := s.ledger.PayAmountDue(s.ctx, distributor, id, big.NewInt(10000))
	s.Require().NoError(err)
	s.NotEqual(common.Hash{}, receipt.TxHash)

	_, err = s.ledger.PayAmountDue(s.ctx, distributor, id, big.NewInt(10000))
	s.ErrorIs(err, chain.ErrAlreadyPaid)

	payments, err := s.ledger.Payments(s.ctx, chain.PaymentFilter{Payer: &distributor})
	s.Require().NoError(err)
	s.Require().Len(payments, 1)
	s.Equal(supplier, payments[0].Payee)
	s.Equal("10000", payments[0].Amount.String())
	s.Equal(receipt.TxHash, payments[0].TxHash)

	payments, err = s.ledger.Payments(s.ctx, chain.PaymentFilter{Payer: &retailer})
	s.Require().NoError(err)
	s.Empty(payments)
}

func (s *LedgerTestSuite) TestNothingDueForFreeGoods() {
	receipt, err := s.ledger.CreateProduct(s.ctx, supplier, chain.NewProduct{
		Barcode:    "0",
		Name:       "Samples",
		Attributes: chain.Attributes{BatchQuantity: 5},
	})
	s.Require().NoError(err)
	_, err = s.ledger.UpdateShipmentBySupplier(s.ctx, supplier, receipt.ProductID, "", retailer, carrier)
	s.Require().NoError(err)

	_, err = s.ledger.PayAmountDue(s.ctx, retailer, receipt.ProductID, big.NewInt(0))
	s.ErrorIs(err, chain.ErrNothingDue)
}

func (s *LedgerTestSuite) TestUpdateSoldOut() {
	id := s.createTomatoes(20)

	_, err := s.ledger.UpdateSoldOut(s.ctx, supplier, id, 0)
	s.ErrorIs(err, chain.ErrInvalidInput)

	_, err = s.ledger.UpdateSoldOut(s.ctx, supplier, id, 21)
	s.ErrorIs(err, chain.ErrInsufficientStock)

	_, err = s.ledger.UpdateSoldOut(s.ctx, retailer, id, 1)
	s.ErrorIs(err, chain.ErrUnauthorized)

	_, err = s.ledger.UpdateSoldOut(s.ctx, supplier, id, 5)
	s.Require().NoError(err)

	p, err := s.ledger.GetProduct(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(uint64(15), p.Attributes.BatchQuantity)
}

func (s *LedgerTestSuite) TestRevertedWritesAreRecorded() {
	_, err := s.ledger.UpdateSoldOut(s.ctx, supplier, 42, 1)
	s.ErrorIs(err, chain.ErrProductNotFound)

	var reverted []models.LedgerTx
	s.Require().NoError(s.ledger.db.Where("status = ?", models.LedgerTxStatusReverted).Find(&reverted).Error)
	s.Require().Len(reverted, 1)
	s.Equal("updateSoldOut", reverted[0].Method)

	record, err := s.ledger.Transaction(s.ctx, common.HexToHash(reverted[0].Hash))
	s.Require().NoError(err)
	s.Contains(record.Error, "product not found")
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}
