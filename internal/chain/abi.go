package chain

import (
	"bytes"
	_ "embed"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/javajoker/foodsecure-backend/internal/models"
)

//go:embed abi/SupplyChain.json
var supplyChainABIJSON []byte

// SupplyChainABI is the parsed contract interface.
var SupplyChainABI = mustParseABI(supplyChainABIJSON)

func mustParseABI(data []byte) abi.ABI {
	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		panic(fmt.Sprintf("chain: parse SupplyChain ABI: %v", err))
	}
	return parsed
}

// Tuple layouts as returned by the ABI decoder. Field order follows the contract.

type attributesTuple struct {
	PlaceOfOrigin    string
	ProductionDate   string
	ExpirationDate   string
	UnitQuantity     *big.Int
	UnitQuantityType string
	BatchQuantity    *big.Int
	UnitPrice        *big.Int
	Category         string
	Variety          string
	Misc             string
}

type locationEntryTuple struct {
	Location    string
	ArrivalDate string
}

type productTuple struct {
	Id                  *big.Int
	Barcode             string
	Name                string
	Creator             common.Address
	Owner               common.Address
	ComponentProductIds []*big.Int
	ComponentQuantities []*big.Int
	PreviousLocations   []string
	Attributes          attributesTuple
	LocationEntry       locationEntryTuple
	NextOwner           common.Address
	LogisticPartner     common.Address
	ShipmentStatus      uint8
	AmountDue           *big.Int
	InvoicePaid         bool
}

// Event layouts for UnpackLog.

type productCreatedEvent struct {
	ProductId *big.Int
	Creator   common.Address
}

type productHistoryRecordedEvent struct {
	ProductId *big.Int
	EventType string
	Details   string
	Timestamp *big.Int
}

type invoicePaidEvent struct {
	ProductId *big.Int
	Payer     common.Address
	Payee     common.Address
	Amount    *big.Int
	Timestamp *big.Int
}

func (t productTuple) toProduct() Product {
	return Product{
		ID:                  bigToUint64(t.Id),
		Barcode:             t.Barcode,
		Name:                t.Name,
		Creator:             t.Creator,
		Owner:               t.Owner,
		ComponentProductIDs: bigsToUint64s(t.ComponentProductIds),
		ComponentQuantities: bigsToUint64s(t.ComponentQuantities),
		PreviousLocations:   append([]string(nil), t.PreviousLocations...),
		Attributes:          t.Attributes.toAttributes(),
		Location: LocationEntry{
			Location:    t.LocationEntry.Location,
			ArrivalDate: t.LocationEntry.ArrivalDate,
		},
		NextOwner:       t.NextOwner,
		LogisticPartner: t.LogisticPartner,
		ShipmentStatus:  models.ShipmentStatus(t.ShipmentStatus),
		AmountDue:       copyBig(t.AmountDue),
		InvoicePaid:     t.InvoicePaid,
	}
}

func newAttributesTuple(a Attributes) attributesTuple {
	price := a.UnitPrice
	if price == nil {
		price = new(big.Int)
	}
	return attributesTuple{
		PlaceOfOrigin:    a.PlaceOfOrigin,
		ProductionDate:   a.ProductionDate,
		ExpirationDate:   a.ExpirationDate,
		UnitQuantity:     new(big.Int).SetUint64(a.UnitQuantity),
		UnitQuantityType: a.UnitQuantityType,
		BatchQuantity:    new(big.Int).SetUint64(a.BatchQuantity),
		UnitPrice:        price,
		Category:         a.Category,
		Variety:          a.Variety,
		Misc:             a.Misc,
	}
}

func bigToUint64(v *big.Int) uint64 {
	if v == nil || !v.IsUint64() {
		return 0
	}
	return v.Uint64()
}

func bigsToUint64s(vs []*big.Int) []uint64 {
	out := make([]uint64, len(vs))
	for i, v := range vs {
		out[i] = bigToUint64(v)
	}
	return out
}

func uint64sToBigs(vs []uint64) []*big.Int {
	out := make([]*big.Int, len(vs))
	for i, v := range vs {
		out[i] = new(big.Int).SetUint64(v)
	}
	return out
}

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
