// internal/models/product.go
package models

import (
	"time"
)

// Product is the offline ledger's copy of a contract product record.
// ID is the contract product identifier, not a UUID.
type Product struct {
	ID        uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Barcode             string     `json:"barcode" gorm:"size:128;not null;index"`
	Name                string     `json:"name" gorm:"size:255;not null"`
	Creator             string     `json:"creator" gorm:"size:42;not null;index"`
	Owner               string     `json:"owner" gorm:"size:42;not null;index"`
	ComponentProductIDs Uint64List `json:"component_product_ids" gorm:"type:text"`
	ComponentQuantities Uint64List `json:"component_quantities" gorm:"type:text"`
	PreviousLocations   StringList `json:"previous_locations" gorm:"type:text"`

	// Attribute bundle
	PlaceOfOrigin    string `json:"place_of_origin" gorm:"size:255"`
	ProductionDate   string `json:"production_date" gorm:"size:32"`
	ExpirationDate   string `json:"expiration_date" gorm:"size:32"`
	UnitQuantity     uint64 `json:"unit_quantity"`
	UnitQuantityType string `json:"unit_quantity_type" gorm:"size:32"`
	BatchQuantity    uint64 `json:"batch_quantity"`
	UnitPrice        string `json:"unit_price" gorm:"size:80;not null;default:'0'"` // wei
	Category         string `json:"category" gorm:"size:100;index"`
	Variety          string `json:"variety" gorm:"size:100"`
	Misc             string `json:"misc" gorm:"type:text"`

	// Current location entry
	Location    string `json:"location" gorm:"size:255"`
	ArrivalDate string `json:"arrival_date" gorm:"size:32"`

	NextOwner       string         `json:"next_owner" gorm:"size:42;index"`
	LogisticPartner string         `json:"logistic_partner" gorm:"size:42;index"`
	MerchantName    string         `json:"merchant_name" gorm:"size:255"`
	Payee           string         `json:"payee" gorm:"size:42"`
	ShipmentStatus  ShipmentStatus `json:"shipment_status" gorm:"not null;default:0"`
	AmountDue       string         `json:"amount_due" gorm:"size:80;not null;default:'0'"` // wei
	InvoicePaid     bool           `json:"invoice_paid" gorm:"not null;default:false"`
}
