// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB stores a free-form object as JSON text.
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	data, err := scanBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, j)
}

// StringList stores a []string as JSON text so it works on both PostgreSQL and SQLite.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	data, err := scanBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, (*[]string)(l))
}

// Uint64List stores a []uint64 as JSON text.
type Uint64List []uint64

func (l Uint64List) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]uint64(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *Uint64List) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	data, err := scanBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, (*[]uint64)(l))
}

func scanBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported JSON column type %T", value)
	}
}

// Role mirrors the participant enum of the SupplyChain contract.
type Role uint8

const (
	RoleSupplier Role = iota
	RoleManufacturer
	RoleLogisticPartner
	RoleDistributionCenter
	RoleRetailStore
)

var roleNames = []string{"Supplier", "Manufacturer", "LogisticPartner", "DistributionCenter", "RetailStore"}

var roleLabels = []string{"Supplier", "Manufacturer", "Logistic Partner", "Distribution Center", "Retail Store"}

func (r Role) Valid() bool {
	return int(r) < len(roleNames)
}

// Name is the identifier used by forms and JSON payloads.
func (r Role) Name() string {
	if !r.Valid() {
		return "Unknown"
	}
	return roleNames[r]
}

// Label is the human readable form.
func (r Role) Label() string {
	if !r.Valid() {
		return "Unknown"
	}
	return roleLabels[r]
}

func (r Role) String() string {
	return r.Name()
}

// CanCreateProducts reports whether the role originates goods.
func (r Role) CanCreateProducts() bool {
	return r == RoleSupplier || r == RoleManufacturer
}

// Receives reports whether the role is a downstream recipient of shipments.
func (r Role) Receives() bool {
	return r == RoleManufacturer || r == RoleDistributionCenter || r == RoleRetailStore
}

func ParseRole(name string) (Role, error) {
	for i, n := range roleNames {
		if n == name {
			return Role(i), nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", name)
}

func RoleNames() []string {
	out := make([]string, len(roleNames))
	copy(out, roleNames)
	return out
}

// ShipmentStatus is the ordinal logistics stage of a product.
type ShipmentStatus uint8

const (
	StatusNotShipped ShipmentStatus = iota
	StatusReadyForShipment
	StatusPickedUp
	StatusSortingCenter
	StatusToDeliveryHub
	StatusAtDeliveryHub
	StatusOutForDelivery
	StatusDelivered
)

var statusLabels = []string{
	"Not Shipped",
	"Ready For Shipment",
	"Picked Up",
	"Sorting Center",
	"To Delivery Hub",
	"At Delivery Hub",
	"Out For Delivery",
	"Delivered",
}

func (s ShipmentStatus) Valid() bool {
	return int(s) < len(statusLabels)
}

func (s ShipmentStatus) Label() string {
	if !s.Valid() {
		return "Unknown"
	}
	return statusLabels[s]
}

func (s ShipmentStatus) String() string {
	return s.Label()
}

// Progress is the share of the tracker that is complete, 0-100.
func (s ShipmentStatus) Progress() float64 {
	if !s.Valid() {
		return 0
	}
	return float64(s) / float64(StatusDelivered) * 100
}

// AtRest reports whether the product sits with its owner and may be dispatched.
func (s ShipmentStatus) AtRest() bool {
	return s == StatusNotShipped || s == StatusDelivered
}

// CarrierManaged reports whether a logistic partner may move the product into s.
func (s ShipmentStatus) CarrierManaged() bool {
	return s >= StatusPickedUp && s <= StatusOutForDelivery
}

func ShipmentStatuses() []ShipmentStatus {
	out := make([]ShipmentStatus, 0, len(statusLabels))
	for i := range statusLabels {
		out = append(out, ShipmentStatus(i))
	}
	return out
}
