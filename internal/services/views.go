// internal/services/views.go
package services

import (
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/javajoker/foodsecure-backend/internal/chain"
	"github.com/javajoker/foodsecure-backend/internal/models"
	"github.com/javajoker/foodsecure-backend/internal/utils"
)

// Views are what the front end renders. Numbers that may exceed 2^53 are strings.

type UserView struct {
	WalletAddress   string `json:"wallet_address"`
	Registered      bool   `json:"registered"`
	Role            uint8  `json:"role"`
	RoleName        string `json:"role_name"`
	RoleLabel       string `json:"role_label"`
	Email           string `json:"email,omitempty"`
	PhysicalAddress string `json:"physical_address,omitempty"`
	CompanyName     string `json:"company_name,omitempty"`
	LicenseCID      string `json:"license_cid,omitempty"`
	LicenseURL      string `json:"license_url,omitempty"`
	PhoneNumber     string `json:"phone_number,omitempty"`
}

type ProductView struct {
	ID                  string   `json:"id"`
	Barcode             string   `json:"barcode"`
	Name                string   `json:"name"`
	Creator             string   `json:"creator"`
	Owner               string   `json:"owner"`
	ComponentProductIDs []string `json:"component_product_ids"`
	ComponentQuantities []string `json:"component_quantities"`
	PreviousLocations   []string `json:"previous_locations"`

	PlaceOfOrigin    string `json:"place_of_origin"`
	ProductionDate   string `json:"production_date"`
	ExpirationDate   string `json:"expiration_date"`
	UnitQuantity     string `json:"unit_quantity"`
	UnitQuantityType string `json:"unit_quantity_type"`
	BatchQuantity    string `json:"batch_quantity"`
	UnitPrice        string `json:"unit_price"`
	UnitPriceWei     string `json:"unit_price_wei"`
	Category         string `json:"category"`
	Variety          string `json:"variety"`
	Misc             string `json:"misc"`
	Notes            string `json:"notes,omitempty"`

	DocumentCID        string `json:"document_cid,omitempty"`
	DocumentURL        string `json:"document_url,omitempty"`
	ProofOfDeliveryCID string `json:"proof_of_delivery_cid,omitempty"`
	ProofOfDeliveryURL string `json:"proof_of_delivery_url,omitempty"`

	Location        string  `json:"location"`
	ArrivalDate     string  `json:"arrival_date"`
	NextOwner       string  `json:"next_owner,omitempty"`
	LogisticPartner string  `json:"logistic_partner,omitempty"`
	ShipmentStatus  uint8   `json:"shipment_status"`
	StatusLabel     string  `json:"status_label"`
	Progress        float64 `json:"progress"`
	AmountDue       string  `json:"amount_due"`
	AmountDueWei    string  `json:"amount_due_wei"`
	InvoicePaid     bool    `json:"invoice_paid"`
}

type HistoryView struct {
	EventType   string `json:"event_type"`
	Details     string `json:"details"`
	Timestamp   int64  `json:"timestamp"`
	Time        string `json:"time"`
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
}

type PaymentView struct {
	ProductID   string `json:"product_id"`
	Payer       string `json:"payer"`
	Payee       string `json:"payee"`
	Amount      string `json:"amount"`
	AmountWei   string `json:"amount_wei"`
	Timestamp   int64  `json:"timestamp"`
	Time        string `json:"time"`
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
}

type TrackerStep struct {
	Status    uint8  `json:"status"`
	Label     string `json:"label"`
	Completed bool   `json:"completed"`
}

type TrackerView struct {
	ProductID     string        `json:"product_id"`
	CurrentStatus uint8         `json:"current_status"`
	CurrentLabel  string        `json:"current_label"`
	Progress      float64       `json:"progress"`
	Steps         []TrackerStep `json:"steps"`
}

// TxView is returned by every write.
type TxView struct {
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
	ProductID   string `json:"product_id,omitempty"`
}

func ipfsURL(gateway, cid string) string {
	if cid == "" {
		return ""
	}
	return strings.TrimRight(gateway, "/") + "/" + cid
}

func addressOrEmpty(a common.Address) string {
	if a == (common.Address{}) {
		return ""
	}
	return a.Hex()
}

func weiString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatTimestamp(ts int64) string {
	if ts == 0 {
		return ""
	}
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}

func uint64Strings(values []uint64) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strconv.FormatUint(v, 10)
	}
	return out
}

func NewUserView(u *chain.User, gateway string) UserView {
	if u == nil || !u.Registered {
		return UserView{RoleLabel: "Unknown"}
	}
	return UserView{
		WalletAddress:   u.Address.Hex(),
		Registered:      true,
		Role:            uint8(u.Role),
		RoleName:        u.Role.Name(),
		RoleLabel:       u.Role.Label(),
		Email:           u.Email,
		PhysicalAddress: u.PhysicalAddress,
		CompanyName:     u.CompanyName,
		LicenseCID:      u.LicenseCID,
		LicenseURL:      ipfsURL(gateway, u.LicenseCID),
		PhoneNumber:     u.PhoneNumber,
	}
}

func NewProductView(p *chain.Product, gateway string) ProductView {
	attrs := p.Attributes
	docCID := utils.MiscValue(attrs.Misc, utils.MiscDocumentKey)
	podCID := utils.MiscValue(attrs.Misc, utils.MiscProofOfDelivery)

	previous := p.PreviousLocations
	if previous == nil {
		previous = []string{}
	}

	return ProductView{
		ID:                  strconv.FormatUint(p.ID, 10),
		Barcode:             p.Barcode,
		Name:                p.Name,
		Creator:             addressOrEmpty(p.Creator),
		Owner:               addressOrEmpty(p.Owner),
		ComponentProductIDs: uint64Strings(p.ComponentProductIDs),
		ComponentQuantities: uint64Strings(p.ComponentQuantities),
		PreviousLocations:   previous,
		PlaceOfOrigin:       attrs.PlaceOfOrigin,
		ProductionDate:      attrs.ProductionDate,
		ExpirationDate:      attrs.ExpirationDate,
		UnitQuantity:        strconv.FormatUint(attrs.UnitQuantity, 10),
		UnitQuantityType:    attrs.UnitQuantityType,
		BatchQuantity:       strconv.FormatUint(attrs.BatchQuantity, 10),
		UnitPrice:           utils.FormatEther(attrs.UnitPrice),
		UnitPriceWei:        weiString(attrs.UnitPrice),
		Category:            attrs.Category,
		Variety:             attrs.Variety,
		Misc:                attrs.Misc,
		Notes:               utils.MiscNotes(attrs.Misc),
		DocumentCID:         docCID,
		DocumentURL:         ipfsURL(gateway, docCID),
		ProofOfDeliveryCID:  podCID,
		ProofOfDeliveryURL:  ipfsURL(gateway, podCID),
		Location:            p.Location.Location,
		ArrivalDate:         p.Location.ArrivalDate,
		NextOwner:           addressOrEmpty(p.NextOwner),
		LogisticPartner:     addressOrEmpty(p.LogisticPartner),
		ShipmentStatus:      uint8(p.ShipmentStatus),
		StatusLabel:         p.ShipmentStatus.Label(),
		Progress:            p.ShipmentStatus.Progress(),
		AmountDue:           utils.FormatEther(p.AmountDue),
		AmountDueWei:        weiString(p.AmountDue),
		InvoicePaid:         p.InvoicePaid,
	}
}

func NewProductViews(products []chain.Product, gateway string) []ProductView {
	views := make([]ProductView, 0, len(products))
	for i := range products {
		views = append(views, NewProductView(&products[i], gateway))
	}
	return views
}

func NewHistoryView(e chain.HistoryEvent) HistoryView {
	return HistoryView{
		EventType:   e.EventType,
		Details:     e.Details,
		Timestamp:   e.Timestamp,
		Time:        formatTimestamp(e.Timestamp),
		TxHash:      e.TxHash.Hex(),
		BlockNumber: e.BlockNumber,
	}
}

func NewPaymentView(p chain.Payment) PaymentView {
	return PaymentView{
		ProductID:   strconv.FormatUint(p.ProductID, 10),
		Payer:       p.Payer.Hex(),
		Payee:       addressOrEmpty(p.Payee),
		Amount:      utils.FormatEther(p.Amount),
		AmountWei:   weiString(p.Amount),
		Timestamp:   p.Timestamp,
		Time:        formatTimestamp(p.Timestamp),
		TxHash:      p.TxHash.Hex(),
		BlockNumber: p.BlockNumber,
	}
}

// NewTrackerView marks every step up to and including the current status as completed.
func NewTrackerView(productID uint64, status models.ShipmentStatus) TrackerView {
	statuses := models.ShipmentStatuses()
	steps := make([]TrackerStep, 0, len(statuses))
	for _, s := range statuses {
		steps = append(steps, TrackerStep{
			Status:    uint8(s),
			Label:     s.Label(),
			Completed: s <= status,
		})
	}
	return TrackerView{
		ProductID:     strconv.FormatUint(productID, 10),
		CurrentStatus: uint8(status),
		CurrentLabel:  status.Label(),
		Progress:      status.Progress(),
		Steps:         steps,
	}
}

func NewTxView(r *chain.Receipt) TxView {
	v := TxView{TxHash: r.TxHash.Hex(), BlockNumber: r.BlockNumber}
	if r.ProductID != 0 {
		v.ProductID = strconv.FormatUint(r.ProductID, 10)
	}
	return v
}
