// Package events publishes supply-chain domain events.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventParticipantRegistered = "ParticipantRegistered"
	EventProductCreated        = "ProductCreated"
	EventShipmentDispatched    = "ShipmentDispatched"
	EventShipmentStatusUpdated = "ShipmentStatusUpdated"
	EventParcelReceived        = "ParcelReceived"
	EventInvoicePaid           = "InvoicePaid"
	EventInventorySold         = "InventorySold"
	EventTransactionRelayed    = "TransactionRelayed"
)

const envelopeVersion = 1

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // product id or wallet address
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope wraps payload in an envelope stamped with a fresh id and time.
func NewEnvelope(eventType, correlationID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  envelopeVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      "foodsecure-api",
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}

// Payloads

type ParticipantRegisteredPayload struct {
	WalletAddress string `json:"wallet_address"`
	Role          string `json:"role"`
	CompanyName   string `json:"company_name"`
	TxHash        string `json:"tx_hash"`
}

type ProductCreatedPayload struct {
	ProductID   uint64 `json:"product_id"`
	Name        string `json:"name"`
	Barcode     string `json:"barcode"`
	Creator     string `json:"creator"`
	UnitPrice   string `json:"unit_price_wei"`
	BatchQty    uint64 `json:"batch_quantity"`
	DocumentCID string `json:"document_cid,omitempty"`
	TxHash      string `json:"tx_hash"`
}

type ShipmentPayload struct {
	ProductID       uint64 `json:"product_id"`
	Actor           string `json:"actor"`
	Status          uint8  `json:"status"`
	StatusLabel     string `json:"status_label"`
	Location        string `json:"location,omitempty"`
	NextOwner       string `json:"next_owner,omitempty"`
	LogisticPartner string `json:"logistic_partner,omitempty"`
	AmountDue       string `json:"amount_due_wei,omitempty"`
	ProofCID        string `json:"proof_cid,omitempty"`
	TxHash          string `json:"tx_hash"`
}

type InvoicePaidPayload struct {
	ProductID uint64 `json:"product_id"`
	Payer     string `json:"payer"`
	Amount    string `json:"amount_wei"`
	TxHash    string `json:"tx_hash"`
}

type InventorySoldPayload struct {
	ProductID uint64 `json:"product_id"`
	Owner     string `json:"owner"`
	Quantity  uint64 `json:"quantity"`
	TxHash    string `json:"tx_hash"`
}

type TransactionRelayedPayload struct {
	Method    string `json:"method"`
	From      string `json:"from"`
	ProductID uint64 `json:"product_id,omitempty"`
	TxHash    string `json:"tx_hash"`
}
