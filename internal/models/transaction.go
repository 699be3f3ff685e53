// internal/models/transaction.go
package models

import (
	"time"
)

type LedgerTxStatus string

const (
	LedgerTxStatusConfirmed LedgerTxStatus = "confirmed"
	LedgerTxStatusReverted  LedgerTxStatus = "reverted"
)

// LedgerTx is one state-changing call applied by the offline ledger.
// The autoincrement ID doubles as the block number.
type LedgerTx struct {
	ID        uint64         `json:"block_number" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time      `json:"created_at"`
	Hash      string         `json:"hash" gorm:"size:66;not null;uniqueIndex"`
	Method    string         `json:"method" gorm:"size:64;not null;index"`
	From      string         `json:"from" gorm:"size:42;not null;index"`
	Value     string         `json:"value" gorm:"size:80;default:'0'"`
	Nonce     *uint64        `json:"nonce,omitempty" gorm:"index"` // set for relayed signed transactions
	Status    LedgerTxStatus `json:"status" gorm:"type:varchar(20);not null"`
	Error     string         `json:"error,omitempty" gorm:"type:text"`
}

// ProductHistory mirrors a ProductHistoryRecorded event.
type ProductHistory struct {
	ID          uint64 `json:"id" gorm:"primaryKey;autoIncrement"`
	ProductID   uint64 `json:"product_id" gorm:"not null;index"`
	EventType   string `json:"event_type" gorm:"size:64;not null"`
	Details     string `json:"details" gorm:"type:text"`
	Timestamp   int64  `json:"timestamp" gorm:"not null"`
	TxHash      string `json:"tx_hash" gorm:"size:66;index"`
	BlockNumber uint64 `json:"block_number"`
}

// Payment mirrors an InvoicePaid event.
type Payment struct {
	ID          uint64 `json:"id" gorm:"primaryKey;autoIncrement"`
	ProductID   uint64 `json:"product_id" gorm:"not null;index"`
	Payer       string `json:"payer" gorm:"size:42;not null;index"`
	Payee       string `json:"payee" gorm:"size:42;not null;index"`
	Amount      string `json:"amount" gorm:"size:80;not null"` // wei
	Timestamp   int64  `json:"timestamp" gorm:"not null"`
	TxHash      string `json:"tx_hash" gorm:"size:66;index"`
	BlockNumber uint64 `json:"block_number"`
}
