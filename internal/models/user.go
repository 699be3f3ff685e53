// internal/models/user.go
package models

import (
	"time"
)

// User is a registered supply-chain participant as recorded by the offline ledger.
type User struct {
	BaseModel
	WalletAddress   string    `json:"wallet_address" gorm:"uniqueIndex;size:42;not null"`
	Role            Role      `json:"role" gorm:"not null;index"`
	Email           string    `json:"email" gorm:"size:255"`
	PhysicalAddress string    `json:"physical_address" gorm:"type:text"`
	CompanyName     string    `json:"company_name" gorm:"size:255;not null"`
	LicenseCID      string    `json:"license_cid" gorm:"size:128"`
	PhoneNumber     string    `json:"phone_number" gorm:"size:50"`
	RegisteredAt    time.Time `json:"registered_at"`
}

// AuthNonce is a one-time login challenge for a wallet.
type AuthNonce struct {
	BaseModel
	WalletAddress string     `json:"wallet_address" gorm:"size:42;not null;index"`
	Nonce         string     `json:"nonce" gorm:"size:64;not null;uniqueIndex"`
	Message       string     `json:"message" gorm:"type:text;not null"`
	ExpiresAt     time.Time  `json:"expires_at" gorm:"not null"`
	UsedAt        *time.Time `json:"used_at"`
}
