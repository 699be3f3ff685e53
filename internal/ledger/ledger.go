// Package ledger is a database-backed stand-in for the SupplyChain contract.
// It enforces the contract's rules and records the same events, so the rest of
// the service runs unchanged when no Ethereum node is configured.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/foodsecure-backend/internal/chain"
	"github.com/javajoker/foodsecure-backend/internal/database"
	"github.com/javajoker/foodsecure-backend/internal/models"
)

const dateLayout = "2006-01-02"

// History event types.
const (
	EventProductCreated    = "ProductCreated"
	EventComponentConsumed = "ComponentConsumed"
	EventShipmentCreated   = "ShipmentCreated"
	EventStatusUpdated     = "ShipmentStatusUpdated"
	EventParcelReceived    = "ParcelReceived"
	EventInvoicePaid       = "InvoicePaid"
	EventSoldOut           = "SoldOut"
)

type Ledger struct {
	db  *gorm.DB
	mu  sync.Mutex
	now func() time.Time
}

var _ chain.Contract = (*Ledger)(nil)

func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// WithClock replaces the time source.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// block carries the transaction currently being applied.
type block struct {
	tx     *gorm.DB
	hash   string
	number uint64
	at     time.Time
}

func (b *block) history(productID uint64, eventType, details string) error {
	return b.tx.Create(&models.ProductHistory{
		ProductID:   productID,
		EventType:   eventType,
		Details:     details,
		Timestamp:   b.at.Unix(),
		TxHash:      b.hash,
		BlockNumber: b.number,
	}).Error
}

// apply runs fn as one serialized transaction and returns its receipt.
// fn returns the product the write targeted.
func (l *Ledger) apply(ctx context.Context, method string, from common.Address, value *big.Int, fn func(b *block) (uint64, error)) (*chain.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	at := l.now().UTC()
	valueStr := "0"
	if value != nil {
		valueStr = value.String()
	}
	hash := crypto.Keccak256Hash([]byte(fmt.Sprintf("%s|%s|%s|%d|%s", method, from.Hex(), valueStr, at.UnixNano(), uuid.NewString()))).Hex()

	record := models.LedgerTx{
		Hash:   hash,
		Method: method,
		From:   from.Hex(),
		Value:  valueStr,
		Status: models.LedgerTxStatusConfirmed,
	}

	if signed, ok := chain.SignedTxFrom(ctx); ok {
		if err := l.checkSigned(ctx, from, signed); err != nil {
			return nil, fmt.Errorf("%s: %w", method, err)
		}
		hash = signed.Hash.Hex()
		nonce := signed.Nonce
		record.Hash = hash
		record.Nonce = &nonce
	}

	var productID uint64
	err := database.WithTransaction(l.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		var err error
		productID, err = fn(&block{tx: tx, hash: hash, number: record.ID, at: at})
		return err
	})

	entry := logrus.WithFields(logrus.Fields{
		"method":  method,
		"from":    from.Hex(),
		"tx_hash": hash,
	})

	if err != nil {
		if chain.IsRevert(err) {
			l.recordRevert(ctx, record, err)
			entry.WithError(err).Warn("Ledger transaction reverted")
		}
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	entry.WithField("block", record.ID).Debug("Ledger transaction applied")
	return &chain.Receipt{
		TxHash:      common.HexToHash(hash),
		BlockNumber: record.ID,
		ProductID:   productID,
	}, nil
}

func (l *Ledger) recordRevert(ctx context.Context, record models.LedgerTx, cause error) {
	record.ID = 0
	record.Status = models.LedgerTxStatusReverted
	record.Error = cause.Error()
	if err := l.db.WithContext(ctx).Create(&record).Error; err != nil {
		logrus.WithError(err).Error("Failed to record reverted ledger transaction")
	}
}

// checkSigned rejects a signed transaction that was already applied or whose
// nonce is not the sender's next one. Reverted transactions use up their nonce
// as they would on chain.
func (l *Ledger) checkSigned(ctx context.Context, from common.Address, signed chain.SignedTx) error {
	if _, err := l.Transaction(ctx, signed.Hash); err == nil {
		return fmt.Errorf("%w: transaction %s was already applied", chain.ErrInvalidInput, signed.Hash.Hex())
	} else if !errors.Is(err, chain.ErrInvalidInput) {
		return err
	}

	var next int64
	if err := l.db.WithContext(ctx).Model(&models.LedgerTx{}).
		Where(&models.LedgerTx{From: from.Hex()}).
		Where("nonce IS NOT NULL").
		Count(&next).Error; err != nil {
		return err
	}
	if signed.Nonce != uint64(next) {
		return fmt.Errorf("%w: nonce %d, expected %d", chain.ErrInvalidInput, signed.Nonce, next)
	}
	return nil
}

// Transaction looks up an applied or reverted transaction by hash.
func (l *Ledger) Transaction(ctx context.Context, hash common.Hash) (*models.LedgerTx, error) {
	var record models.LedgerTx
	if err := l.db.WithContext(ctx).Where("hash = ?", hash.Hex()).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: unknown transaction", chain.ErrInvalidInput)
		}
		return nil, err
	}
	return &record, nil
}

// Helpers shared by reads and writes.

func findUser(tx *gorm.DB, account common.Address) (*models.User, error) {
	var user models.User
	if err := tx.Where("wallet_address = ?", account.Hex()).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, chain.ErrNotRegistered
		}
		return nil, err
	}
	return &user, nil
}

func findProduct(tx *gorm.DB, productID uint64) (*models.Product, error) {
	if productID == 0 {
		return nil, chain.ErrProductNotFound
	}
	var product models.Product
	if err := tx.First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, chain.ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

func parseWei(s string) *big.Int {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return new(big.Int)
	}
	return v
}

func toChainUser(u *models.User) *chain.User {
	return &chain.User{
		Address:         common.HexToAddress(u.WalletAddress),
		Role:            u.Role,
		Email:           u.Email,
		PhysicalAddress: u.PhysicalAddress,
		CompanyName:     u.CompanyName,
		LicenseCID:      u.LicenseCID,
		PhoneNumber:     u.PhoneNumber,
		Registered:      true,
	}
}

func toChainProduct(p *models.Product) chain.Product {
	return chain.Product{
		ID:                  p.ID,
		Barcode:             p.Barcode,
		Name:                p.Name,
		Creator:             common.HexToAddress(p.Creator),
		Owner:               common.HexToAddress(p.Owner),
		ComponentProductIDs: append([]uint64{}, p.ComponentProductIDs...),
		ComponentQuantities: append([]uint64{}, p.ComponentQuantities...),
		PreviousLocations:   append([]string{}, p.PreviousLocations...),
		Attributes: chain.Attributes{
			PlaceOfOrigin:    p.PlaceOfOrigin,
			ProductionDate:   p.ProductionDate,
			ExpirationDate:   p.ExpirationDate,
			UnitQuantity:     p.UnitQuantity,
			UnitQuantityType: p.UnitQuantityType,
			BatchQuantity:    p.BatchQuantity,
			UnitPrice:        parseWei(p.UnitPrice),
			Category:         p.Category,
			Variety:          p.Variety,
			Misc:             p.Misc,
		},
		Location: chain.LocationEntry{
			Location:    p.Location,
			ArrivalDate: p.ArrivalDate,
		},
		NextOwner:       common.HexToAddress(p.NextOwner),
		LogisticPartner: common.HexToAddress(p.LogisticPartner),
		ShipmentStatus:  p.ShipmentStatus,
		AmountDue:       parseWei(p.AmountDue),
		InvoicePaid:     p.InvoicePaid,
	}
}
