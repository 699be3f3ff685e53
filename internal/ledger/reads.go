package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"

	"github.com/javajoker/foodsecure-backend/internal/chain"
	"github.com/javajoker/foodsecure-backend/internal/models"
)

func (l *Ledger) GetUserRole(ctx context.Context, account common.Address) (models.Role, error) {
	user, err := findUser(l.db.WithContext(ctx), account)
	if err != nil {
		return 0, err
	}
	return user.Role, nil
}

func (l *Ledger) GetUser(ctx context.Context, account common.Address) (*chain.User, error) {
	user, err := findUser(l.db.WithContext(ctx), account)
	if err != nil {
		return nil, err
	}
	return toChainUser(user), nil
}

func (l *Ledger) GetProduct(ctx context.Context, productID uint64) (*chain.Product, error) {
	product, err := findProduct(l.db.WithContext(ctx), productID)
	if err != nil {
		return nil, err
	}
	p := toChainProduct(product)
	return &p, nil
}

func (l *Ledger) GetInventory(ctx context.Context, account common.Address) ([]chain.Product, error) {
	return l.listProducts(ctx, "owner = ?", account)
}

func (l *Ledger) GetProductsForNextOwner(ctx context.Context, account common.Address) ([]chain.Product, error) {
	return l.listProducts(ctx, "next_owner = ?", account)
}

func (l *Ledger) GetProductsForLogisticPartner(ctx context.Context, account common.Address) ([]chain.Product, error) {
	return l.listProducts(ctx, "logistic_partner = ?", account)
}

func (l *Ledger) GetProductsCreatedBy(ctx context.Context, account common.Address) ([]chain.Product, error) {
	return l.listProducts(ctx, "creator = ?", account)
}

func (l *Ledger) listProducts(ctx context.Context, where string, account common.Address) ([]chain.Product, error) {
	if account == (common.Address{}) {
		return []chain.Product{}, nil
	}

	var rows []models.Product
	if err := l.db.WithContext(ctx).Where(where, account.Hex()).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	products := make([]chain.Product, 0, len(rows))
	for i := range rows {
		products = append(products, toChainProduct(&rows[i]))
	}
	return products, nil
}

func (l *Ledger) ProductHistory(ctx context.Context, productID uint64) ([]chain.HistoryEvent, error) {
	var rows []models.ProductHistory
	err := l.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("block_number ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	events := make([]chain.HistoryEvent, 0, len(rows))
	for _, r := range rows {
		events = append(events, chain.HistoryEvent{
			ProductID:   r.ProductID,
			EventType:   r.EventType,
			Details:     r.Details,
			Timestamp:   r.Timestamp,
			TxHash:      common.HexToHash(r.TxHash),
			BlockNumber: r.BlockNumber,
		})
	}
	return events, nil
}

func (l *Ledger) Payments(ctx context.Context, filter chain.PaymentFilter) ([]chain.Payment, error) {
	query := l.db.WithContext(ctx).Model(&models.Payment{})
	query = applyPaymentFilter(query, filter)

	var rows []models.Payment
	if err := query.Order("block_number ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	payments := make([]chain.Payment, 0, len(rows))
	for _, r := range rows {
		payments = append(payments, chain.Payment{
			ProductID:   r.ProductID,
			Payer:       common.HexToAddress(r.Payer),
			Payee:       common.HexToAddress(r.Payee),
			Amount:      parseWei(r.Amount),
			Timestamp:   r.Timestamp,
			TxHash:      common.HexToHash(r.TxHash),
			BlockNumber: r.BlockNumber,
		})
	}
	return payments, nil
}

func applyPaymentFilter(query *gorm.DB, filter chain.PaymentFilter) *gorm.DB {
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Payer != nil {
		query = query.Where("payer = ?", filter.Payer.Hex())
	}
	if filter.Payee != nil {
		query = query.Where("payee = ?", filter.Payee.Hex())
	}
	return query
}
