// internal/services/payment_service.go
package services

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/javajoker/foodsecure-backend/internal/chain"
	"github.com/javajoker/foodsecure-backend/internal/config"
	"github.com/javajoker/foodsecure-backend/internal/events"
	"github.com/javajoker/foodsecure-backend/internal/utils"
)

type PaymentService struct {
	contract  chain.Contract
	notifier  *NotificationService
	publisher events.Publisher
	cfg       *config.Config
}

type PayRequest struct {
	// Amount in ether. Empty pays the full amount due.
	Amount string `json:"amount"`
}

type PaymentResult struct {
	Product     ProductView  `json:"product"`
	Payment     *PaymentView `json:"payment,omitempty"`
	Transaction TxView       `json:"transaction"`
}

const (
	DirectionSent     = "sent"
	DirectionReceived = "received"
)

func NewPaymentService(contract chain.Contract, notifier *NotificationService, publisher events.Publisher, cfg *config.Config) *PaymentService {
	return &PaymentService{
		contract:  contract,
		notifier:  notifier,
		publisher: publisher,
		cfg:       cfg,
	}
}

// PendingInvoices lists incoming products whose invoice is unpaid.
func (s *PaymentService) PendingInvoices(ctx context.Context, wallet string) ([]ProductView, error) {
	account, err := parseAccount(wallet)
	if err != nil {
		return nil, err
	}

	products, err := s.contract.GetProductsForNextOwner(ctx, account)
	if err != nil {
		return nil, err
	}

	pending := make([]chain.Product, 0, len(products))
	for _, p := range products {
		if !p.InvoicePaid && p.AmountDue != nil && p.AmountDue.Sign() > 0 {
			pending = append(pending, p)
		}
	}
	return NewProductViews(pending, s.cfg.Pinata.GatewayURL), nil
}

func (s *PaymentService) Pay(ctx context.Context, wallet string, productID uint64, req *PayRequest) (*PaymentResult, error) {
	account, err := parseAccount(wallet)
	if err != nil {
		return nil, err
	}

	var value *big.Int
	if amount := strings.TrimSpace(req.Amount); amount != "" {
		value, err = utils.ParseEther(amount)
		if err != nil {
			return nil, fmt.Errorf("%w: amount %q", chain.ErrIncorrectPayment, req.Amount)
		}
	} else {
		product, err := s.contract.GetProduct(ctx, productID)
		if err != nil {
			return nil, err
		}
		value = product.AmountDue
	}

	receipt, err := s.contract.PayAmountDue(ctx, account, productID, value)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"product_id": productID,
			"value":      value.String(),
		}).Error("Payment failed")
		return nil, err
	}

	product, err := s.contract.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh product %d: %w", productID, err)
	}

	result := &PaymentResult{
		Product:     NewProductView(product, s.cfg.Pinata.GatewayURL),
		Transaction: NewTxView(receipt),
	}

	payment, err := s.findPayment(ctx, productID, account, receipt)
	if err != nil {
		logrus.WithError(err).WithField("product_id", productID).Warn("Payment event not found")
	} else if payment != nil {
		view := NewPaymentView(*payment)
		result.Payment = &view
	}

	publishEvent(ctx, s.publisher, events.EventInvoicePaid, productCorrelation(productID), events.InvoicePaidPayload{
		ProductID: productID,
		Payer:     account.Hex(),
		Amount:    value.String(),
		TxHash:    receipt.TxHash.Hex(),
	})

	if payment != nil && s.notifier != nil && s.notifier.Enabled() {
		paid, settled := *product, *payment
		go func() {
			if err := s.notifier.SendInvoicePaid(context.Background(), &paid, settled); err != nil {
				logrus.WithError(err).WithField("product_id", productID).Warn("Failed to send payment notification")
			}
		}()
	}

	return result, nil
}

// findPayment returns the InvoicePaid event emitted by receipt.
func (s *PaymentService) findPayment(ctx context.Context, productID uint64, payer common.Address, receipt *chain.Receipt) (*chain.Payment, error) {
	payments, err := s.contract.Payments(ctx, chain.PaymentFilter{ProductID: &productID, Payer: &payer})
	if err != nil {
		return nil, err
	}
	for i := len(payments) - 1; i >= 0; i-- {
		if payments[i].TxHash == receipt.TxHash {
			return &payments[i], nil
		}
	}
	return nil, nil
}

// History lists payments the wallet sent, received, or both, oldest first.
func (s *PaymentService) History(ctx context.Context, wallet, direction string) ([]PaymentView, error) {
	account, err := parseAccount(wallet)
	if err != nil {
		return nil, err
	}

	var sent, received []chain.Payment
	g, gctx := errgroup.WithContext(ctx)
	if direction != DirectionReceived {
		g.Go(func() error {
			var err error
			sent, err = s.contract.Payments(gctx, chain.PaymentFilter{Payer: &account})
			return err
		})
	}
	if direction != DirectionSent {
		g.Go(func() error {
			var err error
			received, err = s.contract.Payments(gctx, chain.PaymentFilter{Payee: &account})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	payments := append(sent, received...)

	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].BlockNumber < payments[j].BlockNumber
	})

	views := make([]PaymentView, 0, len(payments))
	for _, p := range payments {
		views = append(views, NewPaymentView(p))
	}
	return views, nil
}
