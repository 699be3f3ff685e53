// internal/services/shipment_service.go
package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/foodsecure-backend/internal/chain"
	"github.com/javajoker/foodsecure-backend/internal/config"
	"github.com/javajoker/foodsecure-backend/internal/events"
	"github.com/javajoker/foodsecure-backend/internal/models"
	"github.com/javajoker/foodsecure-backend/internal/utils"
)

type ShipmentService struct {
	contract  chain.Contract
	storage   *StorageService
	notifier  *NotificationService
	publisher events.Publisher
	cfg       *config.Config
}

type DispatchRequest struct {
	NextOwner       string `json:"next_owner" validate:"required,eth_address"`
	LogisticPartner string `json:"logistic_partner" validate:"required,eth_address"`
	MerchantName    string `json:"merchant_name" validate:"max=255"`
}

type StatusUpdateRequest struct {
	Status   uint8  `json:"status" validate:"lte=7"`
	Location string `json:"location" validate:"max=255"`
}

type ReceiveRequest struct {
	ProofCID string `json:"proof_cid" form:"proof_cid"`
}

func NewShipmentService(contract chain.Contract, storage *StorageService, notifier *NotificationService, publisher events.Publisher, cfg *config.Config) *ShipmentService {
	return &ShipmentService{
		contract:  contract,
		storage:   storage,
		notifier:  notifier,
		publisher: publisher,
		cfg:       cfg,
	}
}

// Dispatch hands a product to a logistic partner and raises the invoice for the next owner.
func (s *ShipmentService) Dispatch(ctx context.Context, wallet string, productID uint64, req *DispatchRequest) (*WriteResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	account, err := parseAccount(wallet)
	if err != nil {
		return nil, err
	}
	nextOwner, _ := parseAccount(req.NextOwner)
	partner, _ := parseAccount(req.LogisticPartner)

	receipt, err := s.contract.UpdateShipmentBySupplier(ctx, account, productID, strings.TrimSpace(req.MerchantName), nextOwner, partner)
	if err != nil {
		logrus.WithError(err).WithField("product_id", productID).Error("Dispatch failed")
		return nil, err
	}

	product, err := s.contract.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh product %d: %w", productID, err)
	}

	publishEvent(ctx, s.publisher, events.EventShipmentDispatched, productCorrelation(productID), events.ShipmentPayload{
		ProductID:       productID,
		Actor:           account.Hex(),
		Status:          uint8(product.ShipmentStatus),
		StatusLabel:     product.ShipmentStatus.Label(),
		NextOwner:       nextOwner.Hex(),
		LogisticPartner: partner.Hex(),
		AmountDue:       weiString(product.AmountDue),
		TxHash:          receipt.TxHash.Hex(),
	})

	if s.notifier != nil && s.notifier.Enabled() {
		dispatched := *product
		go func() {
			if err := s.notifier.SendShipmentDispatched(context.Background(), &dispatched); err != nil {
				logrus.WithError(err).WithField("product_id", productID).Warn("Failed to send dispatch notification")
			}
		}()
	}

	return &WriteResult{
		Product:     NewProductView(product, s.cfg.Pinata.GatewayURL),
		Transaction: NewTxView(receipt),
	}, nil
}

// UpdateStatus moves a shipment one step along the carrier route.
func (s *ShipmentService) UpdateStatus(ctx context.Context, wallet string, productID uint64, req *StatusUpdateRequest) (*WriteResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	account, err := parseAccount(wallet)
	if err != nil {
		return nil, err
	}

	status := models.ShipmentStatus(req.Status)
	location := strings.TrimSpace(req.Location)

	receipt, err := s.contract.UpdateShipmentStatus(ctx, account, productID, status, location)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"product_id": productID,
			"status":     status.Label(),
		}).Error("Shipment status update failed")
		return nil, err
	}

	publishEvent(ctx, s.publisher, events.EventShipmentStatusUpdated, productCorrelation(productID), events.ShipmentPayload{
		ProductID:   productID,
		Actor:       account.Hex(),
		Status:      uint8(status),
		StatusLabel: status.Label(),
		Location:    location,
		TxHash:      receipt.TxHash.Hex(),
	})

	return refreshed(ctx, s.contract, productID, receipt, s.cfg.Pinata.GatewayURL)
}

// MarkReceived confirms delivery. A proof-of-delivery file is pinned first when given.
func (s *ShipmentService) MarkReceived(ctx context.Context, wallet string, productID uint64, req *ReceiveRequest, proof *multipart.FileHeader) (*WriteResult, error) {
	account, err := parseAccount(wallet)
	if err != nil {
		return nil, err
	}

	proofCID := strings.TrimSpace(req.ProofCID)
	if proof != nil {
		uploaded, err := s.storage.Pin(ctx, proof, s.storage.GetDefaultUploadOptions("proofs"))
		if err != nil {
			return nil, err
		}
		proofCID = uploaded.CID
	}

	receipt, err := s.contract.MarkParcelReceived(ctx, account, productID, proofCID)
	if err != nil {
		logrus.WithError(err).WithField("product_id", productID).Error("Mark received failed")
		return nil, err
	}

	publishEvent(ctx, s.publisher, events.EventParcelReceived, productCorrelation(productID), events.ShipmentPayload{
		ProductID:   productID,
		Actor:       account.Hex(),
		Status:      uint8(models.StatusDelivered),
		StatusLabel: models.StatusDelivered.Label(),
		ProofCID:    proofCID,
		TxHash:      receipt.TxHash.Hex(),
	})

	return refreshed(ctx, s.contract, productID, receipt, s.cfg.Pinata.GatewayURL)
}
