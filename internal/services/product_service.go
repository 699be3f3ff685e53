// internal/services/product_service.go
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

type ProductService struct {
	contract  chain.Contract
	storage   *StorageService
	qr        *QRService
	publisher events.Publisher
	cfg       *config.Config
}

type CreateProductRequest struct {
	Barcode             string   `json:"barcode" form:"barcode" validate:"required,max=128"`
	Name                string   `json:"name" form:"name" validate:"required,max=255"`
	ComponentProductIDs []uint64 `json:"component_product_ids" form:"component_product_ids" validate:"omitempty,dive,gt=0"`
	ComponentQuantities []uint64 `json:"component_quantities" form:"component_quantities" validate:"omitempty,dive,gt=0"`
	PlaceOfOrigin       string   `json:"place_of_origin" form:"place_of_origin" validate:"required"`
	ProductionDate      string   `json:"production_date" form:"production_date" validate:"required"`
	ExpirationDate      string   `json:"expiration_date" form:"expiration_date" validate:"required"`
	UnitQuantity        uint64   `json:"unit_quantity" form:"unit_quantity" validate:"required,gt=0"`
	UnitQuantityType    string   `json:"unit_quantity_type" form:"unit_quantity_type" validate:"required"`
	BatchQuantity       uint64   `json:"batch_quantity" form:"batch_quantity" validate:"required,gt=0"`
	UnitPrice           string   `json:"unit_price" form:"unit_price" validate:"required"` // ether
	Category            string   `json:"category" form:"category" validate:"required"`
	Variety             string   `json:"variety" form:"variety"`
	Misc                string   `json:"misc" form:"misc"`
	DocumentCID         string   `json:"document_cid" form:"document_cid"`
}

type SoldOutRequest struct {
	Quantity uint64 `json:"quantity" validate:"required,gt=0"`
}

// WriteResult pairs the refreshed product with the transaction that changed it.
type WriteResult struct {
	Product     ProductView `json:"product"`
	Transaction TxView      `json:"transaction"`
}

func NewProductService(contract chain.Contract, storage *StorageService, qr *QRService, publisher events.Publisher, cfg *config.Config) *ProductService {
	return &ProductService{
		contract:  contract,
		storage:   storage,
		qr:        qr,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *ProductService) gateway() string {
	return s.cfg.Pinata.GatewayURL
}

func (s *ProductService) Create(ctx context.Context, wallet string, req *CreateProductRequest, document *multipart.FileHeader) (*WriteResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if len(req.ComponentProductIDs) != len(req.ComponentQuantities) {
		return nil, fmt.Errorf("%w: component ids and quantities differ in length", chain.ErrInvalidInput)
	}

	account, err := parseAccount(wallet)
	if err != nil {
		return nil, err
	}

	unitPrice, err := utils.ParseEther(req.UnitPrice)
	if err != nil {
		return nil, fmt.Errorf("%w: unit price %q", chain.ErrInvalidInput, req.UnitPrice)
	}

	documentCID := req.DocumentCID
	if document != nil {
		uploaded, err := s.storage.Pin(ctx, document, s.storage.GetDefaultUploadOptions("documents"))
		if err != nil {
			return nil, err
		}
		documentCID = uploaded.CID
	}

	receipt, err := s.contract.CreateProduct(ctx, account, chain.NewProduct{
		Barcode:             strings.TrimSpace(req.Barcode),
		Name:                strings.TrimSpace(req.Name),
		ComponentProductIDs: req.ComponentProductIDs,
		ComponentQuantities: req.ComponentQuantities,
		Attributes: chain.Attributes{
			PlaceOfOrigin:    req.PlaceOfOrigin,
			ProductionDate:   req.ProductionDate,
			ExpirationDate:   req.ExpirationDate,
			UnitQuantity:     req.UnitQuantity,
			UnitQuantityType: req.UnitQuantityType,
			BatchQuantity:    req.BatchQuantity,
			UnitPrice:        unitPrice,
			Category:         req.Category,
			Variety:          req.Variety,
			Misc:             buildMisc(documentCID, req.Misc),
		},
	})
	if err != nil {
		logrus.WithError(err).WithField("wallet", account.Hex()).Error("Product creation failed")
		return nil, err
	}

	product, err := s.contract.GetProduct(ctx, receipt.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to load created product: %w", err)
	}

	publishEvent(ctx, s.publisher, events.EventProductCreated, productCorrelation(product.ID), events.ProductCreatedPayload{
		ProductID:   product.ID,
		Name:        product.Name,
		Barcode:     product.Barcode,
		Creator:     account.Hex(),
		UnitPrice:   unitPrice.String(),
		BatchQty:    req.BatchQuantity,
		DocumentCID: documentCID,
		TxHash:      receipt.TxHash.Hex(),
	})

	return &WriteResult{
		Product:     NewProductView(product, s.gateway()),
		Transaction: NewTxView(receipt),
	}, nil
}

// buildMisc puts the document marker first, followed by free-text notes.
func buildMisc(documentCID, notes string) string {
	notes = strings.TrimSpace(notes)
	if documentCID == "" {
		return notes
	}
	misc := utils.AppendMisc("", utils.MiscDocumentKey, documentCID)
	if notes != "" {
		misc += "|" + notes
	}
	return misc
}

// ListForRole returns the products a participant works with on their dashboard.
func (s *ProductService) ListForRole(ctx context.Context, wallet string) ([]ProductView, error) {
	account, err := parseAccount(wallet)
	if err != nil {
		return nil, err
	}

	role, err := s.contract.GetUserRole(ctx, account)
	if err != nil {
		return nil, err
	}

	var products []chain.Product
	// Manufacturers both create and receive; they see what they created.
	switch {
	case role.CanCreateProducts():
		products, err = s.contract.GetProductsCreatedBy(ctx, account)
	case role == models.RoleLogisticPartner:
		products, err = s.contract.GetProductsForLogisticPartner(ctx, account)
	case role.Receives():
		products, err = s.contract.GetProductsForNextOwner(ctx, account)
	default:
		return nil, fmt.Errorf("%w: unknown role %d", chain.ErrUnauthorized, role)
	}
	if err != nil {
		return nil, err
	}

	return NewProductViews(products, s.gateway()), nil
}

func (s *ProductService) Get(ctx context.Context, productID uint64) (ProductView, error) {
	product, err := s.contract.GetProduct(ctx, productID)
	if err != nil {
		return ProductView{}, err
	}
	return NewProductView(product, s.gateway()), nil
}

func (s *ProductService) Inventory(ctx context.Context, wallet string) ([]ProductView, error) {
	account, err := parseAccount(wallet)
	if err != nil {
		return nil, err
	}

	products, err := s.contract.GetInventory(ctx, account)
	if err != nil {
		return nil, err
	}
	return NewProductViews(products, s.gateway()), nil
}

func (s *ProductService) UpdateSoldOut(ctx context.Context, wallet string, productID uint64, req *SoldOutRequest) (*WriteResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	account, err := parseAccount(wallet)
	if err != nil {
		return nil, err
	}

	receipt, err := s.contract.UpdateSoldOut(ctx, account, productID, req.Quantity)
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.publisher, events.EventInventorySold, productCorrelation(productID), events.InventorySoldPayload{
		ProductID: productID,
		Owner:     account.Hex(),
		Quantity:  req.Quantity,
		TxHash:    receipt.TxHash.Hex(),
	})

	return refreshed(ctx, s.contract, productID, receipt, s.gateway())
}

// History lists ProductHistoryRecorded events, oldest first.
func (s *ProductService) History(ctx context.Context, productID uint64) ([]HistoryView, error) {
	if _, err := s.contract.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	history, err := s.contract.ProductHistory(ctx, productID)
	if err != nil {
		return nil, err
	}

	views := make([]HistoryView, 0, len(history))
	for _, e := range history {
		views = append(views, NewHistoryView(e))
	}
	return views, nil
}

// QRCode renders a PNG linking to the product's history page.
func (s *ProductService) QRCode(ctx context.Context, productID uint64) ([]byte, error) {
	if _, err := s.contract.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.qr.Encode(s.qr.HistoryURL(productID))
}

func (s *ProductService) Tracker(ctx context.Context, productID uint64) (TrackerView, error) {
	product, err := s.contract.GetProduct(ctx, productID)
	if err != nil {
		return TrackerView{}, err
	}
	return NewTrackerView(product.ID, product.ShipmentStatus), nil
}

// refreshed reloads a product after a write.
func refreshed(ctx context.Context, contract chain.Reader, productID uint64, receipt *chain.Receipt, gateway string) (*WriteResult, error) {
	product, err := contract.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh product %d: %w", productID, err)
	}
	return &WriteResult{
		Product:     NewProductView(product, gateway),
		Transaction: NewTxView(receipt),
	}, nil
}
