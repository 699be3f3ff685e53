// internal/services/user_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/foodsecure-backend/internal/chain"
	"github.com/javajoker/foodsecure-backend/internal/config"
	"github.com/javajoker/foodsecure-backend/internal/events"
	"github.com/javajoker/foodsecure-backend/internal/models"
	"github.com/javajoker/foodsecure-backend/internal/utils"
)

type UserService struct {
	contract  chain.Contract
	storage   *StorageService
	publisher events.Publisher
	cfg       *config.Config
}

// RegisterRequest binds from JSON or from the multipart form that carries the license file.
type RegisterRequest struct {
	Role            string `json:"role" form:"role" validate:"required,role_name"`
	Email           string `json:"email" form:"email" validate:"required,contact_email"`
	PhysicalAddress string `json:"physical_address" form:"physical_address" validate:"required"`
	CompanyName     string `json:"company_name" form:"company_name" validate:"required,max=255"`
	PhoneNumber     string `json:"phone_number" form:"phone_number" validate:"required,min=6,max=20"`
	LicenseCID      string `json:"license_cid" form:"license_cid"`
}

type RegistrationResult struct {
	User        UserView `json:"user"`
	Transaction TxView   `json:"transaction"`
}

type RoleView struct {
	WalletAddress string `json:"wallet_address"`
	Registered    bool   `json:"registered"`
	Role          uint8  `json:"role"`
	RoleName      string `json:"role_name"`
	RoleLabel     string `json:"role_label"`
}

func NewUserService(contract chain.Contract, storage *StorageService, publisher events.Publisher, cfg *config.Config) *UserService {
	return &UserService{
		contract:  contract,
		storage:   storage,
		publisher: publisher,
		cfg:       cfg,
	}
}

// Register records the wallet's role on the contract. Nothing is sent when validation fails.
func (s *UserService) Register(ctx context.Context, wallet string, req *RegisterRequest, license *multipart.FileHeader) (*RegistrationResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	account, err := parseAccount(wallet)
	if err != nil {
		return nil, err
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", chain.ErrInvalidInput, err)
	}

	licenseCID := req.LicenseCID
	if license != nil {
		uploaded, err := s.storage.Pin(ctx, license, s.storage.GetDefaultUploadOptions("licenses"))
		if err != nil {
			return nil, err
		}
		licenseCID = uploaded.CID
	}

	receipt, err := s.contract.RegisterRole(ctx, account, chain.Registration{
		Role:            role,
		Email:           req.Email,
		PhysicalAddress: req.PhysicalAddress,
		CompanyName:     req.CompanyName,
		LicenseCID:      licenseCID,
		PhoneNumber:     req.PhoneNumber,
	})
	if err != nil {
		logrus.WithError(err).WithField("wallet", account.Hex()).Error("Role registration failed")
		return nil, err
	}

	user, err := s.contract.GetUser(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to load registered user: %w", err)
	}

	publishEvent(ctx, s.publisher, events.EventParticipantRegistered, account.Hex(), events.ParticipantRegisteredPayload{
		WalletAddress: account.Hex(),
		Role:          role.Name(),
		CompanyName:   user.CompanyName,
		TxHash:        receipt.TxHash.Hex(),
	})

	return &RegistrationResult{
		User:        NewUserView(user, s.cfg.Pinata.GatewayURL),
		Transaction: NewTxView(receipt),
	}, nil
}

func (s *UserService) Profile(ctx context.Context, address string) (UserView, error) {
	account, err := parseAccount(address)
	if err != nil {
		return UserView{}, err
	}

	user, err := s.contract.GetUser(ctx, account)
	if err != nil {
		return UserView{}, err
	}
	return NewUserView(user, s.cfg.Pinata.GatewayURL), nil
}

// Role reports the wallet's role label. Unregistered wallets are not an error here.
func (s *UserService) Role(ctx context.Context, address string) (RoleView, error) {
	account, err := parseAccount(address)
	if err != nil {
		return RoleView{}, err
	}

	user, err := s.contract.GetUser(ctx, account)
	if errors.Is(err, chain.ErrNotRegistered) {
		return RoleView{WalletAddress: account.Hex(), RoleLabel: "Unknown"}, nil
	}
	if err != nil {
		return RoleView{}, err
	}

	return RoleView{
		WalletAddress: account.Hex(),
		Registered:    true,
		Role:          uint8(user.Role),
		RoleName:      user.Role.Name(),
		RoleLabel:     user.Role.Label(),
	}, nil
}
