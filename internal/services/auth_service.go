// internal/services/auth_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/javajoker/foodsecure-backend/internal/chain"
	"github.com/javajoker/foodsecure-backend/internal/config"
	"github.com/javajoker/foodsecure-backend/internal/models"
	"github.com/javajoker/foodsecure-backend/internal/utils"
)

// AuthService signs wallets in with a one-time personal_sign challenge.
type AuthService struct {
	db       *gorm.DB
	contract chain.Reader
	cfg      *config.Config
	now      func() time.Time
}

type ChallengeRequest struct {
	WalletAddress string `json:"wallet_address" validate:"required,eth_address"`
}

type ChallengeResponse struct {
	WalletAddress string    `json:"wallet_address"`
	Nonce         string    `json:"nonce"`
	Message       string    `json:"message"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type LoginRequest struct {
	WalletAddress string `json:"wallet_address" validate:"required,eth_address"`
	Nonce         string `json:"nonce" validate:"required"`
	Signature     string `json:"signature" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type AuthResponse struct {
	User         UserView `json:"user"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int      `json:"expires_in"` // in seconds
}

func NewAuthService(db *gorm.DB, contract chain.Reader, cfg *config.Config) *AuthService {
	return &AuthService{
		db:       db,
		contract: contract,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (s *AuthService) Challenge(ctx context.Context, req *ChallengeRequest) (*ChallengeResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	account, _ := parseAccount(req.WalletAddress)

	nonce, err := utils.GenerateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	issuedAt := s.now().UTC()
	record := &models.AuthNonce{
		WalletAddress: account.Hex(),
		Nonce:         nonce,
		Message:       loginMessage(account.Hex(), nonce, issuedAt),
		ExpiresAt:     issuedAt.Add(time.Duration(s.cfg.JWT.NonceTTL) * time.Minute),
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to store challenge: %w", err)
	}

	return &ChallengeResponse{
		WalletAddress: record.WalletAddress,
		Nonce:         record.Nonce,
		Message:       record.Message,
		ExpiresAt:     record.ExpiresAt,
	}, nil
}

func loginMessage(wallet, nonce string, issuedAt time.Time) string {
	return fmt.Sprintf("Sign in to FoodSecure\n\nWallet: %s\nNonce: %s\nIssued At: %s",
		wallet, nonce, issuedAt.Format(time.RFC3339))
}

func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	account, _ := parseAccount(req.WalletAddress)

	var challenge models.AuthNonce
	err := s.db.WithContext(ctx).
		Where("nonce = ? AND wallet_address = ?", req.Nonce, account.Hex()).
		First(&challenge).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNonceExpired
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	now := s.now().UTC()
	if challenge.UsedAt != nil || now.After(challenge.ExpiresAt) {
		return nil, ErrNonceExpired
	}

	if err := chain.VerifySignature(account, challenge.Message, req.Signature); err != nil {
		return nil, err
	}

	// Consume the nonce; a concurrent login with the same nonce loses here.
	result := s.db.WithContext(ctx).Model(&models.AuthNonce{}).
		Where("id = ? AND used_at IS NULL", challenge.ID).
		Update("used_at", now)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to consume challenge: %w", result.Error)
	}
	if result.RowsAffected != 1 {
		return nil, ErrNonceExpired
	}

	user, role, err := s.lookup(ctx, account.Hex())
	if err != nil {
		return nil, err
	}

	accessToken, err := utils.GenerateJWT(account.Hex(), role, s.cfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := utils.GenerateRefreshToken(account.Hex(), s.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.cfg.JWT.AccessTokenTTL * 3600,
	}, nil
}

// Refresh issues a new access token with the wallet's current role.
func (s *AuthService) Refresh(ctx context.Context, req *RefreshRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	wallet, err := utils.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	user, role, err := s.lookup(ctx, wallet)
	if err != nil {
		return nil, err
	}

	accessToken, err := utils.GenerateJWT(wallet, role, s.cfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &AuthResponse{
		User:        user,
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   s.cfg.JWT.AccessTokenTTL * 3600,
	}, nil
}

// Me returns the signed-in wallet's participant record. Unregistered wallets get an empty view.
func (s *AuthService) Me(ctx context.Context, wallet string) (UserView, error) {
	user, _, err := s.lookup(ctx, wallet)
	return user, err
}

// lookup resolves the wallet's registration. Unregistered wallets may sign in so they can register.
func (s *AuthService) lookup(ctx context.Context, wallet string) (UserView, string, error) {
	account, err := parseAccount(wallet)
	if err != nil {
		return UserView{}, "", err
	}

	user, err := s.contract.GetUser(ctx, account)
	if err != nil {
		if errors.Is(err, chain.ErrNotRegistered) {
			view := NewUserView(nil, s.cfg.Pinata.GatewayURL)
			view.WalletAddress = account.Hex()
			return view, "", nil
		}
		return UserView{}, "", err
	}

	return NewUserView(user, s.cfg.Pinata.GatewayURL), user.Role.Name(), nil
}
