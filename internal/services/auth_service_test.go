package services

import (
	"context"
	"crypto/ecdsa"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/foodsecure-backend/internal/chain"
	"github.com/javajoker/foodsecure-backend/internal/database"
	"github.com/javajoker/foodsecure-backend/internal/models"
	"github.com/javajoker/foodsecure-backend/internal/utils"
)

func newAuthFixture(t *testing.T) (*AuthService, *mockContract, *ecdsa.PrivateKey) {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)

	cfg := testConfig()
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	contract := new(mockContract)
	return NewAuthService(db, contract, cfg), contract, key
}

func TestAuthLoginWithSignedChallenge(t *testing.T) {
	svc, contract, key := newAuthFixture(t)
	ctx := context.Background()
	account := crypto.PubkeyToAddress(key.PublicKey)

	contract.On("GetUser", ctx, account).Return(&chain.User{
		Address:     account,
		Role:        models.RoleRetailStore,
		CompanyName: "Corner Shop",
		Registered:  true,
	}, nil)

	challenge, err := svc.Challenge(ctx, &ChallengeRequest{WalletAddress: account.Hex()})
	require.NoError(t, err)
	assert.Contains(t, challenge.Message, challenge.Nonce)
	assert.Contains(t, challenge.Message, account.Hex())

	sig, err := chain.SignMessage(key, challenge.Message)
	require.NoError(t, err)

	resp, err := svc.Login(ctx, &LoginRequest{WalletAddress: account.Hex(), Nonce: challenge.Nonce, Signature: sig})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "Retail Store", resp.User.RoleLabel)

	claims, err := utils.ValidateJWT(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, account.Hex(), claims.WalletAddress)
	assert.Equal(t, "RetailStore", claims.Role)

	// The nonce is single use.
	_, err = svc.Login(ctx, &LoginRequest{WalletAddress: account.Hex(), Nonce: challenge.Nonce, Signature: sig})
	assert.ErrorIs(t, err, ErrNonceExpired)

	refreshed, err := svc.Refresh(ctx, &RefreshRequest{RefreshToken: resp.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	_, err = svc.Refresh(ctx, &RefreshRequest{RefreshToken: resp.AccessToken})
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthLoginRejectsWrongSigner(t *testing.T) {
	svc, _, key := newAuthFixture(t)
	ctx := context.Background()
	account := crypto.PubkeyToAddress(key.PublicKey)

	challenge, err := svc.Challenge(ctx, &ChallengeRequest{WalletAddress: account.Hex()})
	require.NoError(t, err)

	other, err := crypto.GenerateKey()
	require.NoError(t, err)
	sig, err := chain.SignMessage(other, challenge.Message)
	require.NoError(t, err)

	_, err = svc.Login(ctx, &LoginRequest{WalletAddress: account.Hex(), Nonce: challenge.Nonce, Signature: sig})
	assert.ErrorIs(t, err, chain.ErrInvalidSignature)
}

func TestAuthLoginExpiredChallenge(t *testing.T) {
	svc, _, key := newAuthFixture(t)
	ctx := context.Background()
	account := crypto.PubkeyToAddress(key.PublicKey)

	svc.now = func() time.Time { return fixedNow }
	challenge, err := svc.Challenge(ctx, &ChallengeRequest{WalletAddress: account.Hex()})
	require.NoError(t, err)

	sig, err := chain.SignMessage(key, challenge.Message)
	require.NoError(t, err)

	svc.now = func() time.Time { return fixedNow.Add(11 * time.Minute) }
	_, err = svc.Login(ctx, &LoginRequest{WalletAddress: account.Hex(), Nonce: challenge.Nonce, Signature: sig})
	assert.ErrorIs(t, err, ErrNonceExpired)
}

func TestAuthUnregisteredWalletCanSignIn(t *testing.T) {
	svc, contract, key := newAuthFixture(t)
	ctx := context.Background()
	account := crypto.PubkeyToAddress(key.PublicKey)

	contract.On("GetUser", ctx, account).Return(nil, chain.ErrNotRegistered)

	challenge, err := svc.Challenge(ctx, &ChallengeRequest{WalletAddress: account.Hex()})
	require.NoError(t, err)
	sig, err := chain.SignMessage(key, challenge.Message)
	require.NoError(t, err)

	resp, err := svc.Login(ctx, &LoginRequest{WalletAddress: account.Hex(), Nonce: challenge.Nonce, Signature: sig})
	require.NoError(t, err)
	assert.False(t, resp.User.Registered)
	assert.Equal(t, account.Hex(), resp.User.WalletAddress)

	claims, err := utils.ValidateJWT(resp.AccessToken)
	require.NoError(t, err)
	assert.Empty(t, claims.Role)

	me, err := svc.Me(ctx, account.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Unknown", me.RoleLabel)
}
