// internal/utils/jwt.go
package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	tokenIssuer     = "foodsecure"
	audienceAccess  = "access"
	audienceRefresh = "refresh"
)

var errWrongTokenKind = errors.New("token is not valid for this use")

// JWTClaims is the access token payload. Role is the participant role name at
// issue time, empty for wallets that have not registered.
type JWTClaims struct {
	WalletAddress string `json:"wallet_address"`
	Role          string `json:"role"`
	jwt.RegisteredClaims
}

var jwtSecret = []byte("your-secret-key-change-in-production")

func SetJWTSecret(secret string) {
	jwtSecret = []byte(secret)
}

func registeredClaims(wallet, audience string, ttlHours int) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   wallet,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlHours) * time.Hour)),
	}
}

func sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret)
}

// parse verifies signature, expiry, issuer and audience, filling claims.
func parse(tokenString string, claims jwt.Claims, audience string) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("invalid token")
	}

	registered, ok := claims.(interface {
		VerifyAudience(string, bool) bool
		VerifyIssuer(string, bool) bool
	})
	if !ok || !registered.VerifyIssuer(tokenIssuer, true) || !registered.VerifyAudience(audience, true) {
		return errWrongTokenKind
	}
	return nil
}

func GenerateJWT(walletAddress, role string, ttlHours int) (string, error) {
	return sign(JWTClaims{
		WalletAddress:    walletAddress,
		Role:             role,
		RegisteredClaims: registeredClaims(walletAddress, audienceAccess, ttlHours),
	})
}

func ValidateJWT(tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	if err := parse(tokenString, claims, audienceAccess); err != nil {
		return nil, err
	}
	if claims.WalletAddress == "" || claims.WalletAddress != claims.Subject {
		return nil, errors.New("token subject mismatch")
	}
	return claims, nil
}

func GenerateRefreshToken(walletAddress string, ttlHours int) (string, error) {
	claims := registeredClaims(walletAddress, audienceRefresh, ttlHours)
	return sign(&claims)
}

// ValidateRefreshToken returns the wallet address the token was issued to.
func ValidateRefreshToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	if err := parse(tokenString, claims, audienceRefresh); err != nil {
		return "", err
	}
	return claims.Subject, nil
}
