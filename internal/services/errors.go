// internal/services/errors.go
package services

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/javajoker/foodsecure-backend/internal/chain"
)

var (
	ErrNonceExpired    = errors.New("login challenge expired or already used")
	ErrInvalidToken    = errors.New("invalid or expired token")
	ErrFileTooLarge    = errors.New("file exceeds the maximum allowed size")
	ErrFileType        = errors.New("file type is not allowed")
	ErrUploadFailed    = errors.New("failed to upload file to IPFS")
	ErrQRNotFound      = errors.New("no QR code detected in image")
	ErrStorageDisabled = errors.New("pinning service is not configured")
)

// parseAccount turns a hex wallet address into an account.
func parseAccount(address string) (common.Address, error) {
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("%w: %q is not a wallet address", chain.ErrInvalidInput, address)
	}
	return common.HexToAddress(address), nil
}
