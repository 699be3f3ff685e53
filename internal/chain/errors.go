package chain

import "errors"

var (
	ErrNotRegistered       = errors.New("account is not registered")
	ErrAlreadyRegistered   = errors.New("account is already registered")
	ErrUnauthorized        = errors.New("caller is not allowed to perform this action")
	ErrProductNotFound     = errors.New("product not found")
	ErrInvalidTransition   = errors.New("invalid shipment transition")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrIncorrectPayment    = errors.New("payment does not match amount due")
	ErrAlreadyPaid         = errors.New("invoice already paid")
	ErrNothingDue          = errors.New("nothing due")
	ErrInvalidInput        = errors.New("invalid input")
	ErrWalletUnavailable   = errors.New("no wallet available for account")
	ErrTransactionReverted = errors.New("transaction reverted")
)

var ErrInvalidSignature = errors.New("signature does not match account")

// revertReasons maps contract revert strings to sentinel errors.
var revertReasons = []struct {
	reason string
	err    error
}{
	{"not registered", ErrNotRegistered},
	{"already registered", ErrAlreadyRegistered},
	{"not authorized", ErrUnauthorized},
	{"product not found", ErrProductNotFound},
	{"invalid status", ErrInvalidTransition},
	{"insufficient stock", ErrInsufficientStock},
	{"incorrect payment", ErrIncorrectPayment},
	{"already paid", ErrAlreadyPaid},
	{"nothing due", ErrNothingDue},
	{"invalid input", ErrInvalidInput},
}
