// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired         = "auth.required"
	KeyAuthInvalidToken     = "auth.invalid_token"
	KeyAuthTokenExpired     = "auth.token_expired"
	KeyAuthInvalidSignature = "auth.invalid_signature"
	KeyAuthNonceExpired     = "auth.nonce_expired"
	KeyAuthLoginSuccess     = "auth.login_success"
	KeyAccessDenied         = "auth.access_denied"

	// Participants
	KeyUserRegistered        = "user.registered"
	KeyUserNotFound          = "user.not_found"
	KeyUserNotRegistered     = "user.not_registered"
	KeyUserAlreadyRegistered = "user.already_registered"

	// Products
	KeyProductCreated           = "product.created"
	KeyProductNotFound          = "product.not_found"
	KeyProductSoldOutUpdated    = "product.sold_out_updated"
	KeyProductInsufficientStock = "product.insufficient_stock"

	// Shipments
	KeyShipmentDispatched        = "shipment.dispatched"
	KeyShipmentStatusUpdated     = "shipment.status_updated"
	KeyShipmentReceived          = "shipment.received"
	KeyShipmentInvalidTransition = "shipment.invalid_transition"

	// Payments
	KeyPaymentSuccess       = "payment.success"
	KeyPaymentInvalidAmount = "payment.invalid_amount"
	KeyPaymentAlreadyPaid   = "payment.already_paid"
	KeyPaymentNothingDue    = "payment.nothing_due"

	// Files and QR codes
	KeyFileUploaded     = "file.uploaded"
	KeyFileTooLarge     = "file.too_large"
	KeyFileInvalidType  = "file.invalid_type"
	KeyFileUploadFailed = "file.upload_failed"
	KeyQRNotFound       = "qr.not_found"

	// Chain
	KeyChainUnavailable    = "chain.unavailable"
	KeyChainReverted       = "chain.reverted"
	KeyWalletUnavailable   = "chain.wallet_unavailable"
	KeyTransactionAccepted = "chain.transaction_accepted"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"
	KeyValidationEmail    = "validation.invalid_email"
	KeyValidationRole     = "validation.role_required"

	// Rate limiting
	KeyRateLimitExceeded = "rate_limit.exceeded"
)
