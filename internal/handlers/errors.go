// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/foodsecure-backend/internal/chain"
	"github.com/javajoker/foodsecure-backend/internal/i18n"
	"github.com/javajoker/foodsecure-backend/internal/services"
	"github.com/javajoker/foodsecure-backend/internal/utils"
)

// handleServiceError writes the error envelope matching err.
func handleServiceError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(verrs))
		return
	}

	switch {
	case errors.Is(err, chain.ErrProductNotFound):
		utils.NotFoundResponse(c, "product")
	case errors.Is(err, chain.ErrNotRegistered):
		utils.ForbiddenResponse(c, i18n.T(lang, i18n.KeyUserNotRegistered))
	case errors.Is(err, chain.ErrUnauthorized):
		utils.ForbiddenResponse(c, "")
	case errors.Is(err, chain.ErrWalletUnavailable):
		utils.ForbiddenResponse(c, i18n.T(lang, i18n.KeyWalletUnavailable))

	case errors.Is(err, chain.ErrAlreadyRegistered):
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeyUserAlreadyRegistered))
	case errors.Is(err, chain.ErrAlreadyPaid):
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeyPaymentAlreadyPaid))
	case errors.Is(err, chain.ErrNothingDue):
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeyPaymentNothingDue))
	case errors.Is(err, chain.ErrInvalidTransition):
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeyShipmentInvalidTransition))
	case errors.Is(err, chain.ErrTransactionReverted):
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeyChainReverted))

	case errors.Is(err, chain.ErrIncorrectPayment):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyPaymentInvalidAmount), nil)
	case errors.Is(err, chain.ErrInsufficientStock):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyProductInsufficientStock), nil)
	case errors.Is(err, chain.ErrInvalidInput):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
	case errors.Is(err, services.ErrFileTooLarge):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileTooLarge), err.Error())
	case errors.Is(err, services.ErrFileType):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileInvalidType), nil)
	case errors.Is(err, services.ErrQRNotFound):
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, "QR_NOT_FOUND", i18n.T(lang, i18n.KeyQRNotFound), nil)

	case errors.Is(err, services.ErrNonceExpired):
		utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthNonceExpired))
	case errors.Is(err, chain.ErrInvalidSignature):
		utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidSignature))
	case errors.Is(err, services.ErrInvalidToken):
		utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidToken))

	case errors.Is(err, services.ErrStorageDisabled):
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "STORAGE_DISABLED", i18n.T(lang, i18n.KeyFileUploadFailed), err.Error())
	case errors.Is(err, services.ErrUploadFailed):
		utils.BadGatewayResponse(c, i18n.T(lang, i18n.KeyFileUploadFailed))

	default:
		logrus.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
		utils.BadGatewayResponse(c, "")
	}
}

func bindError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)
	utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
}

// productIDParam parses the :id path segment. It writes a 400 and returns false on failure.
func productIDParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		utils.BadRequestResponse(c, "Invalid product ID", nil)
		return 0, false
	}
	return id, true
}

func walletFromContext(c *gin.Context) (string, bool) {
	wallet, exists := utils.GetWalletFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return "", false
	}
	return wallet, true
}
