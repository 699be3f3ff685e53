// internal/handlers/payment.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/foodsecure-backend/internal/i18n"
	"github.com/javajoker/foodsecure-backend/internal/services"
	"github.com/javajoker/foodsecure-backend/internal/utils"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// GET /invoices
func (h *PaymentHandler) GetPendingInvoices(c *gin.Context) {
	wallet, ok := walletFromContext(c)
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	invoices, err := h.paymentService.PendingInvoices(c.Request.Context(), wallet)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.Paginate(invoices, params))
}

// POST /invoices/:id/pay
func (h *PaymentHandler) PayInvoice(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	wallet, ok := walletFromContext(c)
	if !ok {
		return
	}
	id, ok := productIDParam(c)
	if !ok {
		return
	}

	var req services.PayRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}

	result, err := h.paymentService.Pay(c.Request.Context(), wallet, id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyPaymentSuccess),
		"product":     result.Product,
		"payment":     result.Payment,
		"transaction": result.Transaction,
	})
}

// GET /payments/history?direction=sent|received
func (h *PaymentHandler) GetPaymentHistory(c *gin.Context) {
	wallet, ok := walletFromContext(c)
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	direction := c.Query("direction")
	if direction != "" && direction != services.DirectionSent && direction != services.DirectionReceived {
		utils.BadRequestResponse(c, "direction must be sent or received", nil)
		return
	}

	payments, err := h.paymentService.History(c.Request.Context(), wallet, direction)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.Paginate(payments, params))
}
