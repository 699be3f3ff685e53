// internal/handlers/shipment.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/foodsecure-backend/internal/i18n"
	"github.com/javajoker/foodsecure-backend/internal/services"
	"github.com/javajoker/foodsecure-backend/internal/utils"
)

type ShipmentHandler struct {
	shipmentService *services.ShipmentService
}

func NewShipmentHandler(shipmentService *services.ShipmentService) *ShipmentHandler {
	return &ShipmentHandler{
		shipmentService: shipmentService,
	}
}

// POST /shipments/:id/dispatch
func (h *ShipmentHandler) Dispatch(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	wallet, ok := walletFromContext(c)
	if !ok {
		return
	}
	id, ok := productIDParam(c)
	if !ok {
		return
	}

	var req services.DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	result, err := h.shipmentService.Dispatch(c.Request.Context(), wallet, id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyShipmentDispatched),
		"product":     result.Product,
		"transaction": result.Transaction,
	})
}

// PUT /shipments/:id/status
func (h *ShipmentHandler) UpdateStatus(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	wallet, ok := walletFromContext(c)
	if !ok {
		return
	}
	id, ok := productIDParam(c)
	if !ok {
		return
	}

	var req services.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	result, err := h.shipmentService.UpdateStatus(c.Request.Context(), wallet, id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyShipmentStatusUpdated),
		"product":     result.Product,
		"transaction": result.Transaction,
	})
}

// POST /shipments/:id/receive
//
// Accepts JSON, or a multipart form with an optional "proof" file.
func (h *ShipmentHandler) Receive(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	wallet, ok := walletFromContext(c)
	if !ok {
		return
	}
	id, ok := productIDParam(c)
	if !ok {
		return
	}

	var req services.ReceiveRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBind(&req); err != nil {
			bindError(c, err)
			return
		}
	}

	result, err := h.shipmentService.MarkReceived(c.Request.Context(), wallet, id, &req, optionalFormFile(c, "proof"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyShipmentReceived),
		"product":     result.Product,
		"transaction": result.Transaction,
	})
}
