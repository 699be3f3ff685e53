// internal/handlers/product.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/foodsecure-backend/internal/i18n"
	"github.com/javajoker/foodsecure-backend/internal/services"
	"github.com/javajoker/foodsecure-backend/internal/utils"
)

type ProductHandler struct {
	productService *services.ProductService
}

func NewProductHandler(productService *services.ProductService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
	}
}

// GET /products
//
// Lists the products on the caller's dashboard: created by suppliers and
// manufacturers, carried by logistic partners, inbound for everyone else.
func (h *ProductHandler) GetProducts(c *gin.Context) {
	wallet, ok := walletFromContext(c)
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	products, err := h.productService.ListForRole(c.Request.Context(), wallet)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.Paginate(products, params))
}

// POST /products
//
// Accepts JSON, or a multipart form with an optional "document" file.
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	wallet, ok := walletFromContext(c)
	if !ok {
		return
	}

	var req services.CreateProductRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	result, err := h.productService.Create(c.Request.Context(), wallet, &req, optionalFormFile(c, "document"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyProductCreated),
		"product":     result.Product,
		"transaction": result.Transaction,
	})
}

// GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := productIDParam(c)
	if !ok {
		return
	}

	product, err := h.productService.Get(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, product)
}

// GET /products/:id/history
func (h *ProductHandler) GetHistory(c *gin.Context) {
	id, ok := productIDParam(c)
	if !ok {
		return
	}

	history, err := h.productService.History(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"product_id": c.Param("id"),
		"history":    history,
	})
}

// GET /products/:id/qr
func (h *ProductHandler) GetQRCode(c *gin.Context) {
	id, ok := productIDParam(c)
	if !ok {
		return
	}

	png, err := h.productService.QRCode(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	if c.Query("download") == "true" {
		c.Header("Content-Disposition", "attachment; filename=product-"+c.Param("id")+"-qr.png")
	}
	c.Data(http.StatusOK, "image/png", png)
}

// GET /products/:id/tracker
func (h *ProductHandler) GetTracker(c *gin.Context) {
	id, ok := productIDParam(c)
	if !ok {
		return
	}

	tracker, err := h.productService.Tracker(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, tracker)
}

// GET /inventory
func (h *ProductHandler) GetInventory(c *gin.Context) {
	wallet, ok := walletFromContext(c)
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	products, err := h.productService.Inventory(c.Request.Context(), wallet)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.Paginate(products, params))
}

// PUT /inventory/:id/sold
func (h *ProductHandler) UpdateSoldOut(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	wallet, ok := walletFromContext(c)
	if !ok {
		return
	}
	id, ok := productIDParam(c)
	if !ok {
		return
	}

	var req services.SoldOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	result, err := h.productService.UpdateSoldOut(c.Request.Context(), wallet, id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyProductSoldOutUpdated),
		"product":     result.Product,
		"transaction": result.Transaction,
	})
}
