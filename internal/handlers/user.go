// internal/handlers/user.go
package handlers

import (
	"errors"
	"mime/multipart"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/foodsecure-backend/internal/chain"
	"github.com/javajoker/foodsecure-backend/internal/i18n"
	"github.com/javajoker/foodsecure-backend/internal/services"
	"github.com/javajoker/foodsecure-backend/internal/utils"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// POST /users/register
//
// Accepts JSON, or a multipart form with an optional "license" file.
func (h *UserHandler) Register(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	wallet, ok := walletFromContext(c)
	if !ok {
		return
	}

	var req services.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	result, err := h.userService.Register(c.Request.Context(), wallet, &req, optionalFormFile(c, "license"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyUserRegistered),
		"user":        result.User,
		"transaction": result.Transaction,
	})
}

// GET /users/:address
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userService.Profile(c.Request.Context(), c.Param("address"))
	if errors.Is(err, chain.ErrNotRegistered) {
		utils.NotFoundResponse(c, "user")
		return
	}
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, user)
}

// GET /users/:address/role
func (h *UserHandler) GetRole(c *gin.Context) {
	role, err := h.userService.Role(c.Request.Context(), c.Param("address"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, role)
}

// optionalFormFile returns the named upload, or nil when the request carries none.
func optionalFormFile(c *gin.Context, name string) *multipart.FileHeader {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil
	}
	header, err := c.FormFile(name)
	if err != nil {
		return nil
	}
	return header
}
