// internal/handlers/file.go
package handlers

import (
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/foodsecure-backend/internal/i18n"
	"github.com/javajoker/foodsecure-backend/internal/services"
	"github.com/javajoker/foodsecure-backend/internal/utils"
)

var uploadCategories = map[string]bool{
	"licenses":  true,
	"documents": true,
	"proofs":    true,
}

type FileHandler struct {
	storageService *services.StorageService
	qrService      *services.QRService
}

func NewFileHandler(storageService *services.StorageService, qrService *services.QRService) *FileHandler {
	return &FileHandler{
		storageService: storageService,
		qrService:      qrService,
	}
}

// POST /files
//
// Pins the "file" form field to IPFS. The "category" field picks the size and type limits.
func (h *FileHandler) Upload(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	header, err := c.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationRequired, "file"), err.Error())
		return
	}

	category := c.DefaultPostForm("category", "documents")
	if !uploadCategories[category] {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "category"), nil)
		return
	}

	result, err := h.storageService.Pin(c.Request.Context(), header, h.storageService.GetDefaultUploadOptions(category))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyFileUploaded),
		"file":    result,
	})
}

// POST /qr/decode
//
// Reads a QR code from the uploaded "image" and resolves product history links.
func (h *FileHandler) DecodeQR(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	header, err := c.FormFile("image")
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationRequired, "image"), err.Error())
		return
	}

	options := h.storageService.GetDefaultUploadOptions("qr")
	if header.Size > options.MaxSize {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileTooLarge), nil)
		return
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !contains(options.AllowedTypes, ext) {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileInvalidType), nil)
		return
	}

	file, err := header.Open()
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "image"), err.Error())
		return
	}
	defer file.Close()

	result, err := h.qrService.Decode(file)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, result)
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
