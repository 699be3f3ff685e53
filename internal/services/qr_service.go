// internal/services/qr_service.go
package services

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/makiuchi-d/gozxing"
	zxingqr "github.com/makiuchi-d/gozxing/qrcode"
	goqrcode "github.com/skip2/go-qrcode"

	"github.com/javajoker/foodsecure-backend/internal/config"
)

const (
	historyPath       = "/productHistory"
	productIDQueryKey = "productId"
	defaultQRSize     = 256

	// maxDecodePixels caps the decoded bitmap; a small compressed upload can
	// still declare huge dimensions.
	maxDecodePixels = 4096 * 4096
)

type QRService struct {
	baseURL string
	size    int
}

type DecodeResult struct {
	Text       string `json:"text"`
	IsURL      bool   `json:"is_url"`
	ProductID  string `json:"product_id,omitempty"`
	HistoryURL string `json:"history_url,omitempty"`
}

func NewQRService(config *config.Config) *QRService {
	return &QRService{
		baseURL: strings.TrimRight(config.Frontend.BaseURL, "/"),
		size:    defaultQRSize,
	}
}

// HistoryURL points at the front end's product history page.
func (s *QRService) HistoryURL(productID uint64) string {
	return fmt.Sprintf("%s%s?%s=%d", s.baseURL, historyPath, productIDQueryKey, productID)
}

// Encode renders content as a PNG QR code.
func (s *QRService) Encode(content string) ([]byte, error) {
	png, err := goqrcode.Encode(content, goqrcode.Medium, s.size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	return png, nil
}

// Decode reads the first QR code found in a PNG, JPEG or GIF image.
func (s *QRService) Decode(r io.Reader) (*DecodeResult, error) {
	var header bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(r, &header))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQRNotFound, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxDecodePixels {
		return nil, fmt.Errorf("%w: image is %dx%d pixels", ErrFileTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(io.MultiReader(&header, r))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQRNotFound, err)
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQRNotFound, err)
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	result, err := zxingqr.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQRNotFound, err)
	}

	text := result.GetText()
	out := &DecodeResult{Text: text, IsURL: IsURL(text)}
	if id, ok := ProductIDFromURL(text); ok {
		out.ProductID = strconv.FormatUint(id, 10)
		out.HistoryURL = s.HistoryURL(id)
	}
	return out, nil
}

// IsURL reports whether text is an absolute http(s) URL.
func IsURL(text string) bool {
	u, err := url.Parse(strings.TrimSpace(text))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ProductIDFromURL extracts productId from a product history link.
func ProductIDFromURL(text string) (uint64, bool) {
	if !IsURL(text) {
		return 0, false
	}
	u, _ := url.Parse(strings.TrimSpace(text))
	raw := u.Query().Get(productIDQueryKey)
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
