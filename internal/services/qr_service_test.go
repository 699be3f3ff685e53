package services

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQRServiceEncodeDecode(t *testing.T) {
	svc := NewQRService(testConfig())

	assert.Equal(t, "https://foodsecure.example/productHistory?productId=12", svc.HistoryURL(12))

	data, err := svc.Encode("hello supply chain")
	require.NoError(t, err)

	decoded, err := svc.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "hello supply chain", decoded.Text)
	assert.False(t, decoded.IsURL)
	assert.Empty(t, decoded.ProductID)
}

func TestQRServiceDecodeBlankImage(t *testing.T) {
	svc := NewQRService(testConfig())

	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	_, err := svc.Decode(&buf)
	assert.ErrorIs(t, err, ErrQRNotFound)

	_, err = svc.Decode(bytes.NewReader([]byte("not an image")))
	assert.ErrorIs(t, err, ErrQRNotFound)
}

func TestQRServiceDecodeRejectsHugeImages(t *testing.T) {
	svc := NewQRService(testConfig())

	_, err := svc.Decode(bytes.NewReader(pngHeader(10000, 5000)))
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Contains(t, err.Error(), "10000x5000")
}

// pngHeader returns a PNG signature and IHDR chunk declaring a width x height
// grayscale image with no pixel data behind it.
func pngHeader(width, height uint32) []byte {
	ihdr := make([]byte, 17)
	copy(ihdr, "IHDR")
	binary.BigEndian.PutUint32(ihdr[4:], width)
	binary.BigEndian.PutUint32(ihdr[8:], height)
	ihdr[12] = 8 // bit depth

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)-4))
	buf.Write(ihdr)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(ihdr))
	return buf.Bytes()
}

func TestProductIDFromURL(t *testing.T) {
	tests := []struct {
		text string
		id   uint64
		ok   bool
	}{
		{"https://foodsecure.example/productHistory?productId=7", 7, true},
		{"http://localhost:3000/productHistory?productId=42&x=1", 42, true},
		{"https://foodsecure.example/productHistory?productId=0", 0, false},
		{"https://foodsecure.example/productHistory?productId=abc", 0, false},
		{"https://foodsecure.example/productHistory", 0, false},
		{"productHistory?productId=7", 0, false},
		{"just some text", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			id, ok := ProductIDFromURL(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.id, id)
		})
	}

	assert.True(t, IsURL("https://example.com"))
	assert.False(t, IsURL("ftp://example.com"))
	assert.False(t, IsURL("example.com"))
}
