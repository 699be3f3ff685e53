// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/foodsecure-backend/internal/config"
)

// StorageService pins files to IPFS through Pinata and optionally mirrors them to S3.
type StorageService struct {
	config     *config.Config
	httpClient *http.Client
	s3Client   s3iface.S3API
}

type UploadResult struct {
	CID       string `json:"cid"`
	URL       string `json:"url"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mime_type"`
	MirrorKey string `json:"mirror_key,omitempty"`
}

type UploadOptions struct {
	Folder       string
	MaxSize      int64 // in bytes
	AllowedTypes []string
}

type pinataResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

func NewStorageService(config *config.Config) (*StorageService, error) {
	s := &StorageService{
		config:     config,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}

	if config.AWS.AccessKeyID == "" {
		return s, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(config.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			config.AWS.AccessKeyID,
			config.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	s.s3Client = s3.New(sess)

	return s, nil
}

// WithHTTPClient replaces the client used to reach the pinning service.
func (s *StorageService) WithHTTPClient(client *http.Client) *StorageService {
	s.httpClient = client
	return s
}

// WithS3 replaces the mirror client.
func (s *StorageService) WithS3(client s3iface.S3API) *StorageService {
	s.s3Client = client
	return s
}

func (s *StorageService) Enabled() bool {
	return s.config.Pinata.JWT != ""
}

// GatewayURL is where a pinned CID can be fetched from.
func (s *StorageService) GatewayURL(cid string) string {
	return ipfsURL(s.config.Pinata.GatewayURL, cid)
}

// Pin uploads a multipart file. A nil header is a no-op and returns nil.
func (s *StorageService) Pin(ctx context.Context, header *multipart.FileHeader, options UploadOptions) (*UploadResult, error) {
	if header == nil {
		return nil, nil
	}

	if err := s.checkFile(header.Filename, header.Size, options); err != nil {
		return nil, err
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return s.PinBytes(ctx, header.Filename, header.Header.Get("Content-Type"), data, options)
}

func (s *StorageService) PinBytes(ctx context.Context, name, contentType string, data []byte, options UploadOptions) (*UploadResult, error) {
	if err := s.checkFile(name, int64(len(data)), options); err != nil {
		return nil, err
	}
	if !s.Enabled() {
		return nil, ErrStorageDisabled
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	pinned, err := s.pinToIPFS(ctx, name, data)
	if err != nil {
		logrus.WithError(err).WithField("file", name).Error("Failed to pin file")
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	result := &UploadResult{
		CID:      pinned.IpfsHash,
		URL:      s.GatewayURL(pinned.IpfsHash),
		Name:     name,
		Size:     int64(len(data)),
		MimeType: contentType,
	}

	if s.s3Client != nil {
		key := s.mirrorKey(options.Folder, pinned.IpfsHash, name)
		if err := s.mirrorToS3(ctx, key, contentType, data); err != nil {
			logrus.WithError(err).WithField("cid", pinned.IpfsHash).Warn("Failed to mirror pinned file to S3")
		} else {
			result.MirrorKey = key
		}
	}

	logrus.WithFields(logrus.Fields{
		"cid":  result.CID,
		"size": result.Size,
	}).Info("File pinned to IPFS")

	return result, nil
}

func (s *StorageService) checkFile(name string, size int64, options UploadOptions) error {
	maxSize := options.MaxSize
	if maxSize == 0 {
		maxSize = s.config.Pinata.MaxSize
	}
	if maxSize > 0 && size > maxSize {
		return fmt.Errorf("%w: %d bytes exceeds %d bytes", ErrFileTooLarge, size, maxSize)
	}

	if len(options.AllowedTypes) > 0 {
		fileExt := strings.ToLower(filepath.Ext(name))
		for _, allowedType := range options.AllowedTypes {
			if fileExt == allowedType {
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrFileType, fileExt)
	}

	return nil
}

// pinToIPFS posts the file to pinFileToIPFS with the JWT bearer token.
func (s *StorageService) pinToIPFS(ctx context.Context, name string, data []byte) (*pinataResponse, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(name))
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	url := strings.TrimRight(s.config.Pinata.APIURL, "/") + "/pinning/pinFileToIPFS"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.config.Pinata.JWT)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("pinata returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out pinataResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode pinata response: %w", err)
	}
	if out.IpfsHash == "" {
		return nil, fmt.Errorf("pinata response has no IpfsHash")
	}
	return &out, nil
}

func (s *StorageService) mirrorToS3(ctx context.Context, key, contentType string, data []byte) error {
	_, err := s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.config.AWS.S3Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

func (s *StorageService) mirrorKey(folder, cid, originalName string) string {
	filename := fmt.Sprintf("%s_%s%s", time.Now().UTC().Format("20060102"), cid, strings.ToLower(filepath.Ext(originalName)))
	if folder != "" {
		return folder + "/" + filename
	}
	return filename
}

func (s *StorageService) GetDefaultUploadOptions(category string) UploadOptions {
	switch category {
	case "licenses":
		return UploadOptions{
			Folder:       "licenses",
			MaxSize:      5 * 1024 * 1024, // 5MB
			AllowedTypes: []string{".pdf", ".jpg", ".jpeg", ".png"},
		}
	case "documents":
		return UploadOptions{
			Folder:       "documents",
			AllowedTypes: []string{".pdf", ".jpg", ".jpeg", ".png", ".txt", ".csv"},
		}
	case "proofs":
		return UploadOptions{
			Folder:       "proofs-of-delivery",
			AllowedTypes: []string{".jpg", ".jpeg", ".png", ".pdf"},
		}
	case "qr":
		return UploadOptions{
			MaxSize:      2 * 1024 * 1024, // 2MB
			AllowedTypes: []string{".png", ".jpg", ".jpeg", ".gif"},
		}
	default:
		return UploadOptions{Folder: "general"}
	}
}
