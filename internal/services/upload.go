package services

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/davrbek/coursehub-backend/internal/platform/apierr"
	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/utils"
)

// MaxUploadBytes caps a single attachment upload.
const MaxUploadBytes = 25 << 20

type StoredFile struct {
	URL       string `json:"url"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

// AttachmentStorage is the durable file store boundary: bytes in,
// URL + metadata out.
type AttachmentStorage interface {
	Save(ctx context.Context, fileName, mimeType string, size int64, r io.Reader) (*StoredFile, error)
}

type localAttachmentStorage struct {
	log     *logger.Logger
	dir     string
	baseURL string
}

func NewLocalAttachmentStorage(baseLog *logger.Logger) (AttachmentStorage, error) {
	storageLog := baseLog.With("service", "AttachmentStorage")

	dir := utils.GetEnv("UPLOAD_DIR", "./uploads", baseLog)
	baseURL := strings.TrimRight(utils.GetEnv("PUBLIC_BASE_URL", "http://localhost:8080", baseLog), "/")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", dir, err)
	}

	return &localAttachmentStorage{log: storageLog, dir: dir, baseURL: baseURL}, nil
}

func (s *localAttachmentStorage) Save(ctx context.Context, fileName, mimeType string, size int64, r io.Reader) (*StoredFile, error) {
	if size <= 0 {
		return nil, apierr.New(400, apierr.CodeUploadEmpty, fmt.Errorf("empty upload"))
	}
	if size > MaxUploadBytes {
		return nil, apierr.New(413, apierr.CodeUploadTooLarge, fmt.Errorf("upload of %d bytes exceeds the %d byte limit", size, MaxUploadBytes))
	}

	ext := filepath.Ext(fileName)
	if ext == "" && mimeType != "" {
		if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	objectName := uuid.New().String() + ext
	path := filepath.Join(s.dir, objectName)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload file: %w", err)
	}
	written, err := io.Copy(f, io.LimitReader(r, MaxUploadBytes+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to write upload: %w", err)
	}
	if written == 0 {
		_ = os.Remove(path)
		return nil, apierr.New(400, apierr.CodeUploadEmpty, fmt.Errorf("empty upload"))
	}
	if written > MaxUploadBytes {
		_ = os.Remove(path)
		return nil, apierr.New(413, apierr.CodeUploadTooLarge, fmt.Errorf("upload exceeds the %d byte limit", MaxUploadBytes))
	}

	s.log.Debug("Stored attachment", "object", objectName, "bytes", written)
	return &StoredFile{
		URL:       s.baseURL + "/uploads/" + objectName,
		FileName:  filepath.Base(fileName),
		MimeType:  mimeType,
		SizeBytes: written,
	}, nil
}
