package infra

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"economat/internal/config"
	"economat/internal/dto"

	"github.com/google/uuid"
)

// MaxImageSize bounds a single voucher image.
const MaxImageSize = 5 << 20

// ErrNotAnImage is returned for uploads whose content type is not image/*.
var ErrNotAnImage = errors.New("voucher must be an image")

// ImageStore is what the services need from an image backend.
type ImageStore interface {
	Save(ctx context.Context, img dto.ImageUpload) (string, error)
	Delete(ctx context.Context, ref string) error
}

// NewImageStore picks the remote store when FILE_STORE_URL is set and the
// local disk otherwise.
func NewImageStore(cfg *config.Config) (ImageStore, error) {
	if cfg.FileStoreURL != "" {
		return NewRemoteStore(cfg.FileStoreURL, cfg.FileStoreToken), nil
	}
	return NewDiskStore(cfg.UploadDir, cfg.UploadBaseURL)
}

// CheckImage enforces the upload constraints shared by every backend.
func CheckImage(img dto.ImageUpload) error {
	if len(img.Data) > MaxImageSize {
		return fmt.Errorf("voucher image exceeds %d bytes", MaxImageSize)
	}
	if !strings.HasPrefix(img.ContentType, "image/") {
		return ErrNotAnImage
	}
	return nil
}

// DiskStore writes images under dir and serves them from baseURL.
type DiskStore struct {
	dir     string
	baseURL string
}

func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: create upload dir: %w", err)
	}
	return &DiskStore{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Save stores the image under a random name keeping its extension and
// returns the public reference.
func (s *DiskStore) Save(_ context.Context, img dto.ImageUpload) (string, error) {
	if err := CheckImage(img); err != nil {
		return "", err
	}
	name := uuid.NewString() + strings.ToLower(filepath.Ext(img.Filename))
	if err := os.WriteFile(filepath.Join(s.dir, name), img.Data, 0o644); err != nil {
		return "", fmt.Errorf("filestore: write %s: %w", name, err)
	}
	return s.baseURL + "/" + name, nil
}

// Delete removes the file behind ref. Unknown files are not an error.
func (s *DiskStore) Delete(_ context.Context, ref string) error {
	name := path.Base(ref)
	if name == "." || name == "/" || name == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("filestore: remove %s: %w", name, err)
	}
	return nil
}
