package infra

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"economat/internal/dto"

	"github.com/go-resty/resty/v2"
)

// RemoteStore delegates image persistence to an external file service over
// HTTP. The service answers an upload with the stable reference of the file.
type RemoteStore struct {
	http *resty.Client
}

type remoteUploadResponse struct {
	Ref string `json:"ref"`
}

type remoteError struct {
	Detail string `json:"detail"`
}

func NewRemoteStore(baseURL, token string) *RemoteStore {
	c := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	if token != "" {
		c.SetAuthToken(token)
	}
	return &RemoteStore{http: c}
}

func (s *RemoteStore) Save(ctx context.Context, img dto.ImageUpload) (string, error) {
	if err := CheckImage(img); err != nil {
		return "", err
	}
	result := new(remoteUploadResponse)
	apiErr := new(remoteError)
	resp, err := s.http.R().
		SetContext(ctx).
		SetMultipartField("file", img.Filename, img.ContentType, bytes.NewReader(img.Data)).
		SetResult(result).
		SetError(apiErr).
		Post("/files")
	if err != nil {
		return "", fmt.Errorf("filestore: upload: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("filestore: upload returned %d: %s", resp.StatusCode(), apiErr.Detail)
	}
	if result.Ref == "" {
		return "", fmt.Errorf("filestore: upload returned no reference")
	}
	return result.Ref, nil
}

func (s *RemoteStore) Delete(ctx context.Context, ref string) error {
	apiErr := new(remoteError)
	resp, err := s.http.R().
		SetContext(ctx).
		SetError(apiErr).
		Delete("/files/" + url.PathEscape(ref))
	if err != nil {
		return fmt.Errorf("filestore: delete: %w", err)
	}
	if resp.IsError() && resp.StatusCode() != http.StatusNotFound {
		return fmt.Errorf("filestore: delete returned %d: %s", resp.StatusCode(), apiErr.Detail)
	}
	return nil
}
