package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/raspscan/raspscan/internal/model"
)

// WebhookUploader posts artifacts as multipart form data to an HTTP endpoint.
type WebhookUploader struct {
	client *http.Client
}

// NewWebhookUploader creates the webhook transport.
func NewWebhookUploader(timeout time.Duration) *WebhookUploader {
	return &WebhookUploader{client: &http.Client{Timeout: timeout}}
}

func (u *WebhookUploader) Upload(ctx context.Context, artifact string, target model.Target) error {
	cfg := target.Config.Webhook
	if cfg == nil {
		return fmt.Errorf("target %s has no webhook config", target.ID)
	}
	field := cfg.FieldName
	if field == "" {
		field = "file"
	}

	body, contentType, err := multipartFile(field, artifact)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, body)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if cfg.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.BearerToken)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return &TransportError{Transport: model.TransportWebhook, Detail: "post " + cfg.URL, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &TransportError{
			Transport: model.TransportWebhook,
			Detail:    fmt.Sprintf("post %s: status %d: %s", cfg.URL, resp.StatusCode, bytes.TrimSpace(detail)),
		}
	}
	return nil
}

// multipartFile buffers the artifact into a multipart body. Scan artifacts
// are small enough that streaming is not worth the plumbing.
func multipartFile(field, artifact string) (*bytes.Buffer, string, error) {
	src, err := os.Open(artifact)
	if err != nil {
		return nil, "", err
	}
	defer src.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filepath.Base(artifact))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, src); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}
