package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/raspscan/raspscan/internal/model"
)

// PaperlessUploader feeds artifacts to a paperless-ngx document consumer.
type PaperlessUploader struct {
	client *http.Client
}

// NewPaperlessUploader creates the paperless transport.
func NewPaperlessUploader(timeout time.Duration) *PaperlessUploader {
	return &PaperlessUploader{client: &http.Client{Timeout: timeout}}
}

func (u *PaperlessUploader) Upload(ctx context.Context, artifact string, target model.Target) error {
	cfg := target.Config.Paperless
	if cfg == nil {
		return fmt.Errorf("target %s has no paperless config", target.ID)
	}
	endpoint := strings.TrimRight(cfg.URL, "/") + "/api/documents/post_document/"

	body, contentType, err := multipartFile("document", artifact)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("paperless request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if cfg.APIToken != "" {
		req.Header.Set("Authorization", "Token "+cfg.APIToken)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return &TransportError{Transport: model.TransportPaperless, Detail: "post " + endpoint, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &TransportError{
			Transport: model.TransportPaperless,
			Detail:    fmt.Sprintf("post %s: status %d: %s", endpoint, resp.StatusCode, bytes.TrimSpace(detail)),
		}
	}
	return nil
}
