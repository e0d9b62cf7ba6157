// Package targets manages delivery destinations: validation, credential
// encryption at rest, and connectivity testing.
package targets

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/raspscan/raspscan/internal/delivery"
	targetdomain "github.com/raspscan/raspscan/internal/domain/target"
	"github.com/raspscan/raspscan/internal/model"
	"github.com/raspscan/raspscan/internal/secrets"
)

// Service implements target.Service. Credentials are encrypted before they
// reach the repository and only decrypted for the delivery path.
type Service struct {
	repo        targetdomain.Repository
	box         *secrets.Box
	dialTimeout time.Duration
	logger      *slog.Logger
}

// New creates the targets service.
func New(repo targetdomain.Repository, box *secrets.Box, dialTimeout time.Duration, logger *slog.Logger) *Service {
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	return &Service{repo: repo, box: box, dialTimeout: dialTimeout, logger: logger}
}

// Create validates and persists a new target with encrypted credentials.
func (s *Service) Create(ctx context.Context, t model.Target) (model.Target, error) {
	t.ID = uuid.NewString()
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	if err := t.Validate(); err != nil {
		return model.Target{}, fmt.Errorf("%w: %v", targetdomain.ErrValidation, err)
	}

	stored := t
	if err := s.box.EncryptConfig(&stored.Config); err != nil {
		return model.Target{}, err
	}
	if err := s.repo.InsertTarget(ctx, stored); err != nil {
		return model.Target{}, err
	}
	s.logger.Info("target created", "id", t.ID, "name", t.Name, "transport", t.Transport)
	return t.Redacted(), nil
}

// Update replaces a target. Credential fields carrying the redaction mask
// keep their stored values, so clients can round-trip a redacted read.
func (s *Service) Update(ctx context.Context, id string, t model.Target) (model.Target, error) {
	existing, err := s.repo.GetTarget(ctx, id)
	if err != nil {
		return model.Target{}, err
	}
	if err := s.box.DecryptConfig(&existing.Config); err != nil {
		return model.Target{}, err
	}

	t.ID = existing.ID
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	carryRedactedSecrets(&t.Config, existing.Config)
	if err := t.Validate(); err != nil {
		return model.Target{}, fmt.Errorf("%w: %v", targetdomain.ErrValidation, err)
	}

	stored := t
	if err := s.box.EncryptConfig(&stored.Config); err != nil {
		return model.Target{}, err
	}
	if err := s.repo.UpdateTarget(ctx, stored); err != nil {
		return model.Target{}, err
	}
	s.logger.Info("target updated", "id", t.ID, "name", t.Name)
	return t.Redacted(), nil
}

// Delete removes a target.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteTarget(ctx, id); err != nil {
		return err
	}
	s.logger.Info("target deleted", "id", id)
	return nil
}

// List returns all targets with credentials redacted.
func (s *Service) List(ctx context.Context) ([]model.Target, error) {
	stored, err := s.repo.ListTargets(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Target, 0, len(stored))
	for _, t := range stored {
		if err := s.box.DecryptConfig(&t.Config); err != nil {
			return nil, err
		}
		out = append(out, t.Redacted())
	}
	return out, nil
}

// Get returns one target with credentials redacted.
func (s *Service) Get(ctx context.Context, id string) (model.Target, error) {
	t, err := s.repo.GetTarget(ctx, id)
	if err != nil {
		return model.Target{}, err
	}
	if err := s.box.DecryptConfig(&t.Config); err != nil {
		return model.Target{}, err
	}
	return t.Redacted(), nil
}

// Resolve returns a target with plaintext credentials. Only the delivery
// path may call this.
func (s *Service) Resolve(ctx context.Context, id string) (model.Target, error) {
	t, err := s.repo.GetTarget(ctx, id)
	if err != nil {
		return model.Target{}, err
	}
	if err := s.box.DecryptConfig(&t.Config); err != nil {
		return model.Target{}, err
	}
	return t, nil
}

// Test checks that the target endpoint is reachable without transferring a
// document. It reports the outcome rather than failing the call.
func (s *Service) Test(ctx context.Context, id string) (targetdomain.TestResult, error) {
	t, err := s.Resolve(ctx, id)
	if err != nil {
		return targetdomain.TestResult{}, err
	}
	if err := s.checkReachable(ctx, t); err != nil {
		return targetdomain.TestResult{TargetID: id, OK: false, Detail: err.Error()}, nil
	}
	return targetdomain.TestResult{TargetID: id, OK: true}, nil
}

func (s *Service) checkReachable(ctx context.Context, t model.Target) error {
	switch t.Transport {
	case model.TransportSMB:
		share, err := delivery.ParseShare(t.Config.SMB.Connection)
		if err != nil {
			return err
		}
		return s.dialTCP(ctx, share.Server, "445")
	case model.TransportSFTP:
		port := t.Config.SFTP.Port
		if port == 0 {
			port = 22
		}
		return s.dialTCP(ctx, t.Config.SFTP.Host, strconv.Itoa(port))
	case model.TransportSMTP:
		port := t.Config.SMTP.Port
		if port == 0 {
			port = 25
		}
		return s.dialTCP(ctx, t.Config.SMTP.Host, strconv.Itoa(port))
	case model.TransportWebhook:
		return s.dialURL(ctx, t.Config.Webhook.URL)
	case model.TransportPaperless:
		return s.dialURL(ctx, t.Config.Paperless.URL)
	default:
		return fmt.Errorf("unknown transport %q", t.Transport)
	}
}

func (s *Service) dialTCP(ctx context.Context, host, port string) error {
	dialer := net.Dialer{Timeout: s.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return err
	}
	return conn.Close()
}

func (s *Service) dialURL(ctx context.Context, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	port := parsed.Port()
	if port == "" {
		port = "80"
		if parsed.Scheme == "https" {
			port = "443"
		}
	}
	if parsed.Scheme == "http" || parsed.Scheme == "https" {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, raw, nil)
		if err != nil {
			return err
		}
		client := http.Client{Timeout: s.dialTimeout}
		resp, err := client.Do(req)
		if err != nil {
			// Fall back to a raw TCP check; some endpoints reject HEAD.
			return s.dialTCP(ctx, parsed.Hostname(), port)
		}
		resp.Body.Close()
		return nil
	}
	return s.dialTCP(ctx, parsed.Hostname(), port)
}

// carryRedactedSecrets restores stored credential values wherever the update
// payload carries the redaction mask.
func carryRedactedSecrets(next *model.TargetConfig, stored model.TargetConfig) {
	carry := func(field *string, previous string) {
		if model.IsRedactedSecret(*field) {
			*field = previous
		}
	}
	if next.SMB != nil && stored.SMB != nil {
		carry(&next.SMB.Password, stored.SMB.Password)
	}
	if next.SFTP != nil && stored.SFTP != nil {
		carry(&next.SFTP.Password, stored.SFTP.Password)
	}
	if next.SMTP != nil && stored.SMTP != nil {
		carry(&next.SMTP.Password, stored.SMTP.Password)
	}
	if next.Webhook != nil && stored.Webhook != nil {
		carry(&next.Webhook.BearerToken, stored.Webhook.BearerToken)
	}
	if next.Paperless != nil && stored.Paperless != nil {
		carry(&next.Paperless.APIToken, stored.Paperless.APIToken)
	}
}
