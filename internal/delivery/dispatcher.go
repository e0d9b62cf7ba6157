// Package delivery pushes finished scan artifacts to configured targets over
// the supported transports.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/raspscan/raspscan/internal/model"
)

// TransportError marks a failure that may clear on its own (network hiccup,
// busy server). Only these are retried; config and parse errors are not.
type TransportError struct {
	Transport model.Transport
	Detail    string
	Err       error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Transport, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Transport, e.Detail)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Uploader pushes one artifact to one target. Implementations return a
// *TransportError for retryable failures and a plain error otherwise.
type Uploader interface {
	Upload(ctx context.Context, artifact string, target model.Target) error
}

// RetryPolicy caps the in-call retry behaviour of Deliver.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
}

// DefaultRetryPolicy retries three times with 2s, 4s, 8s pauses.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, InitialInterval: 2 * time.Second}

// Dispatcher routes artifacts to the uploader matching the target transport.
type Dispatcher struct {
	uploaders map[model.Transport]Uploader
	policy    RetryPolicy
	logger    *slog.Logger
}

// New creates a Dispatcher with all built-in transports registered.
// timeout caps each single upload attempt.
func New(timeout time.Duration, logger *slog.Logger) *Dispatcher {
	return NewWithUploaders(map[model.Transport]Uploader{
		model.TransportSMB:       NewSMBUploader(timeout),
		model.TransportSFTP:      NewSFTPUploader(timeout),
		model.TransportSMTP:      NewSMTPUploader(timeout),
		model.TransportWebhook:   NewWebhookUploader(timeout),
		model.TransportPaperless: NewPaperlessUploader(timeout),
	}, DefaultRetryPolicy, logger)
}

// NewWithUploaders creates a Dispatcher over an explicit uploader set.
func NewWithUploaders(uploaders map[model.Transport]Uploader, policy RetryPolicy, logger *slog.Logger) *Dispatcher {
	if policy.InitialInterval <= 0 {
		policy.InitialInterval = DefaultRetryPolicy.InitialInterval
	}
	return &Dispatcher{uploaders: uploaders, policy: policy, logger: logger}
}

// Deliver uploads artifact to target, retrying transient transport failures
// with exponential backoff inside this one call. It reports how many attempts
// were made; the caller decides what a spent retry budget means for the job.
func (d *Dispatcher) Deliver(ctx context.Context, artifact string, target model.Target) (int, error) {
	uploader, ok := d.uploaders[target.Transport]
	if !ok {
		return 0, fmt.Errorf("no uploader for transport %q", target.Transport)
	}

	attempts := 0
	operation := func() error {
		attempts++
		err := uploader.Upload(ctx, artifact, target)
		if err == nil {
			return nil
		}
		var te *TransportError
		if !errors.As(err, &te) {
			return backoff.Permanent(err)
		}
		d.logger.Warn("delivery attempt failed",
			"target", target.ID, "transport", target.Transport, "attempt", attempts, "err", err)
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = d.policy.InitialInterval
	policy.RandomizationFactor = 0
	policy.Multiplier = 2
	policy.MaxElapsedTime = 0

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, d.policy.MaxRetries), ctx))
	if err != nil {
		return attempts, err
	}
	d.logger.Info("artifact delivered",
		"target", target.ID, "transport", target.Transport, "attempts", attempts)
	return attempts, nil
}
