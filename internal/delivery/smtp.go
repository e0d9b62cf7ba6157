package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/raspscan/raspscan/internal/model"
)

// SMTPUploader mails artifacts as attachments.
type SMTPUploader struct {
	timeout time.Duration
}

// NewSMTPUploader creates the SMTP transport.
func NewSMTPUploader(timeout time.Duration) *SMTPUploader {
	return &SMTPUploader{timeout: timeout}
}

func (u *SMTPUploader) Upload(ctx context.Context, artifact string, target model.Target) error {
	cfg := target.Config.SMTP
	if cfg == nil {
		return fmt.Errorf("target %s has no smtp config", target.ID)
	}

	msg := mail.NewMsg()
	if err := msg.From(cfg.From); err != nil {
		return fmt.Errorf("smtp from address: %w", err)
	}
	if err := msg.To(cfg.To); err != nil {
		return fmt.Errorf("smtp to address: %w", err)
	}
	subject := cfg.Subject
	if subject == "" {
		subject = "Scanned document"
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, "A scanned document is attached.")
	msg.AttachFile(artifact)

	opts := []mail.Option{mail.WithTimeout(u.timeout)}
	if cfg.Port > 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password))
	}
	if cfg.StartTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return &TransportError{Transport: model.TransportSMTP, Detail: "send via " + cfg.Host, Err: err}
	}
	return nil
}
