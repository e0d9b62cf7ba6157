package model

import (
	"fmt"
	"strings"
	"time"
)

// Transport enumerates supported delivery transports.
type Transport string

const (
	TransportSMB       Transport = "smb"
	TransportSFTP      Transport = "sftp"
	TransportSMTP      Transport = "smtp"
	TransportWebhook   Transport = "webhook"
	TransportPaperless Transport = "paperless"
)

const redactedSecret = "********"

// IsRedactedSecret reports whether a submitted credential value is the
// redaction mask, meaning the client wants to keep the stored secret.
func IsRedactedSecret(s string) bool { return s == redactedSecret }

// SMBConfig connects to a network share. Connection accepts
// "host/share[/path]", "//host/share" and "\\host\share\sub" notations.
type SMBConfig struct {
	Connection string `json:"connection"`
	Username   string `json:"username"`
	Password   string `json:"password,omitempty"`
	Domain     string `json:"domain,omitempty"`
}

// SFTPConfig connects to an SSH file transfer endpoint.
type SFTPConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port,omitempty"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
	Dir      string `json:"dir,omitempty"`
}

// SMTPConfig mails the artifact as an attachment.
type SMTPConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	From     string `json:"from"`
	To       string `json:"to"`
	Subject  string `json:"subject,omitempty"`
	StartTLS bool   `json:"starttls,omitempty"`
}

// WebhookConfig posts the artifact to an HTTP endpoint as multipart form data.
type WebhookConfig struct {
	URL         string `json:"url"`
	BearerToken string `json:"bearer_token,omitempty"`
	FieldName   string `json:"field_name,omitempty"`
}

// PaperlessConfig uploads into a paperless-ngx document consumer.
type PaperlessConfig struct {
	URL      string `json:"url"`
	APIToken string `json:"api_token,omitempty"`
}

// TargetConfig is a tagged variant; exactly the member matching the target
// transport is set.
type TargetConfig struct {
	SMB       *SMBConfig       `json:"smb,omitempty"`
	SFTP      *SFTPConfig      `json:"sftp,omitempty"`
	SMTP      *SMTPConfig      `json:"smtp,omitempty"`
	Webhook   *WebhookConfig   `json:"webhook,omitempty"`
	Paperless *PaperlessConfig `json:"paperless,omitempty"`
}

// Target is a persisted delivery destination.
type Target struct {
	ID        string       `json:"id"`
	Transport Transport    `json:"transport"`
	Name      string       `json:"name"`
	Config    TargetConfig `json:"config"`
	Enabled   bool         `json:"enabled"`
	Favorite  bool         `json:"favorite"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Validate checks that exactly the config variant for the transport is set
// and carries its required fields.
func (t Target) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("target name is required")
	}
	set := 0
	for _, present := range []bool{
		t.Config.SMB != nil,
		t.Config.SFTP != nil,
		t.Config.SMTP != nil,
		t.Config.Webhook != nil,
		t.Config.Paperless != nil,
	} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("target config must set exactly one transport section, got %d", set)
	}
	switch t.Transport {
	case TransportSMB:
		if t.Config.SMB == nil {
			return fmt.Errorf("smb target requires smb config")
		}
		if t.Config.SMB.Connection == "" {
			return fmt.Errorf("smb connection is required")
		}
	case TransportSFTP:
		if t.Config.SFTP == nil {
			return fmt.Errorf("sftp target requires sftp config")
		}
		if t.Config.SFTP.Host == "" || t.Config.SFTP.Username == "" {
			return fmt.Errorf("sftp host and username are required")
		}
	case TransportSMTP:
		if t.Config.SMTP == nil {
			return fmt.Errorf("smtp target requires smtp config")
		}
		if t.Config.SMTP.Host == "" || t.Config.SMTP.From == "" || t.Config.SMTP.To == "" {
			return fmt.Errorf("smtp host, from and to are required")
		}
	case TransportWebhook:
		if t.Config.Webhook == nil {
			return fmt.Errorf("webhook target requires webhook config")
		}
		if t.Config.Webhook.URL == "" {
			return fmt.Errorf("webhook url is required")
		}
	case TransportPaperless:
		if t.Config.Paperless == nil {
			return fmt.Errorf("paperless target requires paperless config")
		}
		if t.Config.Paperless.URL == "" {
			return fmt.Errorf("paperless url is required")
		}
	default:
		return fmt.Errorf("unknown transport %q", t.Transport)
	}
	return nil
}

// Redacted returns a copy safe for list/read responses: credential fields are
// masked, never returned in plaintext.
func (t Target) Redacted() Target {
	out := t
	out.Config = TargetConfig{}
	if c := t.Config.SMB; c != nil {
		cp := *c
		if cp.Password != "" {
			cp.Password = redactedSecret
		}
		out.Config.SMB = &cp
	}
	if c := t.Config.SFTP; c != nil {
		cp := *c
		if cp.Password != "" {
			cp.Password = redactedSecret
		}
		out.Config.SFTP = &cp
	}
	if c := t.Config.SMTP; c != nil {
		cp := *c
		if cp.Password != "" {
			cp.Password = redactedSecret
		}
		out.Config.SMTP = &cp
	}
	if c := t.Config.Webhook; c != nil {
		cp := *c
		if cp.BearerToken != "" {
			cp.BearerToken = redactedSecret
		}
		out.Config.Webhook = &cp
	}
	if c := t.Config.Paperless; c != nil {
		cp := *c
		if cp.APIToken != "" {
			cp.APIToken = redactedSecret
		}
		out.Config.Paperless = &cp
	}
	return out
}
