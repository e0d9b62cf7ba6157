package delivery

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/hirochachacha/go-smb2"

	"github.com/raspscan/raspscan/internal/model"
)

// SMBUploader writes artifacts onto an SMB share using NTLM authentication.
type SMBUploader struct {
	dialTimeout time.Duration
}

// NewSMBUploader creates the SMB transport.
func NewSMBUploader(dialTimeout time.Duration) *SMBUploader {
	return &SMBUploader{dialTimeout: dialTimeout}
}

func (u *SMBUploader) Upload(ctx context.Context, artifact string, target model.Target) error {
	cfg := target.Config.SMB
	if cfg == nil {
		return fmt.Errorf("target %s has no smb config", target.ID)
	}
	share, err := ParseShare(cfg.Connection)
	if err != nil {
		return err
	}

	dialer := net.Dialer{Timeout: u.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(share.Server, "445"))
	if err != nil {
		return &TransportError{Transport: model.TransportSMB, Detail: "dial " + share.Server, Err: err}
	}
	defer conn.Close()

	session, err := (&smb2.Dialer{
		Initiator: &smb2.NTLMInitiator{
			User:     cfg.Username,
			Password: cfg.Password,
			Domain:   cfg.Domain,
		},
	}).DialContext(ctx, conn)
	if err != nil {
		return &TransportError{Transport: model.TransportSMB, Detail: "authenticate", Err: err}
	}
	defer session.Logoff()

	fs, err := session.Mount(share.Share)
	if err != nil {
		return &TransportError{Transport: model.TransportSMB, Detail: "mount " + share.Share, Err: err}
	}
	defer fs.Umount()

	remote := filepath.Base(artifact)
	if share.Path != "" {
		if err := fs.MkdirAll(toSMBPath(share.Path), 0o755); err != nil {
			return &TransportError{Transport: model.TransportSMB, Detail: "mkdir " + share.Path, Err: err}
		}
		remote = path.Join(share.Path, remote)
	}

	src, err := os.Open(artifact)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := fs.Create(toSMBPath(remote))
	if err != nil {
		return &TransportError{Transport: model.TransportSMB, Detail: "create " + remote, Err: err}
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return &TransportError{Transport: model.TransportSMB, Detail: "write " + remote, Err: err}
	}
	return dst.Close()
}

func toSMBPath(p string) string {
	return strings.ReplaceAll(p, "/", `\`)
}
