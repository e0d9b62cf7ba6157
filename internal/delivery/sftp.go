package delivery

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/raspscan/raspscan/internal/model"
)

// SFTPUploader writes artifacts over an SSH file transfer session.
type SFTPUploader struct {
	dialTimeout time.Duration
}

// NewSFTPUploader creates the SFTP transport.
func NewSFTPUploader(dialTimeout time.Duration) *SFTPUploader {
	return &SFTPUploader{dialTimeout: dialTimeout}
}

func (u *SFTPUploader) Upload(ctx context.Context, artifact string, target model.Target) error {
	cfg := target.Config.SFTP
	if cfg == nil {
		return fmt.Errorf("target %s has no sftp config", target.ID)
	}
	port := cfg.Port
	if port == 0 {
		port = 22
	}

	sshCfg := &ssh.ClientConfig{
		User:            cfg.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         u.dialTimeout,
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	conn, err := ssh.Dial("tcp", addr, sshCfg)
	if err != nil {
		return &TransportError{Transport: model.TransportSFTP, Detail: "dial " + addr, Err: err}
	}
	defer conn.Close()

	client, err := sftp.NewClient(conn)
	if err != nil {
		return &TransportError{Transport: model.TransportSFTP, Detail: "open sftp session", Err: err}
	}
	defer client.Close()

	remote := filepath.Base(artifact)
	if cfg.Dir != "" {
		if err := client.MkdirAll(cfg.Dir); err != nil {
			return &TransportError{Transport: model.TransportSFTP, Detail: "mkdir " + cfg.Dir, Err: err}
		}
		remote = path.Join(cfg.Dir, remote)
	}

	src, err := os.Open(artifact)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := client.Create(remote)
	if err != nil {
		return &TransportError{Transport: model.TransportSFTP, Detail: "create " + remote, Err: err}
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return &TransportError{Transport: model.TransportSFTP, Detail: "write " + remote, Err: err}
	}
	return dst.Close()
}
