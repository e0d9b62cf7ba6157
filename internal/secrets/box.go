package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/crypto/pbkdf2"

	"github.com/raspscan/raspscan/internal/model"
)

const (
	keySize        = 32
	kdfIterations  = 100_000
	kdfSalt        = "raspscan_salt_v1"
	defaultKeyFile = "encryption.key"
)

// Box encrypts and decrypts credential fields stored in target configs.
type Box struct {
	aead cipher.AEAD
}

// New creates a Box. A non-empty secret derives the key with PBKDF2; with an
// empty secret a random key is persisted under dataDir so development setups
// survive restarts.
func New(secret string, dataDir string, logger *slog.Logger) (*Box, error) {
	var key []byte
	if secret != "" {
		key = pbkdf2.Key([]byte(secret), []byte(kdfSalt), kdfIterations, keySize, sha256.New)
	} else {
		loaded, err := loadOrCreateKey(filepath.Join(dataDir, defaultKeyFile), logger)
		if err != nil {
			return nil, err
		}
		key = loaded
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Box{aead: aead}, nil
}

func loadOrCreateKey(path string, logger *slog.Logger) ([]byte, error) {
	if raw, err := os.ReadFile(path); err == nil {
		key, decodeErr := base64.StdEncoding.DecodeString(string(raw))
		if decodeErr == nil && len(key) == keySize {
			return key, nil
		}
		return nil, fmt.Errorf("key file %s is corrupt", path)
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(base64.StdEncoding.EncodeToString(key)), 0o600); err != nil {
		return nil, err
	}
	logger.Warn("generated new encryption key; set RASPSCAN_SECRET_KEY for production", "path", path)
	return key, nil
}

// Encrypt returns base64(nonce || ciphertext) for a plaintext secret.
// Empty input stays empty.
func (b *Box) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := b.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Empty input stays empty.
func (b *Box) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	raw, err := base64.URLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}
	if len(raw) < b.aead.NonceSize() {
		return "", errors.New("ciphertext shorter than nonce")
	}
	nonce, sealed := raw[:b.aead.NonceSize()], raw[b.aead.NonceSize():]
	plain, err := b.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// EncryptConfig encrypts the credential fields of every set transport section
// in place.
func (b *Box) EncryptConfig(cfg *model.TargetConfig) error {
	return b.applyConfig(cfg, b.Encrypt)
}

// DecryptConfig reverses EncryptConfig in place.
func (b *Box) DecryptConfig(cfg *model.TargetConfig) error {
	return b.applyConfig(cfg, b.Decrypt)
}

func (b *Box) applyConfig(cfg *model.TargetConfig, fn func(string) (string, error)) error {
	apply := func(field *string) error {
		value, err := fn(*field)
		if err != nil {
			return err
		}
		*field = value
		return nil
	}
	if cfg.SMB != nil {
		if err := apply(&cfg.SMB.Password); err != nil {
			return err
		}
	}
	if cfg.SFTP != nil {
		if err := apply(&cfg.SFTP.Password); err != nil {
			return err
		}
	}
	if cfg.SMTP != nil {
		if err := apply(&cfg.SMTP.Password); err != nil {
			return err
		}
	}
	if cfg.Webhook != nil {
		if err := apply(&cfg.Webhook.BearerToken); err != nil {
			return err
		}
	}
	if cfg.Paperless != nil {
		if err := apply(&cfg.Paperless.APIToken); err != nil {
			return err
		}
	}
	return nil
}
