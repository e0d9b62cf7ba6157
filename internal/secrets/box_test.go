package secrets

import (
	"io"
	"log/slog"
	"testing"

	"github.com/raspscan/raspscan/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	box, err := New("passphrase", t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	sealed, err := box.Encrypt("hunter2")
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}
	if sealed == "hunter2" || sealed == "" {
		t.Fatalf("ciphertext looks like plaintext: %q", sealed)
	}

	plain, err := box.Decrypt(sealed)
	if err != nil {
		t.Fatalf("Decrypt returned error: %v", err)
	}
	if plain != "hunter2" {
		t.Fatalf("round trip produced %q", plain)
	}
}

func TestEmptyValuesPassThrough(t *testing.T) {
	box, err := New("passphrase", t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if sealed, err := box.Encrypt(""); err != nil || sealed != "" {
		t.Fatalf("Encrypt(\"\") = %q, %v", sealed, err)
	}
	if plain, err := box.Decrypt(""); err != nil || plain != "" {
		t.Fatalf("Decrypt(\"\") = %q, %v", plain, err)
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	box, err := New("passphrase", t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := box.Decrypt("not-base64!!"); err == nil {
		t.Fatalf("expected error for invalid base64")
	}
	if _, err := box.Decrypt("YWJj"); err == nil {
		t.Fatalf("expected error for truncated ciphertext")
	}
}

func TestGeneratedKeyPersistsAcrossRestarts(t *testing.T) {
	dir := t.TempDir()

	first, err := New("", dir, testLogger())
	if err != nil {
		t.Fatalf("first New returned error: %v", err)
	}
	sealed, err := first.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}

	second, err := New("", dir, testLogger())
	if err != nil {
		t.Fatalf("second New returned error: %v", err)
	}
	plain, err := second.Decrypt(sealed)
	if err != nil {
		t.Fatalf("Decrypt with reloaded key failed: %v", err)
	}
	if plain != "secret" {
		t.Fatalf("reloaded key produced %q", plain)
	}
}

func TestEncryptConfigCoversSetSection(t *testing.T) {
	box, err := New("passphrase", t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	cfg := model.TargetConfig{
		SMB: &model.SMBConfig{Connection: "nas/scans", Username: "scan", Password: "hunter2"},
	}
	if err := box.EncryptConfig(&cfg); err != nil {
		t.Fatalf("EncryptConfig returned error: %v", err)
	}
	if cfg.SMB.Password == "hunter2" {
		t.Fatalf("password left in plaintext")
	}
	if cfg.SMB.Username != "scan" {
		t.Fatalf("non-secret field mutated: %q", cfg.SMB.Username)
	}

	if err := box.DecryptConfig(&cfg); err != nil {
		t.Fatalf("DecryptConfig returned error: %v", err)
	}
	if cfg.SMB.Password != "hunter2" {
		t.Fatalf("config round trip produced %q", cfg.SMB.Password)
	}
}
