package model

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"
)

// DeviceClass describes what kind of peripheral a device is.
type DeviceClass string

const (
	DeviceClassScanner DeviceClass = "scanner"
	DeviceClassPrinter DeviceClass = "printer"
	DeviceClassMFP     DeviceClass = "mfp"
)

// ConnectionFamily is the protocol family a device was discovered through.
type ConnectionFamily string

const (
	FamilyUSB       ConnectionFamily = "usb"
	FamilyESCL      ConnectionFamily = "escl"
	FamilyNetLegacy ConnectionFamily = "net-legacy"
)

// Device is a user-confirmed peripheral persisted in the registry.
type Device struct {
	ID         string           `json:"id"`
	Class      DeviceClass      `json:"class"`
	Name       string           `json:"name"`
	Make       string           `json:"make"`
	Model      string           `json:"model"`
	URI        string           `json:"uri"`
	Family     ConnectionFamily `json:"family"`
	Favorite   bool             `json:"favorite"`
	Online     bool             `json:"online"`
	LastSeenAt *time.Time       `json:"last_seen_at,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Descriptor is a raw device description returned by a probe, or supplied
// manually when the operator adds a device discovery cannot see.
type Descriptor struct {
	URI    string           `json:"uri"`
	Name   string           `json:"name"`
	Make   string           `json:"make"`
	Model  string           `json:"model"`
	Serial string           `json:"serial,omitempty"`
	Class  DeviceClass      `json:"class"`
	Family ConnectionFamily `json:"family"`
}

// DiscoveryRecord is a Descriptor annotated for one discovery response.
// It is never persisted.
type DiscoveryRecord struct {
	Descriptor
	Fingerprint       string `json:"fingerprint"`
	AlreadyRegistered bool   `json:"already_registered"`
}

// DeviceID derives the stable registry identifier for a device URI.
// The same URI always yields the same identifier.
func DeviceID(uri string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(NormalizeURI(uri)))
	return fmt.Sprintf("dev-%016x", h.Sum64())
}

// NormalizeURI trims whitespace and trailing slashes and lowercases the
// scheme so equivalent spellings map to one identifier.
func NormalizeURI(uri string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(uri), "/")
	scheme, rest, found := strings.Cut(trimmed, "://")
	if !found {
		return trimmed
	}
	return strings.ToLower(scheme) + "://" + rest
}

// Fingerprint builds the normalized make/model/serial key used to detect the
// same physical unit reported by different probes.
func (d Descriptor) Fingerprint() string {
	parts := []string{d.Make, d.Model, d.Serial}
	for i, part := range parts {
		parts[i] = strings.ToLower(strings.Join(strings.Fields(part), " "))
	}
	return strings.Join(parts, "|")
}

// Validate checks the minimal fields a descriptor needs before it can be
// confirmed into the registry.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.URI) == "" {
		return fmt.Errorf("descriptor uri is required")
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("descriptor name is required")
	}
	switch d.Class {
	case DeviceClassScanner, DeviceClassPrinter, DeviceClassMFP:
	default:
		return fmt.Errorf("unknown device class %q", d.Class)
	}
	switch d.Family {
	case FamilyUSB, FamilyESCL, FamilyNetLegacy:
	default:
		return fmt.Errorf("unknown connection family %q", d.Family)
	}
	return nil
}
