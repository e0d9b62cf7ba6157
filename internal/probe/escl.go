package probe

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/raspscan/raspscan/internal/model"
)

// ESCLProber shells out to airscan-discover and parses its device listing.
// eSCL devices expose the richest capability metadata, so the discovery
// merger prefers these entries over duplicates from other families.
type ESCLProber struct {
	command string
	timeout time.Duration
}

// NewESCLProber creates the network discovery prober.
func NewESCLProber(timeout time.Duration) *ESCLProber {
	return &ESCLProber{command: "airscan-discover", timeout: timeout}
}

func (p *ESCLProber) Name() string { return "escl" }

// Probe runs one discovery pass. mDNS convergence is slow; callers bound the
// call with their own context on top of the prober timeout.
func (p *ESCLProber) Probe(ctx context.Context) ([]model.Descriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, p.command).Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrProbeFailed, p.command, err)
	}
	return parseAirscanOutput(out), nil
}

// parseAirscanOutput reads "name = uri, protocol" lines from the [devices]
// section of airscan-discover output.
func parseAirscanOutput(out []byte) []model.Descriptor {
	var descriptors []model.Descriptor
	scanner := bufio.NewScanner(bytes.NewReader(out))
	inDevices := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "[") {
			inDevices = strings.EqualFold(line, "[devices]")
			continue
		}
		if !inDevices || line == "" {
			continue
		}
		name, rest, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)
		uri := strings.TrimSpace(rest)
		if comma := strings.LastIndex(uri, ","); comma >= 0 {
			uri = strings.TrimSpace(uri[:comma])
		}
		if name == "" || uri == "" {
			continue
		}
		mk, mdl := splitMakeModel(name)
		descriptors = append(descriptors, model.Descriptor{
			URI:    uri,
			Name:   name,
			Make:   mk,
			Model:  mdl,
			Class:  model.DeviceClassScanner,
			Family: model.FamilyESCL,
		})
	}
	return descriptors
}

// splitMakeModel treats the first word of a display name as the vendor.
func splitMakeModel(name string) (string, string) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "", ""
	}
	if len(fields) == 1 {
		return fields[0], fields[0]
	}
	return fields[0], strings.Join(fields[1:], " ")
}

// ESCLPinger checks reachability with a capability fetch against the stored
// device URI. Non-HTTP URIs fall back to a targeted scanimage probe.
type ESCLPinger struct {
	client  *http.Client
	command string
	timeout time.Duration
}

// NewESCLPinger creates the health-check pinger.
func NewESCLPinger(timeout time.Duration) *ESCLPinger {
	return &ESCLPinger{
		client:  &http.Client{Timeout: timeout},
		command: "scanimage",
		timeout: timeout,
	}
}

// Ping returns nil when the device answered within the timeout. A timeout is
// a failure like any other.
func (p *ESCLPinger) Ping(ctx context.Context, dev model.Device) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	uri := dev.URI
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(uri, "/")+"/eSCL/ScannerCapabilities", nil)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrProbeFailed, err)
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrProbeFailed, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: capability fetch returned %d", ErrProbeFailed, resp.StatusCode)
		}
		return nil
	}

	// SANE-style URI: ask the backend for the device without scanning.
	if err := exec.CommandContext(ctx, p.command, "-d", uri, "--dont-scan").Run(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrProbeFailed, uri, err)
	}
	return nil
}
