package probe

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/raspscan/raspscan/internal/model"
)

// SANEProber shells out to scanimage and parses one device per line in the
// "%d|%v|%m|%t" format. It sees USB and legacy network backends the eSCL
// prober misses.
type SANEProber struct {
	command string
	timeout time.Duration
}

// NewSANEProber creates the SANE enumeration prober.
func NewSANEProber(timeout time.Duration) *SANEProber {
	return &SANEProber{command: "scanimage", timeout: timeout}
}

func (p *SANEProber) Name() string { return "sane" }

func (p *SANEProber) Probe(ctx context.Context) ([]model.Descriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, p.command, "-f", "%d|%v|%m|%t%n").Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrProbeFailed, p.command, err)
	}
	return parseScanimageOutput(out), nil
}

func parseScanimageOutput(out []byte) []model.Descriptor {
	var descriptors []model.Descriptor
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Split(strings.TrimSpace(scanner.Text()), "|")
		if len(fields) < 3 || fields[0] == "" {
			continue
		}
		desc := model.Descriptor{
			URI:    fields[0],
			Make:   strings.TrimSpace(fields[1]),
			Model:  strings.TrimSpace(fields[2]),
			Class:  model.DeviceClassScanner,
			Family: familyForURI(fields[0]),
		}
		desc.Name = strings.TrimSpace(desc.Make + " " + desc.Model)
		descriptors = append(descriptors, desc)
	}
	return descriptors
}

// familyForURI maps a SANE device URI onto a connection family. eSCL-backed
// backends (airscan/escl) go through the network family so the merger can
// collapse them against airscan-discover results.
func familyForURI(uri string) model.ConnectionFamily {
	switch {
	case strings.HasPrefix(uri, "airscan:"), strings.HasPrefix(uri, "escl:"):
		return model.FamilyESCL
	case strings.HasPrefix(uri, "net:"):
		return model.FamilyNetLegacy
	default:
		return model.FamilyUSB
	}
}

// ExecOperator runs scan and print operations through OS tooling, writing
// scan output into the artifact directory.
type ExecOperator struct {
	artifactDir  string
	scanCommand  string
	printCommand string
}

// NewExecOperator creates the device operation executor.
func NewExecOperator(artifactDir string) *ExecOperator {
	return &ExecOperator{
		artifactDir:  artifactDir,
		scanCommand:  "scanimage",
		printCommand: "lp",
	}
}

// Execute performs one device operation. The context carries the cooperative
// cancellation token: the spawned tool is asked to stop and Execute returns
// with the context error once it has.
func (o *ExecOperator) Execute(ctx context.Context, dev model.Device, kind model.JobKind, params model.JobParams) (string, error) {
	switch kind {
	case model.JobKindScan, model.JobKindBatch:
		return o.scan(ctx, dev, params)
	case model.JobKindPrint:
		return "", o.print(ctx, dev, params)
	default:
		return "", fmt.Errorf("unsupported job kind %q", kind)
	}
}

func (o *ExecOperator) scan(ctx context.Context, dev model.Device, params model.JobParams) (string, error) {
	if err := os.MkdirAll(o.artifactDir, 0o755); err != nil {
		return "", err
	}

	format := params.Format
	if format == "" {
		format = "pdf"
	}
	prefix := params.FilenamePrefix
	if prefix == "" {
		prefix = "scan"
	}
	artifact := filepath.Join(o.artifactDir, fmt.Sprintf("%s_%s.%s", prefix, time.Now().UTC().Format("20060102_150405"), format))

	args := []string{"-d", dev.URI, "--format", scanimageFormat(format), "-o", artifact}
	if params.DPI > 0 {
		args = append(args, "--resolution", strconv.Itoa(params.DPI))
	}
	if params.ColorMode != "" {
		args = append(args, "--mode", params.ColorMode)
	}

	cmd := exec.CommandContext(ctx, o.scanCommand, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		_ = os.Remove(artifact)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("scan failed: %v: %s", err, strings.TrimSpace(stderr.String()))
	}
	return artifact, nil
}

func (o *ExecOperator) print(ctx context.Context, dev model.Device, params model.JobParams) error {
	if params.SourceDocument == "" {
		return fmt.Errorf("print job requires a source document")
	}
	args := []string{"-d", dev.Name, "-h", printerHost(dev.URI)}
	if params.Copies > 1 {
		args = append(args, "-n", strconv.Itoa(params.Copies))
	}
	args = append(args, params.SourceDocument)

	cmd := exec.CommandContext(ctx, o.printCommand, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("print failed: %v: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// scanimage only understands its own format names; pdf output is produced by
// the airscan backend directly.
func scanimageFormat(format string) string {
	switch strings.ToLower(format) {
	case "jpg", "jpeg":
		return "jpeg"
	case "png":
		return "png"
	case "tiff", "tif":
		return "tiff"
	default:
		return "pdf"
	}
}

func printerHost(uri string) string {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(uri, "ipp://"), "http://")
	if idx := strings.IndexByte(trimmed, '/'); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return trimmed
}
