// Package probe adapts the OS-level scanner/printer tooling behind small
// interfaces. Everything here may block for seconds and is only ever called
// from background loops or the job execution pool.
package probe

import (
	"context"
	"errors"

	"github.com/raspscan/raspscan/internal/model"
)

// ErrProbeFailed wraps any enumeration failure. Callers treat it as "nothing
// found", never as a fatal condition.
var ErrProbeFailed = errors.New("device probe failed")

// Prober enumerates currently reachable devices for one protocol family.
// An empty result is success; results are never guaranteed complete.
type Prober interface {
	Name() string
	Probe(ctx context.Context) ([]model.Descriptor, error)
}

// Pinger performs a targeted reachability check against one device, cheaper
// than a full discovery pass.
type Pinger interface {
	Ping(ctx context.Context, dev model.Device) error
}

// Operator executes a scan or print operation against a device and streams
// the result to a local artifact path. Cancellation is cooperative through
// the context; the operation is never killed mid-stream by other means.
type Operator interface {
	Execute(ctx context.Context, dev model.Device, kind model.JobKind, params model.JobParams) (string, error)
}
