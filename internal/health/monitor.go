// Package health runs the background reachability loop over registry devices.
package health

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	devicedomain "github.com/raspscan/raspscan/internal/domain/device"
	"github.com/raspscan/raspscan/internal/model"
	"github.com/raspscan/raspscan/internal/probe"
)

// ErrNotRunning indicates Stop was called on a stopped monitor.
var ErrNotRunning = errors.New("health monitor not running")

// Record is the in-memory health state for one device. The registry's
// online/last-seen columns are the durable projection of this.
type Record struct {
	DeviceID    string     `json:"device_id"`
	Name        string     `json:"name"`
	Online      bool       `json:"online"`
	Checked     bool       `json:"checked"`
	LastCheckAt *time.Time `json:"last_check_at,omitempty"`
	Failures    int        `json:"consecutive_failures"`
}

// Status is the monitor summary exposed over the API. Devices seeded at start
// but not yet probed count as unknown, not offline.
type Status struct {
	MonitorActive bool     `json:"monitor_active"`
	Total         int      `json:"total"`
	Online        int      `json:"online"`
	Offline       int      `json:"offline"`
	Unknown       int      `json:"unknown"`
	Devices       []Record `json:"devices"`
}

// Options tunes the check cadence. The warm-up window uses the short interval
// to absorb slow mDNS convergence right after startup.
type Options struct {
	WarmupWindow   time.Duration
	WarmInterval   time.Duration
	SteadyInterval time.Duration
}

func (o Options) normalize() Options {
	if o.WarmupWindow <= 0 {
		o.WarmupWindow = 5 * time.Minute
	}
	if o.WarmInterval <= 0 {
		o.WarmInterval = 15 * time.Second
	}
	if o.SteadyInterval <= 0 {
		o.SteadyInterval = 60 * time.Second
	}
	return o
}

// Monitor periodically re-probes registered devices and reconciles their
// online state through the registry's MarkSeen entry point.
type Monitor struct {
	registry     devicedomain.Service
	pinger       probe.Pinger
	opts         Options
	logger       *slog.Logger
	onTransition func(deviceID, name string, online bool)

	mu        sync.Mutex
	records   map[string]*Record
	running   bool
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}
	checkCh   chan struct{}
}

// New creates a stopped Monitor.
func New(registry devicedomain.Service, pinger probe.Pinger, opts Options, logger *slog.Logger) *Monitor {
	return &Monitor{
		registry: registry,
		pinger:   pinger,
		opts:     opts.normalize(),
		logger:   logger,
		records:  map[string]*Record{},
		checkCh:  make(chan struct{}, 1),
	}
}

// OnTransition registers a hook fired on every online/offline flip.
// Must be set before Start.
func (m *Monitor) OnTransition(fn func(deviceID, name string, online bool)) {
	m.onTransition = fn
}

// Start seeds health records from the registry and launches the loop.
// Starting an already running monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.running = true
	m.startedAt = time.Now()
	m.cancel = cancel
	m.done = make(chan struct{})
	m.records = map[string]*Record{}
	m.mu.Unlock()

	devices, err := m.registry.List(ctx)
	if err != nil {
		cancel()
		m.mu.Lock()
		m.running = false
		close(m.done)
		m.mu.Unlock()
		return err
	}
	m.mu.Lock()
	for _, dev := range devices {
		m.records[dev.ID] = &Record{DeviceID: dev.ID, Name: dev.Name}
	}
	m.mu.Unlock()

	go m.run(loopCtx)
	m.logger.Info("health monitor started",
		"devices", len(devices),
		"warm_interval", m.opts.WarmInterval,
		"steady_interval", m.opts.SteadyInterval)
	return nil
}

// Stop cancels the loop and waits for it to drain.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return ErrNotRunning
	}
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	cancel()
	<-done

	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
	m.logger.Info("health monitor stopped")
	return nil
}

// TriggerSweep requests an immediate pass without disturbing the schedule.
func (m *Monitor) TriggerSweep() {
	select {
	case m.checkCh <- struct{}{}:
	default:
	}
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)
	for {
		timer := time.NewTimer(m.interval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-m.checkCh:
			timer.Stop()
		case <-timer.C:
		}
		m.sweep(ctx)
	}
}

// interval picks the short cadence inside the warm-up window and the long
// one afterwards.
func (m *Monitor) interval() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if time.Since(m.startedAt) < m.opts.WarmupWindow {
		return m.opts.WarmInterval
	}
	return m.opts.SteadyInterval
}

func (m *Monitor) sweep(ctx context.Context) {
	devices, err := m.registry.List(ctx)
	if err != nil {
		m.logger.Error("health sweep failed to list devices", "err", err)
		return
	}

	seen := make(map[string]struct{}, len(devices))
	for _, dev := range devices {
		if ctx.Err() != nil {
			return
		}
		seen[dev.ID] = struct{}{}
		m.checkDevice(ctx, dev)
	}

	// Drop records for devices removed from the registry.
	m.mu.Lock()
	for id := range m.records {
		if _, ok := seen[id]; !ok {
			delete(m.records, id)
		}
	}
	m.mu.Unlock()
}

// checkDevice probes one device and reconciles record and registry state.
// A probe timeout counts as a failure like any other.
func (m *Monitor) checkDevice(ctx context.Context, dev model.Device) bool {
	err := m.pinger.Ping(ctx, dev)
	now := time.Now().UTC()
	online := err == nil

	m.mu.Lock()
	rec, ok := m.records[dev.ID]
	if !ok {
		rec = &Record{DeviceID: dev.ID, Name: dev.Name}
		m.records[dev.ID] = rec
	}
	wasOnline, wasChecked := rec.Online, rec.Checked
	rec.Name = dev.Name
	rec.Online = online
	rec.Checked = true
	rec.LastCheckAt = &now
	if online {
		rec.Failures = 0
	} else {
		rec.Failures++
	}
	m.mu.Unlock()

	if !wasChecked || wasOnline != online {
		if online {
			m.logger.Info("device came online", "id", dev.ID, "name", dev.Name)
		} else {
			m.logger.Warn("device went offline", "id", dev.ID, "name", dev.Name, "err", err)
		}
		if m.onTransition != nil {
			m.onTransition(dev.ID, dev.Name, online)
		}
	}

	if err := m.registry.MarkSeen(ctx, dev.ID, online, now); err != nil {
		m.logger.Error("mark seen failed", "id", dev.ID, "err", err)
	}
	return online
}

// CheckNow probes a single device out of band and updates its record
// synchronously.
func (m *Monitor) CheckNow(ctx context.Context, id string) (bool, error) {
	dev, err := m.registry.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return m.checkDevice(ctx, dev), nil
}

// StatusSnapshot reports the monitor state and per-device detail.
func (m *Monitor) StatusSnapshot() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := Status{MonitorActive: m.running, Total: len(m.records)}
	for _, rec := range m.records {
		status.Devices = append(status.Devices, *rec)
		switch {
		case !rec.Checked:
			status.Unknown++
		case rec.Online:
			status.Online++
		default:
			status.Offline++
		}
	}
	sort.Slice(status.Devices, func(i, j int) bool {
		return status.Devices[i].Name < status.Devices[j].Name
	})
	return status
}
