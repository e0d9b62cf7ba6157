// Package discovery composes the configured device probes into one
// deduplicated listing. It keeps no state between calls and never writes to
// the registry.
package discovery

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/raspscan/raspscan/internal/model"
	"github.com/raspscan/raspscan/internal/probe"
)

// ErrAllProbesFailed is returned only when every configured probe errored;
// a partial result is always preferred over a failure.
var ErrAllProbesFailed = errors.New("all discovery probes failed")

// Registry is the read-only registry view discovery needs.
type Registry interface {
	List(ctx context.Context) ([]model.Device, error)
}

// Merger fans out over probes and merges their descriptors.
type Merger struct {
	probes   []probe.Prober
	registry Registry
	rank     map[model.ConnectionFamily]int
	logger   *slog.Logger
}

// New creates a Merger. preference ranks connection families for duplicate
// suppression, best first; families not listed rank last.
func New(probes []probe.Prober, registry Registry, preference []model.ConnectionFamily, logger *slog.Logger) *Merger {
	rank := make(map[model.ConnectionFamily]int, len(preference))
	for i, family := range preference {
		rank[family] = i
	}
	return &Merger{probes: probes, registry: registry, rank: rank, logger: logger}
}

// Discover runs every probe, merges duplicates of the same physical unit and
// annotates entries already present in the registry. A probe that errors or
// times out contributes nothing; Discover fails only when all probes do.
func (m *Merger) Discover(ctx context.Context) ([]model.DiscoveryRecord, error) {
	var (
		mu       sync.Mutex
		found    []model.Descriptor
		failures int
	)

	g, groupCtx := errgroup.WithContext(ctx)
	for _, p := range m.probes {
		p := p
		g.Go(func() error {
			descriptors, err := p.Probe(groupCtx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				m.logger.Warn("discovery probe failed", "probe", p.Name(), "err", err)
				return nil
			}
			found = append(found, descriptors...)
			return nil
		})
	}
	_ = g.Wait()

	if len(m.probes) > 0 && failures == len(m.probes) {
		return nil, ErrAllProbesFailed
	}

	registered, err := m.registeredURIs(ctx)
	if err != nil {
		return nil, err
	}

	merged := m.merge(found)
	records := make([]model.DiscoveryRecord, 0, len(merged))
	for _, desc := range merged {
		_, exists := registered[model.NormalizeURI(desc.URI)]
		records = append(records, model.DiscoveryRecord{
			Descriptor:        desc,
			Fingerprint:       desc.Fingerprint(),
			AlreadyRegistered: exists,
		})
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Name != records[j].Name {
			return records[i].Name < records[j].Name
		}
		return records[i].URI < records[j].URI
	})
	return records, nil
}

// merge collapses descriptors sharing a fingerprint down to the entry from
// the best-ranked connection family, and drops exact URI duplicates.
func (m *Merger) merge(found []model.Descriptor) []model.Descriptor {
	byURI := map[string]struct{}{}
	byFingerprint := map[string]model.Descriptor{}
	var anonymous []model.Descriptor

	for _, desc := range found {
		uri := model.NormalizeURI(desc.URI)
		if _, dup := byURI[uri]; dup {
			continue
		}
		byURI[uri] = struct{}{}

		fp := desc.Fingerprint()
		if fp == "||" {
			anonymous = append(anonymous, desc)
			continue
		}
		current, exists := byFingerprint[fp]
		if !exists || m.familyRank(desc.Family) < m.familyRank(current.Family) {
			if exists {
				m.logger.Debug("suppressing duplicate discovery entry",
					"kept", desc.URI, "dropped", current.URI, "fingerprint", fp)
			}
			byFingerprint[fp] = desc
		}
	}

	out := make([]model.Descriptor, 0, len(byFingerprint)+len(anonymous))
	for _, desc := range byFingerprint {
		out = append(out, desc)
	}
	return append(out, anonymous...)
}

func (m *Merger) familyRank(family model.ConnectionFamily) int {
	if rank, ok := m.rank[family]; ok {
		return rank
	}
	return len(m.rank)
}

func (m *Merger) registeredURIs(ctx context.Context) (map[string]struct{}, error) {
	devices, err := m.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(devices))
	for _, dev := range devices {
		out[model.NormalizeURI(dev.URI)] = struct{}{}
	}
	return out, nil
}
