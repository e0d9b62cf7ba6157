// Package registry implements the durable set of user-confirmed devices.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	devicedomain "github.com/raspscan/raspscan/internal/domain/device"
	"github.com/raspscan/raspscan/internal/model"
)

// Service implements device.Service on top of the sqlite repository.
type Service struct {
	repo   devicedomain.Repository
	logger *slog.Logger
}

// New creates the registry service.
func New(repo devicedomain.Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Confirm turns a discovery descriptor (or a manual one) into a persisted
// Device. The identifier is derived from the URI and never changes.
func (s *Service) Confirm(ctx context.Context, desc model.Descriptor) (model.Device, error) {
	if err := desc.Validate(); err != nil {
		return model.Device{}, fmt.Errorf("%w: %v", devicedomain.ErrValidation, err)
	}

	now := time.Now().UTC()
	dev := model.Device{
		ID:        model.DeviceID(desc.URI),
		Class:     desc.Class,
		Name:      desc.Name,
		Make:      desc.Make,
		Model:     desc.Model,
		URI:       model.NormalizeURI(desc.URI),
		Family:    desc.Family,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, dev); err != nil {
		return model.Device{}, err
	}
	s.logger.Info("device confirmed", "id", dev.ID, "name", dev.Name, "family", dev.Family)
	return dev, nil
}

// List returns all registered devices.
func (s *Service) List(ctx context.Context) ([]model.Device, error) {
	return s.repo.List(ctx)
}

// Get returns one device by id.
func (s *Service) Get(ctx context.Context, id string) (model.Device, error) {
	return s.repo.Get(ctx, id)
}

// Remove deletes a device for good. The next discovery pass will surface the
// hardware again as a fresh, unregistered candidate.
func (s *Service) Remove(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("device removed", "id", id)
	return nil
}

// SetFavorite flips the favorite flag. Favorites are independent flags;
// presentation decides which one is "active".
func (s *Service) SetFavorite(ctx context.Context, id string, favorite bool) error {
	return s.repo.SetFavorite(ctx, id, favorite)
}

// MarkSeen is the health monitor's only write path into the registry.
// A missing id is a no-op so a late check cannot resurrect a removed device.
func (s *Service) MarkSeen(ctx context.Context, id string, online bool, at time.Time) error {
	return s.repo.MarkSeen(ctx, id, online, at)
}
