package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/rudzz/marketplace/internal/domain/entities"
	"github.com/rudzz/marketplace/internal/domain/repositories"
	apperrors "github.com/rudzz/marketplace/pkg/errors"
	"github.com/rudzz/marketplace/pkg/geo"
)

// ProviderAdapter implements repositories.ProviderRepository
type ProviderAdapter struct {
	s *Store
}

var _ repositories.ProviderRepository = (*ProviderAdapter)(nil)

func (a *ProviderAdapter) Create(ctx context.Context, provider *entities.Provider) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	if _, ok := a.s.users[provider.UserID]; !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("user %d not found", provider.UserID))
	}
	for _, p := range a.s.providers {
		if p.UserID == provider.UserID {
			return apperrors.NewConflictError("user already has a provider profile")
		}
	}
	now := a.s.timestamp()
	provider.ID = a.s.id("providers")
	provider.Rating = 0
	provider.ReviewCount = 0
	provider.CreatedAt = now
	provider.UpdatedAt = now
	a.s.providers[provider.ID] = copyProvider(provider)
	return nil
}

func (a *ProviderAdapter) GetByID(ctx context.Context, id int64) (*entities.Provider, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	p, ok := a.s.providers[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("provider %d not found", id))
	}
	return copyProvider(p), nil
}

func (a *ProviderAdapter) GetByIDs(ctx context.Context, ids []int64) ([]*entities.Provider, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	out := make([]*entities.Provider, 0, len(ids))
	for _, id := range ids {
		if p, ok := a.s.providers[id]; ok {
			out = append(out, copyProvider(p))
		}
	}
	return out, nil
}

func (a *ProviderAdapter) GetByUserID(ctx context.Context, userID int64) (*entities.Provider, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	for _, p := range a.s.providers {
		if p.UserID == userID {
			return copyProvider(p), nil
		}
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("no provider profile for user %d", userID))
}

func (a *ProviderAdapter) List(ctx context.Context, bounds *geo.Bounds) ([]*entities.Provider, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	out := make([]*entities.Provider, 0, len(a.s.providers))
	for _, p := range a.s.providers {
		if bounds != nil && !bounds.Contains(p.Location()) {
			continue
		}
		out = append(out, copyProvider(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (a *ProviderAdapter) Update(ctx context.Context, provider *entities.Provider) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	existing, ok := a.s.providers[provider.ID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("provider %d not found", provider.ID))
	}
	existing.BusinessName = provider.BusinessName
	existing.Description = provider.Description
	existing.Address = provider.Address
	existing.Latitude = provider.Latitude
	existing.Longitude = provider.Longitude
	existing.Services = append([]string(nil), provider.Services...)
	existing.UpdatedAt = a.s.timestamp()

	*provider = *copyProvider(existing)
	return nil
}

func (a *ProviderAdapter) Delete(ctx context.Context, id int64) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	if _, ok := a.s.providers[id]; !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("provider %d not found", id))
	}
	a.s.deleteProviderLocked(id)
	return nil
}
