package arrivals

import (
	"context"
	"fmt"

	"github.com/kspirits/hub/internal/domain"
	"github.com/kspirits/hub/internal/metrics"
)

// Repository defines the storage contract for the freshness cache.
type Repository interface {
	ReadAll(ctx context.Context) ([]domain.ArrivalCard, error)
	WriteSlots(ctx context.Context, cards []domain.ArrivalCard) error
	Size() int
}

// SpiritSource supplies the primary-store view the cache projects.
type SpiritSource interface {
	TopPublished(ctx context.Context, n int) ([]domain.Spirit, error)
}

// Service rebuilds and serves the new-arrivals freshness cache.
type Service struct {
	repo    Repository
	spirits SpiritSource
}

// New creates an arrivals service.
func New(repo Repository, spirits SpiritSource) *Service {
	return &Service{repo: repo, spirits: spirits}
}

// List returns the cached cards, cheap-read path for the home page.
func (s *Service) List(ctx context.Context) ([]domain.ArrivalCard, error) {
	cards, err := s.repo.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list arrivals: %w", err)
	}
	return cards, nil
}

// Rebuild re-derives the cache from the primary store: query the most
// recently updated published spirits, project each to the minified
// card, overwrite the slots and delete any stale tail. Unlike the
// recent-reviews path this propagates the query error: Rebuild is
// explicitly triggered and its failure is immediately actionable.
func (s *Service) Rebuild(ctx context.Context) error {
	spirits, err := s.spirits.TopPublished(ctx, s.repo.Size())
	if err != nil {
		metrics.CacheRebuildsTotal.WithLabelValues("arrivals", "query_error").Inc()
		return fmt.Errorf("arrivals rebuild query: %w", err)
	}

	cards := make([]domain.ArrivalCard, 0, len(spirits))
	for _, sp := range spirits {
		cards = append(cards, domain.CardOf(sp))
	}

	if err := s.repo.WriteSlots(ctx, cards); err != nil {
		metrics.CacheRebuildsTotal.WithLabelValues("arrivals", "write_error").Inc()
		return fmt.Errorf("arrivals rebuild write: %w", err)
	}

	metrics.CacheRebuildsTotal.WithLabelValues("arrivals", "ok").Inc()
	return nil
}
