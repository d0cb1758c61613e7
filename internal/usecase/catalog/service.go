package catalog

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/kspirits/hub/internal/domain"
)

// Service handles catalog browsing and admin curation.
type Service struct {
	repo            Repository
	events          Publisher
	defaultPageSize int
	maxPageSize     int
	logger          *zap.Logger
}

// New creates a catalog service.
func New(repo Repository, events Publisher, logger *zap.Logger) *Service {
	return &Service{
		repo:            repo,
		events:          events,
		defaultPageSize: 20,
		maxPageSize:     100,
		logger:          logger,
	}
}

// WithPagination configures page size limits.
func (s *Service) WithPagination(defaultPageSize, maxPageSize int) *Service {
	if defaultPageSize > 0 {
		s.defaultPageSize = defaultPageSize
	}
	if maxPageSize > 0 {
		s.maxPageSize = maxPageSize
	}
	return s
}

// Browse returns one page of the catalog. The store computes no
// authoritative count: a full page reports Total as a lower bound
// (offset + items + 1), a short non-empty page yields the exact count,
// and an empty page past the first says nothing about the count at
// all, so it reports Total 0 with the lower-bound flag set. Callers
// must not present Total as a final number while the flag is set.
func (s *Service) Browse(ctx context.Context, f domain.SpiritFilter, p domain.Pagination) (domain.PageResult, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = s.defaultPageSize
	}
	if p.PageSize > s.maxPageSize {
		p.PageSize = s.maxPageSize
	}

	items, err := s.repo.Query(ctx, f, p)
	if err != nil {
		return domain.PageResult{}, fmt.Errorf("browse catalog: %w", err)
	}

	if len(items) == 0 && p.Page == 1 && plausiblyNonEmpty(f) {
		// An empty first page on a broad filter usually means a
		// missing index or a permission problem, not an empty dataset.
		s.logger.Warn("query returned zero items for a broad filter",
			zap.String("status", string(f.Status)),
			zap.String("category", f.Category),
		)
	}

	result := domain.PageResult{
		Items:    items,
		Page:     p.Page,
		PageSize: p.PageSize,
		Total:    p.Offset() + len(items),
	}
	switch {
	case len(items) == p.PageSize:
		result.Total++
		result.TotalIsLowerBound = true
	case len(items) == 0 && p.Page > 1:
		// Overshooting the result set reveals only that at most
		// offset items exist. Claiming exactly offset would fabricate
		// a count, so report the only honest lower bound.
		result.Total = 0
		result.TotalIsLowerBound = true
	}
	return result, nil
}

// Get returns a single spirit.
func (s *Service) Get(ctx context.Context, id string) (domain.Spirit, error) {
	sp, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Spirit{}, err
	}
	return sp, nil
}

// Create ingests a new spirit record.
func (s *Service) Create(ctx context.Context, sp domain.Spirit) (domain.Spirit, error) {
	if sp.Name == "" {
		return domain.Spirit{}, fmt.Errorf("name is required: %w", domain.ErrInvalidFilter)
	}
	if sp.Status == "" {
		sp.Status = domain.StatusRaw
	}

	created, err := s.repo.Create(ctx, sp)
	if err != nil {
		return domain.Spirit{}, err
	}

	if created.Published() {
		s.events.Publish(domain.WriteEvent{
			Kind: domain.EventSpiritPublished, SpiritID: created.ID,
		})
	}
	return created, nil
}

// Update merges partial fields into a spirit. Fields absent from the
// map are left untouched; nil values are dropped before encoding so a
// partial update can never clear a field by accident. Publish-affecting
// writes trigger an asynchronous freshness-cache rebuild.
func (s *Service) Update(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	delete(fields, "id")

	if err := s.repo.Upsert(ctx, id, fields); err != nil {
		return err
	}

	if touchesPublication(fields) {
		s.events.Publish(domain.WriteEvent{
			Kind: domain.EventSpiritPublished, SpiritID: id,
		})
	} else {
		s.events.Publish(domain.WriteEvent{
			Kind: domain.EventSpiritUpdated, SpiritID: id,
		})
	}
	return nil
}

// Delete removes spirits best-effort; sibling deletes proceed past
// individual failures. Returns how many IDs failed.
func (s *Service) Delete(ctx context.Context, ids []string) int {
	failed := s.repo.Delete(ctx, ids)

	for _, id := range ids {
		if slices.Contains(failed, id) {
			continue
		}
		s.events.Publish(domain.WriteEvent{
			Kind: domain.EventSpiritDeleted, SpiritID: id,
		})
	}
	return len(failed)
}

// touchesPublication reports whether a partial update can change what
// the catalog shows as published.
func touchesPublication(fields map[string]any) bool {
	for _, key := range []string{"isPublished", "status", "name", "imageUrl", "thumbnailUrl"} {
		if _, ok := fields[key]; ok {
			return true
		}
	}
	return false
}

func plausiblyNonEmpty(f domain.SpiritFilter) bool {
	return !f.NeedsScan() && f.Country == "" && f.Distillery == "" && f.Subcategory == ""
}
