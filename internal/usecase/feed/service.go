package feed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kspirits/hub/internal/domain"
)

// Service maintains the recent-reviews ring buffer: a fixed-capacity
// list of the newest reviews, deduplicated by (spirit, author), that
// backs the "recent activity" feed on the home page.
type Service struct {
	repo     Repository
	spirits  SpiritReader
	events   Publisher
	capacity int
	display  int
	logger   *zap.Logger
}

// New creates a feed service. capacity bounds the stored slots; display
// bounds what Recent exposes to the UI.
func New(repo Repository, spirits SpiritReader, events Publisher, capacity, display int, logger *zap.Logger) *Service {
	if capacity <= 0 {
		capacity = 6
	}
	if display <= 0 || display > capacity {
		display = capacity
	}
	return &Service{
		repo:     repo,
		spirits:  spirits,
		events:   events,
		capacity: capacity,
		display:  display,
		logger:   logger,
	}
}

// CreateReview validates and stores a review, then emits the event that
// refreshes the ring buffer asynchronously.
func (s *Service) CreateReview(ctx context.Context, rev domain.Review) (domain.Review, error) {
	if rev.SpiritID == "" || rev.UserID == "" {
		return domain.Review{}, fmt.Errorf("spirit and user are required: %w", domain.ErrInvalidReview)
	}
	if rev.Rating < 1 || rev.Rating > 5 {
		return domain.Review{}, fmt.Errorf("rating must be 1-5, got %d: %w", rev.Rating, domain.ErrInvalidReview)
	}

	sp, err := s.spirits.Get(ctx, rev.SpiritID)
	if err != nil {
		return domain.Review{}, fmt.Errorf("resolve reviewed spirit: %w", err)
	}

	created, err := s.repo.Create(ctx, rev)
	if err != nil {
		return domain.Review{}, err
	}

	s.events.Publish(domain.WriteEvent{
		Kind:       domain.EventReviewCreated,
		SpiritID:   created.SpiritID,
		Review:     &created,
		SpiritName: sp.Name,
	})
	return created, nil
}

// DeleteReview removes a review and emits the event that re-derives the
// ring buffer.
func (s *Service) DeleteReview(ctx context.Context, rev domain.Review) error {
	if err := s.repo.Delete(ctx, rev.ID); err != nil {
		return err
	}
	s.events.Publish(domain.WriteEvent{
		Kind:     domain.EventReviewDeleted,
		SpiritID: rev.SpiritID,
		Review:   &rev,
	})
	return nil
}

// Recent returns the feed entries exposed to the UI (most recent
// first, at most the configured display count).
func (s *Service) Recent(ctx context.Context) ([]domain.RecentEntry, error) {
	entries, err := s.repo.ReadRecentSlots(ctx, s.capacity)
	if err != nil {
		return nil, fmt.Errorf("read recent feed: %w", err)
	}
	if len(entries) > s.display {
		entries = entries[:s.display]
	}
	return entries, nil
}

// RefreshOnCreate inserts a new entry at the head of the buffer:
// an existing entry with the same dedup key is removed first, then the
// list is truncated to capacity and every slot rewritten.
func (s *Service) RefreshOnCreate(ctx context.Context, rev domain.Review, spiritName string) error {
	current, err := s.repo.ReadRecentSlots(ctx, s.capacity)
	if err != nil {
		return fmt.Errorf("read ring buffer: %w", err)
	}

	entry := domain.EntryOf(rev, spiritName)
	next := make([]domain.RecentEntry, 0, s.capacity)
	next = append(next, entry)
	for _, e := range current {
		if e.DedupKey() == entry.DedupKey() {
			continue
		}
		next = append(next, e)
		if len(next) == s.capacity {
			break
		}
	}

	if err := s.repo.WriteRecentSlots(ctx, next, s.capacity); err != nil {
		return fmt.Errorf("rewrite ring buffer: %w", err)
	}
	return nil
}

// RefreshOnDelete re-derives the buffer after a tracked review is
// deleted. The fresh top-K query is authoritative when it succeeds with
// results; a failed or suspiciously empty re-query falls back to the
// previous cached list minus the deleted entry, so a transient store
// error never visibly wipes the feed.
func (s *Service) RefreshOnDelete(ctx context.Context, deleted domain.Review) error {
	fresh, err := s.repo.Latest(ctx, s.capacity)
	if err == nil && len(fresh) > 0 {
		entries := make([]domain.RecentEntry, 0, s.capacity)
		for _, rev := range fresh {
			if rev.ID == deleted.ID {
				continue
			}
			entries = append(entries, s.entryFor(ctx, rev))
			if len(entries) == s.capacity {
				break
			}
		}
		if err := s.repo.WriteRecentSlots(ctx, entries, s.capacity); err != nil {
			return fmt.Errorf("rewrite ring buffer: %w", err)
		}
		return nil
	}

	if err != nil {
		s.logger.Warn("recent feed re-query failed, keeping cached entries", zap.Error(err))
	} else {
		s.logger.Warn("recent feed re-query returned no rows, keeping cached entries")
	}

	cached, readErr := s.repo.ReadRecentSlots(ctx, s.capacity)
	if readErr != nil {
		return fmt.Errorf("read cached ring buffer: %w", readErr)
	}

	kept := make([]domain.RecentEntry, 0, len(cached))
	for _, e := range cached {
		if e.ReviewID == deleted.ID {
			continue
		}
		kept = append(kept, e)
	}

	if err := s.repo.WriteRecentSlots(ctx, kept, s.capacity); err != nil {
		return fmt.Errorf("rewrite ring buffer from cache: %w", err)
	}
	return nil
}

// entryFor builds a feed entry, resolving the spirit name best-effort.
func (s *Service) entryFor(ctx context.Context, rev domain.Review) domain.RecentEntry {
	name := ""
	if sp, err := s.spirits.Get(ctx, rev.SpiritID); err == nil {
		name = sp.Name
	}
	return domain.EntryOf(rev, name)
}
