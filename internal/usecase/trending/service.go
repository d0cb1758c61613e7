package trending

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kspirits/hub/internal/domain"
	"github.com/kspirits/hub/internal/metrics"
)

// decayFactor multiplies each day bucket's score by 0.7^age, so recent
// activity dominates the ranking.
const decayFactor = 0.7

// windowDays is the rolling window the reader touches.
const windowDays = 7

// minDaysScanned keeps the early-stop optimization from ranking on a
// single day of data.
const minDaysScanned = 2

// Service computes decayed trending scores over daily counters.
type Service struct {
	repo    Repository
	spirits SpiritReader
	now     func() time.Time
	logger  *zap.Logger
}

// New creates a trending service.
func New(repo Repository, spirits SpiritReader, logger *zap.Logger) *Service {
	return &Service{repo: repo, spirits: spirits, now: time.Now, logger: logger}
}

// Log records one engagement event against today's bucket.
func (s *Service) Log(ctx context.Context, spiritID string, action domain.Action) error {
	if spiritID == "" {
		return fmt.Errorf("spirit id is required: %w", domain.ErrInvalidAction)
	}
	if !domain.ValidAction(action) {
		return fmt.Errorf("unknown action %q: %w", action, domain.ErrInvalidAction)
	}

	if err := s.repo.LogEvent(ctx, spiritID, action, s.now()); err != nil {
		return fmt.Errorf("log trending event: %w", err)
	}
	metrics.TrendingEventsTotal.WithLabelValues(string(action)).Inc()
	return nil
}

// Top returns the n highest decayed-score spirits. It folds the last
// windowDays of counters, newest first, decaying each day's totalScore
// by 0.7^offset and summing the raw counters for display. The scan
// stops early once at least n distinct spirits have scores and at
// least minDaysScanned days were read, trading perfect accuracy for
// fewer reads.
func (s *Service) Top(ctx context.Context, n int) ([]domain.TrendingItem, error) {
	if n <= 0 {
		n = 5
	}

	scores := make(map[string]*domain.TrendingItem)
	today := s.now()

	for d := 0; d < windowDays; d++ {
		if len(scores) >= n && d >= minDaysScanned {
			break
		}

		records, err := s.repo.ReadDay(ctx, today.AddDate(0, 0, -d))
		if err != nil {
			// One unreadable day degrades the ranking, it does not
			// fail it.
			s.logger.Warn("trending day read failed",
				zap.Int("day_offset", d), zap.Error(err))
			continue
		}

		decay := math.Pow(decayFactor, float64(d))
		for _, rec := range records {
			item, ok := scores[rec.SpiritID]
			if !ok {
				item = &domain.TrendingItem{SpiritID: rec.SpiritID}
				scores[rec.SpiritID] = item
			}
			item.Score += decay * float64(rec.TotalScore)
			item.Stats.Views += rec.Views
			item.Stats.Wishlists += rec.Wishlists
			item.Stats.Cabinets += rec.Cabinets
			item.Stats.Reviews += rec.Reviews
		}
	}

	items := make([]domain.TrendingItem, 0, len(scores))
	for _, item := range scores {
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Score > items[j].Score })

	if len(items) > n {
		items = items[:n]
	}
	return items, nil
}

// TopSpirits resolves the top-n ranking into full catalog records,
// ordered by decayed score descending. Spirits that fail to resolve
// (deleted since the events were logged) are dropped.
func (s *Service) TopSpirits(ctx context.Context, n int) ([]domain.Spirit, []domain.TrendingItem, error) {
	items, err := s.Top(ctx, n)
	if err != nil {
		return nil, nil, err
	}
	if len(items) == 0 {
		return nil, nil, nil
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.SpiritID
	}
	return s.spirits.GetByIDs(ctx, ids), items, nil
}
