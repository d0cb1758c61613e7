// Package aggregate routes write events to the derived caches. It is
// the single consumer of the event dispatcher: rebuild failures here
// are logged and counted, never propagated back to the write that
// emitted the event.
package aggregate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kspirits/hub/internal/domain"
)

// ArrivalsRebuilder rebuilds the freshness cache.
type ArrivalsRebuilder interface {
	Rebuild(ctx context.Context) error
}

// FeedRefresher maintains the recent-reviews ring buffer.
type FeedRefresher interface {
	RefreshOnCreate(ctx context.Context, rev domain.Review, spiritName string) error
	RefreshOnDelete(ctx context.Context, deleted domain.Review) error
}

// Manager implements events.Handler.
type Manager struct {
	arrivals ArrivalsRebuilder
	feed     FeedRefresher
	logger   *zap.Logger
}

// NewManager creates the aggregation manager.
func NewManager(arrivals ArrivalsRebuilder, feed FeedRefresher, logger *zap.Logger) *Manager {
	return &Manager{arrivals: arrivals, feed: feed, logger: logger}
}

// HandleEvent dispatches one write event to the affected caches.
func (m *Manager) HandleEvent(ctx context.Context, ev domain.WriteEvent) error {
	switch ev.Kind {
	case domain.EventSpiritPublished, domain.EventSpiritDeleted:
		if err := m.arrivals.Rebuild(ctx); err != nil {
			return fmt.Errorf("freshness cache rebuild: %w", err)
		}
		return nil

	case domain.EventSpiritUpdated:
		// Non-publishing updates do not change what the cache shows.
		return nil

	case domain.EventReviewCreated:
		if ev.Review == nil {
			return fmt.Errorf("review event without review payload")
		}
		if err := m.feed.RefreshOnCreate(ctx, *ev.Review, ev.SpiritName); err != nil {
			return fmt.Errorf("recent feed refresh: %w", err)
		}
		return nil

	case domain.EventReviewDeleted:
		if ev.Review == nil {
			return fmt.Errorf("review event without review payload")
		}
		if err := m.feed.RefreshOnDelete(ctx, *ev.Review); err != nil {
			return fmt.Errorf("recent feed re-derive: %w", err)
		}
		return nil

	default:
		m.logger.Warn("unhandled write event", zap.String("kind", string(ev.Kind)))
		return nil
	}
}
