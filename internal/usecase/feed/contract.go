package feed

import (
	"context"

	"github.com/kspirits/hub/internal/domain"
)

// Repository defines the storage contract for reviews and the
// recent-reviews ring buffer.
type Repository interface {
	Create(ctx context.Context, rev domain.Review) (domain.Review, error)
	Delete(ctx context.Context, id string) error
	Latest(ctx context.Context, n int) ([]domain.Review, error)
	ReadRecentSlots(ctx context.Context, capacity int) ([]domain.RecentEntry, error)
	WriteRecentSlots(ctx context.Context, entries []domain.RecentEntry, capacity int) error
}

// SpiritReader resolves the spirit a review is about.
type SpiritReader interface {
	Get(ctx context.Context, id string) (domain.Spirit, error)
}

// Publisher emits write events toward the aggregation manager.
type Publisher interface {
	Publish(ev domain.WriteEvent)
}
