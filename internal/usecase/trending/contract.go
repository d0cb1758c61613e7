package trending

import (
	"context"
	"time"

	"github.com/kspirits/hub/internal/domain"
)

// Repository defines the storage contract for engagement counters.
type Repository interface {
	LogEvent(ctx context.Context, spiritID string, action domain.Action, day time.Time) error
	ReadDay(ctx context.Context, day time.Time) ([]domain.DailyRecord, error)
}

// SpiritReader resolves trending IDs into full catalog records.
type SpiritReader interface {
	GetByIDs(ctx context.Context, ids []string) []domain.Spirit
}
