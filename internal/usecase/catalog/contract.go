package catalog

import (
	"context"

	"github.com/kspirits/hub/internal/domain"
)

// Repository defines the storage contract for spirits.
type Repository interface {
	Get(ctx context.Context, id string) (domain.Spirit, error)
	Query(ctx context.Context, f domain.SpiritFilter, p domain.Pagination) ([]domain.Spirit, error)
	Create(ctx context.Context, s domain.Spirit) (domain.Spirit, error)
	Upsert(ctx context.Context, id string, fields map[string]any) error
	Delete(ctx context.Context, ids []string) (failed []string)
	GetByIDs(ctx context.Context, ids []string) []domain.Spirit
}

// Publisher emits write events toward the aggregation manager.
type Publisher interface {
	Publish(ev domain.WriteEvent)
}
