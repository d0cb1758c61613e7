package enrich

import (
	"context"

	"github.com/kspirits/hub/internal/domain"
	"github.com/kspirits/hub/internal/enrichment"
)

// Catalog is the slice of the catalog service this use case needs.
type Catalog interface {
	Get(ctx context.Context, id string) (domain.Spirit, error)
	Update(ctx context.Context, id string, fields map[string]any) error
}

// Provider produces enrichment fields for a spirit.
type Provider interface {
	Enrich(ctx context.Context, sp domain.Spirit) (enrichment.Fields, error)
}
