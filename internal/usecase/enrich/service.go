// Package enrich advances a raw catalog record to ENRICHED by merging
// provider-generated fields into its metadata.
package enrich

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kspirits/hub/internal/domain"
	"github.com/kspirits/hub/internal/enrichment"
)

// Service orchestrates single-spirit enrichment.
type Service struct {
	catalog  Catalog
	provider Provider
	logger   *zap.Logger
}

// New creates an enrichment service.
func New(catalog Catalog, provider Provider, logger *zap.Logger) *Service {
	return &Service{catalog: catalog, provider: provider, logger: logger}
}

// Enrich generates fields for one spirit and persists them. Existing
// metadata keys the provider does not produce are preserved.
func (s *Service) Enrich(ctx context.Context, id string) (enrichment.Fields, error) {
	if s.provider == nil {
		return enrichment.Fields{}, domain.ErrEnrichmentUnavailable
	}

	sp, err := s.catalog.Get(ctx, id)
	if err != nil {
		return enrichment.Fields{}, err
	}

	fields, err := s.provider.Enrich(ctx, sp)
	if err != nil {
		return enrichment.Fields{}, err
	}

	metadata := make(map[string]any, len(sp.Metadata)+4)
	for k, v := range sp.Metadata {
		metadata[k] = v
	}
	metadata["translatedName"] = fields.TranslatedName
	metadata["description"] = fields.Description
	metadata["pairing"] = fields.Pairing
	metadata["flavorTags"] = fields.FlavorTags

	update := map[string]any{"metadata": metadata}
	if sp.Status == domain.StatusRaw {
		update["status"] = string(domain.StatusEnriched)
	}

	if err := s.catalog.Update(ctx, id, update); err != nil {
		return enrichment.Fields{}, fmt.Errorf("persist enrichment: %w", err)
	}

	s.logger.Info("spirit enriched", zap.String("spirit_id", id))
	return fields, nil
}
