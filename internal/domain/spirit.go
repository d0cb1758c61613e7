package domain

import "time"

// Status is the curation state of a spirit record.
type Status string

const (
	StatusRaw       Status = "RAW"       // ingested, untouched
	StatusEnriched  Status = "ENRICHED"  // LLM fields filled in
	StatusReviewed  Status = "REVIEWED"  // checked by an admin
	StatusPublished Status = "PUBLISHED" // visible in the catalog
)

// Spirit is a catalog record for a single bottling.
type Spirit struct {
	ID          string
	Name        string
	Distillery  string
	Bottler     string
	ABV         float64
	Volume      float64
	Category    string // whisky, gin, rum, ...
	Subcategory string // single malt, london dry, ...
	Country     string
	Region      string

	ImageURL     string
	ThumbnailURL string

	Source     string
	ExternalID string

	Status      Status
	IsPublished bool
	IsReviewed  bool
	ReviewedBy  string
	ReviewedAt  time.Time

	// Metadata is a free-form bag (translated names, pairing notes,
	// flavor tags) filled by the enrichment layer.
	Metadata map[string]any

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Published reports whether the record is live in the catalog.
func (s Spirit) Published() bool {
	return s.IsPublished || s.Status == StatusPublished
}

// ArrivalCard is the minified projection stored in the freshness cache.
// Heavy fields (metadata, review audit trail) are deliberately absent.
type ArrivalCard struct {
	SpiritID     string
	Name         string
	Category     string
	Subcategory  string
	Country      string
	ThumbnailURL string
	UpdatedAt    time.Time
}

// CardOf projects a spirit onto its freshness-cache representation.
func CardOf(s Spirit) ArrivalCard {
	return ArrivalCard{
		SpiritID:     s.ID,
		Name:         s.Name,
		Category:     s.Category,
		Subcategory:  s.Subcategory,
		Country:      s.Country,
		ThumbnailURL: s.ThumbnailURL,
		UpdatedAt:    s.UpdatedAt,
	}
}
