package catalog

import (
	"time"

	"github.com/kspirits/hub/internal/domain"
	"github.com/kspirits/hub/internal/firestore"
)

// spiritFromDoc maps a wire document onto the domain record. Absent
// fields decode to zero values; false and "" are preserved literally.
func spiritFromDoc(doc firestore.Document) domain.Spirit {
	f := doc.Fields
	return domain.Spirit{
		ID:           doc.ID(),
		Name:         getString(f, "name"),
		Distillery:   getString(f, "distillery"),
		Bottler:      getString(f, "bottler"),
		ABV:          getNumber(f, "abv"),
		Volume:       getNumber(f, "volume"),
		Category:     getString(f, "category"),
		Subcategory:  getString(f, "subcategory"),
		Country:      getString(f, "country"),
		Region:       getString(f, "region"),
		ImageURL:     getString(f, "imageUrl"),
		ThumbnailURL: getString(f, "thumbnailUrl"),
		Source:       getString(f, "source"),
		ExternalID:   getString(f, "externalId"),
		Status:       domain.Status(getString(f, "status")),
		IsPublished:  getBool(f, "isPublished"),
		IsReviewed:   getBool(f, "isReviewed"),
		ReviewedBy:   getString(f, "reviewedBy"),
		ReviewedAt:   getTime(f, "reviewedAt"),
		Metadata:     getMetadata(f, "metadata"),
		CreatedAt:    getTime(f, "createdAt"),
		UpdatedAt:    getTime(f, "updatedAt"),
	}
}

// spiritFields encodes a full record for creation. Zero-valued optional
// strings are still written; the create path owns the whole document.
func spiritFields(s domain.Spirit, now time.Time) map[string]any {
	fields := map[string]any{
		"name":         s.Name,
		"distillery":   s.Distillery,
		"bottler":      s.Bottler,
		"abv":          s.ABV,
		"volume":       s.Volume,
		"category":     s.Category,
		"subcategory":  s.Subcategory,
		"country":      s.Country,
		"region":       s.Region,
		"imageUrl":     s.ImageURL,
		"thumbnailUrl": s.ThumbnailURL,
		"source":       s.Source,
		"externalId":   s.ExternalID,
		"status":       string(s.Status),
		"isPublished":  s.IsPublished,
		"isReviewed":   s.IsReviewed,
		"createdAt":    now,
		"updatedAt":    now,
	}
	if s.ReviewedBy != "" {
		fields["reviewedBy"] = s.ReviewedBy
	}
	if !s.ReviewedAt.IsZero() {
		fields["reviewedAt"] = s.ReviewedAt
	}
	if len(s.Metadata) > 0 {
		fields["metadata"] = s.Metadata
	}
	return fields
}

func getString(f map[string]firestore.Value, key string) string {
	s, _ := f[key].AsString()
	return s
}

func getNumber(f map[string]firestore.Value, key string) float64 {
	n, _ := f[key].AsNumber()
	return n
}

func getBool(f map[string]firestore.Value, key string) bool {
	b, _ := f[key].AsBool()
	return b
}

func getTime(f map[string]firestore.Value, key string) time.Time {
	t, _ := f[key].AsTime()
	return t
}

// getMetadata decodes the metadata bag one level deep (the hot path).
func getMetadata(f map[string]firestore.Value, key string) map[string]any {
	v, ok := f[key]
	if !ok {
		return nil
	}
	if _, isMap := v.AsMap(); !isMap {
		return nil
	}
	shallow := firestore.DecodeFieldsShallow(map[string]firestore.Value{key: v})
	md, _ := shallow[key].(map[string]any)
	return md
}
