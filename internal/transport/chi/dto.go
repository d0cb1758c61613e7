package chi

import (
	"time"

	"github.com/kspirits/hub/internal/domain"
	"github.com/kspirits/hub/internal/enrichment"
)

type errorCode string

const (
	codeBadRequest            errorCode = "bad_request"
	codeValidationFailed      errorCode = "validation_failed"
	codeSpiritNotFound        errorCode = "spirit_not_found"
	codeNotFound              errorCode = "not_found"
	codeEnrichmentUnavailable errorCode = "enrichment_unavailable"
	codeInternalError         errorCode = "internal_error"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

type spiritResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Distillery  string  `json:"distillery,omitempty"`
	Bottler     string  `json:"bottler,omitempty"`
	ABV         float64 `json:"abv,omitempty"`
	Volume      float64 `json:"volume,omitempty"`
	Category    string  `json:"category,omitempty"`
	Subcategory string  `json:"subcategory,omitempty"`
	Country     string  `json:"country,omitempty"`
	Region      string  `json:"region,omitempty"`

	ImageURL     string `json:"imageUrl,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`

	Source     string `json:"source,omitempty"`
	ExternalID string `json:"externalId,omitempty"`

	Status      string     `json:"status"`
	IsPublished bool       `json:"isPublished"`
	IsReviewed  bool       `json:"isReviewed"`
	ReviewedBy  string     `json:"reviewedBy,omitempty"`
	ReviewedAt  *time.Time `json:"reviewedAt,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func spiritToDTO(s domain.Spirit) spiritResponse {
	resp := spiritResponse{
		ID:           s.ID,
		Name:         s.Name,
		Distillery:   s.Distillery,
		Bottler:      s.Bottler,
		ABV:          s.ABV,
		Volume:       s.Volume,
		Category:     s.Category,
		Subcategory:  s.Subcategory,
		Country:      s.Country,
		Region:       s.Region,
		ImageURL:     s.ImageURL,
		ThumbnailURL: s.ThumbnailURL,
		Source:       s.Source,
		ExternalID:   s.ExternalID,
		Status:       string(s.Status),
		IsPublished:  s.IsPublished,
		IsReviewed:   s.IsReviewed,
		ReviewedBy:   s.ReviewedBy,
		Metadata:     s.Metadata,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
	if !s.ReviewedAt.IsZero() {
		t := s.ReviewedAt
		resp.ReviewedAt = &t
	}
	return resp
}

type createSpiritRequest struct {
	Name        string  `json:"name"`
	Distillery  string  `json:"distillery"`
	Bottler     string  `json:"bottler"`
	ABV         float64 `json:"abv"`
	Volume      float64 `json:"volume"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	Country     string  `json:"country"`
	Region      string  `json:"region"`

	ImageURL     string `json:"imageUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`

	Source     string `json:"source"`
	ExternalID string `json:"externalId"`

	Status      string `json:"status"`
	IsPublished bool   `json:"isPublished"`

	Metadata map[string]any `json:"metadata"`
}

func (r createSpiritRequest) toDomain() domain.Spirit {
	return domain.Spirit{
		Name:         r.Name,
		Distillery:   r.Distillery,
		Bottler:      r.Bottler,
		ABV:          r.ABV,
		Volume:       r.Volume,
		Category:     r.Category,
		Subcategory:  r.Subcategory,
		Country:      r.Country,
		Region:       r.Region,
		ImageURL:     r.ImageURL,
		ThumbnailURL: r.ThumbnailURL,
		Source:       r.Source,
		ExternalID:   r.ExternalID,
		Status:       domain.Status(r.Status),
		IsPublished:  r.IsPublished,
		Metadata:     r.Metadata,
	}
}

type spiritPageResponse struct {
	Items             []spiritResponse `json:"items"`
	Page              int              `json:"page"`
	PageSize          int              `json:"pageSize"`
	Total             int              `json:"total"`
	TotalIsLowerBound bool             `json:"totalIsLowerBound,omitempty"`
}

type deleteSpiritsRequest struct {
	IDs []string `json:"ids"`
}

type deleteSpiritsResponse struct {
	Requested int `json:"requested"`
	Failed    int `json:"failed"`
}

type createReviewRequest struct {
	SpiritID string `json:"spiritId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Rating   int    `json:"rating"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Nose     string `json:"nose"`
	Palate   string `json:"palate"`
	Finish   string `json:"finish"`
	IsPublic *bool  `json:"isPublic"`
}

func (r createReviewRequest) toDomain() domain.Review {
	isPublic := true
	if r.IsPublic != nil {
		isPublic = *r.IsPublic
	}
	return domain.Review{
		SpiritID: r.SpiritID,
		UserID:   r.UserID,
		UserName: r.UserName,
		Rating:   r.Rating,
		Title:    r.Title,
		Content:  r.Content,
		Nose:     r.Nose,
		Palate:   r.Palate,
		Finish:   r.Finish,
		IsPublic: isPublic,
	}
}

type reviewResponse struct {
	ID        string    `json:"id"`
	SpiritID  string    `json:"spiritId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName,omitempty"`
	Rating    int       `json:"rating"`
	Title     string    `json:"title,omitempty"`
	Content   string    `json:"content,omitempty"`
	Nose      string    `json:"nose,omitempty"`
	Palate    string    `json:"palate,omitempty"`
	Finish    string    `json:"finish,omitempty"`
	IsPublic  bool      `json:"isPublic"`
	CreatedAt time.Time `json:"createdAt"`
}

func reviewToDTO(r domain.Review) reviewResponse {
	return reviewResponse{
		ID:        r.ID,
		SpiritID:  r.SpiritID,
		UserID:    r.UserID,
		UserName:  r.UserName,
		Rating:    r.Rating,
		Title:     r.Title,
		Content:   r.Content,
		Nose:      r.Nose,
		Palate:    r.Palate,
		Finish:    r.Finish,
		IsPublic:  r.IsPublic,
		CreatedAt: r.CreatedAt,
	}
}

type deleteReviewRequest struct {
	SpiritID string `json:"spiritId"`
	UserID   string `json:"userId"`
}

type recentEntryResponse struct {
	ReviewID   string    `json:"reviewId"`
	SpiritID   string    `json:"spiritId"`
	SpiritName string    `json:"spiritName"`
	UserID     string    `json:"userId"`
	UserName   string    `json:"userName,omitempty"`
	Rating     int       `json:"rating"`
	Title      string    `json:"title,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func recentEntryToDTO(e domain.RecentEntry) recentEntryResponse {
	return recentEntryResponse{
		ReviewID:   e.ReviewID,
		SpiritID:   e.SpiritID,
		SpiritName: e.SpiritName,
		UserID:     e.UserID,
		UserName:   e.UserName,
		Rating:     e.Rating,
		Title:      e.Title,
		CreatedAt:  e.CreatedAt,
	}
}

type arrivalCardResponse struct {
	SpiritID     string    `json:"spiritId"`
	Name         string    `json:"name"`
	Category     string    `json:"category,omitempty"`
	Subcategory  string    `json:"subcategory,omitempty"`
	Country      string    `json:"country,omitempty"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func arrivalCardToDTO(c domain.ArrivalCard) arrivalCardResponse {
	return arrivalCardResponse{
		SpiritID:     c.SpiritID,
		Name:         c.Name,
		Category:     c.Category,
		Subcategory:  c.Subcategory,
		Country:      c.Country,
		ThumbnailURL: c.ThumbnailURL,
		UpdatedAt:    c.UpdatedAt,
	}
}

type logEventRequest struct {
	SpiritID string `json:"spiritId"`
	Action   string `json:"action"`
}

type trendingItemResponse struct {
	Spirit    *spiritResponse `json:"spirit,omitempty"`
	SpiritID  string          `json:"spiritId"`
	Score     float64         `json:"score"`
	Views     int             `json:"views"`
	Wishlists int             `json:"wishlists"`
	Cabinets  int             `json:"cabinets"`
	Reviews   int             `json:"reviews"`
}

type enrichResponse struct {
	SpiritID       string   `json:"spiritId"`
	TranslatedName string   `json:"translatedName"`
	Description    string   `json:"description"`
	Pairing        string   `json:"pairing"`
	FlavorTags     []string `json:"flavorTags"`
}

func enrichToDTO(id string, f enrichment.Fields) enrichResponse {
	return enrichResponse{
		SpiritID:       id,
		TranslatedName: f.TranslatedName,
		Description:    f.Description,
		Pairing:        f.Pairing,
		FlavorTags:     f.FlavorTags,
	}
}
