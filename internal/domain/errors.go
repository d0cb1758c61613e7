package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrSpiritNotFound signals a missing spirit document.
	ErrSpiritNotFound = errors.New("spirit not found")
	// ErrInvalidFilter signals an unsupported filter combination.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrInvalidAction signals an unrecognized engagement action.
	ErrInvalidAction = errors.New("invalid engagement action")
	// ErrInvalidReview signals a review that fails validation.
	ErrInvalidReview = errors.New("invalid review")
	// ErrEnrichmentUnavailable signals a failed or malformed enrichment response.
	ErrEnrichmentUnavailable = errors.New("enrichment unavailable")
)
