package domain

import "time"

// Action is a user engagement event against a spirit.
type Action string

const (
	ActionView     Action = "view"
	ActionWishlist Action = "wishlist"
	ActionCabinet  Action = "cabinet"
	ActionReview   Action = "review"
)

// ActionWeight returns the business weight of an action, or 0 for an
// unknown action. Weights are fixed by product, not derived.
func ActionWeight(a Action) int {
	switch a {
	case ActionView:
		return 1
	case ActionWishlist:
		return 5
	case ActionCabinet:
		return 10
	case ActionReview:
		return 20
	default:
		return 0
	}
}

// ValidAction reports whether a is a recognized engagement action.
func ValidAction(a Action) bool {
	return ActionWeight(a) > 0
}

// DailyRecord is the per-(day, spirit) engagement counter document.
type DailyRecord struct {
	SpiritID   string
	Date       string // YYYY-MM-DD
	Views      int
	Wishlists  int
	Cabinets   int
	Reviews    int
	TotalScore int
}

// TrendingItem is one entry of the decayed top-N.
type TrendingItem struct {
	SpiritID string
	Score    float64
	Stats    TrendingStats
}

// TrendingStats are the raw (undecayed) per-action counters accumulated
// over the scanned window, kept for display.
type TrendingStats struct {
	Views     int
	Wishlists int
	Cabinets  int
	Reviews   int
}

// DayKey formats a time as the trending bucket date in UTC.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
