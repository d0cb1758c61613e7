package domain

import "fmt"

// Collection path layout mirrors the existing Firestore deployment:
// spirits and the derived caches live at the root, reviews live under
// the artifacts/{appID}/public/data namespace.
type Paths struct {
	appID string
}

// NewPaths creates the path scheme for an app namespace.
func NewPaths(appID string) Paths {
	return Paths{appID: appID}
}

// Spirits returns the spirits collection path.
func (Paths) Spirits() string { return "spirits" }

// Trending returns the per-day engagement collection path.
func (Paths) Trending() string { return "trending_daily" }

// Arrivals returns the freshness-cache collection path.
func (Paths) Arrivals() string { return "new_arrivals" }

// RecentReviews returns the ring-buffer collection path.
func (Paths) RecentReviews() string { return "recent_reviews" }

// Reviews returns the public reviews collection path.
func (p Paths) Reviews() string {
	return fmt.Sprintf("artifacts/%s/public/data/reviews", p.appID)
}
