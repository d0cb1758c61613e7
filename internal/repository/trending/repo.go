package trending

import (
	"context"
	"fmt"
	"time"

	"github.com/kspirits/hub/internal/domain"
	"github.com/kspirits/hub/internal/firestore"
)

// store is the consumer interface for the document client (ISP).
type store interface {
	Increment(ctx context.Context, path string, deltas map[string]int64) error
	Patch(ctx context.Context, path string, fields map[string]firestore.Value) error
	RunQuery(ctx context.Context, parentPath string, q firestore.Query) ([]firestore.Document, error)
}

// Repo stores per-(day, spirit) engagement counters. One document per
// day per spirit, keyed "<date>_<spiritID>", incremented atomically via
// the store's field-transform primitive so concurrent events do not
// lose updates.
type Repo struct {
	store store
	paths domain.Paths
}

// New creates a trending repository.
func New(s store, paths domain.Paths) *Repo {
	return &Repo{store: s, paths: paths}
}

// LogEvent increments the day's counters for one action. The counter
// field and the weighted running total move in one atomic commit; the
// design counts each action event exactly once, there is no read-side
// dedup to compensate for replays.
func (r *Repo) LogEvent(ctx context.Context, spiritID string, action domain.Action, day time.Time) error {
	weight := domain.ActionWeight(action)
	if weight == 0 {
		return domain.ErrInvalidAction
	}

	date := domain.DayKey(day)
	path := fmt.Sprintf("%s/%s_%s", r.paths.Trending(), date, spiritID)

	// Stamp the identifying fields first; Patch creates the day
	// document on the first event and the mask leaves the counters
	// alone on every later one.
	stamp := map[string]firestore.Value{
		"date":     firestore.String(date),
		"spiritId": firestore.String(spiritID),
	}
	if err := r.store.Patch(ctx, path, stamp); err != nil {
		return fmt.Errorf("stamp trending day %s: %w", date, err)
	}

	deltas := map[string]int64{
		counterField(action): 1,
		"totalScore":         int64(weight),
	}
	if err := r.store.Increment(ctx, path, deltas); err != nil {
		return fmt.Errorf("log %s for %s: %w", action, spiritID, err)
	}
	return nil
}

// ReadDay returns every engagement record for one date bucket.
func (r *Repo) ReadDay(ctx context.Context, day time.Time) ([]domain.DailyRecord, error) {
	date := domain.DayKey(day)
	q := firestore.Query{
		Collection: r.paths.Trending(),
		Conditions: []firestore.Condition{
			{Field: "date", Value: firestore.String(date)},
		},
		OrderBy: "totalScore",
	}

	docs, err := r.store.RunQuery(ctx, "", q)
	if err != nil {
		return nil, fmt.Errorf("read trending day %s: %w", date, err)
	}

	records := make([]domain.DailyRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, recordFromDoc(d, date))
	}
	return records, nil
}

func counterField(a domain.Action) string {
	switch a {
	case domain.ActionView:
		return "views"
	case domain.ActionWishlist:
		return "wishlists"
	case domain.ActionCabinet:
		return "cabinets"
	case domain.ActionReview:
		return "reviews"
	default:
		return ""
	}
}

func recordFromDoc(doc firestore.Document, date string) domain.DailyRecord {
	f := doc.Fields
	rec := domain.DailyRecord{
		Date:       date,
		SpiritID:   getString(f, "spiritId"),
		Views:      getInt(f, "views"),
		Wishlists:  getInt(f, "wishlists"),
		Cabinets:   getInt(f, "cabinets"),
		Reviews:    getInt(f, "reviews"),
		TotalScore: getInt(f, "totalScore"),
	}
	if rec.SpiritID == "" {
		// Older documents predate the spiritId field; fall back to
		// the "<date>_<spiritID>" document key.
		id := doc.ID()
		if len(id) > len(date)+1 {
			rec.SpiritID = id[len(date)+1:]
		}
	}
	return rec
}

func getString(f map[string]firestore.Value, key string) string {
	s, _ := f[key].AsString()
	return s
}

func getInt(f map[string]firestore.Value, key string) int {
	n, _ := f[key].AsNumber()
	return int(n)
}
