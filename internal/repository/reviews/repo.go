package reviews

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kspirits/hub/internal/domain"
	"github.com/kspirits/hub/internal/firestore"
)

// store is the consumer interface for the document client (ISP).
type store interface {
	Get(ctx context.Context, path string) (firestore.Document, error)
	Create(ctx context.Context, collection, documentID string, fields map[string]firestore.Value) (firestore.Document, error)
	Patch(ctx context.Context, path string, fields map[string]firestore.Value) error
	Delete(ctx context.Context, path string) error
	RunQuery(ctx context.Context, parentPath string, q firestore.Query) ([]firestore.Document, error)
}

// Repo stores reviews and the recent-reviews slot documents.
type Repo struct {
	store  store
	paths  domain.Paths
	now    func() time.Time
	logger *zap.Logger
}

// New creates a reviews repository.
func New(s store, paths domain.Paths, logger *zap.Logger) *Repo {
	return &Repo{store: s, paths: paths, now: time.Now, logger: logger}
}

// Create stores a new review and returns it with its assigned ID.
func (r *Repo) Create(ctx context.Context, rev domain.Review) (domain.Review, error) {
	if rev.ID == "" {
		rev.ID = uuid.NewString()
	}
	now := r.now().UTC()
	rev.CreatedAt = now
	rev.UpdatedAt = now

	fields := firestore.EncodeFields(map[string]any{
		"spiritId":  rev.SpiritID,
		"userId":    rev.UserID,
		"userName":  rev.UserName,
		"rating":    rev.Rating,
		"title":     rev.Title,
		"content":   rev.Content,
		"nose":      rev.Nose,
		"palate":    rev.Palate,
		"finish":    rev.Finish,
		"isPublic":  rev.IsPublic,
		"createdAt": rev.CreatedAt,
		"updatedAt": rev.UpdatedAt,
	})

	if _, err := r.store.Create(ctx, r.paths.Reviews(), rev.ID, fields); err != nil {
		return domain.Review{}, fmt.Errorf("create review: %w", err)
	}
	return rev, nil
}

// Delete removes a review.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, r.paths.Reviews()+"/"+id); err != nil {
		return fmt.Errorf("delete review %s: %w", id, err)
	}
	return nil
}

// Latest returns the n most recent public reviews, newest first.
// parentPath scopes the query into the artifacts namespace the reviews
// collection lives under.
func (r *Repo) Latest(ctx context.Context, n int) ([]domain.Review, error) {
	parent, collection := splitPath(r.paths.Reviews())
	q := firestore.Query{
		Collection: collection,
		Conditions: []firestore.Condition{
			{Field: "isPublic", Value: firestore.Boolean(true)},
		},
		OrderBy: "createdAt",
		Limit:   n,
	}

	docs, err := r.store.RunQuery(ctx, parent, q)
	if err != nil {
		return nil, fmt.Errorf("latest reviews: %w", err)
	}

	out := make([]domain.Review, 0, len(docs))
	for _, d := range docs {
		out = append(out, reviewFromDoc(d))
	}
	return out, nil
}

// ReadRecentSlots reads the ring buffer, slot order ascending. Missing
// slots end the scan; the buffer is written contiguously from slot 0.
func (r *Repo) ReadRecentSlots(ctx context.Context, capacity int) ([]domain.RecentEntry, error) {
	entries := make([]domain.RecentEntry, 0, capacity)
	for i := 0; i < capacity; i++ {
		doc, err := r.store.Get(ctx, r.slotPath(i))
		if err != nil {
			if firestore.IsNotFound(err) {
				break
			}
			return nil, fmt.Errorf("read recent slot %d: %w", i, err)
		}
		entries = append(entries, entryFromDoc(doc))
	}
	return entries, nil
}

// WriteRecentSlots overwrites slots 0..len(entries)-1 and deletes any
// remaining slots up to capacity, so a shrinking buffer leaves no
// stale tail. Slot writes and tail deletes are independent calls
// awaited together: one failing slot is logged and does not skip its
// siblings or the cleanup. The returned error only summarizes how many
// slots failed.
func (r *Repo) WriteRecentSlots(ctx context.Context, entries []domain.RecentEntry, capacity int) error {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var failed int

	for i, e := range entries {
		wg.Add(1)
		go func(i int, e domain.RecentEntry) {
			defer wg.Done()
			fields := firestore.EncodeFields(map[string]any{
				"reviewId":   e.ReviewID,
				"spiritId":   e.SpiritID,
				"spiritName": e.SpiritName,
				"userId":     e.UserID,
				"userName":   e.UserName,
				"rating":     e.Rating,
				"title":      e.Title,
				"createdAt":  e.CreatedAt,
			})
			if err := r.store.Patch(ctx, r.slotPath(i), fields); err != nil {
				r.logger.Warn("write recent slot failed",
					zap.Int("slot", i), zap.Error(err))
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(i, e)
	}

	for i := len(entries); i < capacity; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := r.store.Delete(ctx, r.slotPath(i)); err != nil {
				r.logger.Warn("clear recent slot failed",
					zap.Int("slot", i), zap.Error(err))
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if failed > 0 {
		return fmt.Errorf("%d of %d recent slot writes failed", failed, capacity)
	}
	return nil
}

func (r *Repo) slotPath(i int) string {
	return r.paths.RecentReviews() + "/slot-" + strconv.Itoa(i)
}

func reviewFromDoc(doc firestore.Document) domain.Review {
	f := doc.Fields
	return domain.Review{
		ID:        doc.ID(),
		SpiritID:  getString(f, "spiritId"),
		UserID:    getString(f, "userId"),
		UserName:  getString(f, "userName"),
		Rating:    int(getNumber(f, "rating")),
		Title:     getString(f, "title"),
		Content:   getString(f, "content"),
		Nose:      getString(f, "nose"),
		Palate:    getString(f, "palate"),
		Finish:    getString(f, "finish"),
		IsPublic:  getBool(f, "isPublic"),
		CreatedAt: getTime(f, "createdAt"),
		UpdatedAt: getTime(f, "updatedAt"),
	}
}

func entryFromDoc(doc firestore.Document) domain.RecentEntry {
	f := doc.Fields
	return domain.RecentEntry{
		ReviewID:   getString(f, "reviewId"),
		SpiritID:   getString(f, "spiritId"),
		SpiritName: getString(f, "spiritName"),
		UserID:     getString(f, "userId"),
		UserName:   getString(f, "userName"),
		Rating:     int(getNumber(f, "rating")),
		Title:      getString(f, "title"),
		CreatedAt:  getTime(f, "createdAt"),
	}
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

// splitPath separates a nested collection path into the parent document
// path and the final collection ID.
func splitPath(path string) (parent, collection string) {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i], path[i+1:]
		}
	}
	return "", path
}
