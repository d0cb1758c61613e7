package arrivals

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kspirits/hub/internal/domain"
	"github.com/kspirits/hub/internal/firestore"
)

// store is the consumer interface for the document client (ISP).
type store interface {
	Get(ctx context.Context, path string) (firestore.Document, error)
	Patch(ctx context.Context, path string, fields map[string]firestore.Value) error
	Delete(ctx context.Context, path string) error
}

// Repo stores the freshness cache: slots 0..N-1 holding a minified
// projection of the most recently published spirits.
type Repo struct {
	store  store
	paths  domain.Paths
	size   int
	logger *zap.Logger
}

// New creates an arrivals repository with a fixed slot count.
func New(s store, paths domain.Paths, size int, logger *zap.Logger) *Repo {
	if size <= 0 {
		size = 10
	}
	return &Repo{store: s, paths: paths, size: size, logger: logger}
}

// Size returns the slot count.
func (r *Repo) Size() int { return r.size }

// ReadAll returns the cached cards in slot order. A missing slot ends
// the scan; slots are written contiguously from 0.
func (r *Repo) ReadAll(ctx context.Context) ([]domain.ArrivalCard, error) {
	cards := make([]domain.ArrivalCard, 0, r.size)
	for i := 0; i < r.size; i++ {
		doc, err := r.store.Get(ctx, r.slotPath(i))
		if err != nil {
			if firestore.IsNotFound(err) {
				break
			}
			return nil, fmt.Errorf("read arrivals slot %d: %w", i, err)
		}
		cards = append(cards, cardFromDoc(doc))
	}
	return cards, nil
}

// WriteSlots overwrites slots 0..len(cards)-1 and deletes the stale
// tail up to the slot count, so a rebuild that returns fewer items than
// before never leaves old cards visible. Every slot write and tail
// delete is an independent call awaited together: one failing slot is
// logged and does not skip its siblings or the tail cleanup. The
// returned error only summarizes how many slots failed.
func (r *Repo) WriteSlots(ctx context.Context, cards []domain.ArrivalCard) error {
	if len(cards) > r.size {
		cards = cards[:r.size]
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var failed int

	for i, c := range cards {
		wg.Add(1)
		go func(i int, c domain.ArrivalCard) {
			defer wg.Done()
			fields := firestore.EncodeFields(map[string]any{
				"spiritId":     c.SpiritID,
				"name":         c.Name,
				"category":     c.Category,
				"subcategory":  c.Subcategory,
				"country":      c.Country,
				"thumbnailUrl": c.ThumbnailURL,
				"updatedAt":    c.UpdatedAt,
			})
			if err := r.store.Patch(ctx, r.slotPath(i), fields); err != nil {
				r.logger.Warn("write arrivals slot failed",
					zap.Int("slot", i), zap.Error(err))
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(i, c)
	}

	for i := len(cards); i < r.size; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := r.store.Delete(ctx, r.slotPath(i)); err != nil {
				r.logger.Warn("clear arrivals slot failed",
					zap.Int("slot", i), zap.Error(err))
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if failed > 0 {
		return fmt.Errorf("%d of %d arrivals slot writes failed", failed, r.size)
	}
	return nil
}

func (r *Repo) slotPath(i int) string {
	return r.paths.Arrivals() + "/slot-" + strconv.Itoa(i)
}

func cardFromDoc(doc firestore.Document) domain.ArrivalCard {
	f := doc.Fields
	return domain.ArrivalCard{
		SpiritID:     getString(f, "spiritId"),
		Name:         getString(f, "name"),
		Category:     getString(f, "category"),
		Subcategory:  getString(f, "subcategory"),
		Country:      getString(f, "country"),
		ThumbnailURL: getString(f, "thumbnailUrl"),
		UpdatedAt:    getTime(f, "updatedAt"),
	}
}

func getString(f map[string]firestore.Value, key string) string {
	s, _ := f[key].AsString()
	return s
}

func getTime(f map[string]firestore.Value, key string) time.Time {
	t, _ := f[key].AsTime()
	return t
}
