package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

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

// Repo implements usecase/catalog.Repository over the spirits collection.
type Repo struct {
	store   store
	paths   domain.Paths
	maxScan int
	now     func() time.Time
	logger  *zap.Logger
}

// New creates a catalog repository. maxScan bounds the full-scan
// fallback for filters the store cannot evaluate server-side.
func New(s store, paths domain.Paths, maxScan int, logger *zap.Logger) *Repo {
	if maxScan <= 0 {
		maxScan = 5000
	}
	return &Repo{store: s, paths: paths, maxScan: maxScan, now: time.Now, logger: logger}
}

// Get returns a spirit by ID.
func (r *Repo) Get(ctx context.Context, id string) (domain.Spirit, error) {
	doc, err := r.store.Get(ctx, r.docPath(id))
	if err != nil {
		if firestore.IsNotFound(err) {
			return domain.Spirit{}, domain.ErrSpiritNotFound
		}
		return domain.Spirit{}, fmt.Errorf("get spirit %s: %w", id, err)
	}
	return spiritFromDoc(doc), nil
}

// Query returns one ordered page of spirits. Filters the store cannot
// express fall back to a bounded scan with in-memory filtering.
func (r *Repo) Query(ctx context.Context, f domain.SpiritFilter, p domain.Pagination) ([]domain.Spirit, error) {
	q, err := r.compileFilter(f, p)
	if err == nil {
		docs, qerr := r.store.RunQuery(ctx, "", q)
		if qerr != nil {
			return nil, fmt.Errorf("query spirits: %w", qerr)
		}
		return mapDocs(docs), nil
	}
	if !errors.Is(err, firestore.ErrScanRequired) {
		return nil, err
	}
	return r.scanAndFilter(ctx, f, p)
}

// compileFilter translates the domain filter into a structured query.
// ErrScanRequired is returned for predicates with no server-side form.
func (r *Repo) compileFilter(f domain.SpiritFilter, p domain.Pagination) (firestore.Query, error) {
	if f.NeedsScan() {
		return firestore.Query{}, firestore.ErrScanRequired
	}

	q := firestore.Query{
		Collection: r.paths.Spirits(),
		Limit:      p.PageSize,
		Offset:     p.Offset(),
	}
	if f.Status != "" {
		q.Conditions = append(q.Conditions, firestore.Condition{
			Field: "status", Value: firestore.String(string(f.Status)),
		})
	}
	if f.Country != "" {
		q.Conditions = append(q.Conditions, firestore.Condition{
			Field: "country", Value: firestore.String(f.Country),
		})
	}
	if f.Distillery != "" {
		q.Conditions = append(q.Conditions, firestore.Condition{
			Field: "distillery", Value: firestore.String(f.Distillery),
		})
	}
	if f.Subcategory != "" {
		q.Conditions = append(q.Conditions, firestore.Condition{
			Field: "subcategory", Value: firestore.String(f.Subcategory),
		})
	}
	if f.Category != "" {
		// Legacy two-tier taxonomy: a category term matches either
		// the category or the subcategory field.
		q.Alias = &firestore.AliasGroup{
			Fields: [2]string{"category", "subcategory"},
			Value:  firestore.String(f.Category),
		}
	}
	return q, nil
}

// scanAndFilter fetches up to maxScan documents (pushing down what it
// can) and evaluates the remaining predicates in memory.
func (r *Repo) scanAndFilter(ctx context.Context, f domain.SpiritFilter, p domain.Pagination) ([]domain.Spirit, error) {
	pushdown := f
	pushdown.SearchTerm = ""
	pushdown.MissingImage = false

	q, err := r.compileFilter(pushdown, domain.Pagination{})
	if err != nil {
		return nil, err
	}
	q.Limit = r.maxScan
	q.Offset = 0

	docs, err := r.store.RunQuery(ctx, "", q)
	if err != nil {
		return nil, fmt.Errorf("scan spirits: %w", err)
	}

	term := strings.ToLower(f.SearchTerm)
	matched := make([]domain.Spirit, 0, p.PageSize)
	for _, doc := range docs {
		s := spiritFromDoc(doc)
		if term != "" && !matchesTerm(s, term) {
			continue
		}
		if f.MissingImage && s.ImageURL != "" {
			continue
		}
		matched = append(matched, s)
	}

	// The scan query is already updatedAt-descending; keep the order
	// stable and page in memory.
	start := p.Offset()
	if start >= len(matched) {
		return nil, nil
	}
	end := start + p.PageSize
	if p.PageSize <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func matchesTerm(s domain.Spirit, term string) bool {
	return strings.Contains(strings.ToLower(s.Name), term) ||
		strings.Contains(strings.ToLower(s.Distillery), term) ||
		strings.Contains(strings.ToLower(s.Bottler), term)
}

// Create adds a new spirit and returns it with the assigned ID.
func (r *Repo) Create(ctx context.Context, s domain.Spirit) (domain.Spirit, error) {
	now := r.now().UTC()
	fields := firestore.EncodeFields(spiritFields(s, now))

	doc, err := r.store.Create(ctx, r.paths.Spirits(), s.ID, fields)
	if err != nil {
		return domain.Spirit{}, fmt.Errorf("create spirit: %w", err)
	}
	return spiritFromDoc(doc), nil
}

// Upsert merges partial fields into a spirit. The wire update mask
// carries exactly the keys present in fields (plus the updatedAt
// stamp); everything else is left untouched server-side. Nil values
// are omitted, never sent as explicit nulls.
func (r *Repo) Upsert(ctx context.Context, id string, fields map[string]any) error {
	encoded := firestore.EncodeFields(fields)
	encoded["updatedAt"] = firestore.Timestamp(r.now().UTC())

	if err := r.store.Patch(ctx, r.docPath(id), encoded); err != nil {
		return fmt.Errorf("upsert spirit %s: %w", id, err)
	}
	return nil
}

// Delete removes spirits by ID, each as an independent call. A failure
// on one ID does not roll back or abort the others; the failed IDs are
// returned for logging.
func (r *Repo) Delete(ctx context.Context, ids []string) (failed []string) {
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := r.store.Delete(ctx, r.docPath(id)); err != nil {
				r.logger.Warn("delete spirit failed",
					zap.String("spirit_id", id), zap.Error(err))
				mu.Lock()
				failed = append(failed, id)
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()
	return failed
}

// GetByIDs fetches spirits concurrently, dropping IDs that fail or are
// absent. Order follows the input IDs.
func (r *Repo) GetByIDs(ctx context.Context, ids []string) []domain.Spirit {
	results := make([]*domain.Spirit, len(ids))
	var wg sync.WaitGroup

	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			s, err := r.Get(ctx, id)
			if err != nil {
				if !errors.Is(err, domain.ErrSpiritNotFound) {
					r.logger.Warn("get spirit failed",
						zap.String("spirit_id", id), zap.Error(err))
				}
				return
			}
			results[i] = &s
		}(i, id)
	}
	wg.Wait()

	out := make([]domain.Spirit, 0, len(ids))
	for _, s := range results {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}

// TopPublished returns the n most recently updated published spirits.
func (r *Repo) TopPublished(ctx context.Context, n int) ([]domain.Spirit, error) {
	q := firestore.Query{
		Collection: r.paths.Spirits(),
		Conditions: []firestore.Condition{
			{Field: "isPublished", Value: firestore.Boolean(true)},
		},
		Limit: n,
	}
	docs, err := r.store.RunQuery(ctx, "", q)
	if err != nil {
		return nil, fmt.Errorf("top published: %w", err)
	}
	return mapDocs(docs), nil
}

func (r *Repo) docPath(id string) string {
	return r.paths.Spirits() + "/" + id
}

func mapDocs(docs []firestore.Document) []domain.Spirit {
	out := make([]domain.Spirit, 0, len(docs))
	for _, d := range docs {
		out = append(out, spiritFromDoc(d))
	}
	return out
}
