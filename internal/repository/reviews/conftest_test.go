package reviews

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kspirits/hub/internal/domain"
	"github.com/kspirits/hub/internal/firestore"
)

// mockStore implements the consumer interface for tests. Slot writes
// run concurrently, so the recording closures must lock.
type mockStore struct {
	mu         sync.Mutex
	getFn      func(ctx context.Context, path string) (firestore.Document, error)
	createFn   func(ctx context.Context, collection, documentID string, fields map[string]firestore.Value) (firestore.Document, error)
	patchFn    func(ctx context.Context, path string, fields map[string]firestore.Value) error
	deleteFn   func(ctx context.Context, path string) error
	runQueryFn func(ctx context.Context, parentPath string, q firestore.Query) ([]firestore.Document, error)
}

func (m *mockStore) Get(ctx context.Context, path string) (firestore.Document, error) {
	if m.getFn != nil {
		return m.getFn(ctx, path)
	}
	return firestore.Document{}, firestore.ErrNotFound
}

func (m *mockStore) Create(ctx context.Context, collection, documentID string, fields map[string]firestore.Value) (firestore.Document, error) {
	if m.createFn != nil {
		return m.createFn(ctx, collection, documentID, fields)
	}
	return firestore.Document{}, nil
}

func (m *mockStore) Patch(ctx context.Context, path string, fields map[string]firestore.Value) error {
	if m.patchFn != nil {
		return m.patchFn(ctx, path, fields)
	}
	return nil
}

func (m *mockStore) Delete(ctx context.Context, path string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, path)
	}
	return nil
}

func (m *mockStore) RunQuery(ctx context.Context, parentPath string, q firestore.Query) ([]firestore.Document, error) {
	if m.runQueryFn != nil {
		return m.runQueryFn(ctx, parentPath, q)
	}
	return nil, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms, domain.NewPaths("test-app"), zap.NewNop())
	return repo, ms
}

func slotDoc(i int, reviewID, spiritID string) firestore.Document {
	return firestore.Document{
		Name: "d/recent_reviews/slot-" + string(rune('0'+i)),
		Fields: map[string]firestore.Value{
			"reviewId": firestore.String(reviewID),
			"spiritId": firestore.String(spiritID),
			"rating":   firestore.Integer(4),
		},
	}
}
