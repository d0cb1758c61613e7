package reviews

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/kspirits/hub/internal/domain"
	"github.com/kspirits/hub/internal/firestore"
)

func TestCreateAssignsIDAndStamps(t *testing.T) {
	repo, ms := newTestRepo(t)
	repo.now = func() time.Time {
		return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	}

	var gotCollection, gotID string
	var gotFields map[string]firestore.Value
	ms.createFn = func(_ context.Context, collection, documentID string, fields map[string]firestore.Value) (firestore.Document, error) {
		gotCollection, gotID, gotFields = collection, documentID, fields
		return firestore.Document{}, nil
	}

	created, err := repo.Create(context.Background(), domain.Review{
		SpiritID: "sp-1",
		UserID:   "u-1",
		Rating:   5,
		IsPublic: true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if gotCollection != "artifacts/test-app/public/data/reviews" {
		t.Errorf("collection = %q", gotCollection)
	}
	if created.ID == "" || gotID != created.ID {
		t.Errorf("ID assignment broken: created=%q wire=%q", created.ID, gotID)
	}
	if created.CreatedAt.IsZero() || !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Errorf("timestamps = %v/%v", created.CreatedAt, created.UpdatedAt)
	}
	if b, ok := gotFields["isPublic"].AsBool(); !ok || !b {
		t.Errorf("isPublic = %v, %v", b, ok)
	}
}

func TestCreateKeepsExplicitID(t *testing.T) {
	repo, ms := newTestRepo(t)

	var gotID string
	ms.createFn = func(_ context.Context, _, documentID string, _ map[string]firestore.Value) (firestore.Document, error) {
		gotID = documentID
		return firestore.Document{}, nil
	}

	created, err := repo.Create(context.Background(), domain.Review{ID: "rev-7", SpiritID: "s", UserID: "u"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID != "rev-7" || gotID != "rev-7" {
		t.Errorf("ID = %q/%q, want rev-7", created.ID, gotID)
	}
}

func TestLatestScopesIntoArtifacts(t *testing.T) {
	repo, ms := newTestRepo(t)

	var gotParent string
	var gotQuery firestore.Query
	ms.runQueryFn = func(_ context.Context, parent string, q firestore.Query) ([]firestore.Document, error) {
		gotParent, gotQuery = parent, q
		return nil, nil
	}

	if _, err := repo.Latest(context.Background(), 6); err != nil {
		t.Fatalf("Latest: %v", err)
	}

	if gotParent != "artifacts/test-app/public/data" {
		t.Errorf("parent = %q", gotParent)
	}
	if gotQuery.Collection != "reviews" {
		t.Errorf("collection = %q", gotQuery.Collection)
	}
	if gotQuery.OrderBy != "createdAt" || gotQuery.Ascending {
		t.Errorf("ordering = %s asc=%v, want createdAt desc", gotQuery.OrderBy, gotQuery.Ascending)
	}
	if len(gotQuery.Conditions) != 1 || gotQuery.Conditions[0].Field != "isPublic" {
		t.Errorf("conditions = %+v, want isPublic equality", gotQuery.Conditions)
	}
	if gotQuery.Limit != 6 {
		t.Errorf("limit = %d", gotQuery.Limit)
	}
}

func TestReadRecentSlotsStopsAtGap(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.getFn = func(_ context.Context, path string) (firestore.Document, error) {
		switch path {
		case "recent_reviews/slot-0":
			return slotDoc(0, "r0", "s0"), nil
		case "recent_reviews/slot-1":
			return slotDoc(1, "r1", "s1"), nil
		default:
			return firestore.Document{}, firestore.ErrNotFound
		}
	}

	entries, err := repo.ReadRecentSlots(context.Background(), 6)
	if err != nil {
		t.Fatalf("ReadRecentSlots: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2 (scan stops at first gap)", len(entries))
	}
	if entries[0].ReviewID != "r0" || entries[1].ReviewID != "r1" {
		t.Errorf("order = %s,%s", entries[0].ReviewID, entries[1].ReviewID)
	}
}

func TestWriteRecentSlotsDeletesStaleTail(t *testing.T) {
	repo, ms := newTestRepo(t)

	var patched, deleted []string
	ms.patchFn = func(_ context.Context, path string, _ map[string]firestore.Value) error {
		ms.mu.Lock()
		patched = append(patched, path)
		ms.mu.Unlock()
		return nil
	}
	ms.deleteFn = func(_ context.Context, path string) error {
		ms.mu.Lock()
		deleted = append(deleted, path)
		ms.mu.Unlock()
		return nil
	}

	entries := []domain.RecentEntry{
		{ReviewID: "r0", SpiritID: "s0"},
		{ReviewID: "r1", SpiritID: "s1"},
	}
	if err := repo.WriteRecentSlots(context.Background(), entries, 4); err != nil {
		t.Fatalf("WriteRecentSlots: %v", err)
	}

	sort.Strings(patched)
	if len(patched) != 2 ||
		patched[0] != "recent_reviews/slot-0" || patched[1] != "recent_reviews/slot-1" {
		t.Errorf("patched = %v", patched)
	}
	sort.Strings(deleted)
	if len(deleted) != 2 ||
		deleted[0] != "recent_reviews/slot-2" || deleted[1] != "recent_reviews/slot-3" {
		t.Errorf("deleted = %v, want the stale tail cleared", deleted)
	}
}

func TestWriteRecentSlotsFailedSlotDoesNotBlockSiblings(t *testing.T) {
	repo, ms := newTestRepo(t)

	var patched, deleted []string
	ms.patchFn = func(_ context.Context, path string, _ map[string]firestore.Value) error {
		ms.mu.Lock()
		patched = append(patched, path)
		ms.mu.Unlock()
		if path == "recent_reviews/slot-0" {
			return errors.New("transient write failure")
		}
		return nil
	}
	ms.deleteFn = func(_ context.Context, path string) error {
		ms.mu.Lock()
		deleted = append(deleted, path)
		ms.mu.Unlock()
		return nil
	}

	entries := []domain.RecentEntry{
		{ReviewID: "r0", SpiritID: "s0"},
		{ReviewID: "r1", SpiritID: "s1"},
	}
	err := repo.WriteRecentSlots(context.Background(), entries, 4)
	if err == nil {
		t.Fatal("expected a summary error for the failed slot")
	}

	if len(patched) != 2 {
		t.Errorf("patched = %v, want every slot attempted", patched)
	}
	sort.Strings(deleted)
	if len(deleted) != 2 ||
		deleted[0] != "recent_reviews/slot-2" || deleted[1] != "recent_reviews/slot-3" {
		t.Errorf("deleted = %v, want the stale tail cleared despite the failed write", deleted)
	}
}
