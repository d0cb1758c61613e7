package catalog

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/kspirits/hub/internal/domain"
	"github.com/kspirits/hub/internal/firestore"
)

func TestGetMapsNotFound(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.getFn = func(_ context.Context, path string) (firestore.Document, error) {
		if path != "spirits/missing" {
			t.Errorf("path = %s", path)
		}
		return firestore.Document{}, firestore.ErrNotFound
	}

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrSpiritNotFound) {
		t.Errorf("error = %v, want ErrSpiritNotFound", err)
	}
}

func TestGetDecodesFalsyFields(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.getFn = func(_ context.Context, _ string) (firestore.Document, error) {
		return spiritDoc("sp-1", "", map[string]firestore.Value{
			"isPublished": firestore.Boolean(false),
			"abv":         firestore.Integer(0),
		}), nil
	}

	sp, err := repo.Get(context.Background(), "sp-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sp.ID != "sp-1" {
		t.Errorf("ID = %q", sp.ID)
	}
	if sp.Name != "" || sp.IsPublished || sp.ABV != 0 {
		t.Errorf("falsy fields mangled: %+v", sp)
	}
}

func TestQueryPushesDownConditions(t *testing.T) {
	repo, ms := newTestRepo(t)

	var got firestore.Query
	ms.runQueryFn = func(_ context.Context, parent string, q firestore.Query) ([]firestore.Document, error) {
		if parent != "" {
			t.Errorf("parent = %q, want root", parent)
		}
		got = q
		return []firestore.Document{spiritDoc("a", "A", nil)}, nil
	}

	f := domain.SpiritFilter{
		Status:   domain.StatusPublished,
		Country:  "Scotland",
		Category: "whisky",
	}
	items, err := repo.Query(context.Background(), f, domain.Pagination{Page: 2, PageSize: 20})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(items) != 1 || items[0].ID != "a" {
		t.Fatalf("items = %+v", items)
	}

	if got.Collection != "spirits" {
		t.Errorf("collection = %q", got.Collection)
	}
	if len(got.Conditions) != 2 {
		t.Errorf("conditions = %d, want status+country", len(got.Conditions))
	}
	if got.Alias == nil {
		t.Fatal("category filter must compile to the alias group")
	}
	if got.Alias.Fields != [2]string{"category", "subcategory"} {
		t.Errorf("alias fields = %v", got.Alias.Fields)
	}
	if got.Limit != 20 || got.Offset != 20 {
		t.Errorf("limit/offset = %d/%d, want 20/20", got.Limit, got.Offset)
	}
}

func TestQuerySearchTermFallsBackToScan(t *testing.T) {
	repo, ms := newTestRepo(t)

	var got firestore.Query
	ms.runQueryFn = func(_ context.Context, _ string, q firestore.Query) ([]firestore.Document, error) {
		got = q
		return []firestore.Document{
			spiritDoc("a", "Ardbeg 10", nil),
			spiritDoc("b", "Lagavulin 16", nil),
			spiritDoc("c", "Ardbeg Uigeadail", nil),
		}, nil
	}

	f := domain.SpiritFilter{SearchTerm: "ardbeg"}
	items, err := repo.Query(context.Background(), f, domain.Pagination{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	if got.Limit != 5000 {
		t.Errorf("scan limit = %d, want maxScan", got.Limit)
	}
	if got.Offset != 0 {
		t.Errorf("scan offset = %d, want 0 (paging happens in memory)", got.Offset)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2 matches", len(items))
	}
	for _, it := range items {
		if it.ID != "a" && it.ID != "c" {
			t.Errorf("unexpected match %q", it.ID)
		}
	}
}

func TestScanMatchesDistilleryAndBottler(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.runQueryFn = func(_ context.Context, _ string, _ firestore.Query) ([]firestore.Document, error) {
		return []firestore.Document{
			spiritDoc("a", "Anonymous Dram", map[string]firestore.Value{
				"distillery": firestore.String("Springbank"),
			}),
			spiritDoc("b", "Another Dram", map[string]firestore.Value{
				"bottler": firestore.String("Gordon & MacPhail"),
			}),
			spiritDoc("c", "Unrelated", nil),
		}, nil
	}

	items, err := repo.Query(context.Background(),
		domain.SpiritFilter{SearchTerm: "springbank"}, domain.Pagination{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(items) != 1 || items[0].ID != "a" {
		t.Errorf("items = %+v, want distillery match only", items)
	}
}

func TestScanMissingImageFilter(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.runQueryFn = func(_ context.Context, _ string, _ firestore.Query) ([]firestore.Document, error) {
		return []firestore.Document{
			spiritDoc("with", "A", map[string]firestore.Value{
				"imageUrl": firestore.String("https://img/a.jpg"),
			}),
			spiritDoc("without", "B", nil),
		}, nil
	}

	items, err := repo.Query(context.Background(),
		domain.SpiritFilter{MissingImage: true}, domain.Pagination{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(items) != 1 || items[0].ID != "without" {
		t.Errorf("items = %+v, want image-less record only", items)
	}
}

func TestScanPagesInMemory(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.runQueryFn = func(_ context.Context, _ string, _ firestore.Query) ([]firestore.Document, error) {
		return []firestore.Document{
			spiritDoc("1", "Ardbeg A", nil),
			spiritDoc("2", "Ardbeg B", nil),
			spiritDoc("3", "Ardbeg C", nil),
		}, nil
	}

	items, err := repo.Query(context.Background(),
		domain.SpiritFilter{SearchTerm: "ardbeg"}, domain.Pagination{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(items) != 1 || items[0].ID != "3" {
		t.Errorf("page 2 = %+v, want the third match alone", items)
	}

	items, err = repo.Query(context.Background(),
		domain.SpiritFilter{SearchTerm: "ardbeg"}, domain.Pagination{Page: 3, PageSize: 2})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("page past the end = %+v, want empty", items)
	}
}

func TestUpsertStampsUpdatedAtAndDropsNil(t *testing.T) {
	repo, ms := newTestRepo(t)

	var gotFields map[string]firestore.Value
	ms.patchFn = func(_ context.Context, path string, fields map[string]firestore.Value) error {
		if path != "spirits/sp-1" {
			t.Errorf("path = %s", path)
		}
		gotFields = fields
		return nil
	}

	err := repo.Upsert(context.Background(), "sp-1", map[string]any{
		"name":     "Ardbeg 10",
		"imageUrl": nil,
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if _, ok := gotFields["imageUrl"]; ok {
		t.Error("nil field must be omitted from the patch payload")
	}
	if _, ok := gotFields["updatedAt"]; !ok {
		t.Error("updatedAt stamp missing")
	}
	if _, ok := gotFields["name"]; !ok {
		t.Error("name field missing")
	}
}

func TestDeleteCollectsFailures(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.deleteFn = func(_ context.Context, path string) error {
		if path == "spirits/bad" {
			return errors.New("boom")
		}
		return nil
	}

	failed := repo.Delete(context.Background(), []string{"a", "bad", "b"})
	if len(failed) != 1 || failed[0] != "bad" {
		t.Errorf("failed = %v, want [bad]", failed)
	}
}

func TestGetByIDsKeepsOrderAndDropsMissing(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.getFn = func(_ context.Context, path string) (firestore.Document, error) {
		if path == "spirits/gone" {
			return firestore.Document{}, firestore.ErrNotFound
		}
		id := path[len("spirits/"):]
		return spiritDoc(id, "Spirit "+id, nil), nil
	}

	items := repo.GetByIDs(context.Background(), []string{"c", "gone", "a"})
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].ID != "c" || items[1].ID != "a" {
		t.Errorf("order = [%s %s], want input order preserved", items[0].ID, items[1].ID)
	}
}

func TestTopPublishedQuery(t *testing.T) {
	repo, ms := newTestRepo(t)

	var got firestore.Query
	ms.runQueryFn = func(_ context.Context, _ string, q firestore.Query) ([]firestore.Document, error) {
		got = q
		return nil, nil
	}

	if _, err := repo.TopPublished(context.Background(), 10); err != nil {
		t.Fatalf("TopPublished: %v", err)
	}
	if got.Limit != 10 {
		t.Errorf("limit = %d", got.Limit)
	}
	if len(got.Conditions) != 1 || got.Conditions[0].Field != "isPublished" {
		t.Errorf("conditions = %+v, want isPublished equality", got.Conditions)
	}
}

func TestCreatePassesDocumentID(t *testing.T) {
	repo, ms := newTestRepo(t)

	var gotID string
	var keys []string
	ms.createFn = func(_ context.Context, collection, documentID string, fields map[string]firestore.Value) (firestore.Document, error) {
		if collection != "spirits" {
			t.Errorf("collection = %s", collection)
		}
		gotID = documentID
		for k := range fields {
			keys = append(keys, k)
		}
		return spiritDoc("sp-9", "Ardbeg 10", nil), nil
	}

	created, err := repo.Create(context.Background(), domain.Spirit{
		ID:     "sp-9",
		Name:   "Ardbeg 10",
		Status: domain.StatusRaw,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if gotID != "sp-9" {
		t.Errorf("documentID = %q", gotID)
	}
	if created.ID != "sp-9" {
		t.Errorf("created.ID = %q", created.ID)
	}

	sort.Strings(keys)
	for _, want := range []string{"createdAt", "name", "status", "updatedAt"} {
		if idx := sort.SearchStrings(keys, want); idx == len(keys) || keys[idx] != want {
			t.Errorf("create payload missing %q (have %v)", want, keys)
		}
	}
}
