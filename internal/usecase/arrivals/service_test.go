package arrivals

import (
	"context"
	"errors"
	"testing"

	"github.com/kspirits/hub/internal/domain"
)

type mockRepo struct {
	size    int
	readFn  func(ctx context.Context) ([]domain.ArrivalCard, error)
	writeFn func(ctx context.Context, cards []domain.ArrivalCard) error
}

func (m *mockRepo) ReadAll(ctx context.Context) ([]domain.ArrivalCard, error) {
	if m.readFn != nil {
		return m.readFn(ctx)
	}
	return nil, nil
}

func (m *mockRepo) WriteSlots(ctx context.Context, cards []domain.ArrivalCard) error {
	if m.writeFn != nil {
		return m.writeFn(ctx, cards)
	}
	return nil
}

func (m *mockRepo) Size() int { return m.size }

type mockSpirits struct {
	spirits []domain.Spirit
	err     error
	askedN  int
}

func (m *mockSpirits) TopPublished(_ context.Context, n int) ([]domain.Spirit, error) {
	m.askedN = n
	return m.spirits, m.err
}

func TestListPassesThrough(t *testing.T) {
	repo := &mockRepo{
		readFn: func(_ context.Context) ([]domain.ArrivalCard, error) {
			return []domain.ArrivalCard{{SpiritID: "sp-1"}, {SpiritID: "sp-2"}}, nil
		},
	}
	svc := New(repo, &mockSpirits{})

	cards, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(cards) != 2 || cards[0].SpiritID != "sp-1" {
		t.Errorf("cards = %+v", cards)
	}
}

func TestRebuildProjectsTopPublished(t *testing.T) {
	src := &mockSpirits{spirits: []domain.Spirit{
		{ID: "sp-1", Name: "Ardbeg 10", Category: "whisky", ThumbnailURL: "t1"},
		{ID: "sp-2", Name: "Lagavulin 16", Category: "whisky", ThumbnailURL: "t2"},
	}}

	var written []domain.ArrivalCard
	repo := &mockRepo{
		size: 10,
		writeFn: func(_ context.Context, cards []domain.ArrivalCard) error {
			written = cards
			return nil
		},
	}

	if err := New(repo, src).Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if src.askedN != 10 {
		t.Errorf("query size = %d, want the cache capacity", src.askedN)
	}
	if len(written) != 2 {
		t.Fatalf("wrote %d cards", len(written))
	}
	if written[0].SpiritID != "sp-1" || written[0].Name != "Ardbeg 10" || written[0].ThumbnailURL != "t1" {
		t.Errorf("card = %+v", written[0])
	}
}

func TestRebuildPropagatesQueryError(t *testing.T) {
	repo := &mockRepo{
		writeFn: func(_ context.Context, _ []domain.ArrivalCard) error {
			t.Fatal("a failed query must not overwrite the cache")
			return nil
		},
	}
	svc := New(repo, &mockSpirits{err: errors.New("index building")})

	if err := svc.Rebuild(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRebuildPropagatesWriteError(t *testing.T) {
	repo := &mockRepo{
		writeFn: func(_ context.Context, _ []domain.ArrivalCard) error {
			return errors.New("slot write failed")
		},
	}
	if err := New(repo, &mockSpirits{}).Rebuild(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
