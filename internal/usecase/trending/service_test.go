package trending

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kspirits/hub/internal/domain"
)

// --- Mocks ---

type mockRepo struct {
	logFn     func(ctx context.Context, spiritID string, action domain.Action, day time.Time) error
	readDayFn func(ctx context.Context, day time.Time) ([]domain.DailyRecord, error)
	daysRead  []time.Time
}

func (m *mockRepo) LogEvent(ctx context.Context, spiritID string, action domain.Action, day time.Time) error {
	if m.logFn != nil {
		return m.logFn(ctx, spiritID, action, day)
	}
	return nil
}

func (m *mockRepo) ReadDay(ctx context.Context, day time.Time) ([]domain.DailyRecord, error) {
	m.daysRead = append(m.daysRead, day)
	if m.readDayFn != nil {
		return m.readDayFn(ctx, day)
	}
	return nil, nil
}

type mockSpirits struct {
	byID map[string]domain.Spirit
}

func (m *mockSpirits) GetByIDs(_ context.Context, ids []string) []domain.Spirit {
	out := make([]domain.Spirit, 0, len(ids))
	for _, id := range ids {
		if sp, ok := m.byID[id]; ok {
			out = append(out, sp)
		}
	}
	return out
}

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *mockRepo) {
	t.Helper()
	repo := &mockRepo{}
	svc := New(repo, &mockSpirits{}, zap.NewNop())
	svc.now = func() time.Time { return fixedNow }
	return svc, repo
}

func dayOffset(day time.Time) int {
	return int(fixedNow.Sub(day).Hours() / 24)
}

// --- Log ---

func TestLogValidation(t *testing.T) {
	svc, repo := newTestService(t)
	repo.logFn = func(_ context.Context, _ string, _ domain.Action, _ time.Time) error {
		t.Fatal("invalid event must not reach the repository")
		return nil
	}

	if err := svc.Log(context.Background(), "", domain.ActionView); !errors.Is(err, domain.ErrInvalidAction) {
		t.Errorf("empty spirit id: error = %v", err)
	}
	if err := svc.Log(context.Background(), "sp-1", domain.Action("share")); !errors.Is(err, domain.ErrInvalidAction) {
		t.Errorf("unknown action: error = %v", err)
	}
}

func TestLogDelegates(t *testing.T) {
	svc, repo := newTestService(t)

	var gotID string
	var gotAction domain.Action
	repo.logFn = func(_ context.Context, id string, a domain.Action, day time.Time) error {
		gotID, gotAction = id, a
		if !day.Equal(fixedNow) {
			t.Errorf("day = %v", day)
		}
		return nil
	}

	if err := svc.Log(context.Background(), "sp-1", domain.ActionCabinet); err != nil {
		t.Fatalf("Log: %v", err)
	}
	if gotID != "sp-1" || gotAction != domain.ActionCabinet {
		t.Errorf("delegated %s/%s", gotID, gotAction)
	}
}

// --- Top ---

func TestTopDecaysOlderDays(t *testing.T) {
	svc, repo := newTestService(t)

	// Identical raw totals on day 0 and day 3: the fresh one must rank
	// strictly higher after decay.
	repo.readDayFn = func(_ context.Context, day time.Time) ([]domain.DailyRecord, error) {
		switch dayOffset(day) {
		case 0:
			return []domain.DailyRecord{{SpiritID: "fresh", TotalScore: 100, Views: 100}}, nil
		case 3:
			return []domain.DailyRecord{{SpiritID: "stale", TotalScore: 100, Views: 100}}, nil
		}
		return nil, nil
	}

	items, err := svc.Top(context.Background(), 5)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d", len(items))
	}
	if items[0].SpiritID != "fresh" {
		t.Errorf("top = %q, want the fresher spirit", items[0].SpiritID)
	}

	wantStale := 100 * math.Pow(0.7, 3)
	if math.Abs(items[1].Score-wantStale) > 1e-9 {
		t.Errorf("stale score = %v, want %v", items[1].Score, wantStale)
	}
	if items[0].Score != 100 {
		t.Errorf("fresh score = %v, want undecayed 100", items[0].Score)
	}
}

func TestTopAccumulatesRawStatsAcrossDays(t *testing.T) {
	svc, repo := newTestService(t)
	repo.readDayFn = func(_ context.Context, day time.Time) ([]domain.DailyRecord, error) {
		if dayOffset(day) > 1 {
			return nil, nil
		}
		return []domain.DailyRecord{{
			SpiritID: "sp-1", TotalScore: 10, Views: 5, Wishlists: 1,
		}}, nil
	}

	items, err := svc.Top(context.Background(), 5)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	if items[0].Stats.Views != 10 || items[0].Stats.Wishlists != 2 {
		t.Errorf("stats = %+v, want raw counters summed undecayed", items[0].Stats)
	}
}

func TestTopEarlyStop(t *testing.T) {
	svc, repo := newTestService(t)
	repo.readDayFn = func(_ context.Context, _ time.Time) ([]domain.DailyRecord, error) {
		return []domain.DailyRecord{
			{SpiritID: "a", TotalScore: 3},
			{SpiritID: "b", TotalScore: 2},
			{SpiritID: "c", TotalScore: 1},
		}, nil
	}

	if _, err := svc.Top(context.Background(), 3); err != nil {
		t.Fatalf("Top: %v", err)
	}
	if len(repo.daysRead) != 2 {
		t.Errorf("days read = %d, want early stop after the minimum two", len(repo.daysRead))
	}
}

func TestTopScansFullWindowWhenSparse(t *testing.T) {
	svc, repo := newTestService(t)
	repo.readDayFn = func(_ context.Context, _ time.Time) ([]domain.DailyRecord, error) {
		return []domain.DailyRecord{{SpiritID: "only", TotalScore: 1}}, nil
	}

	if _, err := svc.Top(context.Background(), 5); err != nil {
		t.Fatalf("Top: %v", err)
	}
	if len(repo.daysRead) != 7 {
		t.Errorf("days read = %d, want the full window when results are sparse", len(repo.daysRead))
	}
}

func TestTopSkipsUnreadableDays(t *testing.T) {
	svc, repo := newTestService(t)
	repo.readDayFn = func(_ context.Context, day time.Time) ([]domain.DailyRecord, error) {
		if dayOffset(day) == 1 {
			return nil, errors.New("transient store error")
		}
		if dayOffset(day) == 0 {
			return []domain.DailyRecord{{SpiritID: "sp-1", TotalScore: 9}}, nil
		}
		return nil, nil
	}

	items, err := svc.Top(context.Background(), 5)
	if err != nil {
		t.Fatalf("Top must not fail on one unreadable day: %v", err)
	}
	if len(items) != 1 || items[0].SpiritID != "sp-1" {
		t.Errorf("items = %+v", items)
	}
}

func TestTopTruncatesToN(t *testing.T) {
	svc, repo := newTestService(t)
	repo.readDayFn = func(_ context.Context, _ time.Time) ([]domain.DailyRecord, error) {
		return []domain.DailyRecord{
			{SpiritID: "a", TotalScore: 5},
			{SpiritID: "b", TotalScore: 4},
			{SpiritID: "c", TotalScore: 3},
			{SpiritID: "d", TotalScore: 2},
		}, nil
	}

	items, err := svc.Top(context.Background(), 2)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].SpiritID != "a" || items[1].SpiritID != "b" {
		t.Errorf("ranking = %s,%s", items[0].SpiritID, items[1].SpiritID)
	}
}

// --- TopSpirits ---

func TestTopSpiritsDropsUnresolved(t *testing.T) {
	repo := &mockRepo{
		readDayFn: func(_ context.Context, _ time.Time) ([]domain.DailyRecord, error) {
			return []domain.DailyRecord{
				{SpiritID: "known", TotalScore: 5},
				{SpiritID: "deleted", TotalScore: 4},
			}, nil
		},
	}
	spirits := &mockSpirits{byID: map[string]domain.Spirit{
		"known": {ID: "known", Name: "Known"},
	}}
	svc := New(repo, spirits, zap.NewNop())
	svc.now = func() time.Time { return fixedNow }

	resolved, items, err := svc.TopSpirits(context.Background(), 5)
	if err != nil {
		t.Fatalf("TopSpirits: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("items = %d, ranking keeps unresolved entries", len(items))
	}
	if len(resolved) != 1 || resolved[0].ID != "known" {
		t.Errorf("resolved = %+v", resolved)
	}
}
