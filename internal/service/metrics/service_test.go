package metrics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/atlixcomx/mascotas-sub001/internal/domain"
	"github.com/atlixcomx/mascotas-sub001/internal/repository"
)

type stubStore struct {
	animalsTotal   int
	animalsByState map[string]int

	requestsByState    map[string]int
	createdByDay       map[string]int
	completedByDay     map[string]int
	meanResponse       float64
	failCountsByStates error
}

func (s *stubStore) CountAnimals(context.Context) (int, error) {
	return s.animalsTotal, nil
}

func (s *stubStore) CountAnimalsInState(_ context.Context, state string) (int, error) {
	return s.animalsByState[state], nil
}

func (s *stubStore) CountRequestsInState(_ context.Context, state string) (int, error) {
	return s.requestsByState[state], nil
}

func (s *stubStore) CountRequestsInStates(_ context.Context, states []string) (int, error) {
	if s.failCountsByStates != nil {
		return 0, s.failCountsByStates
	}
	total := 0
	for _, state := range states {
		total += s.requestsByState[state]
	}
	return total, nil
}

func (s *stubStore) CountRequestsCreatedBetween(_ context.Context, from, _ time.Time) (int, error) {
	return s.createdByDay[from.Format(time.DateOnly)], nil
}

func (s *stubStore) CountRequestsCompletedBetween(_ context.Context, from, _ time.Time) (int, error) {
	return s.completedByDay[from.Format(time.DateOnly)], nil
}

func (s *stubStore) MeanResponseHours(context.Context, time.Time) (float64, error) {
	return s.meanResponse, nil
}

func (s *stubStore) ListRequestsInStateUpdatedBefore(context.Context, string, time.Time) ([]domain.AdoptionRequest, error) {
	return nil, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildSnapshotAggregates(t *testing.T) {
	now := time.Date(2026, 8, 30, 14, 30, 0, 0, time.UTC)
	store := &stubStore{
		animalsTotal:   12,
		animalsByState: map[string]int{domain.AnimalDisponible: 7, domain.AnimalEnProceso: 3, domain.AnimalAdoptado: 2},
		requestsByState: map[string]int{
			domain.RequestRevision:  4,
			domain.RequestAprobada:  2,
			domain.RequestAdoptada:  1,
			domain.RequestRechazada: 1,
		},
		createdByDay:   map[string]int{"2026-08-30": 6, "2026-08-29": 5},
		completedByDay: map[string]int{"2026-08-30": 1, "2026-08-29": 2},
		meanResponse:   36.5,
	}
	svc := New(store, store, discardLogger())
	svc.now = func() time.Time { return now }

	snapshot, err := svc.Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if snapshot.AsOf != now {
		t.Fatalf("expected as_of %v, got %v", now, snapshot.AsOf)
	}
	if snapshot.Animals != (domain.AnimalCounts{Total: 12, Disponible: 7, EnProceso: 3, Adoptado: 2}) {
		t.Fatalf("unexpected animal counts: %+v", snapshot.Animals)
	}
	want := domain.RequestCounts{NewToday: 6, InReview: 4, NewYesterday: 5, CompletedToday: 1, CompletedYesterday: 2}
	if snapshot.Requests != want {
		t.Fatalf("unexpected request counts: %+v", snapshot.Requests)
	}
	// approved 3 of 4 decided
	if snapshot.ApprovalRate != 75 {
		t.Fatalf("expected approval rate 75, got %v", snapshot.ApprovalRate)
	}
	if snapshot.MeanResponseHours != 36.5 {
		t.Fatalf("expected mean response 36.5, got %v", snapshot.MeanResponseHours)
	}
	if snapshot.Trends.Requests != domain.TrendUp {
		t.Fatalf("expected requests trend up, got %q", snapshot.Trends.Requests)
	}
	if snapshot.Trends.Completions != domain.TrendDown {
		t.Fatalf("expected completions trend down, got %q", snapshot.Trends.Completions)
	}
}

func TestApprovalRateZeroWhenNothingDecided(t *testing.T) {
	if got := approvalRate(0, 0); got != 0 {
		t.Fatalf("expected 0 for empty denominator, got %v", got)
	}
	if got := approvalRate(3, 1); got != 75 {
		t.Fatalf("expected 75, got %v", got)
	}
	if got := approvalRate(0, 4); got != 0 {
		t.Fatalf("expected 0 for all rejected, got %v", got)
	}
}

func TestTrendOf(t *testing.T) {
	cases := []struct {
		today, yesterday int
		want             string
	}{
		{6, 5, domain.TrendUp},
		{4, 5, domain.TrendDown},
		{5, 5, domain.TrendStable},
		{0, 0, domain.TrendStable},
	}
	for _, tc := range cases {
		if got := trendOf(tc.today, tc.yesterday); got != tc.want {
			t.Fatalf("trendOf(%d, %d) = %q, want %q", tc.today, tc.yesterday, got, tc.want)
		}
	}
}

func TestBuildSurfacesStoreOutage(t *testing.T) {
	store := &stubStore{
		animalsByState:     map[string]int{},
		requestsByState:    map[string]int{},
		createdByDay:       map[string]int{},
		completedByDay:     map[string]int{},
		failCountsByStates: errors.New("connection refused"),
	}
	svc := New(store, store, discardLogger())

	_, err := svc.Build(context.Background())
	if err == nil {
		t.Fatal("expected error when the store is down")
	}
	if !errors.Is(err, repository.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
