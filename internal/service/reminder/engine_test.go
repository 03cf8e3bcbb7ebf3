package reminder

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

type stubRequestStore struct {
	requests []domain.AdoptionRequest
	listErr  error
}

func (s *stubRequestStore) CountRequestsInState(context.Context, string) (int, error) {
	return 0, nil
}

func (s *stubRequestStore) CountRequestsInStates(context.Context, []string) (int, error) {
	return 0, nil
}

func (s *stubRequestStore) CountRequestsCreatedBetween(context.Context, time.Time, time.Time) (int, error) {
	return 0, nil
}

func (s *stubRequestStore) CountRequestsCompletedBetween(context.Context, time.Time, time.Time) (int, error) {
	return 0, nil
}

func (s *stubRequestStore) MeanResponseHours(context.Context, time.Time) (float64, error) {
	return 0, nil
}

func (s *stubRequestStore) ListRequestsInStateUpdatedBefore(_ context.Context, state string, cutoff time.Time) ([]domain.AdoptionRequest, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.AdoptionRequest
	for _, req := range s.requests {
		if req.State == state && req.UpdatedAt.Before(cutoff) {
			out = append(out, req)
		}
	}
	return out, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func request(id, code, state string, updatedAt time.Time) domain.AdoptionRequest {
	return domain.AdoptionRequest{
		ID:            id,
		Code:          code,
		AnimalName:    "Firulais",
		ApplicantName: "Ana Torres",
		State:         state,
		UpdatedAt:     updatedAt,
	}
}

func TestScanMatchesOnlyPastThreshold(t *testing.T) {
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	store := &stubRequestStore{requests: []domain.AdoptionRequest{
		request("r1", "SOL-001", domain.RequestNueva, now.AddDate(0, 0, -3)),
		request("r2", "SOL-002", domain.RequestNueva, now.AddDate(0, 0, -1)),
	}}
	rules := []domain.ReminderRule{
		{State: domain.RequestNueva, ThresholdDays: 2, Message: "Solicitud sin revisar", Urgency: domain.UrgencyUrgent, EmailRequired: true},
	}
	engine := NewEngine(store, rules, discardLogger())

	items, err := engine.Scan(context.Background(), now)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 overdue request, got %d", len(items))
	}
	item := items[0]
	if item.RequestID != "r1" {
		t.Fatalf("expected r1, got %s", item.RequestID)
	}
	if item.DaysOverdue != 3 {
		t.Fatalf("expected 3 days overdue, got %d", item.DaysOverdue)
	}
	if item.Rule.Message != "Solicitud sin revisar" {
		t.Fatalf("expected matched rule attached, got %+v", item.Rule)
	}
}

func TestScanOrdersUrgentTierFirst(t *testing.T) {
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	store := &stubRequestStore{requests: []domain.AdoptionRequest{
		request("r1", "SOL-001", domain.RequestRevision, now.AddDate(0, 0, -50)),
		request("r2", "SOL-002", domain.RequestNueva, now.AddDate(0, 0, -10)),
		request("r3", "SOL-003", domain.RequestNueva, now.AddDate(0, 0, -4)),
		request("r4", "SOL-004", domain.RequestRevision, now.AddDate(0, 0, -8)),
	}}
	rules := []domain.ReminderRule{
		{State: domain.RequestNueva, ThresholdDays: 2, Urgency: domain.UrgencyUrgent},
		{State: domain.RequestRevision, ThresholdDays: 5, Urgency: domain.UrgencyNormal},
	}
	engine := NewEngine(store, rules, discardLogger())

	items, err := engine.Scan(context.Background(), now)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	got := make([]string, len(items))
	for i, item := range items {
		got[i] = item.RequestID
	}
	// urgent tier first, then most overdue within each tier
	want := []string{"r2", "r3", "r1", "r4"}
	if len(got) != len(want) {
		t.Fatalf("expected %d items, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: expected %s, got %v", i, want[i], got)
		}
	}
}

func TestScanLastMatchingRuleWins(t *testing.T) {
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	store := &stubRequestStore{requests: []domain.AdoptionRequest{
		request("r1", "SOL-001", domain.RequestNueva, now.AddDate(0, 0, -6)),
	}}
	rules := []domain.ReminderRule{
		{State: domain.RequestNueva, ThresholdDays: 2, Message: "primer aviso", Urgency: domain.UrgencyNormal},
		{State: domain.RequestNueva, ThresholdDays: 5, Message: "aviso final", Urgency: domain.UrgencyUrgent},
	}
	engine := NewEngine(store, rules, discardLogger())

	items, err := engine.Scan(context.Background(), now)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected the request to appear once, got %d items", len(items))
	}
	if items[0].Rule.Message != "aviso final" {
		t.Fatalf("expected the later rule row to win, got %q", items[0].Rule.Message)
	}
}

func TestScanWrapsStoreOutage(t *testing.T) {
	store := &stubRequestStore{listErr: errors.New("connection refused")}
	engine := NewEngine(store, nil, discardLogger())

	_, err := engine.Scan(context.Background(), time.Now().UTC())
	if err == nil {
		t.Fatal("expected error when the store is down")
	}
	if !errors.Is(err, repository.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestDefaultRulesCoverActionableStates(t *testing.T) {
	rules := DefaultRules()
	byState := make(map[string]domain.ReminderRule, len(rules))
	for _, rule := range rules {
		byState[rule.State] = rule
	}
	nueva, ok := byState[domain.RequestNueva]
	if !ok || nueva.ThresholdDays != 2 || nueva.Urgency != domain.UrgencyUrgent {
		t.Fatalf("unexpected rule for nueva: %+v", nueva)
	}
	revision, ok := byState[domain.RequestRevision]
	if !ok || revision.ThresholdDays != 5 || revision.Urgency != domain.UrgencyNormal {
		t.Fatalf("unexpected rule for revision: %+v", revision)
	}
}

func TestStatsAggregates(t *testing.T) {
	items := []domain.OverdueRequest{
		{State: domain.RequestNueva, DaysOverdue: 4, Rule: domain.ReminderRule{Urgency: domain.UrgencyUrgent}},
		{State: domain.RequestNueva, DaysOverdue: 3, Rule: domain.ReminderRule{Urgency: domain.UrgencyUrgent}},
		{State: domain.RequestRevision, DaysOverdue: 8, Rule: domain.ReminderRule{Urgency: domain.UrgencyNormal}},
	}
	stats := Stats(items)
	if stats.Total != 3 || stats.Urgent != 2 || stats.Normal != 1 {
		t.Fatalf("unexpected tier counts: %+v", stats)
	}
	if stats.ByState[domain.RequestNueva] != 2 || stats.ByState[domain.RequestRevision] != 1 {
		t.Fatalf("unexpected by-state counts: %+v", stats.ByState)
	}
	if stats.MeanDaysOverdue != 5 {
		t.Fatalf("expected mean 5, got %v", stats.MeanDaysOverdue)
	}

	empty := Stats(nil)
	if empty.Total != 0 || empty.MeanDaysOverdue != 0 {
		t.Fatalf("unexpected empty stats: %+v", empty)
	}
}
