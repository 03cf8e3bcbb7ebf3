package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/atlixcomx/mascotas-sub001/internal/domain"
	"github.com/atlixcomx/mascotas-sub001/internal/repository"
)

// Engine scans adoption requests against the rule table and ranks the
// overdue ones. Results are derived transiently; nothing is marked as
// reminded, so consecutive scans resurface the same records.
type Engine struct {
	repo   repository.RequestRepository
	rules  []domain.ReminderRule
	logger *slog.Logger
}

// NewEngine constructs a scan engine. A nil rule slice selects DefaultRules.
func NewEngine(repo repository.RequestRepository, rules []domain.ReminderRule, logger *slog.Logger) *Engine {
	if rules == nil {
		rules = DefaultRules()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		repo:   repo,
		rules:  rules,
		logger: logger.With("component", "reminder_engine"),
	}
}

// Rules returns a copy of the active rule table.
func (e *Engine) Rules() []domain.ReminderRule {
	return append([]domain.ReminderRule(nil), e.rules...)
}

// Scan finds every request whose current state has persisted past its rule's
// threshold as of now. The result is sorted urgent tier first, then by
// descending days overdue; ties break on the request code so the ordering
// is deterministic. A request matched by more than one rule row keeps only
// the last match.
func (e *Engine) Scan(ctx context.Context, now time.Time) ([]domain.OverdueRequest, error) {
	matched := make(map[string]domain.OverdueRequest)
	for _, rule := range e.rules {
		cutoff := now.AddDate(0, 0, -rule.ThresholdDays)
		requests, err := e.repo.ListRequestsInStateUpdatedBefore(ctx, rule.State, cutoff)
		if err != nil {
			return nil, fmt.Errorf("scan state %q: %w: %w", rule.State, repository.ErrUnavailable, err)
		}
		for _, req := range requests {
			matched[req.ID] = domain.OverdueRequest{
				RequestID:     req.ID,
				Code:          req.Code,
				AnimalName:    req.AnimalName,
				ApplicantName: req.ApplicantName,
				State:         req.State,
				DaysOverdue:   int(now.Sub(req.UpdatedAt).Hours() / 24),
				Rule:          rule,
			}
		}
	}

	items := make([]domain.OverdueRequest, 0, len(matched))
	for _, item := range matched {
		items = append(items, item)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Rule.Urgency != items[j].Rule.Urgency {
			return items[i].Rule.Urgency == domain.UrgencyUrgent
		}
		if items[i].DaysOverdue != items[j].DaysOverdue {
			return items[i].DaysOverdue > items[j].DaysOverdue
		}
		return items[i].Code < items[j].Code
	})
	return items, nil
}

// Stats reduces a scan result to aggregate counts.
func Stats(items []domain.OverdueRequest) domain.ReminderStats {
	stats := domain.ReminderStats{
		Total:   len(items),
		ByState: make(map[string]int),
	}
	totalDays := 0
	for _, item := range items {
		if item.Rule.Urgency == domain.UrgencyUrgent {
			stats.Urgent++
		} else {
			stats.Normal++
		}
		stats.ByState[item.State]++
		totalDays += item.DaysOverdue
	}
	if stats.Total > 0 {
		stats.MeanDaysOverdue = float64(totalDays) / float64(stats.Total)
	}
	return stats
}
