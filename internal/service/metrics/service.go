package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/atlixcomx/mascotas-sub001/internal/domain"
	"github.com/atlixcomx/mascotas-sub001/internal/repository"
)

const responseWindowDays = 7

// Service computes point-in-time dashboard snapshots from the data store.
type Service struct {
	animals  repository.AnimalRepository
	requests repository.RequestRepository
	logger   *slog.Logger
	now      func() time.Time
}

// New constructs a snapshot builder.
func New(animals repository.AnimalRepository, requests repository.RequestRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		animals:  animals,
		requests: requests,
		logger:   logger.With("component", "metrics"),
		now:      time.Now,
	}
}

// Build recomputes the full snapshot. All reads go against the store; a
// failed query surfaces as repository.ErrUnavailable so callers can skip
// the tick instead of crashing the stream.
func (s *Service) Build(ctx context.Context) (domain.MetricsSnapshot, error) {
	now := s.now().UTC()
	snapshot := domain.MetricsSnapshot{AsOf: now}

	total, err := s.animals.CountAnimals(ctx)
	if err != nil {
		return snapshot, unavailable("count animals", err)
	}
	disponible, err := s.animals.CountAnimalsInState(ctx, domain.AnimalDisponible)
	if err != nil {
		return snapshot, unavailable("count available animals", err)
	}
	enProceso, err := s.animals.CountAnimalsInState(ctx, domain.AnimalEnProceso)
	if err != nil {
		return snapshot, unavailable("count in-process animals", err)
	}
	adoptado, err := s.animals.CountAnimalsInState(ctx, domain.AnimalAdoptado)
	if err != nil {
		return snapshot, unavailable("count adopted animals", err)
	}
	snapshot.Animals = domain.AnimalCounts{
		Total:      total,
		Disponible: disponible,
		EnProceso:  enProceso,
		Adoptado:   adoptado,
	}

	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	yesterdayStart := todayStart.AddDate(0, 0, -1)
	tomorrowStart := todayStart.AddDate(0, 0, 1)

	newToday, err := s.requests.CountRequestsCreatedBetween(ctx, todayStart, tomorrowStart)
	if err != nil {
		return snapshot, unavailable("count new requests today", err)
	}
	newYesterday, err := s.requests.CountRequestsCreatedBetween(ctx, yesterdayStart, todayStart)
	if err != nil {
		return snapshot, unavailable("count new requests yesterday", err)
	}
	inReview, err := s.requests.CountRequestsInState(ctx, domain.RequestRevision)
	if err != nil {
		return snapshot, unavailable("count requests in review", err)
	}
	completedToday, err := s.requests.CountRequestsCompletedBetween(ctx, todayStart, tomorrowStart)
	if err != nil {
		return snapshot, unavailable("count completions today", err)
	}
	completedYesterday, err := s.requests.CountRequestsCompletedBetween(ctx, yesterdayStart, todayStart)
	if err != nil {
		return snapshot, unavailable("count completions yesterday", err)
	}
	snapshot.Requests = domain.RequestCounts{
		NewToday:           newToday,
		InReview:           inReview,
		NewYesterday:       newYesterday,
		CompletedToday:     completedToday,
		CompletedYesterday: completedYesterday,
	}

	approved, err := s.requests.CountRequestsInStates(ctx, []string{domain.RequestAprobada, domain.RequestAdoptada})
	if err != nil {
		return snapshot, unavailable("count approved requests", err)
	}
	rejected, err := s.requests.CountRequestsInState(ctx, domain.RequestRechazada)
	if err != nil {
		return snapshot, unavailable("count rejected requests", err)
	}
	snapshot.ApprovalRate = approvalRate(approved, rejected)

	mean, err := s.requests.MeanResponseHours(ctx, now.AddDate(0, 0, -responseWindowDays))
	if err != nil {
		return snapshot, unavailable("mean response time", err)
	}
	snapshot.MeanResponseHours = mean

	snapshot.Trends = domain.Trends{
		Requests:    trendOf(newToday, newYesterday),
		Completions: trendOf(completedToday, completedYesterday),
	}
	return snapshot, nil
}

// approvalRate returns approved/(approved+rejected) as a percentage, zero
// when nothing has been decided yet.
func approvalRate(approved, rejected int) float64 {
	denominator := approved + rejected
	if denominator == 0 {
		return 0
	}
	return float64(approved) / float64(denominator) * 100
}

// trendOf compares today's counter against yesterday's.
func trendOf(today, yesterday int) string {
	switch {
	case today > yesterday:
		return domain.TrendUp
	case today < yesterday:
		return domain.TrendDown
	default:
		return domain.TrendStable
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, repository.ErrUnavailable, err)
}
