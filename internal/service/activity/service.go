package activity

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atlixcomx/mascotas-sub001/internal/domain"
	"github.com/atlixcomx/mascotas-sub001/internal/stream"
)

const defaultCapacity = 100

// Service owns the bounded, insertion-ordered feed of recent domain events
// and pushes each new entry to connected operators. Entries are read-only
// after creation; the oldest is dropped once capacity is exceeded.
type Service struct {
	mu       sync.Mutex
	entries  []domain.ActivityEvent
	capacity int

	hub    *stream.Hub
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// New constructs the activity feed with the given capacity.
func New(hub *stream.Hub, logger *slog.Logger, capacity int) *Service {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		capacity: capacity,
		hub:      hub,
		logger:   logger.With("component", "activity"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Record assigns an ID and timestamp, appends the event to the buffer, and
// broadcasts it as an activity_event envelope.
func (s *Service) Record(category, description, actor string, metadata map[string]any) domain.ActivityEvent {
	event := domain.ActivityEvent{
		ID:          s.newID(),
		Category:    category,
		Description: description,
		Actor:       actor,
		Metadata:    metadata,
		CreatedAt:   s.now().UTC(),
	}

	s.mu.Lock()
	s.entries = append([]domain.ActivityEvent{event}, s.entries...)
	if len(s.entries) > s.capacity {
		s.entries = s.entries[:s.capacity]
	}
	s.mu.Unlock()

	if s.hub != nil {
		s.hub.Broadcast(stream.NewEnvelope(stream.EventActivity, event))
	}
	return event
}

// Recent returns up to limit entries, newest first, without mutating the
// buffer.
func (s *Service) Recent(limit int) []domain.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}
	out := make([]domain.ActivityEvent, limit)
	copy(out, s.entries[:limit])
	return out
}

// Len reports the number of buffered entries.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
