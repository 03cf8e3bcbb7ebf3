package domain

import "time"

// ActivityEvent records a recent domain action for the live activity feed.
// Events are held in a bounded in-memory buffer, not persisted.
type ActivityEvent struct {
	ID          string         `json:"id"`
	Category    string         `json:"category"`
	Description string         `json:"description"`
	Actor       string         `json:"actor,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
