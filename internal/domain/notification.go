package domain

import "time"

// Notification types pushed over the event stream.
const (
	NotificationReminder = "reminder"
	NotificationSystem   = "system"
)

// Notification is a server-produced message delivered to connected operators.
// Read state is tracked client-side after delivery.
type Notification struct {
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	RequestID string         `json:"request_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
