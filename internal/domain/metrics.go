package domain

import "time"

// Trend flags comparing today's counter against yesterday's.
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

// AnimalCounts aggregates animals by state.
type AnimalCounts struct {
	Total      int `json:"total"`
	Disponible int `json:"disponible"`
	EnProceso  int `json:"en_proceso"`
	Adoptado   int `json:"adoptado"`
}

// RequestCounts aggregates short-term adoption request activity.
type RequestCounts struct {
	NewToday           int `json:"new_today"`
	InReview           int `json:"in_review"`
	NewYesterday       int `json:"new_yesterday"`
	CompletedToday     int `json:"completed_today"`
	CompletedYesterday int `json:"completed_yesterday"`
}

// Trends carries up/down/stable indicators for the dashboard.
type Trends struct {
	Requests    string `json:"requests"`
	Completions string `json:"completions"`
}

// MetricsSnapshot is a point-in-time aggregate view of the center's records.
// It is recomputed wholesale on each tick, never patched incrementally.
type MetricsSnapshot struct {
	AsOf              time.Time     `json:"as_of"`
	Animals           AnimalCounts  `json:"animals"`
	Requests          RequestCounts `json:"requests"`
	ApprovalRate      float64       `json:"approval_rate"`
	MeanResponseHours float64       `json:"mean_response_hours"`
	Trends            Trends        `json:"trends"`
}
