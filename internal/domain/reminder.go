package domain

// Urgency tiers for reminder rules and their notifications.
const (
	UrgencyUrgent = "urgent"
	UrgencyNormal = "normal"
)

// ReminderRule maps a request state and an age threshold to an escalation.
// The rule table is static configuration loaded at process start.
type ReminderRule struct {
	State         string `json:"state"`
	ThresholdDays int    `json:"threshold_days"`
	Message       string `json:"message"`
	Urgency       string `json:"urgency"`
	EmailRequired bool   `json:"email_required"`
}

// OverdueRequest is a transient scan result: a request whose current state
// has persisted past its matched rule's threshold.
type OverdueRequest struct {
	RequestID     string       `json:"request_id"`
	Code          string       `json:"code"`
	AnimalName    string       `json:"animal_name"`
	ApplicantName string       `json:"applicant_name"`
	State         string       `json:"state"`
	DaysOverdue   int          `json:"days_overdue"`
	Rule          ReminderRule `json:"rule"`
}

// ReminderStats summarizes one scan without the per-request detail.
type ReminderStats struct {
	Total           int            `json:"total"`
	Urgent          int            `json:"urgent"`
	Normal          int            `json:"normal"`
	ByState         map[string]int `json:"by_state"`
	MeanDaysOverdue float64        `json:"mean_days_overdue"`
}
