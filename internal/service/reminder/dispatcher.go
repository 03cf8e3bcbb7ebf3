package reminder

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/atlixcomx/mascotas-sub001/internal/domain"
	"github.com/atlixcomx/mascotas-sub001/internal/stream"
)

const defaultBatchThreshold = 5

// Mailer is the outbound email capability consumed by the dispatcher.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Dispatcher turns a ranked overdue list into stream notifications and, when
// warranted, a single aggregated email.
type Dispatcher struct {
	hub            *stream.Hub
	mailer         Mailer
	logger         *slog.Logger
	emailTo        string
	batchThreshold int
	now            func() time.Time
}

// NewDispatcher constructs a Dispatcher. A non-positive threshold selects
// the default of 5.
func NewDispatcher(hub *stream.Hub, mailer Mailer, logger *slog.Logger, emailTo string, batchThreshold int) *Dispatcher {
	if batchThreshold <= 0 {
		batchThreshold = defaultBatchThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		hub:            hub,
		mailer:         mailer,
		logger:         logger.With("component", "reminder_dispatcher"),
		emailTo:        emailTo,
		batchThreshold: batchThreshold,
		now:            time.Now,
	}
}

// DispatchResult summarizes one dispatch run.
type DispatchResult struct {
	Broadcasts int  `json:"broadcasts"`
	Urgent     int  `json:"urgent"`
	Normal     int  `json:"normal"`
	EmailSent  bool `json:"email_sent"`
}

// Dispatch pushes one notification envelope per overdue request, then sends
// exactly one aggregated email when any urgent item exists or the normal
// count exceeds the batching threshold. Broadcasts always happen first;
// email delivery failure is logged and never propagated.
func (d *Dispatcher) Dispatch(ctx context.Context, items []domain.OverdueRequest) DispatchResult {
	var result DispatchResult
	now := d.now().UTC()

	for _, item := range items {
		notif := domain.Notification{
			Type:      domain.NotificationReminder,
			Title:     item.Rule.Message,
			Message:   fmt.Sprintf("%s (%s) lleva %d días en estado %s", item.Code, item.AnimalName, item.DaysOverdue, item.State),
			RequestID: item.RequestID,
			Data: map[string]any{
				"urgency":      item.Rule.Urgency,
				"days_overdue": item.DaysOverdue,
				"state":        item.State,
			},
			CreatedAt: now,
		}
		d.hub.Broadcast(stream.NewEnvelope(stream.EventNotification, notif))
		result.Broadcasts++
		if item.Rule.Urgency == domain.UrgencyUrgent {
			result.Urgent++
		} else {
			result.Normal++
		}
	}

	if result.Urgent > 0 || result.Normal > d.batchThreshold {
		if d.mailer == nil {
			d.logger.Warn("reminder email skipped, no mailer configured", "overdue", len(items))
			return result
		}
		subject := fmt.Sprintf("Recordatorios de adopción: %d solicitudes atrasadas", len(items))
		if err := d.mailer.Send(ctx, d.emailTo, subject, renderEmail(items)); err != nil {
			d.logger.Error("reminder email delivery failed", "error", err, "to", d.emailTo)
		} else {
			result.EmailSent = true
			d.logger.Info("reminder email sent", "to", d.emailTo, "overdue", len(items))
		}
	}
	return result
}

// renderEmail builds the aggregated HTML body, grouped by urgency tier.
func renderEmail(items []domain.OverdueRequest) string {
	var urgent, normal []domain.OverdueRequest
	for _, item := range items {
		if item.Rule.Urgency == domain.UrgencyUrgent {
			urgent = append(urgent, item)
		} else {
			normal = append(normal, item)
		}
	}

	var b strings.Builder
	b.WriteString("<h2>Solicitudes de adopción atrasadas</h2>")
	writeTier(&b, "Urgentes", urgent)
	writeTier(&b, "Pendientes", normal)
	return b.String()
}

func writeTier(b *strings.Builder, title string, items []domain.OverdueRequest) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "<h3>%s (%d)</h3><ul>", title, len(items))
	for _, item := range items {
		fmt.Fprintf(b, "<li><strong>%s</strong> %s, solicitante %s: %s (%d días en %s)</li>",
			html.EscapeString(item.Code),
			html.EscapeString(item.AnimalName),
			html.EscapeString(item.ApplicantName),
			html.EscapeString(item.Rule.Message),
			item.DaysOverdue,
			html.EscapeString(item.State),
		)
	}
	b.WriteString("</ul>")
}
