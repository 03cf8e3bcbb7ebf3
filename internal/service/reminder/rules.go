package reminder

import "github.com/atlixcomx/mascotas-sub001/internal/domain"

// DefaultRules is the static escalation table: state + age threshold mapped
// to message, urgency tier, and whether email is required. Loaded once at
// construction and never mutated. When two rows name the same state, the
// later row wins during a scan.
func DefaultRules() []domain.ReminderRule {
	return []domain.ReminderRule{
		{
			State:         domain.RequestNueva,
			ThresholdDays: 2,
			Message:       "Solicitud nueva sin revisar",
			Urgency:       domain.UrgencyUrgent,
			EmailRequired: true,
		},
		{
			State:         domain.RequestEntrevista,
			ThresholdDays: 3,
			Message:       "Entrevista pendiente de realizar",
			Urgency:       domain.UrgencyUrgent,
			EmailRequired: true,
		},
		{
			State:         domain.RequestRevision,
			ThresholdDays: 5,
			Message:       "Expediente detenido en revisión",
			Urgency:       domain.UrgencyNormal,
			EmailRequired: false,
		},
		{
			State:         domain.RequestAprobada,
			ThresholdDays: 7,
			Message:       "Solicitud aprobada sin concretar entrega",
			Urgency:       domain.UrgencyNormal,
			EmailRequired: false,
		},
		{
			State:         domain.RequestPrueba,
			ThresholdDays: 10,
			Message:       "Periodo de prueba sin seguimiento",
			Urgency:       domain.UrgencyNormal,
			EmailRequired: false,
		},
	}
}
