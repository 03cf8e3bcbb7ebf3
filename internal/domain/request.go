package domain

import "time"

// Adoption request states. A request walks nueva -> revision -> entrevista ->
// prueba -> aprobada -> adoptada, or terminates in rechazada.
const (
	RequestNueva      = "nueva"
	RequestRevision   = "revision"
	RequestEntrevista = "entrevista"
	RequestPrueba     = "prueba"
	RequestAprobada   = "aprobada"
	RequestRechazada  = "rechazada"
	RequestAdoptada   = "adoptada"
)

// AdoptionRequest is a citizen's application to adopt a specific animal.
type AdoptionRequest struct {
	ID             string
	Code           string
	AnimalID       string
	AnimalName     string
	ApplicantName  string
	ApplicantEmail string
	State          string
	ReviewDate     *time.Time
	InterviewDate  *time.Time
	TrialStartDate *time.Time
	TrialEndDate   *time.Time
	AdoptionDate   *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
