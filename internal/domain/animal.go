package domain

import "time"

// Animal states as stored in the animals table.
const (
	AnimalDisponible = "disponible"
	AnimalEnProceso  = "en_proceso"
	AnimalAdoptado   = "adoptado"
)

// Animal represents a sheltered animal available through the center.
type Animal struct {
	ID        string
	Code      string
	Name      string
	Species   string
	Breed     string
	State     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
