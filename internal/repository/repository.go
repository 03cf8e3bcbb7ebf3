package repository

import (
	"context"
	"time"

	"github.com/atlixcomx/mascotas-sub001/internal/domain"
)

// UserRepository looks up operator accounts.
type UserRepository interface {
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// AnimalRepository exposes counters over sheltered animals.
type AnimalRepository interface {
	CountAnimals(ctx context.Context) (int, error)
	CountAnimalsInState(ctx context.Context, state string) (int, error)
}

// RequestRepository exposes the finder/counter surface over adoption
// requests consumed by the metrics builder and the reminder engine.
type RequestRepository interface {
	CountRequestsInState(ctx context.Context, state string) (int, error)
	CountRequestsInStates(ctx context.Context, states []string) (int, error)
	CountRequestsCreatedBetween(ctx context.Context, from, to time.Time) (int, error)
	CountRequestsCompletedBetween(ctx context.Context, from, to time.Time) (int, error)
	MeanResponseHours(ctx context.Context, since time.Time) (float64, error)
	ListRequestsInStateUpdatedBefore(ctx context.Context, state string, cutoff time.Time) ([]domain.AdoptionRequest, error)
}
