package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlixcomx/mascotas-sub001/internal/domain"
	"github.com/atlixcomx/mascotas-sub001/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.UserRepository    = (*Repository)(nil)
	_ repository.AnimalRepository  = (*Repository)(nil)
	_ repository.RequestRepository = (*Repository)(nil)
)

// GetUserByEmail fetches an operator by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT id, email, name, role, password_hash, created_at FROM users WHERE email = $1`
	row := r.pool.QueryRow(ctx, query, email)
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetUserByID retrieves an operator by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT id, email, name, role, password_hash, created_at FROM users WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// CountAnimals counts all sheltered animals.
func (r *Repository) CountAnimals(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(1) FROM animals`
	var count int
	if err := r.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CountAnimalsInState counts animals currently in the given state.
func (r *Repository) CountAnimalsInState(ctx context.Context, state string) (int, error) {
	const query = `SELECT COUNT(1) FROM animals WHERE state = $1`
	var count int
	if err := r.pool.QueryRow(ctx, query, state).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CountRequestsInState counts adoption requests currently in the given state.
func (r *Repository) CountRequestsInState(ctx context.Context, state string) (int, error) {
	const query = `SELECT COUNT(1) FROM adoption_requests WHERE state = $1`
	var count int
	if err := r.pool.QueryRow(ctx, query, state).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CountRequestsInStates counts adoption requests across several states.
func (r *Repository) CountRequestsInStates(ctx context.Context, states []string) (int, error) {
	const query = `SELECT COUNT(1) FROM adoption_requests WHERE state = ANY($1)`
	var count int
	if err := r.pool.QueryRow(ctx, query, states).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CountRequestsCreatedBetween counts requests created within [from, to).
func (r *Repository) CountRequestsCreatedBetween(ctx context.Context, from, to time.Time) (int, error) {
	const query = `SELECT COUNT(1) FROM adoption_requests WHERE created_at >= $1 AND created_at < $2`
	var count int
	if err := r.pool.QueryRow(ctx, query, from, to).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CountRequestsCompletedBetween counts adoptions finalized within [from, to).
func (r *Repository) CountRequestsCompletedBetween(ctx context.Context, from, to time.Time) (int, error) {
	const query = `SELECT COUNT(1) FROM adoption_requests WHERE adoption_date >= $1 AND adoption_date < $2`
	var count int
	if err := r.pool.QueryRow(ctx, query, from, to).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// MeanResponseHours averages updated_at - created_at over requests updated
// since the given instant. Returns zero when no request qualifies.
func (r *Repository) MeanResponseHours(ctx context.Context, since time.Time) (float64, error) {
	const query = `SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (updated_at - created_at)) / 3600.0), 0)
		FROM adoption_requests WHERE updated_at >= $1`
	var hours float64
	if err := r.pool.QueryRow(ctx, query, since).Scan(&hours); err != nil {
		return 0, err
	}
	return hours, nil
}

// ListRequestsInStateUpdatedBefore returns requests sitting in a state whose
// last update is older than the cutoff, oldest first.
func (r *Repository) ListRequestsInStateUpdatedBefore(ctx context.Context, state string, cutoff time.Time) ([]domain.AdoptionRequest, error) {
	const query = `SELECT r.id, r.code, r.animal_id, a.name, r.applicant_name, r.applicant_email, r.state,
			r.review_date, r.interview_date, r.trial_start_date, r.trial_end_date, r.adoption_date,
			r.created_at, r.updated_at
		FROM adoption_requests r
		JOIN animals a ON a.id = r.animal_id
		WHERE r.state = $1 AND r.updated_at < $2
		ORDER BY r.updated_at ASC`
	rows, err := r.pool.Query(ctx, query, state, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []domain.AdoptionRequest
	for rows.Next() {
		var req domain.AdoptionRequest
		if err := rows.Scan(&req.ID, &req.Code, &req.AnimalID, &req.AnimalName, &req.ApplicantName,
			&req.ApplicantEmail, &req.State, &req.ReviewDate, &req.InterviewDate, &req.TrialStartDate,
			&req.TrialEndDate, &req.AdoptionDate, &req.CreatedAt, &req.UpdatedAt); err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}
