package domain

import "time"

// Operator roles.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// User represents a center operator account.
type User struct {
	ID           string
	Email        string
	Name         string
	Role         string
	PasswordHash []byte
	CreatedAt    time.Time
}
