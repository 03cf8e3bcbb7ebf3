package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/atlixcomx/mascotas-sub001/internal/domain"
	"github.com/atlixcomx/mascotas-sub001/internal/repository"
	"github.com/atlixcomx/mascotas-sub001/pkg/config"
	"github.com/atlixcomx/mascotas-sub001/pkg/crypto"
	jwtpkg "github.com/atlixcomx/mascotas-sub001/pkg/jwt"
)

// Service handles operator authentication.
type Service struct {
	users  repository.UserRepository
	logger *slog.Logger
	cfg    config.APIConfig
}

// New constructs a Service.
func New(users repository.UserRepository, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{users: users, logger: logger, cfg: cfg}
}

// TokenPair contains access and refresh tokens.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    time.Duration `json:"expires_in"`
}

// Login authenticates an operator and returns tokens carrying the role.
func (s Service) Login(ctx context.Context, email, password string) (*domain.User, TokenPair, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, TokenPair{}, err
	}
	tokens, err := s.issueTokens(user.ID, user.Role)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.logger.Info("operator logged in", "user_id", user.ID, "role", user.Role)
	return user, tokens, nil
}

// Authorize validates a bearer token and returns the associated operator
// and claims.
func (s Service) Authorize(ctx context.Context, token string) (*domain.User, *jwtpkg.Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, nil, errors.New("token required")
	}
	claims, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, err
	}
	return user, claims, nil
}

func (s Service) issueTokens(userID, role string) (TokenPair, error) {
	access, err := jwtpkg.GenerateToken(userID, role, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := jwtpkg.GenerateToken(userID, role, s.cfg.JWTSecret, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: s.cfg.AccessTokenTTL}, nil
}
