// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

// Package accounts is the user directory behind /api/signup and /api/login.
// Users live in PostgreSQL with bcrypt password hashes; successful calls
// return a signed session token.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/geoclover/internal/logging"
	"github.com/tomtom215/geoclover/internal/models"
	"github.com/tomtom215/geoclover/internal/validation"
)

var (
	// ErrInvalidCredentials covers both an unknown user and a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrMissingCredentials is returned when username or password is empty.
	ErrMissingCredentials = errors.New("username and password required")
)

// Service implements signup and login.
type Service struct {
	repo       Repository
	secret     []byte
	validity   time.Duration
	bcryptCost int
	now        func() time.Time
}

// NewService returns a Service signing tokens with secret, valid for validity.
func NewService(repo Repository, secret []byte, validity time.Duration) *Service {
	return &Service{
		repo:       repo,
		secret:     secret,
		validity:   validity,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
}

// Signup creates an account and returns a session token.
func (s *Service) Signup(ctx context.Context, creds models.Credentials) (string, error) {
	if err := checkCredentials(creds); err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, creds.Username, string(hash))
	if err != nil {
		return "", err
	}

	logging.Ctx(ctx).Info().Int64("user_id", user.ID).Msg("account created")
	return GenerateToken(user.Username, s.secret, s.validity, s.now())
}

// Login verifies credentials and returns a session token.
func (s *Service) Login(ctx context.Context, creds models.Credentials) (string, error) {
	if err := checkCredentials(creds); err != nil {
		return "", err
	}

	user, err := s.repo.GetByUsername(ctx, creds.Username)
	if errors.Is(err, ErrUserNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("compare password: %w", err)
	}

	return GenerateToken(user.Username, s.secret, s.validity, s.now())
}

func checkCredentials(creds models.Credentials) error {
	if verr := validation.ValidateStruct(&creds); verr != nil {
		return fmt.Errorf("%w: %v", ErrMissingCredentials, verr)
	}
	return nil
}
