// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tomtom215/geoclover/internal/models"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint violation.
const uniqueViolation = "23505"

var (
	// ErrUsernameTaken is returned when a username already exists.
	ErrUsernameTaken = errors.New("username taken")
	// ErrUserNotFound is returned when no user has the username.
	ErrUserNotFound = errors.New("user not found")
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Repository stores users.
type Repository interface {
	Create(ctx context.Context, username, passwordHash string) (models.User, error)
	GetByUsername(ctx context.Context, username string) (models.User, error)
}

// PostgresRepository is the users table.
type PostgresRepository struct {
	db DBTX
}

// NewPostgresRepository returns a repository using db.
func NewPostgresRepository(db DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a user and returns it with its ID.
func (r *PostgresRepository) Create(ctx context.Context, username, passwordHash string) (models.User, error) {
	query :=
		`INSERT INTO users (username, password)
		 VALUES ($1, $2)
		 RETURNING id
		 `

	user := models.User{Username: username, PasswordHash: passwordHash}
	err := r.db.QueryRowContext(ctx, query, username, passwordHash).Scan(&user.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.User{}, ErrUsernameTaken
		}
		return models.User{}, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// GetByUsername looks a user up by name.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (models.User, error) {
	query :=
		`SELECT id, username, password FROM users
		 WHERE username = $1
		 `

	var user models.User
	err := r.db.QueryRowContext(ctx, query, username).Scan(&user.ID, &user.Username, &user.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}
