package storage

import (
	"context"
	"time"

	"facility-checklist/internal/models"
)

func (s *Storage) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	user := models.User{
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}

	query := s.db.Rebind(`
		INSERT INTO users (username, password_hash, created_at)
		VALUES (?, ?, ?)
		RETURNING id
	`)
	if err := s.db.QueryRowxContext(ctx, query, user.Username, user.PasswordHash, user.CreatedAt).Scan(&user.ID); err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := s.db.Rebind(`
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = ?
	`)

	var user models.User
	if err := s.db.GetContext(ctx, &user, query, username); err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}
