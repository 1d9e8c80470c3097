package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tunedeck/model"
)

// RefreshTokenRepository defines the interface for refresh token persistence.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) (int64, error)
	GetActiveByToken(ctx context.Context, token string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, id int64) error
	RevokeAllForUser(ctx context.Context, userID int64) error
}

// mysqlRefreshTokenRepository implements RefreshTokenRepository for MySQL.
type mysqlRefreshTokenRepository struct {
	DB *sql.DB
}

// NewMySQLRefreshTokenRepository creates a new instance of mysqlRefreshTokenRepository.
func NewMySQLRefreshTokenRepository(database *sql.DB) RefreshTokenRepository {
	return &mysqlRefreshTokenRepository{DB: database}
}

// Create stores a refresh token row.
func (r *mysqlRefreshTokenRepository) Create(ctx context.Context, token *model.RefreshToken) (int64, error) {
	query := `INSERT INTO refresh_tokens (user_id, jti, token, valid_due, revoked, created_at)
	           VALUES (?, ?, ?, ?, false, ?)`

	now := time.Now()
	res, err := r.DB.ExecContext(ctx, query, token.UserID, token.Jti, token.Token, token.ValidDue, now)
	if err != nil {
		return 0, fmt.Errorf("failed to execute Create refresh token: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for Create refresh token: %w", err)
	}
	token.ID = id
	token.CreatedAt = now
	return id, nil
}

// GetActiveByToken retrieves an unexpired, non-revoked token by its opaque
// value. Returns (nil, nil) when no such token exists.
func (r *mysqlRefreshTokenRepository) GetActiveByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	query := `SELECT id, user_id, jti, token, valid_due, revoked, created_at
	           FROM refresh_tokens WHERE token = ? AND revoked = false AND valid_due > ?`
	row := r.DB.QueryRowContext(ctx, query, token, time.Now())

	rt := &model.RefreshToken{}
	err := row.Scan(&rt.ID, &rt.UserID, &rt.Jti, &rt.Token, &rt.ValidDue, &rt.Revoked, &rt.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan refresh token: %w", err)
	}
	return rt, nil
}

// Revoke marks one token as revoked.
func (r *mysqlRefreshTokenRepository) Revoke(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = true WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token %d: %w", id, err)
	}
	return nil
}

// RevokeAllForUser marks every live token of a user as revoked.
func (r *mysqlRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = true WHERE user_id = ? AND revoked = false`, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh tokens for user %d: %w", userID, err)
	}
	return nil
}
