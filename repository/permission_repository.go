package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"tunedeck/model"
)

// PermissionRepository defines the interface for playlist permission grants.
type PermissionRepository interface {
	HasAnyPermission(ctx context.Context, playlistID, userID int64, tiers ...model.PlaylistPermission) (bool, error)
	Grant(ctx context.Context, playlistID, userID int64, permission model.PlaylistPermission) error
	Revoke(ctx context.Context, playlistID, userID int64, permission model.PlaylistPermission) (bool, error)
	RevokeAll(ctx context.Context, playlistID, userID int64) (int64, error)
}

// mysqlPermissionRepository implements PermissionRepository for MySQL.
type mysqlPermissionRepository struct {
	DB *sql.DB
}

// NewMySQLPermissionRepository creates a new instance of mysqlPermissionRepository.
func NewMySQLPermissionRepository(database *sql.DB) PermissionRepository {
	return &mysqlPermissionRepository{DB: database}
}

// HasAnyPermission reports whether a grant row exists for the user at any of
// the given tiers.
func (r *mysqlPermissionRepository) HasAnyPermission(ctx context.Context, playlistID, userID int64, tiers ...model.PlaylistPermission) (bool, error) {
	if len(tiers) == 0 {
		return false, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(tiers)), ",")
	args := []any{playlistID, userID}
	for _, tier := range tiers {
		args = append(args, tier)
	}

	var one int
	err := r.DB.QueryRowContext(ctx,
		`SELECT 1 FROM playlist_user_permissions WHERE playlist_id = ? AND user_id = ? AND permission IN (`+placeholders+`) LIMIT 1`,
		args...).Scan(&one)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to check permission for user %d on playlist %d: %w", userID, playlistID, err)
	}
	return true, nil
}

// Grant inserts a permission row. Granting an already-held tier is a no-op.
func (r *mysqlPermissionRepository) Grant(ctx context.Context, playlistID, userID int64, permission model.PlaylistPermission) error {
	held, err := r.HasAnyPermission(ctx, playlistID, userID, permission)
	if err != nil {
		return err
	}
	if held {
		return nil
	}

	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO playlist_user_permissions (playlist_id, user_id, permission, created_at) VALUES (?, ?, ?, ?)`,
		playlistID, userID, permission, time.Now())
	if err != nil {
		return fmt.Errorf("failed to grant permission %d to user %d on playlist %d: %w", permission, userID, playlistID, err)
	}
	return nil
}

// Revoke removes one permission row and reports whether it existed.
func (r *mysqlPermissionRepository) Revoke(ctx context.Context, playlistID, userID int64, permission model.PlaylistPermission) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM playlist_user_permissions WHERE playlist_id = ? AND user_id = ? AND permission = ?`,
		playlistID, userID, permission)
	if err != nil {
		return false, fmt.Errorf("failed to revoke permission %d from user %d on playlist %d: %w", permission, userID, playlistID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected for permission revoke: %w", err)
	}
	return affected > 0, nil
}

// RevokeAll removes every grant the user holds on the playlist.
func (r *mysqlPermissionRepository) RevokeAll(ctx context.Context, playlistID, userID int64) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM playlist_user_permissions WHERE playlist_id = ? AND user_id = ?`, playlistID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke permissions of user %d on playlist %d: %w", userID, playlistID, err)
	}
	return res.RowsAffected()
}
