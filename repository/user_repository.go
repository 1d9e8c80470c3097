package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"tunedeck/db"
	"tunedeck/model"
)

// UserRepository defines the interface for user data operations.
// Emails are stored lower-cased; lookups normalize the same way.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	CreateWithQueryer(ctx context.Context, q db.Queryer, user *model.User) (int64, error)
	SetFavoritePlaylistWithQueryer(ctx context.Context, q db.Queryer, userID, playlistID int64) error
}

// mysqlUserRepository implements UserRepository for MySQL.
type mysqlUserRepository struct {
	DB *sql.DB
}

// NewMySQLUserRepository creates a new instance of mysqlUserRepository.
func NewMySQLUserRepository(database *sql.DB) UserRepository {
	return &mysqlUserRepository{DB: database}
}

// NormalizeEmail lower-cases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

const userColumns = `id, username, email, password_hash, favorite_playlist_id, created_at, updated_at`

// GetByID retrieves a user by ID. Returns (nil, nil) when absent.
func (r *mysqlUserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to scan user by ID %d: %w", id, err)
	}
	return user, nil
}

// GetByEmail retrieves a user by normalized email. Returns (nil, nil) when absent.
func (r *mysqlUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, NormalizeEmail(email))

	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan user by email: %w", err)
	}
	return user, nil
}

// GetByUsername retrieves a user by username. Returns (nil, nil) when absent.
func (r *mysqlUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)

	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan user by username %s: %w", username, err)
	}
	return user, nil
}

// CreateWithQueryer inserts a user inside the caller's transaction. The
// favorite playlist back-reference is filled in a second step of the same
// transaction, once the playlist row exists.
func (r *mysqlUserRepository) CreateWithQueryer(ctx context.Context, q db.Queryer, user *model.User) (int64, error) {
	query := `INSERT INTO users (username, email, password_hash, favorite_playlist_id, created_at)
	           VALUES (?, ?, ?, 0, ?)`

	now := time.Now()
	res, err := q.ExecContext(ctx, query, user.Username, NormalizeEmail(user.Email), user.PasswordHash, now)
	if err != nil {
		return 0, fmt.Errorf("failed to execute CreateWithQueryer: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for CreateWithQueryer: %w", err)
	}
	user.ID = id
	user.CreatedAt = now
	return id, nil
}

// SetFavoritePlaylistWithQueryer sets the favorite playlist back-reference.
func (r *mysqlUserRepository) SetFavoritePlaylistWithQueryer(ctx context.Context, q db.Queryer, userID, playlistID int64) error {
	_, err := q.ExecContext(ctx, `UPDATE users SET favorite_playlist_id = ? WHERE id = ?`, playlistID, userID)
	if err != nil {
		return fmt.Errorf("failed to set favorite playlist for user %d: %w", userID, err)
	}
	return nil
}

func scanUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	var updatedAt sql.NullTime
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.FavoritePlaylistID, &user.CreatedAt, &updatedAt); err != nil {
		return nil, err
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		user.UpdatedAt = &t
	}
	return user, nil
}
