package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tunedeck/db"
	"tunedeck/model"
)

// PlaylistRepository defines the interface for playlist data operations.
type PlaylistRepository interface {
	Create(ctx context.Context, p *model.Playlist) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.Playlist, error)
	CountByOwner(ctx context.Context, ownerUserID int64) (int, error)
	NamesByOwner(ctx context.Context, ownerUserID int64) ([]string, error)
	ListVisibleTo(ctx context.Context, userID int64, offset, limit int) ([]*model.Playlist, error)
	UpdateName(ctx context.Context, id int64, name string) error
	UpdateCoverURI(ctx context.Context, id int64, coverURI string) error
	Delete(ctx context.Context, id int64) error
}

// mysqlPlaylistRepository implements PlaylistRepository for MySQL.
type mysqlPlaylistRepository struct {
	DB *sql.DB
}

// NewMySQLPlaylistRepository creates a new instance of mysqlPlaylistRepository.
func NewMySQLPlaylistRepository(database *sql.DB) PlaylistRepository {
	return &mysqlPlaylistRepository{DB: database}
}

// insertPlaylist is shared by the repository and the transactional path.
func insertPlaylist(ctx context.Context, q db.Queryer, p *model.Playlist) (int64, error) {
	query := `INSERT INTO playlists (owner_user_id, name, visibility, cover_uri, created_at)
	           VALUES (?, ?, ?, ?, ?)`

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := q.ExecContext(ctx, query, p.OwnerUserID, p.Name, p.Visibility, nullString(p.CoverURI), createdAt)
	if err != nil {
		return 0, fmt.Errorf("failed to execute insertPlaylist: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for insertPlaylist: %w", err)
	}
	p.ID = id
	p.CreatedAt = createdAt
	return id, nil
}

// Create adds a new playlist.
func (r *mysqlPlaylistRepository) Create(ctx context.Context, p *model.Playlist) (int64, error) {
	return insertPlaylist(ctx, r.DB, p)
}

// GetByID retrieves a playlist by its ID. Returns (nil, nil) when absent.
func (r *mysqlPlaylistRepository) GetByID(ctx context.Context, id int64) (*model.Playlist, error) {
	query := `SELECT id, owner_user_id, name, visibility, cover_uri, created_at, updated_at
	           FROM playlists WHERE id = ?`
	row := r.DB.QueryRowContext(ctx, query, id)

	p, err := scanPlaylist(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Playlist not found
		}
		return nil, fmt.Errorf("failed to scan playlist by ID %d: %w", id, err)
	}
	return p, nil
}

// CountByOwner counts playlists owned by a user, used for quota checks.
func (r *mysqlPlaylistRepository) CountByOwner(ctx context.Context, ownerUserID int64) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM playlists WHERE owner_user_id = ?`, ownerUserID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count playlists for owner %d: %w", ownerUserID, err)
	}
	return count, nil
}

// NamesByOwner returns the names of all playlists owned by a user.
func (r *mysqlPlaylistRepository) NamesByOwner(ctx context.Context, ownerUserID int64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT name FROM playlists WHERE owner_user_id = ?`, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist names for owner %d: %w", ownerUserID, err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan playlist name: %w", err)
		}
		names = append(names, name)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in NamesByOwner: %w", err)
	}
	return names, nil
}

// ListVisibleTo returns playlists the user may see: public ones, owned ones
// and ones shared with the user through a permission grant.
func (r *mysqlPlaylistRepository) ListVisibleTo(ctx context.Context, userID int64, offset, limit int) ([]*model.Playlist, error) {
	query := `SELECT DISTINCT p.id, p.owner_user_id, p.name, p.visibility, p.cover_uri, p.created_at, p.updated_at
	           FROM playlists p
	           LEFT JOIN playlist_user_permissions pup ON pup.playlist_id = p.id AND pup.user_id = ?
	           WHERE p.visibility = ? OR p.owner_user_id = ? OR pup.id IS NOT NULL
	           ORDER BY p.created_at, p.id
	           LIMIT ? OFFSET ?`
	rows, err := r.DB.QueryContext(ctx, query, userID, model.PlaylistPublic, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query visible playlists for user %d: %w", userID, err)
	}
	defer rows.Close()

	playlists := make([]*model.Playlist, 0)
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist in ListVisibleTo: %w", err)
		}
		playlists = append(playlists, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in ListVisibleTo: %w", err)
	}
	return playlists, nil
}

// UpdateName renames a playlist.
func (r *mysqlPlaylistRepository) UpdateName(ctx context.Context, id int64, name string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE playlists SET name = ?, updated_at = ? WHERE id = ?`, name, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to execute UpdateName for playlist ID %d: %w", id, err)
	}
	return nil
}

// UpdateCoverURI sets a playlist's cover.
func (r *mysqlPlaylistRepository) UpdateCoverURI(ctx context.Context, id int64, coverURI string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE playlists SET cover_uri = ?, updated_at = ? WHERE id = ?`, nullString(coverURI), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to execute UpdateCoverURI for playlist ID %d: %w", id, err)
	}
	return nil
}

// Delete removes a playlist. Memberships and permission grants cascade at
// the schema level.
func (r *mysqlPlaylistRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to execute Delete for playlist ID %d: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlaylist(row rowScanner) (*model.Playlist, error) {
	p := &model.Playlist{}
	var cover sql.NullString
	var updatedAt sql.NullTime
	if err := row.Scan(&p.ID, &p.OwnerUserID, &p.Name, &p.Visibility, &cover, &p.CreatedAt, &updatedAt); err != nil {
		return nil, err
	}
	p.CoverURI = cover.String
	if updatedAt.Valid {
		t := updatedAt.Time
		p.UpdatedAt = &t
	}
	return p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
