package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"tunedeck/model"
)

// TrackRepository defines the interface for track data operations. The
// visibility gate lives here: lookups that feed responses only return a
// track's URIs when the track is visible or the caller owns it.
type TrackRepository interface {
	Create(ctx context.Context, track *model.Track) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.Track, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*model.Track, error)
	GetVisibleOrOwnedByID(ctx context.Context, id, userID int64) (*model.Track, error)
	GetOwnedByID(ctx context.Context, id, userID int64) (*model.Track, error)
	ListByOwner(ctx context.Context, ownerUserID int64, offset, limit int) ([]*model.Track, error)
	CountByOwner(ctx context.Context, ownerUserID int64) (int, error)
	Update(ctx context.Context, track *model.Track) error
	Delete(ctx context.Context, id int64) error
}

// mysqlTrackRepository implements TrackRepository for MySQL.
type mysqlTrackRepository struct {
	DB *sql.DB
}

// NewMySQLTrackRepository creates a new instance of mysqlTrackRepository.
func NewMySQLTrackRepository(database *sql.DB) TrackRepository {
	return &mysqlTrackRepository{DB: database}
}

const trackColumns = `id, owner_user_id, name, author, visibility, track_uri, cover_uri, created_at, updated_at`

// Create adds a new track to the catalog.
func (r *mysqlTrackRepository) Create(ctx context.Context, track *model.Track) (int64, error) {
	query := `INSERT INTO tracks (owner_user_id, name, author, visibility, track_uri, cover_uri, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`

	now := time.Now()
	res, err := r.DB.ExecContext(ctx, query, track.OwnerUserID, track.Name, track.Author, track.Visibility,
		nullString(track.TrackURI), nullString(track.CoverURI), now)
	if err != nil {
		return 0, fmt.Errorf("failed to execute Create track: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for Create track: %w", err)
	}
	track.ID = id
	track.CreatedAt = now
	return id, nil
}

// GetByID retrieves a track by its ID. Returns (nil, nil) when absent.
func (r *mysqlTrackRepository) GetByID(ctx context.Context, id int64) (*model.Track, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+trackColumns+` FROM tracks WHERE id = ?`, id)

	track, err := scanTrack(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Track not found
		}
		return nil, fmt.Errorf("failed to scan track by ID %d: %w", id, err)
	}
	return track, nil
}

// GetByIDs retrieves all existing tracks among the given ids.
func (r *mysqlTrackRepository) GetByIDs(ctx context.Context, ids []int64) ([]*model.Track, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.DB.QueryContext(ctx, `SELECT `+trackColumns+` FROM tracks WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks by ids: %w", err)
	}
	defer rows.Close()

	tracks := make([]*model.Track, 0, len(ids))
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track in GetByIDs: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetByIDs: %w", err)
	}
	return tracks, nil
}

// GetVisibleOrOwnedByID retrieves a track only when it is visible or owned
// by the given user. Returns (nil, nil) otherwise.
func (r *mysqlTrackRepository) GetVisibleOrOwnedByID(ctx context.Context, id, userID int64) (*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE id = ? AND (visibility = ? OR owner_user_id = ?)`
	row := r.DB.QueryRowContext(ctx, query, id, model.TrackVisible, userID)

	track, err := scanTrack(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan visible track by ID %d: %w", id, err)
	}
	return track, nil
}

// GetOwnedByID retrieves a track only when the given user owns it.
// Returns (nil, nil) otherwise.
func (r *mysqlTrackRepository) GetOwnedByID(ctx context.Context, id, userID int64) (*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE id = ? AND owner_user_id = ?`
	row := r.DB.QueryRowContext(ctx, query, id, userID)

	track, err := scanTrack(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan owned track by ID %d: %w", id, err)
	}
	return track, nil
}

// ListByOwner retrieves a page of the user's own tracks.
func (r *mysqlTrackRepository) ListByOwner(ctx context.Context, ownerUserID int64, offset, limit int) ([]*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE owner_user_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := r.DB.QueryContext(ctx, query, ownerUserID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks for owner %d: %w", ownerUserID, err)
	}
	defer rows.Close()

	tracks := make([]*model.Track, 0)
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track in ListByOwner: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in ListByOwner: %w", err)
	}
	return tracks, nil
}

// CountByOwner counts the user's own tracks.
func (r *mysqlTrackRepository) CountByOwner(ctx context.Context, ownerUserID int64) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracks WHERE owner_user_id = ?`, ownerUserID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tracks for owner %d: %w", ownerUserID, err)
	}
	return count, nil
}

// Update persists track metadata changes.
func (r *mysqlTrackRepository) Update(ctx context.Context, track *model.Track) error {
	query := `UPDATE tracks SET name = ?, author = ?, visibility = ?, track_uri = ?, cover_uri = ?, updated_at = ? WHERE id = ?`
	_, err := r.DB.ExecContext(ctx, query, track.Name, track.Author, track.Visibility,
		nullString(track.TrackURI), nullString(track.CoverURI), time.Now(), track.ID)
	if err != nil {
		return fmt.Errorf("failed to execute Update for track ID %d: %w", track.ID, err)
	}
	return nil
}

// Delete removes a track.
func (r *mysqlTrackRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM tracks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to execute Delete for track ID %d: %w", id, err)
	}
	return nil
}

func scanTrack(row rowScanner) (*model.Track, error) {
	track := &model.Track{}
	var trackURI, coverURI sql.NullString
	var updatedAt sql.NullTime
	if err := row.Scan(&track.ID, &track.OwnerUserID, &track.Name, &track.Author, &track.Visibility,
		&trackURI, &coverURI, &track.CreatedAt, &updatedAt); err != nil {
		return nil, err
	}
	track.TrackURI = trackURI.String
	track.CoverURI = coverURI.String
	if updatedAt.Valid {
		t := updatedAt.Time
		track.UpdatedAt = &t
	}
	return track, nil
}
