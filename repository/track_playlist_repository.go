package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tunedeck/db"
	"tunedeck/model"
)

// TrackPlaylistRepository defines the interface for membership data
// operations. At most one row exists per (track, playlist) pair.
type TrackPlaylistRepository interface {
	TrackIDsByPlaylist(ctx context.Context, playlistID int64) ([]int64, error)
	Add(ctx context.Context, playlistID, trackID int64) error
	Remove(ctx context.Context, playlistID, trackID int64) (bool, error)
	Exists(ctx context.Context, playlistID, trackID int64) (bool, error)
	ListTracksByPlaylist(ctx context.Context, playlistID, viewerUserID int64, offset, limit int) ([]*model.Track, error)
	CountByPlaylist(ctx context.Context, playlistID int64) (int, error)
}

// mysqlTrackPlaylistRepository implements TrackPlaylistRepository for MySQL.
type mysqlTrackPlaylistRepository struct {
	DB *sql.DB
}

// NewMySQLTrackPlaylistRepository creates a new instance of mysqlTrackPlaylistRepository.
func NewMySQLTrackPlaylistRepository(database *sql.DB) TrackPlaylistRepository {
	return &mysqlTrackPlaylistRepository{DB: database}
}

// insertMembership is shared by the repository and the transactional path.
func insertMembership(ctx context.Context, q db.Queryer, playlistID, trackID int64) error {
	query := `INSERT INTO track_playlists (track_id, playlist_id, created_at) VALUES (?, ?, ?)`
	if _, err := q.ExecContext(ctx, query, trackID, playlistID, time.Now()); err != nil {
		return fmt.Errorf("failed to insert membership (track %d, playlist %d): %w", trackID, playlistID, err)
	}
	return nil
}

// TrackIDsByPlaylist returns the ids of all member tracks, in membership order.
func (r *mysqlTrackPlaylistRepository) TrackIDsByPlaylist(ctx context.Context, playlistID int64) ([]int64, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT track_id FROM track_playlists WHERE playlist_id = ? ORDER BY id`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query membership for playlist %d: %w", playlistID, err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan track id in TrackIDsByPlaylist: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in TrackIDsByPlaylist: %w", err)
	}
	return ids, nil
}

// Add inserts a membership row.
func (r *mysqlTrackPlaylistRepository) Add(ctx context.Context, playlistID, trackID int64) error {
	return insertMembership(ctx, r.DB, playlistID, trackID)
}

// Remove deletes the membership for exactly the given pair and reports
// whether a row was removed. Removing an absent membership is not an error.
func (r *mysqlTrackPlaylistRepository) Remove(ctx context.Context, playlistID, trackID int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM track_playlists WHERE playlist_id = ? AND track_id = ?`, playlistID, trackID)
	if err != nil {
		return false, fmt.Errorf("failed to delete membership (track %d, playlist %d): %w", trackID, playlistID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected for membership delete: %w", err)
	}
	return affected > 0, nil
}

// Exists reports whether the membership row is present.
func (r *mysqlTrackPlaylistRepository) Exists(ctx context.Context, playlistID, trackID int64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		`SELECT 1 FROM track_playlists WHERE playlist_id = ? AND track_id = ?`, playlistID, trackID).Scan(&one)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to check membership (track %d, playlist %d): %w", trackID, playlistID, err)
	}
	return true, nil
}

// ListTracksByPlaylist returns a page of the playlist's member tracks in
// membership order. Asset URIs of hidden tracks the viewer does not own are
// blanked here so no response path can leak them.
func (r *mysqlTrackPlaylistRepository) ListTracksByPlaylist(ctx context.Context, playlistID, viewerUserID int64, offset, limit int) ([]*model.Track, error) {
	query := `SELECT t.id, t.owner_user_id, t.name, t.author, t.visibility, t.track_uri, t.cover_uri, t.created_at, t.updated_at
	           FROM track_playlists tp
	           JOIN tracks t ON t.id = tp.track_id
	           WHERE tp.playlist_id = ?
	           ORDER BY tp.id
	           LIMIT ? OFFSET ?`
	rows, err := r.DB.QueryContext(ctx, query, playlistID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks of playlist %d: %w", playlistID, err)
	}
	defer rows.Close()

	tracks := make([]*model.Track, 0)
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track in ListTracksByPlaylist: %w", err)
		}
		if track.Visibility == model.TrackHidden && track.OwnerUserID != viewerUserID {
			track.TrackURI = ""
			track.CoverURI = ""
		}
		tracks = append(tracks, track)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in ListTracksByPlaylist: %w", err)
	}
	return tracks, nil
}

// CountByPlaylist counts the playlist's memberships.
func (r *mysqlTrackPlaylistRepository) CountByPlaylist(ctx context.Context, playlistID int64) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM track_playlists WHERE playlist_id = ?`, playlistID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count membership of playlist %d: %w", playlistID, err)
	}
	return count, nil
}
