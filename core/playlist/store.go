package playlist

import (
	"context"

	"tunedeck/model"
)

// The engines consume narrow store interfaces so the decision logic stays
// testable without MySQL. The repository package provides the implementations.

// PlaylistStore reads playlist rows.
type PlaylistStore interface {
	// GetByID returns (nil, nil) when the playlist does not exist.
	GetByID(ctx context.Context, id int64) (*model.Playlist, error)
	NamesByOwner(ctx context.Context, ownerUserID int64) ([]string, error)
}

// TrackStore resolves track ids against the catalog.
type TrackStore interface {
	GetByIDs(ctx context.Context, ids []int64) ([]*model.Track, error)
}

// MembershipStore mutates track-playlist membership rows outside a
// transaction. Single-row operations are implicitly atomic at the storage
// layer.
type MembershipStore interface {
	TrackIDsByPlaylist(ctx context.Context, playlistID int64) ([]int64, error)
	Add(ctx context.Context, playlistID, trackID int64) error
	// Remove deletes the membership for exactly the given (playlist, track)
	// pair and reports whether a row was removed.
	Remove(ctx context.Context, playlistID, trackID int64) (bool, error)
}

// PermissionStore answers whether a grant row exists at any of the given tiers.
type PermissionStore interface {
	HasAnyPermission(ctx context.Context, playlistID, userID int64, tiers ...model.PlaylistPermission) (bool, error)
}

// UserStore resolves the acting user, needed to protect the favorite playlist.
type UserStore interface {
	// GetByID returns (nil, nil) when the user does not exist.
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// UnitOfWork demarcates atomic multi-step mutations. Begin fails if a
// transaction is already active on the same unit.
type UnitOfWork interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is an active transaction. Rollback after Commit is a no-op, so callers
// defer Rollback unconditionally.
type Tx interface {
	CreatePlaylist(ctx context.Context, p *model.Playlist) (int64, error)
	AddTrackToPlaylist(ctx context.Context, playlistID, trackID int64) error
	Commit() error
	Rollback() error
}
