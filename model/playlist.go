package model

import "time"

// PlaylistVisibility controls who may see a playlist without a permission grant.
type PlaylistVisibility int8

const (
	PlaylistPrivate PlaylistVisibility = 0
	PlaylistPublic  PlaylistVisibility = 1
)

// Playlist is an ordered collection of track memberships owned by one user.
type Playlist struct {
	ID          int64              `json:"id" gorm:"primaryKey;autoIncrement"`
	OwnerUserID int64              `json:"ownerUserId" gorm:"not null;index"`
	Name        string             `json:"name" gorm:"size:255;not null"`
	Visibility  PlaylistVisibility `json:"visibility" gorm:"not null;default:0"`
	CoverURI    string             `json:"coverUri,omitempty" gorm:"size:767"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// TrackPlaylist is a membership row binding one track to one playlist.
// At most one row may exist per (track, playlist) pair.
type TrackPlaylist struct {
	ID         int64 `json:"id" gorm:"primaryKey;autoIncrement"`
	TrackID    int64 `json:"trackId" gorm:"not null;uniqueIndex:uq_track_playlist"`
	PlaylistID int64 `json:"playlistId" gorm:"not null;uniqueIndex:uq_track_playlist;index"`

	CreatedAt time.Time `json:"createdAt"`
}
