package model

import "time"

// PlaylistPermission is the access tier a non-owner may hold on a playlist.
// Tiers do not stack; a user's effective access is the maximum tier across
// ownership and any granted rows.
type PlaylistPermission int8

const (
	PermissionFull                  PlaylistPermission = 0
	PermissionAllowedToModifyTracks PlaylistPermission = 1
	PermissionAllowedToView         PlaylistPermission = 2
)

// PlaylistUserPermission grants one user one permission tier on one playlist.
type PlaylistUserPermission struct {
	ID         int64              `json:"id" gorm:"primaryKey;autoIncrement"`
	PlaylistID int64              `json:"playlistId" gorm:"not null;uniqueIndex:uq_playlist_user_permission;index"`
	UserID     int64              `json:"userId" gorm:"not null;uniqueIndex:uq_playlist_user_permission"`
	Permission PlaylistPermission `json:"permission" gorm:"not null;uniqueIndex:uq_playlist_user_permission"`

	CreatedAt time.Time `json:"createdAt"`
}
