package model

import "time"

// User represents a registered listener.
type User struct {
	ID           int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Username     string `json:"username" gorm:"size:100;not null"`
	Email        string `json:"email" gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string `json:"-" gorm:"size:255;not null"`

	// FavoritePlaylistID points at the private playlist backing the user's
	// liked tracks. Set once at registration, in the same transaction that
	// creates the playlist.
	FavoritePlaylistID int64 `json:"favoritePlaylistId" gorm:"not null"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}
