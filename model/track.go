package model

import "time"

// TrackVisibility controls whether a track's asset is exposed to non-owners.
type TrackVisibility int8

const (
	TrackHidden  TrackVisibility = 0
	TrackVisible TrackVisibility = 1
)

// Track represents an uploaded audio asset and its metadata.
type Track struct {
	ID          int64           `json:"id" gorm:"primaryKey;autoIncrement"`
	OwnerUserID int64           `json:"ownerUserId" gorm:"not null;index"`
	Name        string          `json:"name" gorm:"size:255;not null"`
	Author      string          `json:"author" gorm:"size:255;not null"`
	Visibility  TrackVisibility `json:"visibility" gorm:"not null;default:0"`
	TrackURI    string          `json:"trackUri,omitempty" gorm:"size:767"`
	CoverURI    string          `json:"coverUri,omitempty" gorm:"size:767"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}
