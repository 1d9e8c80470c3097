package model

import "time"

// RefreshToken is a DB-persisted refresh credential. Jti correlates the row
// to the access token it was issued alongside; one unexpired, non-revoked
// token exists per active session.
type RefreshToken struct {
	ID       int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID   int64     `json:"userId" gorm:"not null;index"`
	Jti      string    `json:"jti" gorm:"size:36;not null;index"`
	Token    string    `json:"token" gorm:"size:36;not null;uniqueIndex"`
	ValidDue time.Time `json:"validDue" gorm:"not null"`
	Revoked  bool      `json:"revoked" gorm:"not null;default:false"`

	CreatedAt time.Time `json:"createdAt"`
}
