package models

import "time"

// Profile keeps the reward state for one user. It is created lazily on the
// first mission interaction, points never go down and LastBonusDate marks
// the last day the all-missions bonus was paid out.
type Profile struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	Points        int        `gorm:"not null;default:0" json:"points"`
	LastBonusDate *time.Time `gorm:"type:date" json:"last_bonus_date"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
