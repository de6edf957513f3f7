package models

import "time"

// DailyMissionRecord stores the completion state of one mission type for one
// user on one calendar date. At most one row exists per (user, date, type);
// rows are never deleted and Completed never goes back to false.
type DailyMissionRecord struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"index:idx_mission_user_date_type,unique;not null" json:"user_id"`
	Date        time.Time  `gorm:"index:idx_mission_user_date_type,unique;type:date;not null" json:"date"`
	MissionType string     `gorm:"index:idx_mission_user_date_type,unique;size:20;not null" json:"mission_type"`
	Completed   bool       `gorm:"not null;default:false" json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
}
