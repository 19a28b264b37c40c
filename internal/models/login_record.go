package models

import "time"

// LoginRecord is one entry in a user's login history.
type LoginRecord struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	UserID    uint64    `gorm:"index;not null" json:"user_id"`
	Timestamp time.Time `gorm:"not null" json:"timestamp"`
	IP        string    `gorm:"type:varchar(64)" json:"ip"`
	UserAgent string    `gorm:"type:varchar(512)" json:"user_agent"`
}
