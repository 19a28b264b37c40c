package models

import "time"

// RefreshToken is one active login for a user. The stored ExpiresAt is a
// storage-level TTL enforced independently of the expiry embedded in the
// signed token itself; both must hold for the record to be usable.
type RefreshToken struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	UserID    uint64    `gorm:"index;not null" json:"user_id"`
	Token     string    `gorm:"type:varchar(1024);not null" json:"-"`
	UserAgent string    `gorm:"type:varchar(512)" json:"user_agent"`
	IP        string    `gorm:"type:varchar(64)" json:"ip"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
}

func (t *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
