package models

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleMasterAdmin Role = "master_admin"
	RoleAdmin       Role = "admin"
	RoleUser        Role = "user"
)

type AccountStatus string

const (
	StatusActive    AccountStatus = "active"
	StatusInactive  AccountStatus = "inactive"
	StatusSuspended AccountStatus = "suspended"
)

type User struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	Email        string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"type:varchar(255);not null" json:"-"`
	Name         string         `gorm:"type:varchar(255);not null" json:"name"`
	ContractorID string         `gorm:"type:varchar(64);not null;index" json:"contractor_id"`
	Role         Role           `gorm:"type:varchar(32);default:user" json:"role"`
	IsAdmin      bool           `gorm:"default:false" json:"is_admin"`
	Status       AccountStatus  `gorm:"type:varchar(32);default:active" json:"status"`
	UserType     string         `gorm:"type:varchar(32);default:contractor" json:"user_type"`
	LastLogin    *time.Time     `json:"last_login"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	RefreshTokens []RefreshToken `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	LoginHistory  []LoginRecord  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// HasAdminAccess reports whether the user may reach admin surfaces.
func (u *User) HasAdminAccess() bool {
	return u.IsAdmin || u.Role == RoleAdmin || u.Role == RoleMasterAdmin
}
