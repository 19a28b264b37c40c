package dto

import (
	"time"

	"github.com/keyadjusting/contractor-portal/internal/models"
	"github.com/keyadjusting/contractor-portal/internal/services"
)

// UserDTO represents a user in API responses. The password hash never
// appears in any outward shape.
type UserDTO struct {
	ID           uint64               `json:"id"`
	Email        string               `json:"email"`
	Name         string               `json:"name"`
	ContractorID string               `json:"contractor_id"`
	Role         models.Role          `json:"role"`
	IsAdmin      bool                 `json:"is_admin"`
	Status       models.AccountStatus `json:"status"`
	LastLogin    *time.Time           `json:"last_login,omitempty"`
}

// AuthResponse is the JSON body returned by signup, login and refresh.
type AuthResponse struct {
	Message string              `json:"message"`
	User    UserDTO             `json:"user"`
	Tokens  *services.TokenPair `json:"tokens"`
}

// UserListResponse represents a paginated admin listing of users.
type UserListResponse struct {
	Users    []UserDTO `json:"users"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	Total    int64     `json:"total"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		ContractorID: user.ContractorID,
		Role:         user.Role,
		IsAdmin:      user.IsAdmin,
		Status:       user.Status,
		LastLogin:    user.LastLogin,
	}
}
