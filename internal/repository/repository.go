package repository

import (
	"time"

	"github.com/keyadjusting/contractor-portal/internal/models"
)

// UserRepository defines the interface for user and refresh-token data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByEmail finds a user by normalized email
	FindByEmail(email string) (*models.User, error)

	// List retrieves users with pagination (admin surface)
	List(filter UserFilter) ([]models.User, int64, error)

	// Update persists changes to a user
	Update(user *models.User) error

	// Delete removes a user along with its refresh tokens and login history
	Delete(id uint64) error

	// RecordLogin stamps the last-login time and appends a login-history
	// entry, trimming the history to its cap
	RecordLogin(userID uint64, ip, userAgent string, at time.Time) error

	// AddRefreshToken inserts a refresh token for the user, evicting the
	// oldest tokens so that at most the per-user cap remain
	AddRefreshToken(userID uint64, token, userAgent, ip string, expiresAt time.Time) error

	// ConsumeRefreshToken atomically deletes one live stored refresh token
	// and reports whether a row was actually consumed. Of concurrent callers
	// presenting the same token, exactly one observes true.
	ConsumeRefreshToken(userID uint64, token string) (bool, error)

	// RemoveRefreshToken deletes one stored refresh token
	RemoveRefreshToken(userID uint64, token string) error

	// RemoveAllRefreshTokens deletes every refresh token the user holds
	RemoveAllRefreshTokens(userID uint64) error

	// HasRefreshToken reports whether the user still holds the token and
	// the stored record is within its storage TTL
	HasRefreshToken(userID uint64, token string) (bool, error)
}

// UserFilter holds filtering options for listing users
type UserFilter struct {
	Status   *models.AccountStatus
	Role     *models.Role
	Page     int
	PageSize int
}
