package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/keyadjusting/contractor-portal/internal/constants"
	"github.com/keyadjusting/contractor-portal/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

var (
	// ErrDuplicateEmail is returned when creating a user whose email is taken.
	ErrDuplicateEmail = errors.New("user repository: email already exists")
)

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(user *models.User) error {
	var count int64
	if err := r.db.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return ErrDuplicateEmail
	}
	if err := r.db.Create(user).Error; err != nil {
		// The unique email index is the real guard; the count above only
		// catches the common case before a write is attempted.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by normalized email
func (r *GormUserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List retrieves users with pagination
func (r *GormUserRepository) List(filter UserFilter) ([]models.User, int64, error) {
	query := r.db.Model(&models.User{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = constants.DefaultPageSize
	}

	var users []models.User
	err := query.
		Order("created_at DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Update persists changes to a user
func (r *GormUserRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// Delete removes a user and its owned records
func (r *GormUserRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.LoginRecord{}).Error; err != nil {
			return err
		}
		// Hard delete: a soft-deleted row would keep holding the unique
		// email index against re-signup.
		return tx.Unscoped().Delete(&models.User{}, id).Error
	})
}

// RecordLogin stamps last-login and appends a capped history entry
func (r *GormUserRepository) RecordLogin(userID uint64, ip, userAgent string, at time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Update("last_login", at).Error; err != nil {
			return err
		}

		record := models.LoginRecord{
			UserID:    userID,
			Timestamp: at,
			IP:        ip,
			UserAgent: userAgent,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		// Trim history beyond the cap, oldest first.
		var stale []models.LoginRecord
		err := tx.Where("user_id = ?", userID).
			Order("timestamp DESC, id DESC").
			Offset(constants.MaxLoginHistoryEntries).
			Find(&stale).Error
		if err != nil {
			return err
		}
		if len(stale) > 0 {
			ids := make([]uint64, 0, len(stale))
			for _, s := range stale {
				ids = append(ids, s.ID)
			}
			if err := tx.Delete(&models.LoginRecord{}, ids).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// AddRefreshToken inserts a token while holding a row lock on the owning user
// so concurrent logins cannot race the eviction past the per-user cap.
func (r *GormUserRepository) AddRefreshToken(userID uint64, token, userAgent, ip string, expiresAt time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		// sqlite has no row locks; its single-writer model already
		// serializes this transaction.
		locked := tx
		if tx.Dialector.Name() != "sqlite" {
			locked = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var user models.User
		if err := locked.First(&user, userID).Error; err != nil {
			return err
		}

		now := time.Now()
		if err := tx.Where("user_id = ? AND expires_at <= ?", userID, now).
			Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}

		// Keep the newest cap-1 so the insert below lands the set at the cap.
		// The id tiebreak keeps eviction deterministic when timestamps
		// collide within the database's granularity.
		var surplus []models.RefreshToken
		err := tx.Where("user_id = ?", userID).
			Order("created_at DESC, id DESC").
			Offset(constants.MaxRefreshTokensPerUser - 1).
			Find(&surplus).Error
		if err != nil {
			return err
		}
		if len(surplus) > 0 {
			ids := make([]uint64, 0, len(surplus))
			for _, s := range surplus {
				ids = append(ids, s.ID)
			}
			if err := tx.Delete(&models.RefreshToken{}, ids).Error; err != nil {
				return err
			}
		}

		record := models.RefreshToken{
			UserID:    userID,
			Token:     token,
			UserAgent: userAgent,
			IP:        ip,
			ExpiresAt: expiresAt,
		}
		return tx.Create(&record).Error
	})
}

// ConsumeRefreshToken deletes one live stored refresh token in a single
// statement. The delete itself is the win condition: only one of any
// concurrent callers presenting the same token sees a row affected.
func (r *GormUserRepository) ConsumeRefreshToken(userID uint64, token string) (bool, error) {
	res := r.db.Where("user_id = ? AND token = ? AND expires_at > ?", userID, token, time.Now()).
		Delete(&models.RefreshToken{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RemoveRefreshToken deletes one stored refresh token
func (r *GormUserRepository) RemoveRefreshToken(userID uint64, token string) error {
	return r.db.Where("user_id = ? AND token = ?", userID, token).
		Delete(&models.RefreshToken{}).Error
}

// RemoveAllRefreshTokens deletes every refresh token the user holds
func (r *GormUserRepository) RemoveAllRefreshTokens(userID uint64) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error
}

// HasRefreshToken reports whether a live stored record exists for the token
func (r *GormUserRepository) HasRefreshToken(userID uint64, token string) (bool, error) {
	var count int64
	err := r.db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND token = ? AND expires_at > ?", userID, token, time.Now()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
