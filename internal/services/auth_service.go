package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/keyadjusting/contractor-portal/internal/constants"
	"github.com/keyadjusting/contractor-portal/internal/models"
	"github.com/keyadjusting/contractor-portal/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrDuplicateEmail       = errors.New("email already exists")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrContractorIDRequired = errors.New("contractor ID is required")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrUserNotFound         = errors.New("user not found")
	ErrFailedToHashPassword = errors.New("failed to hash password")
)

// AuthService handles authentication and token lifecycle business logic.
type AuthService struct {
	userRepo repository.UserRepository
	tokens   *TokenService
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, tokens *TokenService) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

// SignupInput represents the required information to create a new user.
type SignupInput struct {
	Email        string
	Password     string
	Name         string
	ContractorID string
}

// NormalizeEmail trims and lowercases an email for uniqueness checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates a new user. The email is normalized before the uniqueness
// check; the password is stored only as a bcrypt hash.
func (s *AuthService) Signup(input SignupInput) (*models.User, error) {
	email := NormalizeEmail(input.Email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if strings.TrimSpace(input.ContractorID) == "" {
		return nil, ErrContractorIDRequired
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
		Name:         strings.TrimSpace(input.Name),
		ContractorID: strings.TrimSpace(input.ContractorID),
		Role:         models.RoleUser,
		Status:       models.StatusActive,
		UserType:     "contractor",
	}

	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and returns the authenticated user. Unknown
// email and wrong password collapse into the same error so account existence
// never leaks.
func (s *AuthService) Login(input LoginInput) (*models.User, error) {
	user, err := s.userRepo.FindByEmail(NormalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !s.VerifyPassword(user, input.Password) {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// VerifyPassword checks a plaintext password against the stored hash.
func (s *AuthService) VerifyPassword(user *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

// IssueSession signs a fresh token pair and persists the refresh token with
// its origin metadata. The stored record carries its own storage TTL,
// enforced independently of the expiry inside the signed token.
func (s *AuthService) IssueSession(user *models.User, userAgent, ip string) (*TokenPair, error) {
	pair, err := s.tokens.IssueTokenPair(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	expiresAt := time.Now().Add(s.tokens.RefreshTTL())
	if err := s.userRepo.AddRefreshToken(user.ID, pair.RefreshToken, userAgent, ip, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return pair, nil
}

// AccessTTL exposes the access-token lifetime for cookie max-age alignment.
func (s *AuthService) AccessTTL() time.Duration {
	return s.tokens.AccessTTL()
}

// RefreshTTL exposes the refresh-token lifetime for cookie max-age alignment.
func (s *AuthService) RefreshTTL() time.Duration {
	return s.tokens.RefreshTTL()
}

// RecordLogin stamps last-login and appends to the login history.
func (s *AuthService) RecordLogin(user *models.User, ip, userAgent string) error {
	return s.userRepo.RecordLogin(user.ID, ip, userAgent, time.Now())
}

// Refresh rotates a refresh token: the presented token must verify and still
// be present in the store for its user, then it is replaced by a new pair.
// Consuming the stored row is the win condition, so of concurrent refreshes
// presenting the same token exactly one succeeds; the rest fail with
// ErrInvalidToken.
func (s *AuthService) Refresh(refreshToken, userAgent, ip string) (*models.User, *TokenPair, error) {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}

	consumed, err := s.userRepo.ConsumeRefreshToken(user.ID, refreshToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	if !consumed {
		return nil, nil, ErrInvalidToken
	}

	pair, err := s.tokens.IssueTokenPair(user)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	expiresAt := time.Now().Add(s.tokens.RefreshTTL())
	if err := s.userRepo.AddRefreshToken(user.ID, pair.RefreshToken, userAgent, ip, expiresAt); err != nil {
		return nil, nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	return user, pair, nil
}

// Logout removes the presented refresh token from the store. Verification
// failures are tolerated: logout is best-effort.
func (s *AuthService) Logout(refreshToken string) {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return
	}
	_ = s.userRepo.RemoveRefreshToken(claims.UserID, refreshToken)
}

// LogoutAll revokes every refresh token the user holds.
func (s *AuthService) LogoutAll(userID uint64) error {
	return s.userRepo.RemoveAllRefreshTokens(userID)
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// DeleteAccount removes the user record; refresh tokens and login history
// cascade with it.
func (s *AuthService) DeleteAccount(userID uint64) error {
	return s.userRepo.Delete(userID)
}

// UserIDFromRefreshToken resolves the owning user of a refresh token without
// touching the store; used by logout-all where the token may be stale.
func (s *AuthService) UserIDFromRefreshToken(refreshToken string) (uint64, bool) {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return 0, false
	}
	return claims.UserID, true
}
