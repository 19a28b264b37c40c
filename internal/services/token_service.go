package services

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/keyadjusting/contractor-portal/internal/models"
)

const (
	tokenIssuer      = "contractor-portal"
	tokenAudience    = "contractor-portal-users"
	refreshTokenType = "refresh"
)

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrWrongTokenType  = errors.New("wrong token type")
	ErrMalformedHeader = errors.New("invalid authorization header format, expected: Bearer <token>")
)

// AccessClaims is the payload carried by short-lived access tokens.
type AccessClaims struct {
	jwt.RegisteredClaims
	UserID       uint64      `json:"uid"`
	Email        string      `json:"email"`
	Name         string      `json:"name"`
	ContractorID string      `json:"contractor_id"`
	Role         models.Role `json:"role"`
	IsAdmin      bool        `json:"is_admin"`
	UserType     string      `json:"user_type"`
}

// RefreshClaims is the payload carried by refresh tokens. TokenType marks the
// token so a refresh token can never pass for an access token, on top of the
// distinct signing secret.
type RefreshClaims struct {
	jwt.RegisteredClaims
	UserID    uint64 `json:"uid"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
}

// TokenPair bundles a freshly issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// TokenService issues and verifies signed tokens. It is stateless: nothing
// beyond the configured secrets and expiries.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenService creates a new TokenService.
func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// RefreshTTL exposes the configured refresh expiry for storage-TTL alignment.
func (s *TokenService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// AccessTTL exposes the configured access expiry for cookie max-age alignment.
func (s *TokenService) AccessTTL() time.Duration {
	return s.accessTTL
}

// IssueTokenPair signs a new access/refresh pair for the user.
func (s *TokenService) IssueTokenPair(user *models.User) (*TokenPair, error) {
	now := time.Now()
	accessExpiry := now.Add(s.accessTTL)

	access := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExpiry),
		},
		UserID:       user.ID,
		Email:        user.Email,
		Name:         user.Name,
		ContractorID: user.ContractorID,
		Role:         user.Role,
		IsAdmin:      user.IsAdmin,
		UserType:     user.UserType,
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, access).SignedString(s.accessSecret)
	if err != nil {
		return nil, err
	}

	// The jti makes every issued token unique even within clock
	// granularity, so rotation always produces a distinct refresh token.
	refresh := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
		},
		UserID:    user.ID,
		Email:     user.Email,
		TokenType: refreshTokenType,
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refresh).SignedString(s.refreshSecret)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    accessExpiry,
	}, nil
}

// VerifyAccessToken validates signature, issuer, audience and expiry.
func (s *TokenService) VerifyAccessToken(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) { return s.accessSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefreshToken validates the token and additionally requires the
// refresh token-type marker; a valid signature with the wrong marker is a
// distinct failure to aid diagnosis.
func (s *TokenService) VerifyRefreshToken(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) { return s.refreshSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != refreshTokenType {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// ExtractBearerToken pulls the token out of an Authorization header value.
// Only the exact two-part "Bearer <token>" form is accepted.
func (s *TokenService) ExtractBearerToken(headerValue string) (string, error) {
	if headerValue == "" {
		return "", ErrMalformedHeader
	}
	parts := strings.Split(headerValue, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", ErrMalformedHeader
	}
	return parts[1], nil
}
