package constants

// Context and session keys
const (
	ContextKeyIdentity = "identity"
	SessionKeyUser     = "user"
	SessionCookieName  = "portal_session"
)

// Cookie names for JWT-based authentication
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// Validation constraints
const (
	MinPasswordLength = 8
)

// Per-user resource caps
const (
	MaxRefreshTokensPerUser = 5
	MaxLoginHistoryEntries  = 20
	MaxRecentComments       = 5
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)
