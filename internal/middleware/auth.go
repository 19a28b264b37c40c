package middleware

import (
	"encoding/gob"
	"log"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/keyadjusting/contractor-portal/internal/constants"
	apierrors "github.com/keyadjusting/contractor-portal/internal/errors"
	"github.com/keyadjusting/contractor-portal/internal/models"
	"github.com/keyadjusting/contractor-portal/internal/services"
)

// Identity is the authenticated principal attached to the request context.
// A legacy-session identity carries only the subset the session stored.
type Identity struct {
	ID           uint64
	Email        string
	Name         string
	ContractorID string
	Role         models.Role
	IsAdmin      bool
	UserType     string
}

// SessionUser is the legacy session payload kept for backward compatibility
// with session-only clients.
type SessionUser struct {
	ID           uint64
	Email        string
	Name         string
	ContractorID string
}

func init() {
	gob.Register(SessionUser{})
}

// Authenticator resolves request credentials into an Identity. Strategies are
// tried in order; the first success short-circuits.
type Authenticator struct {
	tokens *services.TokenService
}

// NewAuthenticator creates a new Authenticator.
func NewAuthenticator(tokens *services.TokenService) *Authenticator {
	return &Authenticator{tokens: tokens}
}

// RequireAuth authenticates the request via bearer token, access-token cookie
// or legacy session, in that order. Token verification failure falls through
// to the session rather than aborting.
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := a.resolveIdentity(c)
		if !ok {
			rejectUnauthenticated(c)
			return
		}

		c.Set(constants.ContextKeyIdentity, identity)
		c.Next()
	}
}

// RequireAdmin authenticates like RequireAuth and additionally requires admin
// privileges before the handler runs.
func (a *Authenticator) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := a.resolveIdentity(c)
		if !ok {
			rejectUnauthenticated(c)
			return
		}

		if !identity.IsAdmin && identity.Role != models.RoleAdmin && identity.Role != models.RoleMasterAdmin {
			if wantsJSON(c) {
				apierrors.Forbidden(c, "Admin access required")
			} else {
				c.String(http.StatusForbidden, "Access Denied: admin privileges required")
			}
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyIdentity, identity)
		c.Next()
	}
}

func (a *Authenticator) resolveIdentity(c *gin.Context) (Identity, bool) {
	if identity, ok := a.tokenIdentity(c); ok {
		return identity, true
	}
	return sessionIdentity(c)
}

// tokenIdentity tries the Authorization header first, then the access-token
// cookie.
func (a *Authenticator) tokenIdentity(c *gin.Context) (Identity, bool) {
	var token string

	if header := c.GetHeader("Authorization"); header != "" {
		extracted, err := a.tokens.ExtractBearerToken(header)
		if err != nil {
			log.Printf("Token authentication failed: %v", err)
			return Identity{}, false
		}
		token = extracted
	} else if cookie, err := c.Cookie(constants.AccessTokenCookie); err == nil {
		token = cookie
	}

	if token == "" {
		return Identity{}, false
	}

	claims, err := a.tokens.VerifyAccessToken(token)
	if err != nil {
		log.Printf("Token authentication failed, trying session: %v", err)
		return Identity{}, false
	}

	return Identity{
		ID:           claims.UserID,
		Email:        claims.Email,
		Name:         claims.Name,
		ContractorID: claims.ContractorID,
		Role:         claims.Role,
		IsAdmin:      claims.IsAdmin,
		UserType:     claims.UserType,
	}, true
}

func sessionIdentity(c *gin.Context) (Identity, bool) {
	session := sessions.Default(c)
	raw := session.Get(constants.SessionKeyUser)
	if raw == nil {
		return Identity{}, false
	}

	user, ok := raw.(SessionUser)
	if !ok {
		return Identity{}, false
	}

	return Identity{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		ContractorID: user.ContractorID,
		Role:         models.RoleUser,
	}, true
}

func rejectUnauthenticated(c *gin.Context) {
	if wantsJSON(c) {
		apierrors.Unauthorized(c, "Authentication required")
	} else {
		c.Redirect(http.StatusFound, "/auth/login")
	}
	c.Abort()
}

func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

// GetIdentity retrieves the resolved identity from the request context.
func GetIdentity(c *gin.Context) (Identity, bool) {
	raw, exists := c.Get(constants.ContextKeyIdentity)
	if !exists {
		return Identity{}, false
	}
	identity, ok := raw.(Identity)
	return identity, ok
}
