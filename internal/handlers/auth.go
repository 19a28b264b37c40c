package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/keyadjusting/contractor-portal/internal/constants"
	"github.com/keyadjusting/contractor-portal/internal/dto"
	apierrors "github.com/keyadjusting/contractor-portal/internal/errors"
	"github.com/keyadjusting/contractor-portal/internal/middleware"
	"github.com/keyadjusting/contractor-portal/internal/models"
	"github.com/keyadjusting/contractor-portal/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService  *services.AuthService
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler. secureCookie should be true in
// production so auth cookies are HTTPS-only.
func NewAuthHandler(authService *services.AuthService, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		secureCookie: secureCookie,
	}
}

// Signup registers a new user and logs them straight in with a token pair.
func (h *AuthHandler) Signup(c *gin.Context) {
	type SignupRequest struct {
		Email        string `form:"email" json:"email" binding:"required"`
		Password     string `form:"password" json:"password" binding:"required"`
		Name         string `form:"name" json:"name" binding:"required"`
		ContractorID string `form:"contractorId" json:"contractorId"`
	}

	var req SignupRequest
	if err := c.ShouldBind(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.Signup(services.SignupInput{
		Email:        req.Email,
		Password:     req.Password,
		Name:         req.Name,
		ContractorID: req.ContractorID,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrContractorIDRequired):
			apierrors.BadRequest(c, "Contractor ID is required")
		case errors.Is(err, services.ErrDuplicateEmail):
			apierrors.BadRequest(c, "Email already exists")
		case errors.Is(err, services.ErrPasswordTooShort):
			apierrors.BadRequest(c, fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength))
		default:
			log.Printf("Signup error: %v", err)
			apierrors.InternalError(c, "Error creating user")
		}
		return
	}

	h.establishSession(c, user, "Signup successful")
}

// Login authenticates a user, issues a token pair and records the login.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Email    string `form:"email" json:"email" binding:"required"`
		Password string `form:"password" json:"password" binding:"required"`
	}

	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.Login(services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			// One message for unknown email and wrong password alike.
			if wantsJSON(c) {
				apierrors.Unauthorized(c, "Invalid email or password")
			} else {
				c.Redirect(http.StatusFound, "/auth/login")
			}
			return
		}
		log.Printf("Login error: %v", err)
		apierrors.InternalError(c, "An error occurred during login")
		return
	}

	if err := h.authService.RecordLogin(user, c.ClientIP(), c.GetHeader("User-Agent")); err != nil {
		log.Printf("Failed to record login for user %d: %v", user.ID, err)
	}

	h.establishSession(c, user, "Login successful")
}

// Logout removes the presented refresh token best-effort, clears both auth
// cookies and destroys the legacy session.
func (h *AuthHandler) Logout(c *gin.Context) {
	if refreshToken, err := c.Cookie(constants.RefreshTokenCookie); err == nil && refreshToken != "" {
		h.authService.Logout(refreshToken)
	}

	h.clearAuthCookies(c)
	destroySession(c)

	c.Redirect(http.StatusFound, "/")
}

// LogoutAll revokes every refresh token for the user resolved from the
// refresh-token cookie or, failing that, the legacy session.
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	var userID uint64

	if refreshToken, err := c.Cookie(constants.RefreshTokenCookie); err == nil && refreshToken != "" {
		if id, ok := h.authService.UserIDFromRefreshToken(refreshToken); ok {
			userID = id
		}
	}
	if userID == 0 {
		session := sessions.Default(c)
		if raw := session.Get(constants.SessionKeyUser); raw != nil {
			if user, ok := raw.(middleware.SessionUser); ok {
				userID = user.ID
			}
		}
	}

	if userID != 0 {
		if err := h.authService.LogoutAll(userID); err != nil {
			log.Printf("Logout-all error for user %d: %v", userID, err)
			if wantsJSON(c) {
				apierrors.InternalError(c, "Error during logout")
				return
			}
		}
	}

	h.clearAuthCookies(c)
	destroySession(c)

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"message": "Logged out from all devices"})
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// RefreshToken rotates a refresh token for a brand-new pair. The presented
// token must verify and still be held in the store; a token already rotated
// out fails here with 401.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	type RefreshRequest struct {
		RefreshToken string `form:"refreshToken" json:"refreshToken"`
	}

	var req RefreshRequest
	_ = c.ShouldBind(&req)

	token := req.RefreshToken
	if token == "" {
		if cookie, err := c.Cookie(constants.RefreshTokenCookie); err == nil {
			token = cookie
		}
	}
	if token == "" {
		apierrors.Unauthorized(c, "Refresh token required")
		return
	}

	user, pair, err := h.authService.Refresh(token, c.GetHeader("User-Agent"), c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidToken), errors.Is(err, services.ErrWrongTokenType):
			apierrors.InvalidToken(c, "Invalid or expired refresh token")
		default:
			log.Printf("Token refresh error: %v", err)
			apierrors.InvalidToken(c, "Invalid or expired refresh token")
		}
		return
	}

	h.setAuthCookies(c, pair)

	c.JSON(http.StatusOK, dto.AuthResponse{
		Message: "Tokens refreshed successfully",
		User:    dto.ToUserDTO(*user),
		Tokens:  pair,
	})
}

// DeleteAccount removes the authenticated user; refresh tokens cascade.
func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	if err := h.authService.DeleteAccount(identity.ID); err != nil {
		log.Printf("Account deletion error for user %d: %v", identity.ID, err)
		apierrors.InternalError(c, "Error deleting account")
		return
	}

	h.clearAuthCookies(c)
	destroySession(c)

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// establishSession issues tokens, persists the refresh token, sets cookies
// and mirrors a subset into the legacy session.
func (h *AuthHandler) establishSession(c *gin.Context, user *models.User, message string) {
	pair, err := h.authService.IssueSession(user, c.GetHeader("User-Agent"), c.ClientIP())
	if err != nil {
		log.Printf("Failed to establish session for user %d: %v", user.ID, err)
		apierrors.InternalError(c, "Error creating session")
		return
	}

	h.setAuthCookies(c, pair)

	session := sessions.Default(c)
	session.Set(constants.SessionKeyUser, middleware.SessionUser{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		ContractorID: user.ContractorID,
	})
	if err := session.Save(); err != nil {
		log.Printf("Failed to save session for user %d: %v", user.ID, err)
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, dto.AuthResponse{
			Message: message,
			User:    dto.ToUserDTO(*user),
			Tokens:  pair,
		})
		return
	}
	c.Redirect(http.StatusFound, "/dashboard")
}

func (h *AuthHandler) setAuthCookies(c *gin.Context, pair *services.TokenPair) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(constants.AccessTokenCookie, pair.AccessToken,
		int(h.authService.AccessTTL().Seconds()), "/", "", h.secureCookie, true)
	c.SetCookie(constants.RefreshTokenCookie, pair.RefreshToken,
		int(h.authService.RefreshTTL().Seconds()), "/", "", h.secureCookie, true)
}

func (h *AuthHandler) clearAuthCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(constants.AccessTokenCookie, "", -1, "/", "", h.secureCookie, true)
	c.SetCookie(constants.RefreshTokenCookie, "", -1, "/", "", h.secureCookie, true)
}

func destroySession(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		log.Printf("Failed to destroy session: %v", err)
	}
}

func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}
