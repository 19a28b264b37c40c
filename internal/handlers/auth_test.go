package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/keyadjusting/contractor-portal/internal/constants"
	"github.com/keyadjusting/contractor-portal/internal/dto"
	"github.com/keyadjusting/contractor-portal/internal/middleware"
	"github.com/keyadjusting/contractor-portal/internal/models"
	"github.com/keyadjusting/contractor-portal/internal/repository"
	"github.com/keyadjusting/contractor-portal/internal/services"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type authTestEnv struct {
	db          *gorm.DB
	router      *gin.Engine
	repo        repository.UserRepository
	authService *services.AuthService
}

func setupAuthTestEnv(t *testing.T) authTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.LoginRecord{},
	)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	repo := repository.NewUserRepository(db)
	tokens := services.NewTokenService("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
	authService := services.NewAuthService(repo, tokens)
	handler := NewAuthHandler(authService, false)
	authenticator := middleware.NewAuthenticator(tokens)

	r := gin.New()
	store := cookie.NewStore([]byte("secret"))
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	auth := r.Group("/auth")
	{
		auth.POST("/signup", handler.Signup)
		auth.POST("/login", handler.Login)
		auth.GET("/logout", handler.Logout)
		auth.POST("/logout-all", handler.LogoutAll)
		auth.POST("/refresh-token", handler.RefreshToken)
		auth.POST("/delete-account", authenticator.RequireAuth(), handler.DeleteAccount)
	}

	return authTestEnv{
		db:          db,
		router:      r,
		repo:        repo,
		authService: authService,
	}
}

func postJSON(t *testing.T, r *gin.Engine, path string, payload any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func cookieValue(cookies []*http.Cookie, name string) string {
	for _, c := range cookies {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func signupPayload(email string) map[string]string {
	return map[string]string{
		"email":        email,
		"password":     "supersecret",
		"name":         "Test Contractor",
		"contractorId": "abc123",
	}
}

func TestAuthHandler_Signup(t *testing.T) {
	env := setupAuthTestEnv(t)

	w := postJSON(t, env.router, "/auth/signup", signupPayload("newuser@example.com"), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response dto.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, "newuser@example.com", response.User.Email)
	require.NotNil(t, response.Tokens)
	require.NotEmpty(t, response.Tokens.AccessToken)
	require.NotEmpty(t, response.Tokens.RefreshToken)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookieValue(cookies, constants.AccessTokenCookie))
	require.NotEmpty(t, cookieValue(cookies, constants.RefreshTokenCookie))

	// The issued refresh token was persisted.
	held, err := env.repo.HasRefreshToken(response.User.ID, response.Tokens.RefreshToken)
	require.NoError(t, err)
	require.True(t, held)
}

func TestAuthHandler_SignupRedirectsBrowsers(t *testing.T) {
	env := setupAuthTestEnv(t)

	body, err := json.Marshal(signupPayload("newuser@example.com"))
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/dashboard", w.Header().Get("Location"))
}

func TestAuthHandler_SignupDuplicateEmail(t *testing.T) {
	env := setupAuthTestEnv(t)

	w := postJSON(t, env.router, "/auth/signup", signupPayload("dup@example.com"), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, env.router, "/auth/signup", signupPayload("dup@example.com"), nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_SignupRequiresContractorID(t *testing.T) {
	env := setupAuthTestEnv(t)

	payload := signupPayload("newuser@example.com")
	delete(payload, "contractorId")

	w := postJSON(t, env.router, "/auth/signup", payload, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_LoginInvalidCredentials(t *testing.T) {
	env := setupAuthTestEnv(t)
	postJSON(t, env.router, "/auth/signup", signupPayload("a@b.com"), nil)

	wrongPassword := postJSON(t, env.router, "/auth/login",
		map[string]string{"email": "a@b.com", "password": "wrong"}, nil)
	unknownEmail := postJSON(t, env.router, "/auth/login",
		map[string]string{"email": "nobody@b.com", "password": "supersecret"}, nil)

	require.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	require.Equal(t, http.StatusUnauthorized, unknownEmail.Code)

	// The two failures are indistinguishable: no account-existence leak.
	require.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestAuthHandler_LoginRecordsHistory(t *testing.T) {
	env := setupAuthTestEnv(t)
	postJSON(t, env.router, "/auth/signup", signupPayload("a@b.com"), nil)

	w := postJSON(t, env.router, "/auth/login",
		map[string]string{"email": "a@b.com", "password": "supersecret"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response dto.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	var historyCount int64
	require.NoError(t, env.db.Model(&models.LoginRecord{}).
		Where("user_id = ?", response.User.ID).Count(&historyCount).Error)
	require.EqualValues(t, 1, historyCount)

	var user models.User
	require.NoError(t, env.db.First(&user, response.User.ID).Error)
	require.NotNil(t, user.LastLogin)
}

func TestAuthHandler_RefreshTokenRotation(t *testing.T) {
	env := setupAuthTestEnv(t)

	w := postJSON(t, env.router, "/auth/signup", signupPayload("a@b.com"), nil)
	var signup dto.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &signup))

	oldToken := signup.Tokens.RefreshToken

	w = postJSON(t, env.router, "/auth/refresh-token",
		map[string]string{"refreshToken": oldToken}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var refreshed dto.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &refreshed))
	require.NotEqual(t, oldToken, refreshed.Tokens.RefreshToken)

	cookies := w.Result().Cookies()
	require.Equal(t, refreshed.Tokens.AccessToken, cookieValue(cookies, constants.AccessTokenCookie))
	require.Equal(t, refreshed.Tokens.RefreshToken, cookieValue(cookies, constants.RefreshTokenCookie))

	// The rotated-out token is rejected the second time.
	w = postJSON(t, env.router, "/auth/refresh-token",
		map[string]string{"refreshToken": oldToken}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_RefreshTokenFromCookie(t *testing.T) {
	env := setupAuthTestEnv(t)

	w := postJSON(t, env.router, "/auth/signup", signupPayload("a@b.com"), nil)
	refreshCookie := cookieValue(w.Result().Cookies(), constants.RefreshTokenCookie)
	require.NotEmpty(t, refreshCookie)

	w = postJSON(t, env.router, "/auth/refresh-token", map[string]string{},
		[]*http.Cookie{{Name: constants.RefreshTokenCookie, Value: refreshCookie}})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAuthHandler_RefreshTokenMissing(t *testing.T) {
	env := setupAuthTestEnv(t)

	w := postJSON(t, env.router, "/auth/refresh-token", map[string]string{}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_Logout(t *testing.T) {
	env := setupAuthTestEnv(t)

	w := postJSON(t, env.router, "/auth/signup", signupPayload("a@b.com"), nil)
	var signup dto.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &signup))
	refreshToken := signup.Tokens.RefreshToken

	req := httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: constants.RefreshTokenCookie, Value: refreshToken})
	logoutW := httptest.NewRecorder()
	env.router.ServeHTTP(logoutW, req)

	require.Equal(t, http.StatusFound, logoutW.Code)
	require.Equal(t, "/", logoutW.Header().Get("Location"))

	// Cookies cleared and the stored token revoked.
	cookies := logoutW.Result().Cookies()
	require.Empty(t, cookieValue(cookies, constants.AccessTokenCookie))
	require.Empty(t, cookieValue(cookies, constants.RefreshTokenCookie))

	held, err := env.repo.HasRefreshToken(signup.User.ID, refreshToken)
	require.NoError(t, err)
	require.False(t, held)
}

func TestAuthHandler_LogoutAll(t *testing.T) {
	env := setupAuthTestEnv(t)

	w := postJSON(t, env.router, "/auth/signup", signupPayload("a@b.com"), nil)
	var signup dto.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &signup))

	// Two more logins, three active refresh tokens in total.
	refreshTokens := []string{signup.Tokens.RefreshToken}
	for i := 0; i < 2; i++ {
		loginW := postJSON(t, env.router, "/auth/login",
			map[string]string{"email": "a@b.com", "password": "supersecret"}, nil)
		require.Equal(t, http.StatusOK, loginW.Code)
		var login dto.AuthResponse
		require.NoError(t, json.Unmarshal(loginW.Body.Bytes(), &login))
		refreshTokens = append(refreshTokens, login.Tokens.RefreshToken)
	}

	var count int64
	require.NoError(t, env.db.Model(&models.RefreshToken{}).
		Where("user_id = ?", signup.User.ID).Count(&count).Error)
	require.EqualValues(t, 3, count)

	w = postJSON(t, env.router, "/auth/logout-all", map[string]string{},
		[]*http.Cookie{{Name: constants.RefreshTokenCookie, Value: refreshTokens[2]}})
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, env.db.Model(&models.RefreshToken{}).
		Where("user_id = ?", signup.User.ID).Count(&count).Error)
	require.EqualValues(t, 0, count)

	// Every revoked token is now rejected by the refresh endpoint.
	for _, token := range refreshTokens {
		refreshW := postJSON(t, env.router, "/auth/refresh-token",
			map[string]string{"refreshToken": token}, nil)
		require.Equal(t, http.StatusUnauthorized, refreshW.Code)
	}
}

func TestAuthHandler_DeleteAccount(t *testing.T) {
	env := setupAuthTestEnv(t)

	w := postJSON(t, env.router, "/auth/signup", signupPayload("a@b.com"), nil)
	var signup dto.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &signup))

	req := httptest.NewRequest(http.MethodPost, "/auth/delete-account", nil)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+signup.Tokens.AccessToken)
	deleteW := httptest.NewRecorder()
	env.router.ServeHTTP(deleteW, req)

	require.Equal(t, http.StatusOK, deleteW.Code)

	var userCount, tokenCount int64
	require.NoError(t, env.db.Model(&models.User{}).Count(&userCount).Error)
	require.NoError(t, env.db.Model(&models.RefreshToken{}).Count(&tokenCount).Error)
	require.EqualValues(t, 0, userCount)
	require.EqualValues(t, 0, tokenCount)
}

func TestAuthHandler_DeleteAccountRequiresAuth(t *testing.T) {
	env := setupAuthTestEnv(t)

	w := postJSON(t, env.router, "/auth/delete-account", map[string]string{}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
