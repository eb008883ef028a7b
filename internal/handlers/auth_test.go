package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func setupAuthRouter(env *handlerTestEnv) *gin.Engine {
	handler := NewAuthHandler(env.authService)
	r := gin.New()
	r.POST("/api/auth/register", handler.Register)
	r.POST("/api/auth/login", handler.Login)
	r.GET("/api/auth/me", env.requireAuth(), handler.Me)
	r.POST("/api/auth/logout", env.requireAuth(), handler.Logout)
	return r
}

func TestAuthHandler_Register(t *testing.T) {
	env := setupHandlerTestEnv(t)
	org := env.createOrganization(t, "Chess Club", true)
	r := setupAuthRouter(env)

	w := perform(r, jsonRequest(t, http.MethodPost, "/api/auth/register", gin.H{
		"email":           "new@example.com",
		"password":        "Password-1",
		"first_name":      "Nora",
		"organization_id": org.ID,
	}))
	require.Equal(t, http.StatusCreated, w.Code)

	body := decodeBody(t, w)
	require.Equal(t, "new@example.com", body["email"])

	// Duplicate registration conflicts.
	w = perform(r, jsonRequest(t, http.MethodPost, "/api/auth/register", gin.H{
		"email":           "new@example.com",
		"password":        "Password-1",
		"organization_id": org.ID,
	}))
	require.Equal(t, http.StatusConflict, w.Code)

	// A weak password is a client error, not a conflict.
	w = perform(r, jsonRequest(t, http.MethodPost, "/api/auth/register", gin.H{
		"email":           "other@example.com",
		"password":        "nope",
		"organization_id": org.ID,
	}))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_LoginAndMe(t *testing.T) {
	env := setupHandlerTestEnv(t)
	org := env.createOrganization(t, "Chess Club", true)
	env.createUser(t, "member@example.com", "Password-1", org, false)
	r := setupAuthRouter(env)

	w := perform(r, jsonRequest(t, http.MethodPost, "/api/auth/login", gin.H{
		"email":    "member@example.com",
		"password": "Password-1",
	}))
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	token, ok := body["token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)

	req := jsonRequest(t, http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = perform(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "member@example.com", decodeBody(t, w)["email"])

	// Without a token the endpoint is closed.
	w = perform(r, jsonRequest(t, http.MethodGet, "/api/auth/me", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_LoginRejectsBadCredentials(t *testing.T) {
	env := setupHandlerTestEnv(t)
	org := env.createOrganization(t, "Chess Club", true)
	env.createUser(t, "member@example.com", "Password-1", org, false)
	r := setupAuthRouter(env)

	w := perform(r, jsonRequest(t, http.MethodPost, "/api/auth/login", gin.H{
		"email":    "member@example.com",
		"password": "wrong",
	}))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_Logout(t *testing.T) {
	env := setupHandlerTestEnv(t)
	org := env.createOrganization(t, "Chess Club", true)
	env.createUser(t, "member@example.com", "Password-1", org, false)
	r := setupAuthRouter(env)

	token := env.login(t, "member@example.com", "Password-1")

	req := jsonRequest(t, http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := perform(r, req)
	require.Equal(t, http.StatusOK, w.Code)

	// The revoked token no longer authenticates.
	req = jsonRequest(t, http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = perform(r, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
