package server

import (
	"net/http"
	"testing"
	"time"

	"faithfulcity/internal/middleware"
	"faithfulcity/internal/models"
	"faithfulcity/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignup(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name           string
		body           map[string]any
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "Success",
			body: map[string]any{
				"email": "ruth@example.com", "password": testPassword, "display_name": "Ruth",
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "Duplicate email",
			body: map[string]any{
				"email": "RUTH@example.com", "password": testPassword, "display_name": "Ruth again",
			},
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   models.CodeAuth,
		},
		{
			name: "Weak password",
			body: map[string]any{
				"email": "naomi@example.com", "password": "short", "display_name": "Naomi",
			},
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   models.CodeAuth,
		},
		{
			name: "Missing display name",
			body: map[string]any{
				"email": "boaz@example.com", "password": testPassword,
			},
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   models.CodeAuth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.request(t, http.MethodPost, "/api/auth/signup", tt.body, "")
			assert.Equal(t, tt.expectedStatus, resp.StatusCode, string(body))
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decode[models.ErrorResponse](t, body).Code)
			}
		})
	}
}

func TestSignup_SessionToken(t *testing.T) {
	env := newTestEnv(t)

	session := env.signup(t, "Deborah@Example.com ", "Deborah", true)
	require.NotNil(t, session.User)
	assert.Equal(t, "deborah@example.com", session.User.Email)
	assert.Equal(t, models.RoleAdmin, session.User.Role)
	assert.WithinDuration(t, time.Now().Add(sessionTTL), session.ExpiresAt, time.Minute)

	claims, err := middleware.ParseToken(session.Token, env.srv.config.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "hannah@example.com", "Hannah", false)

	resp, body := env.request(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "hannah@example.com", "password": testPassword,
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	session := decode[service.Session](t, body)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, models.RoleMember, session.User.Role)

	resp, body = env.request(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "hannah@example.com", "password": "Wrong12345",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, models.CodeAuth, decode[models.ErrorResponse](t, body).Code)

	resp, _ = env.request(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "nobody@example.com", "password": testPassword,
	}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGetMyProfile(t *testing.T) {
	env := newTestEnv(t)
	session := env.signup(t, "esther@example.com", "Esther", false)

	resp, body := env.request(t, http.MethodGet, "/api/users/me", nil, session.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "Esther", decode[models.User](t, body).DisplayName)

	resp, _ = env.request(t, http.MethodGet, "/api/users/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.request(t, http.MethodGet, "/api/users/me", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGetMyProfile_MissingRecord(t *testing.T) {
	env := newTestEnv(t)
	session, err := env.srv.issueSession(&models.User{ID: "ghost"})
	require.NoError(t, err)

	resp, body := env.request(t, http.MethodGet, "/api/users/me", nil, session.Token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, models.CodeNotFound, decode[models.ErrorResponse](t, body).Code)
}

func TestLogout_RevokesToken(t *testing.T) {
	env := newTestEnv(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	// Rebuild the server over Redis so sign-out can revoke server side.
	srv, err := NewServer(env.srv.config, env.db, rdb, Deps{Blobs: env.blobs})
	require.NoError(t, err)
	t.Cleanup(srv.shutdownFn)
	env.srv, env.app = srv, srv.App()

	session := env.signup(t, "miriam@example.com", "Miriam", false)

	resp, _ := env.request(t, http.MethodPost, "/api/auth/logout", nil, session.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	claims, err := middleware.ParseToken(session.Token, env.srv.config.JWTSecret)
	require.NoError(t, err)
	assert.True(t, mr.Exists(middleware.RevokedTokenKey(claims.ID)))
	assert.Greater(t, mr.TTL(middleware.RevokedTokenKey(claims.ID)), time.Duration(0))

	resp, _ = env.request(t, http.MethodGet, "/api/users/me", nil, session.Token)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// A revoked token cannot be used to sign out again.
	resp, _ = env.request(t, http.MethodPost, "/api/auth/logout", nil, session.Token)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogout_WithoutRedis(t *testing.T) {
	env := newTestEnv(t)
	session := env.signup(t, "lydia@example.com", "Lydia", false)

	resp, _ := env.request(t, http.MethodPost, "/api/auth/logout", nil, session.Token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
