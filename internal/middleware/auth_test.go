package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-dispatch/internal/auth"
	"github.com/ukydev/fleet-dispatch/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newAuth(t *testing.T) (*auth.Service, *AuthMiddleware) {
	t.Helper()
	svc, err := auth.NewService("test-secret", time.Hour)
	require.NoError(t, err)
	return svc, NewAuthMiddleware(svc)
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	svc, mw := newAuth(t)

	t.Run("valid token", func(t *testing.T) {
		user := &models.User{ID: primitive.NewObjectID(), Username: "dispatcher1", Role: models.RoleDispatcher}
		token, err := svc.GenerateToken(user)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/trips", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		called := false
		mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			assert.Equal(t, "dispatcher1", Actor(r.Context()))
		})).ServeHTTP(w, req)

		assert.True(t, called)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"bad token", "Bearer not.a.jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/trips", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			called := false
			mw.Authenticate(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })).ServeHTTP(w, req)
			assert.False(t, called)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestAuthMiddleware_RequirePermission(t *testing.T) {
	_, mw := newAuth(t)
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name   string
		claims *models.Claims
		action string
		want   int
	}{
		{"no user", nil, models.ActionViewTrips, http.StatusUnauthorized},
		{"viewer reads", &models.Claims{Username: "v", Role: models.RoleViewer}, models.ActionViewTrips, http.StatusNoContent},
		{"viewer cannot create", &models.Claims{Username: "v", Role: models.RoleViewer}, models.ActionCreateTrip, http.StatusForbidden},
		{"dispatcher cannot close", &models.Claims{Username: "d", Role: models.RoleDispatcher}, models.ActionCloseTrip, http.StatusForbidden},
		{"manager closes", &models.Claims{Username: "m", Role: models.RoleManager}, models.ActionCloseTrip, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/trips", nil)
			if tt.claims != nil {
				req = req.WithContext(WithUser(req.Context(), tt.claims))
			}
			w := httptest.NewRecorder()
			mw.RequirePermission(tt.action)(ok).ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestActor_Anonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", Actor(req.Context()))
	_, ok := GetUserFromContext(req.Context())
	assert.False(t, ok)
}
