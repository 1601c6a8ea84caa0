package handlers

import (
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-dispatch/internal/auth"
	"github.com/ukydev/fleet-dispatch/internal/db"
	"github.com/ukydev/fleet-dispatch/internal/middleware"
	"github.com/ukydev/fleet-dispatch/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthHandler serves login, registration and the caller's profile.
type AuthHandler struct {
	authService    *auth.Service
	userCollection db.UserCollection
	now            func() time.Time
}

func NewAuthHandler(authService *auth.Service, userCollection db.UserCollection) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		userCollection: userCollection,
		now:            time.Now,
	}
}

// Login exchanges a username and password for a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.userCollection.FindUserByUsername(r.Context(), req.Username)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			writeServiceError(w, r, err)
			return
		}
		writeError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
		return
	}
	if !user.IsActive {
		writeError(w, http.StatusUnauthorized, auth.ErrUserInactive.Error())
		return
	}
	if !h.authService.CheckPassword(req.Password, user.PasswordHash) {
		log.WithField("username", req.Username).Info("login rejected")
		writeError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
		return
	}

	resp, err := h.issue(user)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := h.userCollection.UpdateLastLogin(r.Context(), user.ID.Hex()); err != nil {
		log.WithError(err).WithField("username", user.Username).Warn("failed to update last login")
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) issue(user *models.User) (models.LoginResponse, error) {
	token, err := h.authService.GenerateToken(user)
	if err != nil {
		return models.LoginResponse{}, err
	}
	refresh, err := h.authService.GenerateRefreshToken()
	if err != nil {
		return models.LoginResponse{}, err
	}
	return models.LoginResponse{Token: token, RefreshToken: refresh, User: *user}, nil
}

// callerCanGrant reports whether the request carries a valid token whose
// role may manage users.
func (h *AuthHandler) callerCanGrant(r *http.Request) bool {
	token, err := h.authService.ExtractTokenFromHeader(r.Header.Get("Authorization"))
	if err != nil {
		return false
	}
	claims, err := h.authService.ValidateToken(token)
	if err != nil {
		return false
	}
	return claims.Role.HasPermission(models.ActionManageUsers)
}

// Register creates an account. Anonymous callers get a viewer account; any
// other role needs a token allowed to manage users.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	for _, err := range []error{
		h.authService.ValidateUsername(req.Username),
		h.authService.ValidateEmail(req.Email),
		h.authService.ValidatePassword(req.Password),
	} {
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Role == "" {
		req.Role = models.RoleViewer
	}
	if !models.IsValidRole(req.Role) {
		writeError(w, http.StatusBadRequest, "invalid role")
		return
	}
	if req.Role != models.RoleViewer && !h.callerCanGrant(r) {
		writeError(w, http.StatusForbidden, "insufficient permissions to grant role")
		return
	}

	ctx := r.Context()
	if _, err := h.userCollection.FindUserByUsername(ctx, req.Username); err == nil {
		writeError(w, http.StatusConflict, "username already exists")
		return
	} else if !errors.Is(err, db.ErrNotFound) {
		writeServiceError(w, r, err)
		return
	}
	if _, err := h.userCollection.FindUserByEmail(ctx, req.Email); err == nil {
		writeError(w, http.StatusConflict, "email already exists")
		return
	} else if !errors.Is(err, db.ErrNotFound) {
		writeServiceError(w, r, err)
		return
	}

	hash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	now := h.now()
	user := models.User{
		ID:           primitive.NewObjectID(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.userCollection.InsertUser(ctx, user); err != nil {
		writeServiceError(w, r, err)
		return
	}
	log.WithFields(log.Fields{"username": user.Username, "role": user.Role}).Info("user registered")

	resp, err := h.issue(&user)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// GetProfile returns the authenticated caller's account.
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user context not found")
		return
	}
	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ChangePassword replaces the caller's password after checking the current one.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user context not found")
		return
	}
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.authService.ValidatePassword(req.NewPassword); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !h.authService.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}
	if user.PasswordHash, err = h.authService.HashPassword(req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}
	user.UpdatedAt = h.now()
	if err := h.userCollection.UpdateUser(r.Context(), claims.UserID, *user); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed"})
}
