package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/icdtuning/garage/internal/auth"
	"github.com/icdtuning/garage/internal/db"
	"github.com/icdtuning/garage/internal/models"
	log "github.com/sirupsen/logrus"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService    *auth.Service
	userCollection db.UserCollection
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service, userCollection db.UserCollection) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		userCollection: userCollection,
	}
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var loginReq models.LoginRequest
	if !decodeJSON(w, r, &loginReq) {
		return
	}

	if loginReq.Username == "" || loginReq.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := h.userCollection.FindUserByUsername(r.Context(), loginReq.Username)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			log.WithError(err).Error("Failed to look up user")
		}
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if !h.authService.CheckPassword(loginReq.Password, user.PasswordHash) {
		log.WithField("username", loginReq.Username).Warn("Failed login attempt")
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if !user.IsActive {
		writeError(w, http.StatusUnauthorized, "Account is deactivated")
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		log.WithError(err).Error("Failed to generate token")
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	if err := h.userCollection.UpdateLastLogin(r.Context(), user.ID.Hex()); err != nil {
		// Login still succeeds.
		log.WithError(err).WithField("user_id", user.ID.Hex()).Error("Failed to update last login")
	}

	writeJSON(w, http.StatusOK, models.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        *user,
	})
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var registerReq models.RegisterRequest
	if !decodeJSON(w, r, &registerReq) {
		return
	}
	registerReq.Username = strings.TrimSpace(registerReq.Username)
	registerReq.FullName = strings.TrimSpace(registerReq.FullName)

	if err := h.authService.ValidateUsername(registerReq.Username); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.authService.ValidatePassword(registerReq.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if registerReq.FullName == "" {
		writeError(w, http.StatusBadRequest, "Full name is required")
		return
	}
	if !models.IsValidRole(registerReq.Role) {
		writeError(w, http.StatusBadRequest, "Invalid role")
		return
	}

	_, err := h.userCollection.FindUserByUsername(r.Context(), registerReq.Username)
	if err == nil {
		writeError(w, http.StatusBadRequest, "Username already registered")
		return
	}
	if !errors.Is(err, db.ErrNotFound) {
		writeStoreError(w, err, "")
		return
	}

	passwordHash, err := h.authService.HashPassword(registerReq.Password)
	if err != nil {
		log.WithError(err).Error("Failed to hash password")
		writeError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	user, err := h.userCollection.InsertUser(r.Context(), models.User{
		Username:     registerReq.Username,
		PasswordHash: passwordHash,
		Role:         registerReq.Role,
		FullName:     registerReq.FullName,
	})
	if err != nil {
		log.WithError(err).Error("Failed to create user")
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		log.WithError(err).Error("Failed to generate token")
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	log.WithFields(log.Fields{"username": user.Username, "role": user.Role}).Info("User registered")
	writeJSON(w, http.StatusCreated, models.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        *user,
	})
}

// Me returns the current user's profile
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeStoreError(w, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ListMechanics returns every mechanic account for assignment pickers.
func (h *AuthHandler) ListMechanics(w http.ResponseWriter, r *http.Request) {
	mechanics, err := h.userCollection.FindUsersByRole(r.Context(), models.RoleMechanic)
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, mechanics)
}
