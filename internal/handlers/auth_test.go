package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/icdtuning/garage/internal/auth"
	"github.com/icdtuning/garage/internal/db"
	"github.com/icdtuning/garage/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newAuthService(t *testing.T) *auth.Service {
	t.Helper()
	authService, err := auth.NewService("test-secret", time.Hour)
	require.NoError(t, err)
	return authService
}

func postJSON(t *testing.T, path string, v interface{}) *http.Request {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return httptest.NewRequest("POST", path, bytes.NewBuffer(body))
}

func decodeDetail(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAuthHandler_Login(t *testing.T) {
	authService := newAuthService(t)
	passwordHash, err := authService.HashPassword("password123")
	require.NoError(t, err)

	t.Run("successful login", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, mockUserCollection)

		user := &models.User{
			ID:           primitive.NewObjectID(),
			Username:     "ravi",
			PasswordHash: passwordHash,
			Role:         models.RoleMechanic,
			FullName:     "Ravi Kumar",
			IsActive:     true,
		}
		mockUserCollection.On("FindUserByUsername", mock.Anything, "ravi").Return(user, nil)
		mockUserCollection.On("UpdateLastLogin", mock.Anything, user.ID.Hex()).Return(nil)

		w := httptest.NewRecorder()
		handler.Login(w, postJSON(t, "/api/auth/login", models.LoginRequest{Username: "ravi", Password: "password123"}))

		assert.Equal(t, http.StatusOK, w.Code)

		var response models.LoginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.NotEmpty(t, response.AccessToken)
		assert.Equal(t, "bearer", response.TokenType)
		assert.Equal(t, user.Username, response.User.Username)
		assert.NotContains(t, w.Body.String(), passwordHash)

		claims, err := authService.ValidateToken(response.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, models.RoleMechanic, claims.Role)

		mockUserCollection.AssertExpectations(t)
	})

	t.Run("unknown user", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, mockUserCollection)
		mockUserCollection.On("FindUserByUsername", mock.Anything, "ghost").Return(nil, db.ErrNotFound)

		w := httptest.NewRecorder()
		handler.Login(w, postJSON(t, "/api/auth/login", models.LoginRequest{Username: "ghost", Password: "password123"}))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid credentials", decodeDetail(t, w).Detail)
	})

	t.Run("wrong password", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, mockUserCollection)
		user := &models.User{ID: primitive.NewObjectID(), Username: "ravi", PasswordHash: passwordHash, IsActive: true}
		mockUserCollection.On("FindUserByUsername", mock.Anything, "ravi").Return(user, nil)

		w := httptest.NewRecorder()
		handler.Login(w, postJSON(t, "/api/auth/login", models.LoginRequest{Username: "ravi", Password: "nope-nope"}))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		mockUserCollection.AssertNotCalled(t, "UpdateLastLogin", mock.Anything, mock.Anything)
	})

	t.Run("deactivated account", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, mockUserCollection)
		user := &models.User{ID: primitive.NewObjectID(), Username: "ravi", PasswordHash: passwordHash, Role: models.RoleMechanic}
		mockUserCollection.On("FindUserByUsername", mock.Anything, "ravi").Return(user, nil)

		w := httptest.NewRecorder()
		handler.Login(w, postJSON(t, "/api/auth/login", models.LoginRequest{Username: "ravi", Password: "password123"}))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Account is deactivated", decodeDetail(t, w).Detail)
	})

	t.Run("missing fields", func(t *testing.T) {
		handler := NewAuthHandler(authService, new(MockUserCollection))

		w := httptest.NewRecorder()
		handler.Login(w, postJSON(t, "/api/auth/login", models.LoginRequest{Username: "ravi"}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		handler := NewAuthHandler(authService, new(MockUserCollection))

		w := httptest.NewRecorder()
		handler.Login(w, httptest.NewRequest("POST", "/api/auth/login", bytes.NewBufferString("{")))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid JSON", decodeDetail(t, w).Detail)
	})
}

func TestAuthHandler_Register(t *testing.T) {
	authService := newAuthService(t)

	validReq := models.RegisterRequest{
		Username: "suresh",
		Password: "spanner1",
		FullName: "Suresh Babu",
		Role:     models.RoleMechanic,
	}

	t.Run("successful registration", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, mockUserCollection)

		mockUserCollection.On("FindUserByUsername", mock.Anything, "suresh").Return(nil, db.ErrNotFound)
		mockUserCollection.On("InsertUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
			return u.Username == "suresh" && u.Role == models.RoleMechanic &&
				u.PasswordHash != "" && u.PasswordHash != "spanner1"
		})).Return(func() *models.User {
			u := &models.User{ID: primitive.NewObjectID(), Username: "suresh", FullName: "Suresh Babu", Role: models.RoleMechanic, IsActive: true}
			return u
		}(), nil)

		w := httptest.NewRecorder()
		handler.Register(w, postJSON(t, "/api/auth/register", validReq))

		assert.Equal(t, http.StatusCreated, w.Code)
		var response models.LoginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.NotEmpty(t, response.AccessToken)
		assert.Equal(t, "Suresh Babu", response.User.FullName)
		mockUserCollection.AssertExpectations(t)
	})

	t.Run("duplicate username", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, mockUserCollection)
		mockUserCollection.On("FindUserByUsername", mock.Anything, "suresh").Return(&models.User{Username: "suresh"}, nil)

		w := httptest.NewRecorder()
		handler.Register(w, postJSON(t, "/api/auth/register", validReq))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Username already registered", decodeDetail(t, w).Detail)
		mockUserCollection.AssertNotCalled(t, "InsertUser", mock.Anything, mock.Anything)
	})

	tests := []struct {
		name   string
		mutate func(r *models.RegisterRequest)
	}{
		{"short username", func(r *models.RegisterRequest) { r.Username = "ab" }},
		{"short password", func(r *models.RegisterRequest) { r.Password = "123" }},
		{"missing full name", func(r *models.RegisterRequest) { r.FullName = "  " }},
		{"unknown role", func(r *models.RegisterRequest) { r.Role = "Customer" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validReq
			tt.mutate(&req)
			handler := NewAuthHandler(authService, new(MockUserCollection))

			w := httptest.NewRecorder()
			handler.Register(w, postJSON(t, "/api/auth/register", req))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestAuthHandler_Me(t *testing.T) {
	authService := newAuthService(t)
	mockUserCollection := new(MockUserCollection)
	handler := NewAuthHandler(authService, mockUserCollection)

	id := primitive.NewObjectID()
	mockUserCollection.On("FindUserByID", mock.Anything, id.Hex()).Return(&models.User{ID: id, Username: "boss", Role: models.RoleManager}, nil)

	w := httptest.NewRecorder()
	handler.Me(w, asUser(httptest.NewRequest("GET", "/api/auth/me", nil), models.RoleManager, id.Hex()))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"boss"`)

	w = httptest.NewRecorder()
	handler.Me(w, httptest.NewRequest("GET", "/api/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_ListMechanics(t *testing.T) {
	mockUserCollection := new(MockUserCollection)
	handler := NewAuthHandler(newAuthService(t), mockUserCollection)

	mechanics := []models.User{
		{ID: primitive.NewObjectID(), Username: "arun", FullName: "Arun", Role: models.RoleMechanic},
		{ID: primitive.NewObjectID(), Username: "ravi", FullName: "Ravi", Role: models.RoleMechanic},
	}
	mockUserCollection.On("FindUsersByRole", mock.Anything, models.RoleMechanic).Return(mechanics, nil)

	w := httptest.NewRecorder()
	handler.ListMechanics(w, httptest.NewRequest("GET", "/api/mechanics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var got []models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got, 2)
}
