package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/themeshop/internal/crypto"
	"github.com/iudanet/themeshop/internal/models"
	"github.com/iudanet/themeshop/internal/server/storage"
	"github.com/iudanet/themeshop/internal/server/storage/memory"
	"github.com/iudanet/themeshop/internal/server/token"
	"github.com/iudanet/themeshop/pkg/api"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// mockUserStorage is a mock implementation of UserStorage for testing
type mockUserStorage struct {
	users           map[string]*models.User // email -> User
	createError     error
	getUserError    error
	updateLastLogin func(ctx context.Context, userID string, loginTime time.Time) error
	mu              sync.Mutex
}

func newMockUserStorage() *mockUserStorage {
	return &mockUserStorage{users: make(map[string]*models.User)}
}

func (m *mockUserStorage) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createError != nil {
		return m.createError
	}
	if _, exists := m.users[user.Email]; exists {
		return storage.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getUserError != nil {
		return nil, m.getUserError
	}
	user, ok := m.users[email]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserStorage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getUserError != nil {
		return nil, m.getUserError
	}
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (m *mockUserStorage) UpdateLastLogin(ctx context.Context, userID string, loginTime time.Time) error {
	if m.updateLastLogin != nil {
		return m.updateLastLogin(ctx, userID, loginTime)
	}
	return nil
}

// refreshSpy считает результаты refresh
type refreshSpy struct {
	results []string
}

func (s *refreshSpy) ObserveTokenRefresh(result string) {
	s.results = append(s.results, result)
}

func newTestTokenService(t *testing.T) *token.Service {
	t.Helper()
	svc, err := token.NewService(token.Config{
		Issuer:          "themeshop-test",
		Secret:          []byte("test-secret"),
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
	}, memory.NewTokenStorage())
	require.NoError(t, err)
	return svc
}

func setupAuthHandler(t *testing.T) (*AuthHandler, *mockUserStorage, *token.Service) {
	t.Helper()
	users := newMockUserStorage()
	tokens := newTestTokenService(t)
	h := NewAuthHandler(setupTestLogger(), users, tokens)
	h.SetPasswordCost(bcrypt.MinCost)
	return h, users, tokens
}

func addUser(t *testing.T, users *mockUserStorage, id, email, password string) {
	t.Helper()
	hash, err := crypto.HashPasswordWithCost(password, bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, users.CreateUser(context.Background(), &models.User{
		ID:           id,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}))
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestAuthHandler_Register_Success(t *testing.T) {
	h, users, _ := setupAuthHandler(t)

	w := doJSON(t, h.Register, http.MethodPost, "/api/v1/auth/register", api.RegisterRequest{
		Email:    "  Buyer@Example.com ",
		Password: "long-enough-password",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp api.RegisterResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotEmpty(t, resp.UserID)

	user, err := users.GetUserByEmail(context.Background(), "buyer@example.com")
	require.NoError(t, err)
	assert.Equal(t, resp.UserID, user.ID)
	assert.NotEqual(t, "long-enough-password", user.PasswordHash)
	assert.NoError(t, crypto.VerifyPassword("long-enough-password", user.PasswordHash))
}

func TestAuthHandler_Register_InvalidJSON(t *testing.T) {
	h, _, _ := setupAuthHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader([]byte("invalid json")))
	w := httptest.NewRecorder()
	h.Register(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, api.CodeValidation, decodeError(t, w).Code)
}

func TestAuthHandler_Register_Validation(t *testing.T) {
	h, _, _ := setupAuthHandler(t)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"empty email", "", "long-enough-password"},
		{"bad email", "not-an-email", "long-enough-password"},
		{"short password", "buyer@example.com", "short"},
		{"empty password", "buyer@example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, h.Register, http.MethodPost, "/api/v1/auth/register", api.RegisterRequest{
				Email:    tt.email,
				Password: tt.password,
			})
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, api.CodeValidation, decodeError(t, w).Code)
		})
	}
}

func TestAuthHandler_Register_Duplicate(t *testing.T) {
	h, users, _ := setupAuthHandler(t)
	addUser(t, users, "user-1", "buyer@example.com", "long-enough-password")

	w := doJSON(t, h.Register, http.MethodPost, "/api/v1/auth/register", api.RegisterRequest{
		Email:    "buyer@example.com",
		Password: "another-password",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, api.CodeConflict, decodeError(t, w).Code)
}

func TestAuthHandler_Register_StorageError(t *testing.T) {
	h, users, _ := setupAuthHandler(t)
	users.createError = errors.New("database is locked")

	w := doJSON(t, h.Register, http.MethodPost, "/api/v1/auth/register", api.RegisterRequest{
		Email:    "buyer@example.com",
		Password: "long-enough-password",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAuthHandler_Login_Success(t *testing.T) {
	h, users, tokens := setupAuthHandler(t)
	addUser(t, users, "user-1", "buyer@example.com", "long-enough-password")

	var lastLoginUser string
	users.updateLastLogin = func(ctx context.Context, userID string, loginTime time.Time) error {
		lastLoginUser = userID
		return nil
	}

	w := doJSON(t, h.Login, http.MethodPost, "/api/v1/auth/login", api.LoginRequest{
		Email:    "Buyer@example.com",
		Password: "long-enough-password",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.TokenResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, int64(900), resp.ExpiresIn)
	assert.Equal(t, "user-1", resp.UserID)
	assert.Equal(t, "user-1", lastLoginUser)

	subject, err := tokens.Verify(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", subject)
}

func TestAuthHandler_Login_LastLoginFailureIsNotFatal(t *testing.T) {
	h, users, _ := setupAuthHandler(t)
	addUser(t, users, "user-1", "buyer@example.com", "long-enough-password")
	users.updateLastLogin = func(ctx context.Context, userID string, loginTime time.Time) error {
		return errors.New("readonly database")
	}

	w := doJSON(t, h.Login, http.MethodPost, "/api/v1/auth/login", api.LoginRequest{
		Email:    "buyer@example.com",
		Password: "long-enough-password",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	h, users, _ := setupAuthHandler(t)
	addUser(t, users, "user-1", "buyer@example.com", "long-enough-password")

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "buyer@example.com", "wrong-password"},
		{"unknown user", "nobody@example.com", "long-enough-password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, h.Login, http.MethodPost, "/api/v1/auth/login", api.LoginRequest{
				Email:    tt.email,
				Password: tt.password,
			})
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, api.CodeUnauthenticated, decodeError(t, w).Code)
		})
	}
}

func TestAuthHandler_Login_MissingFields(t *testing.T) {
	h, _, _ := setupAuthHandler(t)

	w := doJSON(t, h.Login, http.MethodPost, "/api/v1/auth/login", api.LoginRequest{Email: "buyer@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_Refresh(t *testing.T) {
	h, _, tokens := setupAuthHandler(t)
	spy := &refreshSpy{}
	h.SetRefreshObserver(spy)

	pair, err := tokens.Issue(context.Background(), "user-1")
	require.NoError(t, err)

	w := doJSON(t, h.Refresh, http.MethodPost, "/api/v1/auth/refresh", api.RefreshRequest{RefreshToken: pair.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.TokenResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEqual(t, pair.RefreshToken, resp.RefreshToken)

	// повторное использование
	w = doJSON(t, h.Refresh, http.MethodPost, "/api/v1/auth/refresh", api.RefreshRequest{RefreshToken: pair.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, api.CodeRejected, decodeError(t, w).Code)

	// access токен вместо refresh
	w = doJSON(t, h.Refresh, http.MethodPost, "/api/v1/auth/refresh", api.RefreshRequest{RefreshToken: resp.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// пустой токен
	w = doJSON(t, h.Refresh, http.MethodPost, "/api/v1/auth/refresh", api.RefreshRequest{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, api.CodeRejected, decodeError(t, w).Code)

	assert.Equal(t, []string{"rotated", "rejected", "rejected", "rejected"}, spy.results)
}

func TestAuthHandler_Logout(t *testing.T) {
	h, _, tokens := setupAuthHandler(t)
	ctx := context.Background()

	pair, err := tokens.Issue(ctx, "user-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req = req.WithContext(WithUserID(req.Context(), "user-1"))
	w := httptest.NewRecorder()
	h.Logout(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	_, err = tokens.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, token.ErrRejected)
}

func TestAuthHandler_Logout_NoUser(t *testing.T) {
	h, _, _ := setupAuthHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	w := httptest.NewRecorder()
	h.Logout(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
