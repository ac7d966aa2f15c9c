package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/themeshop/internal/crypto"
	"github.com/iudanet/themeshop/internal/models"
	"github.com/iudanet/themeshop/internal/server/storage"
	"github.com/iudanet/themeshop/internal/server/token"
	"github.com/iudanet/themeshop/internal/validation"
	"github.com/iudanet/themeshop/pkg/api"
)

// maxAuthBodyBytes ограничивает размер тела запросов /auth
const maxAuthBodyBytes = 64 << 10

// TokenIssuer выпускает, обменивает и отзывает токены
type TokenIssuer interface {
	Issue(ctx context.Context, subjectID string) (*token.Pair, error)
	Refresh(ctx context.Context, refreshToken string) (*token.Pair, error)
	Revoke(ctx context.Context, subjectID string) (int, error)
}

// RefreshObserver принимает метрики обмена refresh токенов
type RefreshObserver interface {
	ObserveTokenRefresh(result string)
}

// AuthHandler обрабатывает запросы авторизации
type AuthHandler struct {
	logger       *slog.Logger
	userStorage  storage.UserStorage
	tokens       TokenIssuer
	observer     RefreshObserver
	now          func() time.Time
	passwordCost int
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, userStorage storage.UserStorage, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{
		logger:       logger,
		userStorage:  userStorage,
		tokens:       tokens,
		now:          time.Now,
		passwordCost: crypto.DefaultCost,
	}
}

// SetRefreshObserver подключает метрики refresh
func (h *AuthHandler) SetRefreshObserver(o RefreshObserver) {
	h.observer = o
}

// SetPasswordCost меняет стоимость bcrypt (в тестах - bcrypt.MinCost)
func (h *AuthHandler) SetPasswordCost(cost int) {
	h.passwordCost = cost
}

// Register обрабатывает POST /api/v1/auth/register
// Регистрация нового пользователя
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RegisterRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAuthBodyBytes)).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode register request", slog.Any("error", err))
		SendError(w, http.StatusBadRequest, api.CodeValidation, "invalid request body")
		return
	}

	email := validation.NormalizeEmail(req.Email)
	if err := validation.ValidateEmail(email); err != nil {
		SendError(w, http.StatusBadRequest, api.CodeValidation, err.Error())
		return
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		SendError(w, http.StatusBadRequest, api.CodeValidation, err.Error())
		return
	}

	hash, err := crypto.HashPasswordWithCost(req.Password, h.passwordCost)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to hash password", slog.Any("error", err))
		SendError(w, http.StatusInternalServerError, api.CodeInternal, "internal server error")
		return
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    h.now(),
	}

	if err := h.userStorage.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			h.logger.WarnContext(ctx, "user already exists", slog.String("email", email))
			SendError(w, http.StatusConflict, api.CodeConflict, "email already registered")
			return
		}
		h.logger.ErrorContext(ctx, "failed to create user", slog.Any("error", err))
		SendError(w, http.StatusInternalServerError, api.CodeInternal, "internal server error")
		return
	}

	h.logger.InfoContext(ctx, "user registered successfully",
		slog.String("email", email),
		slog.String("user_id", user.ID))

	sendJSON(h.logger, w, api.RegisterResponse{
		UserID:  user.ID,
		Message: "User registered successfully",
	}, http.StatusCreated)
}

// Login обрабатывает POST /api/v1/auth/login
// Аутентификация пользователя, выдача пары токенов
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAuthBodyBytes)).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode login request", slog.Any("error", err))
		SendError(w, http.StatusBadRequest, api.CodeValidation, "invalid request body")
		return
	}

	email := validation.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		SendError(w, http.StatusBadRequest, api.CodeValidation, "email and password are required")
		return
	}

	user, err := h.userStorage.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			h.logger.WarnContext(ctx, "login failed: user not found", slog.String("email", email))
			SendError(w, http.StatusUnauthorized, api.CodeUnauthenticated, "invalid credentials")
			return
		}
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		SendError(w, http.StatusInternalServerError, api.CodeInternal, "internal server error")
		return
	}

	if err := crypto.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		if !errors.Is(err, crypto.ErrPasswordMismatch) {
			h.logger.ErrorContext(ctx, "failed to verify password", slog.Any("error", err))
		}
		h.logger.WarnContext(ctx, "login failed: invalid password", slog.String("email", email))
		SendError(w, http.StatusUnauthorized, api.CodeUnauthenticated, "invalid credentials")
		return
	}

	pair, err := h.tokens.Issue(ctx, user.ID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue tokens", slog.Any("error", err))
		SendError(w, http.StatusInternalServerError, api.CodeInternal, "internal server error")
		return
	}

	// не критичная ошибка, логируем но не прерываем
	if err := h.userStorage.UpdateLastLogin(ctx, user.ID, h.now()); err != nil {
		h.logger.WarnContext(ctx, "failed to update last login", slog.Any("error", err))
	}

	h.logger.InfoContext(ctx, "user logged in successfully",
		slog.String("email", email),
		slog.String("user_id", user.ID))

	sendJSON(h.logger, w, tokenResponse(user.ID, pair), http.StatusOK)
}

// Refresh обрабатывает POST /api/v1/auth/refresh
// Обмен refresh токена на новую пару. Старый refresh токен становится недействительным.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RefreshRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAuthBodyBytes)).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode refresh request", slog.Any("error", err))
		SendError(w, http.StatusBadRequest, api.CodeValidation, "invalid request body")
		return
	}

	if req.RefreshToken == "" {
		h.observeRefresh("rejected")
		SendError(w, http.StatusUnauthorized, api.CodeRejected, "refresh token is required")
		return
	}

	pair, err := h.tokens.Refresh(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, token.ErrRejected) {
			h.observeRefresh("rejected")
			h.logger.WarnContext(ctx, "refresh token rejected", slog.Any("error", err))
			SendError(w, http.StatusUnauthorized, api.CodeRejected, "invalid refresh token")
			return
		}
		h.observeRefresh("error")
		h.logger.ErrorContext(ctx, "failed to refresh tokens", slog.Any("error", err))
		SendError(w, http.StatusInternalServerError, api.CodeInternal, "internal server error")
		return
	}

	h.observeRefresh("rotated")
	h.logger.InfoContext(ctx, "tokens refreshed successfully")

	sendJSON(h.logger, w, tokenResponse("", pair), http.StatusOK)
}

// Logout обрабатывает POST /api/v1/auth/logout
// Отзывает все refresh токены пользователя. Access токен доживает свой короткий срок.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "user ID not found in context")
		SendError(w, http.StatusUnauthorized, api.CodeUnauthenticated, "authentication required")
		return
	}

	deleted, err := h.tokens.Revoke(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to revoke tokens", slog.Any("error", err))
		SendError(w, http.StatusInternalServerError, api.CodeInternal, "internal server error")
		return
	}

	h.logger.InfoContext(ctx, "user logged out successfully",
		slog.String("user_id", userID),
		slog.Int("tokens_deleted", deleted))

	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) observeRefresh(result string) {
	if h.observer != nil {
		h.observer.ObserveTokenRefresh(result)
	}
}

func tokenResponse(userID string, pair *token.Pair) api.TokenResponse {
	return api.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		UserID:       userID,
		ExpiresIn:    pair.ExpiresIn,
	}
}
