package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/themeshop/internal/client/api"
	"github.com/iudanet/themeshop/internal/client/storage"
	"github.com/iudanet/themeshop/internal/validation"
	pkgapi "github.com/iudanet/themeshop/pkg/api"
)

// ErrNotAuthenticated - нет сохраненной сессии или она больше не принимается сервером
var ErrNotAuthenticated = errors.New("not authenticated, please run 'themeshop login' first")

// RegisterResult содержит результат регистрации
type RegisterResult struct {
	UserID string
	Email  string
}

// LoginResult содержит результат авторизации
type LoginResult struct {
	UserID    string
	Email     string
	ExpiresIn int64 // время жизни access token в секундах
}

// SessionManager реализует Service поверх API клиента и локального хранилища сессии
type SessionManager struct {
	apiClient APIClient
	store     storage.AuthStorage
	logger    *slog.Logger
	now       func() time.Time
	mu        sync.Mutex // сериализует обновление токенов внутри процесса
}

var _ Service = (*SessionManager)(nil)

// NewSessionManager создает сервис авторизации
func NewSessionManager(apiClient APIClient, store storage.AuthStorage, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		apiClient: apiClient,
		store:     store,
		logger:    logger,
		now:       time.Now,
	}
}

// Register регистрирует нового пользователя
func (s *SessionManager) Register(ctx context.Context, email, password string) (*RegisterResult, error) {
	email = validation.NormalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, fmt.Errorf("invalid email: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("invalid password: %w", err)
	}

	resp, err := s.apiClient.Register(ctx, pkgapi.RegisterRequest{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	return &RegisterResult{UserID: resp.UserID, Email: email}, nil
}

// Login выполняет аутентификацию и сохраняет пару токенов
func (s *SessionManager) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = validation.NormalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, fmt.Errorf("invalid email: %w", err)
	}
	if password == "" {
		return nil, fmt.Errorf("invalid password: password is required")
	}

	resp, err := s.apiClient.Login(ctx, pkgapi.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	authData := &storage.AuthData{
		Email:        email,
		UserID:       resp.UserID,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    s.now().Unix() + resp.ExpiresIn,
	}
	if err := s.store.SaveAuth(ctx, authData); err != nil {
		return nil, fmt.Errorf("failed to save auth data: %w", err)
	}

	return &LoginResult{UserID: resp.UserID, Email: email, ExpiresIn: resp.ExpiresIn}, nil
}

// Logout выполняет выход из системы.
// Локальная сессия удаляется даже если сервер недоступен.
func (s *SessionManager) Logout(ctx context.Context) error {
	authData, err := s.store.GetAuth(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return ErrNotAuthenticated
		}
		return fmt.Errorf("failed to get auth data: %w", err)
	}

	// уведомляем сервер, при 403 пробуем один раз обновить токен
	err = s.withToken(ctx, authData, func(token string) error {
		return s.apiClient.Logout(ctx, token)
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to logout on server", slog.Any("error", err))
	}

	if err := s.store.DeleteAuth(ctx); err != nil && !errors.Is(err, storage.ErrAuthNotFound) {
		return fmt.Errorf("failed to delete local auth data: %w", err)
	}

	return nil
}

// Status возвращает сохраненную сессию
func (s *SessionManager) Status(ctx context.Context) (*storage.AuthData, error) {
	return s.store.GetAuth(ctx)
}

// Checkout создает платежную сессию
func (s *SessionManager) Checkout(ctx context.Context, req *pkgapi.CheckoutRequest) (*pkgapi.CheckoutResponse, error) {
	var resp *pkgapi.CheckoutResponse
	err := s.authorized(ctx, func(token string) error {
		var err error
		resp, err = s.apiClient.CreateCheckoutSession(ctx, token, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Orders возвращает историю заказов
func (s *SessionManager) Orders(ctx context.Context) (*pkgapi.OrdersResponse, error) {
	var resp *pkgapi.OrdersResponse
	err := s.authorized(ctx, func(token string) error {
		var err error
		resp, err = s.apiClient.Orders(ctx, token)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// authorized загружает сессию и выполняет call с access токеном
func (s *SessionManager) authorized(ctx context.Context, call func(token string) error) error {
	authData, err := s.store.GetAuth(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return ErrNotAuthenticated
		}
		return fmt.Errorf("failed to get auth data: %w", err)
	}

	return s.withToken(ctx, authData, call)
}

// withToken выполняет call; если access токен истек заранее или сервер ответил 403,
// обменивает refresh токен и повторяет вызов ровно один раз.
func (s *SessionManager) withToken(ctx context.Context, authData *storage.AuthData, call func(token string) error) error {
	if authData.AccessExpired(s.now()) {
		refreshed, err := s.refresh(ctx, authData)
		if err != nil {
			return err
		}
		authData = refreshed
	}

	err := call(authData.AccessToken)
	if !api.IsForbidden(err) {
		return err
	}

	s.logger.DebugContext(ctx, "access token rejected, refreshing")
	refreshed, err := s.refresh(ctx, authData)
	if err != nil {
		return err
	}

	return call(refreshed.AccessToken)
}

// refresh обменивает refresh токен и сохраняет новую пару.
// Отклоненный refresh токен означает конец сессии: локальные данные удаляются.
func (s *SessionManager) refresh(ctx context.Context, authData *storage.AuthData) (*storage.AuthData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp, err := s.apiClient.Refresh(ctx, authData.RefreshToken)
	if err != nil {
		if api.IsRejected(err) {
			if delErr := s.store.DeleteAuth(ctx); delErr != nil && !errors.Is(delErr, storage.ErrAuthNotFound) {
				s.logger.WarnContext(ctx, "failed to delete rejected session", slog.Any("error", delErr))
			}
			return nil, fmt.Errorf("%w: session expired", ErrNotAuthenticated)
		}
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	next, err := s.store.RotateTokens(ctx, authData.RefreshToken, storage.Tokens{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    s.now().Unix() + resp.ExpiresIn,
	})
	switch {
	case err == nil:
		return next, nil
	case errors.Is(err, storage.ErrSessionChanged):
		// другой процесс уже сохранил более новую сессию (login), используем ее
		s.logger.DebugContext(ctx, "stored session replaced during refresh")
		current, getErr := s.store.GetAuth(ctx)
		if getErr != nil {
			return nil, fmt.Errorf("failed to get auth data: %w", getErr)
		}
		return current, nil
	case errors.Is(err, storage.ErrAuthNotFound):
		return nil, fmt.Errorf("%w: session deleted", ErrNotAuthenticated)
	default:
		return nil, fmt.Errorf("failed to save refreshed tokens: %w", err)
	}
}
