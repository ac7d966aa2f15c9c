package storage

import (
	"context"
	"time"
)

// AuthStorage хранит сессию пользователя на клиенте
type AuthStorage interface {
	// SaveAuth сохраняет сессию, перезаписывая предыдущую
	SaveAuth(ctx context.Context, auth *AuthData) error

	// GetAuth возвращает сохраненную сессию.
	// Returns ErrAuthNotFound if no auth data exists
	GetAuth(ctx context.Context) (*AuthData, error)

	// RotateTokens заменяет пару токенов в сохраненной сессии, если в ней
	// все еще лежит refresh токен prevRefresh. Возвращает обновленную сессию,
	// ErrAuthNotFound или ErrSessionChanged.
	RotateTokens(ctx context.Context, prevRefresh string, tokens Tokens) (*AuthData, error)

	// DeleteAuth removes stored authentication data (logout)
	DeleteAuth(ctx context.Context) error
}

// Tokens - новая пара токенов, выданная сервером
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
}

// AuthData - сохраненная сессия: пара токенов и срок жизни access токена.
// Файл БД создается с правами 0600, токены хранятся как есть.
type AuthData struct {
	Email        string `json:"email"`
	UserID       string `json:"user_id,omitempty"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"` // unix секунды истечения access токена
}

// AccessExpired сообщает, что access токен истек к моменту now
func (a *AuthData) AccessExpired(now time.Time) bool {
	return now.Unix() >= a.ExpiresAt
}
