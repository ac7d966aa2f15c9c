// Package memory содержит in-memory реализации хранилищ.
// Подходит для одного инстанса сервера: при рестарте данные теряются
// (все refresh токены становятся недействительными).
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/iudanet/themeshop/internal/models"
	"github.com/iudanet/themeshop/internal/server/storage"
)

// TokenStorage хранит refresh токены в map под мьютексом.
// Все операции, включая ротацию, выполняются целиком под блокировкой.
type TokenStorage struct {
	tokens map[string]models.RefreshToken // jti -> token
	mu     sync.Mutex
}

var _ storage.TokenStorage = (*TokenStorage)(nil)

// NewTokenStorage создает пустой индекс
func NewTokenStorage() *TokenStorage {
	return &TokenStorage{
		tokens: make(map[string]models.RefreshToken),
	}
}

// SaveRefreshToken records a newly issued refresh token
func (s *TokenStorage) SaveRefreshToken(_ context.Context, token *models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[token.ID] = *token
	return nil
}

// GetRefreshToken retrieves refresh token by id
func (s *TokenStorage) GetRefreshToken(_ context.Context, id string) (*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokens[id]
	if !ok {
		return nil, storage.ErrTokenNotFound
	}
	return &token, nil
}

// RotateRefreshToken atomically replaces the old token with the next one
func (s *TokenStorage) RotateRefreshToken(_ context.Context, oldID string, next *models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.tokens[oldID]
	if !ok || old.UserID != next.UserID {
		return storage.ErrTokenNotFound
	}

	delete(s.tokens, oldID)
	s.tokens[next.ID] = *next
	return nil
}

// DeleteUserTokens deletes all refresh tokens for a user
func (s *TokenStorage) DeleteUserTokens(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, token := range s.tokens {
		if token.UserID == userID {
			delete(s.tokens, id)
			count++
		}
	}
	return count, nil
}

// DeleteExpiredTokens removes all tokens expired before now
func (s *TokenStorage) DeleteExpiredTokens(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, token := range s.tokens {
		if token.Expired(now) {
			delete(s.tokens, id)
			count++
		}
	}
	return count, nil
}

// Len возвращает количество активных токенов
func (s *TokenStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.tokens)
}
