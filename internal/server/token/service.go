// Package token выпускает, проверяет и ротирует bearer токены.
//
// Access токен - короткоживущий HS256 JWT, проверяется без обращения к хранилищу.
// Refresh токен - JWT с большим сроком жизни; его jti хранится в индексе активных
// refresh токенов (storage.TokenStorage) и удаляется при первом обмене (single-use rotation).
package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iudanet/themeshop/internal/models"
	"github.com/iudanet/themeshop/internal/server/storage"
)

var (
	// ErrInvalidToken - токен некорректен по формату, подписи или типу.
	// Транспорт: 403 forbidden.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired - срок действия токена истек.
	// Транспорт: 403 forbidden.
	ErrTokenExpired = errors.New("token expired")

	// ErrRejected - refresh токен не может быть обменян: некорректен, истек,
	// уже использован или никогда не выдавался. Транспорт: 401 rejected.
	ErrRejected = errors.New("refresh token rejected")
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

// Claims - claims обоих типов токенов
type Claims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// Config содержит параметры выпуска токенов
type Config struct {
	Issuer          string
	Secret          []byte
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// Pair - пара токенов, выдаваемая при логине и refresh
type Pair struct {
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	AccessToken      string
	RefreshToken     string
	ExpiresIn        int64 // время жизни access токена в секундах
}

// Service выпускает и проверяет токены. Безопасен для конкурентного использования,
// если переданное хранилище потокобезопасно.
type Service struct {
	store storage.TokenStorage
	now   func() time.Time
	cfg   Config
}

// NewService создает сервис токенов
func NewService(cfg Config, store storage.TokenStorage) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("token secret is required")
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, fmt.Errorf("token ttl must be positive")
	}
	if store == nil {
		return nil, fmt.Errorf("refresh token storage is required")
	}

	return &Service{
		cfg:   cfg,
		store: store,
		now:   time.Now,
	}, nil
}

// SetClock подменяет источник времени (для тестов)
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Issue выпускает новую пару токенов и регистрирует refresh токен в индексе
func (s *Service) Issue(ctx context.Context, subjectID string) (*Pair, error) {
	if subjectID == "" {
		return nil, fmt.Errorf("subject is required")
	}

	pair, record, err := s.newPair(subjectID)
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveRefreshToken(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save refresh token: %w", err)
	}

	return pair, nil
}

// Verify проверяет access токен (подпись и срок) и возвращает subject.
// Хранилище не используется.
func (s *Service) Verify(tokenString string) (string, error) {
	claims, err := s.parse(tokenString, typeAccess)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Refresh обменивает refresh токен на новую пару.
// Старый токен удаляется из индекса атомарно с записью нового, поэтому из
// нескольких конкурентных вызовов с одним токеном успешен ровно один.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Pair, error) {
	claims, err := s.parse(refreshToken, typeRefresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRejected, err)
	}

	pair, next, err := s.newPair(claims.Subject)
	if err != nil {
		return nil, err
	}

	if err := s.store.RotateRefreshToken(ctx, claims.ID, next); err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			return nil, fmt.Errorf("%w: token is not active", ErrRejected)
		}
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	return pair, nil
}

// Revoke удаляет все активные refresh токены пользователя (logout)
func (s *Service) Revoke(ctx context.Context, subjectID string) (int, error) {
	n, err := s.store.DeleteUserTokens(ctx, subjectID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke tokens: %w", err)
	}
	return n, nil
}

// PurgeExpired удаляет из индекса истекшие refresh токены
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	n, err := s.store.DeleteExpiredTokens(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired tokens: %w", err)
	}
	return n, nil
}

// RunCleanup периодически чистит индекс от истекших токенов до отмены ctx
func (s *Service) RunCleanup(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				logger.WarnContext(ctx, "refresh token cleanup failed", slog.Any("error", err))
				continue
			}
			if n > 0 {
				logger.DebugContext(ctx, "expired refresh tokens purged", slog.Int("count", n))
			}
		case <-ctx.Done():
			return
		}
	}
}

// newPair подписывает access и refresh токены, не трогая хранилище
func (s *Service) newPair(subjectID string) (*Pair, *models.RefreshToken, error) {
	now := s.now()
	accessExp := now.Add(s.cfg.AccessTokenTTL)
	refreshExp := now.Add(s.cfg.RefreshTokenTTL)
	refreshID := uuid.New().String()

	access, err := s.sign(typeAccess, uuid.New().String(), subjectID, now, accessExp)
	if err != nil {
		return nil, nil, err
	}

	refresh, err := s.sign(typeRefresh, refreshID, subjectID, now, refreshExp)
	if err != nil {
		return nil, nil, err
	}

	pair := &Pair{
		AccessToken:      access,
		RefreshToken:     refresh,
		ExpiresIn:        int64(s.cfg.AccessTokenTTL.Seconds()),
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}

	record := &models.RefreshToken{
		ID:        refreshID,
		UserID:    subjectID,
		ExpiresAt: refreshExp,
		CreatedAt: now,
	}

	return pair, record, nil
}

func (s *Service) sign(tokenType, id, subjectID string, issuedAt, expiresAt time.Time) (string, error) {
	claims := Claims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   subjectID,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}

	return signed, nil
}

// parse проверяет подпись, срок и тип токена
func (s *Service) parse(tokenString, tokenType string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.cfg.Secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	// refresh токен не должен приниматься как access и наоборот
	if claims.Type != tokenType || claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
