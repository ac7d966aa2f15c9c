package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/themeshop/internal/client/storage"
)

// sessionKey - единственная запись bucket auth: клиент держит одну сессию
var sessionKey = []byte("session")

// sessionVersion меняется при несовместимом изменении формата записи
const sessionVersion = 1

// sessionRecord - формат записи сессии в bucket auth
type sessionRecord struct {
	Session storage.AuthData `json:"session"`
	Version int              `json:"v"`
}

var _ storage.AuthStorage = (*Storage)(nil)

// SaveAuth сохраняет сессию после login, перезаписывая предыдущую
func (s *Storage) SaveAuth(ctx context.Context, auth *storage.AuthData) error {
	if auth == nil {
		return fmt.Errorf("auth data is nil")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := authBucket(tx)
		if err != nil {
			return err
		}
		return putSession(bucket, auth)
	})
}

// GetAuth возвращает сохраненную сессию или storage.ErrAuthNotFound
func (s *Storage) GetAuth(ctx context.Context) (*storage.AuthData, error) {
	var auth *storage.AuthData

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := authBucket(tx)
		if err != nil {
			return err
		}
		auth, err = getSession(bucket)
		return err
	})
	if err != nil {
		return nil, err
	}

	return auth, nil
}

// RotateTokens записывает новую пару токенов в одной транзакции с проверкой,
// что сессию не заменил другой процесс клиента
func (s *Storage) RotateTokens(ctx context.Context, prevRefresh string, tokens storage.Tokens) (*storage.AuthData, error) {
	var auth *storage.AuthData

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := authBucket(tx)
		if err != nil {
			return err
		}

		current, err := getSession(bucket)
		if err != nil {
			return err
		}
		if current.RefreshToken != prevRefresh {
			return storage.ErrSessionChanged
		}

		current.AccessToken = tokens.AccessToken
		current.RefreshToken = tokens.RefreshToken
		current.ExpiresAt = tokens.ExpiresAt
		if err := putSession(bucket, current); err != nil {
			return err
		}

		auth = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	return auth, nil
}

// DeleteAuth удаляет сессию (logout или отклоненный refresh)
func (s *Storage) DeleteAuth(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := authBucket(tx)
		if err != nil {
			return err
		}

		if bucket.Get(sessionKey) == nil {
			return storage.ErrAuthNotFound
		}

		if err := bucket.Delete(sessionKey); err != nil {
			return fmt.Errorf("failed to delete auth data: %w", err)
		}

		return nil
	})
}

func authBucket(tx *bbolt.Tx) (*bbolt.Bucket, error) {
	bucket := tx.Bucket(bucketAuth)
	if bucket == nil {
		return nil, fmt.Errorf("auth bucket not found")
	}
	return bucket, nil
}

func putSession(bucket *bbolt.Bucket, auth *storage.AuthData) error {
	data, err := json.Marshal(sessionRecord{Version: sessionVersion, Session: *auth})
	if err != nil {
		return fmt.Errorf("failed to marshal auth data: %w", err)
	}

	if err := bucket.Put(sessionKey, data); err != nil {
		return fmt.Errorf("failed to save auth data: %w", err)
	}

	return nil
}

// getSession читает запись; запись другой версии формата считается отсутствующей,
// пользователь просто войдет заново
func getSession(bucket *bbolt.Bucket) (*storage.AuthData, error) {
	data := bucket.Get(sessionKey)
	if data == nil {
		return nil, storage.ErrAuthNotFound
	}

	// bbolt переиспользует память после закрытия транзакции, Unmarshal копирует строки
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal auth data: %w", err)
	}
	if rec.Version != sessionVersion {
		return nil, fmt.Errorf("%w: unsupported session format v%d", storage.ErrAuthNotFound, rec.Version)
	}

	return &rec.Session, nil
}
