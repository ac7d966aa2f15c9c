package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/themeshop/internal/models"
)

// setupTestStorage создает тестовое хранилище во временной директории
func setupTestStorage(t *testing.T) (*Storage, func()) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := New(context.Background(), dbPath)
	require.NoError(t, err)

	cleanup := func() {
		require.NoError(t, s.Close())
	}

	return s, cleanup
}

// createTestUser создает пользователя и возвращает его ID
func createTestUser(t *testing.T, ctx context.Context, s *Storage) string {
	t.Helper()

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        uuid.New().String() + "@example.com",
		PasswordHash: "hash",
		CreatedAt:    time.Now(),
	}
	require.NoError(t, s.CreateUser(ctx, user))

	return user.ID
}

func TestNew_RunsMigrations(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	for _, table := range []string{"users", "refresh_tokens", "purchases", "cancellations"} {
		var name string
		err := s.DB().QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}

	require.NoError(t, s.Ping(context.Background()))
}
