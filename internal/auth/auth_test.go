package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"chat-backend/internal/database"
)

func newCredentialStores(t *testing.T) map[string]CredentialStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.GetMigrator(db).Migrate())

	return map[string]CredentialStore{
		"memory": NewMemoryCredentialStore(),
		"sql":    NewSQLCredentialStore(db),
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()

	for name, store := range newCredentialStores(t) {
		t.Run(name, func(t *testing.T) {
			service := NewService(store, "test-secret", 0)

			require.NoError(t, service.Register(ctx, "alice@example.com", "hunter22"))

			// Registering the same email twice fails.
			err := service.Register(ctx, "alice@example.com", "other-password")
			assert.ErrorIs(t, err, ErrUserExists)

			user, err := service.Authenticate(ctx, "alice@example.com", "hunter22")
			require.NoError(t, err)
			assert.Equal(t, "alice@example.com", user.Email)
			assert.NotEmpty(t, user.ID)

			_, err = service.Authenticate(ctx, "alice@example.com", "wrong-password")
			assert.ErrorIs(t, err, ErrInvalidCredentials)

			_, err = service.Authenticate(ctx, "nobody@example.com", "hunter22")
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestPasswordsAreHashed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore()
	service := NewService(store, "test-secret", 0)

	require.NoError(t, service.Register(ctx, "alice@example.com", "hunter22"))

	_, hash, err := store.GetUser(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)
	assert.NotContains(t, hash, "hunter22")
}

func TestTokenRoundTrip(t *testing.T) {
	service := NewService(NewMemoryCredentialStore(), "test-secret", 0)

	token, err := service.IssueToken("alice@example.com")
	require.NoError(t, err)

	subject, err := service.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", subject)
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	service := NewService(NewMemoryCredentialStore(), "test-secret", 0)

	_, err := service.VerifyToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewService(NewMemoryCredentialStore(), "secret-one", 0)
	verifier := NewService(NewMemoryCredentialStore(), "secret-two", 0)

	token, err := issuer.IssueToken("alice@example.com")
	require.NoError(t, err)

	_, err = verifier.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	service := NewService(NewMemoryCredentialStore(), "test-secret", time.Millisecond)

	token, err := service.IssueToken("alice@example.com")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = service.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
