package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"chat-backend/internal/database"
)

// SQLCredentialStore persists users through gorm. Writes go through a mutex
// for the single-writer SQLite case.
type SQLCredentialStore struct {
	db      *gorm.DB
	writeMu sync.Mutex
}

func NewSQLCredentialStore(db *gorm.DB) *SQLCredentialStore {
	return &SQLCredentialStore{db: db}
}

func (s *SQLCredentialStore) CreateUser(ctx context.Context, email, passwordHash string) (User, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var existing database.User
	err := s.db.WithContext(ctx).First(&existing, "email = ?", email).Error
	if err == nil {
		return User{}, ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, fmt.Errorf("error querying user: %w", err)
	}

	user := database.User{
		Id:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return User{}, fmt.Errorf("error creating user: %w", err)
	}

	return toUser(user), nil
}

func (s *SQLCredentialStore) GetUser(ctx context.Context, email string) (User, string, error) {
	var user database.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, "", ErrUserNotFound
	}
	if err != nil {
		return User{}, "", fmt.Errorf("error querying user: %w", err)
	}
	return toUser(user), user.PasswordHash, nil
}

func toUser(user database.User) User {
	return User{ID: user.Id.String(), Email: user.Email, CreatedAt: user.CreatedAt}
}

type memoryUser struct {
	user User
	hash string
}

// MemoryCredentialStore keeps credentials in process memory, for tests and
// the database-less mode.
type MemoryCredentialStore struct {
	mu    sync.RWMutex
	users map[string]memoryUser
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{users: make(map[string]memoryUser)}
}

func (s *MemoryCredentialStore) CreateUser(ctx context.Context, email, passwordHash string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[email]; ok {
		return User{}, ErrUserExists
	}

	user := User{ID: uuid.NewString(), Email: email, CreatedAt: time.Now().UTC()}
	s.users[email] = memoryUser{user: user, hash: passwordHash}
	return user, nil
}

func (s *MemoryCredentialStore) GetUser(ctx context.Context, email string) (User, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.users[email]
	if !ok {
		return User{}, "", ErrUserNotFound
	}
	return entry.user, entry.hash, nil
}
