package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

const DefaultTokenValidity = 24 * time.Hour

type User struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

// CredentialStore persists credential records. Passwords are stored only as
// bcrypt hashes.
type CredentialStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (User, error)
	GetUser(ctx context.Context, email string) (User, string, error)
}

// Service registers and authenticates users and issues stateless HS256
// bearer tokens carrying subject and expiry.
type Service struct {
	store    CredentialStore
	secret   []byte
	validity time.Duration
}

func NewService(store CredentialStore, secret string, validity time.Duration) *Service {
	if validity <= 0 {
		validity = DefaultTokenValidity
	}
	return &Service{store: store, secret: []byte(secret), validity: validity}
}

func (s *Service) Register(ctx context.Context, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	if _, err := s.store.CreateUser(ctx, email, string(hash)); err != nil {
		return err
	}
	return nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	user, hash, err := s.store.GetUser(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) IssueToken(subject string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.validity)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("error signing token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates signature and expiry and returns the token subject.
func (s *Service) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", ErrInvalidToken
	}
	return subject, nil
}
