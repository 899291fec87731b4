package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"chat-backend/internal/auth"
	"chat-backend/pkg/api"
)

type AuthService struct {
	auth *auth.Service
}

func NewAuthService(authService *auth.Service) *AuthService {
	return &AuthService{auth: authService}
}

func (s *AuthService) AddRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", RestHandler(s.Register))
		r.Post("/login", RestHandler(s.Login))
		r.Get("/me", RestHandler(s.Me))
	})
}

func (s *AuthService) Register(r *http.Request) (any, error) {
	req, err := ParseRequest[api.RegisterRequest](r)
	if err != nil {
		return nil, err
	}
	if req.Email == "" || req.Password == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "email and password are required")
	}

	if err := s.auth.Register(r.Context(), req.Email, req.Password); err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			return nil, CodedErrorf(http.StatusBadRequest, "user already exists")
		}
		return nil, CodedErrorf(http.StatusInternalServerError, "error registering user: %v", err)
	}

	token, err := s.auth.IssueToken(req.Email)
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "error issuing token: %v", err)
	}

	return api.AuthResponse{Token: token, Email: req.Email}, nil
}

func (s *AuthService) Login(r *http.Request) (any, error) {
	req, err := ParseRequest[api.LoginRequest](r)
	if err != nil {
		return nil, err
	}

	user, err := s.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return nil, CodedErrorf(http.StatusUnauthorized, "invalid credentials")
		}
		return nil, CodedErrorf(http.StatusInternalServerError, "error authenticating user: %v", err)
	}

	token, err := s.auth.IssueToken(user.Email)
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "error issuing token: %v", err)
	}

	return api.AuthResponse{Token: token, Email: user.Email}, nil
}

func (s *AuthService) Me(r *http.Request) (any, error) {
	email, err := bearerSubject(r, s.auth)
	if err != nil {
		return nil, err
	}
	return api.MeResponse{Email: email}, nil
}

// bearerSubject extracts and verifies the bearer token, returning its
// subject.
func bearerSubject(r *http.Request, verifier *auth.Service) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", CodedErrorf(http.StatusUnauthorized, "no authorization header")
	}

	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
	if token == "" {
		return "", CodedErrorf(http.StatusUnauthorized, "invalid authorization header")
	}

	subject, err := verifier.VerifyToken(token)
	if err != nil {
		return "", CodedErrorf(http.StatusUnauthorized, "invalid token")
	}
	return subject, nil
}
