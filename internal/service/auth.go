package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"rideshare/internal/auth"
	"rideshare/internal/domain"
	"rideshare/internal/redis"
	"rideshare/internal/repository"
)

const (
	minPasswordLength = 8
	// bcrypt only hashes the first 72 bytes and rejects anything longer.
	maxPasswordLength = 72
)

// AuthService handles registration, login and token lifecycle.
type AuthService struct {
	userRepo          repository.UserRepository
	tokens            *auth.TokenManager
	tokenStore        redis.TokenStoreInterface
	initialAdminEmail string
	now               func() time.Time
}

// NewAuthService creates a new AuthService. Registering with initialAdminEmail
// grants the admin flag; an empty value disables the bootstrap.
func NewAuthService(
	userRepo repository.UserRepository,
	tokens *auth.TokenManager,
	tokenStore redis.TokenStoreInterface,
	initialAdminEmail string,
) *AuthService {
	return &AuthService{
		userRepo:          userRepo,
		tokens:            tokens,
		tokenStore:        tokenStore,
		initialAdminEmail: normalizeEmail(initialAdminEmail),
		now:               time.Now,
	}
}

// RegisterRequest contains the parameters for creating an account.
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
}

// Session is the result of a successful register or login.
type Session struct {
	User   *domain.User
	Token  string
	Claims *auth.Claims
}

// Register creates a user and signs them in.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return nil, ErrMissingRegistrationFields
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      s.initialAdminEmail != "" && email == s.initialAdminEmail,
		CreatedAt:    s.now(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	if user.IsAdmin {
		log.Printf("Granted admin to bootstrap account %s", user.ID)
	}

	return s.issue(user)
}

// Login verifies credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	return s.issue(user)
}

// Logout revokes the token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ID == "" || s.tokenStore == nil {
		return nil
	}
	if err := s.tokenStore.Revoke(ctx, claims.ID, s.tokens.TTL(claims)); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// Authenticate validates a token and checks it has not been revoked.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if s.tokenStore != nil && claims.ID != "" {
		revoked, err := s.tokenStore.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check token revocation: %w", err)
		}
		if revoked {
			return nil, ErrInvalidToken
		}
	}
	return claims, nil
}

// TokenTTL is the lifetime of newly issued tokens.
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokens.Expiry()
}

func (s *AuthService) issue(user *domain.User) (*Session, error) {
	token, claims, err := s.tokens.Generate(user.ID, user.IsAdmin)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token, Claims: claims}, nil
}

func validatePassword(password string) error {
	switch {
	case len(password) < minPasswordLength:
		return ErrWeakPassword
	case len(password) > maxPasswordLength:
		return ErrPasswordTooLong
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return ErrInvalidEmail
	}
	return nil
}
