package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/blogcms/models"
	"github.com/cppla/blogcms/repository"
	"github.com/cppla/blogcms/utils"
)

const minPasswordLength = 6

// RegisterInput is a registration request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// UserSummary is the public view of an account.
type UserSummary struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// LoginResult carries the issued token and who it belongs to.
type LoginResult struct {
	AccessToken string      `json:"access_token"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        UserSummary `json:"user"`
}

// AuthService verifies credentials and issues bearer tokens.
type AuthService struct {
	users     UserStore
	tokens    *utils.TokenManager
	blacklist *utils.TokenBlacklist
	// reserved reports emails that may not self-register; nil reserves none.
	reserved func(email string) bool
	log      *zap.Logger
}

func NewAuthService(users UserStore, tokens *utils.TokenManager, blacklist *utils.TokenBlacklist, reserved func(email string) bool, log *zap.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, blacklist: blacklist, reserved: reserved, log: log}
}

// Register creates an account. An email already in use is a Conflict and a reserved
// one is Forbidden.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" {
		return nil, newError(ErrValidation, "name cannot be empty")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, newError(ErrValidation, "invalid email address")
	}
	if len(in.Password) < minPasswordLength {
		return nil, newError(ErrValidation, "password must be at least %d characters", minPasswordLength)
	}

	if s.reserved != nil && s.reserved(email) {
		s.log.Warn("registration with reserved email refused")
		return nil, newError(ErrForbidden, "Email cannot be registered")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, newError(ErrConflict, "Email already in use")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{Name: name, Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// lost a race with a concurrent registration
			return nil, newError(ErrConflict, "Email already in use")
		}
		return nil, err
	}
	s.log.Info("user registered", zap.Uint("user_id", user.ID))
	return user, nil
}

// Login checks credentials. Unknown email and wrong password are indistinguishable.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrUnauthorized, "Invalid credentials")
		}
		return nil, err
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		s.log.Info("login failed", zap.Uint("user_id", user.ID))
		return nil, newError(ErrUnauthorized, "Invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &LoginResult{AccessToken: token, ExpiresAt: expiresAt, User: Summarize(user)}, nil
}

// Authenticate validates a bearer token and returns the identity it carries.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*utils.Claims, error) {
	if s.blacklist.IsRevoked(ctx, token) {
		return nil, newError(ErrUnauthorized, "token revoked")
	}
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return nil, newError(ErrUnauthorized, "invalid token")
	}
	return claims, nil
}

// Logout revokes token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, token string, claims *utils.Claims) {
	expiresAt := time.Now().Add(time.Hour)
	if claims != nil && claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	s.blacklist.Revoke(ctx, token, expiresAt)
}

// Me returns the summary of the account behind userID.
func (s *AuthService) Me(ctx context.Context, userID uint) (*UserSummary, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrUnauthorized, "account no longer exists")
		}
		return nil, err
	}
	summary := Summarize(user)
	return &summary, nil
}

// Summarize strips everything but the public fields of a user.
func Summarize(u *models.User) UserSummary {
	return UserSummary{ID: u.ID, Email: u.Email, Name: u.Name}
}
