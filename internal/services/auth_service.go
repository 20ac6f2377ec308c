package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/rohits-web03/estately/internal/metrics"
	"github.com/rohits-web03/estately/internal/models"
	"github.com/rohits-web03/estately/internal/repositories"
	"github.com/rohits-web03/estately/internal/utils"
)

// Sign-in methods, also used as metric labels.
const (
	MethodPassword = "password"
	MethodProvider = "provider"
	MethodOAuth    = "oauth"
)

const (
	msgDuplicateUser = "User with same username or email already exist"
	msgUserNotFound  = "User not found!"
)

// IdentityVerifier checks a federated ID token and returns its email.
type IdentityVerifier interface {
	VerifyEmail(ctx context.Context, idToken string) (string, error)
}

type AuthService struct {
	users    repositories.UserStore
	tokens   *TokenManager
	verifier IdentityVerifier
}

// NewAuthService builds the auth service. verifier may be nil, in which case
// provider profiles are trusted as sent.
func NewAuthService(users repositories.UserStore, tokens *TokenManager, verifier IdentityVerifier) *AuthService {
	return &AuthService{users: users, tokens: tokens, verifier: verifier}
}

type SignUpInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ProviderProfile struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	PhotoURL string `json:"photoURL"`
	IDToken  string `json:"idToken,omitempty"`
}

// Session is a signed-in user plus the token to set as the jwt cookie.
type Session struct {
	User      models.User
	Token     string
	ExpiresAt time.Time
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (models.User, error) {
	hashed, err := HashPassword(in.Password)
	if err != nil {
		return models.User{}, Internal(fmt.Errorf("hash password: %w", err))
	}
	u := models.User{
		Username:     strings.TrimSpace(in.Username),
		Email:        normalizeEmail(in.Email),
		PasswordHash: hashed,
		PhotoURL:     models.DefaultPhotoURL,
	}
	if err := s.users.CreateUser(ctx, &u); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return models.User{}, Conflict(msgDuplicateUser)
		}
		return models.User{}, Internal(err)
	}
	return u, nil
}

func (s *AuthService) SignIn(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return Session{}, NotFound(msgUserNotFound)
		}
		return Session{}, Internal(err)
	}
	if !CheckPassword(u.PasswordHash, password) {
		return Session{}, Unauthorized("Wrong credentials!")
	}
	return s.issue(u, MethodPassword)
}

// SignInWithProvider signs in a federated identity, creating the account on
// first use with a random password and a disambiguated username.
func (s *AuthService) SignInWithProvider(ctx context.Context, p ProviderProfile, method string) (Session, error) {
	email := normalizeEmail(p.Email)
	if s.verifier != nil && method == MethodProvider {
		if p.IDToken == "" {
			return Session{}, Unauthorized("Missing identity token")
		}
		verified, err := s.verifier.VerifyEmail(ctx, p.IDToken)
		if err != nil || normalizeEmail(verified) != email {
			return Session{}, Unauthorized("Invalid identity token")
		}
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return s.issue(u, method)
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return Session{}, Internal(err)
	}

	password, err := utils.RandomBase36(16)
	if err != nil {
		return Session{}, Internal(err)
	}
	hashed, err := HashPassword(password)
	if err != nil {
		return Session{}, Internal(err)
	}
	photo := strings.TrimSpace(p.PhotoURL)
	if photo == "" {
		photo = models.DefaultPhotoURL
	}

	// a concurrent sign-up can still take the generated username
	for attempt := 0; attempt < 3; attempt++ {
		username, err := s.uniqueUsername(ctx, p.Username)
		if err != nil {
			return Session{}, Internal(err)
		}
		u = models.User{Username: username, Email: email, PasswordHash: hashed, PhotoURL: photo}
		err = s.users.CreateUser(ctx, &u)
		if err == nil {
			return s.issue(u, method)
		}
		if !errors.Is(err, repositories.ErrDuplicate) {
			return Session{}, Internal(err)
		}
		if existing, getErr := s.users.GetUserByEmail(ctx, email); getErr == nil {
			return s.issue(existing, method)
		}
	}
	return Session{}, Conflict(msgDuplicateUser)
}

// uniqueUsername lowercases name, strips whitespace and appends five random
// base36 characters until the result is free.
func (s *AuthService) uniqueUsername(ctx context.Context, name string) (string, error) {
	base := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, name)
	if runes := []rune(base); len(runes) > 15 {
		base = string(runes[:15])
	}
	if base == "" {
		base = "user"
	}
	for {
		suffix, err := utils.RandomBase36(5)
		if err != nil {
			return "", err
		}
		candidate := base + suffix
		taken, err := s.users.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
}

func (s *AuthService) issue(u models.User, method string) (Session, error) {
	token, exp, err := s.tokens.Issue(u.ID)
	if err != nil {
		return Session{}, Internal(fmt.Errorf("sign token: %w", err))
	}
	metrics.SignIns.WithLabelValues(method).Inc()
	return Session{User: u, Token: token, ExpiresAt: exp}, nil
}

// Me returns the user behind the current session.
func (s *AuthService) Me(ctx context.Context, userID string) (models.User, error) {
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, NotFound(msgUserNotFound)
		}
		return models.User{}, Internal(err)
	}
	return u, nil
}
