// Package auth registers users, issues opaque session tokens and resolves
// bearer tokens to caller identities.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mfenderov/ragchat/internal/apierr"
	"github.com/mfenderov/ragchat/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

// DefaultSessionTTL is how long a session token stays valid.
const DefaultSessionTTL = 7 * 24 * time.Hour

const tokenBytes = 32

// ErrUserExists is returned by a Store when the email is already registered.
var ErrUserExists = errors.New("user already exists")

// User is a registered account.
type User struct {
	UserID       string `json:"userId"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	CreatedAt    string `json:"createdAt"`
}

// Session binds a token to a user until ExpiresAt (unix seconds).
type Session struct {
	Token     string `json:"token"`
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	ExpiresAt int64  `json:"expiresAt"`
}

// Store persists users and sessions. Lookups of missing records return
// nil without an error.
type Store interface {
	GetUser(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, u User) error
	PutSession(ctx context.Context, s Session, ttl time.Duration) error
	GetSession(ctx context.Context, token string) (*Session, error)
}

// RegisterRequest is the body of a registration.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of a login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Profile is the public view of a user.
type Profile struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// Grant is returned by a successful registration or login.
type Grant struct {
	Token     string  `json:"token"`
	ExpiresAt int64   `json:"expiresAt"`
	User      Profile `json:"user"`
}

// Service implements registration, login and token authentication.
type Service struct {
	store Store
	ttl   time.Duration
	cost  int
	now   func() time.Time
}

// New creates a Service. A zero ttl means DefaultSessionTTL.
func New(store Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Service{
		store: store,
		ttl:   ttl,
		cost:  bcrypt.DefaultCost,
		now:   time.Now,
	}
}

// Register creates an account and opens a session for it.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Grant, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)

	if name == "" || email == "" || req.Password == "" {
		return nil, apierr.New(apierr.Validation, "Name, email, and password required")
	}
	if !strings.Contains(email, "@") {
		return nil, apierr.New(apierr.Validation, "Invalid email")
	}
	if len(req.Password) < 8 {
		return nil, apierr.New(apierr.Validation, "Password must be 8+ characters")
	}

	existing, err := s.store.GetUser(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if existing != nil {
		return nil, apierr.New(apierr.Conflict, "Email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := User{
		UserID:       uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC().Format(time.RFC3339),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, apierr.New(apierr.Conflict, "Email already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.openSession(ctx, user)
}

// Login verifies credentials and opens a session.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Grant, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, apierr.New(apierr.Validation, "Email and password required")
	}

	user, err := s.store.GetUser(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, apierr.New(apierr.Authorization, "Invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, apierr.New(apierr.Authorization, "Invalid credentials")
	}

	return s.openSession(ctx, *user)
}

// Authenticate resolves an Authorization header value to the caller.
func (s *Service) Authenticate(ctx context.Context, header string) (models.Identity, error) {
	fields := strings.Fields(header)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "bearer") {
		return models.Identity{}, apierr.New(apierr.Authorization, "Authorization token missing")
	}

	session, err := s.store.GetSession(ctx, fields[1])
	if err != nil {
		return models.Identity{}, fmt.Errorf("failed to look up session: %w", err)
	}
	if session == nil {
		return models.Identity{}, apierr.New(apierr.Authorization, "Invalid or expired session token")
	}
	if session.ExpiresAt != 0 && session.ExpiresAt < s.now().Unix() {
		return models.Identity{}, apierr.New(apierr.Authorization, "Session token has expired")
	}

	return models.Identity{UserID: session.UserID, Email: session.Email}, nil
}

func (s *Service) openSession(ctx context.Context, user User) (*Grant, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	session := Session{
		Token:     token,
		UserID:    user.UserID,
		Email:     user.Email,
		Name:      user.Name,
		ExpiresAt: s.now().Add(s.ttl).Unix(),
	}
	if err := s.store.PutSession(ctx, session, s.ttl); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	return &Grant{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		User:      Profile{UserID: user.UserID, Name: user.Name, Email: user.Email},
	}, nil
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
