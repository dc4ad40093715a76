package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"childsubs/internal/models"
	"childsubs/internal/security"
	"childsubs/internal/validation"
)

var (
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrMissingOAuthInfo   = errors.New("missing oauth provider information")
)

// WelcomeMailer sends the post-registration email
type WelcomeMailer interface {
	SendWelcomeEmail(ctx context.Context, toEmail, toName string) error
}

// AuthService handles authentication business logic
type AuthService struct {
	users           UserStore
	mailer          WelcomeMailer
	sessionDuration time.Duration
	logger          *zap.Logger
}

// NewAuthService creates a new auth service. mailer may be nil.
func NewAuthService(users UserStore, mailer WelcomeMailer, sessionDuration time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:           users,
		mailer:          mailer,
		sessionDuration: sessionDuration,
		logger:          logger,
	}
}

// Register creates a new parent account
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.CreateUser(ctx, email, passwordHash, validation.SanitizeTextField(name))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.Bool("admin", user.IsAdmin))

	s.welcome(ctx, user)
	return user, nil
}

func (s *AuthService) welcome(ctx context.Context, user *models.User) {
	if s.mailer == nil {
		return
	}
	if err := s.mailer.SendWelcomeEmail(ctx, user.Email, user.Name); err != nil {
		s.logger.Warn("failed to send welcome email", zap.Int64("user_id", user.ID), zap.Error(err))
	}
}

// Login authenticates a user and creates a session
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.Session, *models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !security.CheckPassword(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.newSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

func (s *AuthService) newSession(ctx context.Context, userID int64) (*models.Session, error) {
	session, err := s.users.CreateSession(ctx, security.GenerateSessionID(), userID, time.Now().Add(s.sessionDuration))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// ValidateSession checks if a session is valid and returns the associated user
func (s *AuthService) ValidateSession(ctx context.Context, sessionID string) (*models.User, error) {
	session, err := s.users.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if session.IsExpired() {
		_ = s.users.DeleteSession(ctx, sessionID)
		return nil, ErrSessionExpired
	}

	user, err := s.users.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}
	return user, nil
}

// Logout invalidates a session
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.users.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// CleanupExpiredSessions removes expired sessions from the database
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) error {
	n, err := s.users.DeleteExpiredSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	if n > 0 {
		s.logger.Info("expired sessions removed", zap.Int64("count", n))
	}
	return nil
}

// OAuthLogin authenticates or creates a user from a verified OAuth identity.
// An existing password account with the same email is linked to the provider.
func (s *AuthService) OAuthLogin(ctx context.Context, provider, subject, email, name string) (*models.Session, *models.User, error) {
	if provider == "" || subject == "" {
		return nil, nil, ErrMissingOAuthInfo
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if err := validation.ValidateEmail(email); err != nil {
		return nil, nil, err
	}

	user, err := s.users.GetUserByOAuth(ctx, provider, subject)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lookup oauth user: %w", err)
	}

	if user == nil {
		user, err = s.linkOrCreateOAuthUser(ctx, provider, subject, email, name)
		if err != nil {
			return nil, nil, err
		}
	}

	session, err := s.newSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

func (s *AuthService) linkOrCreateOAuthUser(ctx context.Context, provider, subject, email, name string) (*models.User, error) {
	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		if existing.OAuthProvider != "" && existing.OAuthProvider != provider {
			return nil, ErrEmailTaken
		}
		if err := s.users.LinkOAuthProvider(ctx, existing.ID, provider, subject); err != nil {
			return nil, fmt.Errorf("failed to link oauth provider: %w", err)
		}
		return existing, nil
	}

	if name = validation.SanitizeTextField(name); name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	// OAuth accounts never log in with a password; store an unguessable one
	randomPasswordHash, err := security.HashPassword(security.GenerateSessionID())
	if err != nil {
		return nil, err
	}
	user, err := s.users.CreateUser(ctx, email, randomPasswordHash, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth user: %w", err)
	}
	if err := s.users.LinkOAuthProvider(ctx, user.ID, provider, subject); err != nil {
		return nil, fmt.Errorf("failed to link oauth provider: %w", err)
	}
	user.OAuthProvider = provider
	user.OAuthSubject = subject

	s.logger.Info("user registered via oauth", zap.Int64("user_id", user.ID), zap.String("provider", provider))
	s.welcome(ctx, user)
	return user, nil
}
