// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/linksnip/linksnip/internal/auth"
	"github.com/linksnip/linksnip/internal/mail"
	"github.com/linksnip/linksnip/internal/model"
	"github.com/linksnip/linksnip/internal/repository"
	"github.com/linksnip/linksnip/internal/token"
)

// Account service errors. These are the operational failures surfaced to
// callers with a specific status; everything else is masked as internal.
var (
	ErrMissingFields      = errors.New("missing required fields")
	ErrEmailTaken         = errors.New("user with the email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotVerified        = errors.New("account not verified")
	ErrInvalidToken       = errors.New("token is invalid or expired")
	ErrUserNotFound       = errors.New("no user found with the email")
	ErrEmailDelivery      = errors.New("problem sending email")
)

// DefaultResetTokenTTL is the password reset window when none is configured.
const DefaultResetTokenTTL = 10 * time.Minute

// UserStore is the credential persistence consumed by AccountService.
// *repository.Repository satisfies it.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	SetVerificationToken(ctx context.Context, userID, tokenHash string) error
	ClearVerificationToken(ctx context.Context, userID string) error
	GetUserByVerificationTokenHash(ctx context.Context, tokenHash string) (*model.User, error)
	ActivateUser(ctx context.Context, userID string) error
	SetPasswordResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	ClearPasswordResetToken(ctx context.Context, userID string) error
	GetUserByResetTokenHash(ctx context.Context, tokenHash string) (*model.User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// AccountService orchestrates the signup, verification, login and password
// reset flows.
type AccountService struct {
	store       UserStore
	mailer      mail.Mailer
	sessions    *auth.SessionIssuer
	hasher      *auth.PasswordHasher
	baseURL     string
	frontendURL string
	resetTTL    time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// AccountConfig bundles the dependencies of an AccountService.
type AccountConfig struct {
	Store       UserStore
	Mailer      mail.Mailer
	Sessions    *auth.SessionIssuer
	Hasher      *auth.PasswordHasher
	BaseURL     string
	FrontendURL string
	ResetTTL    time.Duration
	Logger      *slog.Logger
	Clock       func() time.Time
}

// NewAccountService creates an AccountService.
func NewAccountService(cfg AccountConfig) *AccountService {
	resetTTL := cfg.ResetTTL
	if resetTTL <= 0 {
		resetTTL = DefaultResetTokenTTL
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{
		store:       cfg.Store,
		mailer:      cfg.Mailer,
		sessions:    cfg.Sessions,
		hasher:      cfg.Hasher,
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		frontendURL: strings.TrimSuffix(cfg.FrontendURL, "/"),
		resetTTL:    resetTTL,
		logger:      logger,
		now:         now,
	}
}

// FrontendURL returns the configured frontend base URL.
func (s *AccountService) FrontendURL() string {
	return s.frontendURL
}

// SignupInput defines input for creating an account.
type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// Signup creates an inactive account and emails a verification link carrying
// the raw token. Only the token hash is persisted; if the email cannot be
// delivered the hash is cleared again and ErrEmailDelivery is returned.
func (s *AccountService) Signup(ctx context.Context, input SignupInput) error {
	if input.Name == "" || input.Email == "" || input.Password == "" {
		return ErrMissingFields
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Name:         input.Name,
		Email:        normalizeEmail(input.Email),
		PasswordHash: passwordHash,
		Active:       false,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	rawToken, err := token.Generate()
	if err != nil {
		return fmt.Errorf("failed to generate verification token: %w", err)
	}

	if err := s.store.SetVerificationToken(ctx, user.ID, token.Hash(rawToken)); err != nil {
		return fmt.Errorf("failed to store verification token: %w", err)
	}

	verifyURL := s.baseURL + "/api/v1/users/verify-account/" + rawToken
	msg := mail.Message{
		To:      user.Email,
		Subject: "Verify your Account",
		Body:    "Please verify your account by clicking the below link\n" + verifyURL,
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		// Compensating cleanup before surfacing the failure: the stored
		// hash is useless without a delivered raw token.
		if clearErr := s.store.ClearVerificationToken(ctx, user.ID); clearErr != nil {
			s.logger.Error("failed to clear verification token after send failure",
				"user_id", user.ID, "error", clearErr)
		}
		s.logger.Error("verification email delivery failed",
			"user_id", user.ID, "error", err)
		return ErrEmailDelivery
	}

	return nil
}

// VerifyResult is the outcome of a verification attempt.
type VerifyResult struct {
	User            *model.User
	SessionToken    string
	AlreadyVerified bool
}

// VerifyAccount consumes a raw verification token. Verifying an already
// active account is an idempotent success with AlreadyVerified set.
func (s *AccountService) VerifyAccount(ctx context.Context, rawToken string) (*VerifyResult, error) {
	if rawToken == "" {
		return nil, ErrInvalidToken
	}

	user, err := s.store.GetUserByVerificationTokenHash(ctx, token.Hash(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to look up verification token: %w", err)
	}

	if user.Active {
		return &VerifyResult{User: user, AlreadyVerified: true}, nil
	}

	if err := s.store.ActivateUser(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to activate user: %w", err)
	}
	user.Active = true

	sessionToken, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	s.logger.Info("account verified", "user_id", user.ID)

	return &VerifyResult{User: user, SessionToken: sessionToken}, nil
}

// LoginResult carries a fresh session token and the stripped user.
type LoginResult struct {
	Token string
	User  model.PublicUser
}

// Login authenticates a verified account. A missing user and a wrong password
// produce the same generic error so accounts cannot be enumerated here.
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if !user.Active {
		return nil, ErrNotVerified
	}

	sessionToken, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	return &LoginResult{Token: sessionToken, User: user.Public()}, nil
}

// ForgotPassword stores a hashed, time-limited reset token and emails the raw
// token. Unlike login, an unknown email is reported as not found; the
// asymmetry is inherited behavior, kept deliberately.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return ErrMissingFields
	}

	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	rawToken, err := token.Generate()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	expiresAt := s.now().Add(s.resetTTL)
	if err := s.store.SetPasswordResetToken(ctx, user.ID, token.Hash(rawToken), expiresAt); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	resetURL := s.frontendURL + "/resetPassword/" + rawToken
	msg := mail.Message{
		To:      user.Email,
		Subject: fmt.Sprintf("Password reset Token (valid for %d mins)", int(s.resetTTL.Minutes())),
		Body:    "Forgot your password? Please send a request with your new password\n" + resetURL,
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		if clearErr := s.store.ClearPasswordResetToken(ctx, user.ID); clearErr != nil {
			s.logger.Error("failed to clear reset token after send failure",
				"user_id", user.ID, "error", clearErr)
		}
		s.logger.Error("reset email delivery failed", "user_id", user.ID, "error", err)
		return ErrEmailDelivery
	}

	return nil
}

// ResetPassword consumes a raw reset token within its validity window and
// replaces the password. The consuming update clears the token fields, so a
// second use of the same token fails.
func (s *AccountService) ResetPassword(ctx context.Context, rawToken, newPassword string) (*model.PublicUser, error) {
	if newPassword == "" {
		return nil, ErrMissingFields
	}
	if rawToken == "" {
		return nil, ErrInvalidToken
	}

	user, err := s.store.GetUserByResetTokenHash(ctx, token.Hash(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to look up reset token: %w", err)
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.store.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		return nil, fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.Info("password reset", "user_id", user.ID)

	public := user.Public()
	return &public, nil
}

// normalizeEmail lower-cases an address so uniqueness is case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
