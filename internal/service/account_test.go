package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/linksnip/linksnip/internal/auth"
	"github.com/linksnip/linksnip/internal/mail"
	"github.com/linksnip/linksnip/internal/model"
	"github.com/linksnip/linksnip/internal/repository"
	"github.com/linksnip/linksnip/internal/token"
)

// fakeUserStore is an in-memory UserStore returning repository sentinels.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*model.User)}
}

func (f *fakeUserStore) CreateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return repository.ErrEmailExists
		}
	}
	cpy := *user
	f.users[user.ID] = &cpy
	return nil
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cpy := *u
	return &cpy, nil
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cpy := *u
			return &cpy, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUserStore) SetVerificationToken(_ context.Context, userID, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.VerificationTokenHash = &tokenHash
	return nil
}

func (f *fakeUserStore) ClearVerificationToken(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		u.VerificationTokenHash = nil
	}
	return nil
}

func (f *fakeUserStore) GetUserByVerificationTokenHash(_ context.Context, tokenHash string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.VerificationTokenHash != nil && *u.VerificationTokenHash == tokenHash {
			cpy := *u
			return &cpy, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUserStore) ActivateUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Active = true
	return nil
}

func (f *fakeUserStore) SetPasswordResetToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.ResetTokenHash = &tokenHash
	u.ResetTokenExpiresAt = &expiresAt
	return nil
}

func (f *fakeUserStore) ClearPasswordResetToken(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		u.ResetTokenHash = nil
		u.ResetTokenExpiresAt = nil
	}
	return nil
}

func (f *fakeUserStore) GetUserByResetTokenHash(_ context.Context, tokenHash string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ResetTokenHash != nil && *u.ResetTokenHash == tokenHash &&
			u.ResetTokenExpiresAt != nil && u.ResetTokenExpiresAt.After(time.Now()) {
			cpy := *u
			return &cpy, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.ResetTokenHash = nil
	u.ResetTokenExpiresAt = nil
	return nil
}

// get returns the live record, bypassing copies, for assertions.
func (f *fakeUserStore) get(t *testing.T, id string) *model.User {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		t.Fatalf("user %s not in store", id)
	}
	return u
}

func (f *fakeUserStore) byEmail(t *testing.T, email string) *model.User {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u
		}
	}
	t.Fatalf("user %s not in store", email)
	return nil
}

// fakeMailer records sent messages and can be made to fail.
type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) last(t *testing.T) mail.Message {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("no messages sent")
	}
	return f.sent[len(f.sent)-1]
}

func newAccountEnv(t *testing.T) (*AccountService, *fakeUserStore, *fakeMailer) {
	t.Helper()

	store := newFakeUserStore()
	mailer := &fakeMailer{}

	sessions, err := auth.NewSessionIssuer(auth.SessionConfig{
		Secret: "unit-test-secret-0123456789",
		TTL:    time.Hour,
	})
	if err != nil {
		t.Fatalf("NewSessionIssuer failed: %v", err)
	}

	svc := NewAccountService(AccountConfig{
		Store:       store,
		Mailer:      mailer,
		Sessions:    sessions,
		Hasher:      auth.NewPasswordHasher(4),
		BaseURL:     "http://localhost:8080",
		FrontendURL: "http://localhost:3000",
		ResetTTL:    10 * time.Minute,
	})

	return svc, store, mailer
}

// rawTokenFromBody extracts the raw token from the link in an email body.
func rawTokenFromBody(t *testing.T, body string) string {
	t.Helper()
	idx := strings.LastIndex(body, "/")
	if idx < 0 || idx == len(body)-1 {
		t.Fatalf("no token link in body: %q", body)
	}
	return body[idx+1:]
}

func TestSignup_MissingFields(t *testing.T) {
	t.Parallel()
	svc, _, _ := newAccountEnv(t)

	tests := []struct {
		name  string
		input SignupInput
	}{
		{"no_name", SignupInput{Email: "a@x.com", Password: "secret123"}},
		{"no_email", SignupInput{Name: "Ann", Password: "secret123"}},
		{"no_password", SignupInput{Name: "Ann", Email: "a@x.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.Signup(context.Background(), tt.input); !errors.Is(err, ErrMissingFields) {
				t.Errorf("expected ErrMissingFields, got %v", err)
			}
		})
	}
}

func TestSignup_CreatesUnverifiedUserAndStoresHash(t *testing.T) {
	t.Parallel()
	svc, store, mailer := newAccountEnv(t)

	err := svc.Signup(context.Background(), SignupInput{Name: "Ann", Email: "A@X.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}

	user := store.byEmail(t, "a@x.com") // email is case-normalized
	if user.Active {
		t.Error("new user should be inactive")
	}
	if user.PasswordHash == "secret123" || user.PasswordHash == "" {
		t.Error("password must be stored hashed")
	}
	if user.VerificationTokenHash == nil {
		t.Fatal("verification token hash should be stored")
	}

	raw := rawTokenFromBody(t, mailer.last(t).Body)
	if token.Hash(raw) != *user.VerificationTokenHash {
		t.Error("stored hash should be the SHA-256 of the emailed raw token")
	}
	if raw == *user.VerificationTokenHash {
		t.Error("raw token must never be persisted")
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	t.Parallel()
	svc, _, _ := newAccountEnv(t)
	ctx := context.Background()

	if err := svc.Signup(ctx, SignupInput{Name: "Ann", Email: "a@x.com", Password: "secret123"}); err != nil {
		t.Fatalf("first Signup failed: %v", err)
	}

	// Case-insensitive conflict.
	err := svc.Signup(ctx, SignupInput{Name: "Ann2", Email: "A@X.COM", Password: "other456"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestSignup_DeliveryFailureClearsToken(t *testing.T) {
	t.Parallel()
	svc, store, mailer := newAccountEnv(t)
	mailer.err = errors.New("smtp down")

	err := svc.Signup(context.Background(), SignupInput{Name: "Ann", Email: "a@x.com", Password: "secret123"})
	if !errors.Is(err, ErrEmailDelivery) {
		t.Fatalf("expected ErrEmailDelivery, got %v", err)
	}

	user := store.byEmail(t, "a@x.com")
	if user.VerificationTokenHash != nil {
		t.Error("verification token hash should be cleared after delivery failure")
	}
	if user.Active {
		t.Error("user should remain inactive")
	}
}

func TestVerifyAccount_InvalidToken(t *testing.T) {
	t.Parallel()
	svc, _, _ := newAccountEnv(t)

	if _, err := svc.VerifyAccount(context.Background(), "no-such-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := svc.VerifyAccount(context.Background(), ""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for empty token, got %v", err)
	}
}

func TestVerifyAccount_ActivatesOnceAndIsIdempotent(t *testing.T) {
	t.Parallel()
	svc, store, mailer := newAccountEnv(t)
	ctx := context.Background()

	if err := svc.Signup(ctx, SignupInput{Name: "Ann", Email: "a@x.com", Password: "secret123"}); err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	raw := rawTokenFromBody(t, mailer.last(t).Body)

	result, err := svc.VerifyAccount(ctx, raw)
	if err != nil {
		t.Fatalf("VerifyAccount failed: %v", err)
	}
	if result.AlreadyVerified {
		t.Error("first verification should not report already verified")
	}
	if result.SessionToken == "" {
		t.Error("first verification should issue a session token")
	}
	if !store.byEmail(t, "a@x.com").Active {
		t.Error("user should be active after verification")
	}

	// Second presentation of the same token is an idempotent success.
	again, err := svc.VerifyAccount(ctx, raw)
	if err != nil {
		t.Fatalf("repeat VerifyAccount failed: %v", err)
	}
	if !again.AlreadyVerified {
		t.Error("repeat verification should report already verified")
	}
}

func TestLogin_RequiresVerifiedAccount(t *testing.T) {
	t.Parallel()
	svc, _, mailer := newAccountEnv(t)
	ctx := context.Background()

	if err := svc.Signup(ctx, SignupInput{Name: "Ann", Email: "a@x.com", Password: "secret123"}); err != nil {
		t.Fatalf("Signup failed: %v", err)
	}

	// Correct credentials, unverified account.
	if _, err := svc.Login(ctx, "a@x.com", "secret123"); !errors.Is(err, ErrNotVerified) {
		t.Fatalf("expected ErrNotVerified, got %v", err)
	}

	raw := rawTokenFromBody(t, mailer.last(t).Body)
	if _, err := svc.VerifyAccount(ctx, raw); err != nil {
		t.Fatalf("VerifyAccount failed: %v", err)
	}

	result, err := svc.Login(ctx, "a@x.com", "secret123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result.Token == "" {
		t.Error("login should issue a session token")
	}
	if result.User.Email != "a@x.com" {
		t.Errorf("unexpected user in login result: %+v", result.User)
	}
}

func TestLogin_GenericErrorForBadCredentials(t *testing.T) {
	t.Parallel()
	svc, _, mailer := newAccountEnv(t)
	ctx := context.Background()

	if err := svc.Signup(ctx, SignupInput{Name: "Ann", Email: "a@x.com", Password: "secret123"}); err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	raw := rawTokenFromBody(t, mailer.last(t).Body)
	if _, err := svc.VerifyAccount(ctx, raw); err != nil {
		t.Fatalf("VerifyAccount failed: %v", err)
	}

	// Unknown user and wrong password fail identically.
	_, errUnknown := svc.Login(ctx, "ghost@x.com", "secret123")
	_, errWrongPw := svc.Login(ctx, "a@x.com", "wrong-password")

	if !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Errorf("unknown user: expected ErrInvalidCredentials, got %v", errUnknown)
	}
	if !errors.Is(errWrongPw, ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", errWrongPw)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	t.Parallel()
	svc, _, _ := newAccountEnv(t)

	if _, err := svc.Login(context.Background(), "", "secret123"); !errors.Is(err, ErrMissingFields) {
		t.Errorf("expected ErrMissingFields, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "a@x.com", ""); !errors.Is(err, ErrMissingFields) {
		t.Errorf("expected ErrMissingFields, got %v", err)
	}
}

func TestForgotPassword_Validation(t *testing.T) {
	t.Parallel()
	svc, _, _ := newAccountEnv(t)
	ctx := context.Background()

	if err := svc.ForgotPassword(ctx, ""); !errors.Is(err, ErrMissingFields) {
		t.Errorf("expected ErrMissingFields, got %v", err)
	}
	// Unlike login, an unknown address is reported as not found.
	if err := svc.ForgotPassword(ctx, "ghost@x.com"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestForgotPassword_StoresHashedTokenWithExpiry(t *testing.T) {
	t.Parallel()
	svc, store, mailer := newAccountEnv(t)
	ctx := context.Background()

	if err := svc.Signup(ctx, SignupInput{Name: "Ann", Email: "a@x.com", Password: "secret123"}); err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	if err := svc.ForgotPassword(ctx, "a@x.com"); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}

	user := store.byEmail(t, "a@x.com")
	if user.ResetTokenHash == nil || user.ResetTokenExpiresAt == nil {
		t.Fatal("reset token hash and expiry should be stored")
	}

	raw := rawTokenFromBody(t, mailer.last(t).Body)
	if token.Hash(raw) != *user.ResetTokenHash {
		t.Error("stored hash should be the SHA-256 of the emailed raw token")
	}

	window := time.Until(*user.ResetTokenExpiresAt)
	if window <= 9*time.Minute || window > 10*time.Minute {
		t.Errorf("expected ~10 minute window, got %s", window)
	}
}

func TestForgotPassword_DeliveryFailureClearsFields(t *testing.T) {
	t.Parallel()
	svc, store, mailer := newAccountEnv(t)
	ctx := context.Background()

	if err := svc.Signup(ctx, SignupInput{Name: "Ann", Email: "a@x.com", Password: "secret123"}); err != nil {
		t.Fatalf("Signup failed: %v", err)
	}

	mailer.err = errors.New("smtp down")
	if err := svc.ForgotPassword(ctx, "a@x.com"); !errors.Is(err, ErrEmailDelivery) {
		t.Fatalf("expected ErrEmailDelivery, got %v", err)
	}

	user := store.byEmail(t, "a@x.com")
	if user.ResetTokenHash != nil || user.ResetTokenExpiresAt != nil {
		t.Error("reset fields should be cleared after delivery failure")
	}
}

func TestResetPassword_InvalidOrExpiredToken(t *testing.T) {
	t.Parallel()
	svc, store, mailer := newAccountEnv(t)
	ctx := context.Background()

	if _, err := svc.ResetPassword(ctx, "no-such-token", "newpass456"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	if err := svc.Signup(ctx, SignupInput{Name: "Ann", Email: "a@x.com", Password: "secret123"}); err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	if err := svc.ForgotPassword(ctx, "a@x.com"); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	raw := rawTokenFromBody(t, mailer.last(t).Body)

	// Force the window shut.
	expired := time.Now().Add(-time.Minute)
	store.byEmail(t, "a@x.com").ResetTokenExpiresAt = &expired

	if _, err := svc.ResetPassword(ctx, raw, "newpass456"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestResetPassword_ConsumesToken(t *testing.T) {
	t.Parallel()
	svc, store, mailer := newAccountEnv(t)
	ctx := context.Background()

	if err := svc.Signup(ctx, SignupInput{Name: "Ann", Email: "a@x.com", Password: "secret123"}); err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	verifyRaw := rawTokenFromBody(t, mailer.last(t).Body)
	if _, err := svc.VerifyAccount(ctx, verifyRaw); err != nil {
		t.Fatalf("VerifyAccount failed: %v", err)
	}
	if err := svc.ForgotPassword(ctx, "a@x.com"); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	resetRaw := rawTokenFromBody(t, mailer.last(t).Body)

	user, err := svc.ResetPassword(ctx, resetRaw, "newpass456")
	if err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}
	if user.Email != "a@x.com" {
		t.Errorf("unexpected user in reset result: %+v", user)
	}

	stored := store.byEmail(t, "a@x.com")
	if stored.ResetTokenHash != nil || stored.ResetTokenExpiresAt != nil {
		t.Error("reset fields should be cleared by a successful reset")
	}

	// Old password no longer works, new one does.
	if _, err := svc.Login(ctx, "a@x.com", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password should fail, got %v", err)
	}
	if _, err := svc.Login(ctx, "a@x.com", "newpass456"); err != nil {
		t.Errorf("new password should work, got %v", err)
	}

	// Token is single use.
	if _, err := svc.ResetPassword(ctx, resetRaw, "thirdpass789"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken on token reuse, got %v", err)
	}
}

func TestResetPassword_MissingPassword(t *testing.T) {
	t.Parallel()
	svc, _, _ := newAccountEnv(t)

	if _, err := svc.ResetPassword(context.Background(), "some-token", ""); !errors.Is(err, ErrMissingFields) {
		t.Errorf("expected ErrMissingFields, got %v", err)
	}
}
