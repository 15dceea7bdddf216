package auth

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lamnguyen/vestika-backend/internal/users"
	pkgauth "github.com/lamnguyen/vestika-backend/pkg/auth"
	"github.com/lamnguyen/vestika-backend/pkg/config"
	"github.com/lamnguyen/vestika-backend/pkg/db/models"
	pkgerrors "github.com/lamnguyen/vestika-backend/pkg/errors"
	"github.com/lamnguyen/vestika-backend/pkg/logger"
)

type fakeGoogle struct {
	profile *GoogleProfile
	err     error
}

func (f *fakeGoogle) AuthCodeURL(state string) string {
	return "https://accounts.google.test/auth?state=" + state
}

func (f *fakeGoogle) FetchProfile(context.Context, string) (*GoogleProfile, error) {
	return f.profile, f.err
}

type fakeMailer struct {
	to     []string
	tokens []string
	err    error
}

func (f *fakeMailer) SendPasswordReset(_ context.Context, to, token string) error {
	f.to = append(f.to, to)
	f.tokens = append(f.tokens, token)
	return f.err
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:auth_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gdb.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "vestika-test", ExpirationMinutes: 60}
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     8,
		ArgonKeyLen:      16,
		ResetTokenTTL:    time.Hour,
	}
}

func newService(t *testing.T, gdb *gorm.DB, google GoogleClient, mail *fakeMailer) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "auth-test", Output: io.Discard})
	var svc Service
	var err error
	if mail != nil {
		svc, err = NewService(users.NewRepository(gdb), google, mail, testJWTConfig(), testPasswordConfig(), logg)
	} else {
		svc, err = NewService(users.NewRepository(gdb), google, nil, testJWTConfig(), testPasswordConfig(), logg)
	}
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newService(t, gdb, nil, nil)
	ctx := context.Background()

	session, err := svc.Register(ctx, RegisterInput{Email: " Linh@Example.com ", Name: "Linh", Password: "hunter22"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if session.User.Email != "linh@example.com" {
		t.Fatalf("expected normalized email, got %q", session.User.Email)
	}
	if session.Token == "" {
		t.Fatal("expected access token")
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), session.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != session.User.ID || claims.Email != "linh@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	_, err = svc.Register(ctx, RegisterInput{Email: "linh@example.com", Name: "Dup", Password: "hunter22"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}

	if _, err := svc.Login(ctx, "linh@example.com", "hunter22"); err != nil {
		t.Fatalf("login: %v", err)
	}

	_, err = svc.Login(ctx, "linh@example.com", "wrong-password")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for bad password, got %v", err)
	}

	_, err = svc.Login(ctx, "nobody@example.com", "hunter22")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for unknown email, got %v", err)
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	t.Parallel()

	svc := newService(t, newTestDB(t), nil, nil)
	ctx := context.Background()

	cases := []RegisterInput{
		{Email: "", Name: "Linh", Password: "hunter22"},
		{Email: "linh@example.com", Name: "", Password: "hunter22"},
		{Email: "linh@example.com", Name: "Linh", Password: "short"},
	}
	for _, input := range cases {
		_, err := svc.Register(ctx, input)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation for %+v, got %v", input, err)
		}
	}
}

func TestGoogleCallbackCreatesLinksAndReuses(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	google := &fakeGoogle{profile: &GoogleProfile{ID: "g-123", Email: "minh@example.com", Name: "Minh"}}
	svc := newService(t, gdb, google, nil)
	ctx := context.Background()

	// first callback creates the account
	session, err := svc.GoogleCallback(ctx, "code-1")
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	if session.User.GoogleID == nil || *session.User.GoogleID != "g-123" {
		t.Fatalf("expected google id stored, got %+v", session.User)
	}

	// second callback reuses it
	again, err := svc.GoogleCallback(ctx, "code-2")
	if err != nil {
		t.Fatalf("second callback: %v", err)
	}
	if again.User.ID != session.User.ID {
		t.Fatal("expected the same account on repeat login")
	}

	var count int64
	if err := gdb.Model(&models.User{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one user, got %d", count)
	}

	// google-only accounts cannot use password login
	_, err = svc.Login(ctx, "minh@example.com", "anything-at-all")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for google-only account, got %v", err)
	}
}

func TestGoogleCallbackLinksExistingEmail(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	google := &fakeGoogle{profile: &GoogleProfile{ID: "g-456", Email: "linh@example.com", Name: "Linh"}}
	svc := newService(t, gdb, google, nil)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{Email: "linh@example.com", Name: "Linh", Password: "hunter22"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	session, err := svc.GoogleCallback(ctx, "code-1")
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	if session.User.ID != registered.User.ID {
		t.Fatal("expected google login to link the existing account")
	}
	if session.User.GoogleID == nil || *session.User.GoogleID != "g-456" {
		t.Fatalf("expected linked google id, got %+v", session.User)
	}

	// the password still works after linking
	if _, err := svc.Login(ctx, "linh@example.com", "hunter22"); err != nil {
		t.Fatalf("login after linking: %v", err)
	}
}

func TestGoogleDisabled(t *testing.T) {
	t.Parallel()

	svc := newService(t, newTestDB(t), nil, nil)

	_, err := svc.GoogleAuthURL("state")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	_, err = svc.GoogleCallback(context.Background(), "code")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestForgotAndResetPassword(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	mail := &fakeMailer{}
	svc := newService(t, gdb, nil, mail)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Email: "linh@example.com", Name: "Linh", Password: "hunter22"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	// unknown address succeeds without sending anything
	if err := svc.ForgotPassword(ctx, "nobody@example.com"); err != nil {
		t.Fatalf("forgot unknown: %v", err)
	}
	if len(mail.to) != 0 {
		t.Fatalf("expected no mail for unknown address, got %v", mail.to)
	}

	if err := svc.ForgotPassword(ctx, "linh@example.com"); err != nil {
		t.Fatalf("forgot: %v", err)
	}
	if len(mail.tokens) != 1 || mail.to[0] != "linh@example.com" {
		t.Fatalf("expected one reset mail, got to=%v tokens=%d", mail.to, len(mail.tokens))
	}
	token := mail.tokens[0]

	if err := svc.ResetPassword(ctx, "bogus-token", "newpassword1"); err == nil {
		t.Fatal("expected error for bogus token")
	}

	if err := svc.ResetPassword(ctx, token, "newpassword1"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	// token is single use
	err := svc.ResetPassword(ctx, token, "anotherpass1")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for reused token, got %v", err)
	}

	if _, err := svc.Login(ctx, "linh@example.com", "hunter22"); err == nil {
		t.Fatal("expected old password to stop working")
	}
	if _, err := svc.Login(ctx, "linh@example.com", "newpassword1"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestResetPasswordRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	mail := &fakeMailer{}
	svc := newService(t, gdb, nil, mail)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Email: "linh@example.com", Name: "Linh", Password: "hunter22"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.ForgotPassword(ctx, "linh@example.com"); err != nil {
		t.Fatalf("forgot: %v", err)
	}

	expired := time.Now().UTC().Add(-time.Minute)
	if err := gdb.Model(&models.User{}).
		Where("email = ?", "linh@example.com").
		Update("reset_token_expiry", expired).Error; err != nil {
		t.Fatalf("expire token: %v", err)
	}

	err := svc.ResetPassword(ctx, mail.tokens[0], "newpassword1")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for expired token, got %v", err)
	}
}
