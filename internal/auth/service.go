package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lamnguyen/vestika-backend/internal/users"
	"github.com/lamnguyen/vestika-backend/pkg/auth"
	"github.com/lamnguyen/vestika-backend/pkg/config"
	"github.com/lamnguyen/vestika-backend/pkg/db"
	"github.com/lamnguyen/vestika-backend/pkg/db/models"
	pkgerrors "github.com/lamnguyen/vestika-backend/pkg/errors"
	"github.com/lamnguyen/vestika-backend/pkg/logger"
	"github.com/lamnguyen/vestika-backend/pkg/mailer"
	"github.com/lamnguyen/vestika-backend/pkg/security"
)

// ForgotPasswordReply is returned for every forgot-password request so the
// endpoint cannot be used to enumerate accounts.
const ForgotPasswordReply = "If an account exists for that email, a reset link has been sent."

// Service defines registration, login and password-recovery operations.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	Me(ctx context.Context, userID uuid.UUID) (*models.User, error)
	GoogleAuthURL(state string) (string, error)
	GoogleCallback(ctx context.Context, code string) (*Session, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// RegisterInput carries a new password-based account.
type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

// Session pairs an authenticated user with a freshly minted access token.
type Session struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

type service struct {
	repo   users.Repository
	google GoogleClient
	mail   mailer.Sender
	jwt    config.JWTConfig
	pw     config.PasswordConfig
	logg   *logger.Logger
	now    func() time.Time
}

// NewService wires auth dependencies. google and mail may be nil when the
// corresponding integration is not configured.
func NewService(repo users.Repository, google GoogleClient, mail mailer.Sender, jwtCfg config.JWTConfig, pwCfg config.PasswordConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		repo:   repo,
		google: google,
		mail:   mail,
		jwt:    jwtCfg,
		pw:     pwCfg,
		logg:   logg,
		now:    time.Now,
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	if len(input.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	hash, err := security.HashPassword(input.Password, s.pw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Email:        email,
		Name:         input.Name,
		PasswordHash: &hash,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "an account with that email already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	return s.sessionFor(user)
}

func (s *service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")
	}
	if user.PasswordHash == nil {
		// Google-only account; deliberately the same generic message
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")
	}

	ok, err := security.VerifyPassword(password, *user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")
	}

	return s.sessionFor(user)
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account no longer exists")
	}
	return user, nil
}

func (s *service) GoogleAuthURL(state string) (string, error) {
	if s.google == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "google login is not configured")
	}
	return s.google.AuthCodeURL(state), nil
}

// GoogleCallback exchanges the code and finds or creates the local account.
// Accounts are matched by google id first, then linked by email.
func (s *service) GoogleCallback(ctx context.Context, code string) (*Session, error) {
	if s.google == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "google login is not configured")
	}
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "authorization code required")
	}

	profile, err := s.google.FetchProfile(ctx, code)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.FindByGoogleID(ctx, profile.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	if user == nil {
		user, err = s.repo.FindByEmail(ctx, normalizeEmail(profile.Email))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}
		if user != nil {
			googleID := profile.ID
			user.GoogleID = &googleID
			if err := s.repo.Update(ctx, user); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link google account")
			}
		}
	}

	if user == nil {
		googleID := profile.ID
		name := profile.Name
		if name == "" {
			name = profile.Email
		}
		user = &models.User{
			Email:    normalizeEmail(profile.Email),
			Name:     name,
			GoogleID: &googleID,
		}
		if err := s.repo.Create(ctx, user); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}
	}

	return s.sessionFor(user)
}

// ForgotPassword is deliberately uniform: it succeeds whether or not the
// email matches an account, and mail failures are logged, not surfaced.
func (s *service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user == nil {
		return nil
	}

	token, err := security.GenerateResetToken()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset token")
	}
	expiry := s.now().UTC().Add(s.pw.ResetTokenTTL)
	if err := s.repo.SetResetToken(ctx, user.ID, token, expiry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist reset token")
	}

	if s.mail == nil {
		s.logg.Warn(ctx, "reset token generated but mailer is not configured")
		return nil
	}
	if err := s.mail.SendPasswordReset(ctx, user.Email, token); err != nil {
		s.logg.Error(ctx, "sending password reset email failed", err)
	}
	return nil
}

func (s *service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired reset token")
	}
	if len(newPassword) < 8 {
		return pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	user, err := s.repo.FindByResetToken(ctx, token)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user == nil || user.ResetTokenExpiry == nil || s.now().UTC().After(*user.ResetTokenExpiry) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired reset token")
	}

	hash, err := security.HashPassword(newPassword, s.pw)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.repo.ClearResetToken(ctx, user.ID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store new password")
	}
	return nil
}

func (s *service) sessionFor(user *models.User) (*Session, error) {
	token, err := auth.MintAccessToken(s.jwt, s.now(), auth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	return &Session{User: user, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
