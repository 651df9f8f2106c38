package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/pride-academy/academy/internal/shared"
)

const minPasswordLength = 8

// ErrResetTokenInvalid covers expired, malformed or tampered reset tokens.
var ErrResetTokenInvalid = errors.New("auth: reset token invalid")

// Notifier announces new registrations to administrators.
type Notifier interface {
	UserRegistered(ctx context.Context, userID int64, displayName string) error
}

// Mailer delivers the password reset link. Implemented by the jobs enqueuer
// so SMTP stays off the request path.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, link string) error
}

// ServiceConfig carries reset token parameters.
type ServiceConfig struct {
	ResetTokenSecret string
	ResetTokenTTL    time.Duration
	FrontendBaseURL  string
}

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	notifier Notifier
	mailer   Mailer
	cfg      ServiceConfig
	now      func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository, notifier Notifier, mailer Mailer, cfg ServiceConfig) *Service {
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = time.Hour
	}
	return &Service{repo: repo, notifier: notifier, mailer: mailer, cfg: cfg, now: time.Now}
}

// Authenticate validates email/password credentials. Unknown email and wrong
// password are reported separately so the UI can localize both, matching the
// sign-in screen contract.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	_ = s.repo.TouchLastLogin(ctx, user.ID, s.now().UTC())
	return user, nil
}

// SignUp registers a new pending account and notifies administrators.
func (s *Service) SignUp(ctx context.Context, reg Registration) (int64, error) {
	reg.Email = strings.ToLower(strings.TrimSpace(reg.Email))
	if len(reg.Password) < minPasswordLength {
		return 0, shared.ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}
	id, err := s.repo.CreateUser(ctx, reg, string(hash))
	if err != nil {
		return 0, err
	}
	if s.notifier != nil {
		_ = s.notifier.UserRegistered(ctx, id, reg.DisplayName)
	}
	return id, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

type resetClaims struct {
	jwt.RegisteredClaims
}

// RequestPasswordReset issues a signed reset token and mails the link. An
// unknown email is reported to the caller, mirroring the original flow.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}
	now := s.now()
	claims := resetClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.ResetTokenTTL)),
			Issuer:    "pride-academy",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.ResetTokenSecret))
	if err != nil {
		return err
	}
	link := fmt.Sprintf("%s/auth/reset-password?token=%s", strings.TrimRight(s.cfg.FrontendBaseURL, "/"), token)
	if s.mailer == nil {
		return errors.New("auth: mailer not configured")
	}
	return s.mailer.SendPasswordReset(ctx, user.Email, link)
}

// ConfirmPasswordReset validates the token and replaces the password.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return shared.ErrWeakPassword
	}
	var claims resetClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.ResetTokenSecret), nil
	}, jwt.WithIssuer("pride-academy"), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return ErrResetTokenInvalid
	}
	var userID int64
	if _, err := fmt.Sscanf(claims.Subject, "%d", &userID); err != nil {
		return ErrResetTokenInvalid
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, userID, string(hash))
}
