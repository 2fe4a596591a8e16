package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sci-com/scicom-api/internal/domain"
	"github.com/sci-com/scicom-api/internal/repository/ports"
	"github.com/sci-com/scicom-api/internal/util"
)

var (
	ErrInvalidCredentials    = errors.New("invalid username or password")
	ErrAccountNotVerified    = errors.New("account not verified")
	ErrUserAlreadyExists     = errors.New("username or email already in use")
	ErrInvalidEmail          = errors.New("invalid email address")
	ErrAcademicEmailRequired = errors.New("students must register with an academic email address")
	ErrPasswordTooWeak       = errors.New("password does not meet the policy")
	ErrPasswordMismatch      = errors.New("current password is incorrect")
	ErrTokenMismatch         = errors.New("token does not match")
	ErrSessionInactive       = errors.New("session is no longer active")
)

// AccountMailer delivers the secrets of the verification and reset flows.
type AccountMailer interface {
	SendVerification(ctx context.Context, email, username, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
}

type AuthServiceConfig struct {
	AcademicEmailDomains []string
	PasswordMinLength    int
}

type AuthService struct {
	users    ports.UserRepository
	sessions ports.SessionRepository
	tokens   *TokenService
	mailer   AccountMailer
	jwt      *util.JWTManager
	logger   *zap.Logger

	academicDomains   []string
	passwordMinLength int
	now               func() time.Time
}

type RegisterInput struct {
	Username     string
	Email        string
	Password     string
	IsPolitician bool
}

type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

func NewAuthService(
	users ports.UserRepository,
	sessions ports.SessionRepository,
	tokens *TokenService,
	mailer AccountMailer,
	jwtManager *util.JWTManager,
	logger *zap.Logger,
	cfg AuthServiceConfig,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	domains := make([]string, 0, len(cfg.AcademicEmailDomains))
	for _, d := range cfg.AcademicEmailDomains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			domains = append(domains, d)
		}
	}
	return &AuthService{
		users:             users,
		sessions:          sessions,
		tokens:            tokens,
		mailer:            mailer,
		jwt:               jwtManager,
		logger:            logger,
		academicDomains:   domains,
		passwordMinLength: cfg.PasswordMinLength,
		now:               time.Now,
	}
}

// Register creates an unverified account and mails its verification token.
// The caller is not signed in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	username := strings.TrimSpace(input.Username)
	email := normalizeSubject(input.Email)
	if username == "" || email == "" || input.Password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", ErrValidation)
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if !input.IsPolitician && !s.isAcademic(email) {
		return nil, ErrAcademicEmailRequired
	}
	if err := util.ValidatePassword(input.Password, s.passwordMinLength); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPasswordTooWeak, err)
	}

	hash, salt, err := util.DerivePassword(input.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, ports.NewUser{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		PasswordSalt: salt,
		IsPolitician: input.IsPolitician,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	s.sendVerification(ctx, user)
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !util.VerifyPassword(password, user.PasswordSalt, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.Verified {
		return nil, ErrAccountNotVerified
	}
	return s.signIn(ctx, user)
}

// VerifyEmail consumes the verification token of email and signs the user in.
func (s *AuthService) VerifyEmail(ctx context.Context, email, token string) (*AuthResult, error) {
	email = normalizeSubject(email)
	ok, err := s.tokens.Consume(ctx, email, domain.TokenPurposeEmailVerification, strings.TrimSpace(token))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTokenMismatch
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTokenMismatch
		}
		return nil, err
	}
	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		return nil, err
	}
	user.Verified = true
	return s.signIn(ctx, user)
}

// ResendVerification issues a new verification token for an unverified
// account. Unknown addresses are ignored.
func (s *AuthService) ResendVerification(ctx context.Context, email string) {
	user, err := s.users.FindByEmail(ctx, normalizeSubject(email))
	if err != nil {
		if !isNotFound(err) {
			s.logger.Warn("resend verification lookup failed", zap.Error(err))
		}
		return
	}
	if user.Verified {
		return
	}
	s.sendVerification(ctx, user)
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, original, next string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return ErrInvalidCredentials
		}
		return err
	}
	if !util.VerifyPassword(original, user.PasswordSalt, user.PasswordHash) {
		return ErrPasswordMismatch
	}
	if err := util.ValidatePassword(next, s.passwordMinLength); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordTooWeak, err)
	}
	hash, salt, err := util.DerivePassword(next)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, user.ID, hash, salt)
}

// RequestPasswordReset mails a reset token when email belongs to an account.
// It never reports whether the account exists.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) {
	email = normalizeSubject(email)
	if email == "" {
		return
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !isNotFound(err) {
			s.logger.Warn("password reset lookup failed", zap.Error(err))
		}
		return
	}

	token, err := s.tokens.Issue(ctx, user.Email, domain.TokenPurposePasswordReset)
	if err != nil {
		s.logger.Error("issue password reset token", zap.String("user_id", user.ID.String()), zap.Error(err))
		return
	}
	if s.mailer == nil {
		return
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, token); err != nil {
		s.logger.Warn("send password reset mail", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}

// ConfirmPasswordReset sets a new password when the reset token matches and
// revokes every session of the account. A mismatch reports false.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, email, token, password string) (bool, error) {
	if err := util.ValidatePassword(password, s.passwordMinLength); err != nil {
		return false, fmt.Errorf("%w: %v", ErrPasswordTooWeak, err)
	}

	email = normalizeSubject(email)
	ok, err := s.tokens.Consume(ctx, email, domain.TokenPurposePasswordReset, strings.TrimSpace(token))
	if err != nil || !ok {
		return false, err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	hash, salt, err := util.DerivePassword(password)
	if err != nil {
		return false, err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, salt); err != nil {
		return false, err
	}
	if err := s.sessions.DeactivateUserSessions(ctx, user.ID); err != nil {
		s.logger.Warn("revoke sessions after password reset", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	return true, nil
}

// Authenticate resolves a bearer token to its user while the backing session
// is active.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.jwt.Parse(token)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	session, err := s.sessions.FindActiveSession(ctx, token)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSessionInactive
		}
		return nil, err
	}
	if session.Expired(s.now()) || session.UserID != claims.UserID {
		return nil, ErrSessionInactive
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.DeactivateSession(ctx, token); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

func (s *AuthService) signIn(ctx context.Context, user *domain.User) (*AuthResult, error) {
	token, expiresAt, err := s.jwt.Generate(user.ID, user.Username, user.IsPolitician)
	if err != nil {
		return nil, err
	}
	if _, err := s.sessions.CreateSession(ctx, user.ID, token, expiresAt); err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) sendVerification(ctx context.Context, user *domain.User) {
	token, err := s.tokens.Issue(ctx, user.Email, domain.TokenPurposeEmailVerification)
	if err != nil {
		s.logger.Error("issue verification token", zap.String("user_id", user.ID.String()), zap.Error(err))
		return
	}
	if s.mailer == nil {
		return
	}
	if err := s.mailer.SendVerification(ctx, user.Email, user.Username, token); err != nil {
		s.logger.Warn("send verification mail", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}

func (s *AuthService) isAcademic(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	host := email[at+1:]
	for _, d := range s.academicDomains {
		suffix := strings.TrimPrefix(d, ".")
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}
