package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/selleropsapp/sellerops-backend/pkg/auth"
	"github.com/selleropsapp/sellerops-backend/pkg/config"
	"github.com/selleropsapp/sellerops-backend/pkg/db"
	"github.com/selleropsapp/sellerops-backend/pkg/db/models"
	"github.com/selleropsapp/sellerops-backend/pkg/enums"
	pkgerrors "github.com/selleropsapp/sellerops-backend/pkg/errors"
	"github.com/selleropsapp/sellerops-backend/pkg/logger"
	"github.com/selleropsapp/sellerops-backend/pkg/security"
)

const minPasswordLength = 6

type sessionManager interface {
	Create(ctx context.Context, userID string) (string, error)
	Revoke(ctx context.Context, sessionID string) error
}

// ServiceParams groups dependencies for the user service.
type ServiceParams struct {
	Logger   *logger.Logger
	Users    Repository
	Sessions sessionManager
	JWT      config.JWTConfig
	Password config.PasswordConfig
}

// Service implements operator account management and login.
type Service struct {
	logg     *logger.Logger
	users    Repository
	sessions sessionManager
	jwt      config.JWTConfig
	password config.PasswordConfig
	now      func() time.Time
}

// NewService builds the user service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Users == nil {
		return nil, errors.New("users repository is required")
	}
	if params.Sessions == nil {
		return nil, errors.New("session manager is required")
	}
	if strings.TrimSpace(params.JWT.Secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &Service{
		logg:     params.Logger,
		users:    params.Users,
		sessions: params.Sessions,
		jwt:      params.JWT,
		password: params.Password,
		now:      time.Now,
	}, nil
}

// CreateUserInput carries a new operator account request. Admin gating
// happens at the route.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// CreateUser validates and stores a new operator account.
func (s *Service) CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must have at least 6 characters")
	}
	role, err := enums.ParseUserRole(input.Role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "role")
	}

	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         role,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "users_email_key") || db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "this email is already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing user")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"user_id": user.ID.String(), "role": role})
	s.logg.Info(logCtx, "user created")
	return user, nil
}

// LoginResult is a successful authentication.
type LoginResult struct {
	AccessToken string
	SessionID   string
	User        *models.User
}

// Login verifies credentials, opens a redis session, and mints an access
// token whose jti is the session id.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}
	// The same answer for unknown emails and bad passwords.
	if user == nil || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	sessionID, err := s.sessions.Create(ctx, user.ID.String())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "opening session")
	}

	token, err := auth.MintAccessToken(s.jwt, s.now(), auth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		JTI:    sessionID,
	})
	if err != nil {
		_ = s.sessions.Revoke(ctx, sessionID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting access token")
	}

	if err := s.users.TouchLastLogin(ctx, user.ID, s.now().UTC()); err != nil {
		s.logg.Warn(s.logg.WithUserID(ctx, user.ID.String()), "failed to stamp last login")
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user logged in")
	return &LoginResult{AccessToken: token, SessionID: sessionID, User: user}, nil
}

// Logout revokes the session carried in the token's jti.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoking session")
	}
	return nil
}

// GetUser returns one account or NOT_FOUND.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return user, nil
}

// ListUsers returns operator accounts.
func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	rows, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing users")
	}
	return rows, nil
}
