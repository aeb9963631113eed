package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sitewrap/sitewrap-backend/internal/users"
	"github.com/sitewrap/sitewrap-backend/internal/validation"
	pkgauth "github.com/sitewrap/sitewrap-backend/pkg/auth"
	"github.com/sitewrap/sitewrap-backend/pkg/config"
	"github.com/sitewrap/sitewrap-backend/pkg/db"
	"github.com/sitewrap/sitewrap-backend/pkg/db/models"
	"github.com/sitewrap/sitewrap-backend/pkg/enums"
	pkgerrors "github.com/sitewrap/sitewrap-backend/pkg/errors"
	"github.com/sitewrap/sitewrap-backend/pkg/logger"
	"github.com/sitewrap/sitewrap-backend/pkg/security"
	"gorm.io/gorm"
)

type usersRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// LoginResult carries the minted token and the authenticated user.
type LoginResult struct {
	Token string
	User  *models.User
}

// Service exposes registration, login, and bootstrap-admin seeding.
type Service interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	SeedBootstrapAdmin(ctx context.Context) error
}

// ServiceParams packages the dependencies for the auth service.
type ServiceParams struct {
	UserRepo       usersRepository
	PasswordConfig config.PasswordConfig
	JWTConfig      config.JWTConfig
	Bootstrap      config.BootstrapConfig
	Logger         *logger.Logger
}

type service struct {
	users       usersRepository
	passwordCfg config.PasswordConfig
	jwtCfg      config.JWTConfig
	bootstrap   config.BootstrapConfig
	logg        *logger.Logger
	now         func() time.Time
}

// NewService builds an auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user repository required")
	}
	return &service{
		users:       params.UserRepo,
		passwordCfg: params.PasswordConfig,
		jwtCfg:      params.JWTConfig,
		bootstrap:   params.Bootstrap,
		logg:        params.Logger,
		now:         time.Now,
	}, nil
}

func (s *service) Register(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	fields := validation.NewFieldErrors()
	validation.CheckEmail(fields, "email", email)
	validation.CheckPassword(fields, "password", password, s.passwordCfg.MinLength)
	if err := fields.AsError(); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user email")
	}

	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:        email,
		PasswordHash: hash,
		Role:         enums.UserRoleUser,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}
	return user, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	// One generic message for unknown email and bad password alike: the login
	// surface must not reveal which field failed.
	invalid := pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, invalid
	}

	token, err := pkgauth.MintAccessToken(s.jwtCfg, s.now(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	return &LoginResult{Token: token, User: user}, nil
}

// SeedBootstrapAdmin creates the configured admin account when it does not
// already exist. Safe to call on every startup.
func (s *service) SeedBootstrapAdmin(ctx context.Context) error {
	email := strings.ToLower(strings.TrimSpace(s.bootstrap.AdminEmail))
	if email == "" || s.bootstrap.AdminPassword == "" {
		return nil
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check bootstrap admin")
	}

	hash, err := security.HashPassword(s.bootstrap.AdminPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash bootstrap password")
	}

	if _, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:        email,
		PasswordHash: hash,
		Role:         enums.UserRoleAdmin,
	}); err != nil {
		// A concurrent replica may have seeded first; treat the duplicate as done.
		if db.IsUniqueViolation(err, "") {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create bootstrap admin")
	}

	if s.logg != nil {
		s.logg.Info(ctx, "bootstrap admin seeded")
	}
	return nil
}
