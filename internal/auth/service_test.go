package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sitewrap/sitewrap-backend/internal/users"
	pkgauth "github.com/sitewrap/sitewrap-backend/pkg/auth"
	"github.com/sitewrap/sitewrap-backend/pkg/config"
	"github.com/sitewrap/sitewrap-backend/pkg/db/models"
	"github.com/sitewrap/sitewrap-backend/pkg/enums"
	pkgerrors "github.com/sitewrap/sitewrap-backend/pkg/errors"
	"github.com/sitewrap/sitewrap-backend/pkg/security"
)

type stubUserRepo struct {
	byEmail   map[string]*models.User
	createErr error
	created   []users.CreateUserDTO
}

func (s *stubUserRepo) Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	s.created = append(s.created, dto)
	if s.createErr != nil {
		return nil, s.createErr
	}
	user := &models.User{
		ID:           uuid.New(),
		Email:        dto.Email,
		PasswordHash: dto.PasswordHash,
		Role:         dto.Role,
	}
	if s.byEmail == nil {
		s.byEmail = map[string]*models.User{}
	}
	s.byEmail[dto.Email] = user
	return user, nil
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.byEmail[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, user := range s.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// Cheap argon parameters keep the hashing tests fast; the clamps in
// pkg/security raise them to the floor values.
var testPasswordCfg = config.PasswordConfig{MinLength: 8}

var testJWTCfg = config.JWTConfig{
	Secret:   "test-signing-secret",
	Issuer:   "sitewrap-test",
	TokenTTL: time.Hour,
}

func newAuthService(t *testing.T, repo *stubUserRepo, bootstrap config.BootstrapConfig) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		PasswordConfig: testPasswordCfg,
		JWTConfig:      testJWTCfg,
		Bootstrap:      bootstrap,
	})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestService_Register(t *testing.T) {
	t.Run("creates a user with a hashed password", func(t *testing.T) {
		repo := &stubUserRepo{}
		svc := newAuthService(t, repo, config.BootstrapConfig{})

		user, err := svc.Register(context.Background(), "  Owner@Example.COM ", "hunter2hunter")
		if err != nil {
			t.Fatalf("Register error: %v", err)
		}
		if user.Email != "owner@example.com" {
			t.Fatalf("email not normalised: %q", user.Email)
		}
		if user.Role != enums.UserRoleUser {
			t.Fatalf("role = %s, want user", user.Role)
		}
		if ok, err := security.VerifyPassword("hunter2hunter", user.PasswordHash); err != nil || !ok {
			t.Fatalf("stored hash does not verify: ok=%v err=%v", ok, err)
		}
	})

	t.Run("rejects a taken email before hashing", func(t *testing.T) {
		repo := &stubUserRepo{byEmail: map[string]*models.User{
			"owner@example.com": {ID: uuid.New(), Email: "owner@example.com"},
		}}
		svc := newAuthService(t, repo, config.BootstrapConfig{})

		_, err := svc.Register(context.Background(), "owner@example.com", "hunter2hunter")
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeConflict {
			t.Fatalf("expected conflict, got %v", err)
		}
		if len(repo.created) != 0 {
			t.Fatal("no create should be attempted for a taken email")
		}
	})

	t.Run("maps a racing unique violation to conflict", func(t *testing.T) {
		repo := &stubUserRepo{createErr: fmt.Errorf(`duplicate key value violates unique constraint "idx_users_email"`)}
		svc := newAuthService(t, repo, config.BootstrapConfig{})

		_, err := svc.Register(context.Background(), "owner@example.com", "hunter2hunter")
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeConflict {
			t.Fatalf("expected conflict, got %v", err)
		}
	})

	t.Run("rejects malformed inputs field by field", func(t *testing.T) {
		svc := newAuthService(t, &stubUserRepo{}, config.BootstrapConfig{})

		_, err := svc.Register(context.Background(), "not-an-email", "short")
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestService_Login(t *testing.T) {
	repo := &stubUserRepo{}
	svc := newAuthService(t, repo, config.BootstrapConfig{})
	if _, err := svc.Register(context.Background(), "owner@example.com", "hunter2hunter"); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	t.Run("mints a parseable token", func(t *testing.T) {
		result, err := svc.Login(context.Background(), "Owner@Example.com", "hunter2hunter")
		if err != nil {
			t.Fatalf("Login error: %v", err)
		}
		claims, err := pkgauth.ParseAccessToken(testJWTCfg, result.Token)
		if err != nil {
			t.Fatalf("minted token does not parse: %v", err)
		}
		if claims.UserID != result.User.ID {
			t.Fatalf("token subject %s, want %s", claims.UserID, result.User.ID)
		}
		if claims.Role != enums.UserRoleUser {
			t.Fatalf("token role = %s, want user", claims.Role)
		}
	})

	t.Run("unknown email and bad password read identically", func(t *testing.T) {
		_, unknownErr := svc.Login(context.Background(), "ghost@example.com", "hunter2hunter")
		_, badPassErr := svc.Login(context.Background(), "owner@example.com", "wrong-password")

		for _, err := range []error{unknownErr, badPassErr} {
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
				t.Fatalf("expected unauthorized, got %v", err)
			}
		}
		if pkgerrors.As(unknownErr).Message() != pkgerrors.As(badPassErr).Message() {
			t.Fatal("login failures must not reveal which credential was wrong")
		}
	})
}

func TestService_SeedBootstrapAdmin(t *testing.T) {
	bootstrap := config.BootstrapConfig{
		AdminEmail:    "Admin@Example.com",
		AdminPassword: "bootstrap-secret",
	}

	t.Run("seeds an admin once", func(t *testing.T) {
		repo := &stubUserRepo{}
		svc := newAuthService(t, repo, bootstrap)

		if err := svc.SeedBootstrapAdmin(context.Background()); err != nil {
			t.Fatalf("seed error: %v", err)
		}
		admin, err := repo.FindByEmail(context.Background(), "admin@example.com")
		if err != nil {
			t.Fatalf("admin not created: %v", err)
		}
		if admin.Role != enums.UserRoleAdmin {
			t.Fatalf("role = %s, want admin", admin.Role)
		}

		// A second startup finds the account and does nothing.
		if err := svc.SeedBootstrapAdmin(context.Background()); err != nil {
			t.Fatalf("repeat seed error: %v", err)
		}
		if len(repo.created) != 1 {
			t.Fatalf("create called %d times, want 1", len(repo.created))
		}
	})

	t.Run("no-op without configuration", func(t *testing.T) {
		repo := &stubUserRepo{}
		svc := newAuthService(t, repo, config.BootstrapConfig{})

		if err := svc.SeedBootstrapAdmin(context.Background()); err != nil {
			t.Fatalf("seed error: %v", err)
		}
		if len(repo.created) != 0 {
			t.Fatal("nothing should be created without bootstrap config")
		}
	})

	t.Run("tolerates a concurrent replica winning the insert", func(t *testing.T) {
		repo := &stubUserRepo{createErr: fmt.Errorf(`duplicate key value violates unique constraint "idx_users_email"`)}
		svc := newAuthService(t, repo, bootstrap)

		if err := svc.SeedBootstrapAdmin(context.Background()); err != nil {
			t.Fatalf("duplicate seed must not fail startup: %v", err)
		}
	})
}
