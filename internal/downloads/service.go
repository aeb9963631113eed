// Package downloads issues and redeems HMAC-signed, time-limited links for
// finished APK artifacts.
package downloads

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sitewrap/sitewrap-backend/internal/ledger"
	"github.com/sitewrap/sitewrap-backend/internal/validation"
	"github.com/sitewrap/sitewrap-backend/pkg/config"
	"github.com/sitewrap/sitewrap-backend/pkg/enums"
	pkgerrors "github.com/sitewrap/sitewrap-backend/pkg/errors"
	"github.com/sitewrap/sitewrap-backend/pkg/logger"
)

type objectStore interface {
	Get(ctx context.Context, key string) (io.ReadCloser, int64, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Grant is an issued download capability.
type Grant struct {
	URL           string
	ExpiresAt     time.Time
	DownloadCount int
}

// Artifact is a redeemed APK ready for streaming. The caller owns Body.
type Artifact struct {
	Body     io.ReadCloser
	Size     int64
	Filename string
}

// Service issues signed download URLs and redeems them.
type Service interface {
	Issue(ctx context.Context, actorID uuid.UUID, actorRole enums.UserRole, generateID uuid.UUID) (*Grant, error)
	Redeem(ctx context.Context, generateID uuid.UUID, expires int64, signature string) (*Artifact, error)
}

// ServiceParams packages the download service dependencies.
type ServiceParams struct {
	Generates ledger.GenerateRepository
	Storage   objectStore
	Logger    *logger.Logger
	Download  config.DownloadConfig
	BaseURL   string
}

type service struct {
	generates ledger.GenerateRepository
	storage   objectStore
	logg      *logger.Logger
	secret    []byte
	ttl       time.Duration
	baseURL   string
	now       func() time.Time
}

// NewService wires the download service.
func NewService(params ServiceParams) (Service, error) {
	if params.Generates == nil {
		return nil, fmt.Errorf("generate repository required")
	}
	if params.Storage == nil {
		return nil, fmt.Errorf("object store required")
	}
	if params.Download.Secret == "" {
		return nil, fmt.Errorf("download signing secret required")
	}
	ttl := params.Download.TTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &service{
		generates: params.Generates,
		storage:   params.Storage,
		logg:      params.Logger,
		secret:    []byte(params.Download.Secret),
		ttl:       ttl,
		baseURL:   params.BaseURL,
		now:       time.Now,
	}, nil
}

func (s *service) Issue(ctx context.Context, actorID uuid.UUID, actorRole enums.UserRole, generateID uuid.UUID) (*Grant, error) {
	generate, err := s.generates.FindByID(ctx, generateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "generate not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup generate")
	}
	if generate.UserID != actorID && actorRole != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "generate not found")
	}
	if generate.Status != enums.GenerateStatusReady || generate.APKKey == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState,
			fmt.Sprintf("generate is %s, not ready", generate.Status))
	}

	// The counter tracks issued grants; redeeming the same URL twice does not
	// move it.
	if err := s.generates.IncrementDownloadCount(ctx, generate.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record download grant")
	}

	expiresAt := s.now().Add(s.ttl)
	sig := s.sign(*generate.APKKey, expiresAt.Unix())

	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expiresAt.Unix(), 10))
	q.Set("signature", sig)

	return &Grant{
		URL:           fmt.Sprintf("%s/generate/%s/file?%s", s.baseURL, generate.ID, q.Encode()),
		ExpiresAt:     expiresAt,
		DownloadCount: generate.DownloadCount + 1,
	}, nil
}

func (s *service) Redeem(ctx context.Context, generateID uuid.UUID, expires int64, signature string) (*Artifact, error) {
	if s.now().Unix() > expires {
		return nil, pkgerrors.New(pkgerrors.CodeGone, "download link has expired")
	}

	generate, err := s.generates.FindByID(ctx, generateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "generate not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup generate")
	}
	if generate.Status != enums.GenerateStatusReady || generate.APKKey == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "generate not found")
	}

	// The signature is recomputed over the stored key, so a forged or swapped
	// key never verifies.
	expected := s.sign(*generate.APKKey, expires)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "invalid download signature")
	}

	exists, err := s.storage.Exists(ctx, *generate.APKKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check artifact")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeGone, "artifact is no longer available")
	}

	body, size, err := s.storage.Get(ctx, *generate.APKKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open artifact")
	}

	return &Artifact{
		Body:     body,
		Size:     size,
		Filename: validation.SanitizeFilename(generate.AppName) + ".apk",
	}, nil
}

func (s *service) sign(apkKey string, expiresUnix int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s:%d", apkKey, expiresUnix)
	return hex.EncodeToString(mac.Sum(nil))
}
