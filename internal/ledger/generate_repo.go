package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sitewrap/sitewrap-backend/pkg/db/models"
	"github.com/sitewrap/sitewrap-backend/pkg/enums"
)

// BuildArtifacts captures what the build worker reports for a finished build:
// the installable APK, the optional app bundle, and the keystore coordinates
// used to sign them.
type BuildArtifacts struct {
	APKKey        string
	AABKey        *string
	KeystoreKey   *string
	KeystoreAlias *string
}

// GenerateRepository manages persistence for generate requests.
type GenerateRepository interface {
	WithTx(tx *gorm.DB) GenerateRepository
	Create(ctx context.Context, generate *models.Generate) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Generate, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Generate, error)
	// ListStalled returns generates whose payment was confirmed but whose
	// build never reached ready: still building or already failed.
	ListStalled(ctx context.Context) ([]models.Generate, error)
	// MarkBuilding moves a generate into the building state, clearing any
	// artifacts left behind by an earlier failed attempt. The keystore
	// coordinates survive so retries re-sign with the same keystore.
	MarkBuilding(ctx context.Context, id uuid.UUID) error
	MarkReady(ctx context.Context, id uuid.UUID, artifacts BuildArtifacts, completedAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string, completedAt time.Time) error
	IncrementDownloadCount(ctx context.Context, id uuid.UUID) error
}

type generateRepository struct {
	db *gorm.DB
}

// NewGenerateRepository returns a generate repository bound to the provided database.
func NewGenerateRepository(db *gorm.DB) GenerateRepository {
	return &generateRepository{db: db}
}

func (r *generateRepository) WithTx(tx *gorm.DB) GenerateRepository {
	if tx == nil {
		return r
	}
	return &generateRepository{db: tx}
}

func (r *generateRepository) Create(ctx context.Context, generate *models.Generate) error {
	return r.db.WithContext(ctx).Create(generate).Error
}

func (r *generateRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Generate, error) {
	var generate models.Generate
	if err := r.db.WithContext(ctx).First(&generate, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &generate, nil
}

func (r *generateRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Generate, error) {
	var generates []models.Generate
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&generates).Error; err != nil {
		return nil, err
	}
	return generates, nil
}

func (r *generateRepository) ListStalled(ctx context.Context) ([]models.Generate, error) {
	var generates []models.Generate
	if err := r.db.WithContext(ctx).
		Joins("JOIN payments ON payments.generate_id = generates.id").
		Where("payments.status = ?", enums.PaymentStatusConfirmed).
		Where("generates.status IN ?", []enums.GenerateStatus{enums.GenerateStatusBuilding, enums.GenerateStatusFailed}).
		Order("generates.created_at ASC").
		Find(&generates).Error; err != nil {
		return nil, err
	}
	return generates, nil
}

func (r *generateRepository) MarkBuilding(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Generate{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        enums.GenerateStatusBuilding,
			"apk_key":       nil,
			"aab_key":       nil,
			"error_message": nil,
			"completed_at":  nil,
		}).Error
}

func (r *generateRepository) MarkReady(ctx context.Context, id uuid.UUID, artifacts BuildArtifacts, completedAt time.Time) error {
	updates := map[string]any{
		"status":        enums.GenerateStatusReady,
		"apk_key":       artifacts.APKKey,
		"aab_key":       artifacts.AABKey,
		"error_message": nil,
		"completed_at":  completedAt,
	}
	if artifacts.KeystoreKey != nil {
		updates["keystore_key"] = artifacts.KeystoreKey
	}
	if artifacts.KeystoreAlias != nil {
		updates["keystore_alias"] = artifacts.KeystoreAlias
	}
	return r.db.WithContext(ctx).
		Model(&models.Generate{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *generateRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string, completedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Generate{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        enums.GenerateStatusFailed,
			"error_message": errorMessage,
			"completed_at":  completedAt,
		}).Error
}

func (r *generateRepository) IncrementDownloadCount(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Generate{}).
		Where("id = ?", id).
		Update("download_count", gorm.Expr("download_count + 1")).Error
}
