package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sitewrap/sitewrap-backend/pkg/db/models"
	"github.com/sitewrap/sitewrap-backend/pkg/enums"
)

// PaymentRepository manages persistence for payments.
type PaymentRepository interface {
	WithTx(tx *gorm.DB) PaymentRepository
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByGenerateID(ctx context.Context, generateID uuid.UUID) (*models.Payment, error)
	List(ctx context.Context, status *enums.PaymentStatus) ([]models.Payment, error)
	Resolve(ctx context.Context, id uuid.UUID, status enums.PaymentStatus, operatorID uuid.UUID, at time.Time) error
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository returns a payment repository bound to the provided database.
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) WithTx(tx *gorm.DB) PaymentRepository {
	if tx == nil {
		return r
	}
	return &paymentRepository{db: tx}
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindByGenerateID(ctx context.Context, generateID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "generate_id = ?", generateID).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) List(ctx context.Context, status *enums.PaymentStatus) ([]models.Payment, error) {
	query := r.db.WithContext(ctx).Order("created_at ASC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var payments []models.Payment
	if err := query.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// Resolve moves a payment out of pending. The status guard is enforced by the
// service; this only writes the terminal fields.
func (r *paymentRepository) Resolve(ctx context.Context, id uuid.UUID, status enums.PaymentStatus, operatorID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       status,
			"confirmed_by": operatorID,
			"confirmed_at": at,
		}).Error
}
