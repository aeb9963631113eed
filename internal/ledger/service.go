// Package ledger owns the generate/payment lifecycle: submission, manual
// payment resolution, build dispatch, and the build-complete callback.
package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sitewrap/sitewrap-backend/internal/builds"
	"github.com/sitewrap/sitewrap-backend/internal/captcha"
	"github.com/sitewrap/sitewrap-backend/internal/users"
	"github.com/sitewrap/sitewrap-backend/internal/validation"
	"github.com/sitewrap/sitewrap-backend/pkg/config"
	"github.com/sitewrap/sitewrap-backend/pkg/db/models"
	"github.com/sitewrap/sitewrap-backend/pkg/enums"
	pkgerrors "github.com/sitewrap/sitewrap-backend/pkg/errors"
	"github.com/sitewrap/sitewrap-backend/pkg/logger"
	"github.com/sitewrap/sitewrap-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type objectStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
}

// Service defines the generate/payment ledger operations. The HTTP admin
// surface and the operator bot both go through the same methods.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*SubmitResult, error)
	Get(ctx context.Context, actorID uuid.UUID, actorRole enums.UserRole, generateID uuid.UUID) (*models.Generate, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Generate, error)
	ConfirmPayment(ctx context.Context, operatorID, paymentID uuid.UUID) (*models.Payment, error)
	RejectPayment(ctx context.Context, operatorID, paymentID uuid.UUID) (*models.Payment, error)
	RetryBuild(ctx context.Context, operatorID, generateID uuid.UUID) (*models.Generate, error)
	HandleBuildCallback(ctx context.Context, input BuildCallbackInput) error
	ListPayments(ctx context.Context, status *enums.PaymentStatus) ([]models.Payment, error)
	ListProblemGenerates(ctx context.Context) ([]models.Generate, error)
	GetPaymentDetail(ctx context.Context, paymentID uuid.UUID) (*PaymentDetail, error)
}

// ServiceParams packages the ledger service dependencies.
type ServiceParams struct {
	Tx         txRunner
	Generates  GenerateRepository
	Payments   PaymentRepository
	Users      users.Repository
	Storage    objectStore
	Captcha    captcha.Verifier
	Trigger    builds.Trigger
	Metrics    *metrics.LedgerMetrics
	Logger     *logger.Logger
	Billing    config.BillingConfig
	Generation config.GenerationConfig
}

type service struct {
	tx        txRunner
	generates GenerateRepository
	payments  PaymentRepository
	users     users.Repository
	storage   objectStore
	captcha   captcha.Verifier
	trigger   builds.Trigger
	metrics   *metrics.LedgerMetrics
	logg      *logger.Logger
	billing   config.BillingConfig
	gen       config.GenerationConfig
	now       func() time.Time
}

// NewService wires the ledger service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Generates == nil {
		return nil, fmt.Errorf("generate repository required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.Storage == nil {
		return nil, fmt.Errorf("object store required")
	}
	if params.Captcha == nil {
		return nil, fmt.Errorf("captcha verifier required")
	}
	if params.Trigger == nil {
		return nil, fmt.Errorf("build trigger required")
	}
	return &service{
		tx:        params.Tx,
		generates: params.Generates,
		payments:  params.Payments,
		users:     params.Users,
		storage:   params.Storage,
		captcha:   params.Captcha,
		trigger:   params.Trigger,
		metrics:   params.Metrics,
		logg:      params.Logger,
		billing:   params.Billing,
		gen:       params.Generation,
		now:       time.Now,
	}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*SubmitResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	user, err := s.users.FindByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	now := s.now()

	// Per-account cooldown, independent of the redis rate-limit budgets.
	if user.LastGenerateAt != nil && s.gen.Cooldown > 0 {
		elapsed := now.Sub(*user.LastGenerateAt)
		if elapsed < s.gen.Cooldown {
			remaining := s.gen.Cooldown - elapsed
			return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "please wait before submitting another build").
				WithDetails(map[string]any{"retry_after_seconds": int(remaining.Seconds()) + 1})
		}
	}

	// Captcha runs before any validation or mutation; verifier outages
	// propagate as-is rather than letting requests through.
	if err := s.captcha.Verify(ctx, input.CaptchaToken, input.RemoteIP); err != nil {
		return nil, err
	}

	if err := s.validateSubmit(input); err != nil {
		return nil, err
	}

	generateID := uuid.New()
	iconKey := fmt.Sprintf("generates/%s/icon.png", generateID)
	if err := s.storage.Put(ctx, iconKey, bytes.NewReader(input.Icon), "image/png"); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store icon")
	}

	var htmlKey *string
	if input.BuildType == enums.BuildTypeHTML {
		key := fmt.Sprintf("generates/%s/site.zip", generateID)
		if err := s.storage.Put(ctx, key, bytes.NewReader(input.HTMLBundle), "application/zip"); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store html bundle")
		}
		htmlKey = &key
	}

	generate := &models.Generate{
		ID:           generateID,
		UserID:       user.ID,
		URL:          strings.TrimSpace(input.URL),
		BuildType:    input.BuildType,
		AppName:      strings.TrimSpace(input.AppName),
		PackageName:  strings.TrimSpace(input.PackageName),
		IconKey:      iconKey,
		HTMLFilesKey: htmlKey,
		Status:       enums.GenerateStatusPending,
		EnableGPS:    input.EnableGPS,
		EnableCamera: input.EnableCamera,
	}
	payment := &models.Payment{
		ID:         uuid.New(),
		UserID:     user.ID,
		GenerateID: generateID,
		Amount:     s.billing.Tariff(),
		Status:     enums.PaymentStatusPending,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.generates.WithTx(tx).Create(ctx, generate); err != nil {
			return err
		}
		if err := s.payments.WithTx(tx).Create(ctx, payment); err != nil {
			return err
		}
		return s.users.WithTx(tx).StampLastGenerate(ctx, user.ID, now)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist generate request")
	}

	return &SubmitResult{Generate: generate, Payment: payment}, nil
}

func (s *service) validateSubmit(input SubmitInput) error {
	fields := validation.NewFieldErrors()

	if !input.BuildType.IsValid() {
		fields.Add("build_type", "must be url or html")
		return fields.AsError()
	}

	switch input.BuildType {
	case enums.BuildTypeURL:
		validation.CheckTargetURL(fields, "url", input.URL)
	case enums.BuildTypeHTML:
		if err := validation.CheckHTMLBundle(input.HTMLBundle); err != nil {
			if appErr := pkgerrors.As(err); appErr != nil {
				fields.Add("html_bundle", appErr.Message())
			} else {
				fields.Add("html_bundle", "is invalid")
			}
		}
	}

	validation.CheckDisplayName(fields, "app_name", input.AppName)
	validation.CheckPackageName(fields, "package_name", input.PackageName)

	if err := validation.CheckIcon(input.Icon); err != nil {
		if appErr := pkgerrors.As(err); appErr != nil {
			fields.Add("icon", appErr.Message())
		} else {
			fields.Add("icon", "is invalid")
		}
	}

	return fields.AsError()
}

func (s *service) Get(ctx context.Context, actorID uuid.UUID, actorRole enums.UserRole, generateID uuid.UUID) (*models.Generate, error) {
	generate, err := s.generates.FindByID(ctx, generateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "generate not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup generate")
	}
	// Foreign generates look identical to absent ones for non-admins.
	if generate.UserID != actorID && actorRole != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "generate not found")
	}
	return generate, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Generate, error) {
	generates, err := s.generates.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list generates")
	}
	return generates, nil
}

func (s *service) ConfirmPayment(ctx context.Context, operatorID, paymentID uuid.UUID) (*models.Payment, error) {
	payment, generate, err := s.loadPendingResolution(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	resolvedAt := s.now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.payments.WithTx(tx).Resolve(ctx, payment.ID, enums.PaymentStatusConfirmed, operatorID, resolvedAt); err != nil {
			return err
		}
		return s.generates.WithTx(tx).MarkBuilding(ctx, generate.ID)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm payment")
	}

	payment.Status = enums.PaymentStatusConfirmed
	payment.ConfirmedBy = &operatorID
	payment.ConfirmedAt = &resolvedAt
	generate.Status = enums.GenerateStatusBuilding

	s.metrics.IncPaymentConfirmed()
	s.fireTrigger(ctx, generate)

	return payment, nil
}

func (s *service) RejectPayment(ctx context.Context, operatorID, paymentID uuid.UUID) (*models.Payment, error) {
	payment, _, err := s.loadPendingResolution(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	resolvedAt := s.now()
	if err := s.payments.Resolve(ctx, payment.ID, enums.PaymentStatusRejected, operatorID, resolvedAt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject payment")
	}

	payment.Status = enums.PaymentStatusRejected
	payment.ConfirmedBy = &operatorID
	payment.ConfirmedAt = &resolvedAt

	s.metrics.IncPaymentRejected()
	return payment, nil
}

// loadPendingResolution fetches a payment plus its generate and enforces the
// pending-only guard shared by confirm and reject.
func (s *service) loadPendingResolution(ctx context.Context, paymentID uuid.UUID) (*models.Payment, *models.Generate, error) {
	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup payment")
	}
	if payment.Status != enums.PaymentStatusPending {
		return nil, nil, pkgerrors.New(pkgerrors.CodeInvalidState,
			fmt.Sprintf("payment is already %s", payment.Status))
	}

	generate, err := s.generates.FindByID(ctx, payment.GenerateID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup generate")
	}
	if generate.Status != enums.GenerateStatusPending {
		return nil, nil, pkgerrors.New(pkgerrors.CodeInvalidState,
			fmt.Sprintf("generate is already %s", generate.Status))
	}
	return payment, generate, nil
}

func (s *service) RetryBuild(ctx context.Context, operatorID, generateID uuid.UUID) (*models.Generate, error) {
	generate, err := s.generates.FindByID(ctx, generateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "generate not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup generate")
	}

	payment, err := s.payments.FindByGenerateID(ctx, generateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup payment")
	}
	if payment.Status != enums.PaymentStatusConfirmed {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState,
			fmt.Sprintf("payment is %s, not confirmed", payment.Status))
	}
	if generate.Status == enums.GenerateStatusReady {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "generate is already ready")
	}

	if err := s.generates.MarkBuilding(ctx, generate.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset generate for retry")
	}
	generate.Status = enums.GenerateStatusBuilding
	generate.APKKey = nil
	generate.AABKey = nil
	generate.ErrorMessage = nil
	generate.CompletedAt = nil

	s.fireTrigger(ctx, generate)
	return generate, nil
}

func (s *service) HandleBuildCallback(ctx context.Context, input BuildCallbackInput) error {
	generate, err := s.generates.FindByID(ctx, input.GenerateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "generate not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup generate")
	}
	if generate.Status != enums.GenerateStatusBuilding {
		return pkgerrors.New(pkgerrors.CodeInvalidState,
			fmt.Sprintf("generate is %s, not building", generate.Status))
	}

	completedAt := s.now()
	if input.Success {
		if strings.TrimSpace(input.APKKey) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "apk_key is required for a successful build")
		}
		artifacts := BuildArtifacts{
			APKKey:        input.APKKey,
			AABKey:        optional(input.AABKey),
			KeystoreKey:   optional(input.KeystoreKey),
			KeystoreAlias: optional(input.KeystoreAlias),
		}
		if err := s.generates.MarkReady(ctx, generate.ID, artifacts, completedAt); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark generate ready")
		}
		s.metrics.IncBuildCompleted("success")
		if s.logg != nil {
			s.logg.Info(s.logg.WithGenerateID(ctx, generate.ID.String()), "build completed")
		}
		return nil
	}

	message := strings.TrimSpace(input.ErrorMessage)
	if message == "" {
		message = "build failed"
	}
	if err := s.generates.MarkFailed(ctx, generate.ID, message, completedAt); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark generate failed")
	}
	s.metrics.IncBuildCompleted("failed")
	if s.logg != nil {
		s.logg.Warn(s.logg.WithGenerateID(ctx, generate.ID.String()), "build failed")
	}
	return nil
}

func (s *service) ListPayments(ctx context.Context, status *enums.PaymentStatus) ([]models.Payment, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment status filter")
	}
	payments, err := s.payments.List(ctx, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return payments, nil
}

func (s *service) ListProblemGenerates(ctx context.Context) ([]models.Generate, error) {
	generates, err := s.generates.ListStalled(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stalled generates")
	}
	return generates, nil
}

func (s *service) GetPaymentDetail(ctx context.Context, paymentID uuid.UUID) (*PaymentDetail, error) {
	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup payment")
	}
	generate, err := s.generates.FindByID(ctx, payment.GenerateID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup generate")
	}
	return &PaymentDetail{Payment: payment, Generate: generate}, nil
}

// fireTrigger dispatches the build after the state change has committed.
// A dispatch failure leaves the generate in building; operators recover it
// through the retry command.
func (s *service) fireTrigger(ctx context.Context, generate *models.Generate) {
	req := builds.TriggerRequest{
		GenerateID:   generate.ID,
		BuildType:    generate.BuildType,
		URL:          generate.URL,
		AppName:      generate.AppName,
		PackageName:  generate.PackageName,
		IconKey:      generate.IconKey,
		EnableGPS:    generate.EnableGPS,
		EnableCamera: generate.EnableCamera,
	}
	if generate.HTMLFilesKey != nil {
		req.HTMLFilesKey = *generate.HTMLFilesKey
	}
	// On a retry the worker reuses the keystore from the first build so the
	// new APK installs over the old one.
	if generate.KeystoreKey != nil {
		req.KeystoreKey = *generate.KeystoreKey
	}
	if generate.KeystoreAlias != nil {
		req.KeystoreAlias = *generate.KeystoreAlias
	}

	s.metrics.IncBuildTriggered()
	if err := s.trigger.Start(ctx, req); err != nil {
		s.metrics.IncTriggerFailure()
		if s.logg != nil {
			s.logg.Error(s.logg.WithGenerateID(ctx, generate.ID.String()), "build trigger dispatch failed", err)
		}
	}
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
