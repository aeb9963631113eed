package controllers

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sitewrap/sitewrap-backend/internal/ledger"
	"github.com/sitewrap/sitewrap-backend/pkg/db/models"
	"github.com/sitewrap/sitewrap-backend/pkg/enums"
)

// stubLedger satisfies ledger.Service with per-call hooks; unhooked calls fail
// loudly so a test cannot silently exercise the wrong path.
type stubLedger struct {
	submitFn        func(ctx context.Context, input ledger.SubmitInput) (*ledger.SubmitResult, error)
	getFn           func(ctx context.Context, actorID uuid.UUID, actorRole enums.UserRole, generateID uuid.UUID) (*models.Generate, error)
	listForUserFn   func(ctx context.Context, userID uuid.UUID) ([]models.Generate, error)
	confirmFn       func(ctx context.Context, operatorID, paymentID uuid.UUID) (*models.Payment, error)
	rejectFn        func(ctx context.Context, operatorID, paymentID uuid.UUID) (*models.Payment, error)
	retryFn         func(ctx context.Context, operatorID, generateID uuid.UUID) (*models.Generate, error)
	callbackFn      func(ctx context.Context, input ledger.BuildCallbackInput) error
	listPaymentsFn  func(ctx context.Context, status *enums.PaymentStatus) ([]models.Payment, error)
	listProblemsFn  func(ctx context.Context) ([]models.Generate, error)
	paymentDetailFn func(ctx context.Context, paymentID uuid.UUID) (*ledger.PaymentDetail, error)
}

func (s *stubLedger) Submit(ctx context.Context, input ledger.SubmitInput) (*ledger.SubmitResult, error) {
	if s.submitFn == nil {
		return nil, fmt.Errorf("unexpected Submit call")
	}
	return s.submitFn(ctx, input)
}

func (s *stubLedger) Get(ctx context.Context, actorID uuid.UUID, actorRole enums.UserRole, generateID uuid.UUID) (*models.Generate, error) {
	if s.getFn == nil {
		return nil, fmt.Errorf("unexpected Get call")
	}
	return s.getFn(ctx, actorID, actorRole, generateID)
}

func (s *stubLedger) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Generate, error) {
	if s.listForUserFn == nil {
		return nil, fmt.Errorf("unexpected ListForUser call")
	}
	return s.listForUserFn(ctx, userID)
}

func (s *stubLedger) ConfirmPayment(ctx context.Context, operatorID, paymentID uuid.UUID) (*models.Payment, error) {
	if s.confirmFn == nil {
		return nil, fmt.Errorf("unexpected ConfirmPayment call")
	}
	return s.confirmFn(ctx, operatorID, paymentID)
}

func (s *stubLedger) RejectPayment(ctx context.Context, operatorID, paymentID uuid.UUID) (*models.Payment, error) {
	if s.rejectFn == nil {
		return nil, fmt.Errorf("unexpected RejectPayment call")
	}
	return s.rejectFn(ctx, operatorID, paymentID)
}

func (s *stubLedger) RetryBuild(ctx context.Context, operatorID, generateID uuid.UUID) (*models.Generate, error) {
	if s.retryFn == nil {
		return nil, fmt.Errorf("unexpected RetryBuild call")
	}
	return s.retryFn(ctx, operatorID, generateID)
}

func (s *stubLedger) HandleBuildCallback(ctx context.Context, input ledger.BuildCallbackInput) error {
	if s.callbackFn == nil {
		return fmt.Errorf("unexpected HandleBuildCallback call")
	}
	return s.callbackFn(ctx, input)
}

func (s *stubLedger) ListPayments(ctx context.Context, status *enums.PaymentStatus) ([]models.Payment, error) {
	if s.listPaymentsFn == nil {
		return nil, fmt.Errorf("unexpected ListPayments call")
	}
	return s.listPaymentsFn(ctx, status)
}

func (s *stubLedger) ListProblemGenerates(ctx context.Context) ([]models.Generate, error) {
	if s.listProblemsFn == nil {
		return nil, fmt.Errorf("unexpected ListProblemGenerates call")
	}
	return s.listProblemsFn(ctx)
}

func (s *stubLedger) GetPaymentDetail(ctx context.Context, paymentID uuid.UUID) (*ledger.PaymentDetail, error) {
	if s.paymentDetailFn == nil {
		return nil, fmt.Errorf("unexpected GetPaymentDetail call")
	}
	return s.paymentDetailFn(ctx, paymentID)
}
