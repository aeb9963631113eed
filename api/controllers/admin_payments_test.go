package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sitewrap/sitewrap-backend/api/middleware"
	"github.com/sitewrap/sitewrap-backend/internal/ledger"
	"github.com/sitewrap/sitewrap-backend/pkg/db/models"
	"github.com/sitewrap/sitewrap-backend/pkg/enums"
	pkgerrors "github.com/sitewrap/sitewrap-backend/pkg/errors"
)

// adminRouter mounts the admin payment handlers the way the real router does,
// with the operator identity already resolved.
func adminRouter(svc ledger.Service, operatorID uuid.UUID) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := middleware.WithActor(req.Context(), operatorID, enums.UserRoleAdmin)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Get("/admin/payments", AdminPaymentsList(svc, nil))
	r.Get("/admin/payments/failed-builds", AdminFailedBuilds(svc, nil))
	r.Post("/admin/payments/{id}/confirm", AdminPaymentConfirm(svc, nil))
	r.Post("/admin/payments/{id}/reject", AdminPaymentReject(svc, nil))
	r.Post("/admin/payments/{id}/retry-build", AdminRetryBuild(svc, nil))
	return r
}

func TestAdminPaymentsRequireAdminRole(t *testing.T) {
	// Same chain as the real router: actor resolution, then the role gate.
	r := chi.NewRouter()
	r.Route("/admin/payments", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				ctx := middleware.WithActor(req.Context(), uuid.New(), enums.UserRoleUser)
				next.ServeHTTP(w, req.WithContext(ctx))
			})
		})
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, nil))
		r.Get("/", AdminPaymentsList(&stubLedger{}, nil))
		r.Post("/{id}/confirm", AdminPaymentConfirm(&stubLedger{}, nil))
	})

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/admin/payments"},
		{http.MethodPost, "/admin/payments/" + uuid.NewString() + "/confirm"},
	}
	for _, p := range paths {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(p.method, p.path, nil))
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s %s: status %d, want 403", p.method, p.path, rec.Code)
		}

		var envelope struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if envelope.Error.Code != "FORBIDDEN" {
			t.Fatalf("error code = %q, want FORBIDDEN", envelope.Error.Code)
		}
	}
}

func TestAdminPaymentConfirm(t *testing.T) {
	operatorID := uuid.New()
	paymentID := uuid.New()

	t.Run("confirms with the operator identity", func(t *testing.T) {
		var gotOperator, gotPayment uuid.UUID
		svc := &stubLedger{confirmFn: func(ctx context.Context, operator, payment uuid.UUID) (*models.Payment, error) {
			gotOperator, gotPayment = operator, payment
			return &models.Payment{
				ID:          payment,
				GenerateID:  uuid.New(),
				Amount:      decimal.RequireFromString("15.00"),
				Status:      enums.PaymentStatusConfirmed,
				ConfirmedBy: &operator,
			}, nil
		}}
		router := adminRouter(svc, operatorID)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/payments/"+paymentID.String()+"/confirm", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d, want 200: %s", rec.Code, rec.Body)
		}
		if gotOperator != operatorID || gotPayment != paymentID {
			t.Fatalf("confirm called with operator=%s payment=%s", gotOperator, gotPayment)
		}

		var envelope struct {
			Data struct {
				Status string `json:"status"`
				Amount string `json:"amount"`
			} `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if envelope.Data.Status != "confirmed" {
			t.Fatalf("status = %q, want confirmed", envelope.Data.Status)
		}
		amount, err := decimal.NewFromString(envelope.Data.Amount)
		if err != nil || !amount.Equal(decimal.RequireFromString("15.00")) {
			t.Fatalf("amount = %q, want 15.00", envelope.Data.Amount)
		}
	})

	t.Run("already resolved reads as 400", func(t *testing.T) {
		svc := &stubLedger{confirmFn: func(ctx context.Context, operator, payment uuid.UUID) (*models.Payment, error) {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "payment is already confirmed")
		}}
		router := adminRouter(svc, operatorID)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/payments/"+paymentID.String()+"/confirm", nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status %d, want 400", rec.Code)
		}
	})

	t.Run("malformed id never reaches the service", func(t *testing.T) {
		router := adminRouter(&stubLedger{}, operatorID)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/payments/not-a-uuid/confirm", nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status %d, want 400", rec.Code)
		}
	})
}

func TestAdminPaymentsList(t *testing.T) {
	operatorID := uuid.New()

	t.Run("passes the status filter through", func(t *testing.T) {
		var gotStatus *enums.PaymentStatus
		svc := &stubLedger{listPaymentsFn: func(ctx context.Context, status *enums.PaymentStatus) ([]models.Payment, error) {
			gotStatus = status
			return []models.Payment{}, nil
		}}
		router := adminRouter(svc, operatorID)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/payments?status=pending", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d, want 200", rec.Code)
		}
		if gotStatus == nil || *gotStatus != enums.PaymentStatusPending {
			t.Fatalf("status filter = %v, want pending", gotStatus)
		}
	})

	t.Run("rejects an unknown status filter", func(t *testing.T) {
		router := adminRouter(&stubLedger{}, operatorID)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/payments?status=paid", nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status %d, want 400", rec.Code)
		}
	})
}

func TestAdminRetryBuild(t *testing.T) {
	operatorID := uuid.New()
	paymentID := uuid.New()
	generateID := uuid.New()

	svc := &stubLedger{
		paymentDetailFn: func(ctx context.Context, id uuid.UUID) (*ledger.PaymentDetail, error) {
			if id != paymentID {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			return &ledger.PaymentDetail{
				Payment:  &models.Payment{ID: paymentID, GenerateID: generateID, Status: enums.PaymentStatusConfirmed},
				Generate: &models.Generate{ID: generateID, Status: enums.GenerateStatusFailed},
			}, nil
		},
		retryFn: func(ctx context.Context, operator, generate uuid.UUID) (*models.Generate, error) {
			if generate != generateID {
				t.Fatalf("retry called for generate %s, want %s", generate, generateID)
			}
			return &models.Generate{ID: generate, Status: enums.GenerateStatusBuilding}, nil
		},
	}
	router := adminRouter(svc, operatorID)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/payments/"+paymentID.String()+"/retry-build", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200: %s", rec.Code, rec.Body)
	}

	var envelope struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if envelope.Data.Status != "building" {
		t.Fatalf("status = %q, want building", envelope.Data.Status)
	}
}
