package controllers

import (
	"net/http"

	"github.com/sitewrap/sitewrap-backend/api/middleware"
	"github.com/sitewrap/sitewrap-backend/api/responses"
	"github.com/sitewrap/sitewrap-backend/internal/ledger"
	"github.com/sitewrap/sitewrap-backend/pkg/enums"
	pkgerrors "github.com/sitewrap/sitewrap-backend/pkg/errors"
	"github.com/sitewrap/sitewrap-backend/pkg/logger"
)

// AdminPaymentsList returns payments, optionally filtered by status.
func AdminPaymentsList(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var status *enums.PaymentStatus
		if raw := r.URL.Query().Get("status"); raw != "" {
			parsed, err := enums.ParsePaymentStatus(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "status must be pending, confirmed, or rejected"))
				return
			}
			status = &parsed
		}

		payments, err := svc.ListPayments(ctx, status)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, paymentViews(payments))
	}
}

// AdminFailedBuilds lists confirmed payments whose build never reached ready.
func AdminFailedBuilds(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		generates, err := svc.ListProblemGenerates(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, generateViews(generates))
	}
}

// AdminPaymentConfirm marks a payment confirmed and dispatches the build.
func AdminPaymentConfirm(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := pathID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		payment, err := svc.ConfirmPayment(ctx, middleware.UserIDFromContext(ctx), id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, paymentView(payment))
	}
}

// AdminPaymentReject marks a payment rejected; the generate stays pending.
func AdminPaymentReject(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := pathID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		payment, err := svc.RejectPayment(ctx, middleware.UserIDFromContext(ctx), id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, paymentView(payment))
	}
}

// AdminRetryBuild re-dispatches the build behind a confirmed payment.
func AdminRetryBuild(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := pathID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		detail, err := svc.GetPaymentDetail(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		generate, err := svc.RetryBuild(ctx, middleware.UserIDFromContext(ctx), detail.Generate.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, generateView(generate))
	}
}
