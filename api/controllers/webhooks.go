package controllers

import (
	"crypto/subtle"
	"net/http"

	"github.com/google/uuid"

	"github.com/sitewrap/sitewrap-backend/api/responses"
	"github.com/sitewrap/sitewrap-backend/api/validators"
	"github.com/sitewrap/sitewrap-backend/internal/ledger"
	pkgerrors "github.com/sitewrap/sitewrap-backend/pkg/errors"
	"github.com/sitewrap/sitewrap-backend/pkg/logger"
)

const buildSecretHeader = "X-Build-Secret"

type buildCompleteRequest struct {
	GenerateID    uuid.UUID `json:"generate_id" validate:"required"`
	Status        string    `json:"status" validate:"required"`
	APKKey        string    `json:"apk_key"`
	AABKey        string    `json:"aab_key"`
	KeystoreKey   string    `json:"keystore_key"`
	KeystoreAlias string    `json:"keystore_alias"`
	ErrorMessage  string    `json:"error_message"`
}

// BuildComplete receives the build worker's completion callback.
func BuildComplete(svc ledger.Service, callbackSecret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		provided := r.Header.Get(buildSecretHeader)
		if callbackSecret == "" ||
			subtle.ConstantTimeCompare([]byte(provided), []byte(callbackSecret)) != 1 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid build secret"))
			return
		}

		var body buildCompleteRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var success bool
		switch body.Status {
		case "success":
			success = true
		case "failed":
			success = false
		default:
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "status must be success or failed"))
			return
		}

		if err := svc.HandleBuildCallback(ctx, ledger.BuildCallbackInput{
			GenerateID:    body.GenerateID,
			Success:       success,
			APKKey:        body.APKKey,
			AABKey:        body.AABKey,
			KeystoreKey:   body.KeystoreKey,
			KeystoreAlias: body.KeystoreAlias,
			ErrorMessage:  body.ErrorMessage,
		}); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"acknowledged": true})
	}
}
