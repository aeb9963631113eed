package controllers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sitewrap/sitewrap-backend/api/middleware"
	"github.com/sitewrap/sitewrap-backend/api/responses"
	"github.com/sitewrap/sitewrap-backend/api/validators"
	"github.com/sitewrap/sitewrap-backend/internal/downloads"
	"github.com/sitewrap/sitewrap-backend/internal/ledger"
	"github.com/sitewrap/sitewrap-backend/pkg/config"
	"github.com/sitewrap/sitewrap-backend/pkg/enums"
	pkgerrors "github.com/sitewrap/sitewrap-backend/pkg/errors"
	"github.com/sitewrap/sitewrap-backend/pkg/logger"
)

const apkContentType = "application/vnd.android.package-archive"

// GenerateSubmit accepts the multipart build request and opens the paired
// pending payment.
func GenerateSubmit(svc ledger.Service, genCfg config.GenerationConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		// Icon plus bundle plus form fields, with headroom for boundaries.
		maxBody := genCfg.MaxIconSize + genCfg.MaxHTMLSize + 1<<20
		if err := validators.ParseMultipart(r, maxBody); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		buildType := enums.BuildTypeURL
		if raw := r.FormValue("build_type"); raw != "" {
			parsed, err := enums.ParseBuildType(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "build_type must be url or html"))
				return
			}
			buildType = parsed
		}

		icon, err := validators.FormFileBytes(r, "icon", genCfg.MaxIconSize)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		bundle, err := validators.FormFileBytes(r, "html_bundle", genCfg.MaxHTMLSize)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Submit(ctx, ledger.SubmitInput{
			UserID:       middleware.UserIDFromContext(ctx),
			RemoteIP:     middleware.ClientIP(r),
			CaptchaToken: r.FormValue("captcha_token"),
			BuildType:    buildType,
			URL:          r.FormValue("url"),
			AppName:      validators.SanitizeString(r.FormValue("app_name"), 100),
			PackageName:  validators.SanitizeString(r.FormValue("package_name"), 200),
			Icon:         icon,
			HTMLBundle:   bundle,
			EnableGPS:    validators.FormBool(r, "enable_gps"),
			EnableCamera: validators.FormBool(r, "enable_camera"),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"id":     result.Generate.ID,
			"status": result.Generate.Status,
			"payment": map[string]any{
				"id":     result.Payment.ID,
				"amount": result.Payment.Amount,
				"status": result.Payment.Status,
			},
		})
	}
}

// GenerateList returns the caller's generate requests.
func GenerateList(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		generates, err := svc.ListForUser(ctx, middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, generateViews(generates))
	}
}

// GenerateDetail returns one generate, owner- or admin-scoped.
func GenerateDetail(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := pathID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		generate, err := svc.Get(ctx, middleware.UserIDFromContext(ctx), middleware.RoleFromContext(ctx), id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, generateView(generate))
	}
}

// DownloadIssue mints a signed time-limited download URL for a ready build.
func DownloadIssue(svc downloads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := pathID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		grant, err := svc.Issue(ctx, middleware.UserIDFromContext(ctx), middleware.RoleFromContext(ctx), id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"download_url":   grant.URL,
			"expires_at":     grant.ExpiresAt,
			"download_count": grant.DownloadCount,
		})
	}
}

// DownloadFile redeems a signed URL and streams the APK. The signature is the
// credential; no session is required.
func DownloadFile(svc downloads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := pathID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		expires, err := strconv.ParseInt(r.URL.Query().Get("expires"), 10, 64)
		if err != nil {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "expires must be a unix timestamp"))
			return
		}
		signature := r.URL.Query().Get("signature")
		if signature == "" {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "signature is required"))
			return
		}

		artifact, err := svc.Redeem(ctx, id, expires, signature)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		defer artifact.Body.Close()

		w.Header().Set("Content-Type", apkContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
		if artifact.Size > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(artifact.Size, 10))
		}
		if _, err := io.Copy(w, artifact.Body); err != nil && logg != nil {
			logg.Warn(ctx, "apk stream interrupted")
		}
	}
}

func pathID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "id must be a valid uuid")
	}
	return id, nil
}
