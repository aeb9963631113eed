package controllers

import (
	"net/http"

	"github.com/sitewrap/sitewrap-backend/api/responses"
	"github.com/sitewrap/sitewrap-backend/api/validators"
	"github.com/sitewrap/sitewrap-backend/internal/auth"
	"github.com/sitewrap/sitewrap-backend/pkg/config"
	pkgerrors "github.com/sitewrap/sitewrap-backend/pkg/errors"
	"github.com/sitewrap/sitewrap-backend/pkg/logger"
)

type credentialsRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthRegister wires the registration endpoint into the HTTP layer.
func AuthRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body credentialsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.Register(r.Context(), body.Email, body.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, userView(user))
	}
}

// AuthLogin wires the login endpoint into the HTTP layer. The minted token is
// returned in the body and doubled as an http-only session cookie.
func AuthLogin(svc auth.Service, jwtCfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body credentialsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body.Email, body.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     jwtCfg.CookieName,
			Value:    result.Token,
			Path:     "/",
			MaxAge:   int(jwtCfg.TokenTTL.Seconds()),
			HttpOnly: true,
			Secure:   jwtCfg.CookieSecure,
			SameSite: http.SameSiteStrictMode,
		})

		responses.WriteSuccess(w, map[string]any{
			"token": result.Token,
			"user":  userView(result.User),
		})
	}
}
