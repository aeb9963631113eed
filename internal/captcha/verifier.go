// Package captcha verifies challenge tokens against a Turnstile-compatible
// siteverify endpoint before a paid generate request is accepted.
package captcha

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/sitewrap/sitewrap-backend/pkg/config"
	pkgerrors "github.com/sitewrap/sitewrap-backend/pkg/errors"
)

// Verifier checks a client-supplied captcha token.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

type verifier struct {
	client    *http.Client
	secret    string
	verifyURL string
}

func NewVerifier(cfg config.CaptchaConfig) Verifier {
	return &verifier{
		client:    &http.Client{Timeout: cfg.Timeout},
		secret:    cfg.Secret,
		verifyURL: cfg.VerifyURL,
	}
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func (v *verifier) Verify(ctx context.Context, token, remoteIP string) error {
	if strings.TrimSpace(token) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "captcha token is required")
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to build captcha request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "captcha verification request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return pkgerrors.New(pkgerrors.CodeDependency, "captcha verifier returned an unexpected status")
	}

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to decode captcha response")
	}
	if !body.Success {
		return pkgerrors.New(pkgerrors.CodeValidation, "captcha verification failed")
	}
	return nil
}
