// Package builds holds the client that hands a paid generate request to the
// external APK build worker.
package builds

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/sitewrap/sitewrap-backend/pkg/config"
	"github.com/sitewrap/sitewrap-backend/pkg/enums"
	pkgerrors "github.com/sitewrap/sitewrap-backend/pkg/errors"
)

// TriggerRequest is the payload handed to the build worker. The worker
// reports back through the build-complete webhook named in CallbackURL.
type TriggerRequest struct {
	GenerateID   uuid.UUID       `json:"generate_id"`
	BuildType    enums.BuildType `json:"build_type"`
	URL          string          `json:"url,omitempty"`
	AppName      string          `json:"app_name"`
	PackageName  string          `json:"package_name"`
	IconKey      string          `json:"icon_key"`
	HTMLFilesKey string          `json:"html_files_key,omitempty"`
	// Set on retries so the worker re-signs with the original keystore.
	KeystoreKey   string `json:"keystore_key,omitempty"`
	KeystoreAlias string `json:"keystore_alias,omitempty"`
	EnableGPS     bool   `json:"enable_gps"`
	EnableCamera  bool   `json:"enable_camera"`
	CallbackURL   string `json:"callback_url"`
}

// Trigger starts a build on the external worker.
type Trigger interface {
	Start(ctx context.Context, req TriggerRequest) error
}

type trigger struct {
	client      *http.Client
	endpoint    string
	token       string
	callbackURL string
}

func NewTrigger(cfg config.BuildConfig, callbackURL string) Trigger {
	return &trigger{
		client:      &http.Client{Timeout: cfg.Timeout},
		endpoint:    cfg.TriggerURL,
		token:       cfg.TriggerToken,
		callbackURL: callbackURL,
	}
}

func (t *trigger) Start(ctx context.Context, req TriggerRequest) error {
	req.CallbackURL = t.callbackURL

	payload, err := json.Marshal(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to encode build trigger payload")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to build trigger request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+t.token)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build trigger request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgerrors.New(pkgerrors.CodeDependency, "build worker rejected the trigger request")
	}
	return nil
}
