package ledger

import (
	"github.com/google/uuid"

	"github.com/sitewrap/sitewrap-backend/pkg/db/models"
	"github.com/sitewrap/sitewrap-backend/pkg/enums"
)

// SubmitInput carries one generate request after transport decoding. Icon and
// HTMLBundle hold the raw uploaded bytes.
type SubmitInput struct {
	UserID       uuid.UUID
	RemoteIP     string
	CaptchaToken string
	BuildType    enums.BuildType
	URL          string
	AppName      string
	PackageName  string
	Icon         []byte
	HTMLBundle   []byte
	EnableGPS    bool
	EnableCamera bool
}

// SubmitResult returns the rows created by a successful submission.
type SubmitResult struct {
	Generate *models.Generate
	Payment  *models.Payment
}

// BuildCallbackInput is the decoded build-complete webhook payload. A
// successful build must carry the APK key; the bundle and keystore
// coordinates are optional.
type BuildCallbackInput struct {
	GenerateID    uuid.UUID
	Success       bool
	APKKey        string
	AABKey        string
	KeystoreKey   string
	KeystoreAlias string
	ErrorMessage  string
}

// PaymentDetail pairs a payment with its generate for operator views.
type PaymentDetail struct {
	Payment  *models.Payment
	Generate *models.Generate
}
