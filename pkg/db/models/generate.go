package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/sitewrap/sitewrap-backend/pkg/enums"
)

// Generate is a single APK build request. Status transitions are owned by the
// ledger service; nothing else writes the status column.
type Generate struct {
	ID           uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	URL          string               `gorm:"column:url;type:text"`
	BuildType    enums.BuildType      `gorm:"column:build_type;type:text;not null;default:'url'"`
	AppName      string               `gorm:"column:app_name;not null"`
	PackageName  string               `gorm:"column:package_name;not null"`
	IconKey      string               `gorm:"column:icon_key;not null"`
	HTMLFilesKey *string              `gorm:"column:html_files_key"`
	APKKey       *string              `gorm:"column:apk_key"`
	AABKey       *string              `gorm:"column:aab_key"`
	// Keystore coordinates reported by the build worker on the first
	// successful build; retries re-sign with the same keystore.
	KeystoreKey   *string              `gorm:"column:keystore_key"`
	KeystoreAlias *string              `gorm:"column:keystore_alias"`
	Status        enums.GenerateStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	ErrorMessage  *string              `gorm:"column:error_message"`
	// DownloadCount is incremented once per issued download grant, never per
	// redemption.
	DownloadCount int        `gorm:"column:download_count;not null;default:0"`
	EnableGPS     bool       `gorm:"column:enable_gps;not null;default:false"`
	EnableCamera  bool       `gorm:"column:enable_camera;not null;default:false"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	CompletedAt   *time.Time `gorm:"column:completed_at"`
}
