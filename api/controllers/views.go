package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sitewrap/sitewrap-backend/pkg/db/models"
	"github.com/sitewrap/sitewrap-backend/pkg/enums"
)

// UserView is the public shape of a user record.
type UserView struct {
	ID        uuid.UUID      `json:"id"`
	Email     string         `json:"email"`
	Role      enums.UserRole `json:"role"`
	CreatedAt time.Time      `json:"created_at"`
}

func userView(u *models.User) UserView {
	return UserView{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// GenerateView is the public shape of a generate request.
type GenerateView struct {
	ID            uuid.UUID            `json:"id"`
	URL           string               `json:"url,omitempty"`
	BuildType     enums.BuildType      `json:"build_type"`
	AppName       string               `json:"app_name"`
	PackageName   string               `json:"package_name"`
	Status        enums.GenerateStatus `json:"status"`
	ErrorMessage  *string              `json:"error_message,omitempty"`
	DownloadCount int                  `json:"download_count"`
	EnableGPS     bool                 `json:"enable_gps"`
	EnableCamera  bool                 `json:"enable_camera"`
	CreatedAt     time.Time            `json:"created_at"`
	CompletedAt   *time.Time           `json:"completed_at,omitempty"`
}

func generateView(g *models.Generate) GenerateView {
	return GenerateView{
		ID:            g.ID,
		URL:           g.URL,
		BuildType:     g.BuildType,
		AppName:       g.AppName,
		PackageName:   g.PackageName,
		Status:        g.Status,
		ErrorMessage:  g.ErrorMessage,
		DownloadCount: g.DownloadCount,
		EnableGPS:     g.EnableGPS,
		EnableCamera:  g.EnableCamera,
		CreatedAt:     g.CreatedAt,
		CompletedAt:   g.CompletedAt,
	}
}

func generateViews(generates []models.Generate) []GenerateView {
	views := make([]GenerateView, 0, len(generates))
	for i := range generates {
		views = append(views, generateView(&generates[i]))
	}
	return views
}

// PaymentView is the public shape of a payment record.
type PaymentView struct {
	ID          uuid.UUID           `json:"id"`
	UserID      uuid.UUID           `json:"user_id"`
	GenerateID  uuid.UUID           `json:"generate_id"`
	Amount      decimal.Decimal     `json:"amount"`
	Status      enums.PaymentStatus `json:"status"`
	ConfirmedBy *uuid.UUID          `json:"confirmed_by,omitempty"`
	ConfirmedAt *time.Time          `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

func paymentView(p *models.Payment) PaymentView {
	return PaymentView{
		ID:          p.ID,
		UserID:      p.UserID,
		GenerateID:  p.GenerateID,
		Amount:      p.Amount,
		Status:      p.Status,
		ConfirmedBy: p.ConfirmedBy,
		ConfirmedAt: p.ConfirmedAt,
		CreatedAt:   p.CreatedAt,
	}
}

func paymentViews(payments []models.Payment) []PaymentView {
	views := make([]PaymentView, 0, len(payments))
	for i := range payments {
		views = append(views, paymentView(&payments[i]))
	}
	return views
}
