package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AccountSettings is the editable account profile and preferences.
type AccountSettings struct {
	UserID          uuid.UUID `json:"user_id"`
	FullName        string    `json:"full_name" validate:"max=100"`
	Company         string    `json:"company" validate:"max=100"`
	JobTitle        string    `json:"job_title" validate:"max=100"`
	Timezone        string    `json:"timezone" validate:"required,timezone"`
	Language        string    `json:"language" validate:"required,langtag"`
	MarketingEmails bool      `json:"marketing_emails"`
	ProductUpdates  bool      `json:"product_updates"`
	UsageAlerts     bool      `json:"usage_alerts"`
	AvatarKey       string    `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DefaultAccountSettings returns the settings a new account starts with.
func DefaultAccountSettings(userID uuid.UUID) AccountSettings {
	return AccountSettings{
		UserID:         userID,
		Timezone:       "UTC",
		Language:       "en",
		ProductUpdates: true,
		UsageAlerts:    true,
	}
}

// SettingsPatch carries changed fields only; nil means unchanged.
type SettingsPatch struct {
	FullName        *string `json:"full_name"`
	Company         *string `json:"company"`
	JobTitle        *string `json:"job_title"`
	Timezone        *string `json:"timezone"`
	Language        *string `json:"language"`
	MarketingEmails *bool   `json:"marketing_emails"`
	ProductUpdates  *bool   `json:"product_updates"`
	UsageAlerts     *bool   `json:"usage_alerts"`
}

// Apply copies the non-nil fields of p onto s.
func (p SettingsPatch) Apply(s *AccountSettings) {
	if p.FullName != nil {
		s.FullName = *p.FullName
	}
	if p.Company != nil {
		s.Company = *p.Company
	}
	if p.JobTitle != nil {
		s.JobTitle = *p.JobTitle
	}
	if p.Timezone != nil {
		s.Timezone = *p.Timezone
	}
	if p.Language != nil {
		s.Language = *p.Language
	}
	if p.MarketingEmails != nil {
		s.MarketingEmails = *p.MarketingEmails
	}
	if p.ProductUpdates != nil {
		s.ProductUpdates = *p.ProductUpdates
	}
	if p.UsageAlerts != nil {
		s.UsageAlerts = *p.UsageAlerts
	}
}

// SettingsStore persists account settings, one row per user.
type SettingsStore interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (AccountSettings, error)
	// Patch writes only the non-nil fields of patch and returns the stored
	// row. It returns ErrNotFound when the user has no row.
	Patch(ctx context.Context, userID uuid.UUID, patch SettingsPatch) (AccountSettings, error)
	// SetAvatarKey points the row at key and returns the stored row together
	// with the key it replaced. It returns ErrNotFound when the user has no row.
	SetAvatarKey(ctx context.Context, userID uuid.UUID, key string) (AccountSettings, string, error)
	// InsertIfMissing stores settings unless a row already exists and returns
	// the row that ends up stored.
	InsertIfMissing(ctx context.Context, settings AccountSettings) (AccountSettings, error)
}
