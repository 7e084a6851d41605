package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/docpilot/portal/internal/model"
)

var _ model.SettingsStore = (*SettingsRepository)(nil)

const settingsColumns = `user_id, full_name, company, job_title, timezone, language,
	marketing_emails, product_updates, usage_alerts, avatar_key, created_at, updated_at`

type SettingsRepository struct {
	db *Connection
}

func NewSettingsRepository(db *Connection) *SettingsRepository {
	return &SettingsRepository{
		db: db,
	}
}

func (r *SettingsRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (model.AccountSettings, error) {
	query := `SELECT ` + settingsColumns + ` FROM account_settings WHERE user_id = $1`

	settings, err := scanSettings(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.AccountSettings{}, model.ErrNotFound
		}
		return model.AccountSettings{}, fmt.Errorf("failed to get settings: %w", err)
	}
	return settings, nil
}

func (r *SettingsRepository) Patch(ctx context.Context, userID uuid.UUID, p model.SettingsPatch) (model.AccountSettings, error) {
	query := `UPDATE account_settings SET
				full_name = COALESCE($2, full_name),
				company = COALESCE($3, company),
				job_title = COALESCE($4, job_title),
				timezone = COALESCE($5, timezone),
				language = COALESCE($6, language),
				marketing_emails = COALESCE($7, marketing_emails),
				product_updates = COALESCE($8, product_updates),
				usage_alerts = COALESCE($9, usage_alerts),
				updated_at = now()
			  WHERE user_id = $1
			  RETURNING ` + settingsColumns

	saved, err := scanSettings(r.db.QueryRow(ctx, query,
		userID, p.FullName, p.Company, p.JobTitle, p.Timezone, p.Language,
		p.MarketingEmails, p.ProductUpdates, p.UsageAlerts,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.AccountSettings{}, model.ErrNotFound
		}
		return model.AccountSettings{}, fmt.Errorf("failed to patch settings: %w", err)
	}
	return saved, nil
}

// SetAvatarKey locks the row so concurrent uploads each see the key they
// actually replaced.
func (r *SettingsRepository) SetAvatarKey(ctx context.Context, userID uuid.UUID, key string) (model.AccountSettings, string, error) {
	query := `UPDATE account_settings AS s
			  SET avatar_key = $2, updated_at = now()
			  FROM (SELECT user_id, avatar_key FROM account_settings WHERE user_id = $1 FOR UPDATE) AS old
			  WHERE s.user_id = old.user_id
			  RETURNING s.user_id, s.full_name, s.company, s.job_title, s.timezone, s.language,
				s.marketing_emails, s.product_updates, s.usage_alerts, s.avatar_key,
				s.created_at, s.updated_at, old.avatar_key`

	var (
		s        model.AccountSettings
		previous string
	)
	err := r.db.QueryRow(ctx, query, userID, key).Scan(
		&s.UserID, &s.FullName, &s.Company, &s.JobTitle, &s.Timezone, &s.Language,
		&s.MarketingEmails, &s.ProductUpdates, &s.UsageAlerts, &s.AvatarKey,
		&s.CreatedAt, &s.UpdatedAt, &previous,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.AccountSettings{}, "", model.ErrNotFound
		}
		return model.AccountSettings{}, "", fmt.Errorf("failed to set avatar key: %w", err)
	}
	return s, previous, nil
}

func (r *SettingsRepository) InsertIfMissing(ctx context.Context, s model.AccountSettings) (model.AccountSettings, error) {
	query := `INSERT INTO account_settings (user_id, full_name, company, job_title, timezone, language,
				marketing_emails, product_updates, usage_alerts, avatar_key)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  ON CONFLICT (user_id) DO NOTHING`

	if _, err := r.db.Exec(ctx, query, settingsArgs(s)...); err != nil {
		return model.AccountSettings{}, fmt.Errorf("failed to insert settings: %w", err)
	}
	return r.GetByUserID(ctx, s.UserID)
}

func settingsArgs(s model.AccountSettings) []any {
	return []any{
		s.UserID, s.FullName, s.Company, s.JobTitle, s.Timezone, s.Language,
		s.MarketingEmails, s.ProductUpdates, s.UsageAlerts, s.AvatarKey,
	}
}

func scanSettings(row pgx.Row) (model.AccountSettings, error) {
	var s model.AccountSettings
	err := row.Scan(
		&s.UserID, &s.FullName, &s.Company, &s.JobTitle, &s.Timezone, &s.Language,
		&s.MarketingEmails, &s.ProductUpdates, &s.UsageAlerts, &s.AvatarKey,
		&s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}
