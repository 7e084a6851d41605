package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/docpilot/portal/internal/model"
)

var _ model.SettingsStore = (*SettingsRepository)(nil)

const settingsColumns = `user_id, full_name, company, job_title, timezone, language,
	marketing_emails, product_updates, usage_alerts, avatar_key, created_at, updated_at`

// SettingsRepository keeps timestamps as unix milliseconds.
type SettingsRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{
		db:  db,
		now: time.Now,
	}
}

func (r *SettingsRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (model.AccountSettings, error) {
	query := `SELECT ` + settingsColumns + ` FROM account_settings WHERE user_id = ?`

	settings, err := scanSettings(r.db.QueryRowContext(ctx, query, userID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.AccountSettings{}, model.ErrNotFound
		}
		return model.AccountSettings{}, fmt.Errorf("failed to get settings: %w", err)
	}
	return settings, nil
}

func (r *SettingsRepository) Patch(ctx context.Context, userID uuid.UUID, p model.SettingsPatch) (model.AccountSettings, error) {
	query := `UPDATE account_settings SET
				full_name = COALESCE(?, full_name),
				company = COALESCE(?, company),
				job_title = COALESCE(?, job_title),
				timezone = COALESCE(?, timezone),
				language = COALESCE(?, language),
				marketing_emails = COALESCE(?, marketing_emails),
				product_updates = COALESCE(?, product_updates),
				usage_alerts = COALESCE(?, usage_alerts),
				updated_at = ?
			  WHERE user_id = ?
			  RETURNING ` + settingsColumns

	saved, err := scanSettings(r.db.QueryRowContext(ctx, query,
		p.FullName, p.Company, p.JobTitle, p.Timezone, p.Language,
		p.MarketingEmails, p.ProductUpdates, p.UsageAlerts,
		r.now().UTC().UnixMilli(), userID.String(),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.AccountSettings{}, model.ErrNotFound
		}
		return model.AccountSettings{}, fmt.Errorf("failed to patch settings: %w", err)
	}
	return saved, nil
}

// SetAvatarKey reads the old key and writes the new one in one transaction.
// Open caps the pool at one connection, so concurrent callers run one after
// another.
func (r *SettingsRepository) SetAvatarKey(ctx context.Context, userID uuid.UUID, key string) (model.AccountSettings, string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.AccountSettings{}, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var previous string
	err = tx.QueryRowContext(ctx, `SELECT avatar_key FROM account_settings WHERE user_id = ?`, userID.String()).Scan(&previous)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AccountSettings{}, "", model.ErrNotFound
	}
	if err != nil {
		return model.AccountSettings{}, "", fmt.Errorf("failed to read avatar key: %w", err)
	}

	query := `UPDATE account_settings SET avatar_key = ?, updated_at = ?
			  WHERE user_id = ?
			  RETURNING ` + settingsColumns

	saved, err := scanSettings(tx.QueryRowContext(ctx, query, key, r.now().UTC().UnixMilli(), userID.String()))
	if err != nil {
		return model.AccountSettings{}, "", fmt.Errorf("failed to set avatar key: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.AccountSettings{}, "", fmt.Errorf("failed to commit avatar key: %w", err)
	}
	return saved, previous, nil
}

func (r *SettingsRepository) InsertIfMissing(ctx context.Context, s model.AccountSettings) (model.AccountSettings, error) {
	query := `INSERT INTO account_settings (user_id, full_name, company, job_title, timezone, language,
				marketing_emails, product_updates, usage_alerts, avatar_key, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT (user_id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, r.args(s)...); err != nil {
		return model.AccountSettings{}, fmt.Errorf("failed to insert settings: %w", err)
	}
	return r.GetByUserID(ctx, s.UserID)
}

func (r *SettingsRepository) args(s model.AccountSettings) []any {
	now := r.now().UTC().UnixMilli()
	return []any{
		s.UserID.String(), s.FullName, s.Company, s.JobTitle, s.Timezone, s.Language,
		s.MarketingEmails, s.ProductUpdates, s.UsageAlerts, s.AvatarKey, now, now,
	}
}

func scanSettings(row *sql.Row) (model.AccountSettings, error) {
	var (
		s                    model.AccountSettings
		userID               string
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&userID, &s.FullName, &s.Company, &s.JobTitle, &s.Timezone, &s.Language,
		&s.MarketingEmails, &s.ProductUpdates, &s.UsageAlerts, &s.AvatarKey,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return model.AccountSettings{}, err
	}

	s.UserID, err = uuid.Parse(userID)
	if err != nil {
		return model.AccountSettings{}, fmt.Errorf("stored user id is invalid: %w", err)
	}
	s.CreatedAt = time.UnixMilli(createdAt).UTC()
	s.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return s, nil
}
