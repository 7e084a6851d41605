package sqlite

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docpilot/portal/internal/model"
)

var (
	columns = []string{
		"user_id", "full_name", "company", "job_title", "timezone", "language",
		"marketing_emails", "product_updates", "usage_alerts", "avatar_key", "created_at", "updated_at",
	}
	fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
)

func newMockRepo(t *testing.T) (*SettingsRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	repo := NewSettingsRepository(db)
	repo.now = func() time.Time { return fixedNow }
	return repo, mock
}

func settingsRow(s model.AccountSettings) *sqlmock.Rows {
	return sqlmock.NewRows(columns).AddRow(
		s.UserID.String(), s.FullName, s.Company, s.JobTitle, s.Timezone, s.Language,
		s.MarketingEmails, s.ProductUpdates, s.UsageAlerts, s.AvatarKey,
		fixedNow.UnixMilli(), fixedNow.UnixMilli(),
	)
}

func TestSettingsRepository_GetByUserID(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	selectQuery := regexp.QuoteMeta("FROM account_settings WHERE user_id = ?")

	t.Run("found", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		want := model.DefaultAccountSettings(userID)
		want.Company = "Docpilot"
		want.CreatedAt, want.UpdatedAt = fixedNow, fixedNow

		mock.ExpectQuery(selectQuery).WithArgs(userID.String()).WillReturnRows(settingsRow(want))

		got, err := repo.GetByUserID(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("missing", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(selectQuery).WithArgs(userID.String()).WillReturnRows(sqlmock.NewRows(columns))

		_, err := repo.GetByUserID(ctx, userID)
		require.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("driver error", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(selectQuery).WithArgs(userID.String()).WillReturnError(errors.New("disk I/O error"))

		_, err := repo.GetByUserID(ctx, userID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get settings")
	})
}

func ptr[T any](v T) *T { return &v }

func TestSettingsRepository_Patch(t *testing.T) {
	ctx := context.Background()
	patchQuery := regexp.QuoteMeta("UPDATE account_settings SET")

	t.Run("writes only given fields", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		s := model.DefaultAccountSettings(uuid.New())
		s.FullName = "Ada Lovelace"
		s.MarketingEmails = true

		mock.ExpectQuery(patchQuery).
			WithArgs(
				"Ada Lovelace", nil, nil, nil, nil,
				true, nil, nil,
				fixedNow.UnixMilli(), s.UserID.String(),
			).
			WillReturnRows(settingsRow(s))

		got, err := repo.Patch(ctx, s.UserID, model.SettingsPatch{
			FullName:        ptr("Ada Lovelace"),
			MarketingEmails: ptr(true),
		})
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", got.FullName)
		assert.True(t, got.MarketingEmails)
		assert.Equal(t, fixedNow, got.UpdatedAt)
	})

	t.Run("missing row", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(patchQuery).WillReturnRows(sqlmock.NewRows(columns))

		_, err := repo.Patch(ctx, uuid.New(), model.SettingsPatch{Company: ptr("x")})
		require.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestSettingsRepository_SetAvatarKey(t *testing.T) {
	ctx := context.Background()
	selectKey := regexp.QuoteMeta("SELECT avatar_key FROM account_settings WHERE user_id = ?")
	updateKey := regexp.QuoteMeta("UPDATE account_settings SET avatar_key = ?")

	t.Run("returns replaced key", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		s := model.DefaultAccountSettings(uuid.New())
		s.AvatarKey = "avatars/new.png"

		mock.ExpectBegin()
		mock.ExpectQuery(selectKey).WithArgs(s.UserID.String()).
			WillReturnRows(sqlmock.NewRows([]string{"avatar_key"}).AddRow("avatars/old.png"))
		mock.ExpectQuery(updateKey).WithArgs("avatars/new.png", fixedNow.UnixMilli(), s.UserID.String()).
			WillReturnRows(settingsRow(s))
		mock.ExpectCommit()

		got, previous, err := repo.SetAvatarKey(ctx, s.UserID, "avatars/new.png")
		require.NoError(t, err)
		assert.Equal(t, "avatars/old.png", previous)
		assert.Equal(t, "avatars/new.png", got.AvatarKey)
	})

	t.Run("missing row rolls back", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		userID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(selectKey).WithArgs(userID.String()).
			WillReturnRows(sqlmock.NewRows([]string{"avatar_key"}))
		mock.ExpectRollback()

		_, _, err := repo.SetAvatarKey(ctx, userID, "avatars/new.png")
		require.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestSettingsRepository_InsertIfMissing(t *testing.T) {
	ctx := context.Background()
	repo, mock := newMockRepo(t)

	s := model.DefaultAccountSettings(uuid.New())
	existing := s
	existing.Company = "Already there"

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (user_id) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM account_settings WHERE user_id = ?")).
		WithArgs(s.UserID.String()).
		WillReturnRows(settingsRow(existing))

	got, err := repo.InsertIfMissing(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, "Already there", got.Company)
}

func TestSettingsRepository_InsertIfMissing_Error(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (user_id) DO NOTHING")).
		WillReturnError(errors.New("database is locked"))

	_, err := repo.InsertIfMissing(context.Background(), model.DefaultAccountSettings(uuid.New()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert settings")
}

func TestOpen_AppliesMigrations(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, t.TempDir()+"/portal.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewSettingsRepository(db)
	userID := uuid.New()

	inserted, err := repo.InsertIfMissing(ctx, model.DefaultAccountSettings(userID))
	require.NoError(t, err)
	assert.Equal(t, userID, inserted.UserID)

	_, previous, err := repo.SetAvatarKey(ctx, userID, "avatars/a.png")
	require.NoError(t, err)
	assert.Empty(t, previous)

	saved, err := repo.Patch(ctx, userID, model.SettingsPatch{Timezone: ptr("Europe/Berlin")})
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", saved.Timezone)
	assert.Equal(t, "avatars/a.png", saved.AvatarKey)

	_, previous, err = repo.SetAvatarKey(ctx, userID, "avatars/b.png")
	require.NoError(t, err)
	assert.Equal(t, "avatars/a.png", previous)

	got, err := repo.GetByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", got.Timezone)
	assert.Equal(t, "avatars/b.png", got.AvatarKey)
}
