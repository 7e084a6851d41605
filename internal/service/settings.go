package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/docpilot/portal/internal/logger"
	"github.com/docpilot/portal/internal/model"
)

// MaxAvatarSize is the largest accepted avatar, in bytes.
const MaxAvatarSize = 2 << 20

var avatarExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Settings manages the per-user account settings row and avatar.
type Settings struct {
	store    model.SettingsStore
	storage  model.ObjectStorage
	validate *validator.Validate
	logger   *logger.Logger
}

func NewSettings(store model.SettingsStore, storage model.ObjectStorage, logger *logger.Logger) *Settings {
	return &Settings{
		store:    store,
		storage:  storage,
		validate: newValidator(),
		logger:   logger,
	}
}

// Get returns the user's settings, creating the default row when none exists.
func (s *Settings) Get(ctx context.Context, userID uuid.UUID) (model.AccountSettings, error) {
	settings, err := s.store.GetByUserID(ctx, userID)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		s.logger.Error("Settings service: failed to load settings",
			"user_id", userID,
			"error", err.Error())
		return model.AccountSettings{}, fmt.Errorf("failed to load settings: %w", err)
	}

	s.logger.Info("Settings service: creating default settings",
		"user_id", userID)

	settings, err = s.store.InsertIfMissing(ctx, model.DefaultAccountSettings(userID))
	if err != nil {
		s.logger.Error("Settings service: failed to create default settings",
			"user_id", userID,
			"error", err.Error())
		return model.AccountSettings{}, fmt.Errorf("failed to create default settings: %w", err)
	}
	return settings, nil
}

// Update validates patch against the current row and writes only the fields
// patch sets.
func (s *Settings) Update(ctx context.Context, userID uuid.UUID, patch model.SettingsPatch) (model.AccountSettings, error) {
	current, err := s.Get(ctx, userID)
	if err != nil {
		return model.AccountSettings{}, err
	}

	patch.Apply(&current)

	if err := s.validate.Struct(current); err != nil {
		s.logger.Info("Settings service: rejected settings update",
			"user_id", userID,
			"error", err.Error())
		return model.AccountSettings{}, model.NewUserError(model.ErrInvalidArgument, describeValidation(err), err)
	}

	saved, err := s.store.Patch(ctx, userID, patch)
	if err != nil {
		s.logger.Error("Settings service: failed to save settings",
			"user_id", userID,
			"error", err.Error())
		return model.AccountSettings{}, fmt.Errorf("failed to save settings: %w", err)
	}

	s.logger.Info("Settings service: settings updated",
		"user_id", userID)
	return saved, nil
}

// UploadAvatar stores a new avatar and points the settings at it. The avatar
// it replaced, as reported by the store, is removed afterwards.
func (s *Settings) UploadAvatar(ctx context.Context, userID uuid.UUID, contentType string, size int64, r io.Reader) (model.AccountSettings, error) {
	ext, ok := avatarExtensions[contentType]
	if !ok {
		return model.AccountSettings{}, model.NewUserError(model.ErrInvalidArgument, "avatar must be a JPEG, PNG or WebP image", nil)
	}
	if size <= 0 || size > MaxAvatarSize {
		return model.AccountSettings{}, model.NewUserError(model.ErrInvalidArgument, "avatar must be at most 2 MiB", nil)
	}

	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return model.AccountSettings{}, fmt.Errorf("failed to read avatar: %w", err)
	}
	if sniffed := http.DetectContentType(head); sniffed != contentType {
		s.logger.Info("Settings service: avatar content does not match its type",
			"user_id", userID,
			"declared", contentType,
			"sniffed", sniffed)
		return model.AccountSettings{}, model.NewUserError(model.ErrInvalidArgument, "avatar content does not match its content type", nil)
	}

	if _, err := s.Get(ctx, userID); err != nil {
		return model.AccountSettings{}, err
	}

	key := path.Join("avatars", userID.String(), uuid.NewString()+ext)
	if err := s.storage.Upload(ctx, key, br, size, contentType); err != nil {
		s.logger.Error("Settings service: failed to upload avatar",
			"user_id", userID,
			"error", err.Error())
		return model.AccountSettings{}, fmt.Errorf("failed to upload avatar: %w", err)
	}

	saved, previous, err := s.store.SetAvatarKey(ctx, userID, key)
	if err != nil {
		s.logger.Error("Settings service: failed to save avatar key",
			"user_id", userID,
			"error", err.Error())
		s.removeObject(ctx, userID, key)
		return model.AccountSettings{}, fmt.Errorf("failed to save avatar key: %w", err)
	}

	if previous != "" && previous != key {
		s.removeObject(ctx, userID, previous)
	}

	s.logger.Info("Settings service: avatar updated",
		"user_id", userID,
		"key", key)
	return saved, nil
}

// Avatar opens the user's avatar. It returns model.ErrNotFound when none is
// set.
func (s *Settings) Avatar(ctx context.Context, userID uuid.UUID) (io.ReadCloser, model.ObjectInfo, error) {
	settings, err := s.store.GetByUserID(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.ObjectInfo{}, model.ErrNotFound
	}
	if err != nil {
		return nil, model.ObjectInfo{}, fmt.Errorf("failed to load settings: %w", err)
	}
	if settings.AvatarKey == "" {
		return nil, model.ObjectInfo{}, model.ErrNotFound
	}

	rc, info, err := s.storage.Download(ctx, settings.AvatarKey)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			s.logger.Error("Settings service: failed to download avatar",
				"user_id", userID,
				"error", err.Error())
		}
		return nil, model.ObjectInfo{}, fmt.Errorf("failed to download avatar: %w", err)
	}
	return rc, info, nil
}

func (s *Settings) removeObject(ctx context.Context, userID uuid.UUID, key string) {
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Warn("Settings service: failed to delete avatar object",
			"user_id", userID,
			"key", key,
			"error", err.Error())
	}
}
