package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/docpilot/portal/internal/api/http/apierror"
	apictx "github.com/docpilot/portal/internal/api/http/context"
	"github.com/docpilot/portal/internal/logger"
	"github.com/docpilot/portal/internal/model"
)

// AvatarPath is where the caller's avatar is served.
const AvatarPath = "/api/account/avatar"

// SettingsService defines account settings operations.
type SettingsService interface {
	Get(ctx context.Context, userID uuid.UUID) (model.AccountSettings, error)
	Update(ctx context.Context, userID uuid.UUID, patch model.SettingsPatch) (model.AccountSettings, error)
	UploadAvatar(ctx context.Context, userID uuid.UUID, contentType string, size int64, r io.Reader) (model.AccountSettings, error)
	Avatar(ctx context.Context, userID uuid.UUID) (io.ReadCloser, model.ObjectInfo, error)
}

// Settings handles the /account endpoints.
type Settings struct {
	settingsService SettingsService
	contextManager  model.ContextManager
	maxAvatarSize   int64
	logger          *logger.Logger
}

// NewSettings creates a new Settings handler.
func NewSettings(settingsService SettingsService, contextManager model.ContextManager, maxAvatarSize int64, logger *logger.Logger) *Settings {
	return &Settings{
		settingsService: settingsService,
		contextManager:  contextManager,
		maxAvatarSize:   maxAvatarSize,
		logger:          logger,
	}
}

type settingsResponse struct {
	model.AccountSettings
	AvatarURL string `json:"avatar_url,omitempty"`
}

func toSettingsResponse(s model.AccountSettings) settingsResponse {
	resp := settingsResponse{AccountSettings: s}
	if s.AvatarKey != "" {
		resp.AvatarURL = AvatarPath
	}
	return resp
}

// Get returns the caller's settings.
func (h *Settings) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	settings, err := h.settingsService.Get(r.Context(), userID)
	if err != nil {
		apierror.WriteError(w, r, err)
		return
	}

	apierror.WriteJSON(w, http.StatusOK, toSettingsResponse(settings))
}

// Update applies a partial update to the caller's settings.
func (h *Settings) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var patch model.SettingsPatch
	if err := decodeStrict(w, r, &patch); err != nil {
		apierror.WriteError(w, r, err)
		return
	}

	settings, err := h.settingsService.Update(r.Context(), userID, patch)
	if err != nil {
		apierror.WriteError(w, r, err)
		return
	}

	apierror.WriteJSON(w, http.StatusOK, toSettingsResponse(settings))
}

// UploadAvatar stores the raw request body as the caller's avatar.
func (h *Settings) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	if r.ContentLength <= 0 {
		apierror.WriteError(w, r, model.NewUserError(model.ErrInvalidArgument, "Content-Length is required", nil))
		return
	}
	if r.ContentLength > h.maxAvatarSize {
		apierror.WriteError(w, r, model.NewUserError(model.ErrInvalidArgument,
			"avatar must be at most "+strconv.FormatInt(h.maxAvatarSize>>20, 10)+" MiB", nil))
		return
	}

	body := http.MaxBytesReader(w, r.Body, h.maxAvatarSize)
	settings, err := h.settingsService.UploadAvatar(r.Context(), userID, r.Header.Get("Content-Type"), r.ContentLength, body)
	if err != nil {
		apierror.WriteError(w, r, err)
		return
	}

	apictx.Logger(r.Context(), h.logger).Info("Settings handler: avatar uploaded",
		"user_id", userID,
		"size", r.ContentLength)
	apierror.WriteJSON(w, http.StatusOK, toSettingsResponse(settings))
}

// Avatar streams the caller's avatar.
func (h *Settings) Avatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	rc, info, err := h.settingsService.Avatar(r.Context(), userID)
	if err != nil {
		apierror.WriteError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", info.ContentType)
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, rc); err != nil {
		apictx.Logger(r.Context(), h.logger).Warn("Settings handler: avatar stream interrupted",
			"user_id", userID,
			"error", err.Error())
	}
}

func (h *Settings) userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	identity, ok := h.contextManager.GetIdentityFromContext(r.Context())
	if !ok || identity.UserID == uuid.Nil {
		apierror.WriteError(w, r, model.ErrUnauthenticated)
		return uuid.Nil, false
	}
	return identity.UserID, true
}
