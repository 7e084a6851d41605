// Package gotrue is a client for the hosted auth backend's /auth/v1 REST API.
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docpilot/portal/internal/model"
)

var _ model.AuthGateway = (*Client)(nil)

// Client performs calls against the auth API. It is safe for concurrent use;
// per-flow state lives in the handles returned by Open and Restore.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	now     func() time.Time
}

// NewClient creates a Client. baseURL points at the /auth/v1 root.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpClient,
		now:     time.Now,
	}
}

// Open returns a handle with no session.
func (c *Client) Open() model.AuthSession {
	return &Conn{client: c}
}

// Restore returns a handle holding session.
func (c *Client) Restore(session model.Session) model.AuthSession {
	s := session
	return &Conn{client: c, session: &s}
}

// SignInWithPassword exchanges credentials for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (model.Session, error) {
	body := map[string]string{"email": email, "password": password}

	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=password", "", body, &resp); err != nil {
		return model.Session{}, err
	}
	return resp.toModel(c.now()), nil
}

// SignUp registers a user. When the project auto-confirms emails the
// backend also returns a session, which is discarded here.
func (c *Client) SignUp(ctx context.Context, email, password string, data map[string]any) (model.User, error) {
	body := map[string]any{"email": email, "password": password}
	if len(data) > 0 {
		body["data"] = data
	}

	var resp signupResponse
	if err := c.do(ctx, http.MethodPost, "/signup", "", body, &resp); err != nil {
		return model.User{}, err
	}
	if resp.User != nil {
		return resp.User.toModel(), nil
	}
	return resp.userResponse.toModel(), nil
}

// Recover asks the backend to email a reset link that redirects to redirectTo.
func (c *Client) Recover(ctx context.Context, email, redirectTo string) error {
	path := "/recover"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	return c.do(ctx, http.MethodPost, path, "", map[string]string{"email": email}, nil)
}

// Logout revokes the session behind accessToken. Tokens the backend no
// longer knows are treated as already logged out.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	err := c.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil)

	var authErr *model.AuthError
	if errors.As(err, &authErr) {
		switch authErr.Status {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return nil
		}
	}
	return err
}

func (c *Client) getUser(ctx context.Context, accessToken string) (model.User, error) {
	var resp userResponse
	if err := c.do(ctx, http.MethodGet, "/user", accessToken, nil, &resp); err != nil {
		return model.User{}, err
	}
	return resp.toModel(), nil
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (model.Session, error) {
	body := map[string]string{"refresh_token": refreshToken}

	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", "", body, &resp); err != nil {
		return model.Session{}, err
	}
	return resp.toModel(c.now()), nil
}

func (c *Client) updateUser(ctx context.Context, accessToken string, attrs model.UserAttributes) (model.User, error) {
	body := updateUserRequest{Password: attrs.Password, Email: attrs.Email, Data: attrs.Data}

	var resp userResponse
	if err := c.do(ctx, http.MethodPut, "/user", accessToken, body, &resp); err != nil {
		return model.User{}, err
	}
	return resp.toModel(), nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	switch {
	case bearer != "":
		req.Header.Set("Authorization", "Bearer "+bearer)
	case c.apiKey != "":
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("auth request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read auth response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, raw)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode auth response: %w", err)
	}
	return nil
}

func decodeError(status int, raw []byte) error {
	var e errorResponse
	_ = json.Unmarshal(raw, &e)

	authErr := &model.AuthError{Status: status, Code: e.ErrorCode}
	if authErr.Code == "" {
		authErr.Code = e.Error
	}

	for _, m := range []string{e.Msg, e.Message, e.ErrorDescription, e.Error} {
		if m != "" {
			authErr.Message = m
			break
		}
	}
	if authErr.Message == "" {
		authErr.Message = http.StatusText(status)
	}
	return authErr
}

type errorResponse struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type userResponse struct {
	ID               uuid.UUID      `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at"`
	UserMetadata     map[string]any `json:"user_metadata"`
}

func (u userResponse) toModel() model.User {
	return model.User{
		ID:               u.ID,
		Email:            u.Email,
		EmailConfirmedAt: u.EmailConfirmedAt,
		UserMetadata:     u.UserMetadata,
	}
}

type signupResponse struct {
	userResponse
	User *userResponse `json:"user"`
}

type sessionResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	User         userResponse `json:"user"`
}

func (s sessionResponse) toModel(now time.Time) model.Session {
	expiresAt := now.Add(time.Duration(s.ExpiresIn) * time.Second)
	if s.ExpiresAt > 0 {
		expiresAt = time.Unix(s.ExpiresAt, 0)
	}
	return model.Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
		ExpiresIn:    s.ExpiresIn,
		ExpiresAt:    expiresAt,
		User:         s.User.toModel(),
	}
}

type updateUserRequest struct {
	Password string         `json:"password,omitempty"`
	Email    string         `json:"email,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}
