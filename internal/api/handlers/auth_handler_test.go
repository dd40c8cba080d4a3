package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/feedqueue-api/configs"
	"github.com/maheshrc27/feedqueue-api/internal/api/middleware"
	"github.com/maheshrc27/feedqueue-api/internal/models"
	"github.com/maheshrc27/feedqueue-api/internal/transfer"
	"github.com/maheshrc27/feedqueue-api/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuth struct {
	state string
	code  string
}

func (s *stubAuth) LoginURL(state string) string {
	s.state = state
	return "https://accounts.example.com/auth?state=" + state
}

func (s *stubAuth) LoginCallback(_ context.Context, code string) (string, error) {
	s.code = code
	if code == "" {
		return "", errors.New("code or state is empty")
	}
	return testUser, nil
}

func authTestApp(auth *stubAuth) (*fiber.App, config.Config) {
	cfg := config.Config{SecretKey: "secret", CookieName: "session", FrontendURL: "http://localhost:5173"}
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, Handlers{Auth: NewAuthHandler(cfg, auth)},
		func(c *fiber.Ctx) error { return c.Next() },
		func(c *fiber.Ctx) error { return c.Next() })
	return app, cfg
}

func TestLoginRedirectsWithState(t *testing.T) {
	auth := &stubAuth{}
	app, _ := authTestApp(auth)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/login", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusTemporaryRedirect, resp.StatusCode)
	require.NotEmpty(t, auth.state)
	assert.Equal(t, "https://accounts.example.com/auth?state="+auth.state, resp.Header.Get(fiber.HeaderLocation))
	assert.Contains(t, resp.Header.Get(fiber.HeaderSetCookie), stateCookie+"="+auth.state)
}

func TestLoginCallbackSetsSession(t *testing.T) {
	auth := &stubAuth{}
	app, cfg := authTestApp(auth)

	req := httptest.NewRequest(http.MethodGet, "/login/callback?code=abc&state=xyz", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "xyz"})
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, cfg.FrontendURL, resp.Header.Get(fiber.HeaderLocation))
	assert.Equal(t, "abc", auth.code)

	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == cfg.CookieName {
			session = c
		}
	}
	require.NotNil(t, session)
	claims, err := utils.ValidateToken(cfg.SecretKey, session.Value)
	require.NoError(t, err)
	assert.Equal(t, testUser, claims.Username)
}

func TestLoginCallbackRejectsStateMismatch(t *testing.T) {
	auth := &stubAuth{}
	app, _ := authTestApp(auth)

	req := httptest.NewRequest(http.MethodGet, "/login/callback?code=abc&state=forged", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "xyz"})
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, auth.code)
}

type stubKeys struct {
	keys    []*models.ApiKey
	removed []int64
}

func (s *stubKeys) Create(_ context.Context, username string) (*transfer.ApiKeyCreated, error) {
	key := &models.ApiKey{ID: int64(len(s.keys) + 1), Username: username, ApiKey: "key"}
	s.keys = append(s.keys, key)
	return &transfer.ApiKeyCreated{ID: key.ID, ApiKey: key.ApiKey, ApiSecret: "secret"}, nil
}

func (s *stubKeys) List(context.Context, string) ([]*models.ApiKey, error) {
	return s.keys, nil
}

func (s *stubKeys) Authenticate(context.Context, string, string) (string, error) {
	return "", errors.New("not used")
}

func (s *stubKeys) RemoveAPIKey(_ context.Context, _ string, keyID int64) error {
	s.removed = append(s.removed, keyID)
	return nil
}

func TestApiKeyRoutes(t *testing.T) {
	keys := &stubKeys{}
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, Handlers{Keys: NewApiKeyHandler(keys, nil)},
		func(c *fiber.Ctx) error {
			c.Locals(middleware.UsernameKey, testUser)
			return c.Next()
		},
		func(c *fiber.Ctx) error { return c.Next() })

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/v1/keys", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created transfer.ApiKeyCreated
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "secret", created.ApiSecret)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/v1/keys", nil))
	require.NoError(t, err)
	var listed []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	require.Len(t, listed, 1)
	assert.NotContains(t, listed[0], "api_secret")

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/v1/keys/1", strings.NewReader("")))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []int64{1}, keys.removed)

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/v1/keys/zero", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
