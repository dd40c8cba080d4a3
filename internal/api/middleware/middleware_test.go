package middleware

import (
	"context"
	"database/sql"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/feedqueue-api/configs"
	"github.com/maheshrc27/feedqueue-api/internal/models"
	"github.com/maheshrc27/feedqueue-api/internal/transfer"
	"github.com/maheshrc27/feedqueue-api/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubKeys struct {
	username string
	err      error
	calls    int
}

func (s *stubKeys) Create(context.Context, string) (*transfer.ApiKeyCreated, error) { return nil, nil }
func (s *stubKeys) List(context.Context, string) ([]*models.ApiKey, error)         { return nil, nil }
func (s *stubKeys) RemoveAPIKey(context.Context, string, int64) error               { return nil }

func (s *stubKeys) Authenticate(_ context.Context, key, secret string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.username, nil
}

func newAuthApp(keys *stubKeys) *fiber.App {
	cfg := config.Config{SecretKey: "secret", CookieName: "fq_session"}
	app := fiber.New()
	app.Use(NewAuthMiddleware(cfg, keys).AuthMiddleware())
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(UsernameKey).(string))
	})
	return app
}

func TestAuthWithApiKeyHeaders(t *testing.T) {
	keys := &stubKeys{username: "alice"}
	app := newAuthApp(keys)

	req := httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
	req.Header.Set(ApiKeyHeader, "k")
	req.Header.Set(ApiSecretHeader, "s")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, keys.calls)
}

func TestAuthWithBadApiSecret(t *testing.T) {
	app := newAuthApp(&stubKeys{err: errors.New("invalid")})

	req := httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
	req.Header.Set(ApiKeyHeader, "k")
	req.Header.Set(ApiSecretHeader, "bad")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthWithBearerAndCookie(t *testing.T) {
	app := newAuthApp(&stubKeys{})
	token, err := utils.GenerateToken("secret", "bob", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
	req.Header.Set(fiber.HeaderCookie, "fq_session="+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer not-a-token")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMissingCredentials(t *testing.T) {
	app := newAuthApp(&stubKeys{})
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/whoami", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

type failingBeginner struct{ calls int }

func (b *failingBeginner) BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error) {
	b.calls++
	return nil, errors.New("db down")
}

func TestTransactionSkipsReads(t *testing.T) {
	db := &failingBeginner{}
	app := fiber.New()
	app.Use(Transaction(db))
	app.Get("/r", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Put("/r", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/r", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, db.calls)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodPut, "/r", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, 1, db.calls)
}
