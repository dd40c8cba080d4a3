package middleware

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/feedqueue-api/configs"
	"github.com/maheshrc27/feedqueue-api/internal/service"
	"github.com/maheshrc27/feedqueue-api/pkg/utils"
)

const (
	ApiKeyHeader    = "X-FeedQueue-Api-Key"
	ApiSecretHeader = "X-FeedQueue-Api-Secret"

	// UsernameKey is the fiber.Ctx local holding the authenticated username.
	UsernameKey = "username"
)

type AuthMiddleware struct {
	s   service.ApiKeyService
	cfg config.Config
}

func NewAuthMiddleware(cfg config.Config, service service.ApiKeyService) *AuthMiddleware {
	return &AuthMiddleware{s: service, cfg: cfg}
}

// AuthMiddleware accepts, in order: an API key and secret pair, a bearer
// token, or the session cookie.
func (m *AuthMiddleware) AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := c.Get(ApiKeyHeader)
		apiSecret := c.Get(ApiSecretHeader)
		bearer := bearerToken(c.Get(fiber.HeaderAuthorization))
		cookie := ""
		if m.cfg.CookieName != "" {
			cookie = c.Cookies(m.cfg.CookieName)
		}

		switch {
		case apiKey != "" || apiSecret != "":
			username, err := m.s.Authenticate(c.UserContext(), apiKey, apiSecret)
			if err != nil {
				slog.Info(err.Error(), "api_key", apiKey)
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid API key or secret",
				})
			}
			c.Locals(UsernameKey, username)
		case bearer != "":
			claims, err := utils.ValidateToken(m.cfg.SecretKey, bearer)
			if err != nil {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid or expired token",
				})
			}
			c.Locals(UsernameKey, claims.Username)
		case cookie != "":
			claims, err := utils.ValidateToken(m.cfg.SecretKey, cookie)
			if err != nil {
				c.Cookie(&fiber.Cookie{
					Name:   m.cfg.CookieName,
					Value:  "",
					Path:   "/",
					MaxAge: -1,
				})
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid or expired token",
				})
			}
			c.Locals(UsernameKey, claims.Username)
		default:
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing credentials",
			})
		}
		return c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
