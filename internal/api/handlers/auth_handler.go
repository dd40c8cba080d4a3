package handlers

import (
	"crypto/subtle"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/feedqueue-api/configs"
	"github.com/maheshrc27/feedqueue-api/internal/service"
	"github.com/maheshrc27/feedqueue-api/pkg/utils"
)

const (
	stateCookie     = "feedqueue_oauth_state"
	sessionDuration = 24 * time.Hour
)

type AuthHandler struct {
	s   service.AuthService
	cfg config.Config
}

func NewAuthHandler(cfg config.Config, service service.AuthService) *AuthHandler {
	return &AuthHandler{s: service, cfg: cfg}
}

// Login redirects to Google's consent screen with a fresh state value that
// the callback checks against a short-lived cookie.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	state, err := utils.GenerateRandomKey(16)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     stateCookie,
		Value:    state,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/login",
		Expires:  time.Now().Add(10 * time.Minute),
	})
	return c.Redirect(h.s.LoginURL(state), fiber.StatusTemporaryRedirect)
}

func (h *AuthHandler) LoginCallbackHandler(c *fiber.Ctx) error {
	state := c.Query("state")
	expected := c.Cookies(stateCookie)
	if state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expected)) != 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid login state",
		})
	}
	c.ClearCookie(stateCookie)

	username, err := h.s.LoginCallback(c.UserContext(), c.Query("code"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	token, err := utils.GenerateToken(h.cfg.SecretKey, username, sessionDuration)
	if err != nil {
		slog.Error(err.Error(), "username", username)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		HTTPOnly: true,
		Secure:   false,
		SameSite: fiber.CookieSameSiteNoneMode,
		Path:     "/",
		Expires:  time.Now().Add(sessionDuration),
	})

	return c.Redirect(h.cfg.FrontendURL, fiber.StatusTemporaryRedirect)
}
