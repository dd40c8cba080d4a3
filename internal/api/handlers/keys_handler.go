package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/feedqueue-api/internal/service"
)

type ApiKeyHandler struct {
	s     service.ApiKeyService
	audit *service.AppLogService
}

func NewApiKeyHandler(service service.ApiKeyService, audit *service.AppLogService) *ApiKeyHandler {
	return &ApiKeyHandler{s: service, audit: audit}
}

// CreateApiKey answers the only response that ever carries the secret.
func (h *ApiKeyHandler) CreateApiKey(c *fiber.Ctx) error {
	start := time.Now()
	username := CurrentUser(c)

	created, err := h.s.Create(c.UserContext(), username)
	if err != nil {
		return err
	}
	if h.audit != nil {
		h.audit.LogOperation(c.UserContext(), username, "apikey.create", start, "key_id", created.ID)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *ApiKeyHandler) ListKeys(c *fiber.Ctx) error {
	keys, err := h.s.List(c.UserContext(), CurrentUser(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(keys)
}

func (h *ApiKeyHandler) RemoveAPIKey(c *fiber.Ctx) error {
	start := time.Now()
	username := CurrentUser(c)
	keyID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.s.RemoveAPIKey(c.UserContext(), username, keyID); err != nil {
		return err
	}
	if h.audit != nil {
		h.audit.LogOperation(c.UserContext(), username, "apikey.remove", start, "key_id", keyID)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
