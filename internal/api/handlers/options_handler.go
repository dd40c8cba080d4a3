package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/feedqueue-api/internal/models"
)

func (h *QueueHandler) exportConfig(c *fiber.Ctx) (*models.ExportConfig, error) {
	id, err := h.queueID(c)
	if err != nil {
		return nil, err
	}
	queue, err := h.Queues.FindByID(c.UserContext(), CurrentUser(c), id)
	if err != nil {
		return nil, err
	}
	return queue.ExportConfig, nil
}

func (h *QueueHandler) GetExportOptions(c *fiber.Ctx) error {
	cfg, err := h.exportConfig(c)
	if err != nil {
		return err
	}
	return c.JSON(cfg)
}

func (h *QueueHandler) GetAtomConfig(c *fiber.Ctx) error {
	cfg, err := h.exportConfig(c)
	if err != nil {
		return err
	}
	if cfg == nil {
		return c.JSON(nil)
	}
	return c.JSON(cfg.AtomConfig)
}

func (h *QueueHandler) GetRSSConfig(c *fiber.Ctx) error {
	cfg, err := h.exportConfig(c)
	if err != nil {
		return err
	}
	if cfg == nil {
		return c.JSON(nil)
	}
	return c.JSON(cfg.RSSConfig)
}

func (h *QueueHandler) UpdateExportOptions(isPatch bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var cfg models.ExportConfig
		if err := h.decode(c, &cfg); err != nil {
			return err
		}
		return h.mutateQueue(c, "queue.update.options", func(ctx context.Context, username string, id int64) error {
			return h.Queues.UpdateExportOptions(ctx, username, id, &cfg, isPatch)
		})
	}
}

func (h *QueueHandler) DeleteExportOptions(c *fiber.Ctx) error {
	return h.mutateQueue(c, "queue.clear.options", h.Queues.ClearExportOptions)
}

func (h *QueueHandler) UpdateAtomConfig(isPatch bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var cfg models.Atom10Config
		if err := h.decode(c, &cfg); err != nil {
			return err
		}
		return h.mutateQueue(c, "queue.update.atomConfig", func(ctx context.Context, username string, id int64) error {
			return h.Queues.UpdateAtomConfig(ctx, username, id, &cfg, isPatch)
		})
	}
}

func (h *QueueHandler) DeleteAtomConfig(c *fiber.Ctx) error {
	return h.mutateQueue(c, "queue.clear.atomConfig", h.Queues.ClearAtomConfig)
}

func (h *QueueHandler) UpdateRSSConfig(isPatch bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var cfg models.RSS20Config
		if err := h.decode(c, &cfg); err != nil {
			return err
		}
		return h.mutateQueue(c, "queue.update.rssConfig", func(ctx context.Context, username string, id int64) error {
			return h.Queues.UpdateRSSConfig(ctx, username, id, &cfg, isPatch)
		})
	}
}

func (h *QueueHandler) DeleteRSSConfig(c *fiber.Ctx) error {
	return h.mutateQueue(c, "queue.clear.rssConfig", h.Queues.ClearRSSConfig)
}

// mutateQueue applies update to the queue named in the path, redeploys it
// and answers with the queue and the deploy outcome.
func (h *QueueHandler) mutateQueue(c *fiber.Ctx, op string, update func(ctx context.Context, username string, id int64) error) error {
	start := time.Now()
	username := CurrentUser(c)
	id, err := h.queueID(c)
	if err != nil {
		return err
	}
	if err := update(c.UserContext(), username, id); err != nil {
		return err
	}
	results, err := h.redeploy(c, id)
	if err != nil {
		return err
	}
	h.audit(c, op, start, "queue_id", id)
	return h.sendQueue(c, fiber.StatusOK, username, id, results)
}
