package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/feedqueue-api/internal/api/middleware"
	"github.com/maheshrc27/feedqueue-api/internal/codec"
	"github.com/maheshrc27/feedqueue-api/internal/etag"
	"github.com/maheshrc27/feedqueue-api/internal/models"
	"github.com/maheshrc27/feedqueue-api/internal/paginate"
	"github.com/maheshrc27/feedqueue-api/internal/service"
	"github.com/maheshrc27/feedqueue-api/internal/transfer"
	"github.com/maheshrc27/feedqueue-api/internal/validation"
)

// Collaborators are shared by the queue and post handlers.
type Collaborators struct {
	Queues     service.QueueDefinitionService
	Posts      service.StagingPostService
	Publisher  service.PostPublisher
	ETagger    *etag.ETagger
	Validator  *validation.Validator
	Codec      *codec.Codec
	Negotiator *Negotiator
	Audit      *service.AppLogService
}

// CurrentUser returns the username set by the auth middleware.
func CurrentUser(c *fiber.Ctx) string {
	username, _ := c.Locals(middleware.UsernameKey).(string)
	return username
}

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return int64(id), nil
}

func pageParams(c *fiber.Ctx) (offset, limit *int, err error) {
	offset, limit, err = paginate.ParseParams(c.Query("offset"), c.Query("limit"))
	if err != nil {
		return nil, nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return offset, limit, nil
}

// notModified sets the ETag for entity and reports whether the caller's
// If-None-Match already matches it, in which case a bare 304 is prepared.
func (h *Collaborators) notModified(c *fiber.Ctx, entity any) (bool, error) {
	tag, err := h.ETagger.Compute(entity)
	if err != nil {
		return false, err
	}
	c.Set(fiber.HeaderETag, tag)
	if etag.Matches(c.Get(fiber.HeaderIfNoneMatch), tag) {
		c.Status(fiber.StatusNotModified)
		return true, nil
	}
	return false, nil
}

func (h *Collaborators) decode(c *fiber.Ctx, v any) error {
	if err := h.Codec.Unmarshal(c.Body(), v); err != nil {
		return malformedBody()
	}
	return nil
}

// badRequest answers 400 with an empty body.
func badRequest(c *fiber.Ctx) error {
	c.Status(fiber.StatusBadRequest)
	return nil
}

func (h *Collaborators) queueDTO(queue *models.Queue) (*transfer.QueueDTO, error) {
	dto := transfer.NewQueueDTO(queue, h.Codec)
	if err := h.Validator.Validate(validation.SchemaQueue, dto); err != nil {
		return nil, err
	}
	return dto, nil
}

func (h *Collaborators) postDTO(post *models.StagingPost) (*transfer.PostDTO, error) {
	dto := transfer.NewPostDTO(post, h.Codec)
	if err := h.Validator.Validate(validation.SchemaPost, dto); err != nil {
		return nil, err
	}
	return dto, nil
}

func (h *Collaborators) deployResponses(results map[string]*models.PubResult) (map[string]*transfer.PubResultDTO, error) {
	dto := transfer.NewDeployResponses(results, h.Codec)
	if err := h.Validator.Validate(validation.SchemaDeployResponses, dto); err != nil {
		return nil, err
	}
	return dto, nil
}

// sendQueue writes the queue together with the outcome of the deploy that
// the mutation triggered.
func (h *Collaborators) sendQueue(c *fiber.Ctx, status int, username string, queueID int64, results map[string]*models.PubResult) error {
	queue, err := h.Queues.FindByID(c.UserContext(), username, queueID)
	if err != nil {
		return err
	}
	dto, err := h.queueDTO(queue)
	if err != nil {
		return err
	}
	deployed, err := h.deployResponses(results)
	if err != nil {
		return err
	}
	return c.Status(status).JSON(&transfer.QueueConfigResponse{QueueDTO: dto, DeployResponses: deployed})
}

func (h *Collaborators) sendPost(c *fiber.Ctx, status int, post *models.StagingPost, results map[string]*models.PubResult) error {
	dto, err := h.postDTO(post)
	if err != nil {
		return err
	}
	deployed, err := h.deployResponses(results)
	if err != nil {
		return err
	}
	return c.Status(status).JSON(&transfer.PostConfigResponse{PostDTO: dto, DeployResponses: deployed})
}

func (h *Collaborators) audit(c *fiber.Ctx, op string, start time.Time, attrs ...any) {
	if h.Audit != nil {
		h.Audit.LogOperation(c.UserContext(), CurrentUser(c), op, start, attrs...)
	}
}
