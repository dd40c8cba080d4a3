package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/feedqueue-api/internal/models"
	"github.com/maheshrc27/feedqueue-api/internal/paginate"
	"github.com/maheshrc27/feedqueue-api/internal/service"
	"github.com/maheshrc27/feedqueue-api/internal/transfer"
)

type PostHandler struct {
	*Collaborators
}

func NewPostHandler(c *Collaborators) *PostHandler {
	return &PostHandler{Collaborators: c}
}

func (h *PostHandler) post(c *fiber.Ctx) (*models.StagingPost, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	return h.Posts.FindByID(c.UserContext(), CurrentUser(c), id)
}

// redeployIfPublished reloads the post and republishes its queue when the
// post is live, so the feed carries the edit.
func (h *PostHandler) redeployIfPublished(c *fiber.Ctx, id int64) (*models.StagingPost, map[string]*models.PubResult, error) {
	username := CurrentUser(c)
	post, err := h.Posts.FindByID(c.UserContext(), username, id)
	if err != nil {
		return nil, nil, err
	}
	if !post.IsPublished() {
		return post, nil, nil
	}
	results, err := h.Publisher.PublishFeed(c.UserContext(), username, post.QueueID, []*models.StagingPost{post})
	if err != nil {
		return nil, nil, err
	}
	return post, results, nil
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	post, err := h.post(c)
	if err != nil {
		return err
	}
	if done, err := h.notModified(c, post); done || err != nil {
		return err
	}
	dto, err := h.postDTO(post)
	if err != nil {
		return err
	}
	return c.JSON(dto)
}

func (h *PostHandler) UpdatePost(isPatch bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}

		var req transfer.PostConfigRequest
		if err := h.decode(c, &req); err != nil {
			return err
		}
		if err := req.Validate(isPatch); err != nil {
			return invalidRequest(err)
		}
		update, err := req.ToStagingPost(h.Codec)
		if err != nil {
			return badRequest(c)
		}

		if err := h.Posts.UpdatePost(c.UserContext(), CurrentUser(c), id, update, isPatch); err != nil {
			return err
		}
		post, results, err := h.redeployIfPublished(c, id)
		if err != nil {
			return err
		}
		h.audit(c, "post.update", start, "post_id", id, "patch", isPatch)
		return h.sendPost(c, fiber.StatusOK, post, results)
	}
}

// DeletePost takes a live post out of the feed before deleting it.
func (h *PostHandler) DeletePost(c *fiber.Ctx) error {
	start := time.Now()
	username := CurrentUser(c)
	ctx := c.UserContext()
	post, err := h.post(c)
	if err != nil {
		return err
	}

	var results map[string]*models.PubResult
	if post.IsPublished() {
		if err := h.Posts.UpdatePostPubStatus(ctx, username, post.ID, models.DepubPending); err != nil {
			return err
		}
		post.PostPubStatus = models.DepubPending
		results, err = h.Publisher.PublishFeed(ctx, username, post.QueueID, []*models.StagingPost{post})
		if err != nil {
			return err
		}
	}
	if err := h.Posts.DeleteByID(ctx, username, post.ID); err != nil {
		return err
	}

	deployed, err := h.deployResponses(results)
	if err != nil {
		return err
	}
	h.audit(c, "post.delete", start, "post_id", post.ID, "queue_id", post.QueueID)
	return c.JSON(&transfer.DeleteResponse{
		Message:         fmt.Sprintf("Deleted post Id %d", post.ID),
		DeployResponses: deployed,
	})
}

// GetJSONField serves a structured post field as JSON.
func GetJSONField[T any](h *PostHandler, get func(*models.StagingPost) T) fiber.Handler {
	return func(c *fiber.Ctx) error {
		post, err := h.post(c)
		if err != nil {
			return err
		}
		return c.JSON(get(post))
	}
}

// UpdateJSONField decodes a structured post field, validates it and hands
// it to the post service.
func UpdateJSONField[T any](h *PostHandler, field models.PostField, validate func(T) error, isPatch bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var value T
		if len(c.Body()) > 0 {
			if err := h.decode(c, &value); err != nil {
				return err
			}
		}
		if validate != nil {
			if err := validate(value); err != nil {
				return invalidRequest(err)
			}
		}
		return h.updateField(c, field, value, isPatch)
	}
}

func (h *PostHandler) updateField(c *fiber.Ctx, field models.PostField, value any, isPatch bool) error {
	start := time.Now()
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Posts.UpdatePostField(c.UserContext(), CurrentUser(c), id, field, value, isPatch); err != nil {
		return err
	}
	post, results, err := h.redeployIfPublished(c, id)
	if err != nil {
		return err
	}
	h.audit(c, "post.update."+string(field), start, "post_id", id, "patch", isPatch)
	return h.sendPost(c, fiber.StatusOK, post, results)
}

func (h *PostHandler) ClearField(field models.PostField) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		if err := h.Posts.ClearPostField(c.UserContext(), CurrentUser(c), id, field); err != nil {
			return err
		}
		post, results, err := h.redeployIfPublished(c, id)
		if err != nil {
			return err
		}
		h.audit(c, "post.clear."+string(field), start, "post_id", id)
		return h.sendPost(c, fiber.StatusOK, post, results)
	}
}

// GetStringField serves a plain string post field with content negotiation.
func (h *PostHandler) GetStringField(get func(*models.StagingPost) *string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := h.Negotiator.Check(c); err != nil {
			return err
		}
		post, err := h.post(c)
		if err != nil {
			return err
		}
		return h.Negotiator.SendString(c, get(post))
	}
}

func (h *PostHandler) UpdateStringField(field models.PostField, validate func(*string) error, isPatch bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		value, err := h.Negotiator.ReadScalar(c)
		if err != nil {
			return err
		}
		if validate != nil && value != nil && *value != "" {
			if err := validate(value); err != nil {
				return invalidRequest(err)
			}
		}
		return h.updateField(c, field, value, isPatch)
	}
}

// GetTimestampField serves a timestamp post field as a scalar.
func (h *PostHandler) GetTimestampField(get func(*models.StagingPost) *time.Time) fiber.Handler {
	return h.GetStringField(func(p *models.StagingPost) *string {
		return h.Codec.FormatTimePtr(get(p))
	})
}

// UpdateExpiration answers a bare 400 for an unparseable timestamp without
// touching the post.
func (h *PostHandler) UpdateExpiration(isPatch bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := h.Negotiator.ReadScalar(c)
		if err != nil {
			return err
		}
		var value *time.Time
		if raw != nil && *raw != "" {
			parsed, err := h.Codec.ParseTime(*raw)
			if err != nil {
				return badRequest(c)
			}
			value = &parsed
		}
		return h.updateField(c, models.ExpirationField, value, isPatch)
	}
}

func (h *PostHandler) GetCategories(c *fiber.Ctx) error {
	offset, limit, err := pageParams(c)
	if err != nil {
		return err
	}
	post, err := h.post(c)
	if err != nil {
		return err
	}
	return c.JSON(paginate.Slice(post.PostCategories, offset, limit))
}

// GetQueue answers the ident of the queue holding the post.
func (h *PostHandler) GetQueue(c *fiber.Ctx) error {
	if err := h.Negotiator.Check(c); err != nil {
		return err
	}
	post, err := h.post(c)
	if err != nil {
		return err
	}
	queue, err := h.Queues.FindByID(c.UserContext(), CurrentUser(c), post.QueueID)
	if err != nil {
		return err
	}
	return h.Negotiator.SendString(c, &queue.Ident)
}

// UpdateQueue moves the post to the queue named in the body. A live post is
// removed from the old feed and added to the new one.
func (h *PostHandler) UpdateQueue(c *fiber.Ctx) error {
	start := time.Now()
	username := CurrentUser(c)
	ctx := c.UserContext()

	ident, err := h.Negotiator.ReadScalar(c)
	if err != nil {
		return err
	}
	if ident == nil || *ident == "" {
		return invalidRequest(transfer.ValidateIdent(""))
	}
	post, err := h.post(c)
	if err != nil {
		return err
	}
	target, err := h.Queues.ResolveQueueID(ctx, username, *ident)
	if err != nil {
		return err
	}
	if target == post.QueueID {
		return h.sendPost(c, fiber.StatusOK, post, nil)
	}

	if err := h.Posts.UpdatePostQueue(ctx, username, post.ID, target); err != nil {
		return err
	}
	if post.IsPublished() {
		if _, err := h.Publisher.PublishFeed(ctx, username, post.QueueID, nil); err != nil {
			return err
		}
	}
	moved, results, err := h.redeployIfPublished(c, post.ID)
	if err != nil {
		return err
	}
	h.audit(c, "post.move", start, "post_id", post.ID, "from", post.QueueID, "to", target)
	return h.sendPost(c, fiber.StatusOK, moved, results)
}

func (h *PostHandler) GetStatus(c *fiber.Ctx) error {
	if err := h.Negotiator.Check(c); err != nil {
		return err
	}
	post, err := h.post(c)
	if err != nil {
		return err
	}
	return h.Negotiator.SendScalar(c, post.StatusName())
}

// UpdateStatus runs the requested status through the transition guard,
// records it and deploys the post when the guard asks for it.
func (h *PostHandler) UpdateStatus(c *fiber.Ctx) error {
	start := time.Now()
	username := CurrentUser(c)
	ctx := c.UserContext()

	var req transfer.PostStatusUpdateRequest
	if err := h.decode(c, &req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return invalidRequest(err)
	}

	post, err := h.post(c)
	if err != nil {
		return err
	}
	autoDeploy, err := h.Queues.IsAutoDeploy(ctx, username, post.QueueID)
	if err != nil {
		return err
	}
	transition, err := service.EvaluateTransition(autoDeploy, post.IsPublished(), req.NewStatus)
	if err != nil {
		return err
	}

	status := models.PubStatusNone
	if req.NewStatus != nil {
		status = *req.NewStatus
	}
	if err := h.Posts.UpdatePostPubStatus(ctx, username, post.ID, status); err != nil {
		return err
	}
	updated, err := h.Posts.FindByID(ctx, username, post.ID)
	if err != nil {
		return err
	}

	var results map[string]*models.PubResult
	if transition.Redeploy {
		results, err = h.Publisher.PublishFeed(ctx, username, updated.QueueID, []*models.StagingPost{updated})
		if err != nil {
			return err
		}
		if updated, err = h.Posts.FindByID(ctx, username, post.ID); err != nil {
			return err
		}
	}
	h.audit(c, "post.status", start, "post_id", post.ID, "status", string(status), "redeploy", transition.Redeploy)
	return h.sendPost(c, fiber.StatusOK, updated, results)
}
