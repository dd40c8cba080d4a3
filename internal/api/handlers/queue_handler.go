package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/feedqueue-api/internal/models"
	"github.com/maheshrc27/feedqueue-api/internal/paginate"
	"github.com/maheshrc27/feedqueue-api/internal/transfer"
	"github.com/maheshrc27/feedqueue-api/internal/validation"
)

type QueueHandler struct {
	*Collaborators
}

func NewQueueHandler(c *Collaborators) *QueueHandler {
	return &QueueHandler{Collaborators: c}
}

// queueID resolves the :ident path parameter of the caller's queue.
func (h *QueueHandler) queueID(c *fiber.Ctx) (int64, error) {
	ident := c.Params("ident")
	if ident == "" {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid ident")
	}
	return h.Queues.ResolveQueueID(c.UserContext(), CurrentUser(c), ident)
}

// redeploy republishes the queue after an attribute change.
func (h *QueueHandler) redeploy(c *fiber.Ctx, queueID int64) (map[string]*models.PubResult, error) {
	return h.Publisher.PublishFeed(c.UserContext(), CurrentUser(c), queueID, nil)
}

func (h *QueueHandler) ListQueues(c *fiber.Ctx) error {
	offset, limit, err := pageParams(c)
	if err != nil {
		return err
	}
	queues, err := h.Queues.FindAll(c.UserContext(), CurrentUser(c))
	if err != nil {
		return err
	}
	page := paginate.Slice(queues, offset, limit)
	if done, err := h.notModified(c, page); done || err != nil {
		return err
	}

	dtos := make([]*transfer.QueueDTO, 0, len(page))
	for _, q := range page {
		dto, err := h.queueDTO(q)
		if err != nil {
			return err
		}
		dtos = append(dtos, dto)
	}
	return c.JSON(dtos)
}

func (h *QueueHandler) GetQueue(c *fiber.Ctx) error {
	id, err := h.queueID(c)
	if err != nil {
		return err
	}
	queue, err := h.Queues.FindByID(c.UserContext(), CurrentUser(c), id)
	if err != nil {
		return err
	}
	if done, err := h.notModified(c, queue); done || err != nil {
		return err
	}
	dto, err := h.queueDTO(queue)
	if err != nil {
		return err
	}
	return c.JSON(dto)
}

// CreateQueue creates the queue and deploys its (empty) feed right away.
func (h *QueueHandler) CreateQueue(c *fiber.Ctx) error {
	start := time.Now()
	username := CurrentUser(c)

	var req transfer.QueueConfigRequest
	if err := h.decode(c, &req); err != nil {
		return err
	}
	if err := req.Validate(false); err != nil {
		return invalidRequest(err)
	}

	id, err := h.Queues.CreateQueue(c.UserContext(), username, &req)
	if err != nil {
		return err
	}
	results, err := h.redeploy(c, id)
	if err != nil {
		return err
	}
	h.audit(c, "queue.create", start, "queue_id", id, "ident", req.Ident)
	return h.sendQueue(c, fiber.StatusCreated, username, id, results)
}

func (h *QueueHandler) UpdateQueue(isPatch bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		id, err := h.queueID(c)
		if err != nil {
			return err
		}

		var req transfer.QueueConfigRequest
		if err := h.decode(c, &req); err != nil {
			return err
		}
		if err := req.Validate(isPatch); err != nil {
			return invalidRequest(err)
		}

		if err := h.Queues.UpdateQueue(c.UserContext(), CurrentUser(c), id, &req, isPatch); err != nil {
			return err
		}
		results, err := h.redeploy(c, id)
		if err != nil {
			return err
		}
		h.audit(c, "queue.update", start, "queue_id", id, "patch", isPatch)
		return h.sendQueue(c, fiber.StatusOK, CurrentUser(c), id, results)
	}
}

// DeleteQueue takes the feed down before removing the queue and its posts.
func (h *QueueHandler) DeleteQueue(c *fiber.Ctx) error {
	start := time.Now()
	username := CurrentUser(c)
	ident := c.Params("ident")
	id, err := h.queueID(c)
	if err != nil {
		return err
	}

	results, err := h.Publisher.UnpublishFeed(c.UserContext(), username, id)
	if err != nil {
		return err
	}
	if err := h.Queues.DeleteByID(c.UserContext(), username, id); err != nil {
		return err
	}
	deployed, err := h.deployResponses(results)
	if err != nil {
		return err
	}
	h.audit(c, "queue.delete", start, "queue_id", id)
	return c.JSON(&transfer.DeleteResponse{
		Message:         fmt.Sprintf("Deleted queue %s", ident),
		DeployResponses: deployed,
	})
}

// DeleteQueuePosts removes every post of the queue without redeploying.
func (h *QueueHandler) DeleteQueuePosts(c *fiber.Ctx) error {
	start := time.Now()
	ident := c.Params("ident")
	id, err := h.queueID(c)
	if err != nil {
		return err
	}
	n, err := h.Posts.DeleteByQueueID(c.UserContext(), CurrentUser(c), id)
	if err != nil {
		return err
	}
	h.audit(c, "queue.posts.delete", start, "queue_id", id, "count", n)
	return c.JSON(&transfer.DeleteResponse{
		Message: fmt.Sprintf("Deleted %d posts from queue %s", n, ident),
	})
}

func (h *QueueHandler) CreatePost(c *fiber.Ctx) error {
	start := time.Now()
	username := CurrentUser(c)

	var req transfer.PostConfigRequest
	if err := h.decode(c, &req); err != nil {
		return err
	}
	if err := req.Validate(false); err != nil {
		return invalidRequest(err)
	}
	post, err := req.ToStagingPost(h.Codec)
	if err != nil {
		return badRequest(c)
	}

	queueID, err := h.queueID(c)
	if err != nil {
		return err
	}
	id, err := h.Posts.CreatePost(c.UserContext(), username, queueID, post)
	if err != nil {
		return err
	}
	created, err := h.Posts.FindByID(c.UserContext(), username, id)
	if err != nil {
		return err
	}
	h.audit(c, "post.create", start, "queue_id", queueID, "post_id", id)
	return h.sendPost(c, fiber.StatusCreated, created, nil)
}

func (h *QueueHandler) ListPosts(c *fiber.Ctx) error {
	offset, limit, err := pageParams(c)
	if err != nil {
		return err
	}
	id, err := h.queueID(c)
	if err != nil {
		return err
	}
	posts, err := h.Posts.FindByQueueID(c.UserContext(), CurrentUser(c), id)
	if err != nil {
		return err
	}
	page := paginate.Slice(posts, offset, limit)
	if done, err := h.notModified(c, page); done || err != nil {
		return err
	}

	dtos := make([]*transfer.PostDTO, 0, len(page))
	for _, p := range page {
		dto, err := h.postDTO(p)
		if err != nil {
			return err
		}
		dtos = append(dtos, dto)
	}
	return c.JSON(dtos)
}

// Queue attributes exposed as scalar sub-resources.
var queueAttributes = map[string]models.QueueAttribute{
	"title":       models.QueueTitle,
	"description": models.QueueDescription,
	"generator":   models.QueueGenerator,
	"transport":   models.QueueTransport,
	"copyright":   models.QueueCopyright,
	"language":    models.QueueLanguage,
	"imgsrc":      models.QueueImgSrc,
}

func queueAttribute(q *models.Queue, attr models.QueueAttribute) *string {
	switch attr {
	case models.QueueIdent:
		return &q.Ident
	case models.QueueTitle:
		return q.Title
	case models.QueueDescription:
		return q.Description
	case models.QueueGenerator:
		return q.Generator
	case models.QueueTransport:
		return &q.TransportIdent
	case models.QueueCopyright:
		return q.Copyright
	case models.QueueLanguage:
		return q.Language
	case models.QueueImgSrc:
		return q.QueueImgSrc
	}
	return nil
}

func (h *QueueHandler) GetAttribute(attr models.QueueAttribute) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := h.Negotiator.Check(c); err != nil {
			return err
		}
		id, err := h.queueID(c)
		if err != nil {
			return err
		}
		queue, err := h.Queues.FindByID(c.UserContext(), CurrentUser(c), id)
		if err != nil {
			return err
		}
		return h.Negotiator.SendString(c, queueAttribute(queue, attr))
	}
}

func (h *QueueHandler) UpdateAttribute(attr models.QueueAttribute, isPatch bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		value, err := h.Negotiator.ReadScalar(c)
		if err != nil {
			return err
		}
		if attr == models.QueueIdent && !(isPatch && (value == nil || *value == "")) {
			ident := ""
			if value != nil {
				ident = *value
			}
			if err := transfer.ValidateIdent(ident); err != nil {
				return invalidRequest(err)
			}
		}

		return h.mutateQueue(c, "queue.update."+string(attr), func(ctx context.Context, username string, id int64) error {
			return h.Queues.UpdateQueueAttribute(ctx, username, id, attr, value, isPatch)
		})
	}
}

func (h *QueueHandler) DeleteAttribute(attr models.QueueAttribute) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return h.mutateQueue(c, "queue.clear."+string(attr), func(ctx context.Context, username string, id int64) error {
			return h.Queues.ClearQueueAttribute(ctx, username, id, attr)
		})
	}
}

func (h *QueueHandler) GetAuthRequirement(c *fiber.Ctx) error {
	if err := h.Negotiator.Check(c); err != nil {
		return err
	}
	id, err := h.queueID(c)
	if err != nil {
		return err
	}
	queue, err := h.Queues.FindByID(c.UserContext(), CurrentUser(c), id)
	if err != nil {
		return err
	}
	return h.Negotiator.SendScalar(c, queue.IsAuthenticated)
}

func (h *QueueHandler) UpdateAuthRequirement(c *fiber.Ctx) error {
	required, err := h.Negotiator.ReadBool(c)
	if err != nil {
		return err
	}
	return h.setAuthRequirement(c, required)
}

func (h *QueueHandler) DeleteAuthRequirement(c *fiber.Ctx) error {
	return h.setAuthRequirement(c, false)
}

func (h *QueueHandler) setAuthRequirement(c *fiber.Ctx, required bool) error {
	return h.mutateQueue(c, "queue.update.auth", func(ctx context.Context, username string, id int64) error {
		return h.Queues.UpdateQueueAuthRequirement(ctx, username, id, required)
	})
}

func (h *QueueHandler) GetLastDeployed(c *fiber.Ctx) error {
	if err := h.Negotiator.Check(c); err != nil {
		return err
	}
	id, err := h.queueID(c)
	if err != nil {
		return err
	}
	queue, err := h.Queues.FindByID(c.UserContext(), CurrentUser(c), id)
	if err != nil {
		return err
	}
	return h.Negotiator.SendString(c, h.Codec.FormatTimePtr(queue.LastDeployed))
}

// GetStatus summarizes the queue's posts by status.
func (h *QueueHandler) GetStatus(c *fiber.Ctx) error {
	username := CurrentUser(c)
	id, err := h.queueID(c)
	if err != nil {
		return err
	}
	queue, err := h.Queues.FindByID(c.UserContext(), username, id)
	if err != nil {
		return err
	}
	posts, err := h.Posts.FindByQueueID(c.UserContext(), username, id)
	if err != nil {
		return err
	}

	counts := map[string]int{
		models.StatusPublished:      0,
		string(models.PubPending):   0,
		string(models.DepubPending): 0,
		models.StatusUnpublished:    0,
	}
	for _, p := range posts {
		counts[p.StatusName()]++
	}
	resp := &transfer.QueueStatusResponse{
		Ident:        queue.Ident,
		LastDeployed: h.Codec.FormatTimePtr(queue.LastDeployed),
		PostCounts:   counts,
	}
	if done, err := h.notModified(c, resp); done || err != nil {
		return err
	}
	if err := h.Validator.Validate(validation.SchemaQueueStatus, resp); err != nil {
		return err
	}
	return c.JSON(resp)
}

// UpdateStatus applies a bulk status to the queue's posts and deploys once
// with every affected post.
func (h *QueueHandler) UpdateStatus(c *fiber.Ctx) error {
	start := time.Now()
	username := CurrentUser(c)
	ctx := c.UserContext()

	var req transfer.QueueStatusUpdateRequest
	if err := h.decode(c, &req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return invalidRequest(err)
	}
	id, err := h.queueID(c)
	if err != nil {
		return err
	}

	var affected []*models.StagingPost
	switch req.NewStatus {
	case models.QueueDeployPending:
		affected, err = h.Posts.FindPendingByQueueID(ctx, username, id)
	case models.QueuePubAll, models.QueueDepubAll:
		status := models.PubPending
		if req.NewStatus == models.QueueDepubAll {
			status = models.DepubPending
		}
		if _, err = h.Posts.UpdateQueuePubStatus(ctx, username, id, status); err == nil {
			affected, err = h.Posts.FindByQueueID(ctx, username, id)
		}
	}
	if err != nil {
		return err
	}

	results, err := h.Publisher.PublishFeed(ctx, username, id, affected)
	if err != nil {
		return err
	}
	h.audit(c, "queue.status", start, "queue_id", id, "status", string(req.NewStatus), "count", len(affected))
	return h.sendQueue(c, fiber.StatusOK, username, id, results)
}
