package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"github.com/maheshrc27/feedqueue-api/internal/models"
	"github.com/maheshrc27/feedqueue-api/internal/repository"
	"github.com/maheshrc27/feedqueue-api/internal/transfer"
)

type QueueDefinitionService interface {
	FindAll(ctx context.Context, username string) ([]*models.Queue, error)
	FindByID(ctx context.Context, username string, id int64) (*models.Queue, error)
	ResolveQueueID(ctx context.Context, username, ident string) (int64, error)
	CreateQueue(ctx context.Context, username string, req *transfer.QueueConfigRequest) (int64, error)
	UpdateQueue(ctx context.Context, username string, id int64, req *transfer.QueueConfigRequest, isPatch bool) error
	UpdateQueueAttribute(ctx context.Context, username string, id int64, attr models.QueueAttribute, value *string, isPatch bool) error
	ClearQueueAttribute(ctx context.Context, username string, id int64, attr models.QueueAttribute) error
	UpdateQueueAuthRequirement(ctx context.Context, username string, id int64, required bool) error
	UpdateExportOptions(ctx context.Context, username string, id int64, cfg *models.ExportConfig, isPatch bool) error
	ClearExportOptions(ctx context.Context, username string, id int64) error
	UpdateAtomConfig(ctx context.Context, username string, id int64, cfg *models.Atom10Config, isPatch bool) error
	ClearAtomConfig(ctx context.Context, username string, id int64) error
	UpdateRSSConfig(ctx context.Context, username string, id int64, cfg *models.RSS20Config, isPatch bool) error
	ClearRSSConfig(ctx context.Context, username string, id int64) error
	IsAutoDeploy(ctx context.Context, username string, id int64) (bool, error)
	// UpdateLastDeployed stamps a finished deploy and the transport ident it wrote under.
	UpdateLastDeployed(ctx context.Context, username string, id int64, at time.Time, transport string) error
	DeleteByID(ctx context.Context, username string, id int64) error
}

type queueDefinitionService struct {
	q repository.QueueRepository
	p repository.StagingPostRepository
}

func NewQueueDefinitionService(q repository.QueueRepository, p repository.StagingPostRepository) QueueDefinitionService {
	return &queueDefinitionService{
		q: q,
		p: p,
	}
}

func (s *queueDefinitionService) FindAll(ctx context.Context, username string) ([]*models.Queue, error) {
	queues, err := s.q.GetByUsername(ctx, username)
	if err != nil {
		return nil, accessErr("queues", "*", username, err)
	}
	return queues, nil
}

func (s *queueDefinitionService) FindByID(ctx context.Context, username string, id int64) (*models.Queue, error) {
	queue, err := s.q.GetByID(ctx, username, id)
	if err != nil {
		return nil, accessErr("queue", id, username, err)
	}
	return queue, nil
}

func (s *queueDefinitionService) ResolveQueueID(ctx context.Context, username, ident string) (int64, error) {
	queue, err := s.q.GetByIdent(ctx, username, ident)
	if err != nil {
		return 0, accessErr("queue", ident, username, err)
	}
	return queue.ID, nil
}

func (s *queueDefinitionService) CreateQueue(ctx context.Context, username string, req *transfer.QueueConfigRequest) (int64, error) {
	queue := &models.Queue{
		Ident:        req.Ident,
		Username:     username,
		ExportConfig: req.ExportConfig,
	}
	if err := applyQueueRequest(queue, req, false); err != nil {
		return 0, err
	}
	if queue.TransportIdent == "" {
		queue.TransportIdent = uuid.NewString()
	}

	id, err := s.q.Create(ctx, queue)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return 0, &DataConflictError{Resource: "queue", Ident: req.Ident, Err: err}
		}
		return 0, &DataUpdateError{Op: "create queue", Err: err}
	}
	slog.Info("queue created", "username", username, "queue_id", id, "ident", queue.Ident)
	return id, nil
}

// UpdateQueue applies a whole-queue body. PUT replaces every attribute,
// clearing what the body omits except the transport ident; PATCH only
// touches what the body carries.
func (s *queueDefinitionService) UpdateQueue(ctx context.Context, username string, id int64, req *transfer.QueueConfigRequest, isPatch bool) error {
	queue, err := s.FindByID(ctx, username, id)
	if err != nil {
		return err
	}
	if err := applyQueueRequest(queue, req, isPatch); err != nil {
		return err
	}
	if isPatch {
		queue.ExportConfig = mergeExportConfig(queue.ExportConfig, req.ExportConfig)
	} else {
		queue.ExportConfig = req.ExportConfig
	}
	if queue.TransportIdent == "" {
		queue.TransportIdent = uuid.NewString()
	}
	return updateErr("update queue", "queue", id, username, s.q.Update(ctx, queue))
}

func applyQueueRequest(queue *models.Queue, req *transfer.QueueConfigRequest, isPatch bool) error {
	if req.ImgSrc != nil && *req.ImgSrc != "" {
		if err := ValidateImageSource(*req.ImgSrc); err != nil {
			return err
		}
	}
	if req.Ident != "" {
		queue.Ident = req.Ident
	}
	set := func(dst **string, src *string) {
		if isPatch && (src == nil || *src == "") {
			return
		}
		*dst = emptyToNil(src)
	}
	set(&queue.Title, req.Title)
	set(&queue.Description, req.Description)
	set(&queue.Generator, req.Generator)
	set(&queue.Copyright, req.Copyright)
	set(&queue.Language, req.Language)
	set(&queue.QueueImgSrc, req.ImgSrc)
	// the transport ident is server-assigned; only an explicit value moves it
	if req.TransportIdent != nil && *req.TransportIdent != "" {
		queue.TransportIdent = *req.TransportIdent
	}
	if req.IsAuthenticated != nil {
		queue.IsAuthenticated = *req.IsAuthenticated
	} else if !isPatch {
		queue.IsAuthenticated = false
	}
	return nil
}

// UpdateQueueAttribute sets one string attribute. An empty value under PATCH
// leaves the attribute alone; under PUT it clears it.
func (s *queueDefinitionService) UpdateQueueAttribute(ctx context.Context, username string, id int64, attr models.QueueAttribute, value *string, isPatch bool) error {
	if isPatch && (value == nil || *value == "") {
		_, err := s.FindByID(ctx, username, id)
		return err
	}
	value = emptyToNil(value)
	switch attr {
	case models.QueueIdent:
		if value == nil {
			return invalid(ErrInvalidField, invalidFieldCode, "Queue ident must not be empty")
		}
	case models.QueueTransport:
		if value == nil {
			return invalid(ErrInvalidField, invalidFieldCode, "Queue transport ident cannot be cleared")
		}
	case models.QueueImgSrc:
		if value != nil {
			if err := ValidateImageSource(*value); err != nil {
				return err
			}
		}
	}
	err := s.q.UpdateAttribute(ctx, username, id, attr, value)
	return updateErr("update queue "+string(attr), "queue", id, username, err)
}

func (s *queueDefinitionService) ClearQueueAttribute(ctx context.Context, username string, id int64, attr models.QueueAttribute) error {
	return s.UpdateQueueAttribute(ctx, username, id, attr, nil, false)
}

func (s *queueDefinitionService) UpdateQueueAuthRequirement(ctx context.Context, username string, id int64, required bool) error {
	err := s.q.UpdateAuthRequirement(ctx, username, id, required)
	return updateErr("update queue auth requirement", "queue", id, username, err)
}

func (s *queueDefinitionService) UpdateExportOptions(ctx context.Context, username string, id int64, cfg *models.ExportConfig, isPatch bool) error {
	return s.updateExportConfig(ctx, username, id, func(current *models.ExportConfig) *models.ExportConfig {
		if isPatch {
			return mergeExportConfig(current, cfg)
		}
		if cfg == nil {
			return nil
		}
		next := *cfg
		if current != nil {
			// the nested configs have their own resources
			if next.AtomConfig == nil {
				next.AtomConfig = current.AtomConfig
			}
			if next.RSSConfig == nil {
				next.RSSConfig = current.RSSConfig
			}
		}
		return &next
	})
}

func (s *queueDefinitionService) ClearExportOptions(ctx context.Context, username string, id int64) error {
	return s.updateExportConfig(ctx, username, id, func(*models.ExportConfig) *models.ExportConfig {
		return nil
	})
}

func (s *queueDefinitionService) UpdateAtomConfig(ctx context.Context, username string, id int64, cfg *models.Atom10Config, isPatch bool) error {
	return s.updateExportConfig(ctx, username, id, func(current *models.ExportConfig) *models.ExportConfig {
		next := copyExportConfig(current)
		if isPatch {
			next.AtomConfig = mergeAtomConfig(next.AtomConfig, cfg)
		} else {
			next.AtomConfig = cfg
		}
		return next
	})
}

func (s *queueDefinitionService) ClearAtomConfig(ctx context.Context, username string, id int64) error {
	return s.UpdateAtomConfig(ctx, username, id, nil, false)
}

func (s *queueDefinitionService) UpdateRSSConfig(ctx context.Context, username string, id int64, cfg *models.RSS20Config, isPatch bool) error {
	return s.updateExportConfig(ctx, username, id, func(current *models.ExportConfig) *models.ExportConfig {
		next := copyExportConfig(current)
		if isPatch {
			next.RSSConfig = mergeRSSConfig(next.RSSConfig, cfg)
		} else {
			next.RSSConfig = cfg
		}
		return next
	})
}

func (s *queueDefinitionService) ClearRSSConfig(ctx context.Context, username string, id int64) error {
	return s.UpdateRSSConfig(ctx, username, id, nil, false)
}

func (s *queueDefinitionService) updateExportConfig(ctx context.Context, username string, id int64, apply func(*models.ExportConfig) *models.ExportConfig) error {
	queue, err := s.FindByID(ctx, username, id)
	if err != nil {
		return err
	}
	next := apply(queue.ExportConfig)
	if err := transfer.ValidateExportConfig(next); err != nil {
		return invalid(err, invalidFieldCode, "Invalid export config: "+err.Error())
	}
	err = s.q.UpdateExportConfig(ctx, username, id, next)
	return updateErr("update export config", "queue", id, username, err)
}

func (s *queueDefinitionService) IsAutoDeploy(ctx context.Context, username string, id int64) (bool, error) {
	queue, err := s.FindByID(ctx, username, id)
	if err != nil {
		return false, err
	}
	return queue.IsAutoDeploy(), nil
}

func (s *queueDefinitionService) UpdateLastDeployed(ctx context.Context, username string, id int64, at time.Time, transport string) error {
	err := s.q.UpdateLastDeployed(ctx, username, id, at, transport)
	return updateErr("update last deployed", "queue", id, username, err)
}

// DeleteByID removes the queue and its posts. Callers unpublish first.
func (s *queueDefinitionService) DeleteByID(ctx context.Context, username string, id int64) error {
	if _, err := s.FindByID(ctx, username, id); err != nil {
		return err
	}
	if _, err := s.p.RemoveByQueueID(ctx, username, id); err != nil {
		return &DataUpdateError{Op: "delete queue posts", Err: err}
	}
	err := s.q.Remove(ctx, username, id)
	return updateErr("delete queue", "queue", id, username, err)
}

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// ValidateImageSource accepts a base64 image, optionally as a data URI.
func ValidateImageSource(src string) error {
	_, _, err := DecodeImageSource(src)
	return err
}

// DecodeImageSource returns the image bytes and their detected MIME type.
func DecodeImageSource(src string) ([]byte, string, error) {
	payload := src
	if strings.HasPrefix(payload, "data:") {
		if i := strings.Index(payload, ","); i >= 0 {
			payload = payload[i+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", invalid(ErrInvalidImage, invalidImageCode, "Queue image is not valid base64")
	}
	kind, err := filetype.Match(data)
	if err != nil || !allowedImageTypes[kind.MIME.Value] {
		return nil, "", invalid(ErrInvalidImage, invalidImageCode, fmt.Sprintf("Queue image type %q is not supported", kind.MIME.Value))
	}
	return data, kind.MIME.Value, nil
}

func emptyToNil(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	return v
}

func copyExportConfig(cfg *models.ExportConfig) *models.ExportConfig {
	if cfg == nil {
		return &models.ExportConfig{}
	}
	next := *cfg
	return &next
}

func mergeExportConfig(dst, src *models.ExportConfig) *models.ExportConfig {
	if src == nil {
		return dst
	}
	next := copyExportConfig(dst)
	if src.MaxPublished != nil {
		next.MaxPublished = src.MaxPublished
	}
	if src.IsAutoDeploy != nil {
		next.IsAutoDeploy = src.IsAutoDeploy
	}
	next.AtomConfig = mergeAtomConfig(next.AtomConfig, src.AtomConfig)
	next.RSSConfig = mergeRSSConfig(next.RSSConfig, src.RSSConfig)
	return next
}

func mergeAtomConfig(dst, src *models.Atom10Config) *models.Atom10Config {
	if src == nil {
		return dst
	}
	next := models.Atom10Config{}
	if dst != nil {
		next = *dst
	}
	mergeString(&next.AuthorName, src.AuthorName)
	mergeString(&next.AuthorEmail, src.AuthorEmail)
	mergeString(&next.AuthorUri, src.AuthorUri)
	mergeString(&next.ContributorName, src.ContributorName)
	mergeString(&next.ContributorEmail, src.ContributorEmail)
	mergeString(&next.ContributorUri, src.ContributorUri)
	mergeString(&next.Category, src.Category)
	return &next
}

func mergeRSSConfig(dst, src *models.RSS20Config) *models.RSS20Config {
	if src == nil {
		return dst
	}
	next := models.RSS20Config{}
	if dst != nil {
		next = *dst
	}
	mergeString(&next.ManagingEditor, src.ManagingEditor)
	mergeString(&next.WebMaster, src.WebMaster)
	mergeString(&next.Categories, src.Categories)
	mergeString(&next.Docs, src.Docs)
	mergeString(&next.Rating, src.Rating)
	mergeString(&next.SkipHours, src.SkipHours)
	mergeString(&next.SkipDays, src.SkipDays)
	if src.Ttl != nil {
		next.Ttl = src.Ttl
	}
	return &next
}

func mergeString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}
