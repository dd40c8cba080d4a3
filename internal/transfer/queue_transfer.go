package transfer

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/maheshrc27/feedqueue-api/internal/codec"
	"github.com/maheshrc27/feedqueue-api/internal/models"
)

var identPattern = regexp.MustCompile(`^[A-Za-z0-9._~-]+$`)

type QueueDTO struct {
	ID              int64                `json:"id"`
	Ident           string               `json:"ident"`
	Title           *string              `json:"title"`
	Description     *string              `json:"description"`
	Generator       *string              `json:"generator"`
	TransportIdent  string               `json:"transportIdent"`
	Username        string               `json:"username"`
	ExportConfig    *models.ExportConfig `json:"exportConfig"`
	Copyright       *string              `json:"copyright"`
	Language        *string              `json:"language"`
	QueueImgSrc     *string              `json:"queueImgSrc"`
	IsAuthenticated bool                 `json:"isAuthenticated"`
	LastDeployed    *string              `json:"lastDeployed"`
}

func NewQueueDTO(q *models.Queue, c *codec.Codec) *QueueDTO {
	return &QueueDTO{
		ID:              q.ID,
		Ident:           q.Ident,
		Title:           q.Title,
		Description:     q.Description,
		Generator:       q.Generator,
		TransportIdent:  q.TransportIdent,
		Username:        q.Username,
		ExportConfig:    q.ExportConfig,
		Copyright:       q.Copyright,
		Language:        q.Language,
		QueueImgSrc:     q.QueueImgSrc,
		IsAuthenticated: q.IsAuthenticated,
		LastDeployed:    c.FormatTimePtr(q.LastDeployed),
	}
}

// QueueConfigRequest is the body of queue create and whole-queue PUT/PATCH.
type QueueConfigRequest struct {
	Ident           string               `json:"ident"`
	Title           *string              `json:"title"`
	Description     *string              `json:"description"`
	Generator       *string              `json:"generator"`
	TransportIdent  *string              `json:"transportIdent"`
	Copyright       *string              `json:"copyright"`
	Language        *string              `json:"language"`
	ImgSrc          *string              `json:"imgSrc"`
	ExportConfig    *models.ExportConfig `json:"exportConfig"`
	IsAuthenticated *bool                `json:"isAuthenticated"`
}

// Validate checks a create or PUT body; a PATCH body may omit the ident.
func (r *QueueConfigRequest) Validate(isPatch bool) error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Ident,
			validation.When(!isPatch, validation.Required),
			validation.Length(1, 256),
			validation.Match(identPattern)),
		validation.Field(&r.Title, validation.Length(0, 512)),
		validation.Field(&r.Description, validation.Length(0, 1024)),
		validation.Field(&r.Generator, validation.Length(0, 512)),
		validation.Field(&r.TransportIdent, validation.Length(0, 256), validation.Match(identPattern)),
		validation.Field(&r.Copyright, validation.Length(0, 1024)),
		validation.Field(&r.Language, validation.Length(0, 16)),
		validation.Field(&r.ExportConfig, validation.By(exportConfigRule)),
	)
}

func exportConfigRule(value any) error {
	cfg, _ := value.(*models.ExportConfig)
	return ValidateExportConfig(cfg)
}

func ValidateExportConfig(cfg *models.ExportConfig) error {
	if cfg == nil {
		return nil
	}
	errs := validation.Errors{}
	if cfg.MaxPublished != nil && *cfg.MaxPublished < 1 {
		errs["maxPublished"] = validation.NewError("validation_max_published", "must be at least 1")
	}
	if cfg.RSSConfig != nil && cfg.RSSConfig.Ttl != nil && *cfg.RSSConfig.Ttl < 0 {
		errs["rssConfig.ttl"] = validation.NewError("validation_ttl", "must not be negative")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateIdent applies the create-time ident rules to a rename.
func ValidateIdent(ident string) error {
	return validation.Validate(ident, validation.Required, validation.Length(1, 256), validation.Match(identPattern))
}

type QueueStatusUpdateRequest struct {
	NewStatus models.QueuePubStatus `json:"newStatus"`
}

func (r *QueueStatusUpdateRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.NewStatus, validation.Required,
			validation.In(models.QueueDeployPending, models.QueuePubAll, models.QueueDepubAll)),
	)
}

type QueueStatusResponse struct {
	Ident        string         `json:"ident"`
	LastDeployed *string        `json:"lastDeployed"`
	PostCounts   map[string]int `json:"postCounts"`
}

type QueueConfigResponse struct {
	QueueDTO        *QueueDTO                `json:"queueDTO"`
	DeployResponses map[string]*PubResultDTO `json:"deployResponses"`
}
