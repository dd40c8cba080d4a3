package transfer

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/maheshrc27/feedqueue-api/internal/codec"
	"github.com/maheshrc27/feedqueue-api/internal/models"
)

type PostDTO struct {
	ID                   int64                   `json:"id"`
	QueueID              int64                   `json:"queueId"`
	PostTitle            *models.ContentObject   `json:"postTitle"`
	PostDesc             *models.ContentObject   `json:"postDesc"`
	PostContents         []*models.ContentObject `json:"postContents"`
	PostITunes           *models.PostITunes      `json:"postITunes"`
	PostUrl              *string                 `json:"postUrl"`
	PostUrls             []*models.PostUrl       `json:"postUrls"`
	PostImgUrl           *string                 `json:"postImgUrl"`
	PostComment          *string                 `json:"postComment"`
	PostRights           *string                 `json:"postRights"`
	Contributors         []*models.PostPerson    `json:"contributors"`
	Authors              []*models.PostPerson    `json:"authors"`
	PostCategories       []string                `json:"postCategories"`
	PublishTimestamp     *string                 `json:"publishTimestamp"`
	ExpirationTimestamp  *string                 `json:"expirationTimestamp"`
	Enclosures           []*models.PostEnclosure `json:"enclosures"`
	LastUpdatedTimestamp *string                 `json:"lastUpdatedTimestamp"`
	PostPubStatus        string                  `json:"postPubStatus"`
}

func NewPostDTO(p *models.StagingPost, c *codec.Codec) *PostDTO {
	return &PostDTO{
		ID:                   p.ID,
		QueueID:              p.QueueID,
		PostTitle:            p.PostTitle,
		PostDesc:             p.PostDesc,
		PostContents:         p.PostContents,
		PostITunes:           p.PostITunes,
		PostUrl:              p.PostUrl,
		PostUrls:             p.PostUrls,
		PostImgUrl:           p.PostImgUrl,
		PostComment:          p.PostComment,
		PostRights:           p.PostRights,
		Contributors:         p.Contributors,
		Authors:              p.Authors,
		PostCategories:       p.PostCategories,
		PublishTimestamp:     c.FormatTimePtr(p.PublishTimestamp),
		ExpirationTimestamp:  c.FormatTimePtr(p.ExpirationTimestamp),
		Enclosures:           p.Enclosures,
		LastUpdatedTimestamp: c.FormatTimePtr(p.LastUpdatedTimestamp),
		PostPubStatus:        p.StatusName(),
	}
}

// PostConfigRequest is the body of post create and whole-post PUT/PATCH.
type PostConfigRequest struct {
	PostTitle           *models.ContentObject   `json:"postTitle"`
	PostDesc            *models.ContentObject   `json:"postDesc"`
	PostContents        []*models.ContentObject `json:"postContents"`
	PostITunes          *models.PostITunes      `json:"postITunes"`
	PostUrl             *string                 `json:"postUrl"`
	PostUrls            []*models.PostUrl       `json:"postUrls"`
	PostImgUrl          *string                 `json:"postImgUrl"`
	PostComment         *string                 `json:"postComment"`
	PostRights          *string                 `json:"postRights"`
	Contributors        []*models.PostPerson    `json:"contributors"`
	Authors             []*models.PostPerson    `json:"authors"`
	PostCategories      []string                `json:"postCategories"`
	ExpirationTimestamp *string                 `json:"expirationTimestamp"`
	Enclosures          []*models.PostEnclosure `json:"enclosures"`
}

func (r *PostConfigRequest) Validate(isPatch bool) error {
	return validation.ValidateStruct(r,
		validation.Field(&r.PostTitle, validation.When(!isPatch, validation.Required), validation.By(contentObjectRule)),
		validation.Field(&r.PostDesc, validation.By(contentObjectRule)),
		validation.Field(&r.PostUrl, is.URL),
		validation.Field(&r.PostImgUrl, is.URL),
		validation.Field(&r.PostComment, validation.Length(0, 2048)),
		validation.Field(&r.PostRights, validation.Length(0, 1024)),
		validation.Field(&r.PostCategories, validation.Each(validation.Length(1, 256))),
		validation.Field(&r.PostContents, validation.By(func(any) error { return ValidateContents(r.PostContents) })),
		validation.Field(&r.Contributors, validation.By(func(any) error { return ValidatePersons(r.Contributors) })),
		validation.Field(&r.Authors, validation.By(func(any) error { return ValidatePersons(r.Authors) })),
		validation.Field(&r.PostUrls, validation.By(func(any) error { return ValidateUrls(r.PostUrls) })),
		validation.Field(&r.Enclosures, validation.By(func(any) error { return ValidateEnclosures(r.Enclosures) })),
	)
}

func contentObjectRule(value any) error {
	co, _ := value.(*models.ContentObject)
	if co == nil {
		return nil
	}
	return validation.Validate(co.Value, validation.Length(0, 65536))
}

// ValidateURL checks an optional link field.
func ValidateURL(value *string) error {
	return validation.Validate(value, is.URL)
}

// ValidateContentObject checks a single title, description or content entry.
func ValidateContentObject(co *models.ContentObject) error {
	return contentObjectRule(co)
}

func ValidateContents(contents []*models.ContentObject) error {
	for i, co := range contents {
		if co == nil {
			return fmt.Errorf("content %d is null", i)
		}
		if err := contentObjectRule(co); err != nil {
			return fmt.Errorf("content %d: %w", i, err)
		}
	}
	return nil
}

func ValidatePersons(persons []*models.PostPerson) error {
	for i, p := range persons {
		if p == nil {
			return fmt.Errorf("person %d is null", i)
		}
		if err := validation.ValidateStruct(p,
			validation.Field(&p.Name, validation.Required, validation.Length(1, 256)),
			validation.Field(&p.Email, is.EmailFormat),
			validation.Field(&p.Uri, is.URL),
		); err != nil {
			return fmt.Errorf("person %d: %w", i, err)
		}
	}
	return nil
}

func ValidateUrls(urls []*models.PostUrl) error {
	for i, u := range urls {
		if u == nil {
			return fmt.Errorf("url %d is null", i)
		}
		if err := validation.Validate(u.Href, validation.Required, is.URL); err != nil {
			return fmt.Errorf("url %d: %w", i, err)
		}
	}
	return nil
}

func ValidateEnclosures(enclosures []*models.PostEnclosure) error {
	for i, e := range enclosures {
		if e == nil {
			return fmt.Errorf("enclosure %d is null", i)
		}
		if err := validation.Validate(e.Url, validation.Required, is.URL); err != nil {
			return fmt.Errorf("enclosure %d: %w", i, err)
		}
		if e.Length < 0 {
			return errors.New("enclosure length must not be negative")
		}
	}
	return nil
}

// PostStatusUpdateRequest carries the requested pending status; null is allowed.
type PostStatusUpdateRequest struct {
	NewStatus *models.PostPubStatus `json:"newStatus"`
}

func (r *PostStatusUpdateRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.NewStatus, validation.In(models.PubPending, models.DepubPending)),
	)
}

type PostConfigResponse struct {
	PostDTO         *PostDTO                 `json:"postDTO"`
	DeployResponses map[string]*PubResultDTO `json:"deployResponses"`
}

// ToStagingPost builds the editable part of a post. The only failure is an
// unparseable expiration timestamp.
func (r *PostConfigRequest) ToStagingPost(c *codec.Codec) (*models.StagingPost, error) {
	post := &models.StagingPost{
		PostTitle:      r.PostTitle,
		PostDesc:       r.PostDesc,
		PostContents:   r.PostContents,
		PostITunes:     r.PostITunes,
		PostUrl:        r.PostUrl,
		PostUrls:       r.PostUrls,
		PostImgUrl:     r.PostImgUrl,
		PostComment:    r.PostComment,
		PostRights:     r.PostRights,
		Contributors:   r.Contributors,
		Authors:        r.Authors,
		PostCategories: r.PostCategories,
		Enclosures:     r.Enclosures,
	}
	if r.ExpirationTimestamp != nil && *r.ExpirationTimestamp != "" {
		t, err := c.ParseTime(*r.ExpirationTimestamp)
		if err != nil {
			return nil, err
		}
		post.ExpirationTimestamp = &t
	}
	return post, nil
}
