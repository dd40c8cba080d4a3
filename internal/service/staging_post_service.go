package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/maheshrc27/feedqueue-api/internal/models"
	"github.com/maheshrc27/feedqueue-api/internal/repository"
)

type StagingPostService interface {
	FindByID(ctx context.Context, username string, id int64) (*models.StagingPost, error)
	FindByQueueID(ctx context.Context, username string, queueID int64) ([]*models.StagingPost, error)
	FindPendingByQueueID(ctx context.Context, username string, queueID int64) ([]*models.StagingPost, error)
	FindPublishedByQueueID(ctx context.Context, username string, queueID int64) ([]*models.StagingPost, error)
	FindExpired(ctx context.Context, at time.Time) ([]*models.StagingPost, error)
	CreatePost(ctx context.Context, username string, queueID int64, post *models.StagingPost) (int64, error)
	UpdatePost(ctx context.Context, username string, id int64, post *models.StagingPost, isPatch bool) error
	UpdatePostField(ctx context.Context, username string, id int64, field models.PostField, value any, isPatch bool) error
	ClearPostField(ctx context.Context, username string, id int64, field models.PostField) error
	UpdatePostQueue(ctx context.Context, username string, id, queueID int64) error
	UpdatePostPubStatus(ctx context.Context, username string, id int64, status models.PostPubStatus) error
	UpdateQueuePubStatus(ctx context.Context, username string, queueID int64, status models.PostPubStatus) (int64, error)
	MarkPublished(ctx context.Context, username string, ids []int64, at time.Time) error
	MarkUnpublished(ctx context.Context, username string, ids []int64) error
	DeleteByID(ctx context.Context, username string, id int64) error
	DeleteByQueueID(ctx context.Context, username string, queueID int64) (int64, error)
}

type stagingPostService struct {
	p repository.StagingPostRepository
}

func NewStagingPostService(p repository.StagingPostRepository) StagingPostService {
	return &stagingPostService{
		p: p,
	}
}

// Fields a client may clear with DELETE.
var clearablePostFields = map[models.PostField]bool{
	models.PostContentsField:   true,
	models.PostITunesField:     true,
	models.PostUrlField:        true,
	models.PostUrlsField:       true,
	models.PostImgUrlField:     true,
	models.PostCommentField:    true,
	models.PostRightsField:     true,
	models.ContributorsField:   true,
	models.AuthorsField:        true,
	models.PostCategoriesField: true,
	models.ExpirationField:     true,
	models.EnclosuresField:     true,
}

func (s *stagingPostService) FindByID(ctx context.Context, username string, id int64) (*models.StagingPost, error) {
	post, err := s.p.GetByID(ctx, username, id)
	if err != nil {
		return nil, accessErr("post", id, username, err)
	}
	return post, nil
}

func (s *stagingPostService) FindByQueueID(ctx context.Context, username string, queueID int64) ([]*models.StagingPost, error) {
	posts, err := s.p.GetByQueueID(ctx, username, queueID)
	if err != nil {
		return nil, accessErr("posts of queue", queueID, username, err)
	}
	return posts, nil
}

func (s *stagingPostService) FindPendingByQueueID(ctx context.Context, username string, queueID int64) ([]*models.StagingPost, error) {
	posts, err := s.p.GetByQueueIDAndStatus(ctx, username, queueID, models.PubPending, models.DepubPending)
	if err != nil {
		return nil, accessErr("pending posts of queue", queueID, username, err)
	}
	return posts, nil
}

func (s *stagingPostService) FindPublishedByQueueID(ctx context.Context, username string, queueID int64) ([]*models.StagingPost, error) {
	posts, err := s.p.GetPublishedByQueueID(ctx, username, queueID)
	if err != nil {
		return nil, accessErr("published posts of queue", queueID, username, err)
	}
	return posts, nil
}

func (s *stagingPostService) FindExpired(ctx context.Context, at time.Time) ([]*models.StagingPost, error) {
	posts, err := s.p.GetExpired(ctx, at)
	if err != nil {
		return nil, accessErr("expired posts", at.Format(time.RFC3339), "*", err)
	}
	return posts, nil
}

func (s *stagingPostService) CreatePost(ctx context.Context, username string, queueID int64, post *models.StagingPost) (int64, error) {
	if post.PostTitle == nil {
		return 0, invalid(ErrInvalidField, invalidFieldCode, "Post title is required")
	}
	post.Username = username
	post.QueueID = queueID
	if err := assignIdents(post); err != nil {
		return 0, &DataUpdateError{Op: "create post", Err: err}
	}

	id, err := s.p.Create(ctx, post)
	if err != nil {
		return 0, updateErr("create post", "queue", queueID, username, err)
	}
	slog.Info("post created", "username", username, "queue_id", queueID, "post_id", id)
	return id, nil
}

// UpdatePost applies a whole-post body. PUT replaces every editable field,
// PATCH only the ones the body carries.
func (s *stagingPostService) UpdatePost(ctx context.Context, username string, id int64, post *models.StagingPost, isPatch bool) error {
	current, err := s.FindByID(ctx, username, id)
	if err != nil {
		return err
	}
	for _, field := range editableFields {
		if err := setPostField(current, field, postFieldValue(post, field), isPatch); err != nil {
			return err
		}
	}
	if current.PostTitle == nil {
		return invalid(ErrInvalidField, invalidFieldCode, "Post title is required")
	}
	if err := assignIdents(current); err != nil {
		return &DataUpdateError{Op: "update post", Err: err}
	}
	return updateErr("update post", "post", id, username, s.p.Update(ctx, current))
}

// UpdatePostField sets one field. value must be the field's model type
// (*models.ContentObject for title, []string for categories, *time.Time for
// expiration, and so on).
func (s *stagingPostService) UpdatePostField(ctx context.Context, username string, id int64, field models.PostField, value any, isPatch bool) error {
	if !isPatch && isEmptyValue(value) && !clearablePostFields[field] {
		return invalid(ErrInvalidField, invalidFieldCode, fmt.Sprintf("Post field %s cannot be cleared", field))
	}
	current, err := s.FindByID(ctx, username, id)
	if err != nil {
		return err
	}
	if err := setPostField(current, field, value, isPatch); err != nil {
		return err
	}
	if err := assignIdents(current); err != nil {
		return &DataUpdateError{Op: "update post " + string(field), Err: err}
	}
	err = s.p.UpdateField(ctx, username, id, field, postFieldValue(current, field))
	return updateErr("update post "+string(field), "post", id, username, err)
}

func (s *stagingPostService) ClearPostField(ctx context.Context, username string, id int64, field models.PostField) error {
	if !clearablePostFields[field] {
		return invalid(ErrInvalidField, invalidFieldCode, fmt.Sprintf("Post field %s cannot be cleared", field))
	}
	err := s.p.UpdateField(ctx, username, id, field, nil)
	return updateErr("clear post "+string(field), "post", id, username, err)
}

func (s *stagingPostService) UpdatePostQueue(ctx context.Context, username string, id, queueID int64) error {
	err := s.p.UpdateQueueID(ctx, username, id, queueID)
	return updateErr("move post", "post", id, username, err)
}

func (s *stagingPostService) UpdatePostPubStatus(ctx context.Context, username string, id int64, status models.PostPubStatus) error {
	err := s.p.UpdatePubStatus(ctx, username, id, status)
	return updateErr("update post status", "post", id, username, err)
}

func (s *stagingPostService) UpdateQueuePubStatus(ctx context.Context, username string, queueID int64, status models.PostPubStatus) (int64, error) {
	n, err := s.p.UpdateQueuePubStatus(ctx, username, queueID, status)
	if err != nil {
		return 0, &DataUpdateError{Op: "update queue post status", Err: err}
	}
	return n, nil
}

func (s *stagingPostService) MarkPublished(ctx context.Context, username string, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.p.MarkPublished(ctx, username, ids, at); err != nil {
		return &DataUpdateError{Op: "mark posts published", Err: err}
	}
	return nil
}

func (s *stagingPostService) MarkUnpublished(ctx context.Context, username string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.p.MarkUnpublished(ctx, username, ids); err != nil {
		return &DataUpdateError{Op: "mark posts unpublished", Err: err}
	}
	return nil
}

func (s *stagingPostService) DeleteByID(ctx context.Context, username string, id int64) error {
	err := s.p.Remove(ctx, username, id)
	return updateErr("delete post", "post", id, username, err)
}

func (s *stagingPostService) DeleteByQueueID(ctx context.Context, username string, queueID int64) (int64, error) {
	n, err := s.p.RemoveByQueueID(ctx, username, queueID)
	if err != nil {
		return 0, &DataUpdateError{Op: "delete queue posts", Err: err}
	}
	return n, nil
}

var editableFields = []models.PostField{
	models.PostTitleField,
	models.PostDescField,
	models.PostContentsField,
	models.PostITunesField,
	models.PostUrlField,
	models.PostUrlsField,
	models.PostImgUrlField,
	models.PostCommentField,
	models.PostRightsField,
	models.ContributorsField,
	models.AuthorsField,
	models.PostCategoriesField,
	models.ExpirationField,
	models.EnclosuresField,
}

func postFieldValue(p *models.StagingPost, field models.PostField) any {
	switch field {
	case models.PostTitleField:
		return nilIf(p.PostTitle == nil, p.PostTitle)
	case models.PostDescField:
		return nilIf(p.PostDesc == nil, p.PostDesc)
	case models.PostContentsField:
		return nilIf(p.PostContents == nil, p.PostContents)
	case models.PostITunesField:
		return nilIf(p.PostITunes == nil, p.PostITunes)
	case models.PostUrlField:
		return nilIf(p.PostUrl == nil, p.PostUrl)
	case models.PostUrlsField:
		return nilIf(p.PostUrls == nil, p.PostUrls)
	case models.PostImgUrlField:
		return nilIf(p.PostImgUrl == nil, p.PostImgUrl)
	case models.PostCommentField:
		return nilIf(p.PostComment == nil, p.PostComment)
	case models.PostRightsField:
		return nilIf(p.PostRights == nil, p.PostRights)
	case models.ContributorsField:
		return nilIf(p.Contributors == nil, p.Contributors)
	case models.AuthorsField:
		return nilIf(p.Authors == nil, p.Authors)
	case models.PostCategoriesField:
		return nilIf(p.PostCategories == nil, p.PostCategories)
	case models.ExpirationField:
		return nilIf(p.ExpirationTimestamp == nil, p.ExpirationTimestamp)
	case models.EnclosuresField:
		return nilIf(p.Enclosures == nil, p.Enclosures)
	}
	return nil
}

func nilIf(isNil bool, v any) any {
	if isNil {
		return nil
	}
	return v
}

// setPostField writes value into p. Under PATCH a nil or empty value leaves
// the field alone, objects merge their non-zero sub-fields and lists append
// the entries not already present.
func setPostField(p *models.StagingPost, field models.PostField, value any, isPatch bool) error {
	if isPatch && isEmptyValue(value) {
		return nil
	}
	mismatch := func() error {
		return invalid(ErrInvalidField, invalidFieldCode, fmt.Sprintf("Unexpected value %T for post field %s", value, field))
	}

	switch field {
	case models.PostTitleField, models.PostDescField:
		v, ok := value.(*models.ContentObject)
		if !ok && value != nil {
			return mismatch()
		}
		dst := &p.PostTitle
		if field == models.PostDescField {
			dst = &p.PostDesc
		}
		if isPatch {
			*dst = mergeContentObject(*dst, v)
		} else {
			*dst = v
		}
	case models.PostContentsField:
		v, ok := value.([]*models.ContentObject)
		if !ok && value != nil {
			return mismatch()
		}
		p.PostContents = pick(isPatch, p.PostContents, v)
	case models.PostITunesField:
		v, ok := value.(*models.PostITunes)
		if !ok && value != nil {
			return mismatch()
		}
		if isPatch {
			p.PostITunes = mergeITunes(p.PostITunes, v)
		} else {
			p.PostITunes = v
		}
	case models.PostUrlField, models.PostImgUrlField, models.PostCommentField, models.PostRightsField:
		v, ok := value.(*string)
		if !ok && value != nil {
			return mismatch()
		}
		v = emptyToNil(v)
		switch field {
		case models.PostUrlField:
			p.PostUrl = v
		case models.PostImgUrlField:
			p.PostImgUrl = v
		case models.PostCommentField:
			p.PostComment = v
		default:
			p.PostRights = v
		}
	case models.PostUrlsField:
		v, ok := value.([]*models.PostUrl)
		if !ok && value != nil {
			return mismatch()
		}
		p.PostUrls = pick(isPatch, p.PostUrls, v)
	case models.ContributorsField, models.AuthorsField:
		v, ok := value.([]*models.PostPerson)
		if !ok && value != nil {
			return mismatch()
		}
		if field == models.ContributorsField {
			p.Contributors = pick(isPatch, p.Contributors, v)
		} else {
			p.Authors = pick(isPatch, p.Authors, v)
		}
	case models.PostCategoriesField:
		v, ok := value.([]string)
		if !ok && value != nil {
			return mismatch()
		}
		if isPatch {
			for _, c := range v {
				if !slices.Contains(p.PostCategories, c) {
					p.PostCategories = append(p.PostCategories, c)
				}
			}
		} else {
			p.PostCategories = v
		}
	case models.ExpirationField:
		v, ok := value.(*time.Time)
		if !ok && value != nil {
			return mismatch()
		}
		p.ExpirationTimestamp = v
	case models.EnclosuresField:
		v, ok := value.([]*models.PostEnclosure)
		if !ok && value != nil {
			return mismatch()
		}
		p.Enclosures = pick(isPatch, p.Enclosures, v)
	default:
		return invalid(ErrInvalidField, invalidFieldCode, fmt.Sprintf("Unknown post field %s", field))
	}
	return nil
}

func isEmptyValue(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case *string:
		return v == nil || *v == ""
	case []string:
		return len(v) == 0
	}
	return postFieldNil(value)
}

func postFieldNil(value any) bool {
	switch v := value.(type) {
	case *models.ContentObject:
		return v == nil
	case *models.PostITunes:
		return v == nil
	case *time.Time:
		return v == nil
	case []*models.ContentObject:
		return len(v) == 0
	case []*models.PostUrl:
		return len(v) == 0
	case []*models.PostPerson:
		return len(v) == 0
	case []*models.PostEnclosure:
		return len(v) == 0
	}
	return false
}

// pick replaces under PUT and appends the unseen entries under PATCH.
func pick[T comparable](isPatch bool, current, next []*T) []*T {
	if !isPatch {
		return next
	}
	out := slices.Clone(current)
	for _, n := range next {
		if n == nil {
			continue
		}
		if !slices.ContainsFunc(out, func(c *T) bool { return c != nil && *c == *n }) {
			out = append(out, n)
		}
	}
	return out
}

func mergeContentObject(dst, src *models.ContentObject) *models.ContentObject {
	if src == nil {
		return dst
	}
	if dst == nil {
		return src
	}
	next := *dst
	mergeString(&next.Ident, src.Ident)
	mergeString(&next.Type, src.Type)
	mergeString(&next.Value, src.Value)
	return &next
}

func mergeITunes(dst, src *models.PostITunes) *models.PostITunes {
	if src == nil {
		return dst
	}
	if dst == nil {
		return src
	}
	next := *dst
	mergeString(&next.Author, src.Author)
	mergeString(&next.Type, src.Type)
	mergeString(&next.ImageUri, src.ImageUri)
	mergeString(&next.Subtitle, src.Subtitle)
	mergeString(&next.Summary, src.Summary)
	mergeString(&next.EpisodeType, src.EpisodeType)
	if len(src.Keywords) > 0 {
		next.Keywords = src.Keywords
	}
	if src.Duration != 0 {
		next.Duration = src.Duration
	}
	if src.Episode != 0 {
		next.Episode = src.Episode
	}
	if src.Season != 0 {
		next.Season = src.Season
	}
	if src.Order != 0 {
		next.Order = src.Order
	}
	if src.Explicit != nil {
		next.Explicit = src.Explicit
	}
	if src.IsCloseCaptioned != nil {
		next.IsCloseCaptioned = src.IsCloseCaptioned
	}
	if src.Block != nil {
		next.Block = src.Block
	}
	return &next
}

// assignIdents gives every content object without an ident a fresh one.
func assignIdents(p *models.StagingPost) error {
	objects := append([]*models.ContentObject{p.PostTitle, p.PostDesc}, p.PostContents...)
	for _, co := range objects {
		if co == nil || co.Ident != "" {
			continue
		}
		id, err := gonanoid.New()
		if err != nil {
			return err
		}
		co.Ident = id
	}
	return nil
}
