package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/feedqueue-api/internal/models"
)

type StagingPostRepository interface {
	GetByID(ctx context.Context, username string, id int64) (*models.StagingPost, error)
	GetByQueueID(ctx context.Context, username string, queueID int64) ([]*models.StagingPost, error)
	GetByQueueIDAndStatus(ctx context.Context, username string, queueID int64, statuses ...models.PostPubStatus) ([]*models.StagingPost, error)
	GetPublishedByQueueID(ctx context.Context, username string, queueID int64) ([]*models.StagingPost, error)
	GetExpired(ctx context.Context, now time.Time) ([]*models.StagingPost, error)
	Create(ctx context.Context, post *models.StagingPost) (int64, error)
	Update(ctx context.Context, post *models.StagingPost) error
	UpdateField(ctx context.Context, username string, id int64, field models.PostField, value any) error
	UpdateQueueID(ctx context.Context, username string, id, queueID int64) error
	UpdatePubStatus(ctx context.Context, username string, id int64, status models.PostPubStatus) error
	UpdateQueuePubStatus(ctx context.Context, username string, queueID int64, status models.PostPubStatus) (int64, error)
	MarkPublished(ctx context.Context, username string, ids []int64, at time.Time) error
	MarkUnpublished(ctx context.Context, username string, ids []int64) error
	Remove(ctx context.Context, username string, id int64) error
	RemoveByQueueID(ctx context.Context, username string, queueID int64) (int64, error)
}

type stagingPostRepository struct {
	db *sql.DB
}

func NewStagingPostRepository(db *sql.DB) StagingPostRepository {
	return &stagingPostRepository{db: db}
}

const postColumns = `id, queue_id, username, post_title, post_desc, post_contents, post_itunes, post_url, post_urls,
	post_img_url, post_comment, post_rights, contributors, authors, post_categories, publish_timestamp,
	expiration_timestamp, enclosures, last_updated_timestamp, import_timestamp, post_pub_status, created_at`

func scanPost(row rowScanner) (*models.StagingPost, error) {
	var p models.StagingPost
	var title, desc, contents, itunes, urls, contributors, authors, enclosures []byte
	var status sql.NullString
	err := row.Scan(&p.ID, &p.QueueID, &p.Username, &title, &desc, &contents, &itunes, &p.PostUrl, &urls,
		&p.PostImgUrl, &p.PostComment, &p.PostRights, &contributors, &authors, pq.Array(&p.PostCategories),
		&p.PublishTimestamp, &p.ExpirationTimestamp, &enclosures, &p.LastUpdatedTimestamp, &p.ImportTimestamp,
		&status, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.PostPubStatus = models.PostPubStatus(status.String)

	decode := []struct {
		raw    []byte
		target any
	}{
		{title, &p.PostTitle},
		{desc, &p.PostDesc},
		{contents, &p.PostContents},
		{itunes, &p.PostITunes},
		{urls, &p.PostUrls},
		{contributors, &p.Contributors},
		{authors, &p.Authors},
		{enclosures, &p.Enclosures},
	}
	for _, d := range decode {
		if d.raw == nil {
			continue
		}
		if err := json.Unmarshal(d.raw, d.target); err != nil {
			return nil, fmt.Errorf("decode post %d: %w", p.ID, err)
		}
	}
	return &p, nil
}

func (r *stagingPostRepository) queryPosts(ctx context.Context, query string, args ...any) ([]*models.StagingPost, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	posts := []*models.StagingPost{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (r *stagingPostRepository) GetByID(ctx context.Context, username string, id int64) (*models.StagingPost, error) {
	query := `SELECT ` + postColumns + ` FROM staging_posts WHERE id = $1 AND username = $2`
	p, err := scanPost(conn(ctx, r.db).QueryRowContext(ctx, query, id, username))
	if err != nil {
		err = translate(err)
		if err != ErrNotFound {
			slog.Info(err.Error(), "postId", id)
		}
		return nil, err
	}
	return p, nil
}

func (r *stagingPostRepository) GetByQueueID(ctx context.Context, username string, queueID int64) ([]*models.StagingPost, error) {
	query := `SELECT ` + postColumns + ` FROM staging_posts WHERE queue_id = $1 AND username = $2 ORDER BY id`
	return r.queryPosts(ctx, query, queueID, username)
}

func (r *stagingPostRepository) GetByQueueIDAndStatus(ctx context.Context, username string, queueID int64, statuses ...models.PostPubStatus) ([]*models.StagingPost, error) {
	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}
	query := `SELECT ` + postColumns + ` FROM staging_posts
		WHERE queue_id = $1 AND username = $2 AND post_pub_status = ANY($3) ORDER BY id`
	return r.queryPosts(ctx, query, queueID, username, pq.Array(values))
}

func (r *stagingPostRepository) GetPublishedByQueueID(ctx context.Context, username string, queueID int64) ([]*models.StagingPost, error) {
	query := `SELECT ` + postColumns + ` FROM staging_posts
		WHERE queue_id = $1 AND username = $2 AND publish_timestamp IS NOT NULL ORDER BY publish_timestamp DESC, id DESC`
	return r.queryPosts(ctx, query, queueID, username)
}

// GetExpired spans all users; it backs the expiration job only.
func (r *stagingPostRepository) GetExpired(ctx context.Context, now time.Time) ([]*models.StagingPost, error) {
	query := `SELECT ` + postColumns + ` FROM staging_posts
		WHERE publish_timestamp IS NOT NULL AND expiration_timestamp <= $1
			AND (post_pub_status IS NULL OR post_pub_status <> $2)
		ORDER BY username, queue_id, id`
	return r.queryPosts(ctx, query, now, string(models.DepubPending))
}

type encodedPost struct {
	title, desc, contents, itunes, urls, contributors, authors, enclosures any
}

func encodePost(p *models.StagingPost) (*encodedPost, error) {
	var e encodedPost
	fields := []struct {
		value  any
		isNil  bool
		target *any
	}{
		{p.PostTitle, p.PostTitle == nil, &e.title},
		{p.PostDesc, p.PostDesc == nil, &e.desc},
		{p.PostContents, p.PostContents == nil, &e.contents},
		{p.PostITunes, p.PostITunes == nil, &e.itunes},
		{p.PostUrls, p.PostUrls == nil, &e.urls},
		{p.Contributors, p.Contributors == nil, &e.contributors},
		{p.Authors, p.Authors == nil, &e.authors},
		{p.Enclosures, p.Enclosures == nil, &e.enclosures},
	}
	for _, f := range fields {
		if f.isNil {
			continue
		}
		data, err := json.Marshal(f.value)
		if err != nil {
			return nil, err
		}
		*f.target = nullableJSON(data)
	}
	return &e, nil
}

func (r *stagingPostRepository) Create(ctx context.Context, p *models.StagingPost) (int64, error) {
	query := `
		INSERT INTO staging_posts (queue_id, username, post_title, post_desc, post_contents, post_itunes, post_url,
			post_urls, post_img_url, post_comment, post_rights, contributors, authors, post_categories,
			expiration_timestamp, enclosures, import_timestamp, post_pub_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id
	`
	e, err := encodePost(p)
	if err != nil {
		return 0, err
	}

	var id int64
	err = conn(ctx, r.db).QueryRowContext(ctx, query, p.QueueID, p.Username, e.title, e.desc, e.contents, e.itunes,
		p.PostUrl, e.urls, p.PostImgUrl, p.PostComment, p.PostRights, e.contributors, e.authors,
		pq.Array(p.PostCategories), p.ExpirationTimestamp, e.enclosures, p.ImportTimestamp,
		nullStatus(p.PostPubStatus)).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, translate(err)
	}
	return id, nil
}

func (r *stagingPostRepository) Update(ctx context.Context, p *models.StagingPost) error {
	query := `
		UPDATE staging_posts
		SET post_title = $1,
			post_desc = $2,
			post_contents = $3,
			post_itunes = $4,
			post_url = $5,
			post_urls = $6,
			post_img_url = $7,
			post_comment = $8,
			post_rights = $9,
			contributors = $10,
			authors = $11,
			post_categories = $12,
			expiration_timestamp = $13,
			enclosures = $14,
			last_updated_timestamp = $15
		WHERE id = $16 AND username = $17
	`
	e, err := encodePost(p)
	if err != nil {
		return err
	}
	res, err := conn(ctx, r.db).ExecContext(ctx, query, e.title, e.desc, e.contents, e.itunes, p.PostUrl, e.urls,
		p.PostImgUrl, p.PostComment, p.PostRights, e.contributors, e.authors, pq.Array(p.PostCategories),
		p.ExpirationTimestamp, e.enclosures, time.Now(), p.ID, p.Username)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return requireAffected(res)
}

// UpdateField writes one column. JSON-typed columns take the Go value and are
// encoded here; a nil value clears the column.
func (r *stagingPostRepository) UpdateField(ctx context.Context, username string, id int64, field models.PostField, value any) error {
	arg, err := encodeField(field, value)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE staging_posts SET %s = $1, last_updated_timestamp = $2 WHERE id = $3 AND username = $4`, field)
	res, err := conn(ctx, r.db).ExecContext(ctx, query, arg, time.Now(), id, username)
	if err != nil {
		slog.Info(err.Error(), "field", string(field))
		return err
	}
	return requireAffected(res)
}

func encodeField(field models.PostField, value any) (any, error) {
	switch field {
	case models.PostTitleField, models.PostDescField, models.PostContentsField, models.PostITunesField,
		models.PostUrlsField, models.ContributorsField, models.AuthorsField, models.EnclosuresField:
		if isNil(value) {
			return nil, nil
		}
		data, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		return nullableJSON(data), nil
	case models.PostCategoriesField:
		categories, _ := value.([]string)
		if categories == nil {
			return nil, nil
		}
		return pq.Array(categories), nil
	case models.PostUrlField, models.PostImgUrlField, models.PostCommentField, models.PostRightsField,
		models.ExpirationField:
		if isNil(value) {
			return nil, nil
		}
		return value, nil
	default:
		return nil, fmt.Errorf("unknown post field %q", field)
	}
}

func isNil(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case *string:
		return v == nil
	case *time.Time:
		return v == nil
	case *models.ContentObject:
		return v == nil
	case *models.PostITunes:
		return v == nil
	case []*models.ContentObject:
		return v == nil
	case []*models.PostUrl:
		return v == nil
	case []*models.PostPerson:
		return v == nil
	case []*models.PostEnclosure:
		return v == nil
	}
	return false
}

func (r *stagingPostRepository) UpdateQueueID(ctx context.Context, username string, id, queueID int64) error {
	query := `UPDATE staging_posts SET queue_id = $1, last_updated_timestamp = $2 WHERE id = $3 AND username = $4`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, queueID, time.Now(), id, username)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return requireAffected(res)
}

func nullStatus(status models.PostPubStatus) sql.NullString {
	return sql.NullString{String: string(status), Valid: status != models.PubStatusNone}
}

func (r *stagingPostRepository) UpdatePubStatus(ctx context.Context, username string, id int64, status models.PostPubStatus) error {
	query := `UPDATE staging_posts SET post_pub_status = $1 WHERE id = $2 AND username = $3`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, nullStatus(status), id, username)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return requireAffected(res)
}

func (r *stagingPostRepository) UpdateQueuePubStatus(ctx context.Context, username string, queueID int64, status models.PostPubStatus) (int64, error) {
	query := `UPDATE staging_posts SET post_pub_status = $1 WHERE queue_id = $2 AND username = $3`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, nullStatus(status), queueID, username)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return res.RowsAffected()
}

// MarkPublished keeps the original publish timestamp of posts that were already live.
func (r *stagingPostRepository) MarkPublished(ctx context.Context, username string, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query := `
		UPDATE staging_posts
		SET publish_timestamp = COALESCE(publish_timestamp, $1),
			post_pub_status = NULL
		WHERE id = ANY($2) AND username = $3
	`
	_, err := conn(ctx, r.db).ExecContext(ctx, query, at, pq.Array(ids), username)
	if err != nil {
		slog.Info(err.Error())
	}
	return err
}

func (r *stagingPostRepository) MarkUnpublished(ctx context.Context, username string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query := `
		UPDATE staging_posts
		SET publish_timestamp = NULL,
			post_pub_status = NULL
		WHERE id = ANY($1) AND username = $2
	`
	_, err := conn(ctx, r.db).ExecContext(ctx, query, pq.Array(ids), username)
	if err != nil {
		slog.Info(err.Error())
	}
	return err
}

func (r *stagingPostRepository) Remove(ctx context.Context, username string, id int64) error {
	query := `DELETE FROM staging_posts WHERE id = $1 AND username = $2`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, id, username)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return requireAffected(res)
}

func (r *stagingPostRepository) RemoveByQueueID(ctx context.Context, username string, queueID int64) (int64, error) {
	query := `DELETE FROM staging_posts WHERE queue_id = $1 AND username = $2`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, queueID, username)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return res.RowsAffected()
}
