package models

import "time"

type StagingPost struct {
	ID                   int64            `db:"id" json:"id"`
	QueueID              int64            `db:"queue_id" json:"queue_id"`
	Username             string           `db:"username" json:"username"`
	PostTitle            *ContentObject   `db:"post_title" json:"post_title"`
	PostDesc             *ContentObject   `db:"post_desc" json:"post_desc"`
	PostContents         []*ContentObject `db:"post_contents" json:"post_contents"`
	PostITunes           *PostITunes      `db:"post_itunes" json:"post_itunes"`
	PostUrl              *string          `db:"post_url" json:"post_url"`
	PostUrls             []*PostUrl       `db:"post_urls" json:"post_urls"`
	PostImgUrl           *string          `db:"post_img_url" json:"post_img_url"`
	PostComment          *string          `db:"post_comment" json:"post_comment"`
	PostRights           *string          `db:"post_rights" json:"post_rights"`
	Contributors         []*PostPerson    `db:"contributors" json:"contributors"`
	Authors              []*PostPerson    `db:"authors" json:"authors"`
	PostCategories       []string         `db:"post_categories" json:"post_categories"`
	PublishTimestamp     *time.Time       `db:"publish_timestamp" json:"publish_timestamp"`
	ExpirationTimestamp  *time.Time       `db:"expiration_timestamp" json:"expiration_timestamp"`
	Enclosures           []*PostEnclosure `db:"enclosures" json:"enclosures"`
	LastUpdatedTimestamp *time.Time       `db:"last_updated_timestamp" json:"last_updated_timestamp"`
	ImportTimestamp      *time.Time       `db:"import_timestamp" json:"import_timestamp"`
	PostPubStatus        PostPubStatus    `db:"post_pub_status" json:"post_pub_status"`
	CreatedAt            time.Time        `db:"created_at" json:"created_at"`
}

// IsPublished is true while the post is part of the deployed feed. A resolved
// DEPUB_PENDING clears the publish timestamp.
func (p *StagingPost) IsPublished() bool {
	return p.PublishTimestamp != nil
}

// StatusName is the status reported to clients: PUBLISHED, then the pending status, then UNPUBLISHED.
func (p *StagingPost) StatusName() string {
	if p.IsPublished() {
		return StatusPublished
	}
	if p.PostPubStatus != PubStatusNone {
		return string(p.PostPubStatus)
	}
	return StatusUnpublished
}

type PostPubStatus string

const (
	PubStatusNone PostPubStatus = ""
	PubPending    PostPubStatus = "PUB_PENDING"
	DepubPending  PostPubStatus = "DEPUB_PENDING"
)

const (
	StatusPublished   = "PUBLISHED"
	StatusUnpublished = "UNPUBLISHED"
)

type ContentObject struct {
	Ident string `json:"ident"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// PostITunes flags are pointers so a PATCH can tell false from absent.
type PostITunes struct {
	Author           string   `json:"author,omitempty"`
	Type             string   `json:"type,omitempty"`
	ImageUri         string   `json:"imageUri,omitempty"`
	Explicit         *bool    `json:"explicit,omitempty"`
	Keywords         []string `json:"keywords,omitempty"`
	Subtitle         string   `json:"subtitle,omitempty"`
	Summary          string   `json:"summary,omitempty"`
	Duration         int64    `json:"duration,omitempty"`
	EpisodeType      string   `json:"episodeType,omitempty"`
	Episode          int      `json:"episode,omitempty"`
	Season           int      `json:"season,omitempty"`
	IsCloseCaptioned *bool    `json:"isCloseCaptioned,omitempty"`
	Order            int      `json:"order,omitempty"`
	Block            *bool    `json:"block,omitempty"`
}

type PostPerson struct {
	Name  string `json:"name,omitempty"`
	Uri   string `json:"uri,omitempty"`
	Email string `json:"email,omitempty"`
}

type PostUrl struct {
	Title    string `json:"title,omitempty"`
	Type     string `json:"type,omitempty"`
	Href     string `json:"href"`
	Hreflang string `json:"hreflang,omitempty"`
	Rel      string `json:"rel,omitempty"`
}

type PostEnclosure struct {
	Url    string `json:"url"`
	Type   string `json:"type,omitempty"`
	Length int64  `json:"length,omitempty"`
}

// PostField names a staging post column that can be set or cleared individually.
type PostField string

const (
	PostTitleField      PostField = "post_title"
	PostDescField       PostField = "post_desc"
	PostContentsField   PostField = "post_contents"
	PostITunesField     PostField = "post_itunes"
	PostUrlField        PostField = "post_url"
	PostUrlsField       PostField = "post_urls"
	PostImgUrlField     PostField = "post_img_url"
	PostCommentField    PostField = "post_comment"
	PostRightsField     PostField = "post_rights"
	ContributorsField   PostField = "contributors"
	AuthorsField        PostField = "authors"
	PostCategoriesField PostField = "post_categories"
	ExpirationField     PostField = "expiration_timestamp"
	EnclosuresField     PostField = "enclosures"
)
