package models

import "time"

// Queue is a user's feed definition. DeployedTransport is the transport
// ident the live documents were last written under.
type Queue struct {
	ID                int64         `db:"id" json:"id"`
	Ident             string        `db:"ident" json:"ident"`
	Title             *string       `db:"title" json:"title"`
	Description       *string       `db:"description" json:"description"`
	Generator         *string       `db:"generator" json:"generator"`
	TransportIdent    string        `db:"transport_ident" json:"transport_ident"`
	Username          string        `db:"username" json:"username"`
	ExportConfig      *ExportConfig `db:"export_config" json:"export_config"`
	Copyright         *string       `db:"copyright" json:"copyright"`
	Language          *string       `db:"language" json:"language"`
	QueueImgSrc       *string       `db:"queue_img_src" json:"queue_img_src"`
	IsAuthenticated   bool          `db:"is_authenticated" json:"is_authenticated"`
	LastDeployed      *time.Time    `db:"last_deployed" json:"last_deployed"`
	DeployedTransport *string       `db:"deployed_transport" json:"deployed_transport"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
}

// IsAutoDeploy reports whether post status changes deploy the feed immediately.
func (q *Queue) IsAutoDeploy() bool {
	return q.ExportConfig != nil && q.ExportConfig.IsAutoDeploy != nil && *q.ExportConfig.IsAutoDeploy
}

// MaxPublished returns the item cap for rendered feeds, zero meaning unbounded.
func (q *Queue) MaxPublished() int {
	if q.ExportConfig == nil || q.ExportConfig.MaxPublished == nil {
		return 0
	}
	return *q.ExportConfig.MaxPublished
}

// ExportConfig is stored as a single jsonb column on the queue.
type ExportConfig struct {
	AtomConfig   *Atom10Config `json:"atomConfig,omitempty"`
	RSSConfig    *RSS20Config  `json:"rssConfig,omitempty"`
	MaxPublished *int          `json:"maxPublished,omitempty"`
	IsAutoDeploy *bool         `json:"isAutoDeploy,omitempty"`
}

type Atom10Config struct {
	AuthorName       string `json:"authorName,omitempty"`
	AuthorEmail      string `json:"authorEmail,omitempty"`
	AuthorUri        string `json:"authorUri,omitempty"`
	ContributorName  string `json:"contributorName,omitempty"`
	ContributorEmail string `json:"contributorEmail,omitempty"`
	ContributorUri   string `json:"contributorUri,omitempty"`
	Category         string `json:"category,omitempty"`
}

type RSS20Config struct {
	ManagingEditor string `json:"managingEditor,omitempty"`
	WebMaster      string `json:"webMaster,omitempty"`
	Categories     string `json:"categories,omitempty"`
	Docs           string `json:"docs,omitempty"`
	Rating         string `json:"rating,omitempty"`
	Ttl            *int   `json:"ttl,omitempty"`
	SkipHours      string `json:"skipHours,omitempty"`
	SkipDays       string `json:"skipDays,omitempty"`
}

// QueueAttribute names the plain string columns of a queue that can be set or cleared individually.
type QueueAttribute string

const (
	QueueIdent       QueueAttribute = "ident"
	QueueTitle       QueueAttribute = "title"
	QueueDescription QueueAttribute = "description"
	QueueGenerator   QueueAttribute = "generator"
	QueueTransport   QueueAttribute = "transport_ident"
	QueueCopyright   QueueAttribute = "copyright"
	QueueLanguage    QueueAttribute = "language"
	QueueImgSrc      QueueAttribute = "queue_img_src"
)

// Bulk status requests accepted by the queue status resource.
type QueuePubStatus string

const (
	QueueDeployPending QueuePubStatus = "DEPLOY_PENDING"
	QueuePubAll        QueuePubStatus = "PUB_ALL"
	QueueDepubAll      QueuePubStatus = "DEPUB_ALL"
)
