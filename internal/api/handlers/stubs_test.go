package handlers

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/feedqueue-api/internal/api/middleware"
	"github.com/maheshrc27/feedqueue-api/internal/codec"
	"github.com/maheshrc27/feedqueue-api/internal/etag"
	"github.com/maheshrc27/feedqueue-api/internal/models"
	"github.com/maheshrc27/feedqueue-api/internal/repository"
	"github.com/maheshrc27/feedqueue-api/internal/service"
	"github.com/maheshrc27/feedqueue-api/internal/transfer"
	"github.com/maheshrc27/feedqueue-api/internal/validation"
	"github.com/stretchr/testify/require"
)

const testUser = "alice@example.com"

// callLog records service calls across stubs in order.
type callLog struct {
	calls []string
}

func (l *callLog) add(format string, args ...any) {
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

type stubQueues struct {
	log        *callLog
	queues     map[int64]*models.Queue
	nextID     int64
	autoDeploy bool
}

func newStubQueues(log *callLog) *stubQueues {
	return &stubQueues{log: log, queues: map[int64]*models.Queue{}, nextID: 1}
}

func (s *stubQueues) add(q *models.Queue) *models.Queue {
	if q.ID == 0 {
		q.ID = s.nextID
	}
	if q.Username == "" {
		q.Username = testUser
	}
	if q.TransportIdent == "" {
		q.TransportIdent = fmt.Sprintf("transport-%d", q.ID)
	}
	s.queues[q.ID] = q
	if q.ID >= s.nextID {
		s.nextID = q.ID + 1
	}
	return q
}

func (s *stubQueues) notFound(id any, username string) error {
	return &service.DataAccessError{Resource: "queue", ID: id, Username: username, Err: repository.ErrNotFound}
}

func (s *stubQueues) FindAll(_ context.Context, username string) ([]*models.Queue, error) {
	s.log.add("FindAllQueues")
	var out []*models.Queue
	for id := int64(1); id < s.nextID; id++ {
		if q, ok := s.queues[id]; ok && q.Username == username {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *stubQueues) FindByID(_ context.Context, username string, id int64) (*models.Queue, error) {
	q, ok := s.queues[id]
	if !ok || q.Username != username {
		return nil, s.notFound(id, username)
	}
	return q, nil
}

func (s *stubQueues) ResolveQueueID(_ context.Context, username, ident string) (int64, error) {
	s.log.add("ResolveQueueID:%s", ident)
	for _, q := range s.queues {
		if q.Ident == ident && q.Username == username {
			return q.ID, nil
		}
	}
	return 0, s.notFound(ident, username)
}

func (s *stubQueues) CreateQueue(_ context.Context, username string, req *transfer.QueueConfigRequest) (int64, error) {
	s.log.add("CreateQueue:%s", req.Ident)
	q := s.add(&models.Queue{Ident: req.Ident, Title: req.Title, Username: username, ExportConfig: req.ExportConfig})
	return q.ID, nil
}

func (s *stubQueues) UpdateQueue(_ context.Context, _ string, id int64, req *transfer.QueueConfigRequest, isPatch bool) error {
	s.log.add("UpdateQueue:%d:%t", id, isPatch)
	if req.Title != nil {
		s.queues[id].Title = req.Title
	}
	return nil
}

func (s *stubQueues) UpdateQueueAttribute(_ context.Context, _ string, id int64, attr models.QueueAttribute, value *string, isPatch bool) error {
	s.log.add("UpdateQueueAttribute:%d:%s:%t", id, attr, isPatch)
	q := s.queues[id]
	switch attr {
	case models.QueueTitle:
		q.Title = value
	case models.QueueIdent:
		if value != nil {
			q.Ident = *value
		}
	}
	return nil
}

func (s *stubQueues) ClearQueueAttribute(_ context.Context, _ string, id int64, attr models.QueueAttribute) error {
	s.log.add("ClearQueueAttribute:%d:%s", id, attr)
	if attr == models.QueueTitle {
		s.queues[id].Title = nil
	}
	return nil
}

func (s *stubQueues) UpdateQueueAuthRequirement(_ context.Context, _ string, id int64, required bool) error {
	s.log.add("UpdateQueueAuthRequirement:%d:%t", id, required)
	s.queues[id].IsAuthenticated = required
	return nil
}

func (s *stubQueues) UpdateExportOptions(_ context.Context, _ string, id int64, cfg *models.ExportConfig, isPatch bool) error {
	s.log.add("UpdateExportOptions:%d:%t", id, isPatch)
	s.queues[id].ExportConfig = cfg
	return nil
}

func (s *stubQueues) ClearExportOptions(_ context.Context, _ string, id int64) error {
	s.log.add("ClearExportOptions:%d", id)
	s.queues[id].ExportConfig = nil
	return nil
}

func (s *stubQueues) UpdateAtomConfig(_ context.Context, _ string, id int64, cfg *models.Atom10Config, isPatch bool) error {
	s.log.add("UpdateAtomConfig:%d:%t", id, isPatch)
	q := s.queues[id]
	if q.ExportConfig == nil {
		q.ExportConfig = &models.ExportConfig{}
	}
	q.ExportConfig.AtomConfig = cfg
	return nil
}

func (s *stubQueues) ClearAtomConfig(_ context.Context, _ string, id int64) error {
	s.log.add("ClearAtomConfig:%d", id)
	return nil
}

func (s *stubQueues) UpdateRSSConfig(_ context.Context, _ string, id int64, cfg *models.RSS20Config, isPatch bool) error {
	s.log.add("UpdateRSSConfig:%d:%t", id, isPatch)
	q := s.queues[id]
	if q.ExportConfig == nil {
		q.ExportConfig = &models.ExportConfig{}
	}
	q.ExportConfig.RSSConfig = cfg
	return nil
}

func (s *stubQueues) ClearRSSConfig(_ context.Context, _ string, id int64) error {
	s.log.add("ClearRSSConfig:%d", id)
	return nil
}

func (s *stubQueues) IsAutoDeploy(_ context.Context, _ string, id int64) (bool, error) {
	s.log.add("IsAutoDeploy:%d", id)
	return s.autoDeploy, nil
}

func (s *stubQueues) UpdateLastDeployed(_ context.Context, _ string, id int64, at time.Time, _ string) error {
	s.queues[id].LastDeployed = &at
	return nil
}

func (s *stubQueues) DeleteByID(_ context.Context, _ string, id int64) error {
	s.log.add("DeleteQueue:%d", id)
	delete(s.queues, id)
	return nil
}

type stubPosts struct {
	log   *callLog
	posts map[int64]*models.StagingPost
}

func newStubPosts(log *callLog) *stubPosts {
	return &stubPosts{log: log, posts: map[int64]*models.StagingPost{}}
}

func (s *stubPosts) add(p *models.StagingPost) *models.StagingPost {
	if p.Username == "" {
		p.Username = testUser
	}
	if p.PostTitle == nil {
		p.PostTitle = &models.ContentObject{Ident: "t", Type: "text", Value: fmt.Sprintf("Post %d", p.ID)}
	}
	s.posts[p.ID] = p
	return p
}

func (s *stubPosts) FindByID(_ context.Context, username string, id int64) (*models.StagingPost, error) {
	s.log.add("FindPost:%d", id)
	p, ok := s.posts[id]
	if !ok || p.Username != username {
		return nil, &service.DataAccessError{Resource: "post", ID: id, Username: username, Err: repository.ErrNotFound}
	}
	copied := *p
	return &copied, nil
}

func (s *stubPosts) byQueue(queueID int64, keep func(*models.StagingPost) bool) []*models.StagingPost {
	var out []*models.StagingPost
	for _, id := range slices.Sorted(maps.Keys(s.posts)) {
		if p := s.posts[id]; p.QueueID == queueID && keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func (s *stubPosts) FindByQueueID(_ context.Context, _ string, queueID int64) ([]*models.StagingPost, error) {
	s.log.add("FindPostsByQueue:%d", queueID)
	return s.byQueue(queueID, func(*models.StagingPost) bool { return true }), nil
}

func (s *stubPosts) FindPendingByQueueID(_ context.Context, _ string, queueID int64) ([]*models.StagingPost, error) {
	s.log.add("FindPendingByQueue:%d", queueID)
	return s.byQueue(queueID, func(p *models.StagingPost) bool { return p.PostPubStatus != models.PubStatusNone }), nil
}

func (s *stubPosts) FindPublishedByQueueID(_ context.Context, _ string, queueID int64) ([]*models.StagingPost, error) {
	return s.byQueue(queueID, (*models.StagingPost).IsPublished), nil
}

func (s *stubPosts) FindExpired(context.Context, time.Time) ([]*models.StagingPost, error) {
	return nil, nil
}

func (s *stubPosts) CreatePost(_ context.Context, username string, queueID int64, post *models.StagingPost) (int64, error) {
	id := int64(len(s.posts) + 1)
	s.log.add("CreatePost:%d", queueID)
	post.ID, post.QueueID, post.Username = id, queueID, username
	s.posts[id] = post
	return id, nil
}

func (s *stubPosts) UpdatePost(_ context.Context, _ string, id int64, post *models.StagingPost, isPatch bool) error {
	s.log.add("UpdatePost:%d:%t", id, isPatch)
	if post.PostTitle != nil {
		s.posts[id].PostTitle = post.PostTitle
	}
	return nil
}

func (s *stubPosts) UpdatePostField(_ context.Context, _ string, id int64, field models.PostField, value any, isPatch bool) error {
	s.log.add("UpdatePostField:%d:%s:%t", id, field, isPatch)
	p := s.posts[id]
	switch v := value.(type) {
	case *string:
		if field == models.PostCommentField {
			p.PostComment = v
		}
	case *time.Time:
		p.ExpirationTimestamp = v
	case *models.ContentObject:
		if field == models.PostTitleField {
			p.PostTitle = v
		}
	case []string:
		p.PostCategories = v
	}
	return nil
}

func (s *stubPosts) ClearPostField(_ context.Context, _ string, id int64, field models.PostField) error {
	s.log.add("ClearPostField:%d:%s", id, field)
	if field == models.PostCommentField {
		s.posts[id].PostComment = nil
	}
	return nil
}

func (s *stubPosts) UpdatePostQueue(_ context.Context, _ string, id, queueID int64) error {
	s.log.add("UpdatePostQueue:%d:%d", id, queueID)
	s.posts[id].QueueID = queueID
	return nil
}

func (s *stubPosts) UpdatePostPubStatus(_ context.Context, _ string, id int64, status models.PostPubStatus) error {
	s.log.add("UpdatePostPubStatus:%d:%s", id, status)
	s.posts[id].PostPubStatus = status
	return nil
}

func (s *stubPosts) UpdateQueuePubStatus(_ context.Context, _ string, queueID int64, status models.PostPubStatus) (int64, error) {
	s.log.add("UpdateQueuePubStatus:%d:%s", queueID, status)
	var n int64
	for _, p := range s.byQueue(queueID, func(*models.StagingPost) bool { return true }) {
		p.PostPubStatus = status
		n++
	}
	return n, nil
}

func (s *stubPosts) MarkPublished(context.Context, string, []int64, time.Time) error { return nil }

func (s *stubPosts) MarkUnpublished(context.Context, string, []int64) error { return nil }

func (s *stubPosts) DeleteByID(_ context.Context, _ string, id int64) error {
	s.log.add("DeletePost:%d", id)
	delete(s.posts, id)
	return nil
}

func (s *stubPosts) DeleteByQueueID(_ context.Context, _ string, queueID int64) (int64, error) {
	s.log.add("DeletePostsByQueue:%d", queueID)
	var n int64
	for id, p := range s.posts {
		if p.QueueID == queueID {
			delete(s.posts, id)
			n++
		}
	}
	return n, nil
}

// stubPublisher answers every deploy with one result per channel.
type stubPublisher struct {
	log       *callLog
	published [][]*models.StagingPost
	at        time.Time
}

func (s *stubPublisher) results(url bool) map[string]*models.PubResult {
	out := map[string]*models.PubResult{}
	for channel, file := range map[string]string{
		models.ChannelRSS20:  "rss.xml",
		models.ChannelAtom10: "atom.xml",
		models.ChannelJSON:   "feed.json",
	} {
		r := &models.PubResult{Channel: channel, PubDate: s.at}
		if url {
			r.URL = "https://feeds.example.com/transport/" + file
		}
		out[channel] = r
	}
	return out
}

func (s *stubPublisher) PublishFeed(_ context.Context, _ string, queueID int64, posts []*models.StagingPost) (map[string]*models.PubResult, error) {
	s.log.add("PublishFeed:%d:%d", queueID, len(posts))
	s.published = append(s.published, posts)
	return s.results(true), nil
}

func (s *stubPublisher) UnpublishFeed(_ context.Context, _ string, queueID int64) (map[string]*models.PubResult, error) {
	s.log.add("UnpublishFeed:%d", queueID)
	return s.results(false), nil
}

type testEnv struct {
	app       *fiber.App
	log       *callLog
	queues    *stubQueues
	posts     *stubPosts
	publisher *stubPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := &callLog{}
	env := &testEnv{
		log:       log,
		queues:    newStubQueues(log),
		posts:     newStubPosts(log),
		publisher: &stubPublisher{log: log, at: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
	}

	validator, err := validation.NewValidator()
	require.NoError(t, err)
	c := codec.New()
	collab := &Collaborators{
		Queues:     env.queues,
		Posts:      env.posts,
		Publisher:  env.publisher,
		ETagger:    etag.New(),
		Validator:  validator,
		Codec:      c,
		Negotiator: NewNegotiator(c),
		Audit:      service.NewAppLogService(nil),
	}

	env.app = fiber.New(NewFiberConfig(c, collab.Audit))
	authenticate := func(c *fiber.Ctx) error {
		c.Locals(middleware.UsernameKey, testUser)
		return c.Next()
	}
	noTx := func(c *fiber.Ctx) error { return c.Next() }
	RegisterRoutes(env.app, Handlers{
		Queues: NewQueueHandler(collab),
		Posts:  NewPostHandler(collab),
	}, authenticate, noTx)
	return env
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
