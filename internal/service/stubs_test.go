package service

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/maheshrc27/feedqueue-api/internal/models"
	"github.com/maheshrc27/feedqueue-api/internal/repository"
)

type memQueueRepo struct {
	mu     sync.Mutex
	nextID int64
	queues map[int64]*models.Queue
}

func newMemQueueRepo() *memQueueRepo {
	return &memQueueRepo{queues: map[int64]*models.Queue{}}
}

func (r *memQueueRepo) get(username string, id int64) (*models.Queue, error) {
	q, ok := r.queues[id]
	if !ok || q.Username != username {
		return nil, repository.ErrNotFound
	}
	return q, nil
}

func (r *memQueueRepo) GetByID(_ context.Context, username string, id int64) (*models.Queue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, err := r.get(username, id)
	if err != nil {
		return nil, err
	}
	c := *q
	return &c, nil
}

func (r *memQueueRepo) GetByIdent(_ context.Context, username, ident string) (*models.Queue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range r.queues {
		if q.Username == username && q.Ident == ident {
			c := *q
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memQueueRepo) GetByUsername(_ context.Context, username string) ([]*models.Queue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Queue
	for id := int64(1); id <= r.nextID; id++ {
		if q, ok := r.queues[id]; ok && q.Username == username {
			c := *q
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *memQueueRepo) Create(_ context.Context, queue *models.Queue) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range r.queues {
		if q.Username == queue.Username && q.Ident == queue.Ident {
			return 0, repository.ErrDuplicate
		}
	}
	r.nextID++
	c := *queue
	c.ID = r.nextID
	r.queues[c.ID] = &c
	return c.ID, nil
}

func (r *memQueueRepo) Update(_ context.Context, queue *models.Queue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.get(queue.Username, queue.ID); err != nil {
		return err
	}
	c := *queue
	r.queues[queue.ID] = &c
	return nil
}

func (r *memQueueRepo) UpdateAttribute(_ context.Context, username string, id int64, attr models.QueueAttribute, value *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, err := r.get(username, id)
	if err != nil {
		return err
	}
	switch attr {
	case models.QueueIdent:
		q.Ident = *value
	case models.QueueTitle:
		q.Title = value
	case models.QueueDescription:
		q.Description = value
	case models.QueueGenerator:
		q.Generator = value
	case models.QueueTransport:
		q.TransportIdent = *value
	case models.QueueCopyright:
		q.Copyright = value
	case models.QueueLanguage:
		q.Language = value
	case models.QueueImgSrc:
		q.QueueImgSrc = value
	}
	return nil
}

func (r *memQueueRepo) UpdateAuthRequirement(_ context.Context, username string, id int64, required bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, err := r.get(username, id)
	if err != nil {
		return err
	}
	q.IsAuthenticated = required
	return nil
}

func (r *memQueueRepo) UpdateExportConfig(_ context.Context, username string, id int64, cfg *models.ExportConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, err := r.get(username, id)
	if err != nil {
		return err
	}
	q.ExportConfig = cfg
	return nil
}

func (r *memQueueRepo) UpdateLastDeployed(_ context.Context, username string, id int64, at time.Time, transport string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, err := r.get(username, id)
	if err != nil {
		return err
	}
	q.LastDeployed = &at
	q.DeployedTransport = &transport
	return nil
}

func (r *memQueueRepo) Remove(_ context.Context, username string, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.get(username, id); err != nil {
		return err
	}
	delete(r.queues, id)
	return nil
}

type memPostRepo struct {
	mu     sync.Mutex
	nextID int64
	posts  map[int64]*models.StagingPost
}

func newMemPostRepo() *memPostRepo {
	return &memPostRepo{posts: map[int64]*models.StagingPost{}}
}

func (r *memPostRepo) get(username string, id int64) (*models.StagingPost, error) {
	p, ok := r.posts[id]
	if !ok || p.Username != username {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (r *memPostRepo) filter(keep func(*models.StagingPost) bool) []*models.StagingPost {
	var out []*models.StagingPost
	for id := int64(1); id <= r.nextID; id++ {
		if p, ok := r.posts[id]; ok && keep(p) {
			c := *p
			out = append(out, &c)
		}
	}
	return out
}

func (r *memPostRepo) GetByID(_ context.Context, username string, id int64) (*models.StagingPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.get(username, id)
	if err != nil {
		return nil, err
	}
	c := *p
	return &c, nil
}

func (r *memPostRepo) GetByQueueID(_ context.Context, username string, queueID int64) ([]*models.StagingPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(p *models.StagingPost) bool { return p.Username == username && p.QueueID == queueID }), nil
}

func (r *memPostRepo) GetByQueueIDAndStatus(_ context.Context, username string, queueID int64, statuses ...models.PostPubStatus) ([]*models.StagingPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(p *models.StagingPost) bool {
		return p.Username == username && p.QueueID == queueID && slices.Contains(statuses, p.PostPubStatus)
	}), nil
}

func (r *memPostRepo) GetPublishedByQueueID(_ context.Context, username string, queueID int64) ([]*models.StagingPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(p *models.StagingPost) bool {
		return p.Username == username && p.QueueID == queueID && p.PublishTimestamp != nil
	}), nil
}

func (r *memPostRepo) GetExpired(_ context.Context, now time.Time) ([]*models.StagingPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(p *models.StagingPost) bool {
		return p.PublishTimestamp != nil && p.ExpirationTimestamp != nil && p.ExpirationTimestamp.Before(now)
	}), nil
}

func (r *memPostRepo) Create(_ context.Context, post *models.StagingPost) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c := *post
	c.ID = r.nextID
	r.posts[c.ID] = &c
	return c.ID, nil
}

func (r *memPostRepo) Update(_ context.Context, post *models.StagingPost) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.get(post.Username, post.ID); err != nil {
		return err
	}
	c := *post
	r.posts[post.ID] = &c
	return nil
}

func (r *memPostRepo) UpdateField(_ context.Context, username string, id int64, field models.PostField, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.get(username, id)
	if err != nil {
		return err
	}
	if value == nil {
		clearField(p, field)
		return nil
	}
	return setPostField(p, field, value, false)
}

func clearField(p *models.StagingPost, field models.PostField) {
	_ = setPostField(p, field, nil, false)
}

func (r *memPostRepo) UpdateQueueID(_ context.Context, username string, id, queueID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.get(username, id)
	if err != nil {
		return err
	}
	p.QueueID = queueID
	return nil
}

func (r *memPostRepo) UpdatePubStatus(_ context.Context, username string, id int64, status models.PostPubStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.get(username, id)
	if err != nil {
		return err
	}
	p.PostPubStatus = status
	return nil
}

func (r *memPostRepo) UpdateQueuePubStatus(_ context.Context, username string, queueID int64, status models.PostPubStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.posts {
		if p.Username == username && p.QueueID == queueID {
			p.PostPubStatus = status
			n++
		}
	}
	return n, nil
}

func (r *memPostRepo) MarkPublished(_ context.Context, username string, ids []int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if p, err := r.get(username, id); err == nil {
			if p.PublishTimestamp == nil {
				p.PublishTimestamp = &at
			}
			p.PostPubStatus = models.PubStatusNone
		}
	}
	return nil
}

func (r *memPostRepo) MarkUnpublished(_ context.Context, username string, ids []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if p, err := r.get(username, id); err == nil {
			p.PublishTimestamp = nil
			p.PostPubStatus = models.PubStatusNone
		}
	}
	return nil
}

func (r *memPostRepo) Remove(_ context.Context, username string, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.get(username, id); err != nil {
		return err
	}
	delete(r.posts, id)
	return nil
}

func (r *memPostRepo) RemoveByQueueID(_ context.Context, username string, queueID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, p := range r.posts {
		if p.Username == username && p.QueueID == queueID {
			delete(r.posts, id)
			n++
		}
	}
	return n, nil
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	deleted []string
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *memStore) Put(_ context.Context, key string, body []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = body
	s.types[key] = contentType
	return nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }
