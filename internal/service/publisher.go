package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/maheshrc27/feedqueue-api/internal/models"
)

// PostPublisher deploys a queue's rendered feeds.
type PostPublisher interface {
	// PublishFeed redeploys the queue. posts carries the posts whose pending
	// status should be resolved by this deploy, or that changed while live.
	PublishFeed(ctx context.Context, username string, queueID int64, posts []*models.StagingPost) (map[string]*models.PubResult, error)
	// UnpublishFeed removes every deployed document of the queue.
	UnpublishFeed(ctx context.Context, username string, queueID int64) (map[string]*models.PubResult, error)
}

type feedPublisher struct {
	queues  QueueDefinitionService
	posts   StagingPostService
	store   ObjectStore
	baseURL string
	now     func() time.Time
}

func NewPostPublisher(queues QueueDefinitionService, posts StagingPostService, store ObjectStore, baseURL string) PostPublisher {
	return &feedPublisher{
		queues:  queues,
		posts:   posts,
		store:   store,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

func (p *feedPublisher) PublishFeed(ctx context.Context, username string, queueID int64, posts []*models.StagingPost) (map[string]*models.PubResult, error) {
	queue, err := p.queues.FindByID(ctx, username, queueID)
	if err != nil {
		return nil, err
	}
	live, err := p.posts.FindPublishedByQueueID(ctx, username, queueID)
	if err != nil {
		return nil, err
	}

	builtAt := p.now().UTC().Truncate(time.Millisecond)
	items, toPublish, toUnpublish := assembleItems(live, posts)
	if limit := queue.MaxPublished(); limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	src := &feedSource{
		queue:   queue,
		items:   items,
		builtAt: builtAt,
		homeURL: p.objectURL(queue, ""),
		urls:    make(map[string]string, len(publishChannels)),
	}
	for _, channel := range publishChannels {
		src.urls[channel] = p.objectURL(queue, channelFiles[channel].name)
	}

	if queue.QueueImgSrc != nil && *queue.QueueImgSrc != "" {
		data, mime, err := DecodeImageSource(*queue.QueueImgSrc)
		if err != nil {
			return nil, err
		}
		if err := p.store.Put(ctx, objectKey(queue, queueImageFile), data, mime); err != nil {
			return nil, &DataUpdateError{Op: "upload queue image", Err: err}
		}
		src.imageURL = p.objectURL(queue, queueImageFile)
	}

	results := make(map[string]*models.PubResult, len(publishChannels))
	for _, channel := range publishChannels {
		body, err := renderFeed(channel, src)
		if err != nil {
			slog.Info(err.Error(), "channel", channel, "queue_id", queueID)
			return nil, &DataUpdateError{Op: "render " + channel, Err: err}
		}
		file := channelFiles[channel]
		if err := p.store.Put(ctx, objectKey(queue, file.name), body, file.contentType); err != nil {
			return nil, &DataUpdateError{Op: "publish " + channel, Err: err}
		}
		results[channel] = &models.PubResult{Channel: channel, URL: src.urls[channel], PubDate: builtAt}
	}

	if old := queue.DeployedTransport; old != nil && *old != "" && *old != queue.TransportIdent {
		if err := p.removeDocuments(ctx, *old, true); err != nil {
			return nil, err
		}
		slog.Info("feed moved", "username", username, "queue_id", queueID, "from", *old, "to", queue.TransportIdent)
	}

	if err := p.posts.MarkPublished(ctx, username, toPublish, builtAt); err != nil {
		return nil, err
	}
	if err := p.posts.MarkUnpublished(ctx, username, toUnpublish); err != nil {
		return nil, err
	}
	if err := p.queues.UpdateLastDeployed(ctx, username, queueID, builtAt, queue.TransportIdent); err != nil {
		return nil, err
	}

	slog.Info("feed published", "username", username, "queue_id", queueID,
		"items", len(items), "published", len(toPublish), "unpublished", len(toUnpublish))
	return results, nil
}

func (p *feedPublisher) UnpublishFeed(ctx context.Context, username string, queueID int64) (map[string]*models.PubResult, error) {
	queue, err := p.queues.FindByID(ctx, username, queueID)
	if err != nil {
		return nil, err
	}

	at := p.now().UTC().Truncate(time.Millisecond)
	if err := p.removeDocuments(ctx, queue.TransportIdent, queue.QueueImgSrc != nil); err != nil {
		return nil, err
	}
	if old := queue.DeployedTransport; old != nil && *old != "" && *old != queue.TransportIdent {
		if err := p.removeDocuments(ctx, *old, true); err != nil {
			return nil, err
		}
	}
	results := make(map[string]*models.PubResult, len(publishChannels))
	for _, channel := range publishChannels {
		results[channel] = &models.PubResult{Channel: channel, PubDate: at}
	}

	slog.Info("feed unpublished", "username", username, "queue_id", queueID)
	return results, nil
}

// assembleItems merges the live posts with the posts of this deploy, newest first.
func assembleItems(live, posts []*models.StagingPost) (items []*models.StagingPost, toPublish, toUnpublish []int64) {
	byID := make(map[int64]*models.StagingPost, len(live)+len(posts))
	for _, post := range live {
		byID[post.ID] = post
	}
	for _, post := range posts {
		switch post.PostPubStatus {
		case models.DepubPending:
			delete(byID, post.ID)
			toUnpublish = append(toUnpublish, post.ID)
		case models.PubPending:
			byID[post.ID] = post
			toPublish = append(toPublish, post.ID)
		default:
			if post.IsPublished() {
				byID[post.ID] = post
			}
		}
	}

	items = make([]*models.StagingPost, 0, len(byID))
	for _, post := range byID {
		items = append(items, post)
	}
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i].PublishTimestamp, items[j].PublishTimestamp
		switch {
		case a == nil && b == nil:
			return items[i].ID > items[j].ID
		case a == nil:
			return true
		case b == nil:
			return false
		case a.Equal(*b):
			return items[i].ID > items[j].ID
		}
		return a.After(*b)
	})
	return items, toPublish, toUnpublish
}

// removeDocuments deletes the channel documents stored under transport.
func (p *feedPublisher) removeDocuments(ctx context.Context, transport string, withImage bool) error {
	for _, channel := range publishChannels {
		if err := p.store.Delete(ctx, transportKey(transport, channelFiles[channel].name)); err != nil {
			return &DataUpdateError{Op: "unpublish " + channel, Err: err}
		}
	}
	if withImage {
		if err := p.store.Delete(ctx, transportKey(transport, queueImageFile)); err != nil {
			return &DataUpdateError{Op: "delete queue image", Err: err}
		}
	}
	return nil
}

func objectKey(q *models.Queue, file string) string {
	return transportKey(q.TransportIdent, file)
}

func transportKey(transport, file string) string {
	return transport + "/" + file
}

func (p *feedPublisher) objectURL(q *models.Queue, file string) string {
	return p.baseURL + "/" + objectKey(q, file)
}
