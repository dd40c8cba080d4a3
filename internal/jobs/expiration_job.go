package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/maheshrc27/feedqueue-api/internal/models"
	"github.com/maheshrc27/feedqueue-api/internal/queue"
)

// ExpiringPosts is the part of the post service the job needs.
type ExpiringPosts interface {
	FindExpired(ctx context.Context, at time.Time) ([]*models.StagingPost, error)
	UpdatePostPubStatus(ctx context.Context, username string, id int64, status models.PostPubStatus) error
}

// ExpirationJob takes posts past their expiration out of their feeds.
type ExpirationJob struct {
	posts  ExpiringPosts
	client queue.Enqueuer
	now    func() time.Time
}

func NewExpirationJob(posts ExpiringPosts, client queue.Enqueuer) *ExpirationJob {
	return &ExpirationJob{
		posts:  posts,
		client: client,
		now:    time.Now,
	}
}

// ExpirePosts marks every expired live post DEPUB_PENDING and schedules one
// deploy per affected queue.
func (j *ExpirationJob) ExpirePosts() {
	ctx := context.Background()

	expired, err := j.posts.FindExpired(ctx, j.now())
	if err != nil {
		slog.Info(err.Error())
		return
	}

	queues := map[queue.DeployQueuePayload]int{}
	var order []queue.DeployQueuePayload
	for _, post := range expired {
		if err := j.posts.UpdatePostPubStatus(ctx, post.Username, post.ID, models.DepubPending); err != nil {
			slog.Info(err.Error(), "username", post.Username, "postId", post.ID)
			continue
		}
		key := queue.DeployQueuePayload{Username: post.Username, QueueID: post.QueueID}
		if _, seen := queues[key]; !seen {
			order = append(order, key)
		}
		queues[key]++
	}

	for _, payload := range order {
		if err := queue.EnqueueDeploy(ctx, j.client, payload, 0); err != nil {
			slog.Error(err.Error(), "username", payload.Username, "queueId", payload.QueueID)
			continue
		}
		slog.Info("expired posts scheduled for removal", "username", payload.Username, "queueId", payload.QueueID, "posts", queues[payload])
	}
}
