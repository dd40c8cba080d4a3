package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/feedqueue-api/internal/models"
)

func (j *Queue) HandleDeployQueueTask(ctx context.Context, task *asynq.Task) error {
	var payload DeployQueuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", TaskTypeDeployQueue, err, asynq.SkipRetry)
	}
	if payload.Username == "" || payload.QueueID <= 0 {
		return fmt.Errorf("invalid %s payload %+v: %w", TaskTypeDeployQueue, payload, asynq.SkipRetry)
	}

	return j.DeployQueue(ctx, payload.Username, payload.QueueID)
}

// DeployQueue publishes the queue with the posts still waiting on a status
// change. Manual queues only lose their expired posts; everything else waits
// for the owner's explicit deploy.
func (j *Queue) DeployQueue(ctx context.Context, username string, queueID int64) error {
	pending, err := j.posts.FindPendingByQueueID(ctx, username, queueID)
	if err != nil {
		slog.Error(err.Error(), "username", username, "queueId", queueID)
		return err
	}
	autoDeploy, err := j.modes.IsAutoDeploy(ctx, username, queueID)
	if err != nil {
		slog.Error(err.Error(), "username", username, "queueId", queueID)
		return err
	}
	if !autoDeploy {
		pending = expiredOnly(pending, j.now())
	}

	results, err := j.publisher.PublishFeed(ctx, username, queueID, pending)
	if err != nil {
		slog.Error(err.Error(), "username", username, "queueId", queueID)
		return err
	}

	slog.Info("queue deployed", "username", username, "queueId", queueID, "posts", len(pending), "channels", len(results))
	return nil
}

func expiredOnly(posts []*models.StagingPost, now time.Time) []*models.StagingPost {
	var out []*models.StagingPost
	for _, post := range posts {
		if post.PostPubStatus == models.DepubPending &&
			post.ExpirationTimestamp != nil && !post.ExpirationTimestamp.After(now) {
			out = append(out, post)
		}
	}
	return out
}
