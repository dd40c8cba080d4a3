package queue

import (
	"context"
	"time"

	"github.com/maheshrc27/feedqueue-api/internal/models"
	"github.com/maheshrc27/feedqueue-api/internal/service"
)

// PendingPosts is the part of the post service a deploy needs.
type PendingPosts interface {
	FindPendingByQueueID(ctx context.Context, username string, queueID int64) ([]*models.StagingPost, error)
}

// DeployModes reports whether a queue deploys status changes on its own.
type DeployModes interface {
	IsAutoDeploy(ctx context.Context, username string, queueID int64) (bool, error)
}

type Queue struct {
	posts     PendingPosts
	modes     DeployModes
	publisher service.PostPublisher
	now       func() time.Time
}

func NewQueue(posts PendingPosts, modes DeployModes, publisher service.PostPublisher) *Queue {
	return &Queue{
		posts:     posts,
		modes:     modes,
		publisher: publisher,
		now:       time.Now,
	}
}

const TaskTypeDeployQueue = "deploy:queue"

type DeployQueuePayload struct {
	Username string `json:"username"`
	QueueID  int64  `json:"queueId"`
}
