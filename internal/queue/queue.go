package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// DeployTaskID identifies the pending deploy of a queue so repeated requests
// collapse into one task.
func DeployTaskID(payload DeployQueuePayload) string {
	return fmt.Sprintf("%s:%s:%d", TaskTypeDeployQueue, payload.Username, payload.QueueID)
}

// EnqueueDeploy schedules a deploy of the queue after delay. A deploy that is
// already waiting for the same queue is left as is.
func EnqueueDeploy(ctx context.Context, client Enqueuer, payload DeployQueuePayload, delay time.Duration) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeDeployQueue, taskPayload)

	_, err = client.EnqueueContext(ctx, task,
		asynq.TaskID(DeployTaskID(payload)),
		asynq.ProcessIn(delay),
		asynq.MaxRetry(5),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return err
	}

	log.Printf("Task scheduled: %+v", payload)
	return nil
}
