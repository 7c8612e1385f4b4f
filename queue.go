/*
Copyright 2024 CollectiveHQ Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package payouts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/collectivehq/payouts/config"
	redis_db "github.com/collectivehq/payouts/internal/redis-db"
)

// Queue wraps the task queue used to schedule batch polls and deliver
// webhooks off the request path.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// PollBatchPayload is the body of a scheduled poll task.
type PollBatchPayload struct {
	BatchID string `json:"batch_id"`
}

// NewQueue initializes a new Queue instance from the application
// configuration.
func NewQueue(conf *config.Configuration) *Queue {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	queueOptions := asynq.RedisClientOpt{
		Addr:     redisOption.Addr,
		Password: redisOption.Password,
		DB:       redisOption.DB,
	}

	client := asynq.NewClient(queueOptions)
	inspector := asynq.NewInspector(queueOptions)
	return &Queue{
		Client:    client,
		Inspector: inspector,
	}
}

// queuePollBatch schedules a poll of the given provider batch after the
// configured delay. The task id is derived from the batch id so a batch
// submitted twice only ever has one pending poll.
func (q *Queue) queuePollBatch(ctx context.Context, batchID string) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(PollBatchPayload{BatchID: batchID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(cfg.Queue.PollQueue, payload)
	info, err := q.Client.EnqueueContext(ctx, task,
		asynq.TaskID(fmt.Sprintf("poll_%s", batchID)),
		asynq.Queue(cfg.Queue.PollQueue),
		asynq.ProcessIn(time.Duration(cfg.Queue.PollDelaySec)*time.Second),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			logrus.Infof("poll already scheduled for batch %s", batchID)
			return nil
		}
		return err
	}

	logrus.Infof("scheduled poll task %s on queue %s for batch %s", info.ID, info.Queue, batchID)
	return nil
}

// queueWebhook enqueues an outbound webhook delivery.
func (q *Queue) queueWebhook(ctx context.Context, webhook *NewWebhook) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(webhook)
	if err != nil {
		return err
	}

	task := asynq.NewTask(cfg.Queue.WebhookQueue, payload)
	info, err := q.Client.EnqueueContext(ctx, task, asynq.Queue(cfg.Queue.WebhookQueue))
	if err != nil {
		return err
	}
	logrus.Infof("enqueued webhook task %s on queue %s", info.ID, info.Queue)
	return nil
}
