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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/collectivehq/payouts"
	"github.com/collectivehq/payouts/config"
	redis_db "github.com/collectivehq/payouts/internal/redis-db"
	"github.com/collectivehq/payouts/model"
)

// processPollBatch handles a scheduled poll task: it loads every expense
// carrying the batch id and runs one poll pass over them. An error returned
// here makes asynq retry the task, which is safe because polling is
// idempotent and batch-locked.
func (app *payoutsInstance) processPollBatch(ctx context.Context, t *asynq.Task) error {
	ctx, span := otel.Tracer("payouts.poll.worker").Start(ctx, "Poll Batch From Queue")
	defer span.End()

	var payload payouts.PollBatchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.Error(err)
		return err
	}

	expenses, err := app.payouts.GetExpensesByBatchID(ctx, payload.BatchID)
	if err != nil {
		return err
	}
	if len(expenses) == 0 {
		logrus.Warnf("no expenses found for batch %s, dropping poll task", payload.BatchID)
		return nil
	}

	expenses, err = app.payouts.PollBatch(ctx, expenses)
	if err != nil {
		return err
	}

	if stillProcessing(expenses) {
		logrus.Infof("batch %s still has items in flight, pushing poll back for retry", payload.BatchID)
		return fmt.Errorf("batch %s still processing", payload.BatchID)
	}

	log.Println(" [*] Batch Reconciled", payload.BatchID)
	return nil
}

// stillProcessing reports whether any expense in the batch has not reached a
// terminal status yet.
func stillProcessing(expenses []*model.Expense) bool {
	for _, expense := range expenses {
		if expense.Status == model.ExpenseStatusProcessing {
			return true
		}
	}
	return false
}

func initializeQueues() map[string]int {
	cfg, err := config.Fetch()
	if err != nil {
		log.Printf("Error fetching config, using defaults: %v", err)
		return nil
	}

	queues := make(map[string]int)
	queues[cfg.Queue.PollQueue] = 1
	queues[cfg.Queue.WebhookQueue] = 3
	return queues
}

func initializeWorkerServer(conf *config.Configuration, queues map[string]int) (*asynq.Server, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %v", err)
	}

	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:      redisOption.Addr,
			Password:  redisOption.Password,
			DB:        redisOption.DB,
			TLSConfig: redisOption.TLSConfig,
		},
		asynq.Config{
			Concurrency: 1,
			Queues:      queues,
		},
	), nil
}

func initializeTaskHandlers(app *payoutsInstance, mux *asynq.ServeMux) {
	cfg, err := config.Fetch()
	if err != nil {
		log.Printf("Error fetching config, using defaults: %v", err)
		return
	}

	mux.HandleFunc(cfg.Queue.PollQueue, app.processPollBatch)
	mux.HandleFunc(cfg.Queue.WebhookQueue, payouts.ProcessWebhook)
}

// workerCommands defines the "workers" command: it starts the queue workers
// that poll submitted batches and deliver webhooks.
func workerCommands(app *payoutsInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start payout workers",
		Run: func(cmd *cobra.Command, args []string) {
			conf, err := config.Fetch()
			if err != nil {
				log.Fatal("Error fetching config:", err)
			}

			queues := initializeQueues()

			srv, err := initializeWorkerServer(conf, queues)
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			initializeTaskHandlers(app, mux)

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
