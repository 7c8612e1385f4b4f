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
	"fmt"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/collectivehq/payouts/config"
	"github.com/collectivehq/payouts/internal/notification"
	"github.com/collectivehq/payouts/internal/request"
	"github.com/collectivehq/payouts/model"
)

// NewWebhook is the envelope delivered to the configured webhook endpoint
// whenever an expense changes payout state.
type NewWebhook struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"data"`
}

// getEventFromStatus maps an expense status to its webhook event name.
func getEventFromStatus(status string) string {
	switch status {
	case model.ExpenseStatusProcessing:
		return model.ActivityExpenseProcessing
	case model.ExpenseStatusPaid:
		return model.ActivityExpensePaid
	case model.ExpenseStatusError:
		return model.ActivityExpenseError
	default:
		return fmt.Sprintf("expense.%s", status)
	}
}

// SendWebhook enqueues a webhook for the expense's current status. Delivery
// happens off the reconciliation path; enqueue failures are reported and
// never interrupt the caller.
func (p *Payouts) SendWebhook(ctx context.Context, expense *model.Expense) {
	cfg, err := config.Fetch()
	if err != nil {
		notification.NotifyError(err)
		return
	}
	if cfg.Notification.Webhook.Url == "" || p.queue == nil {
		return
	}

	webhook := &NewWebhook{
		Event:   getEventFromStatus(expense.Status),
		Payload: expense,
	}
	if err := p.queue.queueWebhook(ctx, webhook); err != nil {
		logrus.Errorf("failed to enqueue webhook for expense %d: %v", expense.ID, err)
		notification.NotifyError(err)
	}
}

// ProcessWebhook is the task handler delivering one queued webhook to the
// configured endpoint.
func ProcessWebhook(ctx context.Context, task *asynq.Task) error {
	var webhook NewWebhook
	if err := json.Unmarshal(task.Payload(), &webhook); err != nil {
		return err
	}

	cfg, err := config.Fetch()
	if err != nil {
		return err
	}
	if cfg.Notification.Webhook.Url == "" {
		logrus.Warn("webhook endpoint no longer configured, dropping delivery")
		return nil
	}

	payload, err := request.ToJsonReq(&webhook)
	if err != nil {
		return err
	}

	deliveryCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(deliveryCtx, http.MethodPost, cfg.Notification.Webhook.Url, payload)
	if err != nil {
		return err
	}
	for key, value := range cfg.Notification.Webhook.Headers {
		req.Header.Set(key, value)
	}

	resp, err := request.Call(req, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned status %d for event %s", resp.StatusCode, webhook.Event)
	}

	logrus.Infof("delivered webhook event %s", webhook.Event)
	return nil
}
