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
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/collectivehq/payouts/internal/apierror"
	"github.com/collectivehq/payouts/internal/notification"
	"github.com/collectivehq/payouts/model"
)

// submitFanOutLimit bounds how many per-expense updates run at once after a
// submission resolves.
const submitFanOutLimit = 10

// SubmitBatch submits a same-host set of expenses to the provider as one
// batch. Provider failure is converted into expense state, never returned:
// on rejection every expense in the batch is marked ERROR. Precondition
// failures (empty set, mixed hosts, missing host or account) are returned
// before anything is mutated or sent.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - expenses []*model.Expense: The expenses to submit, in batch order.
//
// Returns:
// - []*model.Expense: The same expenses, statuses updated in place.
// - error: A precondition error, or nil; provider errors never surface here.
func (p *Payouts) SubmitBatch(ctx context.Context, expenses []*model.Expense) ([]*model.Expense, error) {
	ctx, span := tracer.Start(ctx, "SubmitBatch")
	defer span.End()

	if len(expenses) == 0 {
		return nil, apierror.NewAPIError(apierror.ErrPrecondition, "Cannot submit an empty expense batch", nil)
	}

	host, err := p.datasource.GetHostCollective(ctx, expenses[0].CollectiveID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrPrecondition,
			fmt.Sprintf("No host collective resolved for expense %d", expenses[0].ID), err)
	}

	account, err := p.datasource.GetProviderAccount(ctx, host.ID, p.providerName)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrPrecondition,
			fmt.Sprintf("Host %d has no connected %s account", host.ID, p.providerName), err)
	}

	request, err := BuildBatchRequest(expenses)
	if err != nil {
		return nil, err
	}

	header, err := p.provider.SubmitBatch(ctx, account, request)
	if err != nil {
		logrus.Errorf("batch %s submission failed: %v", request.SenderBatchHeader.SenderBatchID, err)
		p.fanOutExpenseUpdates(ctx, expenses, func(ctx context.Context, expense *model.Expense) error {
			return p.markSubmissionError(ctx, expense, err)
		})
		return expenses, nil
	}

	p.fanOutExpenseUpdates(ctx, expenses, func(ctx context.Context, expense *model.Expense) error {
		return p.markSubmitted(ctx, expense, header)
	})

	if p.queue != nil {
		if err := p.queue.queuePollBatch(ctx, header.PayoutBatchID); err != nil {
			notification.NotifyError(err)
		}
	}
	return expenses, nil
}

// fanOutExpenseUpdates applies one update per expense concurrently, bounded
// by submitFanOutLimit, and waits for all of them. A failed update is
// reported and skipped; it never stops the siblings.
func (p *Payouts) fanOutExpenseUpdates(ctx context.Context, expenses []*model.Expense, update func(context.Context, *model.Expense) error) {
	var wg sync.WaitGroup
	sem := make(chan struct{}, submitFanOutLimit)

	for _, expense := range expenses {
		wg.Add(1)
		sem <- struct{}{}
		go func(expense *model.Expense) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := update(ctx, expense); err != nil {
				logrus.Errorf("post-submission update failed for expense %d: %v", expense.ID, err)
				notification.NotifyError(err)
			}
		}(expense)
	}
	wg.Wait()
}

// markSubmitted merges the provider's batch header into the expense's data
// bag, moves the expense to PROCESSING and records a processing activity.
func (p *Payouts) markSubmitted(ctx context.Context, expense *model.Expense, header *model.BatchHeader) error {
	headerData := map[string]interface{}{
		model.DataKeyBatchID:     header.PayoutBatchID,
		model.DataKeyBatchStatus: header.BatchStatus,
		model.DataKeyTimeCreated: header.TimeCreated,
	}
	if err := p.datasource.MergeExpenseData(ctx, expense.ID, headerData); err != nil {
		return err
	}
	if err := p.datasource.UpdateExpenseStatus(ctx, expense.ID, model.ExpenseStatusProcessing); err != nil {
		return err
	}

	if expense.Data == nil {
		expense.Data = make(map[string]interface{})
	}
	expense.Data[model.DataKeyBatchID] = header.PayoutBatchID
	expense.Data[model.DataKeyBatchStatus] = header.BatchStatus
	expense.Data[model.DataKeyTimeCreated] = header.TimeCreated
	expense.Status = model.ExpenseStatusProcessing

	if err := p.datasource.RecordActivity(ctx, &model.Activity{
		Kind:      model.ActivityExpenseProcessing,
		ExpenseID: expense.ID,
		ActorID:   expense.LastEditedByID,
		Data:      headerData,
	}); err != nil {
		return err
	}

	p.SendWebhook(ctx, expense)
	return nil
}

// markSubmissionError moves the expense to ERROR after a failed submission
// and records an error activity carrying the provider failure message.
func (p *Payouts) markSubmissionError(ctx context.Context, expense *model.Expense, cause error) error {
	if err := p.datasource.SetExpenseError(ctx, expense.ID, expense.LastEditedByID); err != nil {
		return err
	}
	expense.Status = model.ExpenseStatusError

	if err := p.datasource.RecordActivity(ctx, &model.Activity{
		Kind:      model.ActivityExpenseError,
		ExpenseID: expense.ID,
		ActorID:   expense.LastEditedByID,
		Data:      map[string]interface{}{"error": cause.Error()},
	}); err != nil {
		return err
	}

	p.SendWebhook(ctx, expense)
	return nil
}
