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
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/collectivehq/payouts/internal/apierror"
	redlock "github.com/collectivehq/payouts/internal/lock"
	"github.com/collectivehq/payouts/model"
)

// pollLockDuration bounds how long one poll pass may hold a batch's lock.
const pollLockDuration = 5 * time.Minute

// PollBatch fetches the provider's current view of the batch the given
// expenses belong to and reconciles each expense against its item outcome.
// Expenses are reconciled strictly in input order; a failure on one expense
// is logged and never aborts the loop. The call always returns the full
// input list, reconciled or not.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - expenses []*model.Expense: The expenses sharing one provider batch id.
//
// Returns:
// - []*model.Expense: The same expenses, some possibly transitioned.
// - error: A precondition error, or a provider error when the batch fetch
//   itself fails; per-expense reconciliation failures never surface here.
func (p *Payouts) PollBatch(ctx context.Context, expenses []*model.Expense) ([]*model.Expense, error) {
	ctx, span := tracer.Start(ctx, "PollBatch")
	defer span.End()

	if len(expenses) == 0 {
		return nil, apierror.NewAPIError(apierror.ErrPrecondition, "Cannot poll an empty expense batch", nil)
	}

	batchID := expenses[0].BatchID()
	if batchID == "" {
		return nil, apierror.NewAPIError(apierror.ErrPrecondition,
			fmt.Sprintf("Expense %d carries no provider batch id", expenses[0].ID), nil)
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

	locker := redlock.NewPollLock(p.redis, batchID, model.GenerateUUIDWithSuffix("lock"))
	if err := locker.Lock(ctx, pollLockDuration); err != nil {
		logrus.Infof("batch %s is already being polled, skipping pass: %v", batchID, err)
		return expenses, nil
	}
	defer func() {
		if err := locker.Unlock(ctx); err != nil {
			logrus.Warnf("failed to release poll lock for batch %s: %v", batchID, err)
		}
	}()

	info, err := p.provider.FetchBatchInfo(ctx, account, batchID)
	if err != nil {
		return expenses, err
	}

	outcomes := make(map[string]*model.ItemOutcome, len(info.Items))
	for i := range info.Items {
		outcomes[info.Items[i].PayoutItem.SenderItemID] = &info.Items[i]
	}

	for i, expense := range expenses {
		outcome, ok := outcomes[strconv.FormatInt(expense.ID, 10)]
		if !ok {
			logrus.Warnf("no outcome for expense %d in batch %s, leaving it untouched", expense.ID, batchID)
			continue
		}

		reconciled, err := p.ReconcileItem(ctx, outcome, expense, host)
		if err != nil {
			logrus.Errorf("reconciling expense %d in batch %s failed: %v", expense.ID, batchID, err)
			continue
		}
		expenses[i] = reconciled
	}

	return expenses, nil
}
