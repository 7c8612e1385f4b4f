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
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/collectivehq/payouts/internal/apierror"
	"github.com/collectivehq/payouts/model"
)

func withTestRedis(t *testing.T, payouts *Payouts) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	payouts.redis = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr
}

func pendingOutcome(expenseID string) model.ItemOutcome {
	return model.ItemOutcome{
		PayoutItemID:      "PI-" + expenseID,
		PayoutBatchID:     "PB-1",
		TransactionStatus: model.ItemStatusPending,
		PayoutItem: model.PayoutItem{
			Receiver:     "payee@example.com",
			Amount:       model.Money{Value: "100.00", Currency: "EUR"},
			SenderItemID: expenseID,
		},
	}
}

func TestPollBatchIsolatesMissingItems(t *testing.T) {
	payouts, datasource, providerClient := newTestPayouts(t)
	withTestRedis(t, payouts)

	expenses := []*model.Expense{
		processingExpense(1, "PB-1"),
		processingExpense(2, "PB-1"),
		processingExpense(3, "PB-1"),
	}

	datasource.On("GetHostCollective", mock.Anything, int64(7)).Return(testHost(), nil)
	datasource.On("GetProviderAccount", mock.Anything, int64(3), "paypal").Return(testProviderAccount(), nil)

	// the provider has no outcome for expense 2
	providerClient.On("FetchBatchInfo", mock.Anything, mock.Anything, "PB-1").Return(&model.BatchInfo{
		BatchHeader: model.BatchHeader{PayoutBatchID: "PB-1", BatchStatus: "PROCESSING"},
		Items:       []model.ItemOutcome{pendingOutcome("1"), pendingOutcome("3")},
	}, nil)

	datasource.On("GetExpense", mock.Anything, int64(1)).Return(processingExpense(1, "PB-1"), nil)
	datasource.On("GetExpense", mock.Anything, int64(3)).Return(processingExpense(3, "PB-1"), nil)
	datasource.On("ReplaceExpenseData", mock.Anything, int64(1), mock.Anything).Return(nil)
	datasource.On("ReplaceExpenseData", mock.Anything, int64(3), mock.Anything).Return(nil)

	result, err := payouts.PollBatch(context.Background(), expenses)
	require.NoError(t, err)
	require.Len(t, result, 3)

	assert.Equal(t, "PENDING", result[0].Data["transaction_status"])
	assert.Equal(t, "PENDING", result[2].Data["transaction_status"])
	// expense 2 is left exactly as it came in
	assert.Nil(t, result[1].Data["transaction_status"])

	datasource.AssertNotCalled(t, "GetExpense", mock.Anything, int64(2))
	datasource.AssertNotCalled(t, "ReplaceExpenseData", mock.Anything, int64(2), mock.Anything)
}

func TestPollBatchReconcileFailureDoesNotAbortLoop(t *testing.T) {
	payouts, datasource, providerClient := newTestPayouts(t)
	withTestRedis(t, payouts)

	expenses := []*model.Expense{
		processingExpense(1, "PB-1"),
		processingExpense(2, "PB-1"),
	}

	datasource.On("GetHostCollective", mock.Anything, int64(7)).Return(testHost(), nil)
	datasource.On("GetProviderAccount", mock.Anything, int64(3), "paypal").Return(testProviderAccount(), nil)
	providerClient.On("FetchBatchInfo", mock.Anything, mock.Anything, "PB-1").Return(&model.BatchInfo{
		BatchHeader: model.BatchHeader{PayoutBatchID: "PB-1", BatchStatus: "PROCESSING"},
		Items:       []model.ItemOutcome{pendingOutcome("1"), pendingOutcome("2")},
	}, nil)

	// expense 1 reloads onto a different batch, tripping the correlation guard
	datasource.On("GetExpense", mock.Anything, int64(1)).Return(processingExpense(1, "PB-other"), nil)
	datasource.On("GetExpense", mock.Anything, int64(2)).Return(processingExpense(2, "PB-1"), nil)
	datasource.On("ReplaceExpenseData", mock.Anything, int64(2), mock.Anything).Return(nil)

	result, err := payouts.PollBatch(context.Background(), expenses)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "PENDING", result[1].Data["transaction_status"])
	datasource.AssertNotCalled(t, "ReplaceExpenseData", mock.Anything, int64(1), mock.Anything)
}

func TestPollBatchSkipsWhenLockHeld(t *testing.T) {
	payouts, datasource, providerClient := newTestPayouts(t)
	mr := withTestRedis(t, payouts)

	expenses := []*model.Expense{processingExpense(1, "PB-1")}

	datasource.On("GetHostCollective", mock.Anything, int64(7)).Return(testHost(), nil)
	datasource.On("GetProviderAccount", mock.Anything, int64(3), "paypal").Return(testProviderAccount(), nil)

	// another poller holds the batch lock
	mr.Set("payouts:poll:PB-1", "other-holder")
	mr.SetTTL("payouts:poll:PB-1", time.Minute)

	result, err := payouts.PollBatch(context.Background(), expenses)
	require.NoError(t, err)
	assert.Len(t, result, 1)
	providerClient.AssertNotCalled(t, "FetchBatchInfo", mock.Anything, mock.Anything, mock.Anything)
}

func TestPollBatchRequiresBatchID(t *testing.T) {
	payouts, _, _ := newTestPayouts(t)

	expense := testExpense(1, 3)
	expense.Status = model.ExpenseStatusProcessing

	_, err := payouts.PollBatch(context.Background(), []*model.Expense{expense})
	assert.True(t, apierror.IsPrecondition(err))
}

func TestPollBatchEmptySet(t *testing.T) {
	payouts, _, _ := newTestPayouts(t)
	_, err := payouts.PollBatch(context.Background(), nil)
	assert.True(t, apierror.IsPrecondition(err))
}
