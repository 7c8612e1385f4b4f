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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/collectivehq/payouts/internal/apierror"
	"github.com/collectivehq/payouts/model"
)

func testHost() *model.Collective {
	return &model.Collective{ID: 3, Name: "Host Org", Currency: "USD", IsHost: true}
}

func testProviderAccount() *model.ProviderAccount {
	return &model.ProviderAccount{ID: 1, HostID: 3, Provider: "paypal", ClientID: "id", ClientSecret: "secret"}
}

func TestSubmitBatch(t *testing.T) {
	payouts, datasource, providerClient := newTestPayouts(t)
	expenses := []*model.Expense{testExpense(1, 3), testExpense(2, 3)}

	datasource.On("GetHostCollective", mock.Anything, int64(7)).Return(testHost(), nil)
	datasource.On("GetProviderAccount", mock.Anything, int64(3), "paypal").Return(testProviderAccount(), nil)
	providerClient.On("SubmitBatch", mock.Anything, mock.Anything, mock.Anything).
		Return(&model.BatchHeader{PayoutBatchID: "PB-1", BatchStatus: "PENDING"}, nil)

	datasource.On("MergeExpenseData", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	datasource.On("UpdateExpenseStatus", mock.Anything, mock.Anything, model.ExpenseStatusProcessing).Return(nil)
	datasource.On("RecordActivity", mock.Anything, mock.MatchedBy(func(act *model.Activity) bool {
		return act.Kind == model.ActivityExpenseProcessing
	})).Return(nil)

	result, err := payouts.SubmitBatch(context.Background(), expenses)
	require.NoError(t, err)
	require.Len(t, result, 2)
	for _, expense := range result {
		assert.Equal(t, model.ExpenseStatusProcessing, expense.Status)
		assert.Equal(t, "PB-1", expense.BatchID())
	}

	datasource.AssertNumberOfCalls(t, "MergeExpenseData", 2)
	datasource.AssertNumberOfCalls(t, "UpdateExpenseStatus", 2)
	datasource.AssertNumberOfCalls(t, "RecordActivity", 2)
	providerClient.AssertExpectations(t)
}

func TestSubmitBatchProviderFailureMarksAllErrored(t *testing.T) {
	payouts, datasource, providerClient := newTestPayouts(t)
	expenses := []*model.Expense{testExpense(1, 3), testExpense(2, 3)}

	datasource.On("GetHostCollective", mock.Anything, int64(7)).Return(testHost(), nil)
	datasource.On("GetProviderAccount", mock.Anything, int64(3), "paypal").Return(testProviderAccount(), nil)
	providerClient.On("SubmitBatch", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("provider unavailable"))

	datasource.On("SetExpenseError", mock.Anything, mock.Anything, int64(99)).Return(nil)
	datasource.On("RecordActivity", mock.Anything, mock.MatchedBy(func(act *model.Activity) bool {
		return act.Kind == model.ActivityExpenseError && act.Data["error"] == "provider unavailable"
	})).Return(nil)

	result, err := payouts.SubmitBatch(context.Background(), expenses)
	require.NoError(t, err)
	for _, expense := range result {
		assert.Equal(t, model.ExpenseStatusError, expense.Status)
	}

	datasource.AssertNumberOfCalls(t, "SetExpenseError", 2)
	datasource.AssertNumberOfCalls(t, "RecordActivity", 2)
	datasource.AssertNotCalled(t, "UpdateExpenseStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitBatchMixedHostsFailsBeforeProviderCall(t *testing.T) {
	payouts, datasource, providerClient := newTestPayouts(t)
	expenses := []*model.Expense{testExpense(1, 3), testExpense(2, 5)}

	datasource.On("GetHostCollective", mock.Anything, int64(7)).Return(testHost(), nil)
	datasource.On("GetProviderAccount", mock.Anything, int64(3), "paypal").Return(testProviderAccount(), nil)

	_, err := payouts.SubmitBatch(context.Background(), expenses)
	assert.True(t, apierror.IsPrecondition(err))
	providerClient.AssertNotCalled(t, "SubmitBatch", mock.Anything, mock.Anything, mock.Anything)
	datasource.AssertNotCalled(t, "UpdateExpenseStatus", mock.Anything, mock.Anything, mock.Anything)
	datasource.AssertNotCalled(t, "SetExpenseError", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitBatchMissingProviderAccount(t *testing.T) {
	payouts, datasource, providerClient := newTestPayouts(t)
	expenses := []*model.Expense{testExpense(1, 3)}

	datasource.On("GetHostCollective", mock.Anything, int64(7)).Return(testHost(), nil)
	datasource.On("GetProviderAccount", mock.Anything, int64(3), "paypal").
		Return(nil, apierror.NewAPIError(apierror.ErrNotFound, "no account", nil))

	_, err := payouts.SubmitBatch(context.Background(), expenses)
	assert.True(t, apierror.IsPrecondition(err))
	providerClient.AssertNotCalled(t, "SubmitBatch", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitBatchEmptySet(t *testing.T) {
	payouts, _, _ := newTestPayouts(t)
	_, err := payouts.SubmitBatch(context.Background(), nil)
	assert.True(t, apierror.IsPrecondition(err))
}
