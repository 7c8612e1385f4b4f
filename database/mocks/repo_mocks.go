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
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/collectivehq/payouts/model"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Expense methods

func (m *MockDataSource) GetExpense(ctx context.Context, id int64) (*model.Expense, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Expense), args.Error(1)
}

func (m *MockDataSource) GetExpensesByBatchID(ctx context.Context, batchID string) ([]*model.Expense, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Expense), args.Error(1)
}

func (m *MockDataSource) UpdateExpenseStatus(ctx context.Context, id int64, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockDataSource) SetExpensePaid(ctx context.Context, id int64, actorID int64) error {
	args := m.Called(ctx, id, actorID)
	return args.Error(0)
}

func (m *MockDataSource) SetExpenseError(ctx context.Context, id int64, actorID int64) error {
	args := m.Called(ctx, id, actorID)
	return args.Error(0)
}

func (m *MockDataSource) MergeExpenseData(ctx context.Context, id int64, data map[string]interface{}) error {
	args := m.Called(ctx, id, data)
	return args.Error(0)
}

func (m *MockDataSource) ReplaceExpenseData(ctx context.Context, id int64, data map[string]interface{}) error {
	args := m.Called(ctx, id, data)
	return args.Error(0)
}

// Collective methods

func (m *MockDataSource) GetCollective(ctx context.Context, id int64) (*model.Collective, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Collective), args.Error(1)
}

func (m *MockDataSource) GetHostCollective(ctx context.Context, collectiveID int64) (*model.Collective, error) {
	args := m.Called(ctx, collectiveID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Collective), args.Error(1)
}

func (m *MockDataSource) GetProviderAccount(ctx context.Context, hostID int64, provider string) (*model.ProviderAccount, error) {
	args := m.Called(ctx, hostID, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProviderAccount), args.Error(1)
}

// Activity methods

func (m *MockDataSource) RecordActivity(ctx context.Context, act *model.Activity) error {
	args := m.Called(ctx, act)
	return args.Error(0)
}

// Ledger methods

func (m *MockDataSource) RecordLedgerEntries(ctx context.Context, entries []*model.LedgerEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}
