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

// MockProviderClient is a mock implementation of the provider.Client interface
type MockProviderClient struct {
	mock.Mock
}

func (m *MockProviderClient) SubmitBatch(ctx context.Context, account *model.ProviderAccount, req *model.BatchRequest) (*model.BatchHeader, error) {
	args := m.Called(ctx, account, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BatchHeader), args.Error(1)
}

func (m *MockProviderClient) FetchBatchInfo(ctx context.Context, account *model.ProviderAccount, batchID string) (*model.BatchInfo, error) {
	args := m.Called(ctx, account, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BatchInfo), args.Error(1)
}
