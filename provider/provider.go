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

// Package provider talks to the external batch payout provider. The core
// only depends on the Client interface; the HTTP implementation lives here
// so submission and polling share one auth and retry policy.
package provider

import (
	"context"

	"github.com/collectivehq/payouts/model"
)

// Client is the abstract payout provider contract consumed by the core.
type Client interface {
	// SubmitBatch sends a built batch request on behalf of a host's
	// connected account and returns the provider's batch header.
	SubmitBatch(ctx context.Context, account *model.ProviderAccount, req *model.BatchRequest) (*model.BatchHeader, error)

	// FetchBatchInfo retrieves the current per-item statuses of a batch.
	FetchBatchInfo(ctx context.Context, account *model.ProviderAccount, batchID string) (*model.BatchInfo, error)
}
