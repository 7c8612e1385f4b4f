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

package database

import (
	"context"

	"github.com/collectivehq/payouts/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	expense    // Interface for expense-related operations
	collective // Interface for collective and host lookups
	activity   // Interface for activity-feed recording
	ledger     // Interface for ledger-entry recording
}

// expense defines methods for handling expenses.
type expense interface {
	GetExpense(ctx context.Context, id int64) (*model.Expense, error)                       // Retrieves a fresh expense by ID (reload)
	GetExpensesByBatchID(ctx context.Context, batchID string) ([]*model.Expense, error)     // Retrieves every expense correlated to a provider batch
	UpdateExpenseStatus(ctx context.Context, id int64, status string) error                 // Conditionally moves an expense to a new status
	SetExpensePaid(ctx context.Context, id int64, actorID int64) error                      // Marks an expense paid, attributed to an actor
	SetExpenseError(ctx context.Context, id int64, actorID int64) error                     // Marks an expense errored, attributed to an actor
	MergeExpenseData(ctx context.Context, id int64, data map[string]interface{}) error      // Merges keys into the expense's provider data bag
	ReplaceExpenseData(ctx context.Context, id int64, data map[string]interface{}) error    // Replaces the provider data bag wholesale
}

// collective defines methods for resolving collectives, hosts and provider accounts.
type collective interface {
	GetCollective(ctx context.Context, id int64) (*model.Collective, error)                              // Retrieves a collective by ID
	GetHostCollective(ctx context.Context, collectiveID int64) (*model.Collective, error)                // Resolves a collective's host collective
	GetProviderAccount(ctx context.Context, hostID int64, provider string) (*model.ProviderAccount, error) // Retrieves a host's connected provider account
}

// activity defines methods for recording expense activities.
type activity interface {
	RecordActivity(ctx context.Context, act *model.Activity) error // Appends an entry to an expense's activity feed
}

// ledger defines methods for recording ledger entries.
type ledger interface {
	RecordLedgerEntries(ctx context.Context, entries []*model.LedgerEntry) error // Records the double-entry pair for a paid expense
}
