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

package model

import (
	"encoding/json"
	"time"
)

// Expense status values read and written by the payout core. An expense
// enters the core at PROCESSING or earlier and only ever moves forward.
const (
	ExpenseStatusApproved   = "APPROVED"
	ExpenseStatusProcessing = "PROCESSING"
	ExpenseStatusPaid       = "PAID"
	ExpenseStatusError      = "ERROR"
)

// Data keys the core maintains inside an expense's provider data bag.
const (
	DataKeyBatchID     = "payout_batch_id"
	DataKeyBatchStatus = "batch_status"
	DataKeyTimeCreated = "time_created"
)

// Expense represents one approved expense to be paid out through the
// external batch payout provider. The persistence layer owns the record;
// the core holds a transient reference while processing a batch.
type Expense struct {
	ID             int64                  `json:"id"`
	CollectiveID   int64                  `json:"collective_id"`
	Collective     *Collective            `json:"collective,omitempty"`
	Amount         int64                  `json:"amount"` // minor units in Currency
	Currency       string                 `json:"currency"`
	Description    string                 `json:"description"`
	Status         string                 `json:"status"`
	Data           map[string]interface{} `json:"data,omitempty"`
	PayoutMethod   PayoutMethod           `json:"payout_method"`
	LastEditedByID int64                  `json:"last_edited_by_id"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// PayoutMethod carries the destination details for an expense payout.
// The core only ever reads the destination email.
type PayoutMethod struct {
	Data PayoutMethodData `json:"data"`
}

type PayoutMethodData struct {
	Email string `json:"email"`
}

// Collective represents either an expense's owning collective or a host
// collective that disburses funds on behalf of its collectives.
type Collective struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Currency         string `json:"currency"` // settlement currency when acting as host
	HostCollectiveID int64  `json:"host_collective_id"`
	IsHost           bool   `json:"is_host"`
}

// ProviderAccount is a host's connected account at a payout provider.
type ProviderAccount struct {
	ID           int64  `json:"id"`
	HostID       int64  `json:"host_id"`
	Provider     string `json:"provider"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"-"`
}

// BatchID returns the provider batch id stored on the expense's data bag,
// or an empty string when the expense has not been submitted yet.
func (e *Expense) BatchID() string {
	if e.Data == nil {
		return ""
	}
	id, _ := e.Data[DataKeyBatchID].(string)
	return id
}

// Activity kinds recorded against an expense. These are the only externally
// visible signals of the payout lifecycle besides the expense status itself.
const (
	ActivityExpenseProcessing = "expense.processing"
	ActivityExpensePaid       = "expense.paid"
	ActivityExpenseError      = "expense.error"
)

// Activity is one entry in an expense's activity feed.
type Activity struct {
	ActivityID string                 `json:"id"`
	Kind       string                 `json:"kind"`
	ExpenseID  int64                  `json:"expense_id"`
	ActorID    int64                  `json:"actor_id"`
	Data       map[string]interface{} `json:"data,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// LedgerEntry is one side of a double-entry ledger transaction created when
// an expense is paid. Amounts are minor units in the host's currency.
type LedgerEntry struct {
	EntryID     string                 `json:"id"`
	ExpenseID   int64                  `json:"expense_id"`
	HostID      int64                  `json:"host_id"`
	Type        string                 `json:"type"` // DEBIT or CREDIT
	Amount      int64                  `json:"amount"`
	Currency    string                 `json:"currency"`
	FxRate      float64                `json:"fx_rate"`
	Fees        Fees                   `json:"fees"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

const (
	EntryTypeDebit  = "DEBIT"
	EntryTypeCredit = "CREDIT"
)

// Fees holds the normalized fee components of a paid expense, expressed in
// minor units of the host's settlement currency.
type Fees struct {
	PaymentProcessorFeeInHostCurrency int64 `json:"payment_processor_fee_in_host_currency"`
}

func (a *Activity) ToJSON() ([]byte, error) {
	return json.Marshal(a)
}
