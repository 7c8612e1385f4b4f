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

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Per-item transaction status values reported by the payout provider.
// SUCCESS is the terminal success state; FAILED, BLOCKED, REFUNDED, RETURNED
// and REVERSED are terminal failures; everything else is still in flight.
const (
	ItemStatusSuccess   = "SUCCESS"
	ItemStatusFailed    = "FAILED"
	ItemStatusBlocked   = "BLOCKED"
	ItemStatusRefunded  = "REFUNDED"
	ItemStatusReturned  = "RETURNED"
	ItemStatusReversed  = "REVERSED"
	ItemStatusOnHold    = "ONHOLD"
	ItemStatusUnclaimed = "UNCLAIMED"
	ItemStatusPending   = "PENDING"
)

// IsTerminalFailure reports whether a per-item status is a definitive
// failure that will not change with further polling.
func IsTerminalFailure(status string) bool {
	switch status {
	case ItemStatusFailed, ItemStatusBlocked, ItemStatusRefunded, ItemStatusReturned, ItemStatusReversed:
		return true
	}
	return false
}

// BatchRequest is the provider-agnostic payout submission built from a set
// of same-host expenses. The sender batch id is a deterministic digest of
// the member expense ids, so retrying an identical set is deduplicated at
// the provider.
type BatchRequest struct {
	SenderBatchHeader SenderBatchHeader `json:"sender_batch_header"`
	Items             []PayoutItem      `json:"items"`
}

// SenderBatchHeader identifies the submission to the provider. EmailSubject
// and EmailMessage are informational only and never used for correlation.
type SenderBatchHeader struct {
	SenderBatchID string `json:"sender_batch_id"`
	EmailSubject  string `json:"email_subject,omitempty"`
	EmailMessage  string `json:"email_message,omitempty"`
}

// PayoutItem is one expense's entry in a batch. SenderItemID carries the
// expense id as text and is the correlation token for polling.
type PayoutItem struct {
	Note         string `json:"note,omitempty"`
	Receiver     string `json:"receiver"`
	Amount       Money  `json:"amount"`
	SenderItemID string `json:"sender_item_id"`
}

// Money is a decimal amount with its ISO-4217 currency code, as exchanged
// with the provider on the wire.
type Money struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// Validate checks a batch request before it is sent to the provider.
func (r BatchRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.SenderBatchHeader, validation.Required),
		validation.Field(&r.Items, validation.Required, validation.Length(1, 0)),
	)
}

func (h SenderBatchHeader) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.SenderBatchID, validation.Required),
	)
}

func (i PayoutItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Receiver, validation.Required, is.EmailFormat),
		validation.Field(&i.SenderItemID, validation.Required),
		validation.Field(&i.Amount, validation.Required),
	)
}

func (m Money) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Value, validation.Required),
		validation.Field(&m.Currency, validation.Required, validation.Length(3, 3)),
	)
}

// BatchHeader is the provider's batch-level response to a submission.
type BatchHeader struct {
	PayoutBatchID string    `json:"payout_batch_id"`
	BatchStatus   string    `json:"batch_status"`
	TimeCreated   time.Time `json:"time_created"`
}

// BatchInfo is the provider's current view of a batch: the header plus the
// per-item outcomes.
type BatchInfo struct {
	BatchHeader BatchHeader   `json:"batch_header"`
	Items       []ItemOutcome `json:"items"`
}

// ItemOutcome is the provider-reported state of one payout item. The
// embedded PayoutItem echoes the submitted item, including the correlation
// token and the amount currency the item was paid in.
type ItemOutcome struct {
	PayoutItemID       string              `json:"payout_item_id"`
	PayoutBatchID      string              `json:"payout_batch_id"`
	TransactionID      string              `json:"transaction_id,omitempty"`
	TransactionStatus  string              `json:"transaction_status"`
	PayoutItem         PayoutItem          `json:"payout_item"`
	CurrencyConversion *CurrencyConversion `json:"currency_conversion,omitempty"`
	PayoutItemFee      *Money              `json:"payout_item_fee,omitempty"`
	Errors             *OutcomeError       `json:"errors,omitempty"`
	TimeProcessed      time.Time           `json:"time_processed,omitempty"`
}

// CurrencyConversion is the optional conversion block reported when the
// provider settled the item in a currency other than the source amount's.
// ExchangeRate is quoted as target-currency units per source-currency unit.
type CurrencyConversion struct {
	ExchangeRate string `json:"exchange_rate"`
	FromAmount   Money  `json:"from_amount"`
	ToAmount     Money  `json:"to_amount"`
}

// OutcomeError is the provider's error detail for a failed item.
type OutcomeError struct {
	Name    string `json:"name,omitempty"`
	Message string `json:"message"`
}

// AsData converts the outcome into the open key/value form stored on the
// expense's data bag as the last known provider state.
func (o *ItemOutcome) AsData() (map[string]interface{}, error) {
	raw, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}
