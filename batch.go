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
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/collectivehq/payouts/internal/apierror"
	"github.com/collectivehq/payouts/model"
)

// BuildBatchRequest turns a non-empty, same-host set of expenses into a
// provider batch request. Item amounts are expressed in each expense's own
// filing currency, not the host's; the host currency only matters later,
// when outcomes are reconciled.
//
// Parameters:
// - expenses []*model.Expense: The expenses to batch, in submission order.
//
// Returns:
// - *model.BatchRequest: The built request, ready for the provider client.
// - error: A precondition error when the set is empty or spans hosts.
func BuildBatchRequest(expenses []*model.Expense) (*model.BatchRequest, error) {
	if len(expenses) == 0 {
		return nil, apierror.NewAPIError(apierror.ErrPrecondition, "Cannot build a batch from an empty expense set", nil)
	}

	first := expenses[0]
	if first.Collective == nil {
		return nil, apierror.NewAPIError(apierror.ErrPrecondition,
			fmt.Sprintf("Expense %d has no resolved collective", first.ID), nil)
	}
	hostID := first.Collective.HostCollectiveID

	items := make([]model.PayoutItem, 0, len(expenses))
	for _, expense := range expenses {
		if expense.Collective == nil || expense.Collective.HostCollectiveID != hostID {
			return nil, apierror.NewAPIError(apierror.ErrPrecondition,
				fmt.Sprintf("Expense %d does not belong to host %d; batches must share one host", expense.ID, hostID), nil)
		}

		items = append(items, model.PayoutItem{
			Note:     expense.Description,
			Receiver: expense.PayoutMethod.Data.Email,
			Amount: model.Money{
				Value:    minorUnitsToDecimalString(expense.Amount),
				Currency: expense.Currency,
			},
			SenderItemID: strconv.FormatInt(expense.ID, 10),
		})
	}

	return &model.BatchRequest{
		SenderBatchHeader: model.SenderBatchHeader{
			SenderBatchID: deriveBatchID(expenses),
			EmailSubject:  fmt.Sprintf("Expense payout for %s", first.Collective.Name),
			EmailMessage:  "You have received a payout for an approved expense.",
		},
		Items: items,
	}, nil
}

// deriveBatchID digests the ordered expense ids. The provider deduplicates
// submissions by this id, so resubmitting an identical set after a crash
// cannot double-pay, while any different set yields a different id.
// Non-security use of SHA-1.
func deriveBatchID(expenses []*model.Expense) string {
	h := sha1.New()
	for _, expense := range expenses {
		h.Write([]byte(strconv.FormatInt(expense.ID, 10)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// minorUnitsToDecimalString renders integer minor units as a 2-digit decimal
// string, the form the provider expects on the wire.
func minorUnitsToDecimalString(amount int64) string {
	return decimal.NewFromInt(amount).Div(decimal.NewFromInt(100)).StringFixed(2)
}
