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

	"github.com/shopspring/decimal"

	"github.com/collectivehq/payouts/model"
)

// createTransactionsFromPaidExpense materializes the double-entry ledger
// pair for a paid expense: a debit against the host's funds and the matching
// credit to the expense, both in the host's settlement currency at the
// resolved FX rate. The raw provider outcome rides along on each entry.
func (p *Payouts) createTransactionsFromPaidExpense(ctx context.Context, host *model.Collective, expense *model.Expense, fees model.Fees, fxRate decimal.Decimal, outcome *model.ItemOutcome) error {
	grossAmount := decimal.NewFromInt(expense.Amount).Mul(fxRate).Round(0).IntPart()
	rate, _ := fxRate.Float64()

	outcomeData, err := outcome.AsData()
	if err != nil {
		return err
	}

	description := fmt.Sprintf("Payout for expense %d: %s", expense.ID, expense.Description)
	entries := []*model.LedgerEntry{
		{
			ExpenseID:   expense.ID,
			HostID:      host.ID,
			Type:        model.EntryTypeDebit,
			Amount:      grossAmount,
			Currency:    host.Currency,
			FxRate:      rate,
			Fees:        fees,
			Description: description,
			Data:        outcomeData,
		},
		{
			ExpenseID:   expense.ID,
			HostID:      host.ID,
			Type:        model.EntryTypeCredit,
			Amount:      grossAmount,
			Currency:    host.Currency,
			FxRate:      rate,
			Fees:        fees,
			Description: description,
			Data:        outcomeData,
		},
	}

	return p.datasource.RecordLedgerEntries(ctx, entries)
}
