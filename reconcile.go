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
	"github.com/sirupsen/logrus"

	"github.com/collectivehq/payouts/internal/apierror"
	"github.com/collectivehq/payouts/internal/notification"
	"github.com/collectivehq/payouts/model"
)

// ReconcileItem applies one provider-reported item outcome onto its expense.
// The expense is reloaded immediately before branching so a concurrent
// poller's transition is observed; terminal transitions are applied at most
// once, guarded by the current status. Whatever branch is taken, the raw
// outcome replaces the expense's data bag as the last known provider state.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - outcome *model.ItemOutcome: The provider's state for this item.
// - expense *model.Expense: The expense the outcome claims to belong to.
// - host *model.Collective: The host collective settling the batch.
//
// Returns:
// - *model.Expense: The reloaded, possibly transitioned expense.
// - error: A correlation error when the outcome's batch id does not match
//   the expense's stored batch id, or a persistence failure.
func (p *Payouts) ReconcileItem(ctx context.Context, outcome *model.ItemOutcome, expense *model.Expense, host *model.Collective) (*model.Expense, error) {
	ctx, span := tracer.Start(ctx, "ReconcileItem")
	defer span.End()

	expense, err := p.datasource.GetExpense(ctx, expense.ID)
	if err != nil {
		return nil, err
	}

	if expense.BatchID() != outcome.PayoutBatchID {
		return nil, apierror.NewAPIError(apierror.ErrCorrelation,
			fmt.Sprintf("Outcome batch %s does not match batch %s stored on expense %d",
				outcome.PayoutBatchID, expense.BatchID(), expense.ID), nil)
	}

	switch {
	case outcome.TransactionStatus == model.ItemStatusSuccess && expense.Status != model.ExpenseStatusPaid:
		if err := p.applyPaidOutcome(ctx, outcome, expense, host); err != nil {
			return nil, err
		}
	case model.IsTerminalFailure(outcome.TransactionStatus) && expense.Status != model.ExpenseStatusError:
		if err := p.applyFailedOutcome(ctx, outcome, expense); err != nil {
			return nil, err
		}
	default:
		logrus.Debugf("no transition for expense %d in status %s, item %s reported %s",
			expense.ID, expense.Status, outcome.PayoutItemID, outcome.TransactionStatus)
	}

	outcomeData, err := outcome.AsData()
	if err != nil {
		return nil, err
	}
	if err := p.datasource.ReplaceExpenseData(ctx, expense.ID, outcomeData); err != nil {
		return nil, err
	}
	expense.Data = outcomeData

	return expense, nil
}

// applyPaidOutcome performs the financial side effects of a successful item:
// FX resolution, fee normalization, ledger materialization, then the PAID
// transition and its activity.
func (p *Payouts) applyPaidOutcome(ctx context.Context, outcome *model.ItemOutcome, expense *model.Expense, host *model.Collective) error {
	fxRate := p.resolveFxRate(ctx, outcome, expense, host)
	fees := p.normalizeFees(outcome, expense, fxRate)

	if err := p.createTransactionsFromPaidExpense(ctx, host, expense, fees, fxRate, outcome); err != nil {
		return err
	}

	if err := p.datasource.SetExpensePaid(ctx, expense.ID, expense.LastEditedByID); err != nil {
		return err
	}
	expense.Status = model.ExpenseStatusPaid

	outcomeData, err := outcome.AsData()
	if err != nil {
		return err
	}
	if err := p.datasource.RecordActivity(ctx, &model.Activity{
		Kind:      model.ActivityExpensePaid,
		ExpenseID: expense.ID,
		ActorID:   expense.LastEditedByID,
		Data:      outcomeData,
	}); err != nil {
		return err
	}

	p.SendWebhook(ctx, expense)
	return nil
}

// applyFailedOutcome performs the ERROR transition for a terminal failure.
// The activity carries only the provider's error detail, not the full
// outcome payload.
func (p *Payouts) applyFailedOutcome(ctx context.Context, outcome *model.ItemOutcome, expense *model.Expense) error {
	if err := p.datasource.SetExpenseError(ctx, expense.ID, expense.LastEditedByID); err != nil {
		return err
	}
	expense.Status = model.ExpenseStatusError

	detail := map[string]interface{}{"status": outcome.TransactionStatus}
	if outcome.Errors != nil {
		detail["error"] = outcome.Errors.Message
		if outcome.Errors.Name != "" {
			detail["name"] = outcome.Errors.Name
		}
	}
	if err := p.datasource.RecordActivity(ctx, &model.Activity{
		Kind:      model.ActivityExpenseError,
		ExpenseID: expense.ID,
		ActorID:   expense.LastEditedByID,
		Data:      detail,
	}); err != nil {
		return err
	}

	p.SendWebhook(ctx, expense)
	return nil
}

// resolveFxRate determines the expense-to-host currency multiplier for a
// successful item. The provider's own reported conversion wins, inverted
// because the provider quotes target units per source unit. The external FX
// service is only a best-effort fallback when the item was paid in another
// currency and no conversion was reported; its failure is logged and
// swallowed so reconciliation proceeds at the default rate.
func (p *Payouts) resolveFxRate(ctx context.Context, outcome *model.ItemOutcome, expense *model.Expense, host *model.Collective) decimal.Decimal {
	defaultRate := decimal.NewFromInt(1)

	if conversion := outcome.CurrencyConversion; conversion != nil {
		reported, err := decimal.NewFromString(conversion.ExchangeRate)
		if err != nil || reported.IsZero() {
			logrus.Warnf("expense %d reported unusable exchange rate %q", expense.ID, conversion.ExchangeRate)
			return defaultRate
		}
		return decimal.NewFromInt(1).Div(reported)
	}

	if outcome.PayoutItem.Amount.Currency != expense.Currency {
		rate, err := p.fx.Rate(ctx, expense.Currency, host.Currency)
		if err != nil {
			logrus.Warnf("fx lookup %s/%s failed for expense %d, falling back to rate 1: %v",
				expense.Currency, host.Currency, expense.ID, err)
			return defaultRate
		}
		return decimal.NewFromFloat(rate)
	}

	return defaultRate
}

// normalizeFees converts the provider's decimal processor fee into integer
// minor units of the host's settlement currency. A fee quoted in a currency
// other than the expense's is a sanity-check anomaly only; it is reported
// and processing continues.
func (p *Payouts) normalizeFees(outcome *model.ItemOutcome, expense *model.Expense, fxRate decimal.Decimal) model.Fees {
	fee := outcome.PayoutItemFee
	if fee == nil {
		return model.Fees{}
	}

	if fee.Currency != expense.Currency {
		logrus.Warnf("expense %d fee currency %s differs from expense currency %s",
			expense.ID, fee.Currency, expense.Currency)
		notification.NotifyError(fmt.Errorf("fee currency %s differs from expense %d currency %s",
			fee.Currency, expense.ID, expense.Currency))
	}

	feeValue, err := decimal.NewFromString(fee.Value)
	if err != nil {
		logrus.Warnf("expense %d reported unparsable fee value %q", expense.ID, fee.Value)
		return model.Fees{}
	}

	feeMinorUnits := feeValue.Mul(decimal.NewFromInt(100)).Mul(fxRate).Round(0).IntPart()
	return model.Fees{PaymentProcessorFeeInHostCurrency: feeMinorUnits}
}
