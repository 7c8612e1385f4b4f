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
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/collectivehq/payouts/internal/apierror"
	"github.com/collectivehq/payouts/model"
)

const expenseSelectColumns = `
	e.id, e.collective_id, e.amount, e.currency, e.description, e.status,
	e.data, e.payout_method, e.last_edited_by_id, e.created_at, e.updated_at,
	c.id, c.name, c.currency, c.host_collective_id, c.is_host`

// GetExpense retrieves a fresh copy of an expense by ID, including its
// owning collective. The reconciler calls this immediately before branching
// on status so it never acts on stale state.
//
// Parameters:
// - ctx: The context for the operation.
// - id: The ID of the expense to retrieve.
//
// Returns:
// - *model.Expense: The retrieved expense.
// - error: An error if the expense could not be found or scanned.
func (d *Datasource) GetExpense(ctx context.Context, id int64) (*model.Expense, error) {
	row := d.Conn.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM payouts.expenses e
		JOIN payouts.collectives c ON c.id = e.collective_id
		WHERE e.id = $1
	`, expenseSelectColumns), id)

	expense, err := scanExpenseRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Expense with ID '%d' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve expense", err)
	}
	return expense, nil
}

// GetExpensesByBatchID retrieves every expense whose provider data bag
// carries the given batch id, in id order. Used by the poll worker to load
// the members of a submitted batch.
func (d *Datasource) GetExpensesByBatchID(ctx context.Context, batchID string) ([]*model.Expense, error) {
	rows, err := d.Conn.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM payouts.expenses e
		JOIN payouts.collectives c ON c.id = e.collective_id
		WHERE e.data->>'payout_batch_id' = $1
		ORDER BY e.id
	`, expenseSelectColumns), batchID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve batch expenses", err)
	}
	defer rows.Close()

	var expenses []*model.Expense
	for rows.Next() {
		expense, err := scanExpenseRow(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan expense", err)
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to iterate batch expenses", err)
	}
	return expenses, nil
}

// UpdateExpenseStatus conditionally moves an expense to a new status. The
// update is a no-op when the expense already carries the target status, which
// closes the gap between reload and write for concurrent reconcilers.
func (d *Datasource) UpdateExpenseStatus(ctx context.Context, id int64, status string) error {
	_, err := d.Conn.ExecContext(ctx, `
		UPDATE payouts.expenses
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status <> $2
	`, id, status)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update expense status", err)
	}
	return nil
}

// SetExpensePaid marks an expense paid, attributed to the acting editor.
// Idempotent: an expense already in PAID is left untouched.
func (d *Datasource) SetExpensePaid(ctx context.Context, id int64, actorID int64) error {
	return d.setTerminalStatus(ctx, id, actorID, model.ExpenseStatusPaid)
}

// SetExpenseError marks an expense errored, attributed to the acting editor.
// Idempotent: an expense already in ERROR is left untouched.
func (d *Datasource) SetExpenseError(ctx context.Context, id int64, actorID int64) error {
	return d.setTerminalStatus(ctx, id, actorID, model.ExpenseStatusError)
}

func (d *Datasource) setTerminalStatus(ctx context.Context, id, actorID int64, status string) error {
	_, err := d.Conn.ExecContext(ctx, `
		UPDATE payouts.expenses
		SET status = $2, last_edited_by_id = $3, updated_at = NOW()
		WHERE id = $1 AND status <> $2
	`, id, status, actorID)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, fmt.Sprintf("Failed to set expense %s", status), err)
	}
	return nil
}

// MergeExpenseData merges keys into an expense's provider data bag,
// preserving existing keys that are not overwritten. Used on submission to
// stamp the batch header onto every member expense.
func (d *Datasource) MergeExpenseData(ctx context.Context, id int64, data map[string]interface{}) error {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal expense data", err)
	}
	_, err = d.Conn.ExecContext(ctx, `
		UPDATE payouts.expenses
		SET data = COALESCE(data, '{}'::jsonb) || $2::jsonb, updated_at = NOW()
		WHERE id = $1
	`, id, dataJSON)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to merge expense data", err)
	}
	return nil
}

// ReplaceExpenseData replaces an expense's provider data bag wholesale with
// the last known provider state. This is deliberately distinct from
// MergeExpenseData; reconciliation overwrites, submission merges.
func (d *Datasource) ReplaceExpenseData(ctx context.Context, id int64, data map[string]interface{}) error {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal expense data", err)
	}
	_, err = d.Conn.ExecContext(ctx, `
		UPDATE payouts.expenses
		SET data = $2::jsonb, updated_at = NOW()
		WHERE id = $1
	`, id, dataJSON)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to replace expense data", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanExpenseRow(row rowScanner) (*model.Expense, error) {
	expense := model.Expense{Collective: &model.Collective{}}
	var dataJSON, payoutMethodJSON []byte
	var hostCollectiveID sql.NullInt64

	err := row.Scan(
		&expense.ID, &expense.CollectiveID, &expense.Amount, &expense.Currency,
		&expense.Description, &expense.Status, &dataJSON, &payoutMethodJSON,
		&expense.LastEditedByID, &expense.CreatedAt, &expense.UpdatedAt,
		&expense.Collective.ID, &expense.Collective.Name, &expense.Collective.Currency,
		&hostCollectiveID, &expense.Collective.IsHost,
	)
	if err != nil {
		return nil, err
	}

	if hostCollectiveID.Valid {
		expense.Collective.HostCollectiveID = hostCollectiveID.Int64
	}
	if len(dataJSON) > 0 {
		if err := json.Unmarshal(dataJSON, &expense.Data); err != nil {
			return nil, err
		}
	}
	if len(payoutMethodJSON) > 0 {
		if err := json.Unmarshal(payoutMethodJSON, &expense.PayoutMethod); err != nil {
			return nil, err
		}
	}
	return &expense, nil
}
