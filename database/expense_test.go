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
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collectivehq/payouts/internal/apierror"
	"github.com/collectivehq/payouts/model"
)

func newTestDatasource(t *testing.T) (*Datasource, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &Datasource{Conn: db}, mock
}

func expenseColumns() []string {
	return []string{
		"id", "collective_id", "amount", "currency", "description", "status",
		"data", "payout_method", "last_edited_by_id", "created_at", "updated_at",
		"c_id", "c_name", "c_currency", "c_host_collective_id", "c_is_host",
	}
}

func TestGetExpense(t *testing.T) {
	ds, mock := newTestDatasource(t)
	now := time.Now()

	rows := sqlmock.NewRows(expenseColumns()).AddRow(
		42, 7, int64(10000), "EUR", "Team offsite travel", model.ExpenseStatusProcessing,
		[]byte(`{"payout_batch_id":"batch-1"}`), []byte(`{"data":{"email":"payee@example.com"}}`),
		int64(99), now, now,
		7, "Open Knowledge", "USD", int64(3), false,
	)

	mock.ExpectQuery("SELECT (.+) FROM payouts.expenses e").WithArgs(int64(42)).WillReturnRows(rows)

	expense, err := ds.GetExpense(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), expense.ID)
	assert.Equal(t, "EUR", expense.Currency)
	assert.Equal(t, "batch-1", expense.BatchID())
	assert.Equal(t, "payee@example.com", expense.PayoutMethod.Data.Email)
	assert.Equal(t, int64(3), expense.Collective.HostCollectiveID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetExpenseNotFound(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectQuery("SELECT (.+) FROM payouts.expenses e").WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows(expenseColumns()))

	_, err := ds.GetExpense(context.Background(), 404)
	assert.True(t, apierror.IsCode(err, apierror.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateExpenseStatusIsConditional(t *testing.T) {
	ds, mock := newTestDatasource(t)

	// The WHERE clause must exclude rows already in the target status.
	mock.ExpectExec(`UPDATE payouts.expenses\s+SET status = \$2, updated_at = NOW\(\)\s+WHERE id = \$1 AND status <> \$2`).
		WithArgs(int64(42), model.ExpenseStatusProcessing).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, ds.UpdateExpenseStatus(context.Background(), 42, model.ExpenseStatusProcessing))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetExpensePaidIsConditional(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectExec(`UPDATE payouts.expenses\s+SET status = \$2, last_edited_by_id = \$3, updated_at = NOW\(\)\s+WHERE id = \$1 AND status <> \$2`).
		WithArgs(int64(42), model.ExpenseStatusPaid, int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, ds.SetExpensePaid(context.Background(), 42, 99))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMergeAndReplaceExpenseData(t *testing.T) {
	ds, mock := newTestDatasource(t)

	// Merge must use the JSONB concatenation operator so existing keys survive.
	mock.ExpectExec(`SET data = COALESCE\(data, '\{\}'::jsonb\) \|\| \$2::jsonb`).
		WithArgs(int64(42), []byte(`{"payout_batch_id":"batch-1"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, ds.MergeExpenseData(context.Background(), 42, map[string]interface{}{"payout_batch_id": "batch-1"}))

	// Replace overwrites the bag wholesale.
	mock.ExpectExec(`SET data = \$2::jsonb`).
		WithArgs(int64(42), []byte(`{"transaction_status":"SUCCESS"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, ds.ReplaceExpenseData(context.Background(), 42, map[string]interface{}{"transaction_status": "SUCCESS"}))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetExpensesByBatchID(t *testing.T) {
	ds, mock := newTestDatasource(t)
	now := time.Now()

	rows := sqlmock.NewRows(expenseColumns()).
		AddRow(1, 7, int64(5000), "USD", "Hosting", model.ExpenseStatusProcessing,
			[]byte(`{"payout_batch_id":"batch-1"}`), []byte(`{}`), int64(9), now, now,
			7, "Open Knowledge", "USD", int64(3), false).
		AddRow(2, 7, int64(2500), "USD", "Stickers", model.ExpenseStatusProcessing,
			[]byte(`{"payout_batch_id":"batch-1"}`), []byte(`{}`), int64(9), now, now,
			7, "Open Knowledge", "USD", int64(3), false)

	mock.ExpectQuery(`WHERE e.data->>'payout_batch_id' = \$1`).WithArgs("batch-1").WillReturnRows(rows)

	expenses, err := ds.GetExpensesByBatchID(context.Background(), "batch-1")
	require.NoError(t, err)
	assert.Len(t, expenses, 2)
	assert.Equal(t, int64(1), expenses[0].ID)
	assert.Equal(t, int64(2), expenses[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
