package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/collectivehq/payouts/internal/apierror"
	"github.com/collectivehq/payouts/model"
)

// RecordLedgerEntries records the entries of one ledger transaction inside a
// single database transaction, so a paid expense never materializes half a
// double-entry pair.
func (d *Datasource) RecordLedgerEntries(ctx context.Context, entries []*model.LedgerEntry) error {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin ledger transaction", err)
	}

	for _, entry := range entries {
		if entry.EntryID == "" {
			entry.EntryID = model.GenerateUUIDWithSuffix("entry")
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = time.Now()
		}

		feesJSON, err := json.Marshal(entry.Fees)
		if err != nil {
			_ = tx.Rollback()
			return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal ledger fees", err)
		}
		dataJSON, err := json.Marshal(entry.Data)
		if err != nil {
			_ = tx.Rollback()
			return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal ledger data", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO payouts.ledger_entries
				(entry_id, expense_id, host_id, type, amount, currency, fx_rate, fees, description, data, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, entry.EntryID, entry.ExpenseID, entry.HostID, entry.Type, entry.Amount,
			entry.Currency, entry.FxRate, feesJSON, entry.Description, dataJSON, entry.CreatedAt)
		if err != nil {
			_ = tx.Rollback()
			return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record ledger entry", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit ledger entries", err)
	}
	return nil
}
