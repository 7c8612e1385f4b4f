package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/collectivehq/payouts/internal/apierror"
	"github.com/collectivehq/payouts/model"
)

// RecordActivity appends one entry to an expense's activity feed.
func (d *Datasource) RecordActivity(ctx context.Context, act *model.Activity) error {
	if act.ActivityID == "" {
		act.ActivityID = model.GenerateUUIDWithSuffix("act")
	}
	if act.CreatedAt.IsZero() {
		act.CreatedAt = time.Now()
	}

	dataJSON, err := json.Marshal(act.Data)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal activity data", err)
	}

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO payouts.activities (activity_id, kind, expense_id, actor_id, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, act.ActivityID, act.Kind, act.ExpenseID, act.ActorID, dataJSON, act.CreatedAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record activity", err)
	}
	return nil
}
