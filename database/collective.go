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
	"fmt"

	"github.com/collectivehq/payouts/internal/apierror"
	"github.com/collectivehq/payouts/model"
)

// GetCollective retrieves a collective by ID.
func (d *Datasource) GetCollective(ctx context.Context, id int64) (*model.Collective, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT id, name, currency, COALESCE(host_collective_id, 0), is_host
		FROM payouts.collectives
		WHERE id = $1
	`, id)

	collective := model.Collective{}
	err := row.Scan(&collective.ID, &collective.Name, &collective.Currency, &collective.HostCollectiveID, &collective.IsHost)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Collective with ID '%d' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve collective", err)
	}
	return &collective, nil
}

// GetHostCollective resolves the host collective that disburses funds for
// the given collective.
//
// Parameters:
// - ctx: The context for the operation.
// - collectiveID: The ID of the collective whose host to resolve.
//
// Returns:
// - *model.Collective: The host collective.
// - error: A not-found error when the collective has no host.
func (d *Datasource) GetHostCollective(ctx context.Context, collectiveID int64) (*model.Collective, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT h.id, h.name, h.currency, COALESCE(h.host_collective_id, 0), h.is_host
		FROM payouts.collectives c
		JOIN payouts.collectives h ON h.id = c.host_collective_id
		WHERE c.id = $1
	`, collectiveID)

	host := model.Collective{}
	err := row.Scan(&host.ID, &host.Name, &host.Currency, &host.HostCollectiveID, &host.IsHost)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("No host collective for collective '%d'", collectiveID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to resolve host collective", err)
	}
	return &host, nil
}

// GetProviderAccount retrieves a host's connected account for the named
// payout provider. Absence is a hard failure for submission and polling.
func (d *Datasource) GetProviderAccount(ctx context.Context, hostID int64, provider string) (*model.ProviderAccount, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT id, host_id, provider, client_id, client_secret
		FROM payouts.provider_accounts
		WHERE host_id = $1 AND provider = $2
	`, hostID, provider)

	account := model.ProviderAccount{}
	err := row.Scan(&account.ID, &account.HostID, &account.Provider, &account.ClientID, &account.ClientSecret)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Host '%d' has no connected '%s' account", hostID, provider), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve provider account", err)
	}
	return &account, nil
}
