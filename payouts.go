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

// Package payouts is the batch payout reconciliation core. It submits sets
// of approved expenses to an external batch payout provider, then polls the
// provider and applies each item's outcome back onto the owning expense,
// including multi-currency fee and FX bookkeeping.
package payouts

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/collectivehq/payouts/cache"
	"github.com/collectivehq/payouts/config"
	"github.com/collectivehq/payouts/database"
	"github.com/collectivehq/payouts/fxrates"
	redis_db "github.com/collectivehq/payouts/internal/redis-db"
	"github.com/collectivehq/payouts/model"
	"github.com/collectivehq/payouts/provider"
)

// tracer traces the four core operations: build, submit, reconcile, poll.
var tracer = otel.Tracer("payouts.core")

// Payouts is the service struct tying the payout core to its collaborators.
type Payouts struct {
	datasource   database.IDataSource
	provider     provider.Client
	fx           fxrates.Service
	queue        *Queue
	redis        redis.UniversalClient
	providerName string
}

// NewPayouts initializes a Payouts service over the given datasource, wiring
// the provider client, FX service, cache and queue from the loaded
// configuration.
func NewPayouts(db database.IDataSource) (*Payouts, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", configuration.Redis.Dns)})
	if err != nil {
		return nil, err
	}

	newCache, err := cache.NewCache()
	if err != nil {
		return nil, err
	}

	fxService, err := fxrates.NewHTTPService(newCache)
	if err != nil {
		return nil, err
	}

	providerClient, err := provider.NewHTTPClient()
	if err != nil {
		return nil, err
	}

	return &Payouts{
		datasource:   db,
		provider:     providerClient,
		fx:           fxService,
		queue:        NewQueue(configuration),
		redis:        redisClient.Client(),
		providerName: configuration.Provider.Name,
	}, nil
}

// GetExpensesByBatchID loads every expense carrying the given provider batch
// id, in id order. Poll workers use it to rebuild the batch from the stored
// correlation state.
func (p *Payouts) GetExpensesByBatchID(ctx context.Context, batchID string) ([]*model.Expense, error) {
	return p.datasource.GetExpensesByBatchID(ctx, batchID)
}
