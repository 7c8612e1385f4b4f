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
	"testing"

	"github.com/collectivehq/payouts/config"
	dbmocks "github.com/collectivehq/payouts/database/mocks"
	providermocks "github.com/collectivehq/payouts/provider/mocks"
)

// fxStub is a canned FX service for reconciliation tests.
type fxStub struct {
	rate float64
	err  error
}

func (f *fxStub) Rate(_ context.Context, _, _ string) (float64, error) {
	return f.rate, f.err
}

func newTestPayouts(t *testing.T) (*Payouts, *dbmocks.MockDataSource, *providermocks.MockProviderClient) {
	t.Helper()
	config.MockConfig(&config.Configuration{
		ProjectName: "Payouts",
		Provider:    config.ProviderConfig{Name: "paypal", BaseUrl: "https://provider.test", TimeoutSec: 5},
	})

	datasource := new(dbmocks.MockDataSource)
	providerClient := new(providermocks.MockProviderClient)
	return &Payouts{
		datasource:   datasource,
		provider:     providerClient,
		fx:           &fxStub{rate: 1.0},
		providerName: "paypal",
	}, datasource, providerClient
}
