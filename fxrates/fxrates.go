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

// Package fxrates resolves currency exchange rates from an external lookup
// service. Rates are cached per pair; the reconciler only consults this
// service when the provider reports no conversion of its own, so a lookup
// failure here is never fatal to a payout.
package fxrates

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/collectivehq/payouts/cache"
	"github.com/collectivehq/payouts/config"
	"github.com/collectivehq/payouts/internal/request"
)

// Service resolves the rate converting one unit of from-currency into
// to-currency.
type Service interface {
	Rate(ctx context.Context, from, to string) (float64, error)
}

type HTTPService struct {
	url      string
	cacheTTL time.Duration
	cache    cache.Cache
}

func NewHTTPService(cache cache.Cache) (*HTTPService, error) {
	cfg, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	return &HTTPService{
		url:      cfg.Fx.Url,
		cacheTTL: time.Duration(cfg.Fx.CacheTTLSec) * time.Second,
		cache:    cache,
	}, nil
}

type rateResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// Rate returns the from-to rate, serving from cache when a fresh value for
// the pair exists.
func (s *HTTPService) Rate(ctx context.Context, from, to string) (float64, error) {
	if from == to {
		return 1.0, nil
	}

	key := fmt.Sprintf("fxrates:%s:%s", from, to)

	var cached float64
	if s.cache != nil {
		if err := s.cache.Get(ctx, key, &cached); err != nil {
			logrus.Warnf("fx cache read failed for %s: %v", key, err)
		} else if cached != 0 {
			return cached, nil
		}
	}

	rate, err := s.fetch(ctx, from, to)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, rate, s.cacheTTL); err != nil {
			logrus.Warnf("fx cache write failed for %s: %v", key, err)
		}
	}
	return rate, nil
}

func (s *HTTPService) fetch(ctx context.Context, from, to string) (float64, error) {
	url := fmt.Sprintf("%s/latest?base=%s&symbols=%s", s.url, from, to)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	var body rateResponse
	resp, err := request.Call(req, &body)
	if err != nil {
		return 0, errors.Wrap(err, "fetching fx rate")
	}
	if resp.StatusCode != http.StatusOK {
		return 0, errors.Errorf("fx service returned status %d for %s/%s", resp.StatusCode, from, to)
	}

	rate, ok := body.Rates[to]
	if !ok || rate == 0 {
		return 0, errors.Errorf("fx service returned no rate for %s/%s", from, to)
	}
	return rate, nil
}
