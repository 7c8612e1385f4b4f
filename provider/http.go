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

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/collectivehq/payouts/config"
	"github.com/collectivehq/payouts/internal/apierror"
	"github.com/collectivehq/payouts/internal/request"
	"github.com/collectivehq/payouts/model"
)

// HTTPClient is the HTTP implementation of Client. Transient transport
// failures and 5xx responses are retried with exponential backoff; 4xx
// responses are provider rejections and surface immediately.
type HTTPClient struct {
	baseURL string
	timeout time.Duration
}

// NewHTTPClient builds an HTTPClient from the loaded configuration.
func NewHTTPClient() (*HTTPClient, error) {
	cfg, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	return &HTTPClient{
		baseURL: cfg.Provider.BaseUrl,
		timeout: time.Duration(cfg.Provider.TimeoutSec) * time.Second,
	}, nil
}

// providerFailure is the error body shape the provider returns on rejection.
type providerFailure struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// SubmitBatch sends a built batch request to the provider. The sender batch
// id inside the request makes retries of an identical expense set
// deduplicate at the provider, so the backoff retry here cannot double-pay.
func (c *HTTPClient) SubmitBatch(ctx context.Context, account *model.ProviderAccount, req *model.BatchRequest) (*model.BatchHeader, error) {
	if err := req.Validate(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Invalid batch request", err)
	}

	var submitted struct {
		BatchHeader model.BatchHeader `json:"batch_header"`
	}
	url := fmt.Sprintf("%s/v1/payments/payouts", c.baseURL)
	if err := c.call(ctx, account, http.MethodPost, url, req, &submitted); err != nil {
		return nil, err
	}
	return &submitted.BatchHeader, nil
}

// FetchBatchInfo retrieves the batch header and per-item outcomes for the
// given provider batch id.
func (c *HTTPClient) FetchBatchInfo(ctx context.Context, account *model.ProviderAccount, batchID string) (*model.BatchInfo, error) {
	var info model.BatchInfo
	url := fmt.Sprintf("%s/v1/payments/payouts/%s", c.baseURL, batchID)
	if err := c.call(ctx, account, http.MethodGet, url, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *HTTPClient) call(ctx context.Context, account *model.ProviderAccount, method, url string, payload, response interface{}) error {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	operation := func() error {
		req, err := c.newRequest(callCtx, account, method, url, payload)
		if err != nil {
			return backoff.Permanent(err)
		}

		var raw json.RawMessage
		resp, err := request.Call(req, &raw)
		if err != nil {
			return err
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if response == nil {
				return nil
			}
			if err := json.Unmarshal(raw, response); err != nil {
				return backoff.Permanent(errors.Wrap(err, "decoding provider response"))
			}
			return nil
		case resp.StatusCode >= 500:
			logrus.Warnf("provider returned %d for %s %s, retrying", resp.StatusCode, method, url)
			return fmt.Errorf("provider returned status %d", resp.StatusCode)
		default:
			var failure providerFailure
			_ = json.Unmarshal(raw, &failure)
			detail := fmt.Sprintf("%s %s", failure.Name, failure.Message)
			return backoff.Permanent(apierror.NewAPIError(apierror.ErrProvider,
				fmt.Sprintf("Provider rejected %s %s: %s", method, url, detail), nil))
		}
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), callCtx)
	if err := backoff.Retry(operation, policy); err != nil {
		if apierror.IsCode(err, apierror.ErrProvider) || apierror.IsCode(err, apierror.ErrInvalidInput) {
			return err
		}
		return apierror.NewAPIError(apierror.ErrProvider, "Provider call failed", err)
	}
	return nil
}

func (c *HTTPClient) newRequest(ctx context.Context, account *model.ProviderAccount, method, url string, payload interface{}) (*http.Request, error) {
	if payload != nil {
		buf, err := request.ToJsonReq(payload)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, method, url, buf)
		if err != nil {
			return nil, err
		}
		return withAuth(req, account), nil
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	return withAuth(req, account), nil
}

func withAuth(req *http.Request, account *model.ProviderAccount) *http.Request {
	req.Header.Set("Authorization", fmt.Sprintf("Basic %s", request.BasicAuth(account.ClientID, account.ClientSecret)))
	return req
}
