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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PROVIDER      = "paypal"
	DEFAULT_POLL_QUEUE    = "poll_payout_batch"
	DEFAULT_WEBHOOK_QUEUE = "new_webhook"
	DEFAULT_POLL_DELAY    = 120  // seconds before the first poll of a submitted batch
	DEFAULT_FX_CACHE_TTL  = 3600 // seconds an FX rate stays cached
)

var ConfigStore atomic.Value

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"PAYOUTS_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"PAYOUTS_REDIS_DNS"`
}

// ProviderConfig describes the batch payout provider endpoint. Name is the
// key used to look up a host's connected account.
type ProviderConfig struct {
	Name       string `json:"name" envconfig:"PAYOUTS_PROVIDER_NAME"`
	BaseUrl    string `json:"base_url" envconfig:"PAYOUTS_PROVIDER_BASE_URL"`
	TimeoutSec int    `json:"timeout_sec" envconfig:"PAYOUTS_PROVIDER_TIMEOUT_SEC"`
}

// FxConfig describes the external FX-rate lookup service.
type FxConfig struct {
	Url         string `json:"url" envconfig:"PAYOUTS_FX_URL"`
	CacheTTLSec int    `json:"cache_ttl_sec" envconfig:"PAYOUTS_FX_CACHE_TTL_SEC"`
}

type QueueConfig struct {
	PollQueue    string `json:"poll_queue" envconfig:"PAYOUTS_QUEUE_POLL"`
	WebhookQueue string `json:"webhook_queue" envconfig:"PAYOUTS_QUEUE_WEBHOOK"`
	PollDelaySec int    `json:"poll_delay_sec" envconfig:"PAYOUTS_QUEUE_POLL_DELAY_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"PAYOUTS_SLACK_WEBHOOK_URL"`
}

type Notification struct {
	Slack   SlackWebhook `json:"slack"`
	Webhook struct {
		Url     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"webhook"`
}

type Configuration struct {
	ProjectName  string           `json:"project_name" envconfig:"PAYOUTS_PROJECT_NAME"`
	DataSource   DataSourceConfig `json:"data_source"`
	Redis        RedisConfig      `json:"redis"`
	Provider     ProviderConfig   `json:"provider"`
	Fx           FxConfig         `json:"fx"`
	Queue        QueueConfig      `json:"queue"`
	Notification Notification     `json:"notification"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("payouts", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called payouts.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Payouts"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	if cnf.Provider.BaseUrl == "" {
		log.Println("Error: Provider base URL is empty. It's a required field.")
		return errors.New("provider base URL is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.Provider.BaseUrl = strings.TrimSpace(cnf.Provider.BaseUrl)

	if cnf.Provider.Name == "" {
		cnf.Provider.Name = DEFAULT_PROVIDER
	}
	if cnf.Provider.TimeoutSec <= 0 {
		cnf.Provider.TimeoutSec = 30
	}
	if cnf.Fx.CacheTTLSec <= 0 {
		cnf.Fx.CacheTTLSec = DEFAULT_FX_CACHE_TTL
	}
	if cnf.Queue.PollQueue == "" {
		cnf.Queue.PollQueue = DEFAULT_POLL_QUEUE
	}
	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = DEFAULT_WEBHOOK_QUEUE
	}
	if cnf.Queue.PollDelaySec <= 0 {
		cnf.Queue.PollDelaySec = DEFAULT_POLL_DELAY
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
