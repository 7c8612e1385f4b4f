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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payouts.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestInitConfigDefaults(t *testing.T) {
	path := writeConfigFile(t, `{
		"data_source": {"dns": "postgres://localhost:5432/payouts"},
		"redis": {"dns": "localhost:6379"},
		"provider": {"base_url": "https://api.provider.example"}
	}`)

	require.NoError(t, InitConfig(path))

	cnf, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "Payouts", cnf.ProjectName)
	assert.Equal(t, DEFAULT_PROVIDER, cnf.Provider.Name)
	assert.Equal(t, 30, cnf.Provider.TimeoutSec)
	assert.Equal(t, DEFAULT_POLL_QUEUE, cnf.Queue.PollQueue)
	assert.Equal(t, DEFAULT_WEBHOOK_QUEUE, cnf.Queue.WebhookQueue)
	assert.Equal(t, DEFAULT_POLL_DELAY, cnf.Queue.PollDelaySec)
	assert.Equal(t, DEFAULT_FX_CACHE_TTL, cnf.Fx.CacheTTLSec)
}

func TestInitConfigRequiredFields(t *testing.T) {
	t.Run("missing data source", func(t *testing.T) {
		path := writeConfigFile(t, `{
			"redis": {"dns": "localhost:6379"},
			"provider": {"base_url": "https://api.provider.example"}
		}`)
		assert.Error(t, InitConfig(path))
	})

	t.Run("missing provider base url", func(t *testing.T) {
		path := writeConfigFile(t, `{
			"data_source": {"dns": "postgres://localhost:5432/payouts"},
			"redis": {"dns": "localhost:6379"}
		}`)
		assert.Error(t, InitConfig(path))
	})
}

func TestEnvOverride(t *testing.T) {
	path := writeConfigFile(t, `{
		"data_source": {"dns": "postgres://localhost:5432/payouts"},
		"redis": {"dns": "localhost:6379"},
		"provider": {"base_url": "https://api.provider.example", "name": "paypal"}
	}`)

	t.Setenv("PAYOUTS_PROVIDER_NAME", "wise")
	require.NoError(t, InitConfig(path))

	cnf, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "wise", cnf.Provider.Name)
}

func TestMockConfig(t *testing.T) {
	cnf := &Configuration{ProjectName: "test"}
	MockConfig(cnf)

	fetched, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "test", fetched.ProjectName)
}
