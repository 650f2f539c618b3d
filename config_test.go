// Copyright 2026 Quoll Ledger Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package quoll

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quoll-ledger/quoll/gov"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.NotNil(t, cfg.logger)
	assert.Nil(t, cfg.params)
	assert.Empty(t, cfg.dataDir)
	assert.Zero(t, cfg.tickInterval)
	assert.False(t, cfg.tracing)
}

func TestConfigOptions(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	registry := prometheus.NewRegistry()
	params := gov.DefaultParams()
	params.GovActionLifetime = 3
	cfg := NewConfig(
		WithLogger(logger),
		WithDataDir("/tmp/quoll-test"),
		WithParams(params),
		WithInitialTreasury(5_000),
		WithPrometheusRegistry(registry),
		WithTickInterval(5*time.Minute),
		WithTracing(true),
		WithTracingStdout(true),
		WithShutdownTimeout(10*time.Second),
	)
	assert.Equal(t, logger, cfg.logger)
	assert.Equal(t, "/tmp/quoll-test", cfg.dataDir)
	require.NotNil(t, cfg.params)
	assert.Equal(t, uint64(3), cfg.params.GovActionLifetime)
	assert.Equal(t, uint64(5_000), cfg.initialTreasury)
	assert.Equal(t, prometheus.Registerer(registry), cfg.promRegistry)
	assert.Equal(t, 5*time.Minute, cfg.tickInterval)
	assert.True(t, cfg.tracing)
	assert.True(t, cfg.tracingStdout)
	assert.Equal(t, 10*time.Second, cfg.shutdownTimeout)
}

func TestNewRejectsInvalidParams(t *testing.T) {
	params := gov.DefaultParams()
	params.GovActionLifetime = 0
	_, err := New(NewConfig(WithParams(params)))
	assert.Error(t, err)
}
