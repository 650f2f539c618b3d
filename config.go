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
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/quoll-ledger/quoll/gov"
)

type Config struct {
	promRegistry    prometheus.Registerer
	logger          *slog.Logger
	params          *gov.Params
	stake           gov.StakeDistribution
	dataDir         string
	initialTreasury uint64
	tickInterval    time.Duration
	shutdownTimeout time.Duration
	tracing         bool
	tracingStdout   bool
}

// ConfigOptionFunc is a type that represents functions that modify the
// Ledger config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new quoll config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithLogger specifies the logger to use. This defaults to discarding log
// output.
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithDataDir specifies the directory for the governance database. An empty
// value keeps all state in memory, which is mostly useful for testing.
func WithDataDir(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithParams specifies the governance parameters used when no stored state
// exists yet. Stored state carries its own parameters.
func WithParams(params gov.Params) ConfigOptionFunc {
	return func(c *Config) {
		c.params = &params
	}
}

// WithInitialTreasury specifies the treasury balance for a fresh state
func WithInitialTreasury(amount uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.initialTreasury = amount
	}
}

// WithStakeDistribution overrides the voting-power source used by
// ratification tallies. The default weighs DReps by their registered stake.
func WithStakeDistribution(stake gov.StakeDistribution) ConfigOptionFunc {
	return func(c *Config) {
		c.stake = stake
	}
}

// WithPrometheusRegistry specifies a prometheus registry for metrics
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithTickInterval enables wall-clock epoch ticks at the given interval.
// Without it epochs only advance through explicit Tick calls.
func WithTickInterval(interval time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.tickInterval = interval
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s)
// endpoint using OTLP. This can be configured using the OTEL_EXPORTER_OTLP_*
// env vars documented in the README for
// [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires
// tracing to be enabled separately. This is mostly useful for debugging.
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
