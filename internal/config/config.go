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

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/gouroboros/ledger/conway"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/quoll-ledger/quoll/gov"
)

type ctxKey string

const configContextKey ctxKey = "quoll.config"

const DefaultShutdownTimeout = "30s"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type Config struct {
	DataDir         string `yaml:"dataDir"            envconfig:"QUOLL_DATA_DIR"`
	BindAddr        string `yaml:"bindAddr"           envconfig:"QUOLL_BIND_ADDR"`
	TickInterval    string `yaml:"tickInterval"       envconfig:"QUOLL_TICK_INTERVAL"`
	ShutdownTimeout string `yaml:"shutdownTimeout"    envconfig:"QUOLL_SHUTDOWN_TIMEOUT"`
	MetricsPort     uint   `yaml:"metricsPort"        envconfig:"QUOLL_METRICS_PORT"`
	InitialTreasury uint64 `yaml:"initialTreasury"    envconfig:"QUOLL_INITIAL_TREASURY"`
	Tracing         bool   `yaml:"tracing"            envconfig:"QUOLL_TRACING"`
	TracingStdout   bool   `yaml:"tracingStdout"      envconfig:"QUOLL_TRACING_STDOUT"`

	// Governance parameter overrides. Zero values keep the defaults;
	// thresholds are given in "num/denom" form.
	GovActionLifetime  uint64 `yaml:"govActionLifetime"  envconfig:"QUOLL_GOV_ACTION_LIFETIME"`
	GovActionDeposit   uint64 `yaml:"govActionDeposit"   envconfig:"QUOLL_GOV_ACTION_DEPOSIT"`
	DRepActivity       uint64 `yaml:"drepActivity"       envconfig:"QUOLL_DREP_ACTIVITY"`
	DRepDeposit        uint64 `yaml:"drepDeposit"        envconfig:"QUOLL_DREP_DEPOSIT"`
	CommitteeTermLimit uint64 `yaml:"committeeTermLimit" envconfig:"QUOLL_COMMITTEE_TERM_LIMIT"`
	DRepThreshold      string `yaml:"drepThreshold"      envconfig:"QUOLL_DREP_THRESHOLD"`
	PoolThreshold      string `yaml:"poolThreshold"      envconfig:"QUOLL_POOL_THRESHOLD"`
	CommitteeThreshold string `yaml:"committeeThreshold" envconfig:"QUOLL_COMMITTEE_THRESHOLD"`
}

var globalConfig = &Config{
	DataDir:         ".quoll",
	BindAddr:        "0.0.0.0",
	MetricsPort:     12798,
	ShutdownTimeout: DefaultShutdownTimeout,
}

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.quoll/quoll.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".quoll", "quoll.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}
		// Try to check for /etc/quoll/quoll.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/quoll/quoll.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		err = yaml.Unmarshal(buf, globalConfig)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Load config values from environment variables
	// We use "dummy" as the app name to (mostly) prevent picking up env
	// vars that we hadn't explicitly specified in annotations above
	err := envconfig.Process("dummy", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	return globalConfig, nil
}

// GetConfig returns the global config instance
func GetConfig() *Config {
	return globalConfig
}

// GovParams builds governance parameters from the configured overrides on
// top of the defaults
func (c *Config) GovParams() (gov.Params, error) {
	params := gov.DefaultParams()
	if c.GovActionLifetime > 0 {
		params.GovActionLifetime = c.GovActionLifetime
	}
	if c.GovActionDeposit > 0 {
		params.GovActionDeposit = c.GovActionDeposit
	}
	if c.DRepActivity > 0 {
		params.DRepActivity = c.DRepActivity
	}
	if c.DRepDeposit > 0 {
		params.DRepDeposit = c.DRepDeposit
	}
	if c.CommitteeTermLimit > 0 {
		params.CommitteeTermLimit = c.CommitteeTermLimit
	}
	if c.DRepThreshold != "" {
		threshold, err := gov.ParseRat(c.DRepThreshold)
		if err != nil {
			return params, fmt.Errorf("drep threshold: %w", err)
		}
		params.DRepThresholds = conway.DRepVotingThresholds{
			MotionNoConfidence:    threshold,
			CommitteeNormal:       threshold,
			CommitteeNoConfidence: threshold,
			UpdateToConstitution:  threshold,
			HardForkInitiation:    threshold,
			PpNetworkGroup:        threshold,
			PpEconomicGroup:       threshold,
			PpTechnicalGroup:      threshold,
			PpGovGroup:            threshold,
			TreasuryWithdrawal:    threshold,
		}
	}
	if c.PoolThreshold != "" {
		threshold, err := gov.ParseRat(c.PoolThreshold)
		if err != nil {
			return params, fmt.Errorf("pool threshold: %w", err)
		}
		params.PoolThresholds = conway.PoolVotingThresholds{
			MotionNoConfidence:    threshold,
			CommitteeNormal:       threshold,
			CommitteeNoConfidence: threshold,
			HardForkInitiation:    threshold,
			PpSecurityGroup:       threshold,
		}
	}
	if c.CommitteeThreshold != "" {
		threshold, err := gov.ParseRat(c.CommitteeThreshold)
		if err != nil {
			return params, fmt.Errorf("committee threshold: %w", err)
		}
		params.CommitteeThreshold = threshold
	}
	if err := params.Validate(); err != nil {
		return params, fmt.Errorf("invalid governance parameters: %w", err)
	}
	return params, nil
}

// TickIntervalDuration parses the configured tick interval. An empty value
// disables wall-clock ticks.
func (c *Config) TickIntervalDuration() (time.Duration, error) {
	if c.TickInterval == "" {
		return 0, nil
	}
	interval, err := time.ParseDuration(c.TickInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid tick interval: %w", err)
	}
	return interval, nil
}

// ShutdownTimeoutDuration parses the configured shutdown timeout
func (c *Config) ShutdownTimeoutDuration() (time.Duration, error) {
	if c.ShutdownTimeout == "" {
		return 0, nil
	}
	timeout, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid shutdown timeout: %w", err)
	}
	return timeout, nil
}
