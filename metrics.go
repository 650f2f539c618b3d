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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/quoll-ledger/quoll/gov"
)

type ledgerMetrics struct {
	epoch           prometheus.Gauge
	dormantEpochs   prometheus.Gauge
	treasuryBalance prometheus.Gauge
	proposals       prometheus.Gauge
	dreps           prometheus.Gauge
	ticks           prometheus.Counter
	outcomes        *prometheus.CounterVec
}

func newLedgerMetrics(registry prometheus.Registerer) *ledgerMetrics {
	factory := promauto.With(registry)
	return &ledgerMetrics{
		epoch: factory.NewGauge(prometheus.GaugeOpts{
			Name: "quoll_epoch",
			Help: "current epoch number",
		}),
		dormantEpochs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "quoll_dormant_epochs",
			Help: "current dormant epoch counter",
		}),
		treasuryBalance: factory.NewGauge(prometheus.GaugeOpts{
			Name: "quoll_treasury_balance",
			Help: "current treasury balance",
		}),
		proposals: factory.NewGauge(prometheus.GaugeOpts{
			Name: "quoll_proposals",
			Help: "number of live governance proposals",
		}),
		dreps: factory.NewGauge(prometheus.GaugeOpts{
			Name: "quoll_dreps",
			Help: "number of registered DReps",
		}),
		ticks: factory.NewCounter(prometheus.CounterOpts{
			Name: "quoll_ticks_total",
			Help: "total epoch ticks processed",
		}),
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quoll_proposal_outcomes_total",
			Help: "total proposals settled, by outcome",
		}, []string{"outcome"}),
	}
}

func (m *ledgerMetrics) observe(s *gov.State) {
	m.epoch.Set(float64(s.Epoch()))
	m.dormantEpochs.Set(float64(s.DormantEpochCount()))
	m.treasuryBalance.Set(float64(s.TreasuryBalance()))
	m.proposals.Set(float64(len(s.GetProposals())))
	m.dreps.Set(float64(len(s.DReps())))
}

func (m *ledgerMetrics) observeTick(ev *gov.TickEvent) {
	m.ticks.Inc()
	m.outcomes.WithLabelValues("ratified").
		Add(float64(len(ev.Ratified)))
	m.outcomes.WithLabelValues("enacted").
		Add(float64(len(ev.Enacted)))
	m.outcomes.WithLabelValues("expired").
		Add(float64(len(ev.Expired)))
	m.outcomes.WithLabelValues("dropped").
		Add(float64(len(ev.Dropped)))
}
