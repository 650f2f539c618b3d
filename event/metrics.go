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

package event

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type eventMetrics struct {
	subscribers   *prometheus.GaugeVec
	eventsTotal   *prometheus.CounterVec
	droppedEvents *prometheus.CounterVec
}

func newEventMetrics(registry prometheus.Registerer) *eventMetrics {
	factory := promauto.With(registry)
	return &eventMetrics{
		subscribers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "eventbus_subscribers",
				Help: "current number of subscribers by event type",
			},
			[]string{"type"},
		),
		eventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventbus_events_total",
				Help: "total number of events published by event type",
			},
			[]string{"type"},
		),
		droppedEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventbus_dropped_events_total",
				Help: "total number of async events dropped by event type",
			},
			[]string{"type"},
		),
	}
}
