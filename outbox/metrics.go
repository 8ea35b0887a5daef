// Copyright 2026 Blink Labs Software
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

package outbox

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type outboxMetrics struct {
	pending      prometheus.Gauge
	delivered    prometheus.Counter
	decodeErrors prometheus.Counter
}

// init creates the metrics. A nil registry leaves them unregistered
func (m *outboxMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.pending = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "crowdfund_outbox_pending",
		Help: "number of notifications waiting to be published",
	})
	m.delivered = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "crowdfund_outbox_delivered_total",
		Help: "number of notifications published and marked delivered",
	})
	m.decodeErrors = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "crowdfund_outbox_decode_errors_total",
		Help: "number of notifications dropped because they could not be decoded",
	})
}
