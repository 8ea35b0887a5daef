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

package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type ledgerMetrics struct {
	campaignsCreated   prometheus.Counter
	contributions      prometheus.Counter
	lovelaceRaised     prometheus.Counter
	withdrawals        prometheus.Counter
	lovelaceReleased   prometheus.Counter
	operationsRejected *prometheus.CounterVec
}

func (m *ledgerMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.campaignsCreated = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "crowdfund_ledger_campaigns_created_total",
		Help: "number of campaigns created",
	})
	m.contributions = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "crowdfund_ledger_contributions_total",
		Help: "number of accepted contributions",
	})
	m.lovelaceRaised = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "crowdfund_ledger_lovelace_raised_total",
		Help: "lovelace contributed across all campaigns",
	})
	m.withdrawals = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "crowdfund_ledger_withdrawals_total",
		Help: "number of successful withdrawals",
	})
	m.lovelaceReleased = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "crowdfund_ledger_lovelace_released_total",
		Help: "lovelace released to campaign creators",
	})
	m.operationsRejected = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowdfund_ledger_operations_rejected_total",
			Help: "number of rejected ledger operations by operation",
		},
		[]string{"operation"},
	)
}
