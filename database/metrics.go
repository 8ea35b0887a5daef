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

package database

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type databaseMetrics struct {
	txnCommits   prometheus.Counter
	txnRollbacks prometheus.Counter
}

func (m *databaseMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.txnCommits = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "crowdfund_database_txn_commits_total",
		Help: "number of committed read-write transactions",
	})
	m.txnRollbacks = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "crowdfund_database_txn_rollbacks_total",
		Help: "number of read-write transactions rolled back",
	})
}

func (m *databaseMetrics) observeTxn(err error) {
	if m.txnCommits == nil {
		return
	}
	if err != nil {
		m.txnRollbacks.Inc()
		return
	}
	m.txnCommits.Inc()
}
