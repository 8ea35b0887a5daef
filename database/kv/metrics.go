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

package kv

import "github.com/prometheus/client_golang/prometheus"

const kvMetricNamePrefix = "crowdfund_kv_"

type storeMetrics struct {
	txnsTotal      prometheus.Counter
	conflictsTotal prometheus.Counter
}

func (d *Store) registerMetrics() {
	d.metrics.txnsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: kvMetricNamePrefix + "txns_total",
			Help: "Total number of committed read-write KV transactions",
		},
	)
	d.metrics.conflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: kvMetricNamePrefix + "conflicts_total",
			Help: "Total number of KV transactions aborted by a write conflict",
		},
	)
	d.promRegistry.MustRegister(
		d.metrics.txnsTotal,
		d.metrics.conflictsTotal,
	)
}
