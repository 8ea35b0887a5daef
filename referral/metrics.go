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

package referral

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type referralMetrics struct {
	referralsRecorded prometheus.Counter
	pointsClaimed     prometheus.Counter
}

func (m *referralMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.referralsRecorded = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "crowdfund_referral_recorded_total",
		Help: "number of referral bindings recorded",
	})
	m.pointsClaimed = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "crowdfund_referral_points_claimed_total",
		Help: "referral points claimed",
	})
}
