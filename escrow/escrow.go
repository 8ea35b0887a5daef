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

// Package escrow implements the milestone release policy for campaign funds.
//
// A campaign goal is split into three increments. The first two are each a
// third of the goal rounded down and the last one takes the remainder, so the
// increments always add up to the goal exactly. An increment unlocks once the
// amount raised reaches its cumulative threshold.
package escrow

// Milestones is the number of release increments per campaign
const Milestones = 3

// Thresholds returns the cumulative raised amounts at which each increment
// unlocks
func Thresholds(goal uint64) [Milestones]uint64 {
	third := goal / 3
	return [Milestones]uint64{third, 2 * third, goal}
}

// UnlockedIncrements returns how many increments are unlocked for the given
// amount raised. A zero goal unlocks nothing
func UnlockedIncrements(totalRaised uint64, goal uint64) int {
	if goal == 0 {
		return 0
	}
	unlocked := 0
	for _, threshold := range Thresholds(goal) {
		if totalRaised < threshold {
			break
		}
		unlocked++
	}
	return unlocked
}

// IncrementAmounts returns the value released by each increment
func IncrementAmounts(goal uint64) [Milestones]uint64 {
	third := goal / 3
	return [Milestones]uint64{third, third, goal - 2*third}
}

// ReleaseAmount returns the sum of the increments with index in [from, to).
// Out of range bounds are clamped
func ReleaseAmount(goal uint64, from int, to int) uint64 {
	from = max(from, 0)
	to = min(to, Milestones)
	var ret uint64
	amounts := IncrementAmounts(goal)
	for i := from; i < to; i++ {
		ret += amounts[i]
	}
	return ret
}
