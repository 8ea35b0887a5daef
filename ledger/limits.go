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

const (
	DefaultMaxTitleLength       = 128
	DefaultMaxDescriptionLength = 4096
	DefaultMaxCommentLength     = 280
	DefaultMinFundingGoal       = 1
	DefaultTopContributors      = 3
)

// Limits bounds user-supplied campaign and contribution input. Lengths are in
// bytes. Zero values select the defaults
type Limits struct {
	MaxTitleLength       int
	MaxDescriptionLength int
	MaxCommentLength     int
	// MinFundingGoal defaults to 1. Goals below 3 release everything with the
	// last increment; a minimum of 3 keeps every increment positive
	MinFundingGoal uint64
}

func (l Limits) withDefaults() Limits {
	if l.MaxTitleLength <= 0 {
		l.MaxTitleLength = DefaultMaxTitleLength
	}
	if l.MaxDescriptionLength <= 0 {
		l.MaxDescriptionLength = DefaultMaxDescriptionLength
	}
	if l.MaxCommentLength <= 0 {
		l.MaxCommentLength = DefaultMaxCommentLength
	}
	if l.MinFundingGoal == 0 {
		l.MinFundingGoal = DefaultMinFundingGoal
	}
	return l
}
