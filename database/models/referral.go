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

package models

import (
	"time"

	"github.com/blinklabs-io/crowdfund/database/types"
)

// Referral binds a referred principal to the principal who referred them
type Referral struct {
	CreatedAt time.Time `gorm:"not null"`
	Referred  string    `gorm:"uniqueIndex;size:128;not null"`
	Referrer  string    `gorm:"index;size:128;not null"`
	ID        uint64    `gorm:"primarykey"`
}

func (Referral) TableName() string {
	return "referral"
}

type ReferralBalance struct {
	UpdatedAt time.Time
	Referrer  string       `gorm:"primaryKey;size:128"`
	Count     uint64       `gorm:"not null;default:0"`
	Points    types.Uint64 `gorm:"size:20;not null"`
}

func (ReferralBalance) TableName() string {
	return "referral_balance"
}
