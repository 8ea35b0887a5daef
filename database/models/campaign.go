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

// Column sizes for bounded text fields. These must match the size tags below
const (
	TitleColumnSize   = 1024
	CommentColumnSize = 1024
)

type Campaign struct {
	Deadline          time.Time    `gorm:"index;not null"`
	CreatedAt         time.Time    `gorm:"not null"`
	Creator           string       `gorm:"index;size:128;not null"`
	Title             string       `gorm:"size:1024;not null"`
	Description       string       `gorm:"type:text;not null"`
	ID                uint64       `gorm:"primarykey"`
	FundingGoal       types.Uint64 `gorm:"size:20;not null"`
	TotalRaised       types.Uint64 `gorm:"size:20;not null"`
	AmountReleased    types.Uint64 `gorm:"size:20;not null"`
	MilestonesClaimed uint8        `gorm:"not null;default:0"`
}

func (Campaign) TableName() string {
	return "campaign"
}

// IsOpen reports whether the campaign still accepts contributions at the given time
func (c *Campaign) IsOpen(now time.Time) bool {
	return now.Before(c.Deadline)
}

// Contribution is an append-only record of funds pledged to a campaign
type Contribution struct {
	CreatedAt   time.Time    `gorm:"not null"`
	Contributor string       `gorm:"index;size:128;not null"`
	Referrer    string       `gorm:"size:128"`
	Comment     string       `gorm:"size:1024"`
	ID          uint64       `gorm:"primarykey"`
	CampaignID  uint64       `gorm:"index;not null"`
	Amount      types.Uint64 `gorm:"size:20;not null"`
}

func (Contribution) TableName() string {
	return "contribution"
}

// Withdrawal records a release of escrowed funds to the campaign creator
type Withdrawal struct {
	CreatedAt     time.Time    `gorm:"not null"`
	Recipient     string       `gorm:"size:128;not null"`
	ID            uint64       `gorm:"primarykey"`
	CampaignID    uint64       `gorm:"index;not null"`
	Amount        types.Uint64 `gorm:"size:20;not null"`
	FromMilestone uint8        `gorm:"not null"`
	ToMilestone   uint8        `gorm:"not null"`
}

func (Withdrawal) TableName() string {
	return "withdrawal"
}
