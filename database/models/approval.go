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

import "time"

// MilestoneApproval records that a trusted signer authorized the release of a
// milestone increment. Rows are never deleted.
type MilestoneApproval struct {
	CreatedAt      time.Time `gorm:"not null"`
	Signer         string    `gorm:"uniqueIndex:idx_milestone_approval,priority:3;size:128;not null"`
	ID             uint64    `gorm:"primarykey"`
	CampaignID     uint64    `gorm:"uniqueIndex:idx_milestone_approval,priority:1;not null"`
	MilestoneIndex uint8     `gorm:"uniqueIndex:idx_milestone_approval,priority:2;not null"`
}

func (MilestoneApproval) TableName() string {
	return "milestone_approval"
}
