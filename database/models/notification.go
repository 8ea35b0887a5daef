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

// Notification is an outbox entry written in the same transaction as the state
// change it describes
type Notification struct {
	CreatedAt   time.Time `gorm:"not null"`
	DeliveredAt *time.Time
	EventType   string `gorm:"index;size:64;not null"`
	Payload     []byte
	ID          uint64 `gorm:"primarykey"`
	CampaignID  uint64 `gorm:"index"`
	Delivered   bool   `gorm:"index;not null;default:false"`
}

func (Notification) TableName() string {
	return "notification"
}
