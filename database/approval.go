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
	"fmt"

	"github.com/blinklabs-io/crowdfund/database/models"
	"gorm.io/gorm/clause"
)

// AddMilestoneApproval records an approval. It returns false without error
// when the signer already approved the milestone
func (d *Database) AddMilestoneApproval(
	approval *models.MilestoneApproval,
	txn *Txn,
) (bool, error) {
	db, err := txn.checkWritable()
	if err != nil {
		return false, err
	}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(approval)
	if result.Error != nil {
		return false, fmt.Errorf("add milestone approval: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// GetMilestoneApprovals returns the approvals recorded for a milestone in
// the order they were made
func (d *Database) GetMilestoneApprovals(
	campaignId uint64,
	milestoneIndex uint8,
	txn *Txn,
) ([]models.MilestoneApproval, error) {
	var ret []models.MilestoneApproval
	db, err := d.reader(txn)
	if err != nil {
		return nil, err
	}
	result := db.Where(
		"campaign_id = ? AND milestone_index = ?",
		campaignId,
		milestoneIndex,
	).
		Order("id ASC").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
