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
	"errors"
	"fmt"

	"github.com/blinklabs-io/crowdfund/database/models"
	"github.com/blinklabs-io/crowdfund/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrCampaignNotFound = errors.New("campaign not found")

// CreateCampaign inserts a campaign and sets its assigned ID
func (d *Database) CreateCampaign(campaign *models.Campaign, txn *Txn) error {
	db, err := txn.checkWritable()
	if err != nil {
		return err
	}
	if result := db.Create(campaign); result.Error != nil {
		return fmt.Errorf("create campaign: %w", result.Error)
	}
	return nil
}

// GetCampaign returns the campaign with the given ID. When forUpdate is set the
// row is locked until the transaction finishes on dialects that support it
func (d *Database) GetCampaign(
	id uint64,
	forUpdate bool,
	txn *Txn,
) (models.Campaign, error) {
	ret := models.Campaign{}
	db, err := d.reader(txn)
	if err != nil {
		return ret, err
	}
	if forUpdate {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	result := db.Where("id = ?", id).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return ret, ErrCampaignNotFound
		}
		return ret, result.Error
	}
	return ret, nil
}

// GetCampaigns returns all campaigns in ID order
func (d *Database) GetCampaigns(txn *Txn) ([]models.Campaign, error) {
	var ret []models.Campaign
	db, err := d.reader(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Order("id ASC").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetCampaignTotalRaised updates the raised total if it still has the
// expected previous value
func (d *Database) SetCampaignTotalRaised(
	id uint64,
	prevTotal types.Uint64,
	newTotal types.Uint64,
	txn *Txn,
) error {
	db, err := txn.checkWritable()
	if err != nil {
		return err
	}
	result := db.Model(&models.Campaign{}).
		Where("id = ? AND total_raised = ?", id, prevTotal).
		Update("total_raised", newTotal)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return types.ErrStaleRecord
	}
	return nil
}

// AdvanceCampaignMilestones moves the claimed milestone counter forward and
// records the released amount if the counter still has the expected value
func (d *Database) AdvanceCampaignMilestones(
	id uint64,
	prevClaimed uint8,
	newClaimed uint8,
	amountReleased types.Uint64,
	txn *Txn,
) error {
	db, err := txn.checkWritable()
	if err != nil {
		return err
	}
	if newClaimed <= prevClaimed {
		return fmt.Errorf(
			"milestone counter cannot move from %d to %d",
			prevClaimed,
			newClaimed,
		)
	}
	result := db.Model(&models.Campaign{}).
		Where("id = ? AND milestones_claimed = ?", id, prevClaimed).
		Updates(map[string]any{
			"milestones_claimed": newClaimed,
			"amount_released":    amountReleased,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return types.ErrStaleRecord
	}
	return nil
}
