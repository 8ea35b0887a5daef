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
)

// AddContribution appends a contribution record
func (d *Database) AddContribution(
	contribution *models.Contribution,
	txn *Txn,
) error {
	db, err := txn.checkWritable()
	if err != nil {
		return err
	}
	if result := db.Create(contribution); result.Error != nil {
		return fmt.Errorf("add contribution: %w", result.Error)
	}
	return nil
}

// GetContributions returns every contribution for a campaign in insertion order
func (d *Database) GetContributions(
	campaignId uint64,
	txn *Txn,
) ([]models.Contribution, error) {
	var ret []models.Contribution
	db, err := d.reader(txn)
	if err != nil {
		return nil, err
	}
	result := db.Where("campaign_id = ?", campaignId).
		Order("id ASC").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetContributionsPage returns a page of contributions for a campaign along
// with the total number of contributions
func (d *Database) GetContributionsPage(
	campaignId uint64,
	limit int,
	offset int,
	descending bool,
	txn *Txn,
) ([]models.Contribution, int64, error) {
	var ret []models.Contribution
	var total int64
	db, err := d.reader(txn)
	if err != nil {
		return nil, 0, err
	}
	result := db.Model(&models.Contribution{}).
		Where("campaign_id = ?", campaignId).
		Count(&total)
	if result.Error != nil {
		return nil, 0, result.Error
	}
	order := "id ASC"
	if descending {
		order = "id DESC"
	}
	result = db.Where("campaign_id = ?", campaignId).
		Order(order).
		Limit(limit).
		Offset(offset).
		Find(&ret)
	if result.Error != nil {
		return nil, 0, result.Error
	}
	return ret, total, nil
}

// AddWithdrawal appends a withdrawal record
func (d *Database) AddWithdrawal(
	withdrawal *models.Withdrawal,
	txn *Txn,
) error {
	db, err := txn.checkWritable()
	if err != nil {
		return err
	}
	if result := db.Create(withdrawal); result.Error != nil {
		return fmt.Errorf("add withdrawal: %w", result.Error)
	}
	return nil
}

// GetWithdrawals returns the withdrawals for a campaign in insertion order
func (d *Database) GetWithdrawals(
	campaignId uint64,
	txn *Txn,
) ([]models.Withdrawal, error) {
	var ret []models.Withdrawal
	db, err := d.reader(txn)
	if err != nil {
		return nil, err
	}
	result := db.Where("campaign_id = ?", campaignId).
		Order("id ASC").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
