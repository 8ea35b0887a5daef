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

var ErrReferralNotFound = errors.New("referral not found")

// AddReferral binds a referred principal to a referrer. It returns false
// without error when the referred principal is already bound
func (d *Database) AddReferral(referral *models.Referral, txn *Txn) (bool, error) {
	db, err := txn.checkWritable()
	if err != nil {
		return false, err
	}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(referral)
	if result.Error != nil {
		return false, fmt.Errorf("add referral: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// GetReferral returns the binding for a referred principal
func (d *Database) GetReferral(
	referred string,
	txn *Txn,
) (models.Referral, error) {
	ret := models.Referral{}
	db, err := d.reader(txn)
	if err != nil {
		return ret, err
	}
	result := db.Where("referred = ?", referred).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return ret, ErrReferralNotFound
		}
		return ret, result.Error
	}
	return ret, nil
}

// GetReferralBalance returns the balance for a referrer. A referrer with no
// record has a zero balance
func (d *Database) GetReferralBalance(
	referrer string,
	txn *Txn,
) (models.ReferralBalance, error) {
	ret := models.ReferralBalance{}
	db, err := d.reader(txn)
	if err != nil {
		return ret, err
	}
	result := db.Where("referrer = ?", referrer).Limit(1).Find(&ret)
	if result.Error != nil {
		return ret, result.Error
	}
	if result.RowsAffected == 0 {
		return models.ReferralBalance{Referrer: referrer}, nil
	}
	return ret, nil
}

// SetReferralBalance stores a new balance if the stored points still match
// prevPoints. A missing row is created
func (d *Database) SetReferralBalance(
	balance models.ReferralBalance,
	prevPoints types.Uint64,
	txn *Txn,
) error {
	db, err := txn.checkWritable()
	if err != nil {
		return err
	}
	result := db.Model(&models.ReferralBalance{}).
		Where("referrer = ? AND points = ?", balance.Referrer, prevPoints).
		Updates(map[string]any{
			"count":  balance.Count,
			"points": balance.Points,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	// Either the row doesn't exist yet or it changed underneath us
	var existing int64
	result = db.Model(&models.ReferralBalance{}).
		Where("referrer = ?", balance.Referrer).
		Count(&existing)
	if result.Error != nil {
		return result.Error
	}
	if existing > 0 {
		return types.ErrStaleRecord
	}
	if result := db.Create(&balance); result.Error != nil {
		return fmt.Errorf("create referral balance: %w", result.Error)
	}
	return nil
}
