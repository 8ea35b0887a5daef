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
	"time"

	"github.com/blinklabs-io/crowdfund/database/models"
)

// AddNotification writes an outbox entry
func (d *Database) AddNotification(
	notification *models.Notification,
	txn *Txn,
) error {
	db, err := txn.checkWritable()
	if err != nil {
		return err
	}
	if result := db.Create(notification); result.Error != nil {
		return fmt.Errorf("add notification: %w", result.Error)
	}
	return nil
}

// GetPendingNotifications returns up to limit undelivered notifications in
// sequence order
func (d *Database) GetPendingNotifications(
	limit int,
	txn *Txn,
) ([]models.Notification, error) {
	var ret []models.Notification
	db, err := d.reader(txn)
	if err != nil {
		return nil, err
	}
	result := db.Where("delivered = ?", false).
		Order("id ASC").
		Limit(limit).
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// CountPendingNotifications returns the number of undelivered notifications
func (d *Database) CountPendingNotifications(txn *Txn) (int64, error) {
	var ret int64
	db, err := d.reader(txn)
	if err != nil {
		return 0, err
	}
	result := db.Model(&models.Notification{}).
		Where("delivered = ?", false).
		Count(&ret)
	if result.Error != nil {
		return 0, result.Error
	}
	return ret, nil
}

// MarkNotificationsDelivered flags the given notifications as delivered
func (d *Database) MarkNotificationsDelivered(
	ids []uint64,
	deliveredAt time.Time,
	txn *Txn,
) error {
	if len(ids) == 0 {
		return nil
	}
	db, err := txn.checkWritable()
	if err != nil {
		return err
	}
	result := db.Model(&models.Notification{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"delivered":    true,
			"delivered_at": deliveredAt,
		})
	if result.Error != nil {
		return result.Error
	}
	return nil
}
