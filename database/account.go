// Copyright 2026 Quoll Ledger Contributors
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

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quoll-ledger/quoll/database/models"
)

// GetRewardAccount retrieves a reward account by credential. Returns nil
// when the account is not registered.
func (d *Database) GetRewardAccount(
	credential []byte,
	txn *gorm.DB,
) (*models.RewardAccount, error) {
	var account models.RewardAccount
	db := d.resolveDB(txn)
	if result := db.Where(
		"credential = ?",
		credential,
	).First(&account); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &account, nil
}

// GetRewardAccounts retrieves all registered reward accounts ordered by
// credential
func (d *Database) GetRewardAccounts(
	txn *gorm.DB,
) ([]*models.RewardAccount, error) {
	var accounts []*models.RewardAccount
	db := d.resolveDB(txn)
	if result := db.Order("credential").
		Find(&accounts); result.Error != nil {
		return nil, result.Error
	}
	return accounts, nil
}

// SetRewardAccount creates or updates a reward account
func (d *Database) SetRewardAccount(
	account *models.RewardAccount,
	txn *gorm.DB,
) error {
	db := d.resolveDB(txn)
	onConflict := clause.OnConflict{
		Columns: []clause.Column{
			{Name: "credential"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"balance",
		}),
	}
	if result := db.Clauses(onConflict).Create(account); result.Error != nil {
		return result.Error
	}
	return nil
}

// DeleteRewardAccount removes a reward account registration
func (d *Database) DeleteRewardAccount(
	credential []byte,
	txn *gorm.DB,
) error {
	db := d.resolveDB(txn)
	if result := db.Where(
		"credential = ?",
		credential,
	).Delete(&models.RewardAccount{}); result.Error != nil {
		return result.Error
	}
	return nil
}
