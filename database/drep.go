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

// GetDrep retrieves a DRep registration by credential. Returns nil when no
// such DRep is stored.
func (d *Database) GetDrep(
	credential []byte,
	txn *gorm.DB,
) (*models.Drep, error) {
	var drep models.Drep
	db := d.resolveDB(txn)
	if result := db.Where(
		"credential = ?",
		credential,
	).First(&drep); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &drep, nil
}

// GetDreps retrieves all DRep registrations ordered by credential
func (d *Database) GetDreps(txn *gorm.DB) ([]*models.Drep, error) {
	var dreps []*models.Drep
	db := d.resolveDB(txn)
	if result := db.Order("credential").
		Find(&dreps); result.Error != nil {
		return nil, result.Error
	}
	return dreps, nil
}

// SetDrep creates or updates a DRep registration
func (d *Database) SetDrep(drep *models.Drep, txn *gorm.DB) error {
	db := d.resolveDB(txn)
	onConflict := clause.OnConflict{
		Columns: []clause.Column{
			{Name: "credential"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"stake",
			"deposit",
			"expiry_epoch",
			"return_account",
			"anchor_url",
			"anchor_hash",
			"has_anchor",
		}),
	}
	if result := db.Clauses(onConflict).Create(drep); result.Error != nil {
		return result.Error
	}
	return nil
}

// DeleteDrep removes a DRep registration
func (d *Database) DeleteDrep(credential []byte, txn *gorm.DB) error {
	db := d.resolveDB(txn)
	if result := db.Where(
		"credential = ?",
		credential,
	).Delete(&models.Drep{}); result.Error != nil {
		return result.Error
	}
	return nil
}
