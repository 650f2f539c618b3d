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

// epochStateRowID pins the singleton engine-state row
const epochStateRowID = 1

// GetEpochState retrieves the singleton engine-state row. Returns nil when
// no state has been stored yet.
func (d *Database) GetEpochState(txn *gorm.DB) (*models.EpochState, error) {
	var state models.EpochState
	db := d.resolveDB(txn)
	if result := db.Where(
		"id = ?",
		epochStateRowID,
	).First(&state); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &state, nil
}

// SetEpochState creates or updates the singleton engine-state row
func (d *Database) SetEpochState(
	state *models.EpochState,
	txn *gorm.DB,
) error {
	db := d.resolveDB(txn)
	state.ID = epochStateRowID
	onConflict := clause.OnConflict{
		Columns: []clause.Column{
			{Name: "id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"epoch",
			"dormant_epochs",
			"had_activity",
			"treasury_balance",
			"protocol_major",
			"protocol_minor",
			"constitution_url",
			"constitution_hash",
			"has_constitution",
			"params_cbor",
		}),
	}
	if result := db.Clauses(onConflict).Create(state); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetCommitteeMembers retrieves the committee roster ordered by credential
func (d *Database) GetCommitteeMembers(
	txn *gorm.DB,
) ([]*models.CommitteeMember, error) {
	var members []*models.CommitteeMember
	db := d.resolveDB(txn)
	if result := db.Order("credential").
		Find(&members); result.Error != nil {
		return nil, result.Error
	}
	return members, nil
}

// ReplaceCommittee swaps the stored committee roster for the given one
func (d *Database) ReplaceCommittee(
	members map[string]uint64,
	txn *gorm.DB,
) error {
	db := d.resolveDB(txn)
	if result := db.Where("1 = 1").
		Delete(&models.CommitteeMember{}); result.Error != nil {
		return result.Error
	}
	for cred, expiry := range members {
		member := models.CommitteeMember{
			Credential:  []byte(cred),
			ExpiryEpoch: expiry,
		}
		if result := db.Create(&member); result.Error != nil {
			return result.Error
		}
	}
	return nil
}

// GetPoolStakes retrieves the stake pool voting-power snapshot ordered by
// credential
func (d *Database) GetPoolStakes(
	txn *gorm.DB,
) ([]*models.PoolStake, error) {
	var pools []*models.PoolStake
	db := d.resolveDB(txn)
	if result := db.Order("credential").
		Find(&pools); result.Error != nil {
		return nil, result.Error
	}
	return pools, nil
}

// ReplacePoolStakes swaps the stored stake pool snapshot for the given one
func (d *Database) ReplacePoolStakes(
	pools map[string]uint64,
	txn *gorm.DB,
) error {
	db := d.resolveDB(txn)
	if result := db.Where("1 = 1").
		Delete(&models.PoolStake{}); result.Error != nil {
		return result.Error
	}
	for cred, stake := range pools {
		pool := models.PoolStake{
			Credential: []byte(cred),
			Stake:      stake,
		}
		if result := db.Create(&pool); result.Error != nil {
			return result.Error
		}
	}
	return nil
}
