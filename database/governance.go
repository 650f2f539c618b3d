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

// GetGovernanceProposal retrieves a governance proposal by transaction hash
// and action index. Returns nil when no such proposal is stored.
func (d *Database) GetGovernanceProposal(
	txHash []byte,
	actionIndex uint32,
	txn *gorm.DB,
) (*models.GovernanceProposal, error) {
	var proposal models.GovernanceProposal
	db := d.resolveDB(txn)
	if result := db.Where(
		"tx_hash = ? AND action_index = ?",
		txHash,
		actionIndex,
	).First(&proposal); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &proposal, nil
}

// GetGovernanceProposals retrieves all stored proposals in submission order
func (d *Database) GetGovernanceProposals(
	txn *gorm.DB,
) ([]*models.GovernanceProposal, error) {
	var proposals []*models.GovernanceProposal
	db := d.resolveDB(txn)
	if result := db.Order("id").
		Find(&proposals); result.Error != nil {
		return nil, result.Error
	}
	return proposals, nil
}

// SetGovernanceProposal creates or updates a governance proposal
func (d *Database) SetGovernanceProposal(
	proposal *models.GovernanceProposal,
	txn *gorm.DB,
) error {
	db := d.resolveDB(txn)
	onConflict := clause.OnConflict{
		Columns: []clause.Column{
			{Name: "tx_hash"},
			{Name: "action_index"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"action_type",
			"action_cbor",
			"status",
			"proposed_epoch",
			"expires_epoch",
			"parent_tx_hash",
			"parent_action_idx",
			"ratified_epoch",
			"anchor_url",
			"anchor_hash",
			"deposit",
			"return_account",
		}),
	}
	if result := db.Clauses(onConflict).Create(proposal); result.Error != nil {
		return result.Error
	}
	return nil
}

// DeleteGovernanceProposal removes a proposal and its votes
func (d *Database) DeleteGovernanceProposal(
	txHash []byte,
	actionIndex uint32,
	txn *gorm.DB,
) error {
	db := d.resolveDB(txn)
	proposal, err := d.GetGovernanceProposal(txHash, actionIndex, txn)
	if err != nil {
		return err
	}
	if proposal == nil {
		return nil
	}
	if result := db.Where(
		"proposal_id = ?",
		proposal.ID,
	).Delete(&models.GovernanceVote{}); result.Error != nil {
		return result.Error
	}
	if result := db.Delete(proposal); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetGovernanceVotes retrieves all votes for a proposal ordered by role then
// credential
func (d *Database) GetGovernanceVotes(
	proposalID uint,
	txn *gorm.DB,
) ([]*models.GovernanceVote, error) {
	var votes []*models.GovernanceVote
	db := d.resolveDB(txn)
	if result := db.Where(
		"proposal_id = ?",
		proposalID,
	).Order("voter_role").
		Order("voter_credential").
		Find(&votes); result.Error != nil {
		return nil, result.Error
	}
	return votes, nil
}

// SetGovernanceVote creates or updates a vote. A voter re-voting in the same
// role overwrites its previous vote row.
func (d *Database) SetGovernanceVote(
	vote *models.GovernanceVote,
	txn *gorm.DB,
) error {
	db := d.resolveDB(txn)
	onConflict := clause.OnConflict{
		Columns: []clause.Column{
			{Name: "proposal_id"},
			{Name: "voter_role"},
			{Name: "voter_credential"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"vote",
			"anchor_url",
			"anchor_hash",
		}),
	}
	if result := db.Clauses(onConflict).Create(vote); result.Error != nil {
		return result.Error
	}
	return nil
}
