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

package models

// GovernanceProposal is a stored governance action with its lifecycle
// bookkeeping. The action itself is stored as its CBOR encoding and decoded
// back into the concrete action type on load.
type GovernanceProposal struct {
	ID              uint   `gorm:"primarykey"`
	TxHash          []byte `gorm:"uniqueIndex:idx_proposal_tx_action,priority:1;size:32;not null"`
	ActionIndex     uint32 `gorm:"uniqueIndex:idx_proposal_tx_action,priority:2;not null"`
	ActionType      uint8  `gorm:"index;not null"`
	ActionCbor      []byte `gorm:"not null"`
	Status          uint8  `gorm:"index;not null"`
	ProposedEpoch   uint64 `gorm:"index;not null"`
	ExpiresEpoch    uint64 `gorm:"index;not null"`
	ParentTxHash    []byte `gorm:"size:32"`
	ParentActionIdx *uint32
	RatifiedEpoch   *uint64
	AnchorURL       string `gorm:"column:anchor_url;size:128"`
	AnchorHash      []byte `gorm:"size:32"`
	Deposit         uint64 `gorm:"not null"`
	ReturnAccount   []byte `gorm:"size:29;not null"`
}

// TableName returns the table name
func (GovernanceProposal) TableName() string {
	return "governance_proposal"
}

// GovernanceVote is a vote cast by a committee member, DRep, or stake pool
// operator on a stored proposal. One row per voter credential and role per
// proposal; re-votes overwrite in place.
type GovernanceVote struct {
	ID              uint   `gorm:"primarykey"`
	ProposalID      uint   `gorm:"index:idx_vote_proposal;uniqueIndex:idx_vote_unique,priority:1;not null"`
	VoterRole       uint8  `gorm:"uniqueIndex:idx_vote_unique,priority:2;not null"`
	VoterCredential []byte `gorm:"uniqueIndex:idx_vote_unique,priority:3;size:28;not null"`
	Vote            uint8  `gorm:"not null"`
	AnchorURL       string `gorm:"column:anchor_url;size:128"`
	AnchorHash      []byte `gorm:"size:32"`
}

// TableName returns the table name
func (GovernanceVote) TableName() string {
	return "governance_vote"
}
