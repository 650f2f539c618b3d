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
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"
	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"gorm.io/gorm"

	"github.com/quoll-ledger/quoll/database/models"
	"github.com/quoll-ledger/quoll/gov"
)

// SaveState persists a full governance state snapshot, replacing whatever
// was stored before. The whole snapshot is written in one transaction so a
// crash mid-save never leaves a torn state on disk.
func (d *Database) SaveState(s *gov.State) error {
	paramsCbor, err := cbor.Encode(s.Params())
	if err != nil {
		return fmt.Errorf("encoding params: %w", err)
	}
	return d.Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{
			&models.GovernanceVote{},
			&models.GovernanceProposal{},
			&models.Drep{},
			&models.RewardAccount{},
		} {
			if result := tx.Where("1 = 1").Delete(model); result.Error != nil {
				return result.Error
			}
		}
		for _, p := range s.GetProposals() {
			row, votes, err := proposalToModel(p)
			if err != nil {
				return err
			}
			if err := d.SetGovernanceProposal(row, tx); err != nil {
				return err
			}
			for _, vote := range votes {
				vote.ProposalID = row.ID
				if err := d.SetGovernanceVote(vote, tx); err != nil {
					return err
				}
			}
		}
		for _, rec := range s.DReps() {
			if err := d.SetDrep(drepToModel(rec), tx); err != nil {
				return err
			}
		}
		accountCreds, accountBalances := s.RewardAccounts()
		for i, cred := range accountCreds {
			account := &models.RewardAccount{
				Credential: cred,
				Balance:    accountBalances[i],
			}
			if err := d.SetRewardAccount(account, tx); err != nil {
				return err
			}
		}
		if err := d.ReplaceCommittee(s.Committee(), tx); err != nil {
			return err
		}
		if err := d.ReplacePoolStakes(s.PoolStakes(), tx); err != nil {
			return err
		}
		state := &models.EpochState{
			Epoch:           s.Epoch(),
			DormantEpochs:   s.DormantEpochCount(),
			HadActivity:     s.EpochHadActivity(),
			TreasuryBalance: s.TreasuryBalance(),
			ProtocolMajor:   s.ProtoVersion().Major,
			ProtocolMinor:   s.ProtoVersion().Minor,
			ParamsCbor:      paramsCbor,
		}
		if constitution := s.Constitution(); constitution != nil {
			state.HasConstitution = true
			state.ConstitutionURL = constitution.Url
			state.ConstitutionHash = constitution.DataHash[:]
		}
		return d.SetEpochState(state, tx)
	})
}

// LoadState rebuilds governance state from the stored snapshot. Returns nil
// without error when nothing has been stored yet.
func (d *Database) LoadState() (*gov.State, error) {
	stateRow, err := d.GetEpochState(nil)
	if err != nil {
		return nil, err
	}
	if stateRow == nil {
		return nil, nil
	}
	var params gov.Params
	if _, err := cbor.Decode(stateRow.ParamsCbor, &params); err != nil {
		return nil, fmt.Errorf("decoding params: %w", err)
	}
	data := gov.RestoreData{
		Treasury:         stateRow.TreasuryBalance,
		Epoch:            stateRow.Epoch,
		DormantEpochs:    stateRow.DormantEpochs,
		EpochHadActivity: stateRow.HadActivity,
		ProtoVersion: gov.ProtocolVersion{
			Major: stateRow.ProtocolMajor,
			Minor: stateRow.ProtocolMinor,
		},
		Committee: make(map[string]uint64),
		PoolStake: make(map[string]uint64),
		Accounts:  make(map[string]uint64),
	}
	if stateRow.HasConstitution {
		data.Constitution = &gov.Anchor{
			Url:      stateRow.ConstitutionURL,
			DataHash: anchorHash32(stateRow.ConstitutionHash),
		}
	}
	members, err := d.GetCommitteeMembers(nil)
	if err != nil {
		return nil, err
	}
	for _, member := range members {
		data.Committee[string(member.Credential)] = member.ExpiryEpoch
	}
	pools, err := d.GetPoolStakes(nil)
	if err != nil {
		return nil, err
	}
	for _, pool := range pools {
		data.PoolStake[string(pool.Credential)] = pool.Stake
	}
	accounts, err := d.GetRewardAccounts(nil)
	if err != nil {
		return nil, err
	}
	for _, account := range accounts {
		data.Accounts[string(account.Credential)] = account.Balance
	}
	drepRows, err := d.GetDreps(nil)
	if err != nil {
		return nil, err
	}
	for _, row := range drepRows {
		data.DReps = append(data.DReps, drepFromModel(row))
	}
	proposalRows, err := d.GetGovernanceProposals(nil)
	if err != nil {
		return nil, err
	}
	for _, row := range proposalRows {
		voteRows, err := d.GetGovernanceVotes(row.ID, nil)
		if err != nil {
			return nil, err
		}
		restored, err := proposalFromModel(row, voteRows)
		if err != nil {
			return nil, err
		}
		data.Proposals = append(data.Proposals, restored)
	}
	return gov.RestoreState(params, data)
}

// anchorHash32 widens a stored hash back to its fixed-size form, tolerating
// short values from hand-edited rows
func anchorHash32(hash []byte) [32]byte {
	var ret [32]byte
	copy(ret[:], hash)
	return ret
}

func proposalToModel(
	p *gov.Proposal,
) (*models.GovernanceProposal, []*models.GovernanceVote, error) {
	actionCbor, err := cbor.Encode(p.Action)
	if err != nil {
		return nil, nil, fmt.Errorf(
			"encoding action %x#%d: %w",
			p.Id.TransactionId[:8],
			p.Id.GovActionIdx,
			err,
		)
	}
	row := &models.GovernanceProposal{
		TxHash:        p.Id.TransactionId[:],
		ActionIndex:   p.Id.GovActionIdx,
		ActionType:    p.ActionType,
		ActionCbor:    actionCbor,
		Status:        uint8(p.Status),
		ProposedEpoch: p.SubmittedEpoch,
		ExpiresEpoch:  p.ExpiresEpoch,
		RatifiedEpoch: p.RatifiedEpoch,
		AnchorURL:     p.Anchor.Url,
		AnchorHash:    p.Anchor.DataHash[:],
		Deposit:       p.Deposit,
		ReturnAccount: p.ReturnAccount,
	}
	if p.Parent != nil {
		row.ParentTxHash = p.Parent.TransactionId[:]
		idx := p.Parent.GovActionIdx
		row.ParentActionIdx = &idx
	}
	votes := make([]*models.GovernanceVote, 0)
	for _, v := range p.AllVotes() {
		vote := &models.GovernanceVote{
			VoterRole:       v.Role,
			VoterCredential: v.Credential,
			Vote:            v.Vote,
		}
		if v.Anchor != nil {
			vote.AnchorURL = v.Anchor.Url
			vote.AnchorHash = v.Anchor.DataHash[:]
		}
		votes = append(votes, vote)
	}
	return row, votes, nil
}

func proposalFromModel(
	row *models.GovernanceProposal,
	voteRows []*models.GovernanceVote,
) (*gov.RestoredProposal, error) {
	var wrapper lcommon.GovActionWrapper
	if _, err := cbor.Decode(row.ActionCbor, &wrapper); err != nil {
		return nil, fmt.Errorf(
			"decoding action %x#%d: %w",
			row.TxHash[:8],
			row.ActionIndex,
			err,
		)
	}
	restored := &gov.RestoredProposal{
		Id: gov.ActionId{
			TransactionId: anchorHash32(row.TxHash),
			GovActionIdx:  row.ActionIndex,
		},
		Action: wrapper.Action,
		Anchor: gov.Anchor{
			Url:      row.AnchorURL,
			DataHash: anchorHash32(row.AnchorHash),
		},
		SubmittedEpoch: row.ProposedEpoch,
		ExpiresEpoch:   row.ExpiresEpoch,
		Status:         gov.ProposalStatus(row.Status),
		RatifiedEpoch:  row.RatifiedEpoch,
		Deposit:        row.Deposit,
		ReturnAccount:  row.ReturnAccount,
	}
	for _, v := range voteRows {
		entry := gov.VoteEntry{
			Credential: v.VoterCredential,
			Role:       v.VoterRole,
			Vote:       v.Vote,
		}
		if v.AnchorURL != "" || len(v.AnchorHash) > 0 {
			entry.Anchor = &gov.Anchor{
				Url:      v.AnchorURL,
				DataHash: anchorHash32(v.AnchorHash),
			}
		}
		restored.Votes = append(restored.Votes, entry)
	}
	return restored, nil
}

func drepToModel(rec *gov.DRepRecord) *models.Drep {
	row := &models.Drep{
		Credential:    rec.Credential,
		Stake:         rec.Stake,
		Deposit:       rec.Deposit,
		ExpiryEpoch:   rec.ExpiryEpoch,
		ReturnAccount: rec.ReturnAccount,
	}
	if rec.Anchor != nil {
		row.HasAnchor = true
		row.AnchorURL = rec.Anchor.Url
		row.AnchorHash = rec.Anchor.DataHash[:]
	}
	return row
}

func drepFromModel(row *models.Drep) *gov.DRepRecord {
	rec := &gov.DRepRecord{
		Credential:    row.Credential,
		Stake:         row.Stake,
		Deposit:       row.Deposit,
		ExpiryEpoch:   row.ExpiryEpoch,
		ReturnAccount: row.ReturnAccount,
	}
	if row.HasAnchor {
		rec.Anchor = &gov.Anchor{
			Url:      row.AnchorURL,
			DataHash: anchorHash32(row.AnchorHash),
		}
	}
	return rec
}
