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

package gov

import (
	"fmt"
	"slices"
)

// VoteEntry is one recorded vote in exportable form, used by the
// persistence layer
type VoteEntry struct {
	Anchor     *Anchor
	Credential []byte
	Role       uint8
	Vote       uint8
}

// AllVotes exports every recorded vote ordered by role then credential
func (p *Proposal) AllVotes() []VoteEntry {
	ret := make([]VoteEntry, 0, len(p.votes))
	for k, v := range p.votes {
		ret = append(ret, VoteEntry{
			Credential: []byte(k.cred),
			Role:       k.role,
			Vote:       v.Vote,
			Anchor:     v.Anchor,
		})
	}
	slices.SortFunc(ret, func(a, b VoteEntry) int {
		if a.Role != b.Role {
			return int(a.Role) - int(b.Role)
		}
		return slices.Compare(a.Credential, b.Credential)
	})
	return ret
}

// RewardAccounts exports the registered reward accounts and balances in
// key order
func (s *State) RewardAccounts() ([][]byte, []uint64) {
	return s.accounts.All()
}

// Committee returns a copy of the committee roster: hot credential to term
// expiry epoch
func (s *State) Committee() map[string]uint64 {
	ret := make(map[string]uint64, len(s.committee))
	for cred, expiry := range s.committee {
		ret[cred] = expiry
	}
	return ret
}

// PoolStakes returns a copy of the stake pool voting-power snapshot
func (s *State) PoolStakes() map[string]uint64 {
	ret := make(map[string]uint64, len(s.poolStake))
	for cred, stake := range s.poolStake {
		ret[cred] = stake
	}
	return ret
}

// EpochHadActivity reports whether governance activity was seen since the
// last tick
func (s *State) EpochHadActivity() bool {
	return s.epochHadActivity
}

// RestoredProposal is a proposal in exportable form for state restoration
type RestoredProposal struct {
	Action         Action
	RatifiedEpoch  *uint64
	ReturnAccount  []byte
	Votes          []VoteEntry
	Id             ActionId
	Anchor         Anchor
	SubmittedEpoch uint64
	ExpiresEpoch   uint64
	Deposit        uint64
	Status         ProposalStatus
}

// RestoreData carries a full governance state snapshot for restoration
// after a restart. Proposals must be listed in original submission order.
type RestoreData struct {
	Constitution     *Anchor
	Committee        map[string]uint64
	PoolStake        map[string]uint64
	Accounts         map[string]uint64
	DReps            []*DRepRecord
	Proposals        []*RestoredProposal
	Treasury         uint64
	Epoch            uint64
	DormantEpochs    uint64
	ProtoVersion     ProtocolVersion
	EpochHadActivity bool
}

// RestoreState rebuilds governance state from persisted data. Ratified
// proposals re-enter the enactment queue in submission order.
func RestoreState(params Params, data RestoreData) (*State, error) {
	s, err := NewState(params, data.Treasury)
	if err != nil {
		return nil, err
	}
	s.epoch = data.Epoch
	s.dormantEpochs = data.DormantEpochs
	s.epochHadActivity = data.EpochHadActivity
	s.constitution = data.Constitution
	s.protoVersion = data.ProtoVersion
	for cred, expiry := range data.Committee {
		s.committee[cred] = expiry
	}
	for cred, stake := range data.PoolStake {
		s.poolStake[cred] = stake
	}
	for account, balance := range data.Accounts {
		s.accounts.accounts[account] = balance
	}
	for _, rec := range data.DReps {
		s.dreps.recs[string(rec.Credential)] = rec
	}
	for _, rp := range data.Proposals {
		actionType, parent, err := actionInfo(rp.Action)
		if err != nil {
			return nil, fmt.Errorf("restoring proposal: %w", err)
		}
		p := &Proposal{
			Id:             rp.Id,
			Action:         rp.Action,
			ActionType:     actionType,
			Parent:         parent,
			Deposit:        rp.Deposit,
			ReturnAccount:  rp.ReturnAccount,
			Anchor:         rp.Anchor,
			SubmittedEpoch: rp.SubmittedEpoch,
			ExpiresEpoch:   rp.ExpiresEpoch,
			Status:         rp.Status,
			RatifiedEpoch:  rp.RatifiedEpoch,
			votes:          make(map[voterKey]VoteRecord),
			seq:            s.proposals.nextSeq,
		}
		s.proposals.nextSeq++
		for _, v := range rp.Votes {
			key := voterKey{role: v.Role, cred: string(v.Credential)}
			p.votes[key] = VoteRecord{Vote: v.Vote, Anchor: v.Anchor}
		}
		s.proposals.proposals[rp.Id] = p
		if p.Status == ProposalStatusRatified {
			s.enactQueue = append(s.enactQueue, p.Id)
		}
	}
	return s, nil
}
