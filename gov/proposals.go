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

// ProposalStatus tracks the lifecycle of a governance proposal
type ProposalStatus uint8

const (
	ProposalStatusActive ProposalStatus = iota
	ProposalStatusRatified
	ProposalStatusEnacted
	ProposalStatusExpired
	ProposalStatusDropped
)

func (s ProposalStatus) String() string {
	switch s {
	case ProposalStatusActive:
		return "active"
	case ProposalStatusRatified:
		return "ratified"
	case ProposalStatusEnacted:
		return "enacted"
	case ProposalStatusExpired:
		return "expired"
	case ProposalStatusDropped:
		return "dropped"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// voterKey identifies a voter within a proposal's vote set
type voterKey struct {
	cred string
	role uint8
}

// VoteRecord is a single recorded vote on a proposal
type VoteRecord struct {
	Anchor *Anchor
	Vote   uint8
}

// Proposal wraps a governance action with its submission bookkeeping and
// accumulated votes. The action itself is immutable once submitted.
type Proposal struct {
	votes         map[voterKey]VoteRecord
	Action        Action
	Parent        *ActionId
	RatifiedEpoch *uint64
	ReturnAccount []byte
	Id            ActionId
	Anchor        Anchor
	// SubmittedEpoch is the epoch the proposal entered the store
	SubmittedEpoch uint64
	// ExpiresEpoch is the displayed expiry. The effective expiry adds the
	// current dormant-epoch count on top; see ProposalStore.sweepExpired.
	ExpiresEpoch uint64
	Deposit      uint64
	seq          uint64
	ActionType   uint8
	Status       ProposalStatus
}

// Votes returns the recorded votes for a role as yes/no/abstain credential
// sets. Iteration-order independent.
func (p *Proposal) Votes(role uint8) (yes, no, abstain []string) {
	for k, v := range p.votes {
		if k.role != role {
			continue
		}
		switch v.Vote {
		case VoteYes:
			yes = append(yes, k.cred)
		case VoteNo:
			no = append(no, k.cred)
		case VoteAbstain:
			abstain = append(abstain, k.cred)
		}
	}
	slices.Sort(yes)
	slices.Sort(no)
	slices.Sort(abstain)
	return yes, no, abstain
}

// VoteCount returns the total number of recorded votes
func (p *Proposal) VoteCount() int {
	return len(p.votes)
}

// ProposalStore holds the live governance proposals as an arena indexed by
// action id. Parent/child structure is stored as non-owning parent
// back-references; the forest view is reconstructed on demand.
type ProposalStore struct {
	proposals map[ActionId]*Proposal
	nextSeq   uint64
}

func NewProposalStore() *ProposalStore {
	return &ProposalStore{
		proposals: make(map[ActionId]*Proposal),
	}
}

// Submit validates and inserts a proposal. A submission contesting a lineage
// node that already has a live sibling of the same action type drops the
// older sibling(s) and their descendants; the newest submission survives.
// Dropped proposals are returned so the caller can settle their deposits and
// record them in the tick event.
func (s *ProposalStore) Submit(
	id ActionId,
	action Action,
	deposit uint64,
	returnAccount []byte,
	anchor Anchor,
	currentEpoch uint64,
	params *Params,
) (*Proposal, []*Proposal, error) {
	actionType, parent, err := actionInfo(action)
	if err != nil {
		return nil, nil, err
	}
	if deposit < params.GovActionDeposit {
		return nil, nil, fmt.Errorf(
			"%w: %d < %d",
			ErrInsufficientDeposit,
			deposit,
			params.GovActionDeposit,
		)
	}
	if _, ok := s.proposals[id]; ok {
		return nil, nil, fmt.Errorf(
			"%w: %x#%d",
			ErrProposalExists,
			id.TransactionId[:8],
			id.GovActionIdx,
		)
	}
	// A non-nil parent must reference a proposal still in the store. Enacted
	// ancestors are removed from the arena and become implicit roots, so a
	// missing parent is only an error if no proposal ever carried that id.
	// We cannot distinguish the two without history, so lineage children of
	// enacted ancestors are submitted with the recorded ancestor id and
	// accepted here as roots of a new subtree.
	var dropped []*Proposal
	if hasLineage(actionType) {
		for _, sibling := range s.Active() {
			if sibling.ActionType != actionType {
				continue
			}
			if !actionIdPtrEqual(sibling.Parent, parent) {
				continue
			}
			dropped = append(dropped, s.dropSubtree(sibling)...)
		}
	}
	p := &Proposal{
		Id:             id,
		Action:         action,
		ActionType:     actionType,
		Parent:         parent,
		Deposit:        deposit,
		ReturnAccount:  returnAccount,
		Anchor:         anchor,
		SubmittedEpoch: currentEpoch,
		ExpiresEpoch:   currentEpoch + params.GovActionLifetime,
		Status:         ProposalStatusActive,
		votes:          make(map[voterKey]VoteRecord),
		seq:            s.nextSeq,
	}
	s.nextSeq++
	s.proposals[id] = p
	return p, dropped, nil
}

// CastVote records a vote on an active proposal. A second vote by the same
// credential in the same role is rejected; votes arrive pre-validated, so a
// re-vote indicates a caller bug rather than a change of mind.
func (s *ProposalStore) CastVote(
	id ActionId,
	role uint8,
	credential []byte,
	vote uint8,
	anchor *Anchor,
) error {
	p, ok := s.proposals[id]
	if !ok {
		return fmt.Errorf(
			"%w: %x#%d",
			ErrProposalNotFound,
			id.TransactionId[:8],
			id.GovActionIdx,
		)
	}
	if p.Status != ProposalStatusActive {
		return fmt.Errorf(
			"%w: %x#%d is %s",
			ErrProposalNotActive,
			id.TransactionId[:8],
			id.GovActionIdx,
			p.Status,
		)
	}
	key := voterKey{role: role, cred: string(credential)}
	if _, ok := p.votes[key]; ok {
		return fmt.Errorf(
			"%w: %x#%d",
			ErrDuplicateVote,
			id.TransactionId[:8],
			id.GovActionIdx,
		)
	}
	p.votes[key] = VoteRecord{Vote: vote, Anchor: anchor}
	return nil
}

// Get returns a proposal by id
func (s *ProposalStore) Get(id ActionId) (*Proposal, bool) {
	p, ok := s.proposals[id]
	return p, ok
}

// All returns every proposal in submission order
func (s *ProposalStore) All() []*Proposal {
	ret := make([]*Proposal, 0, len(s.proposals))
	for _, p := range s.proposals {
		ret = append(ret, p)
	}
	slices.SortFunc(ret, func(a, b *Proposal) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		default:
			return 0
		}
	})
	return ret
}

// Active returns proposals still eligible for voting, in submission order
func (s *ProposalStore) Active() []*Proposal {
	var ret []*Proposal
	for _, p := range s.All() {
		if p.Status == ProposalStatusActive {
			ret = append(ret, p)
		}
	}
	return ret
}

// Tree reconstructs the lineage forest: children indexed by parent id, with
// parentless lineage proposals under the zero ActionId root
func (s *ProposalStore) Tree() map[ActionId][]ActionId {
	ret := make(map[ActionId][]ActionId)
	for _, p := range s.All() {
		if !hasLineage(p.ActionType) {
			continue
		}
		var parent ActionId
		if p.Parent != nil {
			parent = *p.Parent
		}
		ret[parent] = append(ret[parent], p.Id)
	}
	return ret
}

// children returns the live children of a proposal
func (s *ProposalStore) children(id ActionId) []*Proposal {
	var ret []*Proposal
	for _, p := range s.All() {
		if p.Parent != nil && *p.Parent == id {
			ret = append(ret, p)
		}
	}
	return ret
}

// dropSubtree marks a proposal and all of its descendants dropped and
// removes them from the arena, returning them in drop order
func (s *ProposalStore) dropSubtree(p *Proposal) []*Proposal {
	dropped := []*Proposal{p}
	p.Status = ProposalStatusDropped
	delete(s.proposals, p.Id)
	for _, child := range s.children(p.Id) {
		dropped = append(dropped, s.dropSubtree(child)...)
	}
	return dropped
}

// dropSiblings drops every live lineage competitor of an enacted proposal:
// same parent, same action type, different id. Descendants of the dropped
// siblings go with them; the enacted proposal's own children survive.
func (s *ProposalStore) dropSiblings(enacted *Proposal) []*Proposal {
	var dropped []*Proposal
	for _, p := range s.All() {
		if p.Id == enacted.Id || p.ActionType != enacted.ActionType {
			continue
		}
		if !actionIdPtrEqual(p.Parent, enacted.Parent) {
			continue
		}
		dropped = append(dropped, s.dropSubtree(p)...)
	}
	return dropped
}

// sweepExpired removes proposals whose effective deadline has passed without
// ratification. The effective deadline inflates the displayed expiry by the
// current dormant-epoch count. Lineage descendants of an expired proposal
// are dropped along with it; the second return value carries those drops.
func (s *ProposalStore) sweepExpired(
	currentEpoch uint64,
	dormantEpochs uint64,
) (expired []*Proposal, dropped []*Proposal) {
	for _, p := range s.All() {
		if p.Status != ProposalStatusActive {
			continue
		}
		if _, stillThere := s.proposals[p.Id]; !stillThere {
			// Already dropped as a descendant of an earlier expiry
			continue
		}
		if currentEpoch <= p.ExpiresEpoch+dormantEpochs {
			continue
		}
		p.Status = ProposalStatusExpired
		delete(s.proposals, p.Id)
		expired = append(expired, p)
		for _, child := range s.children(p.Id) {
			dropped = append(dropped, s.dropSubtree(child)...)
		}
	}
	return expired, dropped
}

// remove deletes a proposal from the arena without changing its status
func (s *ProposalStore) remove(id ActionId) {
	delete(s.proposals, id)
}

// extendAll adds a dormant-epoch grace extension to every live proposal's
// displayed expiry. Called once per accumulated dormant stretch, right
// before the dormant counter resets.
func (s *ProposalStore) extendAll(epochs uint64) {
	for _, p := range s.proposals {
		p.ExpiresEpoch += epochs
	}
}

// Len returns the number of proposals in the arena
func (s *ProposalStore) Len() int {
	return len(s.proposals)
}

func actionIdPtrEqual(a, b *ActionId) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
