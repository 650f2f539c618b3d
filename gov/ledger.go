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
	"bytes"
	"fmt"
	"slices"

	"github.com/blinklabs-io/gouroboros/cbor"
	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/blinklabs-io/gouroboros/ledger/conway"
)

// ProtocolVersion is the protocol version recorded by an enacted hard-fork
// initiation
type ProtocolVersion struct {
	Major uint
	Minor uint
}

// DepositTarget says where a settled deposit went
type DepositTarget uint8

const (
	DepositToAccount DepositTarget = iota
	DepositToTreasury
)

func (t DepositTarget) String() string {
	if t == DepositToTreasury {
		return "treasury"
	}
	return "account"
}

// DepositReturn records the settlement of one proposal's deposit
type DepositReturn struct {
	Account []byte
	Amount  uint64
	Target  DepositTarget
}

// TickEvent is the aggregate record of one epoch tick. It is returned by
// value from Tick; the engine keeps no ambient event log.
type TickEvent struct {
	// DepositReturns maps settled proposal ids to where their deposit went
	DepositReturns map[ActionId]DepositReturn
	// Expired lists proposals removed this tick for passing their deadline
	Expired []ActionId
	// Ratified lists proposals that crossed all thresholds this tick; they
	// enact on the next tick
	Ratified []ActionId
	// Enacted lists proposals whose action was applied this tick
	Enacted []ActionId
	// Dropped lists proposals removed by lineage conflict or cascade
	Dropped []ActionId
	// Epoch is the epoch this tick advanced into
	Epoch uint64
	// DormantEpochs is the counter value after this tick
	DormantEpochs uint64
	// DormantEpochsApplied is the grace folded into displayed expiries in
	// this tick's accounting (including mid-epoch submission resets)
	DormantEpochsApplied uint64
	// TreasuryBalance is the balance after this tick
	TreasuryBalance uint64
}

// State is the explicit mutable ledger state for governance: proposals,
// DReps, reward accounts, treasury, committee, and the dormant-epoch
// counter. A single owner must serialize all calls; ticks are strictly
// sequential and each resolves fully before the next begins.
type State struct {
	proposals    *ProposalStore
	dreps        *DRepRegistry
	treasury     *Treasury
	accounts     *RewardAccounts
	committee    map[string]uint64
	poolStake    map[string]uint64
	stake        StakeDistribution
	constitution *Anchor

	pendingReturns map[ActionId]DepositReturn
	pendingDropped []ActionId
	enactQueue     []ActionId

	params           Params
	protoVersion     ProtocolVersion
	epoch            uint64
	dormantEpochs    uint64
	dormantApplied   uint64
	epochHadActivity bool
}

// NewState creates governance state at epoch zero with the given parameters
// and initial treasury balance
func NewState(params Params, treasury uint64) (*State, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid governance parameters: %w", err)
	}
	s := &State{
		params:         params,
		proposals:      NewProposalStore(),
		dreps:          NewDRepRegistry(),
		treasury:       NewTreasury(treasury),
		accounts:       NewRewardAccounts(),
		committee:      make(map[string]uint64),
		poolStake:      make(map[string]uint64),
		pendingReturns: make(map[ActionId]DepositReturn),
	}
	s.stake = &registryStake{state: s}
	return s, nil
}

// registryStake is the default stake distribution: DRep weights come from
// the registry's registered stake, pool weights from the stake snapshot
// installed via SetPoolStake.
type registryStake struct {
	state *State
}

func (r *registryStake) DRepStake(credential []byte) uint64 {
	rec, ok := r.state.dreps.Get(credential)
	if !ok {
		return 0
	}
	return rec.Stake
}

func (r *registryStake) PoolStake(credential []byte) uint64 {
	return r.state.poolStake[string(credential)]
}

func (r *registryStake) TotalPoolStake() uint64 {
	var total uint64
	for _, stake := range r.state.poolStake {
		total += stake
	}
	return total
}

// SetStakeDistribution overrides the default registry-backed stake source
func (s *State) SetStakeDistribution(stake StakeDistribution) {
	s.stake = stake
}

// SubmitProposal validates and stores a governance proposal. Submission is
// governance activity: any accumulated dormant-epoch grace is folded into
// every live proposal's and DRep's displayed expiry first, then the counter
// resets to zero. Returns the ids dropped by lineage conflict, if any.
func (s *State) SubmitProposal(
	id ActionId,
	action Action,
	deposit uint64,
	returnAccount []byte,
	anchor Anchor,
) ([]ActionId, error) {
	// Validate before mutating anything
	actionType, _, err := actionInfo(action)
	if err != nil {
		return nil, err
	}
	if deposit < s.params.GovActionDeposit {
		return nil, fmt.Errorf(
			"%w: %d < %d",
			ErrInsufficientDeposit,
			deposit,
			s.params.GovActionDeposit,
		)
	}
	if _, ok := s.proposals.Get(id); ok {
		return nil, fmt.Errorf(
			"%w: %x#%d",
			ErrProposalExists,
			id.TransactionId[:8],
			id.GovActionIdx,
		)
	}
	if actionType == ActionTypeParameterChange {
		// Malformed parameter updates are rejected here, not at enactment
		pc := action.(*lcommon.ParameterChangeGovAction)
		if _, err := decodeParamUpdate(pc); err != nil {
			return nil, err
		}
	}
	// Fold accumulated grace in before the new proposal enters the arena,
	// so the newcomer's expiry is not inflated
	s.applyDormantGrace()
	_, conflictDropped, err := s.proposals.Submit(
		id,
		action,
		deposit,
		returnAccount,
		anchor,
		s.epoch,
		&s.params,
	)
	if err != nil {
		return nil, err
	}
	s.epochHadActivity = true
	droppedIds := make([]ActionId, 0, len(conflictDropped))
	for _, p := range conflictDropped {
		ret, err := s.settleDeposit(p)
		if err != nil {
			return nil, err
		}
		s.pendingReturns[p.Id] = ret
		s.pendingDropped = append(s.pendingDropped, p.Id)
		droppedIds = append(droppedIds, p.Id)
	}
	return droppedIds, nil
}

// CastVote records a vote from any of the three voter roles. A DRep vote
// also counts as DRep activity and refreshes its displayed expiry with the
// current dormant bonus.
func (s *State) CastVote(
	voter Voter,
	id ActionId,
	vote uint8,
	anchor *Anchor,
) error {
	role, err := MapVoterRole(voter.Type)
	if err != nil {
		return err
	}
	credential := voter.Hash[:]
	if role == VoterRoleDRep {
		if _, ok := s.dreps.Get(credential); !ok {
			return fmt.Errorf("%w: %x", ErrDRepNotFound, credential)
		}
	}
	if err := s.proposals.CastVote(id, role, credential, vote, anchor); err != nil {
		return err
	}
	if role == VoterRoleDRep {
		if err := s.dreps.RecordActivity(
			credential,
			s.epoch,
			s.dormantEpochs,
			&s.params,
		); err != nil {
			return err
		}
	}
	s.epochHadActivity = true
	return nil
}

// RegisterDRep registers a delegated representative, holding its deposit
func (s *State) RegisterDRep(
	credential []byte,
	stake uint64,
	returnAccount []byte,
	anchor *Anchor,
) error {
	return s.dreps.Register(
		credential,
		stake,
		s.params.DRepDeposit,
		returnAccount,
		anchor,
		s.epoch,
		&s.params,
	)
}

// UpdateDRep records an update certificate: explicit activity that
// refreshes the DRep's displayed expiry and replaces its anchor
func (s *State) UpdateDRep(credential []byte, anchor *Anchor) error {
	rec, ok := s.dreps.Get(credential)
	if !ok {
		return fmt.Errorf("%w: %x", ErrDRepNotFound, credential)
	}
	rec.Anchor = anchor
	return s.dreps.RecordActivity(
		credential,
		s.epoch,
		s.dormantEpochs,
		&s.params,
	)
}

// UnregisterDRep deletes the DRep record and refunds its held deposit to
// its return account, or to the treasury if that account is unregistered
func (s *State) UnregisterDRep(credential []byte) error {
	rec, err := s.dreps.Unregister(credential)
	if err != nil {
		return err
	}
	return s.payOut(rec.ReturnAccount, rec.Deposit)
}

// RegisterRewardAccount marks a stake credential's reward account as
// registered
func (s *State) RegisterRewardAccount(account []byte) {
	s.accounts.Register(account)
}

// DeregisterRewardAccount removes a reward account. Later payouts destined
// for it divert to the treasury.
func (s *State) DeregisterRewardAccount(account []byte) {
	s.accounts.Deregister(account)
}

// Donate adds to the treasury balance
func (s *State) Donate(amount uint64) error {
	return s.treasury.Donate(amount)
}

// SetPoolStake installs a stake pool's voting power for the default stake
// distribution
func (s *State) SetPoolStake(poolCredential []byte, stake uint64) {
	if stake == 0 {
		delete(s.poolStake, string(poolCredential))
		return
	}
	s.poolStake[string(poolCredential)] = stake
}

// SetCommittee replaces the constitutional committee roster: hot credential
// to term expiry epoch
func (s *State) SetCommittee(members map[string]uint64) {
	s.committee = make(map[string]uint64, len(members))
	for cred, expiry := range members {
		s.committee[cred] = expiry
	}
}

// Queries

func (s *State) Epoch() uint64 {
	return s.epoch
}

func (s *State) DormantEpochCount() uint64 {
	return s.dormantEpochs
}

func (s *State) TreasuryBalance() uint64 {
	return s.treasury.Balance()
}

func (s *State) RewardBalance(account []byte) uint64 {
	return s.accounts.Balance(account)
}

func (s *State) Constitution() *Anchor {
	return s.constitution
}

func (s *State) ProtoVersion() ProtocolVersion {
	return s.protoVersion
}

func (s *State) Params() Params {
	return s.params
}

// GetProposal returns a proposal by id
func (s *State) GetProposal(id ActionId) (*Proposal, error) {
	p, ok := s.proposals.Get(id)
	if !ok {
		return nil, fmt.Errorf(
			"%w: %x#%d",
			ErrProposalNotFound,
			id.TransactionId[:8],
			id.GovActionIdx,
		)
	}
	return p, nil
}

// GetProposals returns every live proposal in submission order. Repeated
// calls without an intervening tick return identical results.
func (s *State) GetProposals() []*Proposal {
	return s.proposals.All()
}

// ProposalTree returns the lineage forest view
func (s *State) ProposalTree() map[ActionId][]ActionId {
	return s.proposals.Tree()
}

// GetDRepExpiry returns a DRep's displayed and effective expiry epochs. The
// effective expiry inflates the displayed one by the current dormant count;
// they are equal exactly when the dormant counter is zero.
func (s *State) GetDRepExpiry(
	credential []byte,
) (displayed, effective uint64, err error) {
	rec, ok := s.dreps.Get(credential)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %x", ErrDRepNotFound, credential)
	}
	return rec.ExpiryEpoch, rec.ExpiryEpoch + s.dormantEpochs, nil
}

// DReps returns the registered DRep records ordered by credential
func (s *State) DReps() []*DRepRecord {
	return s.dreps.All()
}

// Tick advances one epoch and resolves the boundary in fixed order: dormant
// accounting, expiry sweep, enactment of last epoch's ratified actions,
// then ratification tally. Later steps depend on earlier mutations, so the
// order is load-bearing. The returned event aggregates everything that
// happened, including conflict drops accumulated during the ended epoch.
func (s *State) Tick() (*TickEvent, error) {
	s.epoch++
	ev := &TickEvent{
		Epoch:          s.epoch,
		DepositReturns: make(map[ActionId]DepositReturn),
	}
	// Carry mid-epoch conflict drops into this tick's accounting
	ev.Dropped = append(ev.Dropped, s.pendingDropped...)
	for id, ret := range s.pendingReturns {
		ev.DepositReturns[id] = ret
	}
	s.pendingDropped = nil
	s.pendingReturns = make(map[ActionId]DepositReturn)

	// Step 1: if the ended epoch had activity, fold the accumulated grace
	// into displayed expiries before anything is judged against a deadline
	hadActivity := s.epochHadActivity
	s.epochHadActivity = false
	if hadActivity {
		s.applyDormantGrace()
	}
	ev.DormantEpochsApplied = s.dormantApplied
	s.dormantApplied = 0

	// Step 2: sweep proposals whose effective deadline passed unratified
	expired, cascadeDropped := s.proposals.sweepExpired(
		s.epoch,
		s.dormantEpochs,
	)
	for _, p := range expired {
		ret, err := s.settleDeposit(p)
		if err != nil {
			return nil, err
		}
		ev.Expired = append(ev.Expired, p.Id)
		ev.DepositReturns[p.Id] = ret
	}
	for _, p := range cascadeDropped {
		ret, err := s.settleDeposit(p)
		if err != nil {
			return nil, err
		}
		ev.Dropped = append(ev.Dropped, p.Id)
		ev.DepositReturns[p.Id] = ret
	}

	// A fully-inactive epoch joins the dormant count only after the sweep:
	// deadlines are judged with the grace that had accrued before the epoch
	// ended, so an unvoted proposal still expires on schedule
	if !hadActivity {
		s.dormantEpochs++
	}

	// Step 3: enact actions ratified on the previous tick
	for _, id := range s.enactQueue {
		p, ok := s.proposals.Get(id)
		if !ok {
			// Dropped since ratification (ancestor expired); skip
			continue
		}
		if err := s.enact(p, ev); err != nil {
			return nil, fmt.Errorf(
				"enacting %x#%d: %w",
				id.TransactionId[:8],
				id.GovActionIdx,
				err,
			)
		}
		p.Status = ProposalStatusEnacted
		s.proposals.remove(p.Id)
		ret, err := s.settleDeposit(p)
		if err != nil {
			return nil, err
		}
		ev.Enacted = append(ev.Enacted, p.Id)
		ev.DepositReturns[p.Id] = ret
	}
	s.enactQueue = nil

	// Step 4: tally remaining active proposals
	in := TallyInput{
		Params:        &s.params,
		Epoch:         s.epoch,
		DormantEpochs: s.dormantEpochs,
		DReps:         s.dreps,
		Stake:         s.stake,
		Committee:     s.committee,
	}
	for _, p := range s.proposals.Active() {
		if Tally(p, in) == TallyRatified {
			epoch := s.epoch
			p.Status = ProposalStatusRatified
			p.RatifiedEpoch = &epoch
			s.enactQueue = append(s.enactQueue, p.Id)
			ev.Ratified = append(ev.Ratified, p.Id)
		}
	}

	ev.DormantEpochs = s.dormantEpochs
	ev.TreasuryBalance = s.treasury.Balance()
	return ev, nil
}

// applyDormantGrace folds the accumulated dormant count into every live
// proposal's and DRep's displayed expiry, then resets the counter. The
// application and the reset are a single step so every entity observes them
// consistently.
func (s *State) applyDormantGrace() {
	if s.dormantEpochs == 0 {
		return
	}
	s.proposals.extendAll(s.dormantEpochs)
	s.dreps.extendAll(s.dormantEpochs)
	s.dormantApplied += s.dormantEpochs
	s.dormantEpochs = 0
}

// settleDeposit returns a removed proposal's deposit to its return account,
// or to the treasury when that account is unregistered at settlement time
func (s *State) settleDeposit(p *Proposal) (DepositReturn, error) {
	if s.accounts.IsRegistered(p.ReturnAccount) {
		if err := s.accounts.Credit(p.ReturnAccount, p.Deposit); err != nil {
			return DepositReturn{}, err
		}
		return DepositReturn{
			Amount:  p.Deposit,
			Target:  DepositToAccount,
			Account: bytes.Clone(p.ReturnAccount),
		}, nil
	}
	if err := s.treasury.ReclaimDeposit(p.Deposit); err != nil {
		return DepositReturn{}, err
	}
	return DepositReturn{
		Amount: p.Deposit,
		Target: DepositToTreasury,
	}, nil
}

// payOut credits an account if registered, else diverts to the treasury
func (s *State) payOut(account []byte, amount uint64) error {
	if s.accounts.IsRegistered(account) {
		return s.accounts.Credit(account, amount)
	}
	return s.treasury.ReclaimDeposit(amount)
}

// enact applies a ratified action's effect. Enacting a lineage action also
// drops its live competitors (same parent, same type) and their
// descendants, recording the drops in the tick event.
func (s *State) enact(p *Proposal, ev *TickEvent) error {
	switch a := p.Action.(type) {
	case *lcommon.TreasuryWithdrawalGovAction:
		if err := s.enactWithdrawals(a); err != nil {
			return err
		}
	case *lcommon.ParameterChangeGovAction:
		update, err := decodeParamUpdate(a)
		if err != nil {
			return err
		}
		if update != nil {
			s.params.applyParamUpdate(update)
		}
	case *lcommon.NewConstitutionGovAction:
		anchor := a.Constitution.Anchor
		s.constitution = &anchor
	case *lcommon.NoConfidenceGovAction:
		s.committee = make(map[string]uint64)
	case *lcommon.UpdateCommitteeGovAction:
		for _, cred := range a.Credentials {
			delete(s.committee, string(cred.Hash().Bytes()))
		}
		for cred, expiry := range a.CredEpochs {
			if cred == nil {
				continue
			}
			term := uint64(expiry)
			if limit := s.epoch + s.params.CommitteeTermLimit; term > limit {
				term = limit
			}
			s.committee[string(cred.Hash().Bytes())] = term
		}
		if a.Unknown.Rat != nil {
			s.params.CommitteeThreshold = a.Unknown
		}
	case *lcommon.HardForkInitiationGovAction:
		s.protoVersion = ProtocolVersion{
			Major: a.ProtocolVersion.Major,
			Minor: a.ProtocolVersion.Minor,
		}
	case *lcommon.InfoGovAction:
		// No ledger effect
	default:
		return fmt.Errorf("%w: %T", ErrUnknownAction, p.Action)
	}
	if hasLineage(p.ActionType) {
		for _, sib := range s.proposals.dropSiblings(p) {
			ret, err := s.settleDeposit(sib)
			if err != nil {
				return err
			}
			ev.Dropped = append(ev.Dropped, sib.Id)
			ev.DepositReturns[sib.Id] = ret
		}
	}
	return nil
}

// enactWithdrawals applies a treasury withdrawal action. Destinations that
// are unregistered at enactment time forfeit their share back to the
// treasury. Insufficient treasury funds at this point indicate an upstream
// invariant breach and abort the tick.
func (s *State) enactWithdrawals(
	a *lcommon.TreasuryWithdrawalGovAction,
) error {
	type withdrawal struct {
		account []byte
		amount  uint64
	}
	withdrawals := make([]withdrawal, 0, len(a.Withdrawals))
	for addr, amount := range a.Withdrawals {
		if addr == nil {
			continue
		}
		account, err := addr.Bytes()
		if err != nil {
			return fmt.Errorf("encode withdrawal address: %w", err)
		}
		withdrawals = append(withdrawals, withdrawal{
			account: account,
			amount:  amount,
		})
	}
	slices.SortFunc(withdrawals, func(x, y withdrawal) int {
		return bytes.Compare(x.account, y.account)
	})
	for _, w := range withdrawals {
		if err := s.treasury.Withdraw(w.amount); err != nil {
			return err
		}
		if err := s.payOut(w.account, w.amount); err != nil {
			return err
		}
	}
	return nil
}

// decodeParamUpdate decodes the deferred parameter-update payload carried
// by a parameter-change action. Returns nil for an empty payload.
func decodeParamUpdate(
	a *lcommon.ParameterChangeGovAction,
) (*conway.ConwayProtocolParameterUpdate, error) {
	if len(a.ParamUpdate) == 0 {
		return nil, nil
	}
	var update conway.ConwayProtocolParameterUpdate
	if _, err := cbor.Decode(a.ParamUpdate, &update); err != nil {
		return nil, fmt.Errorf("%w: invalid parameter update: %w",
			ErrUnknownAction, err)
	}
	return &update, nil
}
