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
	"testing"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/blinklabs-io/gouroboros/ledger/conway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTick(t *testing.T, state *State) *TickEvent {
	t.Helper()
	ev, err := state.Tick()
	require.NoError(t, err)
	return ev
}

func TestNewStateInvalidParams(t *testing.T) {
	params := testParams()
	params.GovActionLifetime = 0
	_, err := NewState(params, 0)
	assert.Error(t, err)
}

func TestSubmitValidation(t *testing.T) {
	state := newTestState(t, 0)

	_, err := state.SubmitProposal(
		testId(1, 0),
		infoAction(),
		99,
		testCred(0xee),
		testAnchor("https://example.com/a"),
	)
	assert.ErrorIs(t, err, ErrInsufficientDeposit)

	// A malformed parameter update is rejected at submission, not at
	// enactment
	pc := &lcommon.ParameterChangeGovAction{
		Type:        uint(ActionTypeParameterChange),
		ParamUpdate: []byte{0xff, 0xff},
	}
	_, err = state.SubmitProposal(
		testId(2, 0),
		pc,
		100,
		testCred(0xee),
		testAnchor("https://example.com/a"),
	)
	assert.ErrorIs(t, err, ErrUnknownAction)
	assert.Empty(t, state.GetProposals())
}

func TestCastVoteValidation(t *testing.T) {
	state := newTestState(t, 0)
	_, err := state.SubmitProposal(
		testId(1, 0),
		infoAction(),
		100,
		testCred(0xee),
		testAnchor("https://example.com/a"),
	)
	require.NoError(t, err)

	// DRep votes require a registered DRep
	err = state.CastVote(drepVoter(1), testId(1, 0), VoteYes, nil)
	assert.ErrorIs(t, err, ErrDRepNotFound)

	require.NoError(t, state.RegisterDRep(testCred(1), 100, nil, nil))
	require.NoError(t, state.CastVote(drepVoter(1), testId(1, 0), VoteYes, nil))
	err = state.CastVote(drepVoter(1), testId(1, 0), VoteNo, nil)
	assert.ErrorIs(t, err, ErrDuplicateVote)

	// Committee and pool votes carry no registration requirement
	require.NoError(t, state.CastVote(ccVoter(2), testId(1, 0), VoteNo, nil))
	require.NoError(t, state.CastVote(spoVoter(3), testId(1, 0), VoteNo, nil))
}

// Lifetime 4, a proposal submitted in epoch 0 and voted on in epoch 1, then
// nothing: the dormant counter reads 1, 2, 3 after the ticks into epochs 3,
// 4, 5, with the two activity epochs covered.
func TestTickDormantCounter(t *testing.T) {
	params := testParams()
	params.GovActionLifetime = 4
	state, err := NewState(params, 0)
	require.NoError(t, err)

	_, err = state.SubmitProposal(
		testId(1, 0),
		infoAction(),
		100,
		testCred(0xee),
		testAnchor("https://example.com/a"),
	)
	require.NoError(t, err)
	require.NoError(t, state.RegisterDRep(testCred(1), 100, nil, nil))

	ev := mustTick(t, state)
	assert.Equal(t, uint64(1), ev.Epoch)
	assert.Equal(t, uint64(0), ev.DormantEpochs)

	// Voting during epoch 1 keeps it covered
	require.NoError(t, state.CastVote(drepVoter(1), testId(1, 0), VoteYes, nil))
	ev = mustTick(t, state)
	assert.Equal(t, uint64(0), ev.DormantEpochs)

	for _, want := range []uint64{1, 2, 3} {
		ev = mustTick(t, state)
		assert.Equal(t, want, ev.DormantEpochs)
		assert.Equal(t, want, state.DormantEpochCount())
	}
}

// Lifetime 1, deposit 999, no votes: after two ticks the proposal is gone
// and its deposit landed on the registered return account.
func TestTickExpiryRefundsDeposit(t *testing.T) {
	params := testParams()
	params.GovActionLifetime = 1
	params.GovActionDeposit = 999
	state, err := NewState(params, 0)
	require.NoError(t, err)

	account := testCred(0xaa)
	state.RegisterRewardAccount(account)
	_, err = state.SubmitProposal(
		testId(1, 0),
		infoAction(),
		999,
		account,
		testAnchor("https://example.com/a"),
	)
	require.NoError(t, err)

	ev := mustTick(t, state)
	assert.Empty(t, ev.Expired)

	ev = mustTick(t, state)
	require.Equal(t, []ActionId{testId(1, 0)}, ev.Expired)
	ret, ok := ev.DepositReturns[testId(1, 0)]
	require.True(t, ok)
	assert.Equal(t, uint64(999), ret.Amount)
	assert.Equal(t, DepositToAccount, ret.Target)
	assert.Equal(t, account, ret.Account)
	assert.Equal(t, uint64(999), state.RewardBalance(account))

	_, err = state.GetProposal(testId(1, 0))
	assert.ErrorIs(t, err, ErrProposalNotFound)
}

func TestTickExpiryUnregisteredAccountForfeitsToTreasury(t *testing.T) {
	params := testParams()
	params.GovActionLifetime = 1
	state, err := NewState(params, 500)
	require.NoError(t, err)

	_, err = state.SubmitProposal(
		testId(1, 0),
		infoAction(),
		100,
		testCred(0xaa),
		testAnchor("https://example.com/a"),
	)
	require.NoError(t, err)

	mustTick(t, state)
	ev := mustTick(t, state)
	ret := ev.DepositReturns[testId(1, 0)]
	assert.Equal(t, DepositToTreasury, ret.Target)
	assert.Equal(t, uint64(600), state.TreasuryBalance())
}

func TestTickRatifyThenEnactNextEpoch(t *testing.T) {
	state := newTestState(t, 0)

	ev := submitAndRatify(t, state, testId(1, 0), constitutionAction(nil))
	assert.Empty(t, ev.Enacted)
	// Ratified but not yet enacted: no constitution yet
	assert.Nil(t, state.Constitution())
	p, err := state.GetProposal(testId(1, 0))
	require.NoError(t, err)
	assert.Equal(t, ProposalStatusRatified, p.Status)
	require.NotNil(t, p.RatifiedEpoch)
	assert.Equal(t, uint64(1), *p.RatifiedEpoch)

	ev = mustTick(t, state)
	require.Equal(t, []ActionId{testId(1, 0)}, ev.Enacted)
	require.NotNil(t, state.Constitution())
	assert.Equal(
		t,
		"https://example.com/constitution",
		state.Constitution().Url,
	)
	_, err = state.GetProposal(testId(1, 0))
	assert.ErrorIs(t, err, ErrProposalNotFound)
}

// A withdrawal whose destination unregisters before enactment sends both
// the withdrawal and the deposit refund to the treasury, so the net
// treasury change is exactly the deposit.
func TestTickWithdrawalUnregisteredRedirect(t *testing.T) {
	state := newTestState(t, 1000)

	action, accounts := withdrawalAction(t, map[byte]uint64{0xaa: 300})
	var account []byte
	for k := range accounts {
		account = []byte(k)
	}
	state.RegisterRewardAccount(account)

	_, err := state.SubmitProposal(
		testId(1, 0),
		action,
		100,
		account,
		testAnchor("https://example.com/w"),
	)
	require.NoError(t, err)
	require.NoError(t, state.RegisterDRep(testCred(1), 100, nil, nil))
	require.NoError(t, state.CastVote(drepVoter(1), testId(1, 0), VoteYes, nil))

	ev := mustTick(t, state)
	require.Equal(t, []ActionId{testId(1, 0)}, ev.Ratified)

	// Unregister between ratification and enactment
	state.DeregisterRewardAccount(account)

	before := state.TreasuryBalance()
	ev = mustTick(t, state)
	require.Equal(t, []ActionId{testId(1, 0)}, ev.Enacted)
	assert.Equal(t, uint64(0), state.RewardBalance(account))
	// Withdrawal out and back, plus the redirected deposit
	assert.Equal(t, before+100, state.TreasuryBalance())
}

func TestTickWithdrawalPaysRegisteredAccount(t *testing.T) {
	state := newTestState(t, 1000)

	action, accounts := withdrawalAction(t, map[byte]uint64{0xaa: 300})
	var account []byte
	for k := range accounts {
		account = []byte(k)
	}
	state.RegisterRewardAccount(account)
	state.RegisterRewardAccount(testCred(0xee))

	submitAndRatify(t, state, testId(1, 0), action)
	ev := mustTick(t, state)
	require.Equal(t, []ActionId{testId(1, 0)}, ev.Enacted)
	assert.Equal(t, uint64(300), state.RewardBalance(account))
	assert.Equal(t, uint64(700), state.TreasuryBalance())
}

func TestTickEnactParameterChange(t *testing.T) {
	state := newTestState(t, 0)

	newDeposit := uint64(555)
	update := &conway.ConwayProtocolParameterUpdate{
		GovActionDeposit: &newDeposit,
	}
	submitAndRatify(t, state, testId(1, 0), paramChangeAction(t, nil, update))
	mustTick(t, state)
	assert.Equal(t, uint64(555), state.Params().GovActionDeposit)
}

func TestTickEnactHardFork(t *testing.T) {
	state := newTestState(t, 0)

	submitAndRatify(t, state, testId(1, 0), hardForkAction(nil, 10, 2))
	mustTick(t, state)
	assert.Equal(t, ProtocolVersion{Major: 10, Minor: 2}, state.ProtoVersion())
}

func TestTickEnactNoConfidenceClearsCommittee(t *testing.T) {
	state := newTestState(t, 0)
	state.SetCommittee(map[string]uint64{
		string(testCred(0xc1)): 100,
		string(testCred(0xc2)): 100,
	})
	require.NoError(t, state.RegisterDRep(testCred(1), 100, nil, nil))
	state.SetPoolStake(testCred(0xa1), 100)

	_, err := state.SubmitProposal(
		testId(1, 0),
		noConfidenceAction(nil),
		100,
		testCred(0xee),
		testAnchor("https://example.com/a"),
	)
	require.NoError(t, err)
	require.NoError(t, state.CastVote(drepVoter(1), testId(1, 0), VoteYes, nil))
	require.NoError(t, state.CastVote(spoVoter(0xa1), testId(1, 0), VoteYes, nil))

	ev := mustTick(t, state)
	require.Equal(t, []ActionId{testId(1, 0)}, ev.Ratified)
	ev = mustTick(t, state)
	require.Equal(t, []ActionId{testId(1, 0)}, ev.Enacted)

	// With the committee gone, committee-voted actions are vacuously
	// satisfied on the committee axis
	assert.Empty(t, state.committee)
}

// A competitor submitted while the winner sits ratified is dropped when the
// winner enacts.
func TestTickEnactDropsLateSiblings(t *testing.T) {
	state := newTestState(t, 0)

	submitAndRatify(t, state, testId(1, 0), constitutionAction(nil))
	_, err := state.SubmitProposal(
		testId(2, 0),
		constitutionAction(nil),
		100,
		testCred(0xee),
		testAnchor("https://example.com/b"),
	)
	require.NoError(t, err)

	ev := mustTick(t, state)
	require.Equal(t, []ActionId{testId(1, 0)}, ev.Enacted)
	require.Equal(t, []ActionId{testId(2, 0)}, ev.Dropped)
	_, err = state.GetProposal(testId(2, 0))
	assert.ErrorIs(t, err, ErrProposalNotFound)
}

func TestSubmitConflictDropRecordedNextTick(t *testing.T) {
	state := newTestState(t, 0)
	account := testCred(0xaa)
	state.RegisterRewardAccount(account)

	_, err := state.SubmitProposal(
		testId(1, 0),
		constitutionAction(nil),
		100,
		account,
		testAnchor("https://example.com/a"),
	)
	require.NoError(t, err)
	dropped, err := state.SubmitProposal(
		testId(2, 0),
		constitutionAction(nil),
		100,
		account,
		testAnchor("https://example.com/b"),
	)
	require.NoError(t, err)
	require.Equal(t, []ActionId{testId(1, 0)}, dropped)

	// The loser's deposit settles immediately; the drop is carried into the
	// next tick's aggregate event
	assert.Equal(t, uint64(100), state.RewardBalance(account))
	ev := mustTick(t, state)
	assert.Contains(t, ev.Dropped, testId(1, 0))
	ret := ev.DepositReturns[testId(1, 0)]
	assert.Equal(t, uint64(100), ret.Amount)
	assert.Equal(t, DepositToAccount, ret.Target)
}

func TestSubmitAppliesDormantGrace(t *testing.T) {
	state := newTestState(t, 0)
	require.NoError(t, state.RegisterDRep(testCred(1), 100, nil, nil))
	displayed, effective, err := state.GetDRepExpiry(testCred(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(4), displayed)
	assert.Equal(t, displayed, effective)

	// Two dormant epochs accumulate; the displayed expiry is untouched
	// while the effective one drifts
	mustTick(t, state)
	mustTick(t, state)
	require.Equal(t, uint64(2), state.DormantEpochCount())
	displayed, effective, err = state.GetDRepExpiry(testCred(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(4), displayed)
	assert.Equal(t, uint64(6), effective)

	// Submission folds the grace into the displayed expiry and resets the
	// counter in the same step
	_, err = state.SubmitProposal(
		testId(1, 0),
		infoAction(),
		100,
		testCred(0xee),
		testAnchor("https://example.com/a"),
	)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), state.DormantEpochCount())
	displayed, effective, err = state.GetDRepExpiry(testCred(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(6), displayed)
	assert.Equal(t, displayed, effective)

	// The newcomer's own expiry is not inflated by the spent grace
	p, err := state.GetProposal(testId(1, 0))
	require.NoError(t, err)
	assert.Equal(t, uint64(4), p.ExpiresEpoch)

	ev := mustTick(t, state)
	assert.Equal(t, uint64(2), ev.DormantEpochsApplied)
	assert.Equal(t, uint64(0), ev.DormantEpochs)
}

func TestGetProposalsIdempotent(t *testing.T) {
	state := newTestState(t, 0)
	for n := byte(1); n <= 3; n++ {
		_, err := state.SubmitProposal(
			testId(n, 0),
			infoAction(),
			100,
			testCred(0xee),
			testAnchor("https://example.com/a"),
		)
		require.NoError(t, err)
	}

	first := state.GetProposals()
	second := state.GetProposals()
	assert.Equal(t, first, second)
}

func TestUnregisterDRepRefundsDeposit(t *testing.T) {
	state := newTestState(t, 200)
	account := testCred(0xaa)
	state.RegisterRewardAccount(account)
	require.NoError(t, state.RegisterDRep(testCred(1), 100, account, nil))

	require.NoError(t, state.UnregisterDRep(testCred(1)))
	// DRepDeposit is 50
	assert.Equal(t, uint64(50), state.RewardBalance(account))

	// An unregistered return account diverts to the treasury instead
	require.NoError(t, state.RegisterDRep(testCred(2), 100, testCred(0xbb), nil))
	require.NoError(t, state.UnregisterDRep(testCred(2)))
	assert.Equal(t, uint64(250), state.TreasuryBalance())
}

func TestDRepVoteRefreshesExpiry(t *testing.T) {
	state := newTestState(t, 0)
	require.NoError(t, state.RegisterDRep(testCred(1), 100, nil, nil))
	_, err := state.SubmitProposal(
		testId(1, 0),
		infoAction(),
		100,
		testCred(0xee),
		testAnchor("https://example.com/a"),
	)
	require.NoError(t, err)

	mustTick(t, state)
	mustTick(t, state)
	mustTick(t, state)
	require.Equal(t, uint64(2), state.DormantEpochCount())

	// Voting at epoch 3 with dormant count 2: displayed becomes 3+4+2
	require.NoError(t, state.CastVote(drepVoter(1), testId(1, 0), VoteYes, nil))
	displayed, _, err := state.GetDRepExpiry(testCred(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(9), displayed)
}
