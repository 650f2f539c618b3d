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
	"testing"

	"github.com/blinklabs-io/gouroboros/cbor"
	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/blinklabs-io/gouroboros/ledger/conway"
	"github.com/stretchr/testify/require"
)

// testParams returns small parameter values so tests can exercise expiry
// and dormancy within a handful of epochs
func testParams() Params {
	p := DefaultParams()
	p.GovActionLifetime = 2
	p.GovActionDeposit = 100
	p.DRepActivity = 4
	p.DRepDeposit = 50
	p.CommitteeTermLimit = 100
	half := RatFromInts(1, 2)
	p.DRepThresholds = conway.DRepVotingThresholds{
		MotionNoConfidence:    half,
		CommitteeNormal:       half,
		CommitteeNoConfidence: half,
		UpdateToConstitution:  half,
		HardForkInitiation:    half,
		PpNetworkGroup:        half,
		PpEconomicGroup:       half,
		PpTechnicalGroup:      half,
		PpGovGroup:            half,
		TreasuryWithdrawal:    half,
	}
	p.PoolThresholds = conway.PoolVotingThresholds{
		MotionNoConfidence:    half,
		CommitteeNormal:       half,
		CommitteeNoConfidence: half,
		HardForkInitiation:    half,
		PpSecurityGroup:       half,
	}
	p.CommitteeThreshold = half
	return p
}

func newTestState(t *testing.T, treasury uint64) *State {
	t.Helper()
	state, err := NewState(testParams(), treasury)
	require.NoError(t, err)
	return state
}

// testId builds a deterministic action id from a marker byte
func testId(n byte, idx uint32) ActionId {
	var txId [32]byte
	for i := range txId {
		txId[i] = n
	}
	return ActionId{
		TransactionId: txId,
		GovActionIdx:  idx,
	}
}

func testCred(n byte) []byte {
	return bytes.Repeat([]byte{n}, 28)
}

func testAnchor(url string) Anchor {
	return Anchor{Url: url}
}

func drepVoter(n byte) Voter {
	var hash [28]byte
	copy(hash[:], testCred(n))
	return Voter{
		Type: lcommon.VoterTypeDRepKeyHash,
		Hash: hash,
	}
}

func ccVoter(n byte) Voter {
	var hash [28]byte
	copy(hash[:], testCred(n))
	return Voter{
		Type: lcommon.VoterTypeConstitutionalCommitteeHotKeyHash,
		Hash: hash,
	}
}

func spoVoter(n byte) Voter {
	var hash [28]byte
	copy(hash[:], testCred(n))
	return Voter{
		Type: lcommon.VoterTypeStakingPoolKeyHash,
		Hash: hash,
	}
}

func infoAction() Action {
	return &lcommon.InfoGovAction{
		Type: uint(ActionTypeInfo),
	}
}

func constitutionAction(parent *ActionId) Action {
	a := &lcommon.NewConstitutionGovAction{
		Type:     uint(ActionTypeNewConstitution),
		ActionId: parent,
	}
	a.Constitution.Anchor = testAnchor("https://example.com/constitution")
	return a
}

func noConfidenceAction(parent *ActionId) Action {
	return &lcommon.NoConfidenceGovAction{
		Type:     uint(ActionTypeNoConfidence),
		ActionId: parent,
	}
}

func hardForkAction(parent *ActionId, major, minor uint) Action {
	a := &lcommon.HardForkInitiationGovAction{
		Type:     uint(ActionTypeHardForkInitiation),
		ActionId: parent,
	}
	a.ProtocolVersion.Major = major
	a.ProtocolVersion.Minor = minor
	return a
}

// testAddress builds a stake-only address from a marker byte and returns it
// along with its raw bytes, which double as the reward account key
func testAddress(t *testing.T, n byte) (lcommon.Address, []byte) {
	t.Helper()
	addr, err := lcommon.NewAddressFromParts(
		lcommon.AddressTypeNoneKey,
		lcommon.AddressNetworkTestnet,
		nil,
		testCred(n),
	)
	require.NoError(t, err)
	addrBytes, err := addr.Bytes()
	require.NoError(t, err)
	return addr, addrBytes
}

func withdrawalAction(
	t *testing.T,
	withdrawals map[byte]uint64,
) (Action, map[string]uint64) {
	t.Helper()
	action := &lcommon.TreasuryWithdrawalGovAction{
		Type:        uint(ActionTypeTreasuryWithdrawal),
		Withdrawals: make(map[*lcommon.Address]uint64),
	}
	accounts := make(map[string]uint64)
	for n, amount := range withdrawals {
		addr, addrBytes := testAddress(t, n)
		action.Withdrawals[&addr] = amount
		accounts[string(addrBytes)] = amount
	}
	return action, accounts
}

func paramChangeAction(
	t *testing.T,
	parent *ActionId,
	update *conway.ConwayProtocolParameterUpdate,
) Action {
	t.Helper()
	a := &lcommon.ParameterChangeGovAction{
		Type:     uint(ActionTypeParameterChange),
		ActionId: parent,
	}
	if update != nil {
		updateCbor, err := cbor.Encode(update)
		require.NoError(t, err)
		a.ParamUpdate = updateCbor
	}
	return a
}

// submitAndRatify pushes a proposal through submission and unanimous DRep
// ratification so enactment tests can focus on the effect
func submitAndRatify(
	t *testing.T,
	state *State,
	id ActionId,
	action Action,
) *TickEvent {
	t.Helper()
	_, err := state.SubmitProposal(
		id,
		action,
		state.Params().GovActionDeposit,
		testCred(0xee),
		testAnchor("https://example.com/proposal"),
	)
	require.NoError(t, err)
	if _, ok := state.dreps.Get(testCred(0xd1)); !ok {
		require.NoError(
			t,
			state.RegisterDRep(testCred(0xd1), 1000, testCred(0xee), nil),
		)
	}
	require.NoError(t, state.CastVote(drepVoter(0xd1), id, VoteYes, nil))
	ev, err := state.Tick()
	require.NoError(t, err)
	require.Contains(t, ev.Ratified, id)
	return ev
}
