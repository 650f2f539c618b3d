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
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quoll-ledger/quoll/database/models"
)

func testTxHash(n byte) []byte {
	return bytes.Repeat([]byte{n}, 32)
}

func TestGovernanceProposalRoundTrip(t *testing.T) {
	store := setupTestStore(t)

	// Initially absent
	proposal, err := store.GetGovernanceProposal(testTxHash(0x01), 0, nil)
	require.NoError(t, err)
	assert.Nil(t, proposal)

	row := &models.GovernanceProposal{
		TxHash:        testTxHash(0x01),
		ActionIndex:   0,
		ActionType:    6,
		ActionCbor:    []byte{0x81, 0x06},
		Status:        0,
		ProposedEpoch: 3,
		ExpiresEpoch:  9,
		AnchorURL:     "https://example.com/proposal.json",
		AnchorHash:    testTxHash(0xaa),
		Deposit:       100_000,
		ReturnAccount: testCred(0xee),
	}
	require.NoError(t, store.SetGovernanceProposal(row, nil))

	proposal, err = store.GetGovernanceProposal(testTxHash(0x01), 0, nil)
	require.NoError(t, err)
	require.NotNil(t, proposal)
	assert.Equal(t, uint64(9), proposal.ExpiresEpoch)
	assert.Equal(t, uint64(100_000), proposal.Deposit)
	assert.Equal(t, "https://example.com/proposal.json", proposal.AnchorURL)
}

func TestGovernanceProposalUpsert(t *testing.T) {
	store := setupTestStore(t)
	row := &models.GovernanceProposal{
		TxHash:        testTxHash(0x02),
		ActionIndex:   1,
		ActionType:    6,
		ActionCbor:    []byte{0x81, 0x06},
		Status:        0,
		ProposedEpoch: 1,
		ExpiresEpoch:  7,
		Deposit:       100,
		ReturnAccount: testCred(0xee),
	}
	require.NoError(t, store.SetGovernanceProposal(row, nil))

	// Same key with changed status updates in place
	ratified := uint64(5)
	update := &models.GovernanceProposal{
		TxHash:        testTxHash(0x02),
		ActionIndex:   1,
		ActionType:    6,
		ActionCbor:    []byte{0x81, 0x06},
		Status:        1,
		ProposedEpoch: 1,
		ExpiresEpoch:  7,
		RatifiedEpoch: &ratified,
		Deposit:       100,
		ReturnAccount: testCred(0xee),
	}
	require.NoError(t, store.SetGovernanceProposal(update, nil))

	proposals, err := store.GetGovernanceProposals(nil)
	require.NoError(t, err)
	require.Len(t, proposals, 1)
	assert.Equal(t, uint8(1), proposals[0].Status)
	require.NotNil(t, proposals[0].RatifiedEpoch)
	assert.Equal(t, uint64(5), *proposals[0].RatifiedEpoch)
}

func TestGovernanceProposalsOrdered(t *testing.T) {
	store := setupTestStore(t)
	for i := byte(3); i > 0; i-- {
		row := &models.GovernanceProposal{
			TxHash:        testTxHash(i),
			ActionIndex:   0,
			ActionType:    6,
			ActionCbor:    []byte{0x81, 0x06},
			ProposedEpoch: uint64(i),
			ExpiresEpoch:  uint64(i) + 6,
			Deposit:       100,
			ReturnAccount: testCred(0xee),
		}
		require.NoError(t, store.SetGovernanceProposal(row, nil))
	}
	proposals, err := store.GetGovernanceProposals(nil)
	require.NoError(t, err)
	require.Len(t, proposals, 3)
	// Insertion order, not key order
	assert.Equal(t, testTxHash(3), proposals[0].TxHash)
	assert.Equal(t, testTxHash(1), proposals[2].TxHash)
}

func TestGovernanceVotes(t *testing.T) {
	store := setupTestStore(t)
	row := &models.GovernanceProposal{
		TxHash:        testTxHash(0x04),
		ActionIndex:   0,
		ActionType:    6,
		ActionCbor:    []byte{0x81, 0x06},
		ProposedEpoch: 1,
		ExpiresEpoch:  7,
		Deposit:       100,
		ReturnAccount: testCred(0xee),
	}
	require.NoError(t, store.SetGovernanceProposal(row, nil))
	require.NotZero(t, row.ID)

	require.NoError(t, store.SetGovernanceVote(&models.GovernanceVote{
		ProposalID:      row.ID,
		VoterRole:       1,
		VoterCredential: testCred(0xd1),
		Vote:            1,
	}, nil))
	require.NoError(t, store.SetGovernanceVote(&models.GovernanceVote{
		ProposalID:      row.ID,
		VoterRole:       0,
		VoterCredential: testCred(0xc1),
		Vote:            2,
	}, nil))

	votes, err := store.GetGovernanceVotes(row.ID, nil)
	require.NoError(t, err)
	require.Len(t, votes, 2)
	// Ordered by role then credential
	assert.Equal(t, uint8(0), votes[0].VoterRole)
	assert.Equal(t, uint8(1), votes[1].VoterRole)

	// Re-vote overwrites in place
	require.NoError(t, store.SetGovernanceVote(&models.GovernanceVote{
		ProposalID:      row.ID,
		VoterRole:       1,
		VoterCredential: testCred(0xd1),
		Vote:            0,
	}, nil))
	votes, err = store.GetGovernanceVotes(row.ID, nil)
	require.NoError(t, err)
	require.Len(t, votes, 2)
	assert.Equal(t, uint8(0), votes[1].Vote)
}

func TestDeleteGovernanceProposalCascades(t *testing.T) {
	store := setupTestStore(t)
	row := &models.GovernanceProposal{
		TxHash:        testTxHash(0x05),
		ActionIndex:   2,
		ActionType:    6,
		ActionCbor:    []byte{0x81, 0x06},
		ProposedEpoch: 1,
		ExpiresEpoch:  7,
		Deposit:       100,
		ReturnAccount: testCred(0xee),
	}
	require.NoError(t, store.SetGovernanceProposal(row, nil))
	require.NoError(t, store.SetGovernanceVote(&models.GovernanceVote{
		ProposalID:      row.ID,
		VoterRole:       1,
		VoterCredential: testCred(0xd1),
		Vote:            1,
	}, nil))

	require.NoError(
		t,
		store.DeleteGovernanceProposal(testTxHash(0x05), 2, nil),
	)
	proposal, err := store.GetGovernanceProposal(testTxHash(0x05), 2, nil)
	require.NoError(t, err)
	assert.Nil(t, proposal)
	votes, err := store.GetGovernanceVotes(row.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, votes)

	// Deleting a missing proposal is a no-op
	require.NoError(
		t,
		store.DeleteGovernanceProposal(testTxHash(0x05), 2, nil),
	)
}

func TestDrepRoundTrip(t *testing.T) {
	store := setupTestStore(t)

	drep, err := store.GetDrep(testCred(0xd1), nil)
	require.NoError(t, err)
	assert.Nil(t, drep)

	require.NoError(t, store.SetDrep(&models.Drep{
		Credential:    testCred(0xd1),
		Stake:         5000,
		Deposit:       500,
		ExpiryEpoch:   20,
		ReturnAccount: testCred(0xee),
	}, nil))

	// Upsert refreshes fields under the same credential
	require.NoError(t, store.SetDrep(&models.Drep{
		Credential:  testCred(0xd1),
		Stake:       6000,
		Deposit:     500,
		ExpiryEpoch: 24,
	}, nil))

	dreps, err := store.GetDreps(nil)
	require.NoError(t, err)
	require.Len(t, dreps, 1)
	assert.Equal(t, uint64(6000), dreps[0].Stake)
	assert.Equal(t, uint64(24), dreps[0].ExpiryEpoch)

	require.NoError(t, store.DeleteDrep(testCred(0xd1), nil))
	drep, err = store.GetDrep(testCred(0xd1), nil)
	require.NoError(t, err)
	assert.Nil(t, drep)
}

func TestRewardAccountRoundTrip(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.SetRewardAccount(&models.RewardAccount{
		Credential: testCred(0xaa),
		Balance:    0,
	}, nil))
	require.NoError(t, store.SetRewardAccount(&models.RewardAccount{
		Credential: testCred(0xaa),
		Balance:    750,
	}, nil))

	account, err := store.GetRewardAccount(testCred(0xaa), nil)
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, uint64(750), account.Balance)

	require.NoError(t, store.DeleteRewardAccount(testCred(0xaa), nil))
	account, err = store.GetRewardAccount(testCred(0xaa), nil)
	require.NoError(t, err)
	assert.Nil(t, account)
}

func TestEpochStateSingleton(t *testing.T) {
	store := setupTestStore(t)

	state, err := store.GetEpochState(nil)
	require.NoError(t, err)
	assert.Nil(t, state)

	require.NoError(t, store.SetEpochState(&models.EpochState{
		Epoch:           4,
		DormantEpochs:   1,
		TreasuryBalance: 9_000,
		ProtocolMajor:   9,
	}, nil))
	require.NoError(t, store.SetEpochState(&models.EpochState{
		Epoch:           5,
		DormantEpochs:   2,
		TreasuryBalance: 8_500,
		ProtocolMajor:   9,
	}, nil))

	state, err = store.GetEpochState(nil)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, uint64(5), state.Epoch)
	assert.Equal(t, uint64(2), state.DormantEpochs)

	// Only a single row regardless of how many writes happened
	var count int64
	require.NoError(
		t,
		store.DB().Model(&models.EpochState{}).Count(&count).Error,
	)
	assert.Equal(t, int64(1), count)
}

func TestCommitteeAndPoolReplace(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.ReplaceCommittee(map[string]uint64{
		string(testCred(0xc1)): 50,
		string(testCred(0xc2)): 60,
	}, nil))
	require.NoError(t, store.ReplaceCommittee(map[string]uint64{
		string(testCred(0xc3)): 70,
	}, nil))
	members, err := store.GetCommitteeMembers(nil)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, testCred(0xc3), members[0].Credential)

	require.NoError(t, store.ReplacePoolStakes(map[string]uint64{
		string(testCred(0xb1)): 1000,
		string(testCred(0xb2)): 2000,
	}, nil))
	pools, err := store.GetPoolStakes(nil)
	require.NoError(t, err)
	require.Len(t, pools, 2)
	assert.Equal(t, testCred(0xb1), pools[0].Credential)
	assert.Equal(t, uint64(2000), pools[1].Stake)
}
