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

package quoll

import (
	"bytes"
	"testing"
	"time"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quoll-ledger/quoll/event"
	"github.com/quoll-ledger/quoll/gov"
)

func testLedgerParams() gov.Params {
	p := gov.DefaultParams()
	p.GovActionLifetime = 2
	p.GovActionDeposit = 100
	p.DRepDeposit = 50
	p.DRepActivity = 4
	return p
}

func startTestLedger(t *testing.T, opts ...ConfigOptionFunc) *Ledger {
	t.Helper()
	baseOpts := []ConfigOptionFunc{
		WithParams(testLedgerParams()),
		WithInitialTreasury(10_000),
	}
	ledger, err := New(NewConfig(append(baseOpts, opts...)...))
	require.NoError(t, err)
	require.NoError(t, ledger.Start())
	t.Cleanup(func() {
		ledger.Stop() //nolint:errcheck
	})
	return ledger
}

func ledgerCred(n byte) []byte {
	return bytes.Repeat([]byte{n}, 28)
}

func ledgerActionId(n byte) gov.ActionId {
	var txId [32]byte
	for i := range txId {
		txId[i] = n
	}
	return gov.ActionId{TransactionId: txId}
}

func TestLedgerStartFresh(t *testing.T) {
	ledger := startTestLedger(t)
	assert.Equal(t, uint64(0), ledger.Epoch())
	assert.Equal(t, uint64(10_000), ledger.TreasuryBalance())
	assert.Equal(t, uint64(2), ledger.Params().GovActionLifetime)
}

func TestLedgerNotStarted(t *testing.T) {
	ledger, err := New(NewConfig())
	require.NoError(t, err)
	defer ledger.Stop() //nolint:errcheck
	_, err = ledger.Tick()
	assert.ErrorIs(t, err, ErrNotStarted)
	err = ledger.Donate(1)
	assert.ErrorIs(t, err, ErrNotStarted)
	_, err = ledger.SubmitProposal(
		ledgerActionId(1),
		&lcommon.InfoGovAction{Type: uint(gov.ActionTypeInfo)},
		100,
		ledgerCred(0xee),
		gov.Anchor{},
	)
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestLedgerSubmitAndTickEvents(t *testing.T) {
	ledger := startTestLedger(t)
	_, submittedCh := ledger.EventBus().Subscribe(
		event.ProposalSubmittedEventType,
	)
	_, tickCh := ledger.EventBus().Subscribe(event.EpochTickEventType)

	id := ledgerActionId(1)
	dropped, err := ledger.SubmitProposal(
		id,
		&lcommon.InfoGovAction{Type: uint(gov.ActionTypeInfo)},
		100,
		ledgerCred(0xee),
		gov.Anchor{Url: "https://example.com/info.json"},
	)
	require.NoError(t, err)
	assert.Empty(t, dropped)

	select {
	case evt := <-submittedCh:
		data, ok := evt.Data.(event.ProposalSubmittedEvent)
		require.True(t, ok)
		assert.Equal(t, id, data.Id)
		assert.Equal(t, uint64(100), data.Deposit)
		assert.Equal(t, uint64(2), data.ExpiresEpoch)
	case <-time.After(1 * time.Second):
		t.Fatalf("timeout waiting for submission event")
	}

	ev, err := ledger.Tick()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ev.Epoch)
	select {
	case evt := <-tickCh:
		data, ok := evt.Data.(event.EpochTickEvent)
		require.True(t, ok)
		assert.Equal(t, uint64(1), data.Epoch)
		assert.Equal(t, uint64(10_000), data.TreasuryBalance)
	case <-time.After(1 * time.Second):
		t.Fatalf("timeout waiting for tick event")
	}
}

func TestLedgerVoteAndDRepEvents(t *testing.T) {
	ledger := startTestLedger(t)
	_, voteCh := ledger.EventBus().Subscribe(event.VoteCastEventType)
	_, drepCh := ledger.EventBus().Subscribe(event.DRepRegisteredEventType)

	require.NoError(
		t,
		ledger.RegisterDRep(ledgerCred(0xd1), 1000, ledgerCred(0xee), nil),
	)
	select {
	case evt := <-drepCh:
		data, ok := evt.Data.(event.DRepRegisteredEvent)
		require.True(t, ok)
		assert.Equal(t, ledgerCred(0xd1), data.Credential)
		assert.Equal(t, uint64(50), data.Deposit)
		assert.Equal(t, uint64(4), data.ExpiryEpoch)
	case <-time.After(1 * time.Second):
		t.Fatalf("timeout waiting for DRep event")
	}

	id := ledgerActionId(2)
	_, err := ledger.SubmitProposal(
		id,
		&lcommon.InfoGovAction{Type: uint(gov.ActionTypeInfo)},
		100,
		ledgerCred(0xee),
		gov.Anchor{},
	)
	require.NoError(t, err)

	var voter gov.Voter
	voter.Type = lcommon.VoterTypeDRepKeyHash
	copy(voter.Hash[:], ledgerCred(0xd1))
	require.NoError(t, ledger.CastVote(voter, id, gov.VoteYes, nil))
	select {
	case evt := <-voteCh:
		data, ok := evt.Data.(event.VoteCastEvent)
		require.True(t, ok)
		assert.Equal(t, id, data.Id)
		assert.Equal(t, gov.VoterRoleDRep, data.Role)
		assert.Equal(t, gov.VoteYes, data.Vote)
	case <-time.After(1 * time.Second):
		t.Fatalf("timeout waiting for vote event")
	}
}

func TestLedgerHardForkEvent(t *testing.T) {
	ledger := startTestLedger(t)
	_, hfCh := ledger.EventBus().Subscribe(event.HardForkEventType)

	require.NoError(
		t,
		ledger.RegisterDRep(ledgerCred(0xd1), 1000, ledgerCred(0xee), nil),
	)
	id := ledgerActionId(3)
	action := &lcommon.HardForkInitiationGovAction{
		Type: uint(gov.ActionTypeHardForkInitiation),
	}
	action.ProtocolVersion.Major = 11
	_, err := ledger.SubmitProposal(
		id,
		action,
		100,
		ledgerCred(0xee),
		gov.Anchor{},
	)
	require.NoError(t, err)
	var voter gov.Voter
	voter.Type = lcommon.VoterTypeDRepKeyHash
	copy(voter.Hash[:], ledgerCred(0xd1))
	require.NoError(t, ledger.CastVote(voter, id, gov.VoteYes, nil))

	// Ratifies on the first tick, enacts on the second
	ev, err := ledger.Tick()
	require.NoError(t, err)
	require.Contains(t, ev.Ratified, id)
	ev, err = ledger.Tick()
	require.NoError(t, err)
	require.Contains(t, ev.Enacted, id)

	select {
	case evt := <-hfCh:
		data, ok := evt.Data.(event.HardForkEvent)
		require.True(t, ok)
		assert.Equal(t, uint(11), data.NewVersion.Major)
		assert.Equal(t, uint(0), data.OldVersion.Major)
	case <-time.After(1 * time.Second):
		t.Fatalf("timeout waiting for hard fork event")
	}
	assert.Equal(t, uint(11), ledger.ProtoVersion().Major)
}

func TestLedgerPersistenceAcrossRestart(t *testing.T) {
	dataDir := t.TempDir()

	ledger, err := New(NewConfig(
		WithParams(testLedgerParams()),
		WithInitialTreasury(10_000),
		WithDataDir(dataDir),
	))
	require.NoError(t, err)
	require.NoError(t, ledger.Start())
	id := ledgerActionId(4)
	_, err = ledger.SubmitProposal(
		id,
		&lcommon.InfoGovAction{Type: uint(gov.ActionTypeInfo)},
		100,
		ledgerCred(0xee),
		gov.Anchor{},
	)
	require.NoError(t, err)
	_, err = ledger.Tick()
	require.NoError(t, err)
	require.NoError(t, ledger.Stop())

	restarted, err := New(NewConfig(
		WithParams(testLedgerParams()),
		WithDataDir(dataDir),
	))
	require.NoError(t, err)
	require.NoError(t, restarted.Start())
	defer restarted.Stop() //nolint:errcheck
	assert.Equal(t, uint64(1), restarted.Epoch())
	assert.Equal(t, uint64(10_000), restarted.TreasuryBalance())
	p, err := restarted.GetProposal(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), p.Deposit)
}

func TestLedgerWallClockTicker(t *testing.T) {
	ledger := startTestLedger(t, WithTickInterval(10*time.Millisecond))
	require.Eventually(t, func() bool {
		return ledger.Epoch() >= 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestLedgerRunBlocksUntilStop(t *testing.T) {
	ledger, err := New(NewConfig(
		WithParams(testLedgerParams()),
	))
	require.NoError(t, err)
	runDone := make(chan error, 1)
	go func() {
		runDone <- ledger.Run()
	}()
	// Wait until started, then stop
	require.Eventually(t, func() bool {
		ledger.mu.Lock()
		defer ledger.mu.Unlock()
		return ledger.started
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, ledger.Stop())
	select {
	case err := <-runDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after Stop")
	}
}
