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

// Package devnet provides a test harness for running governance lifecycle
// scenarios against an in-process ledger with accelerated epoch parameters.
package devnet

import (
	"bytes"
	"testing"
	"time"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/stretchr/testify/require"

	"github.com/quoll-ledger/quoll"
	"github.com/quoll-ledger/quoll/gov"
)

// ScenarioParams returns governance parameters tuned for fast scenario
// runs: short proposal lifetimes and DRep activity windows so a scenario
// only needs a handful of ticks.
func ScenarioParams() gov.Params {
	p := gov.DefaultParams()
	p.GovActionLifetime = 2
	p.GovActionDeposit = 100
	p.DRepDeposit = 50
	p.DRepActivity = 3
	return p
}

// Harness wraps a running ledger with helpers for driving governance
// scenarios. All helpers fail the test on error.
type Harness struct {
	t      *testing.T
	Ledger *quoll.Ledger
}

// HarnessOptionFunc configures a Harness before the ledger starts.
type HarnessOptionFunc func(*harnessOptions)

type harnessOptions struct {
	params   gov.Params
	dataDir  string
	treasury uint64
}

// WithParams overrides the default scenario parameters.
func WithParams(params gov.Params) HarnessOptionFunc {
	return func(o *harnessOptions) {
		o.params = params
	}
}

// WithDataDir persists ledger state under the given directory instead of
// running in memory.
func WithDataDir(dataDir string) HarnessOptionFunc {
	return func(o *harnessOptions) {
		o.dataDir = dataDir
	}
}

// WithTreasury seeds the initial treasury balance.
func WithTreasury(amount uint64) HarnessOptionFunc {
	return func(o *harnessOptions) {
		o.treasury = amount
	}
}

// NewHarness starts a ledger with scenario parameters and registers a
// cleanup to stop it when the test finishes.
func NewHarness(t *testing.T, opts ...HarnessOptionFunc) *Harness {
	t.Helper()
	options := &harnessOptions{
		params:   ScenarioParams(),
		treasury: 1_000_000,
	}
	for _, opt := range opts {
		opt(options)
	}
	ledger, err := quoll.New(
		quoll.NewConfig(
			quoll.WithParams(options.params),
			quoll.WithDataDir(options.dataDir),
			quoll.WithInitialTreasury(options.treasury),
		),
	)
	require.NoError(t, err)
	require.NoError(t, ledger.Start())
	t.Cleanup(func() {
		ledger.Stop() //nolint:errcheck
	})
	return &Harness{
		t:      t,
		Ledger: ledger,
	}
}

// Cred builds a 28-byte credential filled with the given byte.
func Cred(n byte) []byte {
	return bytes.Repeat([]byte{n}, 28)
}

// ActionId builds an action id whose transaction hash is filled with the
// given byte.
func ActionId(n byte) gov.ActionId {
	var txId [32]byte
	for i := range txId {
		txId[i] = n
	}
	return gov.ActionId{TransactionId: txId}
}

// RegisterDRep registers a DRep with the given credential byte and stake.
func (h *Harness) RegisterDRep(n byte, stake uint64) {
	h.t.Helper()
	require.NoError(
		h.t,
		h.Ledger.RegisterDRep(Cred(n), stake, Cred(n), nil),
	)
}

// SubmitInfo submits an info proposal under the given action id byte.
func (h *Harness) SubmitInfo(n byte) gov.ActionId {
	h.t.Helper()
	id := ActionId(n)
	_, err := h.Ledger.SubmitProposal(
		id,
		&lcommon.InfoGovAction{Type: uint(gov.ActionTypeInfo)},
		h.Ledger.Params().GovActionDeposit,
		Cred(n),
		gov.Anchor{},
	)
	require.NoError(h.t, err)
	return id
}

// SubmitHardFork submits a hard fork initiation proposal targeting the
// given major protocol version.
func (h *Harness) SubmitHardFork(n byte, major uint) gov.ActionId {
	h.t.Helper()
	id := ActionId(n)
	action := &lcommon.HardForkInitiationGovAction{
		Type: uint(gov.ActionTypeHardForkInitiation),
	}
	action.ProtocolVersion.Major = major
	_, err := h.Ledger.SubmitProposal(
		id,
		action,
		h.Ledger.Params().GovActionDeposit,
		Cred(n),
		gov.Anchor{},
	)
	require.NoError(h.t, err)
	return id
}

// DRepVote casts a vote from the given DRep on the proposal.
func (h *Harness) DRepVote(drep byte, id gov.ActionId, vote uint8) {
	h.t.Helper()
	var voter gov.Voter
	voter.Type = lcommon.VoterTypeDRepKeyHash
	copy(voter.Hash[:], Cred(drep))
	require.NoError(h.t, h.Ledger.CastVote(voter, id, vote, nil))
}

// DRepVoteYes casts a yes vote from the given DRep on the proposal.
func (h *Harness) DRepVoteYes(drep byte, id gov.ActionId) {
	h.t.Helper()
	h.DRepVote(drep, id, gov.VoteYes)
}

// AdvanceEpoch ticks the ledger one epoch and returns the tick outcome.
func (h *Harness) AdvanceEpoch() *gov.TickEvent {
	h.t.Helper()
	ev, err := h.Ledger.Tick()
	require.NoError(h.t, err)
	return ev
}

// AdvanceEpochs ticks the ledger the given number of epochs.
func (h *Harness) AdvanceEpochs(count int) {
	h.t.Helper()
	for range count {
		h.AdvanceEpoch()
	}
}

// WaitForEpoch polls until the ledger reaches the target epoch, for use
// with a wall-clock ticker.
func (h *Harness) WaitForEpoch(target uint64, timeout time.Duration) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		return h.Ledger.Epoch() >= target
	}, timeout, 10*time.Millisecond,
		"ledger did not reach epoch %d within %s", target, timeout,
	)
}
