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

package event

import (
	"github.com/quoll-ledger/quoll/gov"
)

// EpochTickEventType is the event type for epoch boundary ticks
const EpochTickEventType = EventType("gov.epoch.tick")

// EpochTickEvent is the aggregate summary of one epoch boundary: what
// expired, ratified, enacted, or got dropped, and where settled deposits
// went. One event per tick.
type EpochTickEvent struct {
	// DepositReturns maps settled proposal ids to their settlement
	DepositReturns map[gov.ActionId]gov.DepositReturn
	// Expired lists proposals that passed their deadline unratified
	Expired []gov.ActionId
	// Ratified lists proposals that crossed all thresholds this epoch
	Ratified []gov.ActionId
	// Enacted lists proposals whose effect was applied this epoch
	Enacted []gov.ActionId
	// Dropped lists proposals removed by lineage conflict or cascade
	Dropped []gov.ActionId
	// Epoch is the epoch the tick advanced into
	Epoch uint64
	// DormantEpochs is the dormant counter after the tick
	DormantEpochs uint64
	// TreasuryBalance is the treasury balance after the tick
	TreasuryBalance uint64
}

// ProposalSubmittedEventType is the event type for accepted proposal
// submissions
const ProposalSubmittedEventType = EventType("gov.proposal.submitted")

// ProposalSubmittedEvent is emitted when a governance action proposal
// passes submission validation and enters the proposal store
type ProposalSubmittedEvent struct {
	// Id is the new proposal's action id
	Id gov.ActionId
	// ConflictDropped lists older siblings dropped by lineage conflict
	ConflictDropped []gov.ActionId
	// ActionType is the governance action type
	ActionType uint8
	// Deposit is the deposit held for the proposal
	Deposit uint64
	// Epoch is the submission epoch
	Epoch uint64
	// ExpiresEpoch is the displayed expiry epoch
	ExpiresEpoch uint64
}

// VoteCastEventType is the event type for recorded votes
const VoteCastEventType = EventType("gov.vote.cast")

// VoteCastEvent is emitted when a vote is recorded on a live proposal
type VoteCastEvent struct {
	// Id is the proposal's action id
	Id gov.ActionId
	// Voter is the voter credential
	Voter []byte
	// Role is the voting body the vote counts under
	Role uint8
	// Vote is the recorded choice
	Vote uint8
	// Epoch is the epoch the vote arrived in
	Epoch uint64
}

// DRepRegisteredEventType is the event type for DRep registrations
const DRepRegisteredEventType = EventType("gov.drep.registered")

// DRepRegisteredEvent is emitted when a DRep registration certificate is
// applied
type DRepRegisteredEvent struct {
	// Credential is the DRep credential
	Credential []byte
	// Stake is the registered voting power
	Stake uint64
	// Deposit is the held registration deposit
	Deposit uint64
	// ExpiryEpoch is the initial displayed expiry
	ExpiryEpoch uint64
}

// DRepUnregisteredEventType is the event type for DRep unregistrations
const DRepUnregisteredEventType = EventType("gov.drep.unregistered")

// DRepUnregisteredEvent is emitted when a DRep record is deleted
type DRepUnregisteredEvent struct {
	// Credential is the DRep credential
	Credential []byte
	// DepositRefund is the refunded registration deposit
	DepositRefund uint64
}

// HardForkEventType is the event type for protocol version bumps enacted
// by a hard-fork initiation action
const HardForkEventType = EventType("gov.hardfork")

// HardForkEvent is emitted when an enacted hard-fork initiation changes
// the recorded protocol version at an epoch boundary
type HardForkEvent struct {
	// Epoch is the enactment epoch
	Epoch uint64
	// OldVersion is the protocol version before enactment
	OldVersion gov.ProtocolVersion
	// NewVersion is the protocol version after enactment
	NewVersion gov.ProtocolVersion
}
