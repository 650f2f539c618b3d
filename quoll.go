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
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/quoll-ledger/quoll/database"
	"github.com/quoll-ledger/quoll/event"
	"github.com/quoll-ledger/quoll/gov"
)

// ErrNotStarted is returned by operations invoked before Start
var ErrNotStarted = errors.New("ledger not started")

// Ledger is the top-level governance engine: it owns the state machine, its
// persistence, the event bus, and the optional wall-clock epoch ticker. All
// operations are serialized internally.
type Ledger struct {
	state         *gov.State
	db            *database.Database
	eventBus      *event.EventBus
	metrics       *ledgerMetrics
	shutdownFuncs []func(context.Context) error
	config        Config
	done          chan struct{}
	tickerStop    chan struct{}
	tickerWg      sync.WaitGroup
	shutdownOnce  sync.Once
	mu            sync.Mutex
	started       bool
}

func New(cfg Config) (*Ledger, error) {
	if cfg.params != nil {
		if err := cfg.params.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	l := &Ledger{
		config:     cfg,
		eventBus:   event.NewEventBus(cfg.promRegistry, cfg.logger),
		done:       make(chan struct{}),
		tickerStop: make(chan struct{}),
	}
	return l, nil
}

// EventBus returns the ledger's event bus for subscribing to governance
// events
func (l *Ledger) EventBus() *event.EventBus {
	return l.eventBus
}

// Start opens the database, loads or creates governance state, and starts
// the wall-clock ticker when one is configured
func (l *Ledger) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return nil
	}
	// Configure tracing
	if l.config.tracing {
		if err := l.setupTracing(); err != nil {
			return err
		}
	}
	// Load database
	db, err := database.New(
		l.config.dataDir,
		l.config.logger,
		l.config.promRegistry,
	)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	l.db = db
	// Load stored state, or create a fresh one
	state, err := db.LoadState()
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}
	if state == nil {
		params := gov.DefaultParams()
		if l.config.params != nil {
			params = *l.config.params
		}
		state, err = gov.NewState(params, l.config.initialTreasury)
		if err != nil {
			return fmt.Errorf("failed to create state: %w", err)
		}
		if err := db.SaveState(state); err != nil {
			return fmt.Errorf("failed to save initial state: %w", err)
		}
		l.config.logger.Info(
			"created fresh governance state",
			"component", "ledger",
			"treasury", l.config.initialTreasury,
		)
	} else {
		l.config.logger.Info(
			"restored governance state",
			"component", "ledger",
			"epoch", state.Epoch(),
			"proposals", len(state.GetProposals()),
		)
	}
	if l.config.stake != nil {
		state.SetStakeDistribution(l.config.stake)
	}
	l.state = state
	if l.config.promRegistry != nil {
		l.metrics = newLedgerMetrics(l.config.promRegistry)
		l.metrics.observe(l.state)
	}
	if l.config.tickInterval > 0 {
		l.tickerWg.Add(1)
		go l.runTicker()
	}
	l.started = true
	return nil
}

// Run starts the ledger and blocks until Stop is called
func (l *Ledger) Run() error {
	if err := l.Start(); err != nil {
		return err
	}
	<-l.done
	return nil
}

func (l *Ledger) runTicker() {
	defer l.tickerWg.Done()
	ticker := time.NewTicker(l.config.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.tickerStop:
			return
		case <-ticker.C:
			if _, err := l.Tick(); err != nil {
				l.config.logger.Error(
					"epoch tick failed",
					"component", "ledger",
					"error", err,
				)
			}
		}
	}
}

// Stop shuts the ledger down: the ticker stops, state is flushed to the
// database, and the event bus drains
func (l *Ledger) Stop() error {
	var err error
	l.shutdownOnce.Do(func() {
		err = l.shutdown()
	})
	return err
}

func (l *Ledger) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := 30 * time.Second
	if l.config.shutdownTimeout > 0 {
		shutdownTimeout = l.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	l.config.logger.Debug("starting graceful shutdown")

	// Phase 1: stop producing new ticks
	close(l.tickerStop)
	l.tickerWg.Wait()

	// Phase 2: flush state and close the database
	l.mu.Lock()
	if l.started {
		if saveErr := l.db.SaveState(l.state); saveErr != nil {
			err = errors.Join(err, fmt.Errorf("state flush: %w", saveErr))
		}
		if closeErr := l.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}
	l.mu.Unlock()

	// Phase 3: cleanup resources
	for _, fn := range l.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	l.shutdownFuncs = nil

	if l.eventBus != nil {
		l.eventBus.Stop()
	}

	l.config.logger.Debug("graceful shutdown complete")
	close(l.done)
	return err
}

// persist writes the current state snapshot through to the database
func (l *Ledger) persist() error {
	if err := l.db.SaveState(l.state); err != nil {
		return fmt.Errorf("persisting state: %w", err)
	}
	return nil
}

// SubmitProposal validates and stores a proposal, returning the ids of any
// older lineage siblings it displaced
func (l *Ledger) SubmitProposal(
	id gov.ActionId,
	action gov.Action,
	deposit uint64,
	returnAccount []byte,
	anchor gov.Anchor,
) ([]gov.ActionId, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return nil, ErrNotStarted
	}
	dropped, err := l.state.SubmitProposal(
		id,
		action,
		deposit,
		returnAccount,
		anchor,
	)
	if err != nil {
		return nil, err
	}
	if err := l.persist(); err != nil {
		return dropped, err
	}
	p, err := l.state.GetProposal(id)
	if err != nil {
		return dropped, err
	}
	l.eventBus.Publish(
		event.ProposalSubmittedEventType,
		event.NewEvent(
			event.ProposalSubmittedEventType,
			event.ProposalSubmittedEvent{
				Id:              id,
				ConflictDropped: dropped,
				ActionType:      p.ActionType,
				Deposit:         p.Deposit,
				Epoch:           l.state.Epoch(),
				ExpiresEpoch:    p.ExpiresEpoch,
			},
		),
	)
	if l.metrics != nil {
		l.metrics.observe(l.state)
	}
	return dropped, nil
}

// CastVote records a vote on a live proposal
func (l *Ledger) CastVote(
	voter gov.Voter,
	id gov.ActionId,
	vote uint8,
	anchor *gov.Anchor,
) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return ErrNotStarted
	}
	if err := l.state.CastVote(voter, id, vote, anchor); err != nil {
		return err
	}
	if err := l.persist(); err != nil {
		return err
	}
	role, err := gov.MapVoterRole(voter.Type)
	if err != nil {
		return err
	}
	l.eventBus.Publish(
		event.VoteCastEventType,
		event.NewEvent(
			event.VoteCastEventType,
			event.VoteCastEvent{
				Id:    id,
				Voter: voter.Hash[:],
				Role:  role,
				Vote:  vote,
				Epoch: l.state.Epoch(),
			},
		),
	)
	return nil
}

// RegisterDRep stores a DRep registration and holds its deposit
func (l *Ledger) RegisterDRep(
	credential []byte,
	stake uint64,
	returnAccount []byte,
	anchor *gov.Anchor,
) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return ErrNotStarted
	}
	if err := l.state.RegisterDRep(
		credential,
		stake,
		returnAccount,
		anchor,
	); err != nil {
		return err
	}
	if err := l.persist(); err != nil {
		return err
	}
	displayed, _, err := l.state.GetDRepExpiry(credential)
	if err != nil {
		return err
	}
	l.eventBus.Publish(
		event.DRepRegisteredEventType,
		event.NewEvent(
			event.DRepRegisteredEventType,
			event.DRepRegisteredEvent{
				Credential:  credential,
				Stake:       stake,
				Deposit:     l.state.Params().DRepDeposit,
				ExpiryEpoch: displayed,
			},
		),
	)
	if l.metrics != nil {
		l.metrics.observe(l.state)
	}
	return nil
}

// UpdateDRep records an update certificate for a registered DRep
func (l *Ledger) UpdateDRep(credential []byte, anchor *gov.Anchor) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return ErrNotStarted
	}
	if err := l.state.UpdateDRep(credential, anchor); err != nil {
		return err
	}
	return l.persist()
}

// UnregisterDRep removes a DRep registration and refunds its deposit
func (l *Ledger) UnregisterDRep(credential []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return ErrNotStarted
	}
	// The held deposit may predate a parameter change
	deposit := l.state.Params().DRepDeposit
	for _, rec := range l.state.DReps() {
		if bytes.Equal(rec.Credential, credential) {
			deposit = rec.Deposit
			break
		}
	}
	if err := l.state.UnregisterDRep(credential); err != nil {
		return err
	}
	if err := l.persist(); err != nil {
		return err
	}
	l.eventBus.Publish(
		event.DRepUnregisteredEventType,
		event.NewEvent(
			event.DRepUnregisteredEventType,
			event.DRepUnregisteredEvent{
				Credential:    credential,
				DepositRefund: deposit,
			},
		),
	)
	if l.metrics != nil {
		l.metrics.observe(l.state)
	}
	return nil
}

// RegisterRewardAccount marks a reward account as registered
func (l *Ledger) RegisterRewardAccount(account []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return ErrNotStarted
	}
	l.state.RegisterRewardAccount(account)
	return l.persist()
}

// DeregisterRewardAccount removes a reward account registration. Future
// deposits aimed at it divert to the treasury.
func (l *Ledger) DeregisterRewardAccount(account []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return ErrNotStarted
	}
	l.state.DeregisterRewardAccount(account)
	return l.persist()
}

// Donate adds funds to the treasury
func (l *Ledger) Donate(amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return ErrNotStarted
	}
	if err := l.state.Donate(amount); err != nil {
		return err
	}
	if err := l.persist(); err != nil {
		return err
	}
	if l.metrics != nil {
		l.metrics.observe(l.state)
	}
	return nil
}

// SetPoolStake records a stake pool's voting power for SPO tallies
func (l *Ledger) SetPoolStake(poolCredential []byte, stake uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return ErrNotStarted
	}
	l.state.SetPoolStake(poolCredential, stake)
	return l.persist()
}

// SetCommittee replaces the constitutional committee roster
func (l *Ledger) SetCommittee(members map[string]uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return ErrNotStarted
	}
	l.state.SetCommittee(members)
	return l.persist()
}

// Tick advances to the next epoch boundary: expiry sweep, dormancy
// accounting, enactment of the previous tick's ratifications, and a fresh
// ratification tally
func (l *Ledger) Tick() (*gov.TickEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return nil, ErrNotStarted
	}
	oldVersion := l.state.ProtoVersion()
	ev, err := l.state.Tick()
	if err != nil {
		return nil, err
	}
	if err := l.persist(); err != nil {
		return ev, err
	}
	l.eventBus.Publish(
		event.EpochTickEventType,
		event.NewEvent(
			event.EpochTickEventType,
			event.EpochTickEvent{
				DepositReturns:  ev.DepositReturns,
				Expired:         ev.Expired,
				Ratified:        ev.Ratified,
				Enacted:         ev.Enacted,
				Dropped:         ev.Dropped,
				Epoch:           ev.Epoch,
				DormantEpochs:   ev.DormantEpochs,
				TreasuryBalance: ev.TreasuryBalance,
			},
		),
	)
	if newVersion := l.state.ProtoVersion(); newVersion != oldVersion {
		l.eventBus.Publish(
			event.HardForkEventType,
			event.NewEvent(
				event.HardForkEventType,
				event.HardForkEvent{
					Epoch:      ev.Epoch,
					OldVersion: oldVersion,
					NewVersion: newVersion,
				},
			),
		)
	}
	if l.metrics != nil {
		l.metrics.observe(l.state)
		l.metrics.observeTick(ev)
	}
	return ev, nil
}

// Epoch returns the current epoch number
func (l *Ledger) Epoch() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return 0
	}
	return l.state.Epoch()
}

// DormantEpochCount returns the current dormant-epoch counter
func (l *Ledger) DormantEpochCount() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return 0
	}
	return l.state.DormantEpochCount()
}

// TreasuryBalance returns the current treasury balance
func (l *Ledger) TreasuryBalance() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return 0
	}
	return l.state.TreasuryBalance()
}

// RewardBalance returns the accumulated balance of a reward account
func (l *Ledger) RewardBalance(account []byte) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return 0
	}
	return l.state.RewardBalance(account)
}

// Constitution returns the enacted constitution anchor, if any
func (l *Ledger) Constitution() *gov.Anchor {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return nil
	}
	return l.state.Constitution()
}

// ProtoVersion returns the recorded protocol version
func (l *Ledger) ProtoVersion() gov.ProtocolVersion {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return gov.ProtocolVersion{}
	}
	return l.state.ProtoVersion()
}

// Params returns the active governance parameters
func (l *Ledger) Params() gov.Params {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return gov.Params{}
	}
	return l.state.Params()
}

// GetProposal returns a stored proposal by action id
func (l *Ledger) GetProposal(id gov.ActionId) (*gov.Proposal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return nil, ErrNotStarted
	}
	return l.state.GetProposal(id)
}

// GetProposals returns all live proposals in submission order
func (l *Ledger) GetProposals() []*gov.Proposal {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return nil
	}
	return l.state.GetProposals()
}

// ProposalTree returns the lineage forest of live proposals
func (l *Ledger) ProposalTree() map[gov.ActionId][]gov.ActionId {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return nil
	}
	return l.state.ProposalTree()
}

// GetDRepExpiry returns a DRep's displayed and effective expiry epochs
func (l *Ledger) GetDRepExpiry(
	credential []byte,
) (displayed, effective uint64, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return 0, 0, ErrNotStarted
	}
	return l.state.GetDRepExpiry(credential)
}

// DReps returns the registered DRep records ordered by credential
func (l *Ledger) DReps() []*gov.DRepRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return nil
	}
	return l.state.DReps()
}
