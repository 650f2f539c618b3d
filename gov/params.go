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
	"errors"
	"fmt"
	"math/big"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/blinklabs-io/gouroboros/ledger/conway"
)

// Params holds the protocol parameters consumed by the governance engine.
// Thresholds are exact rationals in [0, 1]; no floating point is used
// anywhere in ratification math. A subset of these can change at runtime
// through an enacted parameter-change action.
type Params struct {
	// GovActionLifetime is the number of epochs a proposal stays live
	// before expiring (exclusive of dormant-epoch grace)
	GovActionLifetime uint64
	// GovActionDeposit is the minimum deposit for submitting a proposal
	GovActionDeposit uint64
	// DRepActivity is the number of epochs of DRep liveness granted by
	// registration or a recorded activity
	DRepActivity uint64
	// DRepDeposit is the deposit held for a DRep registration
	DRepDeposit uint64
	// CommitteeTermLimit caps committee member terms (epochs)
	CommitteeTermLimit uint64
	// DRepThresholds are the per-action-type DRep ratification thresholds
	DRepThresholds conway.DRepVotingThresholds
	// PoolThresholds are the per-action-type SPO ratification thresholds
	PoolThresholds conway.PoolVotingThresholds
	// CommitteeThreshold is the constitutional committee ratification
	// threshold, applied uniformly to committee-voted action types
	CommitteeThreshold cbor.Rat
}

// DefaultParams returns parameters resembling Conway-era mainnet values.
// Thresholds that matter for ratification default to 2/3 for DReps and
// pools and 2/3 for the committee.
func DefaultParams() Params {
	twoThirds := RatFromInts(2, 3)
	half := RatFromInts(51, 100)
	return Params{
		GovActionLifetime:  6,
		GovActionDeposit:   100_000_000_000,
		DRepActivity:       20,
		DRepDeposit:        500_000_000,
		CommitteeTermLimit: 146,
		DRepThresholds: conway.DRepVotingThresholds{
			MotionNoConfidence:    twoThirds,
			CommitteeNormal:       twoThirds,
			CommitteeNoConfidence: twoThirds,
			UpdateToConstitution:  twoThirds,
			HardForkInitiation:    twoThirds,
			PpNetworkGroup:        twoThirds,
			PpEconomicGroup:       twoThirds,
			PpTechnicalGroup:      twoThirds,
			PpGovGroup:            twoThirds,
			TreasuryWithdrawal:    twoThirds,
		},
		PoolThresholds: conway.PoolVotingThresholds{
			MotionNoConfidence:    half,
			CommitteeNormal:       half,
			CommitteeNoConfidence: half,
			HardForkInitiation:    half,
			PpSecurityGroup:       half,
		},
		CommitteeThreshold: twoThirds,
	}
}

// RatFromInts builds an exact rational threshold value
func RatFromInts(num, denom int64) cbor.Rat {
	return cbor.Rat{Rat: big.NewRat(num, denom)}
}

// ParseRat parses a threshold from its "num/denom" or integer string form,
// used by the config layer
func ParseRat(s string) (cbor.Rat, error) {
	r := new(big.Rat)
	if _, ok := r.SetString(s); !ok {
		return cbor.Rat{}, fmt.Errorf("invalid rational value: %q", s)
	}
	return cbor.Rat{Rat: r}, nil
}

// Validate checks parameters at startup. Failures here are configuration
// errors: the engine refuses to start rather than ticking with bad values.
func (p *Params) Validate() error {
	if p.GovActionLifetime == 0 {
		return errors.New("governance action lifetime must be nonzero")
	}
	if p.DRepActivity == 0 {
		return errors.New("drep activity period must be nonzero")
	}
	for _, check := range []struct {
		name string
		rat  cbor.Rat
	}{
		{"committeeThreshold", p.CommitteeThreshold},
		{"drep.motionNoConfidence", p.DRepThresholds.MotionNoConfidence},
		{"drep.committeeNormal", p.DRepThresholds.CommitteeNormal},
		{"drep.committeeNoConfidence", p.DRepThresholds.CommitteeNoConfidence},
		{"drep.updateToConstitution", p.DRepThresholds.UpdateToConstitution},
		{"drep.hardForkInitiation", p.DRepThresholds.HardForkInitiation},
		{"drep.ppNetworkGroup", p.DRepThresholds.PpNetworkGroup},
		{"drep.ppEconomicGroup", p.DRepThresholds.PpEconomicGroup},
		{"drep.ppTechnicalGroup", p.DRepThresholds.PpTechnicalGroup},
		{"drep.ppGovGroup", p.DRepThresholds.PpGovGroup},
		{"drep.treasuryWithdrawal", p.DRepThresholds.TreasuryWithdrawal},
		{"pool.motionNoConfidence", p.PoolThresholds.MotionNoConfidence},
		{"pool.committeeNormal", p.PoolThresholds.CommitteeNormal},
		{"pool.committeeNoConfidence", p.PoolThresholds.CommitteeNoConfidence},
		{"pool.hardForkInitiation", p.PoolThresholds.HardForkInitiation},
		{"pool.ppSecurityGroup", p.PoolThresholds.PpSecurityGroup},
	} {
		if check.rat.Rat == nil {
			return fmt.Errorf("threshold %s is unset", check.name)
		}
		if check.rat.Sign() < 0 ||
			check.rat.Cmp(big.NewRat(1, 1)) > 0 {
			return fmt.Errorf(
				"threshold %s outside [0,1]: %s",
				check.name,
				check.rat.RatString(),
			)
		}
	}
	return nil
}

// drepThreshold returns the DRep threshold for an action type, or nil when
// DReps are not an applicable voting body for it
func (p *Params) drepThreshold(actionType uint8) *big.Rat {
	switch actionType {
	case ActionTypeNoConfidence:
		return p.DRepThresholds.MotionNoConfidence.Rat
	case ActionTypeUpdateCommittee:
		return p.DRepThresholds.CommitteeNormal.Rat
	case ActionTypeNewConstitution:
		return p.DRepThresholds.UpdateToConstitution.Rat
	case ActionTypeHardForkInitiation:
		return p.DRepThresholds.HardForkInitiation.Rat
	case ActionTypeParameterChange:
		// Gov group covers governance-relevant parameter updates, the
		// only kind this engine enacts
		return p.DRepThresholds.PpGovGroup.Rat
	case ActionTypeTreasuryWithdrawal:
		return p.DRepThresholds.TreasuryWithdrawal.Rat
	case ActionTypeInfo:
		// Info actions can never be ratified, only expire
		return nil
	default:
		return nil
	}
}

// poolThreshold returns the SPO threshold for an action type, or nil when
// pools are not an applicable voting body for it
func (p *Params) poolThreshold(actionType uint8) *big.Rat {
	switch actionType {
	case ActionTypeNoConfidence:
		return p.PoolThresholds.MotionNoConfidence.Rat
	case ActionTypeUpdateCommittee:
		return p.PoolThresholds.CommitteeNormal.Rat
	case ActionTypeHardForkInitiation:
		return p.PoolThresholds.HardForkInitiation.Rat
	case ActionTypeParameterChange:
		return p.PoolThresholds.PpSecurityGroup.Rat
	default:
		return nil
	}
}

// committeeThreshold returns the committee threshold for an action type, or
// nil when the committee does not vote on it. The committee never votes on
// its own replacement or on a no-confidence motion.
func (p *Params) committeeThreshold(actionType uint8) *big.Rat {
	switch actionType {
	case ActionTypeNoConfidence, ActionTypeUpdateCommittee, ActionTypeInfo:
		return nil
	default:
		return p.CommitteeThreshold.Rat
	}
}

// applyParamUpdate folds an enacted Conway parameter update into the live
// params. Only governance-relevant fields are tracked here; the rest of the
// update is accepted and ignored.
func (p *Params) applyParamUpdate(u *conway.ConwayProtocolParameterUpdate) {
	if u.GovActionValidityPeriod != nil {
		p.GovActionLifetime = *u.GovActionValidityPeriod
	}
	if u.GovActionDeposit != nil {
		p.GovActionDeposit = *u.GovActionDeposit
	}
	if u.DRepDeposit != nil {
		p.DRepDeposit = *u.DRepDeposit
	}
	if u.DRepInactivityPeriod != nil {
		p.DRepActivity = *u.DRepInactivityPeriod
	}
	if u.CommitteeTermLimit != nil {
		p.CommitteeTermLimit = *u.CommitteeTermLimit
	}
	if u.DRepVotingThresholds != nil {
		p.DRepThresholds = *u.DRepVotingThresholds
	}
	if u.PoolVotingThresholds != nil {
		p.PoolThresholds = *u.PoolVotingThresholds
	}
}
