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
	"math/big"
)

// TallyResult is the outcome of evaluating a proposal against the current
// votes and thresholds
type TallyResult int

const (
	// TallyPending means at least one applicable role threshold is not yet
	// met but could still be reached by outstanding voters
	TallyPending TallyResult = iota
	// TallyRatified means every applicable role threshold is met
	TallyRatified
	// TallyRejected means some applicable role can no longer reach its
	// threshold even if every outstanding voter voted yes
	TallyRejected
)

func (r TallyResult) String() string {
	switch r {
	case TallyRatified:
		return "ratified"
	case TallyRejected:
		return "rejected"
	default:
		return "pending"
	}
}

// StakeDistribution supplies voting-power weights at tally time. It is an
// external collaborator: the engine never computes stake itself.
type StakeDistribution interface {
	// DRepStake returns the voting power delegated to a DRep credential
	DRepStake(credential []byte) uint64
	// PoolStake returns the voting power of a stake pool credential
	PoolStake(credential []byte) uint64
	// TotalPoolStake returns the total active pool voting power
	TotalPoolStake() uint64
}

// TallyInput bundles the state a tally consults. All values are snapshots
// owned by the caller for the duration of the call.
type TallyInput struct {
	Params        *Params
	DReps         *DRepRegistry
	Stake         StakeDistribution
	Committee     map[string]uint64
	Epoch         uint64
	DormantEpochs uint64
}

// roleCount aggregates one voting body's weights for a proposal
type roleCount struct {
	total   uint64
	yes     uint64
	no      uint64
	abstain uint64
}

// satisfied reports whether yes votes meet the threshold over the non-
// abstaining weight. An empty electorate satisfies vacuously: roles with no
// live members never block ratification.
func (c roleCount) satisfied(threshold *big.Rat) bool {
	denom := c.total - c.abstain
	if denom == 0 {
		return true
	}
	ratio := new(big.Rat).SetFrac(
		new(big.Int).SetUint64(c.yes),
		new(big.Int).SetUint64(denom),
	)
	return ratio.Cmp(threshold) >= 0
}

// unreachable reports whether the threshold cannot be met even if every
// outstanding voter voted yes
func (c roleCount) unreachable(threshold *big.Rat) bool {
	denom := c.total - c.abstain
	if denom == 0 {
		return false
	}
	maxYes := denom - c.no
	ratio := new(big.Rat).SetFrac(
		new(big.Int).SetUint64(maxYes),
		new(big.Int).SetUint64(denom),
	)
	return ratio.Cmp(threshold) < 0
}

// Tally evaluates a proposal against per-role thresholds using exact
// rational arithmetic. A proposal is ratified once all applicable role
// thresholds are met; roles that do not vote on the action type, or that
// have no live members, do not block ratification. An action type with no
// applicable roles at all (Info) stays pending until it expires.
func Tally(p *Proposal, in TallyInput) TallyResult {
	applicable := 0
	ratified := 0
	for _, role := range []uint8{VoterRoleCC, VoterRoleDRep, VoterRoleSPO} {
		threshold := thresholdForRole(in.Params, role, p.ActionType)
		if threshold == nil {
			continue
		}
		applicable++
		count := countRole(p, role, in)
		if count.unreachable(threshold) {
			return TallyRejected
		}
		if count.satisfied(threshold) {
			ratified++
		}
	}
	if applicable == 0 {
		return TallyPending
	}
	if ratified == applicable {
		return TallyRatified
	}
	return TallyPending
}

func thresholdForRole(params *Params, role, actionType uint8) *big.Rat {
	switch role {
	case VoterRoleCC:
		return params.committeeThreshold(actionType)
	case VoterRoleDRep:
		return params.drepThreshold(actionType)
	case VoterRoleSPO:
		return params.poolThreshold(actionType)
	default:
		return nil
	}
}

// countRole aggregates a role's weighted votes for a proposal. Votes from
// members that are no longer live (expired DReps, ex-committee members) are
// excluded from both the tally and the electorate.
func countRole(p *Proposal, role uint8, in TallyInput) roleCount {
	var c roleCount
	yes, no, abstain := p.Votes(role)
	switch role {
	case VoterRoleCC:
		c.total = uint64(len(in.Committee))
		isMember := func(cred string) bool {
			expiry, ok := in.Committee[cred]
			return ok && in.Epoch <= expiry
		}
		for _, cred := range yes {
			if isMember(cred) {
				c.yes++
			}
		}
		for _, cred := range no {
			if isMember(cred) {
				c.no++
			}
		}
		for _, cred := range abstain {
			if isMember(cred) {
				c.abstain++
			}
		}
	case VoterRoleDRep:
		for _, rec := range in.DReps.Live(in.Epoch, in.DormantEpochs) {
			c.total += in.Stake.DRepStake(rec.Credential)
		}
		isLive := func(cred string) bool {
			return !in.DReps.IsExpired(
				[]byte(cred),
				in.Epoch,
				in.DormantEpochs,
			)
		}
		for _, cred := range yes {
			if isLive(cred) {
				c.yes += in.Stake.DRepStake([]byte(cred))
			}
		}
		for _, cred := range no {
			if isLive(cred) {
				c.no += in.Stake.DRepStake([]byte(cred))
			}
		}
		for _, cred := range abstain {
			if isLive(cred) {
				c.abstain += in.Stake.DRepStake([]byte(cred))
			}
		}
	case VoterRoleSPO:
		c.total = in.Stake.TotalPoolStake()
		for _, cred := range yes {
			c.yes += in.Stake.PoolStake([]byte(cred))
		}
		for _, cred := range no {
			c.no += in.Stake.PoolStake([]byte(cred))
		}
		for _, cred := range abstain {
			c.abstain += in.Stake.PoolStake([]byte(cred))
		}
	}
	return c
}
