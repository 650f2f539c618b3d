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
	"fmt"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
)

// The governance data model comes from gouroboros. Payloads arrive already
// parsed and validated; this package only applies their semantics.
type (
	Action   = lcommon.GovAction
	ActionId = lcommon.GovActionId
	Anchor   = lcommon.GovAnchor
	Voter    = lcommon.Voter
)

// Action type constants, stored as uint8 in both the engine and the database
const (
	ActionTypeParameterChange    uint8 = lcommon.GovActionTypeParameterChange
	ActionTypeHardForkInitiation uint8 = lcommon.GovActionTypeHardForkInitiation
	ActionTypeTreasuryWithdrawal uint8 = lcommon.GovActionTypeTreasuryWithdrawal
	ActionTypeNoConfidence       uint8 = lcommon.GovActionTypeNoConfidence
	ActionTypeUpdateCommittee    uint8 = lcommon.GovActionTypeUpdateCommittee
	ActionTypeNewConstitution    uint8 = lcommon.GovActionTypeNewConstitution
	ActionTypeInfo               uint8 = lcommon.GovActionTypeInfo
)

// VoterRole constants represent the three voting bodies
const (
	VoterRoleCC   uint8 = 0
	VoterRoleDRep uint8 = 1
	VoterRoleSPO  uint8 = 2
)

// Vote constants represent the vote choice on a proposal
const (
	VoteNo      uint8 = lcommon.GovVoteNo
	VoteYes     uint8 = lcommon.GovVoteYes
	VoteAbstain uint8 = lcommon.GovVoteAbstain
)

// actionInfo extracts the action type and parent action ID from a governance
// action. Different action types carry different fields, so this uses type
// switching to handle each case. Returns ErrUnknownAction (wrapped) for
// unrecognized action types.
func actionInfo(
	action Action,
) (actionType uint8, parent *ActionId, err error) {
	switch a := action.(type) {
	case *lcommon.ParameterChangeGovAction:
		actionType = ActionTypeParameterChange
		parent = a.ActionId
	case *lcommon.HardForkInitiationGovAction:
		actionType = ActionTypeHardForkInitiation
		parent = a.ActionId
	case *lcommon.TreasuryWithdrawalGovAction:
		actionType = ActionTypeTreasuryWithdrawal
	case *lcommon.NoConfidenceGovAction:
		actionType = ActionTypeNoConfidence
		parent = a.ActionId
	case *lcommon.UpdateCommitteeGovAction:
		actionType = ActionTypeUpdateCommittee
		parent = a.ActionId
	case *lcommon.NewConstitutionGovAction:
		actionType = ActionTypeNewConstitution
		parent = a.ActionId
	case *lcommon.InfoGovAction:
		actionType = ActionTypeInfo
	default:
		return 0, nil, fmt.Errorf(
			"%w: %T",
			ErrUnknownAction,
			action,
		)
	}
	return actionType, parent, nil
}

// hasLineage returns true for action types whose proposals chain to a parent
// action, forming a per-purpose lineage tree. Only one proposal per lineage
// node may ultimately be enacted.
func hasLineage(actionType uint8) bool {
	switch actionType {
	case ActionTypeParameterChange,
		ActionTypeHardForkInitiation,
		ActionTypeNoConfidence,
		ActionTypeUpdateCommittee,
		ActionTypeNewConstitution:
		return true
	default:
		return false
	}
}

// MapVoterRole maps gouroboros voter type constants to the engine's voter
// roles. CC hot key hash and script hash both map to VoterRoleCC, DRep key
// hash and script hash both map to VoterRoleDRep, and staking pool key hash
// maps to VoterRoleSPO.
func MapVoterRole(voterType uint8) (uint8, error) {
	switch voterType {
	case lcommon.VoterTypeConstitutionalCommitteeHotKeyHash,
		lcommon.VoterTypeConstitutionalCommitteeHotScriptHash:
		return VoterRoleCC, nil
	case lcommon.VoterTypeDRepKeyHash,
		lcommon.VoterTypeDRepScriptHash:
		return VoterRoleDRep, nil
	case lcommon.VoterTypeStakingPoolKeyHash:
		return VoterRoleSPO, nil
	default:
		return 0, fmt.Errorf("unrecognized voter type: %d", voterType)
	}
}
