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

import "errors"

// Validation errors are returned synchronously at submission or vote time and
// leave ledger state unchanged.
var (
	ErrInsufficientDeposit = errors.New(
		"deposit below minimum governance action deposit",
	)
	ErrUnknownAction     = errors.New("unrecognized governance action type")
	ErrProposalNotFound  = errors.New("governance proposal not found")
	ErrProposalExists    = errors.New("governance proposal already exists")
	ErrProposalNotActive = errors.New("governance proposal is not active")
	ErrUnknownParent     = errors.New("unknown parent governance action")
	ErrDuplicateVote     = errors.New("vote already cast for proposal")
	ErrDRepNotFound      = errors.New("drep not registered")
	ErrDRepExists        = errors.New("drep already registered")
)

// ErrInsufficientFunds is returned when a treasury withdrawal exceeds the
// current balance. During enactment this is escalated to a tick failure.
var ErrInsufficientFunds = errors.New("insufficient treasury funds")

// ErrCoinOverflow indicates 64-bit coin arithmetic would wrap. This is an
// invariant breach upstream, not a recoverable user error: tick processing
// halts rather than clamping.
var ErrCoinOverflow = errors.New("coin amount overflow")
