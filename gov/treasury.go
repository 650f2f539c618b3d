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
	"sort"
)

// Treasury is the single mutable treasury balance. All operations are exact
// 64-bit coin arithmetic; overflow is an invariant breach, never clamped.
type Treasury struct {
	balance uint64
}

func NewTreasury(balance uint64) *Treasury {
	return &Treasury{balance: balance}
}

// Balance returns the current treasury balance
func (t *Treasury) Balance() uint64 {
	return t.balance
}

// Donate increases the treasury balance
func (t *Treasury) Donate(amount uint64) error {
	return t.credit(amount)
}

// Withdraw decreases the treasury balance, failing without mutation when the
// balance is insufficient
func (t *Treasury) Withdraw(amount uint64) error {
	if amount > t.balance {
		return fmt.Errorf(
			"%w: %d > %d",
			ErrInsufficientFunds,
			amount,
			t.balance,
		)
	}
	t.balance -= amount
	return nil
}

// ReclaimDeposit returns an unclaimable deposit to the treasury
func (t *Treasury) ReclaimDeposit(amount uint64) error {
	return t.credit(amount)
}

func (t *Treasury) credit(amount uint64) error {
	if t.balance+amount < t.balance {
		return fmt.Errorf(
			"%w: %d + %d",
			ErrCoinOverflow,
			t.balance,
			amount,
		)
	}
	t.balance += amount
	return nil
}

// RewardAccounts tracks the registration state and reward balance of stake
// credentials. Deposit refunds and treasury withdrawals destined for an
// unregistered account are redirected to the treasury at enactment time.
type RewardAccounts struct {
	accounts map[string]uint64
}

func NewRewardAccounts() *RewardAccounts {
	return &RewardAccounts{
		accounts: make(map[string]uint64),
	}
}

// Register marks a reward account as registered with a zero balance. A
// re-registration of an existing account is a no-op.
func (a *RewardAccounts) Register(account []byte) {
	key := string(account)
	if _, ok := a.accounts[key]; !ok {
		a.accounts[key] = 0
	}
}

// Deregister removes a reward account. Any balance it held is forfeit;
// the caller is responsible for settling it beforehand if required.
func (a *RewardAccounts) Deregister(account []byte) {
	delete(a.accounts, string(account))
}

// IsRegistered reports whether the account is currently registered
func (a *RewardAccounts) IsRegistered(account []byte) bool {
	_, ok := a.accounts[string(account)]
	return ok
}

// Credit adds to a registered account's reward balance
func (a *RewardAccounts) Credit(account []byte, amount uint64) error {
	key := string(account)
	balance, ok := a.accounts[key]
	if !ok {
		return fmt.Errorf("unregistered reward account: %x", account)
	}
	if balance+amount < balance {
		return fmt.Errorf(
			"%w: %d + %d",
			ErrCoinOverflow,
			balance,
			amount,
		)
	}
	a.accounts[key] = balance + amount
	return nil
}

// Balance returns the reward balance of an account (zero if unregistered)
func (a *RewardAccounts) Balance(account []byte) uint64 {
	return a.accounts[string(account)]
}

// All returns the registered accounts and balances in key order
func (a *RewardAccounts) All() ([][]byte, []uint64) {
	keys := make([]string, 0, len(a.accounts))
	for k := range a.accounts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	accounts := make([][]byte, 0, len(keys))
	balances := make([]uint64, 0, len(keys))
	for _, k := range keys {
		accounts = append(accounts, []byte(k))
		balances = append(balances, a.accounts[k])
	}
	return accounts, balances
}
