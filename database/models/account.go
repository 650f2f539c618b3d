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

package models

// RewardAccount is a registered reward account and its accumulated balance
// from deposit refunds and treasury withdrawals
type RewardAccount struct {
	ID         uint   `gorm:"primarykey"`
	Credential []byte `gorm:"uniqueIndex;size:29;not null"`
	Balance    uint64 `gorm:"not null"`
}

// TableName returns the table name
func (RewardAccount) TableName() string {
	return "reward_account"
}
