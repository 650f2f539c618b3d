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

// CommitteeMember is one constitutional committee seat: hot credential and
// term expiry epoch
type CommitteeMember struct {
	ID          uint   `gorm:"primarykey"`
	Credential  []byte `gorm:"uniqueIndex;size:28;not null"`
	ExpiryEpoch uint64 `gorm:"not null"`
}

// TableName returns the table name
func (CommitteeMember) TableName() string {
	return "committee_member"
}

// PoolStake is a stake pool's voting-power snapshot entry
type PoolStake struct {
	ID         uint   `gorm:"primarykey"`
	Credential []byte `gorm:"uniqueIndex;size:28;not null"`
	Stake      uint64 `gorm:"not null"`
}

// TableName returns the table name
func (PoolStake) TableName() string {
	return "pool_stake"
}
