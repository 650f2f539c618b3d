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

// Drep is a registered delegate representative. ExpiryEpoch stores the
// displayed expiry; the dormant-epoch grace on top of it lives in the epoch
// state row.
type Drep struct {
	ID            uint   `gorm:"primarykey"`
	Credential    []byte `gorm:"uniqueIndex;size:28;not null"`
	Stake         uint64 `gorm:"not null"`
	Deposit       uint64 `gorm:"not null"`
	ExpiryEpoch   uint64 `gorm:"not null"`
	ReturnAccount []byte `gorm:"size:29"`
	AnchorURL     string `gorm:"column:anchor_url;size:128"`
	AnchorHash    []byte `gorm:"size:32"`
	HasAnchor     bool   `gorm:"not null"`
}

// TableName returns the table name
func (Drep) TableName() string {
	return "drep"
}
