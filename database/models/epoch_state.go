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

// EpochState is the singleton engine-state row: epoch counters, treasury
// balance, protocol version, constitution anchor, and the governance
// parameters as a CBOR blob
type EpochState struct {
	ID               uint `gorm:"primarykey"`
	Epoch            uint64
	DormantEpochs    uint64
	HadActivity      bool
	TreasuryBalance  uint64
	ProtocolMajor    uint
	ProtocolMinor    uint
	ConstitutionURL  string `gorm:"column:constitution_url;size:128"`
	ConstitutionHash []byte `gorm:"size:32"`
	HasConstitution  bool
	ParamsCbor       []byte
}

// TableName returns the table name
func (EpochState) TableName() string {
	return "epoch_state"
}
