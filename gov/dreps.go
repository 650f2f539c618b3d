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
	"bytes"
	"fmt"
	"slices"
)

// DRepRecord tracks a registered delegated representative.
//
// ExpiryEpoch is the displayed expiry: it changes only when the DRep shows
// activity (or when an accumulated dormant stretch is folded in). The actual
// effective expiry is always ExpiryEpoch plus the current dormant-epoch
// count, so it silently drifts forward during dormant epochs without the
// record changing.
type DRepRecord struct {
	Anchor        *Anchor
	Credential    []byte
	ReturnAccount []byte
	Stake         uint64
	Deposit       uint64
	ExpiryEpoch   uint64
}

// DRepRegistry holds the registered DReps keyed by credential
type DRepRegistry struct {
	recs map[string]*DRepRecord
}

func NewDRepRegistry() *DRepRegistry {
	return &DRepRegistry{
		recs: make(map[string]*DRepRecord),
	}
}

// Register adds a DRep with liveness through the configured activity period.
// Registration itself earns no dormant-epoch bonus; that only applies to
// recorded activity.
func (r *DRepRegistry) Register(
	credential []byte,
	stake uint64,
	deposit uint64,
	returnAccount []byte,
	anchor *Anchor,
	currentEpoch uint64,
	params *Params,
) error {
	key := string(credential)
	if _, ok := r.recs[key]; ok {
		return fmt.Errorf("%w: %x", ErrDRepExists, credential)
	}
	r.recs[key] = &DRepRecord{
		Credential:    bytes.Clone(credential),
		Stake:         stake,
		Deposit:       deposit,
		ReturnAccount: bytes.Clone(returnAccount),
		Anchor:        anchor,
		ExpiryEpoch:   currentEpoch + params.DRepActivity,
	}
	return nil
}

// RecordActivity refreshes a DRep's displayed expiry after a vote or an
// update certificate. The refreshed expiry bakes in the current dormant
// count, and never moves backward.
func (r *DRepRegistry) RecordActivity(
	credential []byte,
	currentEpoch uint64,
	dormantEpochs uint64,
	params *Params,
) error {
	rec, ok := r.recs[string(credential)]
	if !ok {
		return fmt.Errorf("%w: %x", ErrDRepNotFound, credential)
	}
	rec.ExpiryEpoch = max(
		rec.ExpiryEpoch,
		currentEpoch+params.DRepActivity+dormantEpochs,
	)
	return nil
}

// IsExpired reports whether a DRep's effective expiry has passed. The
// effective expiry is the displayed expiry inflated by the current dormant
// count. Unregistered credentials are expired by definition.
func (r *DRepRegistry) IsExpired(
	credential []byte,
	currentEpoch uint64,
	dormantEpochs uint64,
) bool {
	rec, ok := r.recs[string(credential)]
	if !ok {
		return true
	}
	return currentEpoch > rec.ExpiryEpoch+dormantEpochs
}

// Unregister deletes a DRep record, returning it so the caller can refund
// the held deposit. Stake credential unregistration is independent and
// unaffected.
func (r *DRepRegistry) Unregister(credential []byte) (*DRepRecord, error) {
	key := string(credential)
	rec, ok := r.recs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %x", ErrDRepNotFound, credential)
	}
	delete(r.recs, key)
	return rec, nil
}

// Get returns a DRep record by credential
func (r *DRepRegistry) Get(credential []byte) (*DRepRecord, bool) {
	rec, ok := r.recs[string(credential)]
	return rec, ok
}

// SetStake replaces a DRep's registered stake weight
func (r *DRepRegistry) SetStake(credential []byte, stake uint64) error {
	rec, ok := r.recs[string(credential)]
	if !ok {
		return fmt.Errorf("%w: %x", ErrDRepNotFound, credential)
	}
	rec.Stake = stake
	return nil
}

// All returns every record ordered by credential for deterministic
// iteration
func (r *DRepRegistry) All() []*DRepRecord {
	ret := make([]*DRepRecord, 0, len(r.recs))
	for _, rec := range r.recs {
		ret = append(ret, rec)
	}
	slices.SortFunc(ret, func(a, b *DRepRecord) int {
		return bytes.Compare(a.Credential, b.Credential)
	})
	return ret
}

// Live returns the records whose effective expiry has not passed
func (r *DRepRegistry) Live(
	currentEpoch uint64,
	dormantEpochs uint64,
) []*DRepRecord {
	var ret []*DRepRecord
	for _, rec := range r.All() {
		if currentEpoch <= rec.ExpiryEpoch+dormantEpochs {
			ret = append(ret, rec)
		}
	}
	return ret
}

// extendAll folds an accumulated dormant stretch into every displayed
// expiry, immediately before the dormant counter resets
func (r *DRepRegistry) extendAll(epochs uint64) {
	for _, rec := range r.recs {
		rec.ExpiryEpoch += epochs
	}
}

// Len returns the number of registered DReps
func (r *DRepRegistry) Len() int {
	return len(r.recs)
}
