// Copyright 2025 Sable Systems
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

package repair

import (
	"context"

	"github.com/sablehq/talentdeck/core"
	"github.com/sablehq/talentdeck/storage"
)

const (
	// DefaultBatchSize is the default number of records handed to each batch
	DefaultBatchSize = 100
)

// TalentIterator iterates over all talent records in batches.
type TalentIterator struct {
	repo      storage.TalentRepository
	batchSize int
}

// NewTalentIterator creates a new talent iterator.
// batchSize: number of records per batch (must be > 0)
func NewTalentIterator(repo storage.TalentRepository, batchSize int) *TalentIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &TalentIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// Load fetches the full record set once so callers that need the total
// count up front don't query the repository a second time for iteration.
func (it *TalentIterator) Load(ctx context.Context) ([]*core.TalentRecord, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	return it.repo.GetAllTalents(ctx)
}

// ForEach iterates over all talent records, calling fn for each batch.
// Iteration stops on the first error from fn or when all records are
// processed. Context cancellation is checked between batches.
func (it *TalentIterator) ForEach(ctx context.Context, fn func([]*core.TalentRecord) error) error {
	records, err := it.Load(ctx)
	if err != nil {
		return err
	}
	return it.ForEachLoaded(ctx, records, fn)
}

// ForEachLoaded batches an already loaded record set through fn.
func (it *TalentIterator) ForEachLoaded(ctx context.Context, records []*core.TalentRecord, fn func([]*core.TalentRecord) error) error {
	if len(records) == 0 {
		return nil
	}

	for i := 0; i < len(records); i += it.batchSize {
		end := i + it.batchSize
		if end > len(records) {
			end = len(records)
		}

		if err := fn(records[i:end]); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	return nil
}
