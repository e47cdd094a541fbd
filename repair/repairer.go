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
	"fmt"
	"io"
	"time"

	"github.com/sablehq/talentdeck/core"
	"github.com/sablehq/talentdeck/storage"
)

// Config holds configuration for the repair operation.
type Config struct {
	// BatchSize is the number of records to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of records)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for failed writes
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// CardRepairer orchestrates restoring the card invariant over all talent
// records in a database.
type CardRepairer struct {
	talents    storage.TalentRepository
	dimensions storage.DimensionRepository
	config     *Config
	progress   io.Writer
	backfiller *CardBackfiller
	iterator   *TalentIterator
}

// NewCardRepairer creates a new card repairer.
// progress: where to write progress output (typically os.Stderr)
func NewCardRepairer(talents storage.TalentRepository, dimensions storage.DimensionRepository, config *Config, progress io.Writer) *CardRepairer {
	if config == nil {
		config = DefaultConfig()
	}

	return &CardRepairer{
		talents:    talents,
		dimensions: dimensions,
		config:     config,
		progress:   progress,
		backfiller: NewCardBackfiller(talents, config.MaxRetries, config.RetryDelay),
		iterator:   NewTalentIterator(talents, config.BatchSize),
	}
}

// Run executes the repair operation. Every talent record missing a key for
// a registered dimension gets the structural default filled in. Progress is
// reported to the configured writer. Returns the number of repaired records.
func (r *CardRepairer) Run(ctx context.Context) (int, error) {
	dims, err := r.dimensions.ListDimensions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load dimensions: %w", err)
	}
	if len(dims) == 0 {
		fmt.Fprintf(r.progress, "No dimensions registered, nothing to repair\n")
		return 0, nil
	}

	// Loaded once, shared between the count and the batching below.
	all, err := r.iterator.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to query records: %w", err)
	}

	total := len(all)
	if total == 0 {
		fmt.Fprintf(r.progress, "No records found in database (0 records)\n")
		return 0, nil
	}

	fmt.Fprintf(r.progress, "Checking %d records against %d dimensions (batch size: %d)\n",
		total, len(dims), r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	repaired := 0
	err = r.iterator.ForEachLoaded(ctx, all, func(records []*core.TalentRecord) error {
		n, err := r.backfiller.Process(ctx, records, dims)
		if err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		repaired += n
		tracker.Increment(len(records))
		return nil
	})
	if err != nil {
		return repaired, err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Repair complete. Checked %d records, repaired %d in %v\n",
		total, repaired, elapsed.Round(time.Second))

	return repaired, nil
}
