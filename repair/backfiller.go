package repair

import (
	"context"
	"fmt"
	"time"

	"github.com/sablehq/talentdeck/core"
	"github.com/sablehq/talentdeck/storage"
)

// CardBackfiller fills missing dimension keys for batches of talent records.
type CardBackfiller struct {
	repo           storage.TalentRepository
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewCardBackfiller creates a new card backfiller.
// maxRetries: maximum number of retry attempts for storage writes
// retryBaseDelay: base delay for exponential backoff
func NewCardBackfiller(repo storage.TalentRepository, maxRetries int, retryBaseDelay time.Duration) *CardBackfiller {
	return &CardBackfiller{
		repo:           repo,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process fills the structural default for every dimension key absent from
// a record's card, writing back only the records that actually changed.
// Returns the number of records repaired.
func (b *CardBackfiller) Process(ctx context.Context, records []*core.TalentRecord, dimensions []*core.Dimension) (int, error) {
	if len(records) == 0 || len(dimensions) == 0 {
		return 0, nil
	}

	var changed []*core.TalentRecord
	for _, record := range records {
		if record.Card == nil {
			record.Card = core.Card{}
		}

		repaired := false
		for _, dim := range dimensions {
			if _, ok := record.Card[dim.Key]; ok {
				continue
			}
			record.Card[dim.Key] = core.EmptyDefault(dim.SchemaHint)
			repaired = true
		}
		if repaired {
			changed = append(changed, record)
		}
	}

	if len(changed) == 0 {
		return 0, nil
	}

	err := RetryWithBackoff(ctx, func() error {
		_, err := b.repo.UpdateTalents(ctx, changed...)
		return err
	}, b.maxRetries, b.retryBaseDelay)
	if err != nil {
		return 0, fmt.Errorf("failed to update records after %d attempts: %w", b.maxRetries, err)
	}

	return len(changed), nil
}
