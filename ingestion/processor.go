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

package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sablehq/talentdeck/ai"
	"github.com/sablehq/talentdeck/core"
	"github.com/sablehq/talentdeck/storage"
)

// processor runs the asynchronous phase of an ingestion job. It owns every
// terminal state transition for the jobs it processes: each code path ends
// in exactly one CompleteJob or FailJob call.
type processor struct {
	talents       storage.TalentRepository
	dimensions    storage.DimensionRepository
	tags          storage.TagRepository
	jobs          storage.JobRepository
	extractor     ai.CardExtractor
	oracleTimeout time.Duration
	monitor       IngestMonitor
	logger        *slog.Logger
}

// processText runs the text modality: full-overwrite merge.
func (p *processor) processText(ctx context.Context, job *core.IngestionJob, text string) {
	p.monitor.Start(job)

	record, dims, err := p.loadState(ctx, job)
	if err != nil {
		p.fail(ctx, job, err)
		return
	}

	octx, cancel := context.WithTimeout(ctx, p.oracleTimeout)
	defer cancel()

	result, err := p.extractor.ExtractFromText(octx, dims, record.Card, text)
	if errors.Is(err, ai.ErrUnavailable) {
		p.completeWithoutResult(ctx, job, record, err)
		return
	}
	if err != nil {
		p.fail(ctx, job, err)
		return
	}
	p.monitor.AfterExtraction(job.Id)

	p.ensureDimensions(ctx, result.NewDimensions)

	// Text merge policy: the oracle saw the prior card and returns a full
	// replacement, so its card wins wholesale.
	record.Card.Overwrite(result.Card)
	p.restoreMissingKeys(ctx, record)
	if result.Summary != "" {
		record.Summary = result.Summary
	}

	if err := p.resolveTags(ctx, record, result.SuggestedTags); err != nil {
		p.fail(ctx, job, err)
		return
	}

	p.complete(ctx, job, record, result)
}

// processDocument runs the document modality: additive merge plus
// fill-blanks for contact fields.
func (p *processor) processDocument(ctx context.Context, job *core.IngestionJob, pages [][]byte, fallbackText string) {
	p.monitor.Start(job)

	record, dims, err := p.loadState(ctx, job)
	if err != nil {
		p.fail(ctx, job, err)
		return
	}

	octx, cancel := context.WithTimeout(ctx, p.oracleTimeout)
	defer cancel()

	result, err := p.extractor.ExtractFromDocument(octx, dims, pages, fallbackText)
	if errors.Is(err, ai.ErrUnavailable) {
		p.completeWithoutResult(ctx, job, record, err)
		return
	}
	if err != nil {
		p.fail(ctx, job, err)
		return
	}
	p.monitor.AfterExtraction(job.Id)

	p.ensureDimensions(ctx, result.NewDimensions)

	// Document merge policy: a single document pass is less authoritative
	// than an explicit statement, so empty values never clobber prior ones.
	if record.Card == nil {
		record.Card = core.Card{}
	}
	record.Card.MergeAdditive(result.Card)
	p.restoreMissingKeys(ctx, record)
	fillBlankContact(record, result.Contact)
	if result.Summary != "" {
		record.Summary = result.Summary
	}

	if err := p.resolveTags(ctx, record, result.SuggestedTags); err != nil {
		p.fail(ctx, job, err)
		return
	}

	p.complete(ctx, job, record, result)
}

// loadState fetches the job's record and the current dimension registry.
func (p *processor) loadState(ctx context.Context, job *core.IngestionJob) (*core.TalentRecord, []*core.Dimension, error) {
	record, err := p.talents.GetTalent(ctx, job.RecordId)
	if err != nil {
		return nil, nil, fmt.Errorf("loading record %d: %w", job.RecordId, err)
	}
	dims, err := p.dimensions.ListDimensions(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("loading dimensions: %w", err)
	}
	return record, dims, nil
}

// ensureDimensions registers every dimension the oracle proposed. Failures
// here are absorbed: a dimension that couldn't be created just means the
// card keeps the value under an unregistered key until a later attempt.
func (p *processor) ensureDimensions(ctx context.Context, proposed []ai.ProposedDimension) {
	for _, dim := range proposed {
		_, created, err := p.dimensions.EnsureDimension(ctx, dim.Key, dim.Label, dim.SchemaHint)
		if err != nil {
			p.logger.Warn("failed to ensure proposed dimension", "key", dim.Key, "err", err)
			continue
		}
		p.monitor.DimensionEnsured(dim.Key, created)
	}
}

// restoreMissingKeys re-establishes the card invariant after a merge: every
// registered dimension has an entry. An oracle that dropped a key gets it
// refilled with the structural default.
func (p *processor) restoreMissingKeys(ctx context.Context, record *core.TalentRecord) {
	dims, err := p.dimensions.ListDimensions(ctx)
	if err != nil {
		p.logger.Warn("failed to reload dimensions after merge", "err", err)
		return
	}
	if record.Card == nil {
		record.Card = core.Card{}
	}
	for _, dim := range dims {
		if _, ok := record.Card[dim.Key]; !ok {
			record.Card[dim.Key] = core.EmptyDefault(dim.SchemaHint)
		}
	}
}

// resolveTags converts suggested tag names to tag associations on the
// record. Additive only: existing tags are never removed.
func (p *processor) resolveTags(ctx context.Context, record *core.TalentRecord, names []string) error {
	for _, name := range names {
		tag, err := p.tags.EnsureTag(ctx, name)
		if err != nil {
			return fmt.Errorf("resolving tag %q: %w", name, err)
		}
		p.monitor.TagResolved(tag.Name, tag.Id)
		if !record.HasTag(tag.Id) {
			record.Tags = append(record.Tags, tag.Id)
		}
	}
	return nil
}

// complete commits the merged record and the done state together, storing
// the raw oracle result for audit.
func (p *processor) complete(ctx context.Context, job *core.IngestionJob, record *core.TalentRecord, result any) {
	if raw, err := json.Marshal(result); err == nil {
		job.RawResult = string(raw)
	}

	if err := p.jobs.CompleteJob(ctx, job, record); err != nil {
		p.fail(ctx, job, fmt.Errorf("committing result: %w", err))
		return
	}
	p.monitor.Done(job.Id)
	p.logger.Info("ingestion job done", "job", job.Id, "record", record.Id)
}

// completeWithoutResult marks the job done with no record mutation. An
// unconfigured oracle is a no-op, not an error state.
func (p *processor) completeWithoutResult(ctx context.Context, job *core.IngestionJob, record *core.TalentRecord, cause error) {
	p.monitor.OracleSkipped(job.Id)
	p.logger.Warn("oracle not configured, completing job without result", "job", job.Id, "err", cause)

	if err := p.jobs.CompleteJob(ctx, job, record); err != nil {
		p.fail(ctx, job, fmt.Errorf("committing no-op result: %w", err))
		return
	}
	p.monitor.Done(job.Id)
}

// fail commits the failed state with the error text. Errors from the commit
// itself can only be logged at this point.
func (p *processor) fail(ctx context.Context, job *core.IngestionJob, cause error) {
	p.logger.Error("ingestion job failed", "job", job.Id, "err", cause)
	if err := p.jobs.FailJob(ctx, job.Id, cause.Error()); err != nil {
		p.logger.Error("failed to mark job failed", "job", job.Id, "err", err)
		return
	}
	p.monitor.Failed(job.Id, cause)
}

// fillBlankContact copies extracted identity fields onto the record, but
// only where the record's current value is empty. Confirmed data is never
// clobbered by document extraction.
func fillBlankContact(record *core.TalentRecord, contact core.ContactInfo) {
	if record.Name == "" && contact.Name != "" {
		record.Name = contact.Name
	}
	if record.Email == "" && contact.Email != "" {
		record.Email = contact.Email
	}
	if record.Phone == "" && contact.Phone != "" {
		record.Phone = contact.Phone
	}
	if record.Role == "" && contact.Role != "" {
		record.Role = contact.Role
	}
	if record.Department == "" && contact.Department != "" {
		record.Department = contact.Department
	}
}
