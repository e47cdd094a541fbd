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

package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/sablehq/talentdeck/core"
	"github.com/sablehq/talentdeck/storage"
)

func addTestJob(t *testing.T, repos *MemoryRepositories, recordID core.ID) *core.IngestionJob {
	t.Helper()
	job, err := repos.Jobs.AddJob(context.Background(), &core.IngestionJob{
		RecordId: recordID,
		Input:    "some raw text",
		Modality: core.ModalityText,
	})
	if err != nil {
		t.Fatalf("Failed to add job: %v", err)
	}
	return job
}

func addTestTalent(t *testing.T, repos *MemoryRepositories, name string) *core.TalentRecord {
	t.Helper()
	added, err := repos.Talents.AddTalents(context.Background(), &core.TalentRecord{Name: name})
	if err != nil {
		t.Fatalf("Failed to add talent: %v", err)
	}
	return added[0]
}

func TestAddJobStartsProcessing(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	record := addTestTalent(t, repos, "Ada")
	job := addTestJob(t, repos, record.Id)

	if job.Id == 0 {
		t.Fatal("Expected non-zero job ID")
	}
	if job.State != core.JobStateProcessing {
		t.Fatalf("Expected processing state, got %s", job.State)
	}

	got, err := repos.Jobs.GetJob(context.Background(), job.Id)
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}
	if got.State != core.JobStateProcessing || got.RecordId != record.Id {
		t.Fatalf("Unexpected stored job: %+v", got)
	}
}

func TestCompleteJobCommitsRecordAndState(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()
	record := addTestTalent(t, repos, "Ada")
	job := addTestJob(t, repos, record.Id)

	record.Card = core.Card{"skills": core.SequenceValue(core.ScalarValue("Go"))}
	record.Summary = "Go engineer"
	if err := repos.Jobs.CompleteJob(ctx, job, record); err != nil {
		t.Fatalf("Failed to complete job: %v", err)
	}

	gotJob, err := repos.Jobs.GetJob(ctx, job.Id)
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}
	if gotJob.State != core.JobStateDone {
		t.Fatalf("Expected done state, got %s", gotJob.State)
	}

	gotRecord, err := repos.Talents.GetTalent(ctx, record.Id)
	if err != nil {
		t.Fatalf("Failed to get talent: %v", err)
	}
	if gotRecord.Summary != "Go engineer" {
		t.Fatalf("Expected record mutation committed with job, got %+v", gotRecord)
	}
	if len(gotRecord.Card["skills"].Seq) != 1 {
		t.Fatalf("Expected card committed with job, got %+v", gotRecord.Card)
	}
}

func TestTerminalStatesAreFinal(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()
	record := addTestTalent(t, repos, "Ada")

	done := addTestJob(t, repos, record.Id)
	if err := repos.Jobs.CompleteJob(ctx, done, record); err != nil {
		t.Fatalf("Failed to complete job: %v", err)
	}
	if err := repos.Jobs.FailJob(ctx, done.Id, "too late"); !errors.Is(err, storage.ErrTerminalState) {
		t.Fatalf("Expected ErrTerminalState, got %v", err)
	}
	if err := repos.Jobs.CompleteJob(ctx, done, record); !errors.Is(err, storage.ErrTerminalState) {
		t.Fatalf("Expected ErrTerminalState, got %v", err)
	}

	failed := addTestJob(t, repos, record.Id)
	if err := repos.Jobs.FailJob(ctx, failed.Id, "oracle error"); err != nil {
		t.Fatalf("Failed to fail job: %v", err)
	}
	got, err := repos.Jobs.GetJob(ctx, failed.Id)
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}
	if got.State != core.JobStateFailed || got.RawResult != "oracle error" {
		t.Fatalf("Unexpected failed job: %+v", got)
	}
	if err := repos.Jobs.CompleteJob(ctx, failed, record); !errors.Is(err, storage.ErrTerminalState) {
		t.Fatalf("Expected ErrTerminalState, got %v", err)
	}
}

func TestListJobsByRecordNewestFirst(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()
	record := addTestTalent(t, repos, "Ada")
	other := addTestTalent(t, repos, "Grace")

	first := addTestJob(t, repos, record.Id)
	second := addTestJob(t, repos, record.Id)
	addTestJob(t, repos, other.Id)

	jobs, err := repos.Jobs.ListJobsByRecord(ctx, record.Id)
	if err != nil {
		t.Fatalf("Failed to list jobs: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("Expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].Id != second.Id || jobs[1].Id != first.Id {
		t.Fatalf("Expected newest first, got %d then %d", jobs[0].Id, jobs[1].Id)
	}
}

func TestDeleteJob(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()
	record := addTestTalent(t, repos, "Ada")
	job := addTestJob(t, repos, record.Id)

	if err := repos.Jobs.DeleteJob(ctx, job.Id); err != nil {
		t.Fatalf("Failed to delete job: %v", err)
	}
	if _, err := repos.Jobs.GetJob(ctx, job.Id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	jobs, err := repos.Jobs.ListJobsByRecord(ctx, record.Id)
	if err != nil {
		t.Fatalf("Failed to list jobs: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("Expected empty list after delete, got %d", len(jobs))
	}

	if err := repos.Jobs.DeleteJob(ctx, job.Id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound on double delete, got %v", err)
	}
}

func TestMarkStuckJobsFailed(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()
	record := addTestTalent(t, repos, "Ada")

	stuck := addTestJob(t, repos, record.Id)
	finished := addTestJob(t, repos, record.Id)
	if err := repos.Jobs.CompleteJob(ctx, finished, record); err != nil {
		t.Fatalf("Failed to complete job: %v", err)
	}

	count, err := repos.Jobs.MarkStuckJobsFailed(ctx, "interrupted by restart")
	if err != nil {
		t.Fatalf("Failed to sweep: %v", err)
	}
	if count != 1 {
		t.Fatalf("Expected 1 swept job, got %d", count)
	}

	got, err := repos.Jobs.GetJob(ctx, stuck.Id)
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}
	if got.State != core.JobStateFailed || got.RawResult != "interrupted by restart" {
		t.Fatalf("Unexpected swept job: %+v", got)
	}

	gotDone, err := repos.Jobs.GetJob(ctx, finished.Id)
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}
	if gotDone.State != core.JobStateDone {
		t.Fatalf("Sweep must not touch terminal jobs, got %s", gotDone.State)
	}

	// Idempotent: a second sweep finds nothing.
	count, err = repos.Jobs.MarkStuckJobsFailed(ctx, "interrupted by restart")
	if err != nil {
		t.Fatalf("Failed second sweep: %v", err)
	}
	if count != 0 {
		t.Fatalf("Expected 0 on second sweep, got %d", count)
	}
}

func TestDeleteTalentCascadesJobs(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()
	record := addTestTalent(t, repos, "Ada")
	job := addTestJob(t, repos, record.Id)

	if err := repos.Talents.DeleteTalents(ctx, record.Id); err != nil {
		t.Fatalf("Failed to delete talent: %v", err)
	}
	if _, err := repos.Jobs.GetJob(ctx, job.Id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected job cascade delete, got %v", err)
	}
}
