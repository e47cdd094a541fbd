package ingestion

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sablehq/talentdeck/ai"
	"github.com/sablehq/talentdeck/ai/mock"
	"github.com/sablehq/talentdeck/ai/openai"
	"github.com/sablehq/talentdeck/core"
	"github.com/sablehq/talentdeck/storage"
	"github.com/sablehq/talentdeck/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestPipeline(t *testing.T, extractor ai.CardExtractor) (*Pipeline, *badger.MemoryRepositories) {
	t.Helper()

	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	pipeline, err := NewPipeline(repos.Talents, repos.Dimensions, repos.Tags, repos.Jobs, extractor)
	require.NoError(t, err)
	t.Cleanup(pipeline.Release)

	return pipeline, repos
}

func addRecord(t *testing.T, repos *badger.MemoryRepositories, record *core.TalentRecord) *core.TalentRecord {
	t.Helper()
	added, err := repos.Talents.AddTalents(context.Background(), record)
	require.NoError(t, err)
	return added[0]
}

func waitForTerminal(t *testing.T, pipeline *Pipeline, jobID core.ID) *core.IngestionJob {
	t.Helper()

	var job *core.IngestionJob
	require.Eventually(t, func() bool {
		var err error
		job, err = pipeline.JobStatus(context.Background(), jobID)
		return err == nil && job.State.Terminal()
	}, 5*time.Second, 10*time.Millisecond)
	return job
}

func TestNewPipeline_RequiresDependencies(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	extractor := mock.NewMockCardExtractor()

	_, err = NewPipeline(nil, repos.Dimensions, repos.Tags, repos.Jobs, extractor)
	assert.ErrorIs(t, err, ErrTalentRepositoryRequired)

	_, err = NewPipeline(repos.Talents, nil, repos.Tags, repos.Jobs, extractor)
	assert.ErrorIs(t, err, ErrDimensionRepositoryRequired)

	_, err = NewPipeline(repos.Talents, repos.Dimensions, nil, repos.Jobs, extractor)
	assert.ErrorIs(t, err, ErrTagRepositoryRequired)

	_, err = NewPipeline(repos.Talents, repos.Dimensions, repos.Tags, nil, extractor)
	assert.ErrorIs(t, err, ErrJobRepositoryRequired)

	_, err = NewPipeline(repos.Talents, repos.Dimensions, repos.Tags, repos.Jobs, nil)
	assert.ErrorIs(t, err, ErrExtractorRequired)
}

func TestSubmitText_ValidationErrors(t *testing.T) {
	pipeline, repos := setupTestPipeline(t, mock.NewMockCardExtractor())
	ctx := context.Background()

	_, err := pipeline.SubmitText(ctx, 1, "   ")
	assert.ErrorIs(t, err, core.ErrEmptyInput)

	_, err = pipeline.SubmitText(ctx, 9999, "some text")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	record := addRecord(t, repos, &core.TalentRecord{Name: "Ada"})
	job, err := pipeline.SubmitText(ctx, record.Id, "Expert in compilers.")
	require.NoError(t, err)
	assert.NotZero(t, job.Id)
	assert.Equal(t, core.JobStateProcessing, job.State)
}

func TestSubmitDocument_ValidationErrors(t *testing.T) {
	pipeline, repos := setupTestPipeline(t, mock.NewMockCardExtractor())
	ctx := context.Background()

	record := addRecord(t, repos, &core.TalentRecord{Name: "Ada"})

	_, err := pipeline.SubmitDocument(ctx, record.Id, nil, "")
	assert.ErrorIs(t, err, core.ErrEmptyInput)

	_, err = pipeline.SubmitDocument(ctx, 9999, [][]byte{{0x1}}, "")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTextIngestion_EndToEnd(t *testing.T) {
	extractor := mock.NewMockCardExtractor()
	extractor.ExtractFromTextFunc = func(ctx context.Context, dims []*core.Dimension, card core.Card, text string) (*ai.TextExtraction, error) {
		return &ai.TextExtraction{
			Card: core.Card{
				"skills": core.SequenceValue(core.ScalarValue("Go"), core.ScalarValue("distributed systems")),
			},
			Summary:       "Go/distributed systems engineer",
			SuggestedTags: []string{"Go"},
		}, nil
	}

	pipeline, repos := setupTestPipeline(t, extractor)
	ctx := context.Background()

	_, _, err := repos.Dimensions.EnsureDimension(ctx, "skills", "Skills", `{"type": "array"}`)
	require.NoError(t, err)

	record := addRecord(t, repos, &core.TalentRecord{Name: "R1"})
	require.Equal(t, core.KindSequence, record.Card["skills"].Kind)

	job, err := pipeline.SubmitText(ctx, record.Id, "Expert in Go and distributed systems.")
	require.NoError(t, err)

	final := waitForTerminal(t, pipeline, job.Id)
	require.Equal(t, core.JobStateDone, final.State)
	assert.NotEmpty(t, final.RawResult)

	updated, err := repos.Talents.GetTalent(ctx, record.Id)
	require.NoError(t, err)

	skills := updated.Card["skills"]
	require.Equal(t, core.KindSequence, skills.Kind)
	require.Len(t, skills.Seq, 2)
	assert.Equal(t, "Go", skills.Seq[0].Scalar)
	assert.Equal(t, "distributed systems", skills.Seq[1].Scalar)
	assert.Equal(t, "Go/distributed systems engineer", updated.Summary)

	tag, err := repos.Tags.FindTagByName(ctx, "Go")
	require.NoError(t, err)
	assert.True(t, updated.HasTag(tag.Id))
}

func TestTextIngestion_OverwriteMerge(t *testing.T) {
	extractor := mock.NewMockCardExtractor()
	extractor.ExtractFromTextFunc = func(ctx context.Context, dims []*core.Dimension, card core.Card, text string) (*ai.TextExtraction, error) {
		// Full replacement card that blanks a previously set key
		return &ai.TextExtraction{
			Card: core.Card{
				"strengths": core.ScalarValue(""),
				"notes":     core.ScalarValue("prefers remote"),
			},
		}, nil
	}

	pipeline, repos := setupTestPipeline(t, extractor)
	ctx := context.Background()

	_, _, err := repos.Dimensions.EnsureDimension(ctx, "strengths", "Strengths", `""`)
	require.NoError(t, err)
	_, _, err = repos.Dimensions.EnsureDimension(ctx, "notes", "Notes", `""`)
	require.NoError(t, err)

	record := addRecord(t, repos, &core.TalentRecord{
		Name: "Ada",
		Card: core.Card{"strengths": core.ScalarValue("rigor")},
	})

	job, err := pipeline.SubmitText(ctx, record.Id, "update")
	require.NoError(t, err)
	final := waitForTerminal(t, pipeline, job.Id)
	require.Equal(t, core.JobStateDone, final.State)

	updated, err := repos.Talents.GetTalent(ctx, record.Id)
	require.NoError(t, err)

	// Overwrite merge: the oracle's empty value wins
	assert.Equal(t, "", updated.Card["strengths"].Scalar)
	assert.Equal(t, "prefers remote", updated.Card["notes"].Scalar)
}

func TestTextIngestion_ProposedDimensionIsRegistered(t *testing.T) {
	extractor := mock.NewMockCardExtractor()
	extractor.ExtractFromTextFunc = func(ctx context.Context, dims []*core.Dimension, card core.Card, text string) (*ai.TextExtraction, error) {
		return &ai.TextExtraction{
			Card: core.Card{
				"open_source": core.SequenceValue(core.ScalarValue("badger")),
			},
			NewDimensions: []ai.ProposedDimension{
				{Key: "open_source", Label: "Open Source", SchemaHint: `{"type": "array"}`},
			},
		}, nil
	}

	pipeline, repos := setupTestPipeline(t, extractor)
	ctx := context.Background()

	bystander := addRecord(t, repos, &core.TalentRecord{Name: "Grace"})
	record := addRecord(t, repos, &core.TalentRecord{Name: "Ada"})

	job, err := pipeline.SubmitText(ctx, record.Id, "maintains badger")
	require.NoError(t, err)
	final := waitForTerminal(t, pipeline, job.Id)
	require.Equal(t, core.JobStateDone, final.State)

	dims, err := repos.Dimensions.ListDimensions(ctx)
	require.NoError(t, err)
	require.Len(t, dims, 1)
	assert.Equal(t, "open_source", dims[0].Key)

	// Backfill reached the record that wasn't part of the job
	other, err := repos.Talents.GetTalent(ctx, bystander.Id)
	require.NoError(t, err)
	value, ok := other.Card["open_source"]
	require.True(t, ok)
	assert.Equal(t, core.KindSequence, value.Kind)

	updated, err := repos.Talents.GetTalent(ctx, record.Id)
	require.NoError(t, err)
	require.Len(t, updated.Card["open_source"].Seq, 1)
}

func TestTextIngestion_OracleErrorFailsJob(t *testing.T) {
	extractor := mock.NewMockCardExtractor()
	extractor.ExtractFromTextFunc = func(ctx context.Context, dims []*core.Dimension, card core.Card, text string) (*ai.TextExtraction, error) {
		return nil, errors.New("parse failure")
	}

	pipeline, repos := setupTestPipeline(t, extractor)
	ctx := context.Background()

	record := addRecord(t, repos, &core.TalentRecord{
		Name:    "Ada",
		Summary: "untouched",
	})

	job, err := pipeline.SubmitText(ctx, record.Id, "some text")
	require.NoError(t, err)

	final := waitForTerminal(t, pipeline, job.Id)
	assert.Equal(t, core.JobStateFailed, final.State)
	assert.Contains(t, final.RawResult, "parse failure")

	// The record mutation never committed
	unchanged, err := repos.Talents.GetTalent(ctx, record.Id)
	require.NoError(t, err)
	assert.Equal(t, "untouched", unchanged.Summary)
}

func TestTextIngestion_OracleUnavailableCompletesAsNoop(t *testing.T) {
	extractor := mock.NewMockCardExtractor()
	extractor.ExtractFromTextFunc = func(ctx context.Context, dims []*core.Dimension, card core.Card, text string) (*ai.TextExtraction, error) {
		return nil, ai.ErrUnavailable
	}

	pipeline, repos := setupTestPipeline(t, extractor)
	ctx := context.Background()

	record := addRecord(t, repos, &core.TalentRecord{
		Name:    "Ada",
		Summary: "untouched",
	})

	job, err := pipeline.SubmitText(ctx, record.Id, "some text")
	require.NoError(t, err)

	final := waitForTerminal(t, pipeline, job.Id)
	assert.Equal(t, core.JobStateDone, final.State)

	unchanged, err := repos.Talents.GetTalent(ctx, record.Id)
	require.NoError(t, err)
	assert.Equal(t, "untouched", unchanged.Summary)
}

func TestTextIngestion_OracleTransportFailureFailsJob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	extractor, err := openai.NewCardExtractor(ai.NewConfig(ai.WithHost(server.URL)))
	require.NoError(t, err)

	pipeline, repos := setupTestPipeline(t, extractor)
	ctx := context.Background()

	record := addRecord(t, repos, &core.TalentRecord{
		Name:    "Ada",
		Summary: "untouched",
	})

	job, err := pipeline.SubmitText(ctx, record.Id, "some text")
	require.NoError(t, err)

	final := waitForTerminal(t, pipeline, job.Id)
	assert.Equal(t, core.JobStateFailed, final.State)
	assert.NotEmpty(t, final.RawResult)

	unchanged, err := repos.Talents.GetTalent(ctx, record.Id)
	require.NoError(t, err)
	assert.Equal(t, "untouched", unchanged.Summary)
}

func TestTextIngestion_OracleTimeoutFailsJob(t *testing.T) {
	// The oracle never answers; the pipeline's call deadline must fire
	// and the job must end failed, not done.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server watches for client disconnect;
		// otherwise r.Context() is never cancelled and Close hangs.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	t.Cleanup(server.Close)

	extractor, err := openai.NewCardExtractor(ai.NewConfig(ai.WithHost(server.URL)))
	require.NoError(t, err)

	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	pipeline, err := NewPipeline(repos.Talents, repos.Dimensions, repos.Tags, repos.Jobs, extractor,
		WithOracleTimeout(100*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(pipeline.Release)

	ctx := context.Background()
	record := addRecord(t, repos, &core.TalentRecord{Name: "Ada"})

	job, err := pipeline.SubmitText(ctx, record.Id, "some text")
	require.NoError(t, err)

	final := waitForTerminal(t, pipeline, job.Id)
	assert.Equal(t, core.JobStateFailed, final.State)
	assert.NotEmpty(t, final.RawResult)
}

func TestDocumentIngestion_AdditiveMergeAndContactFill(t *testing.T) {
	extractor := mock.NewMockCardExtractor()
	extractor.ExtractFromDocumentFunc = func(ctx context.Context, dims []*core.Dimension, pages [][]byte, fallbackText string) (*ai.DocumentExtraction, error) {
		return &ai.DocumentExtraction{
			Contact: core.ContactInfo{
				Name:  "Should Not Replace",
				Email: "ada@example.com",
				Role:  "Engineer",
			},
			Card: core.Card{
				"strengths": core.ScalarValue(""),
				"notes":     core.ScalarValue("from CV"),
			},
			Summary: "CV summary",
		}, nil
	}

	pipeline, repos := setupTestPipeline(t, extractor)
	ctx := context.Background()

	_, _, err := repos.Dimensions.EnsureDimension(ctx, "strengths", "Strengths", `""`)
	require.NoError(t, err)
	_, _, err = repos.Dimensions.EnsureDimension(ctx, "notes", "Notes", `""`)
	require.NoError(t, err)

	record := addRecord(t, repos, &core.TalentRecord{
		Name: "Ada",
		Card: core.Card{"strengths": core.ScalarValue("rigor")},
	})

	job, err := pipeline.SubmitDocument(ctx, record.Id, [][]byte{{0x89, 0x50}}, "page text")
	require.NoError(t, err)
	final := waitForTerminal(t, pipeline, job.Id)
	require.Equal(t, core.JobStateDone, final.State)

	updated, err := repos.Talents.GetTalent(ctx, record.Id)
	require.NoError(t, err)

	// Additive merge: empty values keep the prior state
	assert.Equal(t, "rigor", updated.Card["strengths"].Scalar)
	assert.Equal(t, "from CV", updated.Card["notes"].Scalar)

	// Fill-blanks: name was set and survives, email was blank and fills
	assert.Equal(t, "Ada", updated.Name)
	assert.Equal(t, "ada@example.com", updated.Email)
	assert.Equal(t, "Engineer", updated.Role)
	assert.Equal(t, "CV summary", updated.Summary)
}

func TestRecoverySweepRunsAtStartup(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	ctx := context.Background()
	added, err := repos.Talents.AddTalents(ctx, &core.TalentRecord{Name: "Ada"})
	require.NoError(t, err)

	// A job a previous process left behind
	stuck, err := repos.Jobs.AddJob(ctx, &core.IngestionJob{
		RecordId: added[0].Id,
		Input:    "interrupted text",
		Modality: core.ModalityText,
	})
	require.NoError(t, err)

	pipeline, err := NewPipeline(repos.Talents, repos.Dimensions, repos.Tags, repos.Jobs, mock.NewMockCardExtractor())
	require.NoError(t, err)
	t.Cleanup(pipeline.Release)

	job, err := pipeline.JobStatus(ctx, stuck.Id)
	require.NoError(t, err)
	assert.Equal(t, core.JobStateFailed, job.State)
	assert.Equal(t, recoverySweepReason, job.RawResult)
}

func TestSubmitText_ReturnsSnapshot(t *testing.T) {
	extractor := mock.NewMockCardExtractor()
	extractor.ExtractFromTextFunc = func(ctx context.Context, dims []*core.Dimension, card core.Card, text string) (*ai.TextExtraction, error) {
		return &ai.TextExtraction{Summary: "done summary"}, nil
	}

	pipeline, repos := setupTestPipeline(t, extractor)
	ctx := context.Background()

	record := addRecord(t, repos, &core.TalentRecord{Name: "Ada"})

	job, err := pipeline.SubmitText(ctx, record.Id, "some text")
	require.NoError(t, err)

	final := waitForTerminal(t, pipeline, job.Id)
	require.Equal(t, core.JobStateDone, final.State)

	// The job handed back at submission is a snapshot of the processing
	// state; the worker's later mutations land in storage only.
	assert.Equal(t, core.JobStateProcessing, job.State)
	assert.Empty(t, job.RawResult)
}

func TestListAndDeleteJobs(t *testing.T) {
	pipeline, repos := setupTestPipeline(t, mock.NewMockCardExtractor())
	ctx := context.Background()

	record := addRecord(t, repos, &core.TalentRecord{Name: "Ada"})

	first, err := pipeline.SubmitText(ctx, record.Id, "first")
	require.NoError(t, err)
	waitForTerminal(t, pipeline, first.Id)

	second, err := pipeline.SubmitText(ctx, record.Id, "second")
	require.NoError(t, err)
	waitForTerminal(t, pipeline, second.Id)

	jobs, err := pipeline.ListJobs(ctx, record.Id)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, second.Id, jobs[0].Id)

	require.NoError(t, pipeline.DeleteJob(ctx, first.Id))
	jobs, err = pipeline.ListJobs(ctx, record.Id)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	_, err = pipeline.JobStatus(ctx, first.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
