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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sablehq/talentdeck"
	"github.com/sablehq/talentdeck/ai"
	"github.com/sablehq/talentdeck/core"
	"github.com/sablehq/talentdeck/repair"
	"github.com/sablehq/talentdeck/storage/badger"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "talentdeck",
		Usage: "Talent card ingestion and management",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "add-talent",
				Usage:  "Create a new talent record",
				Action: addTalentCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Talent name",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "email",
						Usage: "Contact email",
					},
					&cli.StringFlag{
						Name:  "phone",
						Usage: "Contact phone number",
					},
					&cli.StringFlag{
						Name:  "role",
						Usage: "Current role",
					},
					&cli.StringFlag{
						Name:  "department",
						Usage: "Department or team",
					},
				},
			},
			{
				Name:   "talents",
				Usage:  "List all talent records",
				Action: listTalentsCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.BoolFlag{
						Name:  "cards",
						Usage: "Include full card JSON in the output",
					},
				},
			},
			{
				Name:      "ingest",
				Usage:     "Submit a text note for asynchronous card extraction",
				ArgsUsage: "<record-id> <text>",
				Action:    ingestCommand,
				Flags: append(oracleFlags(),
					dbFlag(),
					&cli.BoolFlag{
						Name:  "wait",
						Usage: "Block until the job reaches a terminal state",
					},
					&cli.DurationFlag{
						Name:  "poll-interval",
						Usage: "Polling interval used with --wait",
						Value: 500 * time.Millisecond,
					},
				),
			},
			{
				Name:      "ingest-doc",
				Usage:     "Submit document page images for asynchronous card extraction",
				ArgsUsage: "<record-id> <page-image>...",
				Action:    ingestDocCommand,
				Flags: append(oracleFlags(),
					dbFlag(),
					&cli.StringFlag{
						Name:  "text",
						Usage: "Fallback text extracted from the document, if any",
					},
					&cli.BoolFlag{
						Name:  "wait",
						Usage: "Block until the job reaches a terminal state",
					},
					&cli.DurationFlag{
						Name:  "poll-interval",
						Usage: "Polling interval used with --wait",
						Value: 500 * time.Millisecond,
					},
				),
			},
			{
				Name:      "status",
				Usage:     "Show the state of an ingestion job",
				ArgsUsage: "<job-id>",
				Action:    statusCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.BoolFlag{
						Name:  "raw",
						Usage: "Include the raw oracle result",
					},
				},
			},
			{
				Name:      "jobs",
				Usage:     "List ingestion jobs for a talent record, newest first",
				ArgsUsage: "<record-id>",
				Action:    jobsCommand,
				Flags:     []cli.Flag{dbFlag()},
			},
			{
				Name:      "delete-job",
				Usage:     "Delete an ingestion job and its retained raw result",
				ArgsUsage: "<job-id>",
				Action:    deleteJobCommand,
				Flags:     []cli.Flag{dbFlag()},
			},
			{
				Name:   "dims",
				Usage:  "List registered card dimensions in order",
				Action: dimsCommand,
				Flags:  []cli.Flag{dbFlag()},
			},
			{
				Name:   "tags",
				Usage:  "List all tags",
				Action: tagsCommand,
				Flags:  []cli.Flag{dbFlag()},
			},
			{
				Name:   "repair",
				Usage:  "Backfill talent cards missing registered dimension keys",
				Action: repairCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "db",
		Aliases:  []string{"d"},
		Usage:    "Path to BadgerDB database directory",
		Required: true,
	}
}

func oracleFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "oracle-host",
			Usage: "Extraction oracle host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "extract-model",
			Usage: "Model used for text extraction",
			Value: "qwen2.5:7b",
		},
		&cli.StringFlag{
			Name:  "vision-model",
			Usage: "Model used for document page extraction",
			Value: "qwen2.5vl:7b",
		},
		&cli.StringFlag{
			Name:  "token",
			Usage: "API token for the oracle host",
			Value: "none",
		},
	}
}

func openDatabase(c *cli.Context) (*talentdeck.Database, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("oracle-host")),
		ai.WithExtractorModel(c.String("extract-model")),
		ai.WithVisionModel(c.String("vision-model")),
		ai.WithToken(c.String("token")),
	)

	db, err := talentdeck.NewDatabase(c.String("db"), talentdeck.WithAIConfig(aiConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func parseID(arg string) (core.ID, error) {
	v, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", arg, err)
	}
	return core.ID(v), nil
}

func addTalentCommand(c *cli.Context) error {
	ctx := context.Background()

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	record := &core.TalentRecord{
		Name:       c.String("name"),
		Email:      c.String("email"),
		Phone:      c.String("phone"),
		Role:       c.String("role"),
		Department: c.String("department"),
	}

	added, err := db.TalentRepository().AddTalents(ctx, record)
	if err != nil {
		return fmt.Errorf("failed to add talent: %w", err)
	}

	fmt.Printf("%d\t%s\n", added[0].Id, added[0].Name)
	return nil
}

func listTalentsCommand(c *cli.Context) error {
	ctx := context.Background()

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := db.TalentRepository().GetAllTalents(ctx)
	if err != nil {
		return fmt.Errorf("failed to list talents: %w", err)
	}

	for _, record := range records {
		fmt.Printf("%d\t%s\t%s\t%s\n", record.Id, record.Name, record.Role, record.Summary)
		if c.Bool("cards") {
			data, err := json.MarshalIndent(record.Card, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
		}
	}
	return nil
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.Args().Len() < 2 {
		return fmt.Errorf("usage: ingest <record-id> <text>")
	}
	recordID, err := parseID(c.Args().Get(0))
	if err != nil {
		return err
	}
	text := strings.Join(c.Args().Slice()[1:], " ")

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline, err := db.NewIngestionPipeline()
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	job, err := pipeline.SubmitText(ctx, recordID, text)
	if err != nil {
		return fmt.Errorf("failed to submit job: %w", err)
	}

	fmt.Printf("job %d submitted (%s)\n", job.Id, job.State)
	if c.Bool("wait") {
		return waitForJob(ctx, pipeline, job.Id, c.Duration("poll-interval"))
	}
	return nil
}

func ingestDocCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.Args().Len() < 1 {
		return fmt.Errorf("usage: ingest-doc <record-id> <page-image>...")
	}
	recordID, err := parseID(c.Args().Get(0))
	if err != nil {
		return err
	}

	var pages [][]byte
	for _, path := range c.Args().Slice()[1:] {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read page %s: %w", path, err)
		}
		pages = append(pages, data)
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline, err := db.NewIngestionPipeline()
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	job, err := pipeline.SubmitDocument(ctx, recordID, pages, c.String("text"))
	if err != nil {
		return fmt.Errorf("failed to submit job: %w", err)
	}

	fmt.Printf("job %d submitted (%s)\n", job.Id, job.State)
	if c.Bool("wait") {
		return waitForJob(ctx, pipeline, job.Id, c.Duration("poll-interval"))
	}
	return nil
}

// waitForJob polls until the job leaves JobStateProcessing. The pipeline
// must stay alive while polling so the asynchronous phase can finish.
func waitForJob(ctx context.Context, pipeline jobStatuser, jobID core.ID, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := pipeline.JobStatus(ctx, jobID)
		if err != nil {
			return fmt.Errorf("failed to poll job: %w", err)
		}
		if job.State.Terminal() {
			fmt.Printf("job %d %s\n", job.Id, job.State)
			if job.State == core.JobStateFailed && job.RawResult != "" {
				fmt.Fprintf(os.Stderr, "error: %s\n", job.RawResult)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type jobStatuser interface {
	JobStatus(ctx context.Context, jobID core.ID) (*core.IngestionJob, error)
}

func statusCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.Args().Len() != 1 {
		return fmt.Errorf("usage: status <job-id>")
	}
	jobID, err := parseID(c.Args().Get(0))
	if err != nil {
		return err
	}

	backend, repo, err := openJobRepository(c.String("db"))
	if err != nil {
		return err
	}
	defer backend.Close()
	defer repo.Close()

	job, err := repo.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}

	fmt.Printf("job:      %d\n", job.Id)
	fmt.Printf("record:   %d\n", job.RecordId)
	fmt.Printf("modality: %s\n", job.Modality)
	fmt.Printf("state:    %s\n", job.State)
	fmt.Printf("created:  %s\n", job.CreatedAt.Format(time.RFC3339))
	if c.Bool("raw") && job.RawResult != "" {
		fmt.Printf("result:   %s\n", job.RawResult)
	}
	return nil
}

func jobsCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.Args().Len() != 1 {
		return fmt.Errorf("usage: jobs <record-id>")
	}
	recordID, err := parseID(c.Args().Get(0))
	if err != nil {
		return err
	}

	backend, repo, err := openJobRepository(c.String("db"))
	if err != nil {
		return err
	}
	defer backend.Close()
	defer repo.Close()

	jobs, err := repo.ListJobsByRecord(ctx, recordID)
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}

	for _, job := range jobs {
		fmt.Printf("%d\t%s\t%s\t%s\n", job.Id, job.Modality, job.State,
			job.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func deleteJobCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.Args().Len() != 1 {
		return fmt.Errorf("usage: delete-job <job-id>")
	}
	jobID, err := parseID(c.Args().Get(0))
	if err != nil {
		return err
	}

	backend, repo, err := openJobRepository(c.String("db"))
	if err != nil {
		return err
	}
	defer backend.Close()
	defer repo.Close()

	if err := repo.DeleteJob(ctx, jobID); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

func openJobRepository(dbPath string) (*badger.Backend, *badger.JobRepository, error) {
	backend, err := badger.OpenBackend(dbPath, false)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	repo, err := badger.NewJobRepository(backend)
	if err != nil {
		backend.Close()
		return nil, nil, fmt.Errorf("failed to create repository: %w", err)
	}
	return backend, repo, nil
}

func dimsCommand(c *cli.Context) error {
	ctx := context.Background()

	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	repo, err := badger.NewDimensionRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}
	defer repo.Close()

	dims, err := repo.ListDimensions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list dimensions: %w", err)
	}

	for _, dim := range dims {
		origin := "custom"
		if dim.Builtin {
			origin = "builtin"
		}
		fmt.Printf("%d\t%s\t%s\t%s\n", dim.Order, dim.Key, dim.Label, origin)
	}
	return nil
}

func tagsCommand(c *cli.Context) error {
	ctx := context.Background()

	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	repo, err := badger.NewTagRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}
	defer repo.Close()

	tags, err := repo.ListTags(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tags: %w", err)
	}

	for _, tag := range tags {
		fmt.Printf("%d\t%s\t%s\n", tag.Id, tag.Name, tag.Color)
	}
	return nil
}

func repairCommand(c *cli.Context) error {
	ctx := context.Background()

	dbPath := c.String("db")
	if dbPath == "" {
		return fmt.Errorf("database path is required")
	}

	// Open database
	backend, err := badger.OpenBackend(dbPath, false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	talentRepo, err := badger.NewTalentRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create talent repository: %w", err)
	}
	defer talentRepo.Close()

	dimensionRepo, err := badger.NewDimensionRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create dimension repository: %w", err)
	}
	defer dimensionRepo.Close()

	// Create repair config
	repairConfig := &repair.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}

	// Validate config
	if repairConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if repairConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if repairConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	repairer := repair.NewCardRepairer(talentRepo, dimensionRepo, repairConfig, os.Stderr)

	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	fmt.Fprintln(os.Stderr)

	repaired, err := repairer.Run(ctx)
	if err != nil {
		return fmt.Errorf("repair failed: %w", err)
	}

	fmt.Printf("repaired %d records\n", repaired)
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
