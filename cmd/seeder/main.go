// Command seeder populates a talentdeck database with demo talent records
// and pushes sample notes through the ingestion pipeline. It exists for
// local development and manual testing against a live oracle.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/sablehq/talentdeck"
	"github.com/sablehq/talentdeck/ai"
	"github.com/sablehq/talentdeck/core"
	"github.com/sablehq/talentdeck/ingestion"
)

type seedProfile struct {
	name       string
	role       string
	department string
	notes      []string
}

var profiles = []seedProfile{
	{
		name:       "Mara Voss",
		role:       "Staff Engineer",
		department: "Platform",
		notes: []string{
			"Mara led the migration of the billing pipeline to event sourcing. Deep Go and Postgres experience, strong mentor for mid-level engineers.",
			"Follow-up from Q3 review: wants to move toward distributed systems architecture work. Occasionally overcommits and misses smaller deadlines.",
		},
	},
	{
		name:       "Jonah Petterson",
		role:       "Product Designer",
		department: "Design",
		notes: []string{
			"Jonah ran the onboarding redesign end to end. Excellent at user interviews, less comfortable presenting to executives.",
		},
	},
	{
		name:       "Priya Natarajan",
		role:       "Engineering Manager",
		department: "Infrastructure",
		notes: []string{
			"Priya grew the SRE team from three to nine. Calm under incident pressure, strong hiring instincts, background in network engineering.",
			"Interested in a larger org. Has been studying for a distributed storage deep dive. Known for crisp written communication.",
		},
	},
	{
		name:       "Tomás Ribeiro",
		role:       "Data Scientist",
		department: "Analytics",
		notes: []string{
			"Tomás built the churn prediction model that drove the retention push. Python and SQL fluent, picking up Go for pipeline work.",
		},
	},
}

var (
	dbPath      = flag.String("db", "./talent_db", "path to BadgerDB database directory")
	oracleHost  = flag.String("oracle-host", "", "extraction oracle host URL (empty uses the default)")
	jobDeadline = flag.Duration("deadline", 5*time.Minute, "how long to wait for submitted jobs to finish")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

// waitForJobs polls until every submitted job reaches a terminal state.
func waitForJobs(ctx context.Context, pipeline *ingestion.Pipeline, jobIDs []core.ID) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	pending := make(map[core.ID]bool, len(jobIDs))
	for _, id := range jobIDs {
		pending[id] = true
	}

	for len(pending) > 0 {
		for id := range pending {
			job, err := pipeline.JobStatus(ctx, id)
			if err != nil {
				return err
			}
			if job.State.Terminal() {
				slog.Info("job finished", "job", id, "state", job.State.String())
				delete(pending, id)
			}
		}
		if len(pending) == 0 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	return nil
}

func main() {
	var opts []talentdeck.DatabaseOption
	if *oracleHost != "" {
		opts = append(opts, talentdeck.WithAIConfig(ai.NewConfig(ai.WithHost(*oracleHost))))
	}

	db, err := talentdeck.NewDatabase(*dbPath, opts...)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	pipeline, err := db.NewIngestionPipeline()
	if err != nil {
		panic(err)
	}
	defer pipeline.Release()

	ctx, cancel := context.WithTimeout(context.Background(), *jobDeadline)
	defer cancel()

	var jobIDs []core.ID
	for _, profile := range profiles {
		record := &core.TalentRecord{
			Name:       profile.name,
			Role:       profile.role,
			Department: profile.department,
		}
		added, err := db.TalentRepository().AddTalents(ctx, record)
		if err != nil {
			panic(err)
		}
		slog.Info("seeded talent", "id", added[0].Id, "name", added[0].Name)

		for _, note := range profile.notes {
			job, err := pipeline.SubmitText(ctx, added[0].Id, note)
			if err != nil {
				panic(err)
			}
			jobIDs = append(jobIDs, job.Id)
		}
	}

	if err := waitForJobs(ctx, pipeline, jobIDs); err != nil {
		panic(err)
	}
}
