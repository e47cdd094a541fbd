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

package talentdeck

import (
	"context"
	"io"
	"log/slog"

	"github.com/sablehq/talentdeck/ai"
	"github.com/sablehq/talentdeck/ai/openai"
	"github.com/sablehq/talentdeck/core"
	"github.com/sablehq/talentdeck/ingestion"
	"github.com/sablehq/talentdeck/repair"
	"github.com/sablehq/talentdeck/storage"
	"github.com/sablehq/talentdeck/storage/badger"
)

// builtinDimensions is the card shape seeded into a fresh database. User
// and oracle proposed dimensions are appended after these.
var builtinDimensions = []*core.Dimension{
	{Key: "personal_info", Label: "Personal Info", SchemaHint: `{"type": "object"}`},
	{Key: "background", Label: "Background", SchemaHint: `""`},
	{Key: "professional", Label: "Professional", SchemaHint: `""`},
	{Key: "strengths", Label: "Strengths", SchemaHint: `{"type": "array"}`},
	{Key: "weaknesses", Label: "Weaknesses", SchemaHint: `{"type": "array"}`},
	{Key: "personality", Label: "Personality", SchemaHint: `""`},
	{Key: "potential", Label: "Potential", SchemaHint: `""`},
	{Key: "notes", Label: "Notes", SchemaHint: `""`},
	{Key: "one_liner", Label: "One-liner", SchemaHint: `""`},
}

type Database struct {
	backend       *badger.Backend
	dimensionRepo *badger.DimensionRepository
	talentRepo    storage.TalentRepository
	tagRepo       storage.TagRepository
	jobRepo       storage.JobRepository
	extractor     ai.CardExtractor
	logger        *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig  *ai.Config
	extractor ai.CardExtractor
}

// WithAIConfig sets the oracle configuration used to build the default
// extractor.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithExtractor injects a custom card extractor, bypassing the default
// OpenAI-compatible one. Used by tests and embedders with their own oracle.
func WithExtractor(extractor ai.CardExtractor) DatabaseOption {
	return func(o *databaseOptions) {
		o.extractor = extractor
	}
}

func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}

	dimensionRepo, err := badger.NewDimensionRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	talentRepo, err := badger.NewTalentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	tagRepo, err := badger.NewTagRepository(backend)
	if err != nil {
		talentRepo.Close()
		backend.Close()
		return nil, err
	}

	jobRepo, err := badger.NewJobRepository(backend)
	if err != nil {
		tagRepo.Close()
		talentRepo.Close()
		backend.Close()
		return nil, err
	}

	// Seed the builtin card shape; keys that already exist are untouched.
	if err := dimensionRepo.SeedBuiltinDimensions(context.Background(), builtinDimensions); err != nil {
		jobRepo.Close()
		tagRepo.Close()
		talentRepo.Close()
		backend.Close()
		return nil, err
	}

	extractor := options.extractor
	if extractor == nil {
		extractor, err = openai.NewCardExtractor(options.aiConfig)
		if err != nil {
			jobRepo.Close()
			tagRepo.Close()
			talentRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	return &Database{
		backend:       backend,
		dimensionRepo: dimensionRepo,
		talentRepo:    talentRepo,
		tagRepo:       tagRepo,
		jobRepo:       jobRepo,
		extractor:     extractor,
		logger:        slog.Default(),
	}, nil
}

func (db *Database) Close() error {
	if err := db.jobRepo.Close(); err != nil {
		db.logger.Error("error closing job repository", "err", err)
		return err
	}
	if err := db.tagRepo.Close(); err != nil {
		db.logger.Error("error closing tag repository", "err", err)
		return err
	}
	if err := db.talentRepo.Close(); err != nil {
		db.logger.Error("error closing talent repository", "err", err)
		return err
	}
	if err := db.dimensionRepo.Close(); err != nil {
		db.logger.Error("error closing dimension repository", "err", err)
		return err
	}
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) TalentRepository() storage.TalentRepository {
	return db.talentRepo
}

func (db *Database) DimensionRepository() storage.DimensionRepository {
	return db.dimensionRepo
}

func (db *Database) TagRepository() storage.TagRepository {
	return db.tagRepo
}

func (db *Database) JobRepository() storage.JobRepository {
	return db.jobRepo
}

// NewIngestionPipeline builds a pipeline over this database's repositories.
// It runs the recovery sweep before returning.
func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(db.talentRepo, db.dimensionRepo, db.tagRepo, db.jobRepo, db.extractor, opts...)
}

// NewCardRepairer builds a repairer over this database's repositories.
func (db *Database) NewCardRepairer(config *repair.Config, progress io.Writer) *repair.CardRepairer {
	return repair.NewCardRepairer(db.talentRepo, db.dimensionRepo, config, progress)
}
