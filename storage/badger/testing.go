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

import "github.com/sablehq/talentdeck/storage"

// MemoryRepositories bundles in-memory repositories for testing.
// Caller must Close when done.
type MemoryRepositories struct {
	Backend    *Backend
	Dimensions storage.DimensionRepository
	Talents    storage.TalentRepository
	Tags       storage.TagRepository
	Jobs       storage.JobRepository
}

// Close closes all repositories and the backend.
func (m *MemoryRepositories) Close() {
	m.Jobs.Close()
	m.Tags.Close()
	m.Talents.Close()
	m.Dimensions.Close()
	m.Backend.Close()
}

// NewMemoryRepositories creates in-memory repositories for testing.
func NewMemoryRepositories() (*MemoryRepositories, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}

	dimensionRepo, err := NewDimensionRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	talentRepo, err := NewTalentRepository(backend)
	if err != nil {
		dimensionRepo.Close()
		backend.Close()
		return nil, err
	}

	tagRepo, err := NewTagRepository(backend)
	if err != nil {
		talentRepo.Close()
		dimensionRepo.Close()
		backend.Close()
		return nil, err
	}

	jobRepo, err := NewJobRepository(backend)
	if err != nil {
		tagRepo.Close()
		talentRepo.Close()
		dimensionRepo.Close()
		backend.Close()
		return nil, err
	}

	return &MemoryRepositories{
		Backend:    backend,
		Dimensions: dimensionRepo,
		Talents:    talentRepo,
		Tags:       tagRepo,
		Jobs:       jobRepo,
	}, nil
}
