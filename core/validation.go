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


package core

import "fmt"

// ValidateTalentRecord validates a TalentRecord according to domain rules.
//
// Validation rules:
//   - Name must not be empty
//
// NOT validated (populated by storage and the pipeline):
//   - Card (filled with registry defaults on creation)
//   - ID (0 is valid from database sequences)
func ValidateTalentRecord(record *TalentRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidTalentRecord)
	}

	if record.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTalentRecord, ErrEmptyName)
	}

	return nil
}

// ValidateDimension validates a Dimension according to domain rules.
//
// Validation rules:
//   - Key must not be empty
//
// NOT validated:
//   - SchemaHint (an unparsable hint falls back to a scalar default)
//   - Label (defaults to the key when blank)
func ValidateDimension(dimension *Dimension) error {
	if dimension == nil {
		return fmt.Errorf("%w: dimension is nil", ErrInvalidDimension)
	}

	if dimension.Key == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDimension, ErrEmptyDimensionKey)
	}

	return nil
}

// ValidateIngestionJob validates an IngestionJob according to domain rules.
//
// Validation rules:
//   - Input must not be empty
//   - Modality must be valid (text or document)
//   - State must be valid
func ValidateIngestionJob(job *IngestionJob) error {
	if job == nil {
		return fmt.Errorf("%w: job is nil", ErrInvalidJob)
	}

	if job.Input == "" {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrEmptyInput)
	}

	if err := ValidateModality(job.Modality); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}

	if err := ValidateJobState(job.State); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}

	return nil
}

// ValidateModality validates that a Modality has a valid value.
func ValidateModality(modality Modality) error {
	switch modality {
	case ModalityText, ModalityDocument:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrInvalidModality, modality)
	}
}

// ValidateJobState validates that a JobState has a valid value.
func ValidateJobState(state JobState) error {
	switch state {
	case JobStateProcessing, JobStateDone, JobStateFailed:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrInvalidJobState, state)
	}
}
