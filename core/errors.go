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

import "errors"

// Domain validation errors
var (
	// ErrInvalidTalentRecord indicates a TalentRecord failed validation.
	ErrInvalidTalentRecord = errors.New("invalid talent record")

	// ErrInvalidDimension indicates a Dimension failed validation.
	ErrInvalidDimension = errors.New("invalid dimension")

	// ErrInvalidJob indicates an IngestionJob failed validation.
	ErrInvalidJob = errors.New("invalid ingestion job")

	// ErrEmptyName indicates the Name field is empty.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrEmptyDimensionKey indicates the dimension Key field is empty.
	ErrEmptyDimensionKey = errors.New("dimension key cannot be empty")

	// ErrEmptyInput indicates the job Input field is empty.
	ErrEmptyInput = errors.New("input cannot be empty")

	// ErrInvalidModality indicates an invalid Modality value.
	ErrInvalidModality = errors.New("invalid modality")

	// ErrInvalidJobState indicates an invalid JobState value.
	ErrInvalidJobState = errors.New("invalid job state")
)
