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

package ai

import "errors"

var (
	// ErrUnavailable indicates no extraction oracle is configured for the
	// requested modality. The pipeline treats this as "nothing to merge",
	// not as a job failure. A configured oracle that fails a call returns
	// a plain error instead, which does fail the job.
	ErrUnavailable = errors.New("extraction oracle not configured")

	// ErrMalformedResponse indicates the oracle replied but its output
	// could not be parsed after repair attempts.
	ErrMalformedResponse = errors.New("malformed oracle response")
)
