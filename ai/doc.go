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

// Package ai provides abstractions for the extraction oracle used in
// Talentdeck.
//
// The oracle reads raw input (free-form text, or the pages of a document)
// and produces structured talent card content: dimension values, a summary,
// suggested tags, and proposals for dimensions that don't exist yet. The
// ingestion pipeline depends on the CardExtractor interface defined here,
// never on a concrete implementation.
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// Constructors in ai/openai return the CardExtractor interface to keep
// callers decoupled; mock constructors return concrete types so tests can
// inject behavior and assert call counts.
package ai
