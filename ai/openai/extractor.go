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

package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sablehq/talentdeck/ai"
	"github.com/sablehq/talentdeck/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// CardExtractor implements ai.CardExtractor using OpenAI-compatible chat APIs.
// Text extraction and document reading use separate clients so each can run
// a different model.
type CardExtractor struct {
	textClient   llms.Model
	visionClient llms.Model
	logger       *slog.Logger
}

// textResponse matches the JSON shape the text prompt asks for.
type textResponse struct {
	Card          core.Card      `json:"card"`
	Summary       string         `json:"summary"`
	Tags          []string       `json:"tags"`
	NewDimensions []rawDimension `json:"new_dimensions"`
}

// documentResponse matches the JSON shape the document prompt asks for.
type documentResponse struct {
	Contact       core.ContactInfo `json:"contact"`
	Card          core.Card        `json:"card"`
	Summary       string           `json:"summary"`
	Tags          []string         `json:"tags"`
	NewDimensions []rawDimension   `json:"new_dimensions"`
}

// rawDimension tolerates schema hints emitted as either a JSON string or a
// bare JSON fragment.
type rawDimension struct {
	Key        string          `json:"key"`
	Label      string          `json:"label"`
	SchemaHint json.RawMessage `json:"schema_hint"`
}

func (d rawDimension) hint() string {
	if len(d.SchemaHint) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(d.SchemaHint, &s); err == nil {
		return s
	}
	return string(d.SchemaHint)
}

// newCardExtractor is an internal constructor that returns the concrete type.
// A config without a host or token yields an unconfigured extractor whose
// calls report ai.ErrUnavailable; a missing model disables that modality only.
func newCardExtractor(config *ai.Config) (*CardExtractor, error) {
	config.Normalize()

	e := &CardExtractor{
		logger: slog.Default().With("component", "openai-extractor"),
	}

	if config.Host == "" || config.Token == "" {
		e.logger.Warn("extraction oracle not configured, ingestion will complete without results")
		return e, nil
	}

	if config.ExtractorModel != "" {
		textClient, err := openai.New(
			openai.WithBaseURL(config.Host),
			openai.WithToken(config.Token),
			openai.WithModel(config.ExtractorModel),
		)
		if err != nil {
			return nil, err
		}
		e.textClient = textClient
	}

	if config.VisionModel != "" {
		visionClient, err := openai.New(
			openai.WithBaseURL(config.Host),
			openai.WithToken(config.Token),
			openai.WithModel(config.VisionModel),
		)
		if err != nil {
			return nil, err
		}
		e.visionClient = visionClient
	}

	return e, nil
}

// NewCardExtractor creates a new card extractor using the provided
// configuration.
//
// Returns ai.CardExtractor interface to enforce abstraction.
func NewCardExtractor(config *ai.Config) (ai.CardExtractor, error) {
	return newCardExtractor(config)
}

// ExtractFromText extracts talent card content from free-form text.
// Returns ai.ErrUnavailable when no text client is configured.
func (e *CardExtractor) ExtractFromText(ctx context.Context, dimensions []*core.Dimension, existingCard core.Card, text string) (*ai.TextExtraction, error) {
	if e.textClient == nil {
		return nil, ai.ErrUnavailable
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(buildTextPrompt(dimensions, existingCard)),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(text),
			},
		},
	}

	var result textResponse
	if err := e.generateInto(ctx, e.textClient, content, &result); err != nil {
		return nil, err
	}

	return &ai.TextExtraction{
		Card:          result.Card,
		Summary:       strings.TrimSpace(result.Summary),
		SuggestedTags: normalizeTags(result.Tags),
		NewDimensions: convertDimensions(result.NewDimensions, dimensions),
	}, nil
}

// ExtractFromDocument extracts talent card content and identity fields from
// rendered document pages. A response that parses but doesn't match the
// expected shape degrades to an empty extraction.
// Returns ai.ErrUnavailable when no vision client is configured.
func (e *CardExtractor) ExtractFromDocument(ctx context.Context, dimensions []*core.Dimension, pages [][]byte, fallbackText string) (*ai.DocumentExtraction, error) {
	if e.visionClient == nil {
		return nil, ai.ErrUnavailable
	}

	parts := []llms.ContentPart{
		llms.TextPart(buildDocumentPrompt(dimensions)),
	}
	for _, page := range pages {
		parts = append(parts, llms.BinaryPart(http.DetectContentType(page), page))
	}
	if fallbackText != "" {
		parts = append(parts, llms.TextPart("Text layer recovered from the document:\n\n"+fallbackText))
	}

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: parts,
		},
	}

	var result documentResponse
	if err := e.generateInto(ctx, e.visionClient, content, &result); err != nil {
		if errors.Is(err, ai.ErrMalformedResponse) {
			// A CV the model couldn't read as structured data still
			// completes the job; there is just nothing to merge.
			e.logger.Warn("document response unusable, degrading to empty extraction")
			return &ai.DocumentExtraction{Card: core.Card{}}, nil
		}
		return nil, err
	}

	return &ai.DocumentExtraction{
		Contact:       result.Contact,
		Card:          result.Card,
		Summary:       strings.TrimSpace(result.Summary),
		SuggestedTags: normalizeTags(result.Tags),
		NewDimensions: convertDimensions(result.NewDimensions, dimensions),
	}, nil
}

// generateInto runs the chat completion and parses the JSON response into out.
// Malformed JSON is retried up to 3 times. Call failures, including a
// deadline on ctx, are returned as plain errors: the caller owns the
// decision that a failed oracle call fails the job.
func (e *CardExtractor) generateInto(ctx context.Context, client llms.Model, content []llms.MessageContent, out any) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return fmt.Errorf("oracle call failed: %w", err)
		}

		if len(response.Choices) < 1 {
			lastErr = fmt.Errorf("%w: no choices returned", ai.ErrMalformedResponse)
			continue
		}

		// Strip markdown code fences if present
		responseText := strings.TrimSpace(response.Choices[0].Content)
		responseText = strings.TrimPrefix(responseText, "```json")
		responseText = strings.TrimPrefix(responseText, "```")
		responseText = strings.TrimSuffix(responseText, "```")
		responseText = strings.TrimSpace(responseText)

		// Try to repair common JSON issues
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), out); err != nil {
			lastErr = fmt.Errorf("%w: %v", ai.ErrMalformedResponse, err)
			e.logger.Warn("error parsing oracle response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		return nil
	}

	e.logger.Error("failed to parse oracle response after retries", "err", lastErr)
	return lastErr
}

// normalizeTags lowercases, trims, and deduplicates suggested tags.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		result = append(result, tag)
	}
	return result
}

// convertDimensions filters proposals down to keys not already registered
// and normalizes the keys to snake_case.
func convertDimensions(raw []rawDimension, existing []*core.Dimension) []ai.ProposedDimension {
	known := make(map[string]bool, len(existing))
	for _, dim := range existing {
		known[dim.Key] = true
	}

	result := make([]ai.ProposedDimension, 0, len(raw))
	for _, d := range raw {
		key := canonicalKey(d.Key)
		if key == "" || known[key] {
			continue
		}
		known[key] = true

		label := strings.TrimSpace(d.Label)
		if label == "" {
			label = key
		}
		result = append(result, ai.ProposedDimension{
			Key:        key,
			Label:      label,
			SchemaHint: d.hint(),
		})
	}
	return result
}

// canonicalKey converts a proposed key to lowercase snake_case.
func canonicalKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")
	return strings.Trim(key, "_")
}
