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

// Package openai implements the extraction oracle using OpenAI-compatible
// APIs.
//
// The implementation uses the langchaingo library to talk to OpenAI or
// OpenAI-compatible services (such as Ollama, LocalAI, or vLLM). Text
// extraction and document reading may use different models; document pages
// are sent as image parts to a vision-capable model.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithHost("http://localhost:11434"),  // /v1 added automatically
//	    ai.WithExtractorModel("qwen2.5:7b"),
//	    ai.WithVisionModel("qwen2.5vl:7b"),
//	)
//
//	extractor, err := openai.NewCardExtractor(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := extractor.ExtractFromText(ctx, dims, card, "Ada is a compiler engineer...")
package openai
