package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sablehq/talentdeck/core"
)

const textPromptTemplate = `You maintain a structured "talent card" for a person. Read the text the user
provides and return the person's full card as JSON.

Output ONLY valid JSON. Do not include any preamble, explanation, greeting, or
acknowledgment. Start your response directly with the opening brace { and end
with the closing brace }. Your output must follow this shape exactly:

{
  "card": { "<dimension_key>": <value>, ... },
  "summary": "<one or two sentences>",
  "tags": ["<tag>", ...],
  "new_dimensions": [
    {"key": "<snake_case_key>", "label": "<Human Label>", "schema_hint": "<JSON shape description>"}
  ]
}

The card dimensions currently tracked for this person are:

%s

The person's current card is:

%s

Rules:
- "card" must contain every dimension key listed above. Rewrite each value to
  reflect everything now known about the person, combining the current card
  with the new text. Use "" for a dimension the text says nothing about and
  the current card leaves empty.
- Values follow each dimension's shape: a string, an array of strings, or an
  object with string values.
- If the text reveals material that fits none of the listed dimensions,
  propose a new dimension in "new_dimensions" and include its value in "card"
  under the proposed key. Keys are lowercase snake_case.
- "summary" is one or two sentences characterizing the person. Return "" if
  the text adds nothing worth summarizing.
- "tags" are short lowercase labels. Each tag is a single atomic concept
  ("backend", "ml", "leadership"), never a phrase or sentence.
- Do not invent facts. Only include what the text states or clearly implies.
- The JSON must parse without errors; no trailing commas, no extra keys, and
  no extraneous text outside the object.`

const documentPromptTemplate = `You maintain a structured "talent card" for a person. The images are the pages
of a document about them (a CV, portfolio, or profile). Read the pages and
return what the document says as JSON.

Output ONLY valid JSON. Do not include any preamble, explanation, greeting, or
acknowledgment. Start your response directly with the opening brace { and end
with the closing brace }. Your output must follow this shape exactly:

{
  "contact": {
    "name": "<full name>",
    "email": "<email or empty>",
    "phone": "<phone or empty>",
    "current_role": "<role or empty>",
    "department": "<department or empty>"
  },
  "card": { "<dimension_key>": <value>, ... },
  "summary": "<one or two sentences>",
  "tags": ["<tag>", ...],
  "new_dimensions": [
    {"key": "<snake_case_key>", "label": "<Human Label>", "schema_hint": "<JSON shape description>"}
  ]
}

The card dimensions currently tracked for this person are:

%s

Rules:
- "contact" fields come from the document header or contact section. Use ""
  for anything the document doesn't state.
- "card" contains a value for each listed dimension the document has material
  for. Use "" for the rest. Values follow each dimension's shape: a string, an
  array of strings, or an object with string values.
- If the document reveals material that fits none of the listed dimensions,
  propose a new dimension in "new_dimensions" and include its value in "card"
  under the proposed key. Keys are lowercase snake_case.
- "tags" are short lowercase labels. Each tag is a single atomic concept
  ("backend", "ml", "leadership"), never a phrase or sentence.
- Do not invent facts. Only include what the document states.
- The JSON must parse without errors; no trailing commas, no extra keys, and
  no extraneous text outside the object.`

// buildTextPrompt renders the text extraction system prompt with the
// registered dimensions and the person's current card embedded.
func buildTextPrompt(dimensions []*core.Dimension, existingCard core.Card) string {
	cardJSON := "{}"
	if len(existingCard) > 0 {
		if encoded, err := json.MarshalIndent(existingCard, "", "  "); err == nil {
			cardJSON = string(encoded)
		}
	}
	return fmt.Sprintf(textPromptTemplate, describeDimensions(dimensions), cardJSON)
}

// buildDocumentPrompt renders the document reading prompt with the registered
// dimensions embedded.
func buildDocumentPrompt(dimensions []*core.Dimension) string {
	return fmt.Sprintf(documentPromptTemplate, describeDimensions(dimensions))
}

// describeDimensions renders one line per dimension: key, label, and the
// expected value shape.
func describeDimensions(dimensions []*core.Dimension) string {
	if len(dimensions) == 0 {
		return "(none registered yet)"
	}

	var b strings.Builder
	for _, dim := range dimensions {
		fmt.Fprintf(&b, "- %s (%s)", dim.Key, dim.Label)
		if dim.SchemaHint != "" {
			fmt.Fprintf(&b, ": shape %s", dim.SchemaHint)
		}
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}
