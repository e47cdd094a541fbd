package ai

import "github.com/sablehq/talentdeck/core"

// ProposedDimension is a dimension the oracle wants added to the registry.
// Key is the canonical snake_case identifier; SchemaHint is a JSON fragment
// describing the value shape (used to derive the structural default).
type ProposedDimension struct {
	Key        string `json:"key"`
	Label      string `json:"label"`
	SchemaHint string `json:"schema_hint"`
}

// TextExtraction is the oracle's reading of free-form text input.
type TextExtraction struct {
	// Card holds the extracted value for every dimension the oracle was
	// shown, plus any dimensions it proposed.
	Card core.Card

	// Summary is a one-to-two sentence characterization of the person.
	// Empty means the oracle had nothing to say; callers keep the old one.
	Summary string

	// SuggestedTags are short lowercase labels for the person. Each tag is
	// atomic ("backend", "ml") rather than a phrase.
	SuggestedTags []string

	// NewDimensions are dimensions the oracle found material for but that
	// weren't in the registered set it was shown.
	NewDimensions []ProposedDimension
}

// DocumentExtraction is the oracle's reading of a document's pages.
// It extends TextExtraction with the identity fields a CV carries.
type DocumentExtraction struct {
	Contact       core.ContactInfo
	Card          core.Card
	Summary       string
	SuggestedTags []string
	NewDimensions []ProposedDimension
}
