package ai

import (
	"context"

	"github.com/sablehq/talentdeck/core"
)

// CardExtractor produces structured talent card content from raw input.
// Implementations must be thread-safe for concurrent use.
type CardExtractor interface {
	// ExtractFromText analyzes free-form text about a person and returns
	// the full extracted card. The existing card is provided as context so
	// the oracle can revise rather than start blind; the caller decides how
	// the result is merged. dimensions describes the currently registered
	// card shape.
	// Returns ErrUnavailable if no oracle is configured for text
	// extraction; call and parse failures return plain errors.
	ExtractFromText(ctx context.Context, dimensions []*core.Dimension, existingCard core.Card, text string) (*TextExtraction, error)

	// ExtractFromDocument analyzes the rendered pages of a document (CV,
	// portfolio) and returns extracted card content plus identity fields.
	// pages holds one encoded image per page; fallbackText carries any text
	// layer recovered from the document and may be empty.
	// A response the oracle produced but that doesn't match the expected
	// shape degrades to an empty extraction rather than an error.
	// Returns ErrUnavailable if no oracle is configured for document
	// reading; call failures return plain errors.
	ExtractFromDocument(ctx context.Context, dimensions []*core.Dimension, pages [][]byte, fallbackText string) (*DocumentExtraction, error)
}
