package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/sablehq/talentdeck/ai"
	"github.com/sablehq/talentdeck/core"
)

// MockCardExtractor is a test double for ai.CardExtractor.
// It allows custom behavior injection via function fields and is safe for
// concurrent use, since the pipeline calls it from worker goroutines.
type MockCardExtractor struct {
	// ExtractFromTextFunc is called by ExtractFromText if set.
	// If nil, uses a simple word-based default.
	ExtractFromTextFunc func(ctx context.Context, dimensions []*core.Dimension, existingCard core.Card, text string) (*ai.TextExtraction, error)

	// ExtractFromDocumentFunc is called by ExtractFromDocument if set.
	// If nil, returns an empty extraction.
	ExtractFromDocumentFunc func(ctx context.Context, dimensions []*core.Dimension, pages [][]byte, fallbackText string) (*ai.DocumentExtraction, error)

	mu            sync.Mutex
	textCalls     int
	documentCalls int
}

// NewMockCardExtractor creates a mock card extractor with default behavior.
// Note: returns the concrete type to allow test assertions.
func NewMockCardExtractor() *MockCardExtractor {
	return &MockCardExtractor{}
}

// ExtractFromText returns a simple deterministic extraction.
// Default behavior: every registered dimension gets the input text as its
// scalar value, and the first word becomes a tag.
func (m *MockCardExtractor) ExtractFromText(ctx context.Context, dimensions []*core.Dimension, existingCard core.Card, text string) (*ai.TextExtraction, error) {
	m.mu.Lock()
	m.textCalls++
	fn := m.ExtractFromTextFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, dimensions, existingCard, text)
	}

	card := core.Card{}
	for _, dim := range dimensions {
		card[dim.Key] = core.ScalarValue(text)
	}

	var tags []string
	if words := strings.Fields(strings.ToLower(text)); len(words) > 0 {
		tags = []string{strings.Trim(words[0], ".,!?;:\"'()")}
	}

	return &ai.TextExtraction{
		Card:          card,
		Summary:       text,
		SuggestedTags: tags,
	}, nil
}

// ExtractFromDocument returns an empty extraction by default.
func (m *MockCardExtractor) ExtractFromDocument(ctx context.Context, dimensions []*core.Dimension, pages [][]byte, fallbackText string) (*ai.DocumentExtraction, error) {
	m.mu.Lock()
	m.documentCalls++
	fn := m.ExtractFromDocumentFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, dimensions, pages, fallbackText)
	}

	return &ai.DocumentExtraction{Card: core.Card{}}, nil
}

// TextCallCount returns the number of times ExtractFromText was called.
func (m *MockCardExtractor) TextCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.textCalls
}

// DocumentCallCount returns the number of times ExtractFromDocument was called.
func (m *MockCardExtractor) DocumentCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.documentCalls
}

// Reset clears call counts and custom functions.
func (m *MockCardExtractor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.textCalls = 0
	m.documentCalls = 0
	m.ExtractFromTextFunc = nil
	m.ExtractFromDocumentFunc = nil
}
