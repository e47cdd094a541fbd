// Package mock provides test double implementations of the extraction
// oracle interfaces.
//
// The mock extractor runs without any external AI service and gives tests
// controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	extractor := mock.NewMockCardExtractor()
//	result, err := extractor.ExtractFromText(ctx, dims, card, "some text")
//
//	// Custom behavior injection
//	extractor.ExtractFromTextFunc = func(ctx context.Context, dims []*core.Dimension, card core.Card, text string) (*ai.TextExtraction, error) {
//	    return &ai.TextExtraction{Summary: "fixed"}, nil
//	}
//
//	// Check call counts
//	count := extractor.TextCallCount()
package mock
