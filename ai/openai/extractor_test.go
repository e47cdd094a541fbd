package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sablehq/talentdeck/ai"
	"github.com/sablehq/talentdeck/core"
)

func TestUnconfiguredExtractorReportsUnavailable(t *testing.T) {
	extractor, err := newCardExtractor(ai.NewConfig(ai.WithHost(""), ai.WithToken("")))
	if err != nil {
		t.Fatalf("Failed to create extractor: %v", err)
	}

	_, err = extractor.ExtractFromText(context.Background(), nil, core.Card{}, "some text")
	if !errors.Is(err, ai.ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable from text extraction, got %v", err)
	}

	_, err = extractor.ExtractFromDocument(context.Background(), nil, [][]byte{{0x89}}, "")
	if !errors.Is(err, ai.ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable from document extraction, got %v", err)
	}
}

func TestCallFailureIsNotUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	extractor, err := newCardExtractor(ai.NewConfig(ai.WithHost(server.URL)))
	if err != nil {
		t.Fatalf("Failed to create extractor: %v", err)
	}

	_, err = extractor.ExtractFromText(context.Background(), nil, core.Card{}, "some text")
	if err == nil {
		t.Fatal("Expected an error from a failing endpoint")
	}
	if errors.Is(err, ai.ErrUnavailable) {
		t.Fatalf("Call failure must not be reported as unconfigured: %v", err)
	}
}

func TestTimeoutIsNotUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server watches for client disconnect;
		// otherwise r.Context() is never cancelled and Close hangs.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer server.Close()

	extractor, err := newCardExtractor(ai.NewConfig(ai.WithHost(server.URL)))
	if err != nil {
		t.Fatalf("Failed to create extractor: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = extractor.ExtractFromText(ctx, nil, core.Card{}, "some text")
	if err == nil {
		t.Fatal("Expected an error after the deadline")
	}
	if errors.Is(err, ai.ErrUnavailable) {
		t.Fatalf("Timeout must not be reported as unconfigured: %v", err)
	}
}

func TestRepairJSONFixesUnquotedKeys(t *testing.T) {
	broken := `{summary": "Go engineer", tags": ["backend"]}`
	repaired := repairJSON(broken)

	var out map[string]any
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		t.Fatalf("Expected repaired JSON to parse, got %v: %s", err, repaired)
	}
	if out["summary"] != "Go engineer" {
		t.Fatalf("Unexpected parse result: %v", out)
	}
}

func TestRepairJSONLeavesValidJSONAlone(t *testing.T) {
	valid := `{"summary": "Go engineer", "tags": ["backend"]}`
	if got := repairJSON(valid); got != valid {
		t.Fatalf("Valid JSON was altered: %s", got)
	}
}

func TestNormalizeTags(t *testing.T) {
	got := normalizeTags([]string{" Backend ", "ML", "backend", "", "leadership"})
	want := []string{"backend", "ml", "leadership"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
}

func TestConvertDimensionsFiltersKnownKeys(t *testing.T) {
	existing := []*core.Dimension{{Key: "skills"}}
	raw := []rawDimension{
		{Key: "Skills", Label: "Skills"},
		{Key: "Open Source", Label: "Open Source", SchemaHint: json.RawMessage(`{"type": "array"}`)},
		{Key: "open-source"},
		{Key: ""},
	}

	got := convertDimensions(raw, existing)
	if len(got) != 1 {
		t.Fatalf("Expected 1 proposal, got %d: %+v", len(got), got)
	}
	if got[0].Key != "open_source" {
		t.Fatalf("Expected snake_case key, got %q", got[0].Key)
	}
	if got[0].SchemaHint != `{"type": "array"}` {
		t.Fatalf("Unexpected schema hint: %q", got[0].SchemaHint)
	}
}

func TestRawDimensionHintUnwrapsString(t *testing.T) {
	d := rawDimension{SchemaHint: json.RawMessage(`"{\"type\": \"array\"}"`)}
	if got := d.hint(); got != `{"type": "array"}` {
		t.Fatalf("Expected unwrapped hint, got %q", got)
	}

	empty := rawDimension{}
	if got := empty.hint(); got != "" {
		t.Fatalf("Expected empty hint, got %q", got)
	}
}

func TestTextResponseParsesCoercedValues(t *testing.T) {
	payload := `{
	  "card": {
	    "skills": ["Go", "Rust"],
	    "years_experience": 12,
	    "notes": "prefers remote"
	  },
	  "summary": "Systems engineer.",
	  "tags": ["backend"],
	  "new_dimensions": []
	}`

	var out textResponse
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if out.Card["skills"].Kind != core.KindSequence {
		t.Fatalf("Expected sequence, got %+v", out.Card["skills"])
	}
	if out.Card["years_experience"].Scalar != "12" {
		t.Fatalf("Expected numeric coercion, got %+v", out.Card["years_experience"])
	}
}
