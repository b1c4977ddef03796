package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kartescan/kartescan/internal/providers"
	"github.com/kartescan/kartescan/internal/review"
	"github.com/kartescan/kartescan/internal/similarity"
)

// scriptedChat returns canned responses in sequence, one per Chat call.
type scriptedChat struct {
	responses []json.RawMessage
	errs      []error
	calls     int
}

func (c *scriptedChat) Name() string { return "scripted" }

func (c *scriptedChat) Chat(_ context.Context, req *providers.ChatRequest) (*providers.ChatResult, error) {
	idx := c.calls
	c.calls++
	if idx < len(c.errs) && c.errs[idx] != nil {
		return nil, c.errs[idx]
	}
	if idx >= len(c.responses) {
		return nil, fmt.Errorf("unexpected call %d", idx)
	}
	return &providers.ChatResult{
		Content:          string(c.responses[idx]),
		ParsedJSON:       c.responses[idx],
		Provider:         "scripted",
		ModelUsed:        "scripted-model",
		PromptTokens:     10,
		CompletionTokens: 5,
		TotalTokens:      15,
		Success:          true,
		Attempts:         1,
	}, nil
}

func newTestEngine(t *testing.T, emb similarity.Embedder) *similarity.Engine {
	t.Helper()
	scorer, err := similarity.NewEmbeddingScorer(similarity.EmbeddingScorerConfig{
		Embedder:   emb,
		RetryDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	return similarity.NewEngine(scorer, time.Second)
}

func newTestPipeline(t *testing.T, chat providers.ChatClient, emb similarity.Embedder) *Pipeline {
	t.Helper()
	p, err := New(Config{
		Chat:   chat,
		Engine: newTestEngine(t, emb),
	})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestPipelineRun(t *testing.T) {
	fields := []string{"主訴", "現病歴"}
	chat := &scriptedChat{
		responses: []json.RawMessage{
			json.RawMessage(`[
				{"item_name":"主訴","raw_text":"頭痛"},
				{"item_name":"現病歴","raw_text":"3日前から"}
			]`),
			json.RawMessage(`[
				{"item_name":"主訴","interpreted_text":"頭痛"},
				{"item_name":"現病歴","interpreted_text":"3日前から"}
			]`),
		},
	}

	p := newTestPipeline(t, chat, &providers.MockEmbedder{})
	result, err := p.Run(context.Background(), Request{
		ChartID: "c1",
		Image:   []byte("fake-image"),
		Fields:  fields,
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	for i, name := range fields {
		if result.Items[i].Name != name {
			t.Errorf("item %d = %q, want %q", i, result.Items[i].Name, name)
		}
	}

	// Identical raw and interpreted text scores 1.0 on both signals.
	for _, it := range result.Items {
		if it.TextScore != 1.0 || it.SemanticScore != 1.0 {
			t.Errorf("%s scores = %v/%v, want 1/1", it.Name, it.TextScore, it.SemanticScore)
		}
		if it.NeedsReview {
			t.Errorf("%s unexpectedly flagged for review", it.Name)
		}
		if it.ScoreIncomplete {
			t.Errorf("%s unexpectedly incomplete", it.Name)
		}
	}

	if result.Incomplete {
		t.Error("result unexpectedly incomplete")
	}
	if result.OverallConfidence != 1.0 {
		t.Errorf("overall confidence = %v, want 1", result.OverallConfidence)
	}
	if result.TotalTokens != 30 {
		t.Errorf("total tokens = %d, want 30", result.TotalTokens)
	}
	if chat.calls != 2 {
		t.Errorf("expected 2 chat calls, got %d", chat.calls)
	}
}

func TestPipelineDefaultsFieldSet(t *testing.T) {
	var rawItems []map[string]any
	for _, name := range DefaultFieldNames {
		rawItems = append(rawItems, map[string]any{"item_name": name, "raw_text": "x"})
	}
	rawJSON, _ := json.Marshal(rawItems)

	var interpItems []map[string]any
	for _, name := range DefaultFieldNames {
		interpItems = append(interpItems, map[string]any{"item_name": name, "interpreted_text": "x"})
	}
	interpJSON, _ := json.Marshal(interpItems)

	chat := &scriptedChat{responses: []json.RawMessage{rawJSON, interpJSON}}
	p := newTestPipeline(t, chat, &providers.MockEmbedder{})

	result, err := p.Run(context.Background(), Request{Image: []byte("img")})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Items) != len(DefaultFieldNames) {
		t.Fatalf("expected %d items, got %d", len(DefaultFieldNames), len(result.Items))
	}
	if result.Items[0].Name != "主訴" {
		t.Errorf("first field = %q", result.Items[0].Name)
	}
}

func TestPipelineOmittedFieldBecomesNull(t *testing.T) {
	chat := &scriptedChat{
		responses: []json.RawMessage{
			json.RawMessage(`[{"item_name":"主訴","raw_text":"頭痛"}]`),
			json.RawMessage(`[{"item_name":"主訴","interpreted_text":"頭痛"},{"item_name":"既往歴","interpreted_text":"高血圧"}]`),
		},
	}
	p := newTestPipeline(t, chat, &providers.MockEmbedder{})

	result, err := p.Run(context.Background(), Request{
		Image:  []byte("img"),
		Fields: []string{"主訴", "既往歴"},
	})
	if err != nil {
		t.Fatal(err)
	}

	missing := result.Items[1]
	if missing.Name != "既往歴" {
		t.Fatalf("item order wrong: %q", missing.Name)
	}
	if missing.RawText != nil {
		t.Errorf("raw text = %q, want nil", *missing.RawText)
	}
	// Fields without a transcription always go to review.
	if !missing.NeedsReview {
		t.Error("field with nil raw text not flagged for review")
	}
}

func TestPipelineSemanticFailureDegrades(t *testing.T) {
	chat := &scriptedChat{
		responses: []json.RawMessage{
			json.RawMessage(`[{"item_name":"主訴","raw_text":"頭痛"}]`),
			json.RawMessage(`[{"item_name":"主訴","interpreted_text":"患者は頭痛を訴える"}]`),
		},
	}
	emb := &providers.MockEmbedder{Err: errors.New("backend down")}
	p := newTestPipeline(t, chat, emb)

	result, err := p.Run(context.Background(), Request{
		Image:  []byte("img"),
		Fields: []string{"主訴"},
	})
	if err != nil {
		t.Fatal(err)
	}

	it := result.Items[0]
	if !it.ScoreIncomplete {
		t.Error("expected incomplete score")
	}
	if !it.NeedsReview {
		t.Error("incomplete field not flagged for review")
	}
	if it.TextScore <= 0 {
		t.Errorf("textual score lost: %v", it.TextScore)
	}
	if !strings.Contains(it.Warning, "semantic similarity unavailable") {
		t.Errorf("warning = %q", it.Warning)
	}
	if !result.Incomplete {
		t.Error("result not marked incomplete")
	}
}

func TestPipelineThresholdsApplied(t *testing.T) {
	chat := &scriptedChat{
		responses: []json.RawMessage{
			json.RawMessage(`[{"item_name":"主訴","raw_text":"田中太郎"}]`),
			json.RawMessage(`[{"item_name":"主訴","interpreted_text":"田中太朗"}]`),
		},
	}
	p := newTestPipeline(t, chat, &providers.MockEmbedder{})

	// One character differs out of four: textual score 0.75. A lenient
	// text threshold accepts it; the default 0.8 would flag it.
	result, err := p.Run(context.Background(), Request{
		Image:  []byte("img"),
		Fields: []string{"主訴"},
		Thresholds: map[string]review.FieldThresholds{
			"主訴": {Text: 0.5, Semantic: 0.5},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Items[0].TextScore != 0.75 {
		t.Errorf("text score = %v, want 0.75", result.Items[0].TextScore)
	}
	if result.Items[0].NeedsReview {
		t.Error("field flagged despite lenient thresholds")
	}
}

func TestPipelineInterpretFailureCarriesRaw(t *testing.T) {
	chat := &scriptedChat{
		responses: []json.RawMessage{
			json.RawMessage(`[{"item_name":"主訴","raw_text":"頭痛"}]`),
		},
		errs: []error{nil, errors.New("model down")},
	}
	p := newTestPipeline(t, chat, &providers.MockEmbedder{})

	result, err := p.Run(context.Background(), Request{
		Image:  []byte("img"),
		Fields: []string{"主訴"},
	})
	if err != nil {
		t.Fatal(err)
	}

	it := result.Items[0]
	if it.InterpretedText == nil || *it.InterpretedText != "頭痛" {
		t.Errorf("interpreted text not carried over: %v", it.InterpretedText)
	}
	if !it.ScoreIncomplete {
		t.Error("degraded field not marked incomplete")
	}
	if !it.NeedsReview {
		t.Error("degraded field not flagged for review")
	}
	if !strings.Contains(it.Warning, "interpretation unavailable") {
		t.Errorf("warning = %q", it.Warning)
	}
	if !result.Incomplete {
		t.Error("result not marked incomplete")
	}
}

func TestPipelineChatFailureAborts(t *testing.T) {
	chat := &scriptedChat{errs: []error{errors.New("model down")}}
	p := newTestPipeline(t, chat, &providers.MockEmbedder{})

	_, err := p.Run(context.Background(), Request{Image: []byte("img")})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "transcription phase") {
		t.Errorf("error = %v", err)
	}
}
