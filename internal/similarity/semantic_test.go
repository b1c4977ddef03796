package similarity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// fakeEmbedder returns deterministic unit vectors so cosine similarity is
// predictable: identical texts map to identical vectors.
type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		// Crude character-histogram embedding; good enough for tests.
		vec := make([]float64, 32)
		for _, r := range text {
			vec[int(r)%32]++
		}
		out[i] = vec
	}
	return out, nil
}

func TestEmbeddingScorerIdenticalShortCircuits(t *testing.T) {
	emb := &fakeEmbedder{}
	scorer, err := NewEmbeddingScorer(EmbeddingScorerConfig{Embedder: emb})
	if err != nil {
		t.Fatal(err)
	}

	got, err := scorer.Score(context.Background(), "頭痛が続く", "頭痛が続く")
	if err != nil {
		t.Fatal(err)
	}
	if got != 1.0 {
		t.Errorf("identical strings scored %v, want 1.0", got)
	}
	if emb.calls != 0 {
		t.Errorf("backend called %d times for identical strings, want 0", emb.calls)
	}
}

func TestEmbeddingScorerSimilarTexts(t *testing.T) {
	scorer, err := NewEmbeddingScorer(EmbeddingScorerConfig{Embedder: &fakeEmbedder{}})
	if err != nil {
		t.Fatal(err)
	}

	near, err := scorer.Score(context.Background(), "abcdef", "abcdeg")
	if err != nil {
		t.Fatal(err)
	}
	far, err := scorer.Score(context.Background(), "abcdef", "zzzzzz")
	if err != nil {
		t.Fatal(err)
	}

	if near <= far {
		t.Errorf("expected similar pair (%v) to outscore dissimilar pair (%v)", near, far)
	}
	for _, s := range []float64{near, far} {
		if s < 0 || s > 1 {
			t.Errorf("score out of bounds: %v", s)
		}
	}
}

func TestEmbeddingScorerBackendFailure(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("model overloaded")}
	scorer, err := NewEmbeddingScorer(EmbeddingScorerConfig{
		Embedder:   emb,
		Retries:    2,
		RetryDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = scorer.Score(context.Background(), "a text", "b text")
	if !errors.Is(err, ErrSemanticUnavailable) {
		t.Fatalf("expected ErrSemanticUnavailable, got %v", err)
	}
	if emb.calls != 3 {
		t.Errorf("expected 3 attempts (1 + 2 retries), got %d", emb.calls)
	}
}

func TestSemanticSimilarityNilRules(t *testing.T) {
	scorer, _ := NewEmbeddingScorer(EmbeddingScorerConfig{Embedder: &fakeEmbedder{}})

	tests := []struct {
		name string
		a, b *string
		want float64
	}{
		{"both nil", nil, nil, 1.0},
		{"one nil", nil, strPtr("x"), 0.0},
		{"both empty", strPtr(""), strPtr(""), 1.0},
		{"one empty", strPtr("x"), strPtr(""), 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SemanticSimilarity(context.Background(), scorer, tt.a, tt.b)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEngineScorePair(t *testing.T) {
	t.Run("complete scoring", func(t *testing.T) {
		scorer, _ := NewEmbeddingScorer(EmbeddingScorerConfig{Embedder: &fakeEmbedder{}})
		engine := NewEngine(scorer, time.Second)

		raw, interp := "田中太郎", "田中太朗"
		s := engine.ScorePair(context.Background(), &raw, &interp)

		if !s.Complete {
			t.Fatalf("expected complete scores, warning: %s", s.Warning)
		}
		if s.Text != 0.75 {
			t.Errorf("text score = %v, want 0.75", s.Text)
		}
		if s.Semantic < 0 || s.Semantic > 1 {
			t.Errorf("semantic score out of bounds: %v", s.Semantic)
		}
	})

	t.Run("semantic failure keeps textual score", func(t *testing.T) {
		scorer, _ := NewEmbeddingScorer(EmbeddingScorerConfig{
			Embedder:   &fakeEmbedder{err: errors.New("timeout")},
			RetryDelay: time.Millisecond,
		})
		engine := NewEngine(scorer, time.Second)

		raw, interp := "kitten", "sitting"
		s := engine.ScorePair(context.Background(), &raw, &interp)

		if s.Complete {
			t.Fatal("expected incomplete scores on backend failure")
		}
		if s.Text == 0 {
			t.Error("textual score should survive semantic failure")
		}
		if !strings.Contains(s.Warning, "semantic similarity unavailable") {
			t.Errorf("warning should carry backend error, got %q", s.Warning)
		}
	})
}
