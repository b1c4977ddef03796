package similarity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

// ErrSemanticUnavailable is returned when the semantic backend could not
// produce a score. Callers recover locally: the field keeps its textual
// score and is forced into review.
var ErrSemanticUnavailable = errors.New("semantic similarity unavailable")

// SemanticScorer produces a meaning-level closeness score in [0, 1] for a
// pair of strings. Implementations may perform network I/O; callers are
// expected to bound concurrency and apply timeouts.
type SemanticScorer interface {
	// Score returns a bounded [0, 1] similarity. Identical non-empty
	// strings must score 1.0.
	Score(ctx context.Context, a, b string) (float64, error)

	// Name returns the backend identifier (e.g. "embedding", "mock").
	Name() string
}

// Embedder converts texts into embedding vectors, one vector per input.
// Satisfied by the providers package.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float64, error)
}

// EmbeddingScorer scores semantic similarity as the cosine similarity of
// embedding vectors, rescaled from [-1, 1] to [0, 1].
type EmbeddingScorer struct {
	embedder Embedder
	retries  uint
	delay    time.Duration
}

// EmbeddingScorerConfig configures an EmbeddingScorer.
type EmbeddingScorerConfig struct {
	Embedder Embedder
	// Retries is the number of retry attempts on backend failure (default 2).
	Retries uint
	// RetryDelay is the base backoff delay (default 500ms).
	RetryDelay time.Duration
}

// NewEmbeddingScorer creates a scorer backed by an embedding provider.
func NewEmbeddingScorer(cfg EmbeddingScorerConfig) (*EmbeddingScorer, error) {
	if cfg.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if cfg.Retries == 0 {
		cfg.Retries = 2
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	return &EmbeddingScorer{
		embedder: cfg.Embedder,
		retries:  cfg.Retries,
		delay:    cfg.RetryDelay,
	}, nil
}

// Name returns the backend identifier.
func (s *EmbeddingScorer) Name() string { return "embedding" }

// Score embeds both strings and returns their cosine similarity in [0, 1].
// Identical strings short-circuit to 1.0 without calling the backend.
func (s *EmbeddingScorer) Score(ctx context.Context, a, b string) (float64, error) {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)

	if a == b {
		return 1.0, nil
	}
	if a == "" || b == "" {
		return 0.0, nil
	}

	var vectors [][]float64
	err := retry.Do(
		func() error {
			var embedErr error
			vectors, embedErr = s.embedder.EmbedTexts(ctx, []string{a, b})
			return embedErr
		},
		retry.Context(ctx),
		retry.Attempts(s.retries+1),
		retry.Delay(s.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSemanticUnavailable, err)
	}
	if len(vectors) != 2 {
		return 0, fmt.Errorf("%w: expected 2 vectors, got %d", ErrSemanticUnavailable, len(vectors))
	}

	cos, err := cosine(vectors[0], vectors[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSemanticUnavailable, err)
	}

	// Cosine ranges [-1, 1]; review thresholds expect [0, 1].
	return Clamp((cos + 1) / 2), nil
}

// cosine returns the cosine similarity of two equal-length vectors.
func cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector length mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, errors.New("empty embedding vector")
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, errors.New("zero-magnitude embedding vector")
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// SemanticSimilarity applies the engine's nil/empty rules before delegating
// to the scorer backend:
//   - both nil or both empty -> 1.0
//   - exactly one nil/empty  -> 0.0
//
// Backend failure is surfaced so callers can flag the field for review.
func SemanticSimilarity(ctx context.Context, scorer SemanticScorer, rawText, interpretedText *string) (float64, error) {
	if rawText == nil || interpretedText == nil {
		if rawText == nil && interpretedText == nil {
			return 1.0, nil
		}
		return 0.0, nil
	}

	a := strings.TrimSpace(*rawText)
	b := strings.TrimSpace(*interpretedText)
	if a == "" && b == "" {
		return 1.0, nil
	}
	if a == "" || b == "" {
		return 0.0, nil
	}

	score, err := scorer.Score(ctx, a, b)
	if err != nil {
		return 0, err
	}
	return Clamp(score), nil
}
