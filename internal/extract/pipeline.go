// Package extract runs the two-phase chart extraction pipeline:
// transcribe the chart image, interpret the transcription, then score
// every raw/interpreted pair and gate fields for human review.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kartescan/kartescan/internal/providers"
	"github.com/kartescan/kartescan/internal/review"
	"github.com/kartescan/kartescan/internal/similarity"
)

const defaultSemanticWorkers = 4

// Config assembles a pipeline.
type Config struct {
	Chat   providers.ChatClient
	Engine *similarity.Engine
	Logger *slog.Logger
	// Model overrides the chat client's default model.
	Model string
	// SemanticWorkers bounds concurrent semantic scoring calls (default 4).
	SemanticWorkers int
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	chat    providers.ChatClient
	engine  *similarity.Engine
	logger  *slog.Logger
	model   string
	workers int
}

// New creates a pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Chat == nil {
		return nil, fmt.Errorf("chat client is required")
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("similarity engine is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := cfg.SemanticWorkers
	if workers <= 0 {
		workers = defaultSemanticWorkers
	}
	return &Pipeline{
		chat:    cfg.Chat,
		engine:  cfg.Engine,
		logger:  logger.With("component", "extract"),
		model:   cfg.Model,
		workers: workers,
	}, nil
}

// Request is one extraction run.
type Request struct {
	ChartID string
	Image   []byte
	// Fields to extract; empty falls back to DefaultFieldNames.
	Fields []string
	// Thresholds is the per-field review gate lookup; fields absent from
	// the map use the defaults.
	Thresholds map[string]review.FieldThresholds
}

// Result is the outcome of one extraction run.
type Result struct {
	Items             []review.Item
	OverallConfidence float64
	// Incomplete is set when any field's semantic score was unavailable.
	Incomplete bool

	Provider         string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Duration         time.Duration
}

// Run executes both model phases and scoring. Model-call failure aborts
// the run; semantic-scoring failure degrades it (fields keep their
// textual score and are forced to review).
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	fields := req.Fields
	if len(fields) == 0 {
		fields = DefaultFieldNames
	}

	log := p.logger.With("chart_id", req.ChartID)
	log.Info("extraction started", "fields", len(fields))

	raw, usage1, err := p.transcribe(ctx, req.Image, fields)
	if err != nil {
		return nil, fmt.Errorf("transcription phase: %w", err)
	}

	// Interpretation failure degrades the run instead of aborting it:
	// the raw transcription is carried over and every field is forced
	// to review.
	interpreted, usage2, err := p.interpret(ctx, raw)
	degraded := false
	if err != nil {
		log.Warn("interpretation phase failed, carrying raw transcription", "error", err)
		interpreted = carryOverRaw(raw)
		degraded = true
	}

	items := p.score(ctx, fields, raw, interpreted)
	if degraded {
		for i := range items {
			items[i].ScoreIncomplete = true
			if items[i].Warning == "" {
				items[i].Warning = "interpretation unavailable, raw transcription carried over"
			}
		}
	}
	items = review.Process(items, req.Thresholds)

	result := &Result{
		Items:             items,
		OverallConfidence: review.OverallConfidence(items),
		Provider:          usage1.provider,
		Model:             usage1.model,
		PromptTokens:      usage1.prompt + usage2.prompt,
		CompletionTokens:  usage1.completion + usage2.completion,
		TotalTokens:       usage1.total + usage2.total,
		Duration:          time.Since(start),
	}
	for _, it := range items {
		if it.ScoreIncomplete {
			result.Incomplete = true
			break
		}
	}

	log.Info("extraction finished",
		"fields", len(items),
		"overall_confidence", result.OverallConfidence,
		"incomplete", result.Incomplete,
		"duration", result.Duration)
	return result, nil
}

type usage struct {
	provider   string
	model      string
	prompt     int
	completion int
	total      int
}

// transcribe runs phase one against the chart image.
func (p *Pipeline) transcribe(ctx context.Context, image []byte, fields []string) ([]rawField, usage, error) {
	result, err := p.chat.Chat(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: ExtractionSystemPrompt()},
			{Role: "user", Content: ExtractionUserPrompt(fields), Images: [][]byte{image}},
		},
		Model:          p.model,
		ResponseFormat: &providers.ResponseFormat{Type: "json_schema", JSONSchema: ExtractionSchema},
		RequestID:      uuid.NewString(),
	})
	if err != nil {
		return nil, usage{}, err
	}

	var raw []rawField
	if err := json.Unmarshal(result.ParsedJSON, &raw); err != nil {
		return nil, usage{}, fmt.Errorf("failed to parse transcription output: %w", err)
	}

	return alignRaw(fields, raw), usageFrom(result), nil
}

// interpret runs phase two over the transcriptions.
func (p *Pipeline) interpret(ctx context.Context, raw []rawField) ([]interpretedField, usage, error) {
	transcriptionsJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, usage{}, fmt.Errorf("failed to encode transcriptions: %w", err)
	}

	result, err := p.chat.Chat(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: InterpretationSystemPrompt()},
			{Role: "user", Content: InterpretationUserPrompt(string(transcriptionsJSON))},
		},
		Model:          p.model,
		ResponseFormat: &providers.ResponseFormat{Type: "json_schema", JSONSchema: InterpretationSchema},
		RequestID:      uuid.NewString(),
	})
	if err != nil {
		return nil, usage{}, err
	}

	var interpreted []interpretedField
	if err := json.Unmarshal(result.ParsedJSON, &interpreted); err != nil {
		return nil, usage{}, fmt.Errorf("failed to parse interpretation output: %w", err)
	}
	return interpreted, usageFrom(result), nil
}

// score computes both similarity signals per field with bounded
// concurrency, preserving field order.
func (p *Pipeline) score(ctx context.Context, fields []string, raw []rawField, interpreted []interpretedField) []review.Item {
	rawByName := make(map[string]*string, len(raw))
	for _, r := range raw {
		rawByName[r.ItemName] = r.RawText
	}
	interpByName := make(map[string]*string, len(interpreted))
	for _, i := range interpreted {
		interpByName[i.ItemName] = i.InterpretedText
	}

	items := make([]review.Item, len(fields))
	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup

	for idx, name := range fields {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, name string) {
			defer wg.Done()
			defer func() { <-sem }()

			rawText := rawByName[name]
			interpretedText := interpByName[name]
			scores := p.engine.ScorePair(ctx, rawText, interpretedText)

			if !scores.Complete {
				p.logger.Warn("semantic scoring unavailable",
					"field", name, "warning", scores.Warning)
			}

			items[idx] = review.Item{
				Name:            name,
				RawText:         rawText,
				InterpretedText: interpretedText,
				TextScore:       scores.Text,
				SemanticScore:   scores.Semantic,
				ScoreIncomplete: !scores.Complete,
				Warning:         scores.Warning,
			}
		}(idx, name)
	}
	wg.Wait()

	return items
}

// alignRaw maps model output onto the requested field list: every
// requested field appears exactly once, in order, with null raw text for
// fields the model omitted.
func alignRaw(fields []string, raw []rawField) []rawField {
	byName := make(map[string]*string, len(raw))
	for _, r := range raw {
		if _, seen := byName[r.ItemName]; !seen {
			byName[r.ItemName] = r.RawText
		}
	}

	out := make([]rawField, len(fields))
	for i, name := range fields {
		out[i] = rawField{ItemName: name, RawText: byName[name]}
	}
	return out
}

// carryOverRaw substitutes the raw transcription for the interpretation.
func carryOverRaw(raw []rawField) []interpretedField {
	out := make([]interpretedField, len(raw))
	for i, r := range raw {
		out[i] = interpretedField{ItemName: r.ItemName, InterpretedText: r.RawText}
	}
	return out
}

func usageFrom(r *providers.ChatResult) usage {
	return usage{
		provider:   r.Provider,
		model:      r.ModelUsed,
		prompt:     r.PromptTokens,
		completion: r.CompletionTokens,
		total:      r.TotalTokens,
	}
}
