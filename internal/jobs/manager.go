// Package jobs runs chart extraction in the background: a bounded worker
// pool drains a queue of chart IDs, with per-chart serialization so a
// reprocess request can never race an in-flight run of the same chart.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/kartescan/kartescan/internal/extract"
	"github.com/kartescan/kartescan/internal/pdfutil"
	"github.com/kartescan/kartescan/internal/review"
	"github.com/kartescan/kartescan/internal/storage"
	"github.com/kartescan/kartescan/internal/store"
)

// ErrQueueFull is returned when the job queue cannot accept more work.
var ErrQueueFull = errors.New("job queue full")

// ChartStore is the slice of the persistence layer the manager needs.
type ChartStore interface {
	GetChart(id string) (*store.Chart, error)
	GetTemplate(id string) (*store.Template, error)
	UpdateChartStatus(id string, status store.ProcessStatus, errorMessage string) error
	ReplaceResult(chartID string, result *store.ExtractionResult, fields []store.ExtractedField, overallConfidence float64, status store.ProcessStatus) error
}

// Extractor runs the extraction pipeline. Satisfied by extract.Pipeline.
type Extractor interface {
	Run(ctx context.Context, req extract.Request) (*extract.Result, error)
}

// Config assembles a manager.
type Config struct {
	Store     ChartStore
	Blobs     storage.Store
	Extractor Extractor
	Logger    *slog.Logger
	// Workers is the number of concurrent extraction runs (default 2).
	Workers int
	// QueueSize bounds pending charts (default 100).
	QueueSize int
}

// Manager owns the background extraction workers.
type Manager struct {
	store     ChartStore
	blobs     storage.Store
	extractor Extractor
	logger    *slog.Logger

	queue   chan string
	workers int

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	wg      sync.WaitGroup
	started bool
}

// NewManager creates a manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if cfg.Extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}

	return &Manager{
		store:     cfg.Store,
		blobs:     cfg.Blobs,
		extractor: cfg.Extractor,
		logger:    logger.With("component", "jobs"),
		queue:     make(chan string, queueSize),
		workers:   workers,
		locks:     make(map[string]*sync.Mutex),
	}, nil
}

// Start launches the worker pool. Workers exit when ctx is cancelled and
// the queue is drained or closed.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	for i := 0; i < m.workers; i++ {
		m.wg.Add(1)
		go m.worker(ctx, i)
	}
	m.logger.Info("job workers started", "workers", m.workers)
}

// Stop waits for in-flight jobs to finish. No new work is accepted.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	m.mu.Unlock()

	close(m.queue)
	m.wg.Wait()
	m.logger.Info("job workers stopped")
}

// Enqueue marks the chart pending and queues it for extraction.
func (m *Manager) Enqueue(chartID string) error {
	if err := m.store.UpdateChartStatus(chartID, store.StatusPending, ""); err != nil {
		return err
	}
	select {
	case m.queue <- chartID:
		m.logger.Info("chart queued", "chart_id", chartID)
		return nil
	default:
		return ErrQueueFull
	}
}

func (m *Manager) worker(ctx context.Context, id int) {
	defer m.wg.Done()
	log := m.logger.With("worker", id)

	for {
		select {
		case <-ctx.Done():
			return
		case chartID, ok := <-m.queue:
			if !ok {
				return
			}
			if err := m.Process(ctx, chartID); err != nil {
				log.Error("chart processing failed", "chart_id", chartID, "error", err)
			}
		}
	}
}

// Process runs extraction for one chart synchronously. Concurrent calls
// for the same chart serialize; other charts proceed in parallel.
func (m *Manager) Process(ctx context.Context, chartID string) error {
	lock := m.chartLock(chartID)
	lock.Lock()
	defer lock.Unlock()

	err := m.process(ctx, chartID)
	if err != nil {
		if updErr := m.store.UpdateChartStatus(chartID, store.StatusFailed, err.Error()); updErr != nil {
			m.logger.Error("failed to record failure", "chart_id", chartID, "error", updErr)
		}
	}
	return err
}

func (m *Manager) process(ctx context.Context, chartID string) error {
	chart, err := m.store.GetChart(chartID)
	if err != nil {
		return err
	}

	if err := m.store.UpdateChartStatus(chartID, store.StatusProcessing, ""); err != nil {
		return err
	}

	image, err := m.loadImage(ctx, chart)
	if err != nil {
		return err
	}

	fields, thresholds, err := m.resolveTemplate(chart)
	if err != nil {
		return err
	}

	result, err := m.extractor.Run(ctx, extract.Request{
		ChartID:    chartID,
		Image:      image,
		Fields:     fields,
		Thresholds: thresholds,
	})
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	status := store.StatusCompleted
	errorMessage := ""
	if result.Incomplete {
		status = store.StatusPartialSuccess
		errorMessage = "semantic scoring unavailable for some fields"
	}
	_ = errorMessage

	run := &store.ExtractionResult{
		Provider:         result.Provider,
		Model:            result.Model,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		TotalTokens:      result.TotalTokens,
		DurationMS:       result.Duration.Milliseconds(),
		Incomplete:       result.Incomplete,
	}

	rows := make([]store.ExtractedField, len(result.Items))
	for i, it := range result.Items {
		rows[i] = store.FieldFromItem(chartID, i, it)
	}

	if err := m.store.ReplaceResult(chartID, run, rows, result.OverallConfidence, status); err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}
	return nil
}

// loadImage fetches the uploaded blob, rendering the first page when the
// upload is a PDF.
func (m *Manager) loadImage(ctx context.Context, chart *store.Chart) ([]byte, error) {
	rc, err := m.blobs.Get(ctx, chart.BlobKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load upload: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	if pdfutil.IsPDF(data) {
		png, err := pdfutil.RenderFirstPage(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("failed to render PDF: %w", err)
		}
		return png, nil
	}
	return data, nil
}

// resolveTemplate returns the field names and thresholds for a chart.
// Charts without a template use the default field set with default
// thresholds.
func (m *Manager) resolveTemplate(chart *store.Chart) ([]string, map[string]review.FieldThresholds, error) {
	if chart.TemplateID == nil {
		return nil, nil, nil
	}

	tpl, err := m.store.GetTemplate(*chart.TemplateID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load template: %w", err)
	}

	fields := make([]string, len(tpl.Items))
	for i, it := range tpl.Items {
		fields[i] = it.Name
	}
	return fields, store.ThresholdMap(tpl.Items), nil
}

func (m *Manager) chartLock(chartID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[chartID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[chartID] = l
	}
	return l
}
