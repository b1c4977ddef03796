package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kartescan/kartescan/internal/extract"
	"github.com/kartescan/kartescan/internal/review"
	"github.com/kartescan/kartescan/internal/storage"
	"github.com/kartescan/kartescan/internal/store"
)

// memStore is an in-memory ChartStore for tests.
type memStore struct {
	mu        sync.Mutex
	charts    map[string]*store.Chart
	templates map[string]*store.Template
	fields    map[string][]store.ExtractedField
	statuses  map[string][]store.ProcessStatus
}

func newMemStore() *memStore {
	return &memStore{
		charts:    make(map[string]*store.Chart),
		templates: make(map[string]*store.Template),
		fields:    make(map[string][]store.ExtractedField),
		statuses:  make(map[string][]store.ProcessStatus),
	}
}

func (s *memStore) GetChart(id string) (*store.Chart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.charts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (s *memStore) GetTemplate(id string) (*store.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return t, nil
}

func (s *memStore) UpdateChartStatus(id string, status store.ProcessStatus, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.charts[id]
	if !ok {
		return store.ErrNotFound
	}
	c.Status = status
	c.ErrorMessage = errorMessage
	s.statuses[id] = append(s.statuses[id], status)
	return nil
}

func (s *memStore) ReplaceResult(chartID string, _ *store.ExtractionResult, fields []store.ExtractedField, overall float64, status store.ProcessStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.charts[chartID]
	if !ok {
		return store.ErrNotFound
	}
	s.fields[chartID] = fields
	c.Status = status
	c.OverallConfidence = &overall
	s.statuses[chartID] = append(s.statuses[chartID], status)
	return nil
}

// fakeExtractor returns a canned result and records requests.
type fakeExtractor struct {
	mu       sync.Mutex
	result   *extract.Result
	err      error
	delay    time.Duration
	requests []extract.Request
	inFlight int
	maxSeen  int
}

func (f *fakeExtractor) Run(ctx context.Context, req extract.Request) (*extract.Result, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func okResult() *extract.Result {
	raw := "頭痛"
	return &extract.Result{
		Items: []review.Item{
			{Name: "主訴", RawText: &raw, InterpretedText: &raw, TextScore: 1, SemanticScore: 1},
		},
		OverallConfidence: 1.0,
	}
}

func newTestManager(t *testing.T, ms *memStore, ext Extractor) (*Manager, storage.Store) {
	t.Helper()
	blobs, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewManager(Config{
		Store:     ms,
		Blobs:     blobs,
		Extractor: ext,
	})
	if err != nil {
		t.Fatal(err)
	}
	return m, blobs
}

func seedChart(t *testing.T, ms *memStore, blobs storage.Store, id string, templateID *string) {
	t.Helper()
	ms.charts[id] = &store.Chart{ID: id, BlobKey: id + ".jpg", TemplateID: templateID}
	if err := blobs.Put(context.Background(), id+".jpg", strings.NewReader("jpeg-bytes"), "image/jpeg"); err != nil {
		t.Fatal(err)
	}
}

func TestProcessCompletes(t *testing.T) {
	ms := newMemStore()
	ext := &fakeExtractor{result: okResult()}
	m, blobs := newTestManager(t, ms, ext)
	seedChart(t, ms, blobs, "c1", nil)

	if err := m.Process(context.Background(), "c1"); err != nil {
		t.Fatal(err)
	}

	chart := ms.charts["c1"]
	if chart.Status != store.StatusCompleted {
		t.Errorf("status = %s, want COMPLETED", chart.Status)
	}
	if len(ms.fields["c1"]) != 1 {
		t.Errorf("stored fields = %d, want 1", len(ms.fields["c1"]))
	}
	if chart.OverallConfidence == nil || *chart.OverallConfidence != 1.0 {
		t.Error("overall confidence not stored")
	}

	// PROCESSING must precede the terminal status.
	seen := ms.statuses["c1"]
	if len(seen) < 2 || seen[0] != store.StatusProcessing {
		t.Errorf("status sequence = %v", seen)
	}
}

func TestProcessPartialSuccess(t *testing.T) {
	ms := newMemStore()
	result := okResult()
	result.Incomplete = true
	result.Items[0].ScoreIncomplete = true
	ext := &fakeExtractor{result: result}
	m, blobs := newTestManager(t, ms, ext)
	seedChart(t, ms, blobs, "c1", nil)

	if err := m.Process(context.Background(), "c1"); err != nil {
		t.Fatal(err)
	}
	if got := ms.charts["c1"].Status; got != store.StatusPartialSuccess {
		t.Errorf("status = %s, want PARTIAL_SUCCESS", got)
	}
	if ms.charts["c1"].ErrorMessage == "" {
		t.Error("expected degradation note in error message")
	}
}

func TestProcessFailureMarksChart(t *testing.T) {
	ms := newMemStore()
	ext := &fakeExtractor{err: errors.New("model down")}
	m, blobs := newTestManager(t, ms, ext)
	seedChart(t, ms, blobs, "c1", nil)

	if err := m.Process(context.Background(), "c1"); err == nil {
		t.Fatal("expected error")
	}
	chart := ms.charts["c1"]
	if chart.Status != store.StatusFailed {
		t.Errorf("status = %s, want FAILED", chart.Status)
	}
	if !strings.Contains(chart.ErrorMessage, "model down") {
		t.Errorf("error message = %q", chart.ErrorMessage)
	}
}

func TestProcessUsesTemplate(t *testing.T) {
	ms := newMemStore()
	tplID := "tpl-1"
	ms.templates[tplID] = &store.Template{
		ID: tplID,
		Items: []store.TemplateItem{
			{Name: "血圧", TextThreshold: 0.9, SemanticThreshold: 0.6},
			{Name: "脈拍", TextThreshold: 0.8, SemanticThreshold: 0.8},
		},
	}
	ext := &fakeExtractor{result: okResult()}
	m, blobs := newTestManager(t, ms, ext)
	seedChart(t, ms, blobs, "c1", &tplID)

	if err := m.Process(context.Background(), "c1"); err != nil {
		t.Fatal(err)
	}

	req := ext.requests[0]
	if len(req.Fields) != 2 || req.Fields[0] != "血圧" {
		t.Errorf("fields = %v", req.Fields)
	}
	if th := req.Thresholds["血圧"]; th.Text != 0.9 || th.Semantic != 0.6 {
		t.Errorf("thresholds = %+v", th)
	}
}

func TestSameChartSerializes(t *testing.T) {
	ms := newMemStore()
	ext := &fakeExtractor{result: okResult(), delay: 30 * time.Millisecond}
	m, blobs := newTestManager(t, ms, ext)
	seedChart(t, ms, blobs, "c1", nil)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Process(context.Background(), "c1")
		}()
	}
	wg.Wait()

	if ext.maxSeen != 1 {
		t.Errorf("concurrent runs for one chart = %d, want 1", ext.maxSeen)
	}
	if len(ext.requests) != 3 {
		t.Errorf("runs = %d, want 3", len(ext.requests))
	}
}

func TestEnqueueAndWorkers(t *testing.T) {
	ms := newMemStore()
	ext := &fakeExtractor{result: okResult()}
	m, blobs := newTestManager(t, ms, ext)
	seedChart(t, ms, blobs, "c1", nil)
	seedChart(t, ms, blobs, "c2", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	if err := m.Enqueue("c1"); err != nil {
		t.Fatal(err)
	}
	if err := m.Enqueue("c2"); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for {
		ms.mu.Lock()
		done := ms.charts["c1"].Status == store.StatusCompleted &&
			ms.charts["c2"].Status == store.StatusCompleted
		ms.mu.Unlock()
		if done {
			break
		}
		select {
		case <-deadline:
			t.Fatal("charts not processed in time")
		case <-time.After(10 * time.Millisecond):
		}
	}

	m.Stop()
}
