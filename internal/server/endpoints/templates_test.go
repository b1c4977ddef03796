package endpoints

import (
	"testing"

	"github.com/kartescan/kartescan/internal/review"
	"github.com/kartescan/kartescan/internal/store"
)

func TestTemplateRequestValidate(t *testing.T) {
	bad := 1.5
	tests := []struct {
		name string
		req  TemplateRequest
		ok   bool
	}{
		{
			name: "valid",
			req: TemplateRequest{
				Name:  "internal medicine",
				Items: []TemplateItemRequest{{Name: "主訴"}, {Name: "現病歴"}},
			},
			ok: true,
		},
		{
			name: "missing name",
			req:  TemplateRequest{Items: []TemplateItemRequest{{Name: "主訴"}}},
		},
		{
			name: "no items",
			req:  TemplateRequest{Name: "empty"},
		},
		{
			name: "duplicate item",
			req: TemplateRequest{
				Name:  "dup",
				Items: []TemplateItemRequest{{Name: "主訴"}, {Name: "主訴"}},
			},
		},
		{
			name: "threshold out of range",
			req: TemplateRequest{
				Name:  "range",
				Items: []TemplateItemRequest{{Name: "主訴", TextThreshold: &bad}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.req.validate()
			if tt.ok && msg != "" {
				t.Errorf("validate() = %q, want valid", msg)
			}
			if !tt.ok && msg == "" {
				t.Error("validate() passed, want error")
			}
		})
	}
}

func TestTemplateRequestToModel(t *testing.T) {
	strict := 0.95
	req := TemplateRequest{
		Name: "cardiology",
		Items: []TemplateItemRequest{
			{Name: "主訴", TextThreshold: &strict},
			{Name: "血圧"},
		},
	}

	tpl := req.toModel("tpl-1")
	if tpl.ID != "tpl-1" {
		t.Errorf("id = %q, want tpl-1", tpl.ID)
	}
	if len(tpl.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(tpl.Items))
	}
	if tpl.Items[0].TextThreshold != 0.95 {
		t.Errorf("text threshold = %v, want 0.95", tpl.Items[0].TextThreshold)
	}
	if tpl.Items[0].SemanticThreshold != review.DefaultSemanticThreshold {
		t.Errorf("semantic threshold = %v, want default", tpl.Items[0].SemanticThreshold)
	}
	if tpl.Items[1].TextThreshold != review.DefaultTextThreshold {
		t.Errorf("unset text threshold = %v, want default", tpl.Items[1].TextThreshold)
	}
}

func TestThresholdEntriesRoundTrip(t *testing.T) {
	in := map[string]review.FieldThresholds{
		"主訴": {Text: 0.9, Semantic: 0.7},
	}
	out := thresholdEntries(in)
	if got := out["主訴"]; got.Text != 0.9 || got.Semantic != 0.7 {
		t.Errorf("entry = %+v, want {0.9 0.7}", got)
	}
}

func TestChartResponseFields(t *testing.T) {
	conf := 0.92
	chart := &store.Chart{
		ID:                "c1",
		Filename:          "chart.pdf",
		Status:            store.StatusCompleted,
		OverallConfidence: &conf,
		Fields:            []store.ExtractedField{{Name: "主訴"}},
	}

	withFields := chartResponse(chart, true)
	if len(withFields.Fields) != 1 {
		t.Errorf("fields = %d, want 1", len(withFields.Fields))
	}

	without := chartResponse(chart, false)
	if len(without.Fields) != 0 {
		t.Errorf("fields = %d, want 0", len(without.Fields))
	}
	if without.OverallConfidence == nil || *without.OverallConfidence != 0.92 {
		t.Error("overall confidence not carried")
	}
}
