package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/kartescan/kartescan/internal/store"
)

func TestChartCSV(t *testing.T) {
	raw := "頭痛"
	interp := "患者は頭痛を訴える"
	reviewer := "tanaka"

	chart := &store.Chart{
		ID: "c1",
		Fields: []store.ExtractedField{
			{
				Name:            "主訴",
				RawText:         &raw,
				InterpretedText: &interp,
				TextScore:       0.75,
				SemanticScore:   0.91,
				NeedsReview:     true,
				ReviewedBy:      &reviewer,
			},
			{Name: "既往歴"},
		},
	}

	data, err := ChartCSV(chart)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		t.Error("missing UTF-8 BOM")
	}

	r := csv.NewReader(bytes.NewReader(data[3:]))
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[0][0] != "item_name" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "主訴" || rows[1][1] != raw || rows[1][2] != interp {
		t.Errorf("row = %v", rows[1])
	}
	if rows[1][3] != "0.7500" || rows[1][4] != "0.9100" {
		t.Errorf("scores = %v %v", rows[1][3], rows[1][4])
	}
	if rows[1][5] != "true" || rows[1][6] != "tanaka" {
		t.Errorf("review columns = %v", rows[1][5:])
	}

	// Null text renders as empty cells.
	if rows[2][1] != "" || rows[2][2] != "" {
		t.Errorf("null row = %v", rows[2])
	}
}

func TestFilename(t *testing.T) {
	got := Filename(&store.Chart{ID: "abc"})
	if !strings.HasPrefix(got, "chart-abc") || !strings.HasSuffix(got, ".csv") {
		t.Errorf("filename = %q", got)
	}
}
