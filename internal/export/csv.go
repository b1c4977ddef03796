// Package export renders extraction results for download.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/kartescan/kartescan/internal/store"
)

// utf8BOM makes spreadsheet applications detect the encoding; exports
// are routinely opened in Excel with Japanese field content.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var csvHeader = []string{
	"item_name",
	"raw_text",
	"interpreted_text",
	"similarity_score",
	"semantic_similarity_score",
	"needs_review",
	"reviewed_by",
	"review_comment",
}

// ChartCSV renders a chart's field set as a UTF-8 BOM CSV document.
func ChartCSV(chart *store.Chart) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, f := range chart.Fields {
		row := []string{
			f.Name,
			derefOr(f.RawText, ""),
			derefOr(f.InterpretedText, ""),
			formatScore(f.TextScore),
			formatScore(f.SemanticScore),
			strconv.FormatBool(f.NeedsReview),
			derefOr(f.ReviewedBy, ""),
			derefOr(f.ReviewComment, ""),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename returns the download filename for a chart export.
func Filename(chart *store.Chart) string {
	return fmt.Sprintf("chart-%s.csv", chart.ID)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
