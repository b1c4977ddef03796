// Package pdfutil handles PDF chart uploads: validation and rendering
// the first page to a PNG image suitable for model input.
package pdfutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PageCount validates the PDF and returns its page count.
func PageCount(data []byte) (int, error) {
	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return 0, fmt.Errorf("invalid PDF: %w", err)
	}
	if count == 0 {
		return 0, fmt.Errorf("PDF has no pages")
	}
	return count, nil
}

// RenderFirstPage renders page 1 of the PDF to PNG bytes using pdftoppm
// (poppler-utils). Rendering the page is correct where pdfcpu's image
// extraction is not: extraction pulls embedded image objects whose
// numbering may not match page order.
func RenderFirstPage(ctx context.Context, data []byte) ([]byte, error) {
	if _, err := PageCount(data); err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp("", "kartescan-page-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "chart.pdf")
	if err := os.WriteFile(pdfPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}

	outputPrefix := filepath.Join(tmpDir, "page")

	// -r 300: DPI high enough for handwriting OCR
	// -singlefile: no page number suffix on the output name
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png",
		"-f", "1",
		"-l", "1",
		"-r", "300",
		"-singlefile",
		pdfPath,
		outputPrefix,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (%s)", err, stderr.String())
	}

	png, err := os.ReadFile(outputPrefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered page: %w", err)
	}
	return png, nil
}

// IsPDF reports whether the data starts with the PDF magic bytes.
func IsPDF(data []byte) bool {
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}
