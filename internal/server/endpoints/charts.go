package endpoints

import (
	"errors"
	"net/http"

	"github.com/kartescan/kartescan/internal/store"
)

// ChartResponse is the API representation of a chart.
type ChartResponse struct {
	ID                string                 `json:"id"`
	Filename          string                 `json:"filename"`
	Status            store.ProcessStatus    `json:"status"`
	TemplateID        *string                `json:"template_id,omitempty"`
	ErrorMessage      string                 `json:"error_message,omitempty"`
	OverallConfidence *float64               `json:"overall_confidence,omitempty"`
	CreatedAt         string                 `json:"created_at"`
	Fields            []store.ExtractedField `json:"fields,omitempty"`
}

func chartResponse(c *store.Chart, includeFields bool) ChartResponse {
	resp := ChartResponse{
		ID:                c.ID,
		Filename:          c.Filename,
		Status:            c.Status,
		TemplateID:        c.TemplateID,
		ErrorMessage:      c.ErrorMessage,
		OverallConfidence: c.OverallConfidence,
		CreatedAt:         c.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if includeFields {
		resp.Fields = c.Fields
	}
	return resp
}

// writeStoreError maps store errors to HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
