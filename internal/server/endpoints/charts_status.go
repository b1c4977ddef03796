package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/kartescan/kartescan/internal/api"
	"github.com/kartescan/kartescan/internal/store"
	"github.com/kartescan/kartescan/internal/svcctx"
)

// ChartStatusResponse reports a chart's processing state.
type ChartStatusResponse struct {
	ID                string              `json:"id"`
	Status            store.ProcessStatus `json:"status"`
	ErrorMessage      string              `json:"error_message,omitempty"`
	OverallConfidence *float64            `json:"overall_confidence,omitempty"`
}

// ChartStatusEndpoint handles GET /api/charts/{id}/status.
type ChartStatusEndpoint struct{}

var _ api.Endpoint = (*ChartStatusEndpoint)(nil)

func (e *ChartStatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/charts/{id}/status", e.handler
}

func (e *ChartStatusEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get chart processing status
//	@Tags			charts
//	@Produce		json
//	@Param			id	path		string	true	"Chart ID"
//	@Success		200	{object}	ChartStatusResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/charts/{id}/status [get]
func (e *ChartStatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	chart, err := st.GetChart(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ChartStatusResponse{
		ID:                chart.ID,
		Status:            chart.Status,
		ErrorMessage:      chart.ErrorMessage,
		OverallConfidence: chart.OverallConfidence,
	})
}

func (e *ChartStatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "chart-status <id>",
		Short: "Get chart processing status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())
			var resp ChartStatusResponse
			if err := client.Get(ctx, "/api/charts/"+args[0]+"/status", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
