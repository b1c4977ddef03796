package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/kartescan/kartescan/internal/api"
	"github.com/kartescan/kartescan/internal/svcctx"
)

// GetChartEndpoint handles GET /api/charts/{id}.
type GetChartEndpoint struct{}

var _ api.Endpoint = (*GetChartEndpoint)(nil)

func (e *GetChartEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/charts/{id}", e.handler
}

func (e *GetChartEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get chart by ID
//	@Description	Get a chart with its extracted fields and scores
//	@Tags			charts
//	@Produce		json
//	@Param			id	path		string	true	"Chart ID"
//	@Success		200	{object}	ChartResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/charts/{id} [get]
func (e *GetChartEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "chart id is required")
		return
	}

	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	chart, err := st.GetChart(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chartResponse(chart, true))
}

func (e *GetChartEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a chart by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())
			var chart ChartResponse
			if err := client.Get(ctx, "/api/charts/"+args[0], &chart); err != nil {
				return err
			}
			return api.Output(chart)
		},
	}
}
