package endpoints

import (
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kartescan/kartescan/internal/api"
	"github.com/kartescan/kartescan/internal/svcctx"
)

// ListChartsEndpoint handles GET /api/charts.
type ListChartsEndpoint struct{}

var _ api.Endpoint = (*ListChartsEndpoint)(nil)

func (e *ListChartsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/charts", e.handler
}

func (e *ListChartsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List charts
//	@Description	List uploaded charts, newest first
//	@Tags			charts
//	@Produce		json
//	@Param			limit	query		int	false	"Max results (default 50)"
//	@Param			offset	query		int	false	"Offset for pagination"
//	@Success		200	{array}		ChartResponse
//	@Failure		500	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/charts [get]
func (e *ListChartsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	charts, err := st.ListCharts(limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]ChartResponse, len(charts))
	for i := range charts {
		out[i] = chartResponse(&charts[i], false)
	}
	writeJSON(w, http.StatusOK, out)
}

func (e *ListChartsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List charts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())
			var charts []ChartResponse
			if err := client.Get(ctx, "/api/charts", &charts); err != nil {
				return err
			}
			return api.Output(charts)
		},
	}
}
