package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/kartescan/kartescan/internal/api"
	"github.com/kartescan/kartescan/internal/store"
	"github.com/kartescan/kartescan/internal/svcctx"
)

// ReprocessChartEndpoint handles POST /api/charts/{id}/reprocess.
type ReprocessChartEndpoint struct{}

var _ api.Endpoint = (*ReprocessChartEndpoint)(nil)

func (e *ReprocessChartEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/charts/{id}/reprocess", e.handler
}

func (e *ReprocessChartEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Re-run extraction for a chart
//	@Description	Queues a fresh extraction run. The previous field set, including review annotations, is replaced by the new run's output.
//	@Tags			charts
//	@Produce		json
//	@Param			id	path		string	true	"Chart ID"
//	@Success		202	{object}	UploadResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/charts/{id}/reprocess [post]
func (e *ReprocessChartEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	jm := svcctx.JobManagerFrom(r.Context())
	if st == nil || jm == nil {
		writeError(w, http.StatusServiceUnavailable, "services not initialized")
		return
	}

	id := r.PathValue("id")
	if _, err := st.GetChart(id); err != nil {
		writeStoreError(w, err)
		return
	}

	if err := jm.Enqueue(id); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, UploadResponse{ID: id, Status: string(store.StatusPending)})
}

func (e *ReprocessChartEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "reprocess <id>",
		Short: "Re-run extraction for a chart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())
			var resp UploadResponse
			if err := client.Post(ctx, "/api/charts/"+args[0]+"/reprocess", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
