package endpoints

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kartescan/kartescan/internal/export"
	"github.com/kartescan/kartescan/internal/svcctx"
)

// ChartCSVEndpoint handles GET /api/charts/{id}/csv.
type ChartCSVEndpoint struct{}

func (e *ChartCSVEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/charts/{id}/csv", e.handler
}

func (e *ChartCSVEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Export chart as CSV
//	@Description	Download the chart's fields, scores, and review state as a UTF-8 BOM CSV
//	@Tags			charts
//	@Produce		text/csv
//	@Param			id	path	string	true	"Chart ID"
//	@Success		200
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/charts/{id}/csv [get]
func (e *ChartCSVEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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

	data, err := export.ChartCSV(chart)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(chart)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (e *ChartCSVEndpoint) Command(getServerURL func() string) *cobra.Command {
	var outputFile string
	cmd := &cobra.Command{
		Use:   "csv <id>",
		Short: "Export a chart as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet,
				getServerURL()+"/api/charts/"+args[0]+"/csv", nil)
			if err != nil {
				return err
			}

			httpClient := &http.Client{Timeout: time.Minute}
			resp, err := httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("failed to read response: %w", err)
			}
			if resp.StatusCode >= 400 {
				return fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))
			}

			if outputFile == "" {
				outputFile = fmt.Sprintf("chart-%s.csv", args[0])
			}
			if err := os.WriteFile(outputFile, body, 0o644); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			cmd.Println("Saved:", outputFile)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path")
	return cmd
}
