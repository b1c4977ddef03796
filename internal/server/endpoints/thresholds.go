package endpoints

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kartescan/kartescan/internal/api"
	"github.com/kartescan/kartescan/internal/review"
	"github.com/kartescan/kartescan/internal/svcctx"
)

// ThresholdEntry is the wire form of one field's review thresholds.
type ThresholdEntry struct {
	Text     float64 `json:"text_similarity_threshold"`
	Semantic float64 `json:"semantic_similarity_threshold"`
}

func thresholdEntries(m map[string]review.FieldThresholds) map[string]ThresholdEntry {
	out := make(map[string]ThresholdEntry, len(m))
	for name, th := range m {
		out[name] = ThresholdEntry{Text: th.Text, Semantic: th.Semantic}
	}
	return out
}

// GetThresholdsEndpoint handles GET /api/templates/{id}/thresholds.
type GetThresholdsEndpoint struct{}

var _ api.Endpoint = (*GetThresholdsEndpoint)(nil)

func (e *GetThresholdsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/templates/{id}/thresholds", e.handler
}

func (e *GetThresholdsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get a template's per-field review thresholds
//	@Tags			templates
//	@Produce		json
//	@Param			id	path		string	true	"Template ID"
//	@Success		200	{object}	map[string]ThresholdEntry
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/templates/{id}/thresholds [get]
func (e *GetThresholdsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	thresholds, err := st.GetThresholds(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, thresholdEntries(thresholds))
}

func (e *GetThresholdsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "thresholds <template-id>",
		Short: "Show a template's per-field review thresholds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var thresholds map[string]ThresholdEntry
			if err := client.Get(cmd.Context(), "/api/templates/"+args[0]+"/thresholds", &thresholds); err != nil {
				return err
			}
			return api.Output(thresholds)
		},
	}
}

// PutThresholdsEndpoint handles PUT /api/templates/{id}/thresholds.
type PutThresholdsEndpoint struct{}

var _ api.Endpoint = (*PutThresholdsEndpoint)(nil)

func (e *PutThresholdsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/templates/{id}/thresholds", e.handler
}

func (e *PutThresholdsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Update per-field review thresholds
//	@Description	Updates thresholds for the named fields. Fields absent from the body keep their current values; names not in the template are rejected.
//	@Tags			templates
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Template ID"
//	@Param			body	body		map[string]ThresholdEntry	true	"Thresholds keyed by field name"
//	@Success		200	{object}	map[string]ThresholdEntry
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/templates/{id}/thresholds [put]
func (e *PutThresholdsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	var body map[string]ThresholdEntry
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "no thresholds provided")
		return
	}

	update := make(map[string]review.FieldThresholds, len(body))
	for name, entry := range body {
		if entry.Text < 0 || entry.Text > 1 || entry.Semantic < 0 || entry.Semantic > 1 {
			writeError(w, http.StatusBadRequest, "thresholds must be between 0 and 1")
			return
		}
		update[name] = review.FieldThresholds{Text: entry.Text, Semantic: entry.Semantic}
	}

	id := r.PathValue("id")
	if err := st.PutThresholds(id, update); err != nil {
		if strings.Contains(err.Error(), "not in template") {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeStoreError(w, err)
		return
	}

	thresholds, err := st.GetThresholds(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, thresholdEntries(thresholds))
}

func (e *PutThresholdsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var field string
	var text, semantic float64
	cmd := &cobra.Command{
		Use:   "threshold-set <template-id> --field <name> --text 0.8 --semantic 0.8",
		Short: "Update one field's review thresholds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]ThresholdEntry{
				field: {Text: text, Semantic: semantic},
			}
			client := api.NewClient(getServerURL())
			var thresholds map[string]ThresholdEntry
			if err := client.Put(cmd.Context(), "/api/templates/"+args[0]+"/thresholds", body, &thresholds); err != nil {
				return err
			}
			return api.Output(thresholds)
		},
	}
	cmd.Flags().StringVar(&field, "field", "", "Field name (required)")
	cmd.Flags().Float64Var(&text, "text", review.DefaultTextThreshold,
		"Text similarity threshold ("+strconv.FormatFloat(review.DefaultTextThreshold, 'f', 1, 64)+" by default)")
	cmd.Flags().Float64Var(&semantic, "semantic", review.DefaultSemanticThreshold,
		"Semantic similarity threshold ("+strconv.FormatFloat(review.DefaultSemanticThreshold, 'f', 1, 64)+" by default)")
	cmd.MarkFlagRequired("field")
	return cmd
}

// ResetThresholdsEndpoint handles POST /api/templates/{id}/reset-thresholds.
type ResetThresholdsEndpoint struct{}

var _ api.Endpoint = (*ResetThresholdsEndpoint)(nil)

func (e *ResetThresholdsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/templates/{id}/reset-thresholds", e.handler
}

func (e *ResetThresholdsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Reset a template's thresholds to the defaults
//	@Tags			templates
//	@Produce		json
//	@Param			id	path		string	true	"Template ID"
//	@Success		200	{object}	map[string]ThresholdEntry
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/templates/{id}/reset-thresholds [post]
func (e *ResetThresholdsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	id := r.PathValue("id")
	if err := st.ResetThresholds(id); err != nil {
		writeStoreError(w, err)
		return
	}

	thresholds, err := st.GetThresholds(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, thresholdEntries(thresholds))
}

func (e *ResetThresholdsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "threshold-reset <template-id>",
		Short: "Reset a template's thresholds to the defaults",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var thresholds map[string]ThresholdEntry
			if err := client.Post(cmd.Context(), "/api/templates/"+args[0]+"/reset-thresholds", nil, &thresholds); err != nil {
				return err
			}
			return api.Output(thresholds)
		},
	}
}
