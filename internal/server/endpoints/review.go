package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/kartescan/kartescan/internal/api"
	"github.com/kartescan/kartescan/internal/store"
	"github.com/kartescan/kartescan/internal/svcctx"
)

// ListReviewItemsEndpoint handles GET /api/charts/{id}/review-items.
type ListReviewItemsEndpoint struct{}

var _ api.Endpoint = (*ListReviewItemsEndpoint)(nil)

func (e *ListReviewItemsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/charts/{id}/review-items", e.handler
}

func (e *ListReviewItemsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List fields flagged for review
//	@Description	Returns the chart's fields where needs_review is set
//	@Tags			review
//	@Produce		json
//	@Param			id	path		string	true	"Chart ID"
//	@Success		200	{array}		store.ExtractedField
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/charts/{id}/review-items [get]
func (e *ListReviewItemsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	id := r.PathValue("id")
	if _, err := st.GetChart(id); err != nil {
		writeStoreError(w, err)
		return
	}

	items, err := st.ListReviewItems(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (e *ListReviewItemsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "review-items <chart-id>",
		Short: "List fields flagged for human review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())
			var items []store.ExtractedField
			if err := client.Get(ctx, "/api/charts/"+args[0]+"/review-items", &items); err != nil {
				return err
			}
			return api.Output(items)
		},
	}
}

// ReviewItemRequest is the body for a human review update.
type ReviewItemRequest struct {
	InterpretedText *string `json:"interpreted_text,omitempty"`
	ReviewComment   *string `json:"review_comment,omitempty"`
	ReviewedBy      string  `json:"reviewed_by"`
}

// ReviewItemEndpoint handles PATCH /api/charts/{id}/items/{itemID}.
type ReviewItemEndpoint struct{}

var _ api.Endpoint = (*ReviewItemEndpoint)(nil)

func (e *ReviewItemEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PATCH", "/api/charts/{id}/items/{itemID}", e.handler
}

func (e *ReviewItemEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Record a human review on a field
//	@Description	Updates the interpreted text if provided, stamps the reviewer, and clears needs_review. Scores are not recomputed.
//	@Tags			review
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Chart ID"
//	@Param			itemID	path		string				true	"Field ID"
//	@Param			body	body		ReviewItemRequest	true	"Review update"
//	@Success		200	{object}	store.ExtractedField
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/charts/{id}/items/{itemID} [patch]
func (e *ReviewItemEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	var req ReviewItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ReviewedBy == "" {
		writeError(w, http.StatusBadRequest, "reviewed_by is required")
		return
	}

	field, err := st.ApplyReview(r.PathValue("id"), r.PathValue("itemID"), store.ReviewUpdate{
		InterpretedText: req.InterpretedText,
		ReviewComment:   req.ReviewComment,
		ReviewedBy:      req.ReviewedBy,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, field)
}

func (e *ReviewItemEndpoint) Command(getServerURL func() string) *cobra.Command {
	var text, comment, reviewer string
	cmd := &cobra.Command{
		Use:   "review <chart-id> <item-id>",
		Short: "Record a human review on a field",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			req := ReviewItemRequest{ReviewedBy: reviewer}
			if cmd.Flags().Changed("text") {
				req.InterpretedText = &text
			}
			if cmd.Flags().Changed("comment") {
				req.ReviewComment = &comment
			}

			client := api.NewClient(getServerURL())
			var field store.ExtractedField
			path := "/api/charts/" + args[0] + "/items/" + args[1]
			if err := client.Patch(ctx, path, req, &field); err != nil {
				return err
			}
			return api.Output(field)
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "Corrected interpreted text")
	cmd.Flags().StringVar(&comment, "comment", "", "Review comment")
	cmd.Flags().StringVar(&reviewer, "reviewer", "", "Reviewer name (required)")
	cmd.MarkFlagRequired("reviewer")
	return cmd
}
