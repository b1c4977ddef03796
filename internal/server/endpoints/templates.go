package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/kartescan/kartescan/internal/api"
	"github.com/kartescan/kartescan/internal/review"
	"github.com/kartescan/kartescan/internal/store"
	"github.com/kartescan/kartescan/internal/svcctx"
)

// TemplateItemRequest defines one field in a template create/update body.
type TemplateItemRequest struct {
	Name              string   `json:"item_name"`
	TextThreshold     *float64 `json:"text_similarity_threshold,omitempty"`
	SemanticThreshold *float64 `json:"semantic_similarity_threshold,omitempty"`
}

// TemplateRequest is the body for template creation and update.
type TemplateRequest struct {
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	Items       []TemplateItemRequest `json:"items"`
}

func (req *TemplateRequest) validate() string {
	if req.Name == "" {
		return "template name is required"
	}
	if len(req.Items) == 0 {
		return "template must define at least one item"
	}
	seen := make(map[string]bool, len(req.Items))
	for _, it := range req.Items {
		if it.Name == "" {
			return "item_name is required for every item"
		}
		if seen[it.Name] {
			return "duplicate item_name: " + it.Name
		}
		seen[it.Name] = true
		if th := it.TextThreshold; th != nil && (*th < 0 || *th > 1) {
			return "text_similarity_threshold must be between 0 and 1"
		}
		if th := it.SemanticThreshold; th != nil && (*th < 0 || *th > 1) {
			return "semantic_similarity_threshold must be between 0 and 1"
		}
	}
	return ""
}

func (req *TemplateRequest) toModel(id string) *store.Template {
	tpl := &store.Template{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
	}
	for _, it := range req.Items {
		item := store.TemplateItem{Name: it.Name}
		item.TextThreshold = thresholdOrDefault(it.TextThreshold, review.DefaultTextThreshold)
		item.SemanticThreshold = thresholdOrDefault(it.SemanticThreshold, review.DefaultSemanticThreshold)
		tpl.Items = append(tpl.Items, item)
	}
	return tpl
}

func thresholdOrDefault(v *float64, def float64) float64 {
	if v != nil {
		return *v
	}
	return def
}

// CreateTemplateEndpoint handles POST /api/templates.
type CreateTemplateEndpoint struct{}

var _ api.Endpoint = (*CreateTemplateEndpoint)(nil)

func (e *CreateTemplateEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/templates", e.handler
}

func (e *CreateTemplateEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Create a chart template
//	@Description	Defines the set of fields to extract and their per-field review thresholds
//	@Tags			templates
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TemplateRequest	true	"Template definition"
//	@Success		201	{object}	store.Template
//	@Failure		400	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/templates [post]
func (e *CreateTemplateEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	var req TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	tpl := req.toModel("")
	if err := st.CreateTemplate(tpl); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}

func (e *CreateTemplateEndpoint) Command(getServerURL func() string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "template-create -f <template.json>",
		Short: "Create a chart template from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readTemplateFile(file)
			if err != nil {
				return err
			}
			client := api.NewClient(getServerURL())
			var tpl store.Template
			if err := client.Post(cmd.Context(), "/api/templates", req, &tpl); err != nil {
				return err
			}
			return api.Output(tpl)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the template JSON file")
	cmd.MarkFlagRequired("file")
	return cmd
}

// ListTemplatesEndpoint handles GET /api/templates.
type ListTemplatesEndpoint struct{}

var _ api.Endpoint = (*ListTemplatesEndpoint)(nil)

func (e *ListTemplatesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/templates", e.handler
}

func (e *ListTemplatesEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List templates
//	@Tags			templates
//	@Produce		json
//	@Success		200	{array}		store.Template
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/templates [get]
func (e *ListTemplatesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	templates, err := st.ListTemplates()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

func (e *ListTemplatesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List chart templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var templates []store.Template
			if err := client.Get(cmd.Context(), "/api/templates", &templates); err != nil {
				return err
			}
			return api.Output(templates)
		},
	}
}

// GetTemplateEndpoint handles GET /api/templates/{id}.
type GetTemplateEndpoint struct{}

var _ api.Endpoint = (*GetTemplateEndpoint)(nil)

func (e *GetTemplateEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/templates/{id}", e.handler
}

func (e *GetTemplateEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get template by ID
//	@Tags			templates
//	@Produce		json
//	@Param			id	path		string	true	"Template ID"
//	@Success		200	{object}	store.Template
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/templates/{id} [get]
func (e *GetTemplateEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	tpl, err := st.GetTemplate(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (e *GetTemplateEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "template <id>",
		Short: "Get a template by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var tpl store.Template
			if err := client.Get(cmd.Context(), "/api/templates/"+args[0], &tpl); err != nil {
				return err
			}
			return api.Output(tpl)
		},
	}
}

// UpdateTemplateEndpoint handles PUT /api/templates/{id}.
type UpdateTemplateEndpoint struct{}

var _ api.Endpoint = (*UpdateTemplateEndpoint)(nil)

func (e *UpdateTemplateEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/templates/{id}", e.handler
}

func (e *UpdateTemplateEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Replace a template's definition
//	@Description	Replaces the template's name, description, and item set. Charts already processed keep their stored results.
//	@Tags			templates
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Template ID"
//	@Param			body	body		TemplateRequest	true	"Template definition"
//	@Success		200	{object}	store.Template
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/templates/{id} [put]
func (e *UpdateTemplateEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	var req TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	id := r.PathValue("id")
	if err := st.UpdateTemplate(req.toModel(id)); err != nil {
		writeStoreError(w, err)
		return
	}

	tpl, err := st.GetTemplate(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (e *UpdateTemplateEndpoint) Command(getServerURL func() string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "template-update <id> -f <template.json>",
		Short: "Replace a template's definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readTemplateFile(file)
			if err != nil {
				return err
			}
			client := api.NewClient(getServerURL())
			var tpl store.Template
			if err := client.Put(cmd.Context(), "/api/templates/"+args[0], req, &tpl); err != nil {
				return err
			}
			return api.Output(tpl)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the template JSON file")
	cmd.MarkFlagRequired("file")
	return cmd
}

// DeleteTemplateEndpoint handles DELETE /api/templates/{id}.
type DeleteTemplateEndpoint struct{}

var _ api.Endpoint = (*DeleteTemplateEndpoint)(nil)

func (e *DeleteTemplateEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/templates/{id}", e.handler
}

func (e *DeleteTemplateEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Delete a template
//	@Tags			templates
//	@Produce		json
//	@Param			id	path	string	true	"Template ID"
//	@Success		204
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/templates/{id} [delete]
func (e *DeleteTemplateEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	if err := st.DeleteTemplate(r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteTemplateEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "template-delete <id>",
		Short: "Delete a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/templates/"+args[0]); err != nil {
				return err
			}
			cmd.Println("Deleted:", args[0])
			return nil
		},
	}
}

func readTemplateFile(path string) (*TemplateRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}
	var req TemplateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse template file: %w", err)
	}
	if msg := req.validate(); msg != "" {
		return nil, errors.New(msg)
	}
	return &req, nil
}
