package endpoints

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kartescan/kartescan/internal/api"
	"github.com/kartescan/kartescan/internal/pdfutil"
	"github.com/kartescan/kartescan/internal/store"
	"github.com/kartescan/kartescan/internal/svcctx"
)

// UploadResponse is returned when a chart upload is accepted.
type UploadResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// UploadChartEndpoint handles POST /api/charts with multipart file upload.
type UploadChartEndpoint struct{}

var _ api.Endpoint = (*UploadChartEndpoint)(nil)

func (e *UploadChartEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/charts", e.handler
}

func (e *UploadChartEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Upload a chart
//	@Description	Upload a chart image or PDF and queue it for extraction
//	@Tags			charts
//	@Accept			mpfd
//	@Produce		json
//	@Param			file		formData	file	true	"Chart image (JPEG/PNG) or PDF"
//	@Param			template_id	formData	string	false	"Template defining fields and thresholds"
//	@Success		202	{object}	UploadResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/charts [post]
func (e *UploadChartEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	const maxMemory = 50 << 20 // 50MB
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read upload: %v", err))
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if pdfutil.IsPDF(data) {
		// Reject unreadable PDFs before accepting the job.
		if _, err := pdfutil.PageCount(data); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		contentType = "application/pdf"
	}

	var templateID *string
	if v := r.FormValue("template_id"); v != "" {
		templateID = &v
	}

	st := svcctx.StoreFrom(r.Context())
	blobs := svcctx.BlobsFrom(r.Context())
	jm := svcctx.JobManagerFrom(r.Context())
	if st == nil || blobs == nil || jm == nil {
		writeError(w, http.StatusServiceUnavailable, "services not initialized")
		return
	}

	if templateID != nil {
		if _, err := st.GetTemplate(*templateID); err != nil {
			writeStoreError(w, err)
			return
		}
	}

	chartID := uuid.NewString()
	blobKey := "charts/" + chartID + strings.ToLower(filepath.Ext(header.Filename))
	if err := blobs.Put(r.Context(), blobKey, bytes.NewReader(data), contentType); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to store upload: %v", err))
		return
	}

	chart := &store.Chart{
		ID:          chartID,
		Filename:    header.Filename,
		ContentType: contentType,
		BlobKey:     blobKey,
		TemplateID:  templateID,
		Status:      store.StatusPending,
	}
	if err := st.CreateChart(chart); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := jm.Enqueue(chartID); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, UploadResponse{ID: chartID, Status: string(store.StatusPending)})
}

func (e *UploadChartEndpoint) Command(getServerURL func() string) *cobra.Command {
	var templateID string
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a chart for extraction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("file not found: %s", path)
			}
			return uploadFile(cmd, getServerURL(), path, templateID)
		},
	}
	cmd.Flags().StringVar(&templateID, "template", "", "Template ID")
	return cmd
}
