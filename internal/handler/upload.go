// Document upload endpoint.
//
// Route:
//   - POST /api/v1/uploads -> HandleUpload
package handler

import (
	"log/slog"
	"net/http"

	"github.com/animatepdf/animatepdf/internal/domain"
	"github.com/animatepdf/animatepdf/internal/service"
)

// UploadHandler accepts PDF uploads from the product backend.
type UploadHandler struct {
	uploads service.UploadService
	logger  *slog.Logger
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(uploads service.UploadService, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		uploads: uploads,
		logger:  logger,
	}
}

// RegisterRoutes registers upload routes on the provided mux.
func (h *UploadHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/uploads", h.HandleUpload)
}

// HandleUpload stores a PDF sent as multipart form data.
// Expects a "user_id" form field and a "file" part.
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	const op = "upload.store"

	r.Body = http.MaxBytesReader(w, r.Body, service.MaxPDFSizeBytes+1024*1024)

	if err := r.ParseMultipartForm(8 << 20); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "invalid multipart form"))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	userID, err := parseUserID(r.FormValue("user_id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "file part is required"))
		return
	}
	defer file.Close()

	result, err := h.uploads.StorePDF(r.Context(), userID, header.Filename, header.Size, file)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}
