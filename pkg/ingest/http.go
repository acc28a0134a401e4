package ingest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/dermacost-ai/platform/pkg/common/logger"
	"github.com/dermacost-ai/platform/pkg/common/models"
)

// HTTPHandler exposes the upload endpoints. Request size is capped by the
// router-level body limit, not here.
type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/uploads/{kind}", h.handleUpload).Methods(http.MethodPost)
	router.HandleFunc("/uploads", h.handleList).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	kind := mux.Vars(r)["kind"]
	if !ValidKind(kind) {
		http.Error(w, "unknown upload kind "+strconv.Quote(kind), http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, `missing "file" form field`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	summary, err := h.ingest(r.Context(), kind, header.Filename, file)
	if err != nil {
		if IsValidationError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Log.WithError(err).WithField("kind", kind).Error("upload failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if summary.Status == StatusFailed {
		status = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(summary)
}

func (h *HTTPHandler) ingest(ctx context.Context, kind, fileName string, r io.Reader) (*models.UploadSummary, error) {
	switch kind {
	case KindEligibility:
		return h.service.IngestEligibility(ctx, fileName, r)
	case KindClaims:
		return h.service.IngestClaims(ctx, fileName, r)
	case KindFormulary:
		return h.service.IngestFormulary(ctx, fileName, r)
	default:
		return h.service.IngestKnowledge(ctx, fileName, r)
	}
}

func (h *HTTPHandler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	batches, err := h.service.ListBatches(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list upload batches")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(batches)
}
