package admin

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/dermacost-ai/platform/pkg/common/logger"
	"github.com/dermacost-ai/platform/pkg/evidence"
	"github.com/dermacost-ai/platform/pkg/formulary"
	"github.com/dermacost-ai/platform/pkg/ingest"
	"github.com/dermacost-ai/platform/pkg/patients"
)

const (
	resourceKnowledge = "knowledge"
	resourceFormulary = "formulary"
	resourceClaims    = "claims"
	resourceUploads   = "uploads"
)

// HTTPHandler exposes the data administration surface: inspect and wipe the
// uploaded datasets. Mount it behind the admin auth middleware.
type HTTPHandler struct {
	knowledge *evidence.Repository
	formulary *formulary.Repository
	patients  *patients.Repository
	uploads   *ingest.Repository
}

func NewHTTPHandler(knowledge *evidence.Repository, formularyRepo *formulary.Repository, patientRepo *patients.Repository, uploads *ingest.Repository) *HTTPHandler {
	return &HTTPHandler{
		knowledge: knowledge,
		formulary: formularyRepo,
		patients:  patientRepo,
		uploads:   uploads,
	}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/admin/data/{resource}", h.handleList).Methods(http.MethodGet)
	router.HandleFunc("/admin/data/{resource}", h.handleDelete).Methods(http.MethodDelete)
}

func (h *HTTPHandler) handleList(w http.ResponseWriter, r *http.Request) {
	resource := mux.Vars(r)["resource"]

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	var (
		payload interface{}
		err     error
	)
	switch resource {
	case resourceKnowledge:
		payload, err = h.knowledge.List(r.Context(), limit)
	case resourceFormulary:
		payload, err = h.formulary.List(r.Context(), limit)
	case resourceClaims:
		payload, err = h.patients.ListClaims(r.Context(), limit)
	case resourceUploads:
		payload, err = h.uploads.List(r.Context(), limit)
	default:
		http.Error(w, "unknown resource "+strconv.Quote(resource), http.StatusBadRequest)
		return
	}
	if err != nil {
		logger.Log.WithError(err).WithField("resource", resource).Error("admin list failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

func (h *HTTPHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	resource := mux.Vars(r)["resource"]

	var (
		deleted int64
		err     error
	)
	switch resource {
	case resourceKnowledge:
		deleted, err = h.knowledge.DeleteAll(r.Context())
	case resourceFormulary:
		deleted, err = h.formulary.DeleteAll(r.Context())
	case resourceClaims:
		deleted, err = h.patients.DeleteAllClaims(r.Context())
	case resourceUploads:
		deleted, err = h.uploads.DeleteAll(r.Context())
	default:
		http.Error(w, "unknown resource "+strconv.Quote(resource), http.StatusBadRequest)
		return
	}
	if err != nil {
		logger.Log.WithError(err).WithField("resource", resource).Error("admin delete failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	logger.Log.WithFields(map[string]interface{}{
		"resource": resource,
		"deleted":  deleted,
	}).Warn("admin wiped dataset")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"resource": resource,
		"deleted":  deleted,
	})
}
