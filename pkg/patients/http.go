package patients

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/dermacost-ai/platform/pkg/common/logger"
)

type HTTPHandler struct {
	repo  *Repository
	cache *SummaryCache
}

func NewHTTPHandler(repo *Repository, cache *SummaryCache) *HTTPHandler {
	return &HTTPHandler{repo: repo, cache: cache}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/patients/{id}", h.handleGet).Methods(http.MethodGet)
	router.HandleFunc("/patients/{id}/summary", h.handleSummary).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}

	patient, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to fetch patient")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(patient)
}

func (h *HTTPHandler) handleSummary(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}

	if h.cache != nil {
		if summary, ok := h.cache.Get(r.Context(), id); ok {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "hit")
			json.NewEncoder(w).Encode(summary)
			return
		}
	}

	summary, err := h.repo.CostSummary(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to build cost summary")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if h.cache != nil {
		h.cache.Set(r.Context(), summary)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}
