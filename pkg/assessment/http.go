package assessment

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/dermacost-ai/platform/pkg/common/logger"
	"github.com/dermacost-ai/platform/pkg/common/models"
	"github.com/dermacost-ai/platform/pkg/patients"
	"github.com/dermacost-ai/platform/pkg/recommend"
)

type HTTPHandler struct {
	service *Service
	maxBody int64
}

func NewHTTPHandler(service *Service, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/assessments", h.handleCreate).Methods(http.MethodPost)
	router.HandleFunc("/assessments/{id}", h.handleGet).Methods(http.MethodGet)
	router.HandleFunc("/patients/{id}/assessments", h.handleListByPatient).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req models.AssessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.PatientID == uuid.Nil {
		http.Error(w, "patient_id is required", http.StatusBadRequest)
		return
	}
	if req.DLQIScore < 0 || req.DLQIScore > 30 {
		http.Error(w, "dlqi_score must be between 0 and 30", http.StatusBadRequest)
		return
	}
	if req.MonthsStable < 0 {
		http.Error(w, "months_stable must not be negative", http.StatusBadRequest)
		return
	}

	assessment, err := h.service.Run(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, patients.ErrNotFound):
			http.Error(w, "patient not found", http.StatusNotFound)
		case errors.Is(err, recommend.ErrNoCurrentBiologic):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			logger.Log.WithError(err).Error("assessment failed")
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(assessment)
}

func (h *HTTPHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid assessment id", http.StatusBadRequest)
		return
	}

	assessment, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "assessment not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to fetch assessment")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(assessment)
}

func (h *HTTPHandler) handleListByPatient(w http.ResponseWriter, r *http.Request) {
	patientID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	assessments, err := h.service.ListByPatient(r.Context(), patientID, limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list assessments")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(assessments)
}
