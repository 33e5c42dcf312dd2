package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dangerclosesec/pivot/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// GetReports handles requests to retrieve compile reports with filtering
func (h *FormulaHandler) GetReports(w http.ResponseWriter, r *http.Request) {
	params := repository.QueryParams{}

	// Apply filters from query parameters
	if field := r.URL.Query().Get("field"); field != "" {
		params.Field = field
	}

	if hasErrorsStr := r.URL.Query().Get("has_errors"); hasErrorsStr != "" {
		hasErrors, err := strconv.ParseBool(hasErrorsStr)
		if err == nil {
			params.HasErrors = &hasErrors
		}
	}

	if startTimeStr := r.URL.Query().Get("start_time"); startTimeStr != "" {
		startTime, err := time.Parse(time.RFC3339, startTimeStr)
		if err == nil {
			params.StartTime = startTime
		}
	}

	if endTimeStr := r.URL.Query().Get("end_time"); endTimeStr != "" {
		endTime, err := time.Parse(time.RFC3339, endTimeStr)
		if err == nil {
			params.EndTime = endTime
		}
	}

	// Pagination
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err == nil && limit > 0 {
			params.Limit = limit
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err == nil && offset >= 0 {
			params.Offset = offset
		}
	}

	reports, total, err := h.formulaService.GetReports(r.Context(), params)
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, struct {
		BaseResponse
		Reports interface{} `json:"reports"`
		Total   int64       `json:"total"`
	}{
		BaseResponse: BaseResponse{Ok: true},
		Reports:      reports,
		Total:        total,
	})
}

// GetReportByID handles requests to retrieve a specific compile report
func (h *FormulaHandler) GetReportByID(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	if idStr == "" {
		respondWithError(w, http.StatusBadRequest, "Missing report ID")
		return
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid report ID format")
		return
	}

	report, err := h.formulaService.GetReportByID(r.Context(), id)
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, report)
}
