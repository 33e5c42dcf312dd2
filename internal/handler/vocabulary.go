package handler

import (
	"log/slog"
	"net/http"

	"github.com/dangerclosesec/pivot/internal/middleware"
	"github.com/dangerclosesec/pivot/internal/service"
	chmw "github.com/go-chi/chi/v5/middleware"
)

type VocabularyResponse struct {
	BaseResponse
	*service.VocabularyOutput
}

// GetVocabulary handles GET /api/vocabulary
func (h *FormulaHandler) GetVocabulary(w http.ResponseWriter, r *http.Request) {
	output := h.formulaService.GetVocabulary(r.Context())
	respondWithJSON(w, http.StatusOK, VocabularyResponse{BaseResponse: BaseResponse{Ok: true}, VocabularyOutput: output})
}

// UpdateVocabulary handles PUT /api/vocabulary. Lists missing from the body
// are left unchanged.
func (h *FormulaHandler) UpdateVocabulary(w http.ResponseWriter, r *http.Request) {
	var input service.VocabularyInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	input.Subject, _ = middleware.Subject(r.Context())

	output, err := h.formulaService.UpdateVocabulary(r.Context(), input)
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Vocabulary replaced", "subject", input.Subject, "generation", output.Generation, "requestID", chmw.GetReqID(r.Context()))

	respondWithJSON(w, http.StatusOK, VocabularyResponse{BaseResponse: BaseResponse{Ok: true}, VocabularyOutput: output})
}
