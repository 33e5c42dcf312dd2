// internal/handler/formula.go
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dangerclosesec/pivot/internal/domain"
	"github.com/dangerclosesec/pivot/internal/service"
	chmw "github.com/go-chi/chi/v5/middleware"
)

type FormulaHandler struct {
	formulaService *service.FormulaService
}

func NewFormulaHandler(formulaService *service.FormulaService) *FormulaHandler {
	return &FormulaHandler{
		formulaService: formulaService,
	}
}

type CompileResponse struct {
	BaseResponse
	*service.CompileOutput
}

// Compile handles POST /api/formulas/compile. Field failures are reported
// with 422 and the trees of the fields that did compile.
func (h *FormulaHandler) Compile(w http.ResponseWriter, r *http.Request) {
	var input service.CompileInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	input.ClientIP = r.RemoteAddr
	input.UserAgent = r.UserAgent()

	output, err := h.formulaService.Compile(r.Context(), input)
	if err != nil {
		if errors.Is(err, domain.ErrCompile) && output != nil {
			slog.InfoContext(r.Context(), "Formula compile failed", "fields", len(output.Errors), "requestID", chmw.GetReqID(r.Context()))
			respondWithJSON(w, http.StatusUnprocessableEntity, CompileResponse{CompileOutput: output})
			return
		}
		respondWithDomainError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, CompileResponse{BaseResponse: BaseResponse{Ok: true}, CompileOutput: output})
}

type TokenizeResponse struct {
	BaseResponse
	*service.TokenizeOutput
}

// Tokenize handles POST /api/formulas/tokenize
func (h *FormulaHandler) Tokenize(w http.ResponseWriter, r *http.Request) {
	var input service.TokenizeInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	output, err := h.formulaService.Tokenize(r.Context(), input)
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, TokenizeResponse{BaseResponse: BaseResponse{Ok: true}, TokenizeOutput: output})
}
