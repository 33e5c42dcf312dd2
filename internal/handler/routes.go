package handler

import (
	"github.com/dangerclosesec/pivot/internal/auth"
	"github.com/dangerclosesec/pivot/internal/middleware"
	"github.com/go-chi/chi/v5"
	chmw "github.com/go-chi/chi/v5/middleware"
)

// Routes returns the /api router. Replacing the vocabulary requires a
// bearer token granting auth.ScopeVocabularyWrite.
func (h *FormulaHandler) Routes(tokenManager *auth.TokenManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(chmw.AllowContentType("application/json"))

		r.Post("/formulas/compile", h.Compile)
		r.Post("/formulas/tokenize", h.Tokenize)
	})

	r.Get("/vocabulary", h.GetVocabulary)
	r.Group(func(r chi.Router) {
		r.Use(chmw.AllowContentType("application/json"))
		r.Use(middleware.AuthMiddleware(tokenManager, auth.ScopeVocabularyWrite))

		r.Put("/vocabulary", h.UpdateVocabulary)
	})

	r.Route("/reports", func(r chi.Router) {
		r.Get("/", h.GetReports)
		r.Get("/{id}", h.GetReportByID)
	})

	return r
}
