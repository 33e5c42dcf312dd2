package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dangerclosesec/pivot/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protected(tm *auth.TokenManager, scopes ...string) http.Handler {
	return AuthMiddleware(tm, scopes...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, _ := Subject(r.Context())
		w.Write([]byte(subject))
	}))
}

func TestAuthMiddleware(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Hour)

	writer, err := tm.Generate("ops", auth.ScopeVocabularyWrite)
	require.NoError(t, err)
	reader, err := tm.Generate("viewer")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		scopes []string
		status int
		body   string
	}{
		{"missing header", "", nil, http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", nil, http.StatusUnauthorized, ""},
		{"bad token", "Bearer nope", nil, http.StatusUnauthorized, ""},
		{"valid token", "Bearer " + reader, nil, http.StatusOK, "viewer"},
		{"missing scope", "Bearer " + reader, []string{auth.ScopeVocabularyWrite}, http.StatusForbidden, ""},
		{"granted scope", "Bearer " + writer, []string{auth.ScopeVocabularyWrite}, http.StatusOK, "ops"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/api/vocabulary", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			protected(tm, tc.scopes...).ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, rec.Body.String())
			}
		})
	}
}
