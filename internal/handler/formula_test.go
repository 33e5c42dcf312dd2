package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dangerclosesec/pivot/formula"
	"github.com/dangerclosesec/pivot/internal/auth"
	"github.com/dangerclosesec/pivot/internal/domain"
	"github.com/dangerclosesec/pivot/internal/handler"
	"github.com/dangerclosesec/pivot/internal/mocks"
	"github.com/dangerclosesec/pivot/internal/model"
	"github.com/dangerclosesec/pivot/internal/repository"
	"github.com/dangerclosesec/pivot/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const secret = "handler-test-secret"

func newServer(t *testing.T, reports repository.ReportRepositoryIface) *httptest.Server {
	t.Helper()

	compiler, err := formula.NewCompiler(formula.NewVocabulary(
		[]string{"month"},
		[]string{"region", "package"},
		[]string{"revenue", "salaries"},
	))
	require.NoError(t, err)

	cacheService := service.NewCacheService(service.CacheConfig{TTL: time.Minute, CleanupFreq: time.Minute})
	t.Cleanup(cacheService.Close)

	h := handler.NewFormulaHandler(service.NewFormulaService(compiler, cacheService, reports))
	srv := httptest.NewServer(h.Routes(auth.NewTokenManager(secret, time.Hour)))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body, token string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp, payload
}

func TestCompileEndpoint(t *testing.T) {
	srv := newServer(t, nil)

	resp, payload := do(t, http.MethodPost, srv.URL+"/formulas/compile",
		`{"formulas":{"revenue":"IF(revenue > 100, SUM(revenue), 0)"}}`, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, payload["ok"])

	results := payload["results"].(map[string]any)
	tree := results["revenue"].([]any)
	require.Len(t, tree, 1)
	root := tree[0].(map[string]any)
	assert.Equal(t, "FUNCTION", root["tokenType"])
	assert.Equal(t, "IF", root["tokenValue"])
	assert.Len(t, root["arguments"], 7)
}

func TestCompileEndpointErrors(t *testing.T) {
	srv := newServer(t, nil)

	resp, payload := do(t, http.MethodPost, srv.URL+"/formulas/compile",
		`{"formulas":{"revenue":"revenue & cost","salaries":""}}`, "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, false, payload["ok"])
	assert.Contains(t, payload["errors"], "revenue")
	assert.Contains(t, payload["results"], "salaries")

	resp, payload = do(t, http.MethodPost, srv.URL+"/formulas/compile",
		`{"formulas":{"profit":"SUM(revenue)"}}`, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "unknown_field", payload["error_code"])

	resp, _ = do(t, http.MethodPost, srv.URL+"/formulas/compile", `{"formulas":`, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTokenizeEndpoint(t *testing.T) {
	srv := newServer(t, nil)

	resp, payload := do(t, http.MethodPost, srv.URL+"/formulas/tokenize", `{"formula":"revenue >= 10"}`, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	tokens := payload["tokens"].([]any)
	require.Len(t, tokens, 5)
	assert.Equal(t, "COMPARATOR", tokens[2].(map[string]any)["category"])

	resp, payload = do(t, http.MethodPost, srv.URL+"/formulas/tokenize", `{"formula":"revenue ^ 2"}`, "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "compile_error", payload["error_code"])
}

func TestVocabularyEndpoints(t *testing.T) {
	srv := newServer(t, nil)

	resp, payload := do(t, http.MethodGet, srv.URL+"/vocabulary", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), payload["generation"])
	assert.Equal(t, []any{"revenue", "salaries"}, payload["values"])

	body := `{"values":["revenue","salaries","profit"]}`

	resp, _ = do(t, http.MethodPut, srv.URL+"/vocabulary", body, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	tm := auth.NewTokenManager(secret, time.Hour)
	readOnly, err := tm.Generate("viewer")
	require.NoError(t, err)
	resp, _ = do(t, http.MethodPut, srv.URL+"/vocabulary", body, readOnly)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	token, err := tm.Generate("ops", auth.ScopeVocabularyWrite)
	require.NoError(t, err)

	resp, payload = do(t, http.MethodPut, srv.URL+"/vocabulary", `{"rows":["SUM"]}`, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_input", payload["error_code"])

	resp, payload = do(t, http.MethodPut, srv.URL+"/vocabulary", body, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), payload["generation"])
	assert.Equal(t, []any{"month"}, payload["columns"])

	resp, _ = do(t, http.MethodPost, srv.URL+"/formulas/compile", `{"formulas":{"profit":"AVERAGE(profit)"}}`, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReportEndpointsWithoutStore(t *testing.T) {
	srv := newServer(t, nil)

	resp, _ := do(t, http.MethodGet, srv.URL+"/reports", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/reports/not-a-uuid", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReportEndpoints(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	reports := mocks.NewMockReportRepositoryIface(ctrl)
	srv := newServer(t, reports)

	id := uuid.New()
	hasErrors := true
	reports.EXPECT().
		Query(gomock.Any(), repository.QueryParams{Field: "revenue", HasErrors: &hasErrors, Limit: 5}).
		Return([]model.Report{{ID: id, Generation: 1}}, int64(1), nil)

	resp, payload := do(t, http.MethodGet, srv.URL+"/reports?field=revenue&has_errors=true&limit=5", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), payload["total"])

	reports.EXPECT().FindByID(gomock.Any(), id).Return(&model.Report{ID: id, Generation: 1}, nil)
	resp, payload = do(t, http.MethodGet, srv.URL+"/reports/"+id.String(), "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, id.String(), payload["id"])

	missing := uuid.New()
	reports.EXPECT().FindByID(gomock.Any(), missing).Return(nil, domain.ErrReportNotFound)
	resp, _ = do(t, http.MethodGet, srv.URL+"/reports/"+missing.String(), "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
