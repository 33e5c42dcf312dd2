package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dangerclosesec/pivot/formula"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	// Test with nil config
	client := NewClient(nil)
	assert.Equal(t, "http://localhost:8080", client.config.BaseURL)
	assert.Same(t, http.DefaultClient, client.client)

	// Test with custom config
	customConfig := &Config{
		BaseURL:    "http://example.com",
		Timeout:    5 * time.Second,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
	client = NewClient(customConfig)
	assert.Equal(t, "http://example.com", client.config.BaseURL)
	assert.Equal(t, 5*time.Second, client.config.Timeout)
	assert.Same(t, customConfig.HTTPClient, client.client)
}

func TestCompile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/formulas/compile", r.URL.Path)

		var req CompileRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "SUM(revenue)", req.Formulas["revenue"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"generation":1,"results":{"revenue":[
			{"tokenType":"AGGREGATE_FUNCTION","tokenValue":"SUM","arguments":[
				{"tokenType":"COLUMN","tokenValue":"revenue","arguments":[]}]}]}}`))
	}))
	defer server.Close()

	client := NewClient(&Config{BaseURL: server.URL, Timeout: 5 * time.Second})

	resp, err := client.Compile(context.Background(), &CompileRequest{
		Formulas: map[string]string{"revenue": "SUM(revenue)"},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), resp.Generation)

	tree := resp.Results["revenue"]
	require.Len(t, tree, 1)
	assert.Equal(t, formula.CategoryAggregateFunction, tree[0].Category)
	assert.Equal(t, formula.CategoryColumn, tree[0].Children[0].Category)
}

func TestCompilePartialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"ok":false,"generation":1,"results":{},"errors":{"revenue":"unrecognized text"}}`))
	}))
	defer server.Close()

	client := NewClient(&Config{BaseURL: server.URL})

	resp, err := client.Compile(context.Background(), nil)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)

	require.NotNil(t, resp)
	assert.Equal(t, "unrecognized text", resp.Errors["revenue"])
}

func TestAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"error":"unknown field: profit","error_code":"unknown_field"}`))
	}))
	defer server.Close()

	client := NewClient(&Config{BaseURL: server.URL})

	_, err := client.Tokenize(context.Background(), "profit")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "unknown_field", apiErr.Code)
	assert.Equal(t, "[unknown_field] unknown field: profit (Status: 400)", apiErr.Error())
}

func TestUpdateVocabulary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))

		var req UpdateVocabularyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Nil(t, req.Columns)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Vocabulary{Generation: 2, Columns: []string{"month"}, Values: req.Values})
	}))
	defer server.Close()

	ctx := context.Background()

	_, err := NewClient(&Config{BaseURL: server.URL}).UpdateVocabulary(ctx, &UpdateVocabularyRequest{Values: []string{"profit"}})
	assert.Error(t, err)

	client := NewClient(&Config{BaseURL: server.URL, Token: "secret-token"})

	_, err = client.UpdateVocabulary(ctx, &UpdateVocabularyRequest{})
	assert.Error(t, err)

	vocab, err := client.UpdateVocabulary(ctx, &UpdateVocabularyRequest{Values: []string{"profit"}})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), vocab.Generation)
	assert.Equal(t, []string{"profit"}, vocab.Values)
}

func TestGetVocabularyAndReport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/vocabulary":
			w.Write([]byte(`{"ok":true,"generation":3,"columns":["month"],"rows":[],"values":["revenue"]}`))
		case "/api/reports/abc":
			w.Write([]byte(`{"id":"abc","generation":3,"formulas":{"revenue":""}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"ok":false,"error":"Report not found"}`))
		}
	}))
	defer server.Close()

	client := NewClient(&Config{BaseURL: server.URL})
	ctx := context.Background()

	vocab, err := client.GetVocabulary(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), vocab.Generation)
	assert.Equal(t, []string{"revenue"}, vocab.Values)

	report, err := client.GetReport(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", report.ID)

	_, err = client.GetReport(ctx, "missing")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)

	_, err = client.GetReport(ctx, "")
	assert.Error(t, err)
}
