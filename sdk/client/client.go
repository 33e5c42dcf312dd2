package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dangerclosesec/pivot/formula"
)

// Config represents the configuration for the formula service client
type Config struct {
	// BaseURL is the base URL of the formula service
	BaseURL string
	// HTTPClient is an optional custom HTTP client
	HTTPClient *http.Client
	// Timeout is the default request timeout
	Timeout time.Duration
	// Token is the bearer token sent with vocabulary updates
	Token string
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "http://localhost:8080",
		HTTPClient: http.DefaultClient,
		Timeout:    10 * time.Second,
	}
}

// Client is the formula service client
type Client struct {
	config *Config
	client *http.Client
}

// NewClient creates a new client with the given configuration
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	client := config.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	return &Client{
		config: config,
		client: client,
	}
}

// CompileRequest maps value fields to formulas. An empty map compiles the
// default formula of every value field.
type CompileRequest struct {
	Formulas map[string]string `json:"formulas"`
}

// CompileResponse holds one tree per field that compiled and one message
// per field that did not
type CompileResponse struct {
	ReportID   string                    `json:"report_id"`
	Generation uint64                    `json:"generation"`
	Results    map[string][]formula.Node `json:"results"`
	Errors     map[string]string         `json:"errors,omitempty"`
}

// Compile compiles formulas. When some fields fail, the response for the
// remaining fields is returned together with an *APIError.
func (c *Client) Compile(ctx context.Context, req *CompileRequest) (*CompileResponse, error) {
	if req == nil {
		req = &CompileRequest{}
	}

	var resp CompileResponse
	err := c.do(ctx, http.MethodPost, "/api/formulas/compile", req, &resp, false)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnprocessableEntity {
			if jsonErr := json.Unmarshal(apiErr.body, &resp); jsonErr == nil && len(resp.Errors) > 0 {
				return &resp, err
			}
		}
		return nil, err
	}

	return &resp, nil
}

// TokenizeResponse is the raw token stream of one formula
type TokenizeResponse struct {
	Generation uint64          `json:"generation"`
	Tokens     []formula.Token `json:"tokens"`
}

// Tokenize returns the tokens of formula
func (c *Client) Tokenize(ctx context.Context, text string) (*TokenizeResponse, error) {
	var resp TokenizeResponse
	if err := c.do(ctx, http.MethodPost, "/api/formulas/tokenize", map[string]string{"formula": text}, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Vocabulary is the field vocabulary as served by the API
type Vocabulary struct {
	Generation uint64   `json:"generation"`
	Columns    []string `json:"columns"`
	Rows       []string `json:"rows"`
	Values     []string `json:"values"`
}

// GetVocabulary retrieves the current vocabulary
func (c *Client) GetVocabulary(ctx context.Context) (*Vocabulary, error) {
	var resp Vocabulary
	if err := c.do(ctx, http.MethodGet, "/api/vocabulary", nil, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateVocabularyRequest replaces the lists that are not nil
type UpdateVocabularyRequest struct {
	Columns []string `json:"columns,omitempty"`
	Rows    []string `json:"rows,omitempty"`
	Values  []string `json:"values,omitempty"`
}

// UpdateVocabulary replaces field lists. It requires Config.Token.
func (c *Client) UpdateVocabulary(ctx context.Context, req *UpdateVocabularyRequest) (*Vocabulary, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}
	if req.Columns == nil && req.Rows == nil && req.Values == nil {
		return nil, errors.New("at least one of columns, rows and values is required")
	}
	if c.config.Token == "" {
		return nil, errors.New("a bearer token is required to update the vocabulary")
	}

	var resp Vocabulary
	if err := c.do(ctx, http.MethodPut, "/api/vocabulary", req, &resp, true); err != nil {
		return nil, fmt.Errorf("failed to update vocabulary: %w", err)
	}
	return &resp, nil
}

// Report is a stored compile request
type Report struct {
	ID         string                    `json:"id"`
	Generation int64                     `json:"generation"`
	Strict     bool                      `json:"strict"`
	Formulas   map[string]string         `json:"formulas"`
	Results    map[string][]formula.Node `json:"results"`
	Errors     map[string]string         `json:"errors,omitempty"`
	RequestID  string                    `json:"request_id"`
	CreatedAt  time.Time                 `json:"created_at"`
}

// GetReport retrieves a stored compile report by ID
func (c *Client) GetReport(ctx context.Context, id string) (*Report, error) {
	if id == "" {
		return nil, errors.New("id is required")
	}

	var resp Report
	if err := c.do(ctx, http.MethodGet, "/api/reports/"+url.PathEscape(id), nil, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// APIError defines a standardized error response from the API
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"error_code,omitempty"`
	Message    string `json:"error"`

	body []byte
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s (Status: %d)", e.Code, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s (Status: %d)", e.Message, e.StatusCode)
}

// do sends req as JSON when it is not nil and unmarshals the response into resp
func (c *Client) do(ctx context.Context, method, path string, req interface{}, resp interface{}, auth bool) error {
	// Set up context with timeout
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	var body io.Reader
	if req != nil {
		reqBody, err := json.Marshal(req)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(reqBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if auth {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer httpResp.Body.Close()

	// Check for non-success status code
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		raw, _ := io.ReadAll(httpResp.Body)

		apiErr := APIError{body: raw}
		if err := json.Unmarshal(raw, &apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = fmt.Sprintf("request failed with status code %d", httpResp.StatusCode)
		}
		apiErr.StatusCode = httpResp.StatusCode
		return &apiErr
	}

	if err := json.NewDecoder(httpResp.Body).Decode(resp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
