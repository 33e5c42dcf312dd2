// internal/service/formula.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dangerclosesec/pivot/formula"
	"github.com/dangerclosesec/pivot/internal/audit"
	"github.com/dangerclosesec/pivot/internal/domain"
	"github.com/dangerclosesec/pivot/internal/model"
	"github.com/dangerclosesec/pivot/internal/repository"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// FormulaService compiles value-field formulas and keeps the vocabulary
type FormulaService struct {
	compiler *formula.Compiler
	cache    *CacheService
	reports  repository.ReportRepositoryIface
	audit    audit.Logger
	validate *validator.Validate
}

// FormulaServiceOption defines function signature for service options
type FormulaServiceOption func(*FormulaService)

// WithAuditLogger records vocabulary changes with logger
func WithAuditLogger(logger audit.Logger) FormulaServiceOption {
	return func(s *FormulaService) {
		if logger != nil {
			s.audit = logger
		}
	}
}

// NewFormulaService creates a FormulaService. reports may be nil, in which
// case compile requests are not persisted.
func NewFormulaService(
	compiler *formula.Compiler,
	cacheService *CacheService,
	reports repository.ReportRepositoryIface,
	opts ...FormulaServiceOption,
) *FormulaService {
	s := &FormulaService{
		compiler: compiler,
		cache:    cacheService,
		reports:  reports,
		audit:    &audit.NoOpLogger{},
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CompileInput struct {
	Formulas  map[string]string `json:"formulas" validate:"omitempty,dive,keys,required,max=128,endkeys,max=4096"`
	ClientIP  string            `json:"-"`
	UserAgent string            `json:"-"`
}

type CompileOutput struct {
	ReportID   uuid.UUID                 `json:"report_id"`
	Generation uint64                    `json:"generation"`
	Results    map[string][]formula.Node `json:"results"`
	Errors     map[string]string         `json:"errors,omitempty"`
}

// Compile compiles one formula per field. With no formulas, every value
// field is compiled with its default formula. Per-field failures are
// returned in the output alongside an error wrapping domain.ErrCompile.
func (s *FormulaService) Compile(ctx context.Context, input CompileInput) (*CompileOutput, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	snap := s.compiler.Snapshot()
	vocab := snap.Vocabulary()

	formulas := input.Formulas
	if len(formulas) == 0 {
		formulas = make(map[string]string, len(vocab.Values))
		for _, value := range vocab.Values {
			formulas[value] = ""
		}
	}

	for field := range formulas {
		if !vocab.Contains(field) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownField, field)
		}
	}

	output := &CompileOutput{
		Generation: snap.Generation(),
		Results:    make(map[string][]formula.Node, len(formulas)),
	}
	failed := formula.FieldErrors{}

	for field, text := range formulas {
		if strings.TrimSpace(text) == "" {
			text = formula.DefaultFormula(field)
		}

		key := TreeKey{Generation: snap.Generation(), Strict: s.compiler.Strict(), Formula: text}
		tree, _, err := s.cache.GetOrCompile(ctx, key, func() ([]formula.Node, error) {
			return snap.Compile(text)
		})
		if err != nil {
			failed[field] = err
			continue
		}
		output.Results[field] = tree
	}

	if len(failed) > 0 {
		output.Errors = make(map[string]string, len(failed))
		for field, err := range failed {
			output.Errors[field] = err.Error()
		}
	}

	s.saveReport(ctx, input, formulas, output)

	if len(failed) > 0 {
		return output, fmt.Errorf("%w: %w", domain.ErrCompile, failed)
	}
	return output, nil
}

func (s *FormulaService) saveReport(ctx context.Context, input CompileInput, formulas map[string]string, output *CompileOutput) {
	if s.reports == nil {
		return
	}

	report := &model.Report{
		ID:         uuid.New(),
		Generation: int64(output.Generation),
		Strict:     s.compiler.Strict(),
		Formulas:   make(model.JSONMap, len(formulas)),
		Results:    model.Trees(output.Results),
		RequestID:  middleware.GetReqID(ctx),
		ClientIP:   input.ClientIP,
		UserAgent:  input.UserAgent,
	}
	for field, text := range formulas {
		report.Formulas[field] = text
	}
	if len(output.Errors) > 0 {
		report.Errors = make(model.JSONMap, len(output.Errors))
		for field, msg := range output.Errors {
			report.Errors[field] = msg
		}
	}

	if err := s.reports.Create(ctx, report); err != nil {
		slog.WarnContext(ctx, "Failed to store compile report", "error", err, "requestID", report.RequestID)
		return
	}
	output.ReportID = report.ID
}

type TokenizeInput struct {
	Formula string `json:"formula" validate:"max=4096"`
}

type TokenizeOutput struct {
	Generation uint64          `json:"generation"`
	Tokens     []formula.Token `json:"tokens"`
}

// Tokenize returns the raw token stream of one formula
func (s *FormulaService) Tokenize(ctx context.Context, input TokenizeInput) (*TokenizeOutput, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	snap := s.compiler.Snapshot()
	tokens, err := snap.Tokenize(input.Formula)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCompile, err)
	}

	return &TokenizeOutput{Generation: snap.Generation(), Tokens: tokens}, nil
}

type VocabularyOutput struct {
	Generation uint64   `json:"generation"`
	Columns    []string `json:"columns"`
	Rows       []string `json:"rows"`
	Values     []string `json:"values"`
}

// VocabularyInput replaces the lists that are present and keeps the others
type VocabularyInput struct {
	Columns *[]string `json:"columns,omitempty"`
	Rows    *[]string `json:"rows,omitempty"`
	Values  *[]string `json:"values,omitempty"`
	Subject string    `json:"-"`
}

// GetVocabulary returns the current field lists
func (s *FormulaService) GetVocabulary(_ context.Context) *VocabularyOutput {
	return vocabularyOutput(s.compiler.Snapshot())
}

// UpdateVocabulary replaces the given lists in a single tokenizer rebuild
func (s *FormulaService) UpdateVocabulary(ctx context.Context, input VocabularyInput) (*VocabularyOutput, error) {
	if input.Columns == nil && input.Rows == nil && input.Values == nil {
		return nil, fmt.Errorf("%w: no field list given", domain.ErrInvalidInput)
	}

	before := s.compiler.Vocabulary()
	err := s.compiler.Modify(func(v *formula.Vocabulary) {
		if input.Columns != nil {
			v.Columns = *input.Columns
		}
		if input.Rows != nil {
			v.Rows = *input.Rows
		}
		if input.Values != nil {
			v.Values = *input.Values
		}
	})
	if err != nil {
		if errors.Is(err, formula.ErrVocabulary) {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
		return nil, err
	}

	snap := s.compiler.Snapshot()
	if err := s.audit.LogVocabularyUpdate(ctx, input.Subject, before, snap.Vocabulary(), snap.Generation()); err != nil {
		slog.WarnContext(ctx, "Failed to audit vocabulary update", "error", err, "requestID", middleware.GetReqID(ctx))
	}
	return vocabularyOutput(snap), nil
}

func vocabularyOutput(snap *formula.Snapshot) *VocabularyOutput {
	vocab := snap.Vocabulary()
	return &VocabularyOutput{
		Generation: snap.Generation(),
		Columns:    vocab.Columns,
		Rows:       vocab.Rows,
		Values:     vocab.Values,
	}
}

// GetReports retrieves stored compile reports
func (s *FormulaService) GetReports(ctx context.Context, params repository.QueryParams) ([]model.Report, int64, error) {
	if s.reports == nil {
		return nil, 0, domain.ErrStoreDisabled
	}
	return s.reports.Query(ctx, params)
}

// GetReportByID retrieves one stored compile report
func (s *FormulaService) GetReportByID(ctx context.Context, id uuid.UUID) (*model.Report, error) {
	if s.reports == nil {
		return nil, domain.ErrStoreDisabled
	}
	return s.reports.FindByID(ctx, id)
}
