package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dangerclosesec/pivot/internal/domain"
	"github.com/dangerclosesec/pivot/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReportRepositoryIface interface {
	Create(ctx context.Context, report *model.Report) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Report, error)
	Query(ctx context.Context, params QueryParams) ([]model.Report, int64, error)
}

// ReportRepository handles database operations for compile reports
type ReportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new ReportRepository
func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{
		db: db,
	}
}

// Create inserts a new report
func (r *ReportRepository) Create(ctx context.Context, report *model.Report) error {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}

	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	result := r.db.WithContext(ctx).Create(report)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return domain.ErrReportExists
		}
		return fmt.Errorf("failed to create report: %w", result.Error)
	}

	return nil
}

// FindByID retrieves a report by its ID
func (r *ReportRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Report, error) {
	var report model.Report
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&report)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to find report: %w", result.Error)
	}

	return &report, nil
}

// QueryParams holds parameters for querying reports
type QueryParams struct {
	Field     string
	HasErrors *bool
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

// Query retrieves reports based on the provided query parameters
func (r *ReportRepository) Query(ctx context.Context, params QueryParams) ([]model.Report, int64, error) {
	var reports []model.Report
	var count int64

	query := r.db.WithContext(ctx).Model(&model.Report{})

	// Apply filters
	if params.Field != "" {
		query = query.Where("jsonb_exists(formulas, ?)", params.Field)
	}
	if params.HasErrors != nil {
		if *params.HasErrors {
			query = query.Where("errors IS NOT NULL AND errors <> '{}'::jsonb")
		} else {
			query = query.Where("errors IS NULL OR errors = '{}'::jsonb")
		}
	}
	if !params.StartTime.IsZero() {
		query = query.Where("created_at >= ?", params.StartTime)
	}
	if !params.EndTime.IsZero() {
		query = query.Where("created_at <= ?", params.EndTime)
	}

	// Get total count for pagination
	if err := query.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reports: %w", err)
	}

	// Apply pagination
	if params.Limit > 0 {
		query = query.Limit(params.Limit)
	} else {
		query = query.Limit(100) // Default limit
	}

	if params.Offset > 0 {
		query = query.Offset(params.Offset)
	}

	result := query.Order("created_at DESC").Find(&reports)
	if result.Error != nil {
		return nil, 0, fmt.Errorf("failed to query reports: %w", result.Error)
	}

	return reports, count, nil
}
