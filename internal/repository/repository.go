// internal/repository/repository.go
package repository

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dangerclosesec/pivot/internal/model"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation
const uniqueViolation = "23505"

// Migrate creates or updates the tables used by the repositories.
func Migrate(db *gorm.DB) error {
	slog.Info("Migrating report schema")
	if err := db.AutoMigrate(&model.Report{}); err != nil {
		return fmt.Errorf("migrating reports: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err came from a unique constraint
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
