// internal/repository/mock_gen.go
package repository

//go:generate mockgen -source=./report.go -destination=../mocks/mock_report_repository.go -package=mocks ReportRepositoryIface
