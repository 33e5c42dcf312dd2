package audit

import (
	"context"
	"log/slog"
	"slices"

	"github.com/dangerclosesec/pivot/formula"
)

// Logger defines the interface for auditing vocabulary changes
type Logger interface {
	// LogVocabularyUpdate records a published vocabulary change
	LogVocabularyUpdate(
		ctx context.Context,
		subject string,
		before formula.Vocabulary,
		after formula.Vocabulary,
		generation uint64,
	) error
}

// SlogLogger writes audit records through a slog.Logger
type SlogLogger struct {
	logger *slog.Logger
}

func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger.With("audit", true)}
}

// LogVocabularyUpdate implements Logger.LogVocabularyUpdate
func (l *SlogLogger) LogVocabularyUpdate(
	ctx context.Context,
	subject string,
	before formula.Vocabulary,
	after formula.Vocabulary,
	generation uint64,
) error {
	added, removed := Diff(before.Fields(), after.Fields())
	l.logger.InfoContext(ctx, "vocabulary updated",
		"subject", subject,
		"generation", generation,
		"added", added,
		"removed", removed,
	)
	return nil
}

// Diff returns the names present only in after and only in before, in the
// order they appear there.
func Diff(before, after []string) (added, removed []string) {
	added, removed = []string{}, []string{}
	for _, name := range after {
		if !slices.Contains(before, name) {
			added = append(added, name)
		}
	}
	for _, name := range before {
		if !slices.Contains(after, name) {
			removed = append(removed, name)
		}
	}
	return added, removed
}

// NoOpLogger is a logger that does nothing
type NoOpLogger struct{}

// LogVocabularyUpdate implements Logger.LogVocabularyUpdate
func (l *NoOpLogger) LogVocabularyUpdate(
	ctx context.Context,
	subject string,
	before formula.Vocabulary,
	after formula.Vocabulary,
	generation uint64,
) error {
	return nil
}
