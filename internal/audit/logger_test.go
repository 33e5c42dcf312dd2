package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/dangerclosesec/pivot/formula"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	added, removed := Diff([]string{"month", "revenue"}, []string{"revenue", "profit"})
	assert.Equal(t, []string{"profit"}, added)
	assert.Equal(t, []string{"month"}, removed)

	added, removed = Diff(nil, nil)
	assert.Empty(t, added)
	assert.NotNil(t, removed)
}

func TestSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	before := formula.NewVocabulary([]string{"month"}, nil, []string{"revenue"})
	after := formula.NewVocabulary([]string{"month"}, nil, []string{"revenue", "profit"})

	require.NoError(t, l.LogVocabularyUpdate(context.Background(), "ops", before, after, 2))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "vocabulary updated", record["msg"])
	assert.Equal(t, "ops", record["subject"])
	assert.Equal(t, true, record["audit"])
	assert.Equal(t, float64(2), record["generation"])
	assert.Equal(t, []any{"profit"}, record["added"])
	assert.Equal(t, []any{}, record["removed"])
}
