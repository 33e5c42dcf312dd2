package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/dangerclosesec/pivot/formula"
)

// DefaultVocabulary is used when no vocabulary file is configured
func DefaultVocabulary() formula.Vocabulary {
	return formula.NewVocabulary(
		[]string{"month"},
		[]string{"region", "package"},
		[]string{"revenue", "salaries"},
	)
}

// vocabularyFile is the on-disk layout shared by the TOML and YAML formats
type vocabularyFile struct {
	Columns []string `toml:"columns" yaml:"columns"`
	Rows    []string `toml:"rows" yaml:"rows"`
	Values  []string `toml:"values" yaml:"values"`
}

// LoadVocabulary reads a vocabulary from a .toml, .yaml or .yml file.
// An empty path returns DefaultVocabulary.
func LoadVocabulary(path string) (formula.Vocabulary, error) {
	if path == "" {
		return DefaultVocabulary(), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return formula.Vocabulary{}, fmt.Errorf("reading vocabulary file: %w", err)
	}

	var file vocabularyFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(content, &file); err != nil {
			return formula.Vocabulary{}, fmt.Errorf("parsing TOML vocabulary %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, &file); err != nil {
			return formula.Vocabulary{}, fmt.Errorf("parsing YAML vocabulary %s: %w", path, err)
		}
	default:
		return formula.Vocabulary{}, fmt.Errorf("unsupported vocabulary file extension %q", ext)
	}

	vocab := formula.NewVocabulary(file.Columns, file.Rows, file.Values)
	if err := vocab.Validate(); err != nil {
		return formula.Vocabulary{}, fmt.Errorf("vocabulary file %s: %w", path, err)
	}

	return vocab, nil
}
