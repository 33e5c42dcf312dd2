// File: formula/vocabulary.go
package formula

// Vocabulary holds the field names a formula may reference. Order is kept
// for display only and has no effect on tokenization.
type Vocabulary struct {
	Columns []string `json:"columns" yaml:"columns" toml:"columns"`
	Rows    []string `json:"rows" yaml:"rows" toml:"rows"`
	Values  []string `json:"values" yaml:"values" toml:"values"`
}

// NewVocabulary creates a Vocabulary from copies of the given lists
func NewVocabulary(columns, rows, values []string) Vocabulary {
	return Vocabulary{
		Columns: clone(columns),
		Rows:    clone(rows),
		Values:  clone(values),
	}
}

// Clone returns a deep copy
func (v Vocabulary) Clone() Vocabulary {
	return NewVocabulary(v.Columns, v.Rows, v.Values)
}

// Fields returns columns, rows and values concatenated in that order
func (v Vocabulary) Fields() []string {
	fields := make([]string, 0, len(v.Columns)+len(v.Rows)+len(v.Values))
	fields = append(fields, v.Columns...)
	fields = append(fields, v.Rows...)
	fields = append(fields, v.Values...)
	return fields
}

// Contains reports whether name is a field of any list
func (v Vocabulary) Contains(name string) bool {
	for _, field := range v.Fields() {
		if field == name {
			return true
		}
	}
	return false
}

// Validate checks that every field can be embedded in the COLUMN rule
// without escaping and without shadowing a keyword.
func (v Vocabulary) Validate() error {
	seen := make(map[string]bool)
	for _, field := range v.Fields() {
		if field == "" {
			return &VocabularyError{Field: field, Reason: "name is empty"}
		}
		if !isIdentifier(field) {
			return &VocabularyError{Field: field, Reason: "name must start with a letter or underscore and contain only letters, digits and underscores"}
		}
		if isReserved(field) {
			return &VocabularyError{Field: field, Reason: "name is a reserved function keyword"}
		}
		if kw, ok := shadowedKeyword(field); ok {
			return &VocabularyError{Field: field, Reason: "name is a prefix of the keyword " + kw}
		}
		if seen[field] {
			return &VocabularyError{Field: field, Reason: "name is listed more than once"}
		}
		seen[field] = true
	}
	return nil
}

func isIdentifier(s string) bool {
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '_', 'a' <= ch && ch <= 'z', 'A' <= ch && ch <= 'Z':
		case '0' <= ch && ch <= '9' && i > 0:
		default:
			return false
		}
	}
	return len(s) > 0
}

func clone(s []string) []string {
	if s == nil {
		return []string{}
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
