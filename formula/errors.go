// File: formula/errors.go
package formula

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrLexical         = errors.New("lexical error")
	ErrUnbalancedScope = errors.New("unbalanced scope")
	ErrVocabulary      = errors.New("invalid vocabulary")
)

// LexicalError reports input that matches no lexical rule
type LexicalError struct {
	Offset    int
	Line      int
	Column    int
	Remainder string
}

func (e *LexicalError) Error() string {
	return fmt.Sprintf("unrecognized text %q at position %d (line %d, column %d)",
		excerpt(e.Remainder), e.Offset, e.Line, e.Column)
}

func (e *LexicalError) Is(target error) bool {
	return target == ErrLexical
}

// UnbalancedScopeError is only produced with WithStrictScopes
type UnbalancedScopeError struct {
	Offset int
	// Open is true for a scope that was never closed, false for a stray ")".
	Open bool
	Text string
}

func (e *UnbalancedScopeError) Error() string {
	if e.Open {
		return fmt.Sprintf("unclosed scope %q opened at position %d", e.Text, e.Offset)
	}
	return fmt.Sprintf("unexpected %q at position %d with no open scope", e.Text, e.Offset)
}

func (e *UnbalancedScopeError) Is(target error) bool {
	return target == ErrUnbalancedScope
}

// VocabularyError reports a field name that cannot be embedded in the lexer
type VocabularyError struct {
	Field  string
	Reason string
}

func (e *VocabularyError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

func (e *VocabularyError) Is(target error) bool {
	return target == ErrVocabulary
}

// FieldErrors collects compile errors keyed by field name
type FieldErrors map[string]error

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for field := range fe {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %v", field, fe[field]))
	}
	return strings.Join(parts, "; ")
}

// Unwrap exposes the individual errors to errors.Is and errors.As
func (fe FieldErrors) Unwrap() []error {
	errs := make([]error, 0, len(fe))
	for _, err := range fe {
		errs = append(errs, err)
	}
	return errs
}

func excerpt(s string) string {
	const max = 16
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
