// File: formula/compiler.go
package formula

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Option configures a Compiler or a BuildTree call
type Option func(*options)

type options struct {
	strict bool
	logger *slog.Logger
}

func newOptions(opts []Option) options {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithStrictScopes rejects a ")" with no open scope and scopes left open at
// the end of the formula. By default both are tolerated.
func WithStrictScopes() Option {
	return func(o *options) {
		o.strict = true
	}
}

// WithLogger sets the logger used for vocabulary rebuilds
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Snapshot is one published tokenizer together with its generation. A
// Snapshot never changes, so work done against it sees a single vocabulary.
type Snapshot struct {
	tokenizer  *Tokenizer
	generation uint64
	strict     bool
}

// Generation identifies the tokenizer the snapshot was taken from
func (s *Snapshot) Generation() uint64 {
	return s.generation
}

// Vocabulary returns a copy of the snapshot's vocabulary
func (s *Snapshot) Vocabulary() Vocabulary {
	return s.tokenizer.Vocabulary()
}

// Tokenize returns the raw token stream for formula
func (s *Snapshot) Tokenize(formula string) ([]Token, error) {
	return s.tokenizer.Tokenize(formula)
}

// Compile tokenizes formula and builds its tree. An empty formula yields an
// empty tree.
func (s *Snapshot) Compile(formula string) ([]Node, error) {
	tokens, err := s.tokenizer.Tokenize(formula)
	if err != nil {
		return nil, err
	}

	var opts []Option
	if s.strict {
		opts = append(opts, WithStrictScopes())
	}
	return BuildTree(tokens, opts...)
}

// CompileFields compiles one formula per field. A blank formula compiles as
// SUM(field). Fields that fail are reported in a FieldErrors; the others are
// still returned.
func (s *Snapshot) CompileFields(formulas map[string]string) (map[string][]Node, error) {
	results := make(map[string][]Node, len(formulas))
	failed := FieldErrors{}

	for field, formula := range formulas {
		if formula == "" {
			formula = DefaultFormula(field)
		}

		tree, err := s.Compile(formula)
		if err != nil {
			failed[field] = err
			continue
		}
		results[field] = tree
	}

	if len(failed) > 0 {
		return results, failed
	}
	return results, nil
}

// Compiler turns formulas into trees against the current vocabulary.
// Compile calls may run concurrently with vocabulary updates; each call
// uses exactly one tokenizer.
type Compiler struct {
	mu      sync.Mutex // serializes writers
	current atomic.Pointer[Snapshot]
	opts    options
}

// NewCompiler builds the initial tokenizer for vocab
func NewCompiler(vocab Vocabulary, opts ...Option) (*Compiler, error) {
	c := &Compiler{opts: newOptions(opts)}

	tokenizer, err := NewTokenizer(vocab)
	if err != nil {
		return nil, err
	}
	c.current.Store(&Snapshot{tokenizer: tokenizer, generation: 1, strict: c.opts.strict})

	return c, nil
}

// Snapshot returns the currently published tokenizer
func (c *Compiler) Snapshot() *Snapshot {
	return c.current.Load()
}

// Compile compiles formula against the current snapshot
func (c *Compiler) Compile(formula string) ([]Node, error) {
	return c.Snapshot().Compile(formula)
}

// Tokenize tokenizes formula against the current snapshot
func (c *Compiler) Tokenize(formula string) ([]Token, error) {
	return c.Snapshot().Tokenize(formula)
}

// CompileFields compiles a formula per field against the current snapshot
func (c *Compiler) CompileFields(formulas map[string]string) (map[string][]Node, error) {
	return c.Snapshot().CompileFields(formulas)
}

// DefaultFormula is the formula used for a value field with no formula
func DefaultFormula(field string) string {
	return fmt.Sprintf("SUM(%s)", field)
}

// Strict reports whether unbalanced scopes are rejected
func (c *Compiler) Strict() bool {
	return c.opts.strict
}

// Generation identifies the current tokenizer. It increases with every
// successful vocabulary update.
func (c *Compiler) Generation() uint64 {
	return c.current.Load().generation
}

// Tokenizer returns the tokenizer currently in use
func (c *Compiler) Tokenizer() *Tokenizer {
	return c.current.Load().tokenizer
}

// Vocabulary returns a copy of the current vocabulary
func (c *Compiler) Vocabulary() Vocabulary {
	return c.current.Load().tokenizer.Vocabulary()
}

func (c *Compiler) Columns() []string { return c.Vocabulary().Columns }

func (c *Compiler) Rows() []string { return c.Vocabulary().Rows }

func (c *Compiler) Values() []string { return c.Vocabulary().Values }

// SetVocabulary replaces all three lists
func (c *Compiler) SetVocabulary(vocab Vocabulary) error {
	return c.update(func(Vocabulary) Vocabulary { return vocab.Clone() })
}

// UpdateColumns replaces the column names
func (c *Compiler) UpdateColumns(columns []string) error {
	return c.update(func(v Vocabulary) Vocabulary {
		v.Columns = clone(columns)
		return v
	})
}

// UpdateRows replaces the row names
func (c *Compiler) UpdateRows(rows []string) error {
	return c.update(func(v Vocabulary) Vocabulary {
		v.Rows = clone(rows)
		return v
	})
}

// UpdateValues replaces the value names
func (c *Compiler) UpdateValues(values []string) error {
	return c.update(func(v Vocabulary) Vocabulary {
		v.Values = clone(values)
		return v
	})
}

// Modify applies edit to a copy of the current vocabulary and publishes the
// result as one update.
func (c *Compiler) Modify(edit func(v *Vocabulary)) error {
	return c.update(func(v Vocabulary) Vocabulary {
		edit(&v)
		return v
	})
}

// update builds a tokenizer for the edited vocabulary and publishes it.
// On error the current tokenizer stays in place.
func (c *Compiler) update(edit func(Vocabulary) Vocabulary) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.current.Load()
	next := edit(prev.tokenizer.Vocabulary())

	tokenizer, err := NewTokenizer(next)
	if err != nil {
		c.opts.logger.Warn("vocabulary update rejected", "error", err)
		return err
	}

	c.current.Store(&Snapshot{tokenizer: tokenizer, generation: prev.generation + 1, strict: c.opts.strict})
	c.opts.logger.Debug("tokenizer rebuilt",
		"generation", prev.generation+1,
		"columns", len(next.Columns),
		"rows", len(next.Rows),
		"values", len(next.Values),
	)

	return nil
}
