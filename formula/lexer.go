// File: formula/lexer.go
package formula

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"
)

// Rule pairs a token category with the pattern that recognizes it
type Rule struct {
	Category Category
	Pattern  string
}

// Fixed patterns. COLUMN is generated per vocabulary.
const (
	operatorPattern      = `\*|\+|-|/`
	argumentStartPattern = `\(`
	argumentEndPattern   = `\)`
	comparatorPattern    = `>=|>|<=|<>|<|!=|==|=`
	numberPattern        = `([0-9]+(\.[0-9]+)?|\.[0-9]+)((e|E)(\+|-)?[0-9]+)?`
	whitespacePattern    = `( |\t|\n|\r)+`
	separatorPattern     = `,`
)

// Tokenizer is an immutable, compiled rule set for one vocabulary snapshot.
// It is safe for concurrent use.
type Tokenizer struct {
	vocab Vocabulary
	rules []Rule
	lexer *lexmachine.Lexer
}

// NewTokenizer validates the vocabulary and compiles the ordered rule list
// into a single DFA. The longest match wins; equal-length matches go to the
// earlier rule.
func NewTokenizer(vocab Vocabulary) (*Tokenizer, error) {
	if err := vocab.Validate(); err != nil {
		return nil, err
	}

	rules := buildRules(vocab)
	lexer := lexmachine.NewLexer()
	for _, r := range rules {
		lexer.Add([]byte(r.Pattern), tokenAction(r.Category))
	}

	if err := lexer.CompileDFA(); err != nil {
		return nil, fmt.Errorf("compiling lexer: %w", err)
	}

	return &Tokenizer{
		vocab: vocab.Clone(),
		rules: rules,
		lexer: lexer,
	}, nil
}

// buildRules assembles the rule list in priority order
func buildRules(vocab Vocabulary) []Rule {
	rules := []Rule{{Category: CategoryOperator, Pattern: operatorPattern}}

	if column := columnPattern(vocab.Fields()); column != "" {
		rules = append(rules, Rule{Category: CategoryColumn, Pattern: column})
	}

	return append(rules,
		Rule{Category: CategoryArgumentStart, Pattern: argumentStartPattern},
		Rule{Category: CategoryArgumentEnd, Pattern: argumentEndPattern},
		Rule{Category: CategoryFunction, Pattern: strings.Join(Functions, "|")},
		Rule{Category: CategoryAggregateFunction, Pattern: strings.Join(AggregateFunctions, "|")},
		Rule{Category: CategoryComparator, Pattern: comparatorPattern},
		Rule{Category: CategoryNumber, Pattern: numberPattern},
		Rule{Category: CategoryWhitespace, Pattern: whitespacePattern},
		Rule{Category: CategorySeparator, Pattern: separatorPattern},
	)
}

// columnPattern joins the field names longest first so that a field never
// loses to a shorter field it starts with.
func columnPattern(fields []string) string {
	seen := make(map[string]bool, len(fields))
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			names = append(names, f)
		}
	}

	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})

	return strings.Join(names, "|")
}

func tokenAction(category Category) func(*lexmachine.Scanner, *machines.Match) (interface{}, error) {
	return func(_ *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		return Token{
			Category: category,
			Text:     string(m.Bytes),
			Offset:   m.TC,
			Line:     m.StartLine,
			Column:   m.StartColumn,
		}, nil
	}
}

// Tokenize splits formula into raw tokens, whitespace included
func (t *Tokenizer) Tokenize(formula string) ([]Token, error) {
	tokens := []Token{}
	if formula == "" {
		return tokens, nil
	}

	scanner, err := t.lexer.Scanner([]byte(formula))
	if err != nil {
		return nil, fmt.Errorf("creating scanner: %w", err)
	}

	for tok, err, eos := scanner.Next(); !eos; tok, err, eos = scanner.Next() {
		var unconsumed *machines.UnconsumedInput
		if errors.As(err, &unconsumed) {
			return nil, &LexicalError{
				Offset:    unconsumed.StartTC,
				Line:      unconsumed.StartLine,
				Column:    unconsumed.StartColumn,
				Remainder: formula[unconsumed.StartTC:],
			}
		} else if err != nil {
			return nil, fmt.Errorf("scanning formula: %w", err)
		}

		tokens = append(tokens, tok.(Token))
	}

	return tokens, nil
}

// Vocabulary returns a copy of the vocabulary the tokenizer was built from
func (t *Tokenizer) Vocabulary() Vocabulary {
	return t.vocab.Clone()
}

// Rules returns the ordered rule list
func (t *Tokenizer) Rules() []Rule {
	rules := make([]Rule, len(t.rules))
	copy(rules, t.rules)
	return rules
}

// Pattern returns the pattern used for a category
func (t *Tokenizer) Pattern(category Category) (string, bool) {
	for _, r := range t.rules {
		if r.Category == category {
			return r.Pattern, true
		}
	}
	return "", false
}
