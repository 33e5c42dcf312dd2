// File: formula/token.go
package formula

import "fmt"

// Category represents the lexical category of a token
type Category int

// Token categories, in the order the lexer tries them
const (
	CategoryOperator Category = iota
	CategoryColumn
	CategoryArgumentStart
	CategoryArgumentEnd
	CategoryFunction
	CategoryAggregateFunction
	CategoryComparator
	CategoryNumber
	CategoryWhitespace
	CategorySeparator
)

var categoryNames = map[Category]string{
	CategoryOperator:          "OPERATOR",
	CategoryColumn:            "COLUMN",
	CategoryArgumentStart:     "ARGUMENT_START",
	CategoryArgumentEnd:       "ARGUMENT_END",
	CategoryFunction:          "FUNCTION",
	CategoryAggregateFunction: "AGGREGATE_FUNCTION",
	CategoryComparator:        "COMPARATOR",
	CategoryNumber:            "NUMBER",
	CategoryWhitespace:        "WHITESPACE",
	CategorySeparator:         "SEPARATOR",
}

// String returns the wire name of the category
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// MarshalText encodes the category by its wire name
func (c Category) MarshalText() ([]byte, error) {
	name, ok := categoryNames[c]
	if !ok {
		return nil, fmt.Errorf("unknown token category %d", int(c))
	}
	return []byte(name), nil
}

// UnmarshalText decodes a category from its wire name
func (c *Category) UnmarshalText(text []byte) error {
	cat, ok := LookupCategory(string(text))
	if !ok {
		return fmt.Errorf("unknown token category %q", text)
	}
	*c = cat
	return nil
}

// LookupCategory maps a wire name back to its category
func LookupCategory(name string) (Category, bool) {
	for cat, n := range categoryNames {
		if n == name {
			return cat, true
		}
	}
	return 0, false
}

// OpensScope reports whether tokens of this category own the tokens
// between their parentheses.
func (c Category) OpensScope() bool {
	return c == CategoryFunction || c == CategoryAggregateFunction
}

// Token is a raw lexical token
type Token struct {
	Category Category `json:"category"`
	Text     string   `json:"text"`
	Offset   int      `json:"offset"`
	Line     int      `json:"line"`
	Column   int      `json:"column"`
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d", t.Category, t.Text, t.Offset)
}

// Reserved keywords. Longer alternatives come first so a pattern read
// left to right never stops at a shorter keyword.
var (
	AggregateFunctions = []string{"AVERAGE", "COUNT", "SUM", "MEDIAN", "MIN", "MAX"}
	Functions          = []string{"IFERROR", "IF"}
)

// isReserved reports whether name is one of the function keywords
func isReserved(name string) bool {
	for _, kw := range AggregateFunctions {
		if kw == name {
			return true
		}
	}
	for _, kw := range Functions {
		if kw == name {
			return true
		}
	}
	return false
}

// shadowedKeyword returns the keyword that name is a proper prefix of, if any
func shadowedKeyword(name string) (string, bool) {
	for _, list := range [][]string{AggregateFunctions, Functions} {
		for _, kw := range list {
			if len(name) < len(kw) && kw[:len(name)] == name {
				return kw, true
			}
		}
	}
	return "", false
}
