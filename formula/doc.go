// Package formula compiles pivot-table aggregation formulas such as
// SUM(revenue) or IF(revenue>1000,1,0) into nested token trees.
//
// A Tokenizer is compiled from a Vocabulary of field names; those names are
// the only identifiers recognized as COLUMN tokens. BuildTree then assigns
// every kept token to the FUNCTION or AGGREGATE_FUNCTION call whose
// parentheses enclose it. Parentheses and whitespace are dropped, commas are
// kept as SEPARATOR leaves.
//
//	c, err := formula.NewCompiler(formula.NewVocabulary(
//		[]string{"month"}, []string{"region"}, []string{"revenue"}))
//	tree, err := c.Compile("SUM(revenue)")
//
// Compiler is safe for concurrent use. Vocabulary updates rebuild the
// tokenizer and swap it atomically.
package formula
