// File: formula/tree.go
package formula

// Node is one element of a compiled formula tree. The JSON field names are
// the contract with the query backend.
type Node struct {
	Category Category `json:"tokenType" yaml:"tokenType"`
	Text     string   `json:"tokenValue" yaml:"tokenValue"`
	Children []Node   `json:"arguments" yaml:"arguments"`
}

// Depth returns the number of levels below and including n
func (n Node) Depth() int {
	max := 0
	for _, child := range n.Children {
		if d := child.Depth(); d > max {
			max = d
		}
	}
	return max + 1
}

// scoped is an arena entry: a kept token and the arena index of its owner
type scoped struct {
	token  Token
	parent int
}

// frame is an open parenthesis level. owner is the arena index of the call
// token, or -1 for a grouping parenthesis that does not change the parent.
type frame struct {
	owner    int
	offset   int
	text     string
	awaiting bool
}

const topLevel = -1

// BuildTree folds a raw token stream into a tree. Only FUNCTION and
// AGGREGATE_FUNCTION tokens own children; separators are kept as leaves.
func BuildTree(tokens []Token, opts ...Option) ([]Node, error) {
	o := newOptions(opts)

	arena := make([]scoped, 0, len(tokens))
	var stack []frame

	current := func() int {
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].owner != topLevel {
				return stack[i].owner
			}
		}
		return topLevel
	}

	for _, tok := range tokens {
		switch tok.Category {
		case CategoryWhitespace:
			continue

		case CategoryArgumentStart:
			if n := len(stack); n > 0 && stack[n-1].awaiting {
				stack[n-1].awaiting = false
				continue
			}
			stack = append(stack, frame{owner: topLevel, offset: tok.Offset, text: tok.Text})

		case CategoryArgumentEnd:
			if len(stack) == 0 {
				if o.strict {
					return nil, &UnbalancedScopeError{Offset: tok.Offset, Text: tok.Text}
				}
				continue
			}
			stack = stack[:len(stack)-1]

		default:
			arena = append(arena, scoped{token: tok, parent: current()})
			if tok.Category.OpensScope() {
				stack = append(stack, frame{
					owner:    len(arena) - 1,
					offset:   tok.Offset,
					text:     tok.Text,
					awaiting: true,
				})
			}
		}
	}

	if o.strict && len(stack) > 0 {
		open := stack[len(stack)-1]
		return nil, &UnbalancedScopeError{Offset: open.offset, Text: open.text, Open: true}
	}

	return fold(arena), nil
}

// fold turns the parent-annotated arena into nested nodes, keeping source
// order within each scope.
func fold(arena []scoped) []Node {
	children := make(map[int][]int, len(arena))
	for i, entry := range arena {
		children[entry.parent] = append(children[entry.parent], i)
	}

	var build func(parent int) []Node
	build = func(parent int) []Node {
		nodes := make([]Node, 0, len(children[parent]))
		for _, idx := range children[parent] {
			tok := arena[idx].token
			node := Node{Category: tok.Category, Text: tok.Text, Children: []Node{}}
			if tok.Category.OpensScope() {
				node.Children = build(idx)
			}
			nodes = append(nodes, node)
		}
		return nodes
	}

	return build(topLevel)
}
