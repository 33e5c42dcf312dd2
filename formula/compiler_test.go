package formula

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVocabularyAccessors(t *testing.T) {
	c := newDemoCompiler(t)

	assert.Equal(t, []string{"month"}, c.Columns())
	assert.Equal(t, []string{"region", "package"}, c.Rows())
	assert.Equal(t, []string{"revenue", "salaries"}, c.Values())
	assert.Equal(t, uint64(1), c.Generation())

	// returned slices are copies
	cols := c.Columns()
	cols[0] = "changed"
	assert.Equal(t, []string{"month"}, c.Columns())
}

func TestUpdateRebuildsTokenizer(t *testing.T) {
	c := newDemoCompiler(t)

	_, err := c.Compile("SUM(profit)")
	require.Error(t, err)

	require.NoError(t, c.UpdateValues([]string{"revenue", "salaries", "profit"}))
	assert.Equal(t, uint64(2), c.Generation())

	tree, err := c.Compile("SUM(profit)")
	require.NoError(t, err)
	assert.Equal(t, "profit", tree[0].Children[0].Text)

	require.NoError(t, c.UpdateColumns([]string{"quarter"}))
	require.NoError(t, c.UpdateRows([]string{"country"}))
	assert.Equal(t, uint64(4), c.Generation())

	_, err = c.Compile("COUNT(month)")
	assert.True(t, errors.Is(err, ErrLexical), "removed field is no longer recognized")

	_, err = c.Compile("COUNT(quarter) + COUNT(country)")
	assert.NoError(t, err)
}

func TestRejectedUpdateKeepsTokenizer(t *testing.T) {
	c := newDemoCompiler(t)
	before := c.Tokenizer()

	err := c.UpdateRows([]string{"SUM"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrVocabulary))

	assert.Same(t, before, c.Tokenizer())
	assert.Equal(t, uint64(1), c.Generation())
	assert.Equal(t, []string{"region", "package"}, c.Rows())
}

func TestSetVocabulary(t *testing.T) {
	c := newDemoCompiler(t)

	vocab := NewVocabulary([]string{"year"}, nil, []string{"units"})
	require.NoError(t, c.SetVocabulary(vocab))

	assert.Equal(t, vocab, c.Vocabulary())
	_, err := c.Compile("SUM(units)")
	assert.NoError(t, err)
}

func TestFieldOrderDoesNotChangeTrees(t *testing.T) {
	a, err := NewCompiler(NewVocabulary([]string{"month"}, []string{"region", "package"}, []string{"revenue", "salaries"}))
	require.NoError(t, err)
	b, err := NewCompiler(NewVocabulary([]string{"month"}, []string{"package", "region"}, []string{"salaries", "revenue"}))
	require.NoError(t, err)

	for _, formula := range []string{"SUM(revenue)", "COUNT(package)+COUNT(region)", "IF(salaries<revenue,month,0)"} {
		ta, err := a.Compile(formula)
		require.NoError(t, err)
		tb, err := b.Compile(formula)
		require.NoError(t, err)
		assert.Equal(t, ta, tb, formula)
	}
}

func TestCompileFieldsDefaults(t *testing.T) {
	c := newDemoCompiler(t)

	results, err := c.CompileFields(map[string]string{
		"revenue":  "",
		"salaries": "AVERAGE(salaries)",
	})
	require.NoError(t, err)

	assert.Equal(t, "SUM", results["revenue"][0].Text)
	assert.Equal(t, "revenue", results["revenue"][0].Children[0].Text)
	assert.Equal(t, "AVERAGE", results["salaries"][0].Text)
}

func TestCompileFieldsCollectsErrors(t *testing.T) {
	c := newDemoCompiler(t)

	results, err := c.CompileFields(map[string]string{
		"revenue":  "SUM(revenue) & 1",
		"salaries": "MAX(salaries)",
	})
	require.Error(t, err)

	var fieldErrs FieldErrors
	require.True(t, errors.As(err, &fieldErrs))
	assert.Contains(t, fieldErrs, "revenue")
	assert.NotContains(t, fieldErrs, "salaries")
	assert.True(t, errors.Is(err, ErrLexical))

	assert.Contains(t, results, "salaries")
	assert.NotContains(t, results, "revenue")
}

func TestDefaultFormula(t *testing.T) {
	assert.Equal(t, "SUM(revenue)", DefaultFormula("revenue"))
}

func TestConcurrentCompileDuringUpdates(t *testing.T) {
	c := newDemoCompiler(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				tree, err := c.Compile("SUM(revenue)")
				if assert.NoError(t, err) {
					assert.Equal(t, "revenue", tree[0].Children[0].Text)
				}
			}
		}()
	}

	for i := 0; i < 20; i++ {
		require.NoError(t, c.UpdateColumns([]string{fmt.Sprintf("col_%d", i)}))
	}
	wg.Wait()

	assert.Equal(t, uint64(21), c.Generation())
}

func TestModifyIsOneUpdate(t *testing.T) {
	c := newDemoCompiler(t)

	err := c.Modify(func(v *Vocabulary) {
		v.Columns = []string{"quarter"}
		v.Values = append(v.Values, "profit")
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(2), c.Generation())
	assert.Equal(t, []string{"quarter"}, c.Columns())
	assert.Equal(t, []string{"revenue", "salaries", "profit"}, c.Values())

	err = c.Modify(func(v *Vocabulary) { v.Rows = []string{"rev enue"} })
	assert.True(t, errors.Is(err, ErrVocabulary))
	assert.Equal(t, uint64(2), c.Generation())
}

func TestSnapshotIsStable(t *testing.T) {
	c := newDemoCompiler(t)
	snap := c.Snapshot()

	require.NoError(t, c.UpdateValues([]string{"profit"}))

	assert.Equal(t, uint64(1), snap.Generation())
	assert.Equal(t, []string{"revenue", "salaries"}, snap.Vocabulary().Values)

	_, err := snap.Compile("SUM(revenue)")
	assert.NoError(t, err)
	_, err = c.Compile("SUM(revenue)")
	assert.True(t, errors.Is(err, ErrLexical))

	assert.Equal(t, uint64(2), c.Snapshot().Generation())
}

func TestStrictCompiler(t *testing.T) {
	c, err := NewCompiler(demoVocabulary(), WithStrictScopes())
	require.NoError(t, err)
	assert.True(t, c.Strict())

	_, err = c.Compile("SUM(revenue")
	assert.True(t, errors.Is(err, ErrUnbalancedScope))

	_, err = c.Compile("revenue)")
	assert.True(t, errors.Is(err, ErrUnbalancedScope))

	require.NoError(t, c.UpdateRows([]string{"country"}))
	_, err = c.Compile("MAX(revenue")
	assert.True(t, errors.Is(err, ErrUnbalancedScope), "strictness survives rebuilds")
}
