package flatten

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ir "github.com/hanpama/flatgraph/internal/ir"
	language "github.com/hanpama/flatgraph/internal/language"
	schema "github.com/hanpama/flatgraph/internal/schema"
)

func compileTestdata(t *testing.T) *ir.Context {
	t.Helper()
	sdl, err := os.ReadFile(filepath.Join("testdata", "schema.graphql"))
	require.NoError(t, err)
	sch, err := schema.LoadSDL(string(sdl))
	require.NoError(t, err)

	src, err := os.ReadFile(filepath.Join("testdata", "queries.graphql"))
	require.NoError(t, err)
	doc, err := language.ParseQuery("queries.graphql", string(src))
	require.NoError(t, err)
	c, err := ir.CompileDocument(sch, doc)
	require.NoError(t, err)
	return c
}

// renderTypeCases writes the TypeCase of ss, then recurses into the fields
// of its default record that have selection sets.
func renderTypeCases(b *strings.Builder, c *ir.Context, label string, ss *ir.SelectionSet) {
	tc := NewTypeCase(ir.MergeInFragmentSpreads(c, ss), WithInlineRedundantTypeConditions())
	b.WriteString(label + "\n")
	b.WriteString(tc.String())
	for _, f := range tc.Default().Fields() {
		if f.SelectionSet != nil {
			renderTypeCases(b, c, label+"."+f.ResponseKey, f.SelectionSet)
		}
	}
}

func TestTypeCaseGolden(t *testing.T) {
	c := compileTestdata(t)

	var b strings.Builder
	for _, op := range c.Operations {
		renderTypeCases(&b, c, op.OperationName, op.SelectionSet)
	}
	for _, frag := range c.Fragments {
		renderTypeCases(&b, c, frag.FragmentName, frag.SelectionSet)
	}

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "typecases", []byte(b.String()))
}

func TestTypeCaseBackfillFromSchema(t *testing.T) {
	c := compileTestdata(t)
	op := c.OperationNamed("AnimalName")
	require.NotNil(t, op)
	animal := op.SelectionSet.Selections[0].(*ir.Field)

	tc := NewTypeCase(animal.SelectionSet)

	dog := c.Schema.Type("Dog")
	cat := c.Schema.Type("Cat")
	dogName, _ := tc.RecordFor(dog).Field("name")
	catName, _ := tc.RecordFor(cat).Field("name")
	defName, _ := tc.Default().Field("name")
	assert.Equal(t, "The dog's registered name", dogName.Description)
	assert.Equal(t, "The animal's name", catName.Description)
	assert.Equal(t, "The animal's name", defName.Description)
}
