package language

import (
	"bytes"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"
)

type (
	Error     = gqlerror.Error
	ErrorList = gqlerror.List
)

func ParseQuery(name, source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func ParseSchema(name, source string) (*SchemaDocument, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadSchema parses and validates SDL sources into a single schema,
// including the GraphQL prelude.
func LoadSchema(sources ...*Source) (*Schema, error) {
	return gqlparser.LoadSchema(sources...)
}

// Validate runs the standard GraphQL validation rules over doc.
func Validate(schema *Schema, doc *QueryDocument) ErrorList {
	return validator.Validate(schema, doc)
}

// PrintOperation renders a single operation back to GraphQL source.
func PrintOperation(op *OperationDefinition) string {
	return render(&ast.QueryDocument{Operations: ast.OperationList{op}})
}

// PrintFragment renders a single fragment definition back to GraphQL source.
func PrintFragment(frag *FragmentDefinition) string {
	return render(&ast.QueryDocument{Fragments: ast.FragmentDefinitionList{frag}})
}

func render(doc *ast.QueryDocument) string {
	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatQueryDocument(doc)
	return strings.TrimSpace(buf.String())
}
