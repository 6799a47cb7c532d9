package legacyir

import (
	"github.com/goccy/go-json"

	ir "github.com/hanpama/flatgraph/internal/ir"
	schema "github.com/hanpama/flatgraph/internal/schema"
)

// CompilerContext is the generator-facing result of a compilation.
type CompilerContext struct {
	Operations map[string]*Operation `json:"operations"`
	Fragments  map[string]*Fragment  `json:"fragments"`
	TypesUsed  []string              `json:"typesUsed"`
	Options    Options               `json:"options"`
}

type Operation struct {
	FilePath      string         `json:"filePath,omitempty"`
	OperationName string         `json:"operationName"`
	OperationType string         `json:"operationType"`
	RootType      string         `json:"rootType"`
	Variables     []*ir.Variable `json:"variables"`
	Source        string         `json:"source"`

	Fields          []*Field          `json:"fields"`
	FragmentSpreads []string          `json:"fragmentSpreads"`
	InlineFragments []*InlineFragment `json:"inlineFragments"`

	FragmentsReferenced []string `json:"fragmentsReferenced"`
	SourceWithFragments string   `json:"sourceWithFragments"`
	OperationID         string   `json:"operationId"`
}

type Fragment struct {
	FilePath      string   `json:"filePath,omitempty"`
	FragmentName  string   `json:"fragmentName"`
	Source        string   `json:"source"`
	TypeCondition string   `json:"typeCondition"`
	PossibleTypes []string `json:"possibleTypes"`

	Fields          []*Field          `json:"fields"`
	FragmentSpreads []string          `json:"fragmentSpreads"`
	InlineFragments []*InlineFragment `json:"inlineFragments"`
}

// Selections is the flattened content of one selection set.
type Selections struct {
	Fields          []*Field
	FragmentSpreads []string
	InlineFragments []*InlineFragment
}

type Field struct {
	ResponseName      string
	FieldName         string
	Type              *schema.TypeRef
	Args              []*ir.Argument
	IsConditional     bool
	Conditions        []Condition
	Description       string
	IsDeprecated      bool
	DeprecationReason string
	// Selections is nil for leaf fields.
	Selections *Selections
}

type fieldJSON struct {
	ResponseName      string             `json:"responseName"`
	FieldName         string             `json:"fieldName"`
	Type              *schema.TypeRef    `json:"type"`
	Args              []*ir.Argument     `json:"args,omitempty"`
	IsConditional     bool               `json:"isConditional"`
	Conditions        []Condition        `json:"conditions,omitempty"`
	Description       string             `json:"description,omitempty"`
	IsDeprecated      bool               `json:"isDeprecated,omitempty"`
	DeprecationReason string             `json:"deprecationReason,omitempty"`
	Fields            *[]*Field          `json:"fields,omitempty"`
	FragmentSpreads   *[]string          `json:"fragmentSpreads,omitempty"`
	InlineFragments   *[]*InlineFragment `json:"inlineFragments,omitempty"`
}

// MarshalJSON writes the nested selections next to the field's own keys.
// Leaf fields have no fields, fragmentSpreads or inlineFragments keys.
func (f *Field) MarshalJSON() ([]byte, error) {
	out := fieldJSON{
		ResponseName:      f.ResponseName,
		FieldName:         f.FieldName,
		Type:              f.Type,
		Args:              f.Args,
		IsConditional:     f.IsConditional,
		Conditions:        f.Conditions,
		Description:       f.Description,
		IsDeprecated:      f.IsDeprecated,
		DeprecationReason: f.DeprecationReason,
	}
	if sel := f.Selections; sel != nil {
		fields, spreads, inline := sel.Fields, sel.FragmentSpreads, sel.InlineFragments
		if fields == nil {
			fields = []*Field{}
		}
		if spreads == nil {
			spreads = []string{}
		}
		if inline == nil {
			inline = []*InlineFragment{}
		}
		out.Fields, out.FragmentSpreads, out.InlineFragments = &fields, &spreads, &inline
	}
	return json.Marshal(out)
}

type Condition struct {
	Kind         string `json:"kind"`
	VariableName string `json:"variableName"`
	Inverted     bool   `json:"inverted"`
}

// InlineFragment holds the fields of one concrete type that differ from the
// fields selected for every possible type.
type InlineFragment struct {
	TypeCondition   string   `json:"typeCondition"`
	PossibleTypes   []string `json:"possibleTypes"`
	Fields          []*Field `json:"fields"`
	FragmentSpreads []string `json:"fragmentSpreads"`
}
