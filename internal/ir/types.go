package ir

import (
	"slices"

	language "github.com/hanpama/flatgraph/internal/language"
	schema "github.com/hanpama/flatgraph/internal/schema"
)

// Context is the compiled form of a set of query documents.
type Context struct {
	Schema     *schema.Schema
	Operations []*Operation
	Fragments  []*Fragment
	// TypesUsed lists enums, input objects and custom scalars referenced by
	// variables and fields, in order of first use.
	TypesUsed []*schema.Type

	fragmentsByName map[string]*Fragment
}

// FragmentNamed returns the fragment with the given name, or nil.
func (c *Context) FragmentNamed(name string) *Fragment {
	if c.fragmentsByName == nil {
		c.fragmentsByName = make(map[string]*Fragment, len(c.Fragments))
		for _, f := range c.Fragments {
			c.fragmentsByName[f.FragmentName] = f
		}
	}
	return c.fragmentsByName[name]
}

// OperationNamed returns the operation with the given name, or nil.
func (c *Context) OperationNamed(name string) *Operation {
	for _, op := range c.Operations {
		if op.OperationName == name {
			return op
		}
	}
	return nil
}

type Operation struct {
	FilePath      string
	OperationName string
	OperationType language.Operation
	RootType      *schema.Type
	Variables     []*Variable
	Source        string
	SelectionSet  *SelectionSet
}

type Variable struct {
	Name string          `json:"name"`
	Type *schema.TypeRef `json:"type"`
}

type Fragment struct {
	FilePath     string
	FragmentName string
	Source       string
	Type         *schema.Type
	SelectionSet *SelectionSet
}

// SelectionSet is the selections made at one position together with the
// concrete object types that position can take.
type SelectionSet struct {
	PossibleTypes []*schema.Type
	Selections    []Selection
}

// Selection is one of *Field, *TypeCondition, *BooleanCondition or
// *FragmentSpread.
type Selection interface {
	isSelection()
}

func (*Field) isSelection()            {}
func (*TypeCondition) isSelection()    {}
func (*BooleanCondition) isSelection() {}
func (*FragmentSpread) isSelection()   {}

type Field struct {
	ResponseKey       string
	Name              string
	Alias             string
	Args              []*Argument
	Type              *schema.TypeRef
	SelectionSet      *SelectionSet
	Description       string
	IsDeprecated      bool
	DeprecationReason string

	// Set while flattening. Conditions accumulate every @skip/@include that
	// guarded an occurrence of this field.
	Conditions    []Condition
	IsConditional bool

	Position *language.Position
}

type Argument struct {
	Name  string          `json:"name"`
	Value any             `json:"value"`
	Type  *schema.TypeRef `json:"type,omitempty"`
}

// Condition is a single @skip or @include guard on a variable.
type Condition struct {
	VariableName string `json:"variableName"`
	Inverted     bool   `json:"inverted"`
}

func (c Condition) String() string {
	if c.Inverted {
		return "@skip(if: $" + c.VariableName + ")"
	}
	return "@include(if: $" + c.VariableName + ")"
}

// TypeCondition narrows its selections to the possible types of its
// nested selection set.
type TypeCondition struct {
	Type         *schema.Type
	SelectionSet *SelectionSet
}

type BooleanCondition struct {
	Condition
	SelectionSet *SelectionSet
}

type FragmentSpread struct {
	FragmentName string
	Position     *language.Position
}

// CoversTypes reports whether every type in types appears in cover.
func CoversTypes(cover, types []*schema.Type) bool {
	for _, t := range types {
		if !slices.Contains(cover, t) {
			return false
		}
	}
	return true
}

// IntersectTypes returns the types of a that also appear in b, in a's order.
func IntersectTypes(a, b []*schema.Type) []*schema.Type {
	out := make([]*schema.Type, 0, len(a))
	for _, t := range a {
		if slices.Contains(b, t) {
			out = append(out, t)
		}
	}
	return out
}

// TypeNames returns the names of types, in order.
func TypeNames(types []*schema.Type) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.Name
	}
	return names
}
