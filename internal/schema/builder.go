package schema

import (
	"cmp"
	"fmt"
	"os"
	"slices"
	"strings"

	language "github.com/hanpama/flatgraph/internal/language"
)

// Load validates SDL sources with gqlparser and builds a Schema from them.
func Load(sources ...*language.Source) (*Schema, error) {
	def, err := language.LoadSchema(sources...)
	if err != nil {
		return nil, err
	}
	return BuildFromAST(def), nil
}

// LoadFiles reads SDL files from disk and loads them as one schema.
func LoadFiles(paths ...string) (*Schema, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no schema files given")
	}
	sources := make([]*language.Source, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read schema %q: %w", p, err)
		}
		sources = append(sources, &language.Source{Name: p, Input: string(content)})
	}
	return Load(sources...)
}

// LoadSDL is a convenience for a single in-memory SDL string.
func LoadSDL(sdl string) (*Schema, error) {
	return Load(&language.Source{Name: "schema.graphql", Input: sdl})
}

// BuildFromAST converts a validated gqlparser schema into the Schema model.
// Union members keep their declared order; interface implementations are
// ordered by where they are declared in the sources.
func BuildFromAST(def *language.Schema) *Schema {
	s := NewSchema("")
	s.definition = def
	if def.Query != nil {
		s.SetQueryType(def.Query.Name)
	}
	if def.Mutation != nil {
		s.SetMutationType(def.Mutation.Name)
	}
	if def.Subscription != nil {
		s.SetSubscriptionType(def.Subscription.Name)
	}
	for _, d := range def.Types {
		s.AddType(buildType(def, d))
	}
	return s
}

func buildType(sch *language.Schema, def *language.Definition) *Type {
	switch def.Kind {
	case language.Object:
		return buildComposite(NewType(def.Name, TypeKindObject, def.Description), def)
	case language.Interface:
		t := buildComposite(NewType(def.Name, TypeKindInterface, def.Description), def)
		for _, pt := range byDeclaration(sch.GetPossibleTypes(def)) {
			t.AddPossibleType(pt.Name)
		}
		return t
	case language.Union:
		t := NewType(def.Name, TypeKindUnion, def.Description).SetBuiltIn(def.BuiltIn)
		for _, name := range def.Types {
			t.AddPossibleType(name)
		}
		return t
	case language.Enum:
		t := NewType(def.Name, TypeKindEnum, def.Description).SetBuiltIn(def.BuiltIn)
		for _, v := range def.EnumValues {
			reason, deprecated := deprecation(v.Directives)
			t.AddEnumValue(&EnumValue{
				Name:              v.Name,
				Description:       v.Description,
				IsDeprecated:      deprecated,
				DeprecationReason: reason,
			})
		}
		return t
	case language.InputObject:
		t := NewType(def.Name, TypeKindInputObject, def.Description).SetBuiltIn(def.BuiltIn)
		for _, f := range def.Fields {
			t.AddInputField(&InputValue{
				Name:           f.Name,
				Description:    f.Description,
				Type:           TypeRefFromAST(f.Type),
				DefaultValue:   constValue(f.DefaultValue),
				DefaultLiteral: literal(f.DefaultValue),
			})
		}
		return t
	case language.Scalar:
		return NewType(def.Name, TypeKindScalar, def.Description).SetBuiltIn(def.BuiltIn)
	}
	panic("unreachable")
}

// byDeclaration sorts type definitions by source position. gqlparser
// collects interface implementations from a map.
func byDeclaration(defs []*language.Definition) []*language.Definition {
	out := slices.Clone(defs)
	slices.SortStableFunc(out, func(a, b *language.Definition) int {
		return cmp.Or(
			cmp.Compare(sourceName(a.Position), sourceName(b.Position)),
			cmp.Compare(line(a.Position), line(b.Position)),
			cmp.Compare(column(a.Position), column(b.Position)),
			cmp.Compare(a.Name, b.Name),
		)
	})
	return out
}

func sourceName(pos *language.Position) string {
	if pos == nil || pos.Src == nil {
		return ""
	}
	return pos.Src.Name
}

func line(pos *language.Position) int {
	if pos == nil {
		return 0
	}
	return pos.Line
}

func column(pos *language.Position) int {
	if pos == nil {
		return 0
	}
	return pos.Column
}

func buildComposite(t *Type, def *language.Definition) *Type {
	t.SetBuiltIn(def.BuiltIn)
	t.Interfaces = append(t.Interfaces, def.Interfaces...)
	for _, fd := range def.Fields {
		// gqlparser adds __schema and __type to the query type.
		if strings.HasPrefix(fd.Name, "__") {
			continue
		}
		f := NewField(fd.Name, fd.Description, TypeRefFromAST(fd.Type))
		if reason, ok := deprecation(fd.Directives); ok {
			f.Deprecate(reason)
		}
		for _, arg := range fd.Arguments {
			f.AddArgument(&InputValue{
				Name:           arg.Name,
				Description:    arg.Description,
				Type:           TypeRefFromAST(arg.Type),
				DefaultValue:   constValue(arg.DefaultValue),
				DefaultLiteral: literal(arg.DefaultValue),
			})
		}
		t.AddField(f)
	}
	return t
}

// TypeRefFromAST converts a gqlparser type reference.
func TypeRefFromAST(t *language.Type) *TypeRef {
	if t == nil {
		return nil
	}
	var ref *TypeRef
	if t.Elem != nil {
		ref = ListType(TypeRefFromAST(t.Elem))
	} else {
		ref = NamedType(t.NamedType)
	}
	if t.NonNull {
		ref = NonNullType(ref)
	}
	return ref
}

const defaultDeprecationReason = "No longer supported"

func deprecation(directives language.DirectiveList) (string, bool) {
	d := directives.ForName("deprecated")
	if d == nil {
		return "", false
	}
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return arg.Value.Raw, true
	}
	return defaultDeprecationReason, true
}

func constValue(v *language.Value) any {
	if v == nil {
		return nil
	}
	out, err := v.Value(nil)
	if err != nil {
		return v.Raw
	}
	return out
}

func literal(v *language.Value) string {
	if v == nil {
		return ""
	}
	return v.String()
}
