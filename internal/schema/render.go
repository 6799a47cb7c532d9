package schema

import (
	"slices"
	"strings"
)

// Render produces SDL for every non-built-in type of s, sorted by name. A
// schema block is written only when a root type has a non-default name.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	renderSchemaBlock(&b, s)

	names := make([]string, 0, len(s.Types))
	for name, typ := range s.Types {
		if !typ.BuiltIn {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	for _, name := range names {
		typ := s.Types[name]
		switch typ.Kind {
		case TypeKindScalar:
			renderDescription(&b, "", typ.Description)
			b.WriteString("scalar " + typ.Name + "\n\n")
		case TypeKindEnum:
			renderEnum(&b, typ)
		case TypeKindInputObject:
			renderInputObject(&b, typ)
		case TypeKindObject:
			renderComposite(&b, "type", typ)
		case TypeKindInterface:
			renderComposite(&b, "interface", typ)
		case TypeKindUnion:
			renderDescription(&b, "", typ.Description)
			b.WriteString("union " + typ.Name + " = " + strings.Join(typ.PossibleTypes, " | ") + "\n\n")
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func renderSchemaBlock(b *strings.Builder, s *Schema) {
	roots := []struct{ op, name, def string }{
		{"query", s.QueryType, "Query"},
		{"mutation", s.MutationType, "Mutation"},
		{"subscription", s.SubscriptionType, "Subscription"},
	}
	custom := false
	for _, r := range roots {
		if r.name != "" && r.name != r.def {
			custom = true
		}
	}
	if !custom {
		return
	}
	renderDescription(b, "", s.Description)
	b.WriteString("schema {\n")
	for _, r := range roots {
		if r.name != "" {
			b.WriteString("  " + r.op + ": " + r.name + "\n")
		}
	}
	b.WriteString("}\n\n")
}

func renderDescription(b *strings.Builder, indent, desc string) {
	if desc == "" {
		return
	}
	b.WriteString(indent + `"""` + "\n")
	for _, line := range strings.Split(strings.ReplaceAll(desc, `"""`, `\"""`), "\n") {
		b.WriteString(indent + line + "\n")
	}
	b.WriteString(indent + `"""` + "\n")
}

func renderDeprecation(b *strings.Builder, deprecated bool, reason string) {
	if !deprecated {
		return
	}
	b.WriteString(" @deprecated")
	if reason != "" && reason != defaultDeprecationReason {
		b.WriteString("(reason: " + quote(reason) + ")")
	}
}

func renderEnum(b *strings.Builder, typ *Type) {
	renderDescription(b, "", typ.Description)
	b.WriteString("enum " + typ.Name + " {\n")
	for _, val := range typ.EnumValues {
		renderDescription(b, "  ", val.Description)
		b.WriteString("  " + val.Name)
		renderDeprecation(b, val.IsDeprecated, val.DeprecationReason)
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")
}

func renderInputObject(b *strings.Builder, typ *Type) {
	renderDescription(b, "", typ.Description)
	b.WriteString("input " + typ.Name + " {\n")
	for _, field := range typ.InputFields {
		renderDescription(b, "  ", field.Description)
		b.WriteString("  ")
		renderInputValue(b, field)
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")
}

func renderComposite(b *strings.Builder, keyword string, typ *Type) {
	renderDescription(b, "", typ.Description)
	b.WriteString(keyword + " " + typ.Name)
	if len(typ.Interfaces) > 0 {
		b.WriteString(" implements " + strings.Join(typ.Interfaces, " & "))
	}
	b.WriteString(" {\n")
	for _, field := range typ.Fields {
		renderDescription(b, "  ", field.Description)
		b.WriteString("  " + field.Name)
		if len(field.Arguments) > 0 {
			b.WriteString("(")
			for i, arg := range field.Arguments {
				if i > 0 {
					b.WriteString(", ")
				}
				renderInputValue(b, arg)
			}
			b.WriteString(")")
		}
		b.WriteString(": " + field.Type.String())
		renderDeprecation(b, field.IsDeprecated, field.DeprecationReason)
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")
}

func renderInputValue(b *strings.Builder, v *InputValue) {
	b.WriteString(v.Name + ": " + v.Type.String())
	if v.DefaultLiteral != "" {
		b.WriteString(" = " + v.DefaultLiteral)
	}
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}
