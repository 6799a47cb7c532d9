package ir

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	eventbus "github.com/hanpama/flatgraph/internal/eventbus"
	events "github.com/hanpama/flatgraph/internal/events"
	language "github.com/hanpama/flatgraph/internal/language"
	schema "github.com/hanpama/flatgraph/internal/schema"
)

// Compile parses every document the discovery lists, validates them together
// against the schema and builds the selection-set IR.
func Compile(ctx context.Context, sch *schema.Schema, disc Discovery) (c *Context, err error) {
	metas, err := disc.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	eventbus.Publish(ctx, events.CompileStart{Documents: len(metas)})
	defer func() {
		finish := events.CompileFinish{Documents: len(metas), Err: err, Duration: time.Since(started)}
		if c != nil {
			finish.Operations = len(c.Operations)
			finish.Fragments = len(c.Fragments)
		}
		eventbus.Publish(ctx, finish)
	}()

	merged := &language.QueryDocument{}
	var violations []*Violation
	for _, meta := range metas {
		src, err := disc.ReadDocument(ctx, meta.ID)
		if err != nil {
			return nil, err
		}
		doc, err := language.ParseQuery(meta.FilePath, src)
		if err != nil {
			violations = append(violations, violationsFromError(err)...)
			continue
		}
		slog.Debug("document parsed", "file", meta.FilePath,
			"operations", len(doc.Operations), "fragments", len(doc.Fragments))
		merged.Operations = append(merged.Operations, doc.Operations...)
		merged.Fragments = append(merged.Fragments, doc.Fragments...)
	}
	if len(violations) > 0 {
		return nil, ValidationError(violations)
	}
	return CompileDocument(sch, merged)
}

// CompileDocument validates doc against the schema (when the schema was
// loaded from SDL) and builds the selection-set IR.
func CompileDocument(sch *schema.Schema, doc *language.QueryDocument) (*Context, error) {
	if def := sch.Definition(); def != nil {
		if errs := language.Validate(def, doc); len(errs) > 0 {
			return nil, ValidationError(violationsFromErrorList(errs))
		}
	}
	b := &compiler{
		schema:    sch,
		typesSeen: make(map[*schema.Type]bool),
	}
	c := b.compile(doc)
	if len(b.violations) > 0 {
		return nil, ValidationError(b.violations)
	}
	slog.Info("documents compiled", "operations", len(c.Operations), "fragments", len(c.Fragments))
	return c, nil
}

type compiler struct {
	schema     *schema.Schema
	typesUsed  []*schema.Type
	typesSeen  map[*schema.Type]bool
	violations []*Violation
}

func (b *compiler) addViolation(v ...*Violation) {
	b.violations = append(b.violations, v...)
}

func (b *compiler) compile(doc *language.QueryDocument) *Context {
	c := &Context{Schema: b.schema}
	seen := make(map[string]bool)
	for _, fd := range doc.Fragments {
		if seen[fd.Name] {
			b.addViolation(violationDuplicateDefinition("fragment", fd.Name, fd.Position))
			continue
		}
		seen[fd.Name] = true
		if frag := b.compileFragment(fd); frag != nil {
			c.Fragments = append(c.Fragments, frag)
		}
	}
	clear(seen)
	for _, od := range doc.Operations {
		if seen[od.Name] {
			b.addViolation(violationDuplicateDefinition("operation", od.Name, od.Position))
			continue
		}
		seen[od.Name] = true
		if op := b.compileOperation(od); op != nil {
			c.Operations = append(c.Operations, op)
		}
	}
	c.TypesUsed = b.typesUsed
	return c
}

func (b *compiler) compileOperation(od *language.OperationDefinition) *Operation {
	root := b.schema.RootType(od.Operation)
	if root == nil {
		b.addViolation(violationMissingRootType(od.Operation, od.Position))
		return nil
	}
	op := &Operation{
		FilePath:      filePath(od.Position),
		OperationName: od.Name,
		OperationType: od.Operation,
		RootType:      root,
		Source:        language.PrintOperation(od),
	}
	for _, vd := range od.VariableDefinitions {
		ref := schema.TypeRefFromAST(vd.Type)
		b.addTypeUsed(b.schema.Type(ref.GetNamedType()))
		op.Variables = append(op.Variables, &Variable{Name: vd.Variable, Type: ref})
	}
	op.SelectionSet = b.compileSelectionSet(od.SelectionSet, root, b.schema.PossibleTypes(root))
	return op
}

func (b *compiler) compileFragment(fd *language.FragmentDefinition) *Fragment {
	typ := b.schema.Type(fd.TypeCondition)
	if typ == nil {
		b.addViolation(violationUnknownType(fd.TypeCondition, fd.Position))
		return nil
	}
	return &Fragment{
		FilePath:     filePath(fd.Position),
		FragmentName: fd.Name,
		Source:       language.PrintFragment(fd),
		Type:         typ,
		SelectionSet: b.compileSelectionSet(fd.SelectionSet, typ, b.schema.PossibleTypes(typ)),
	}
}

func (b *compiler) compileSelectionSet(nodes language.SelectionSet, parent *schema.Type, possibleTypes []*schema.Type) *SelectionSet {
	ss := &SelectionSet{PossibleTypes: possibleTypes, Selections: make([]Selection, 0, len(nodes))}
	for _, node := range nodes {
		var (
			sel        Selection
			directives language.DirectiveList
		)
		switch node := node.(type) {
		case *language.Field:
			directives = node.Directives
			if f := b.compileField(node, parent); f != nil {
				sel = f
			}
		case *language.InlineFragment:
			directives = node.Directives
			typ := parent
			if node.TypeCondition != "" {
				typ = b.schema.Type(node.TypeCondition)
				if typ == nil {
					b.addViolation(violationUnknownType(node.TypeCondition, node.Position))
					continue
				}
			}
			narrowed := IntersectTypes(b.schema.PossibleTypes(typ), possibleTypes)
			sel = &TypeCondition{
				Type:         typ,
				SelectionSet: b.compileSelectionSet(node.SelectionSet, typ, narrowed),
			}
		case *language.FragmentSpread:
			directives = node.Directives
			sel = &FragmentSpread{FragmentName: node.Name, Position: node.Position}
		}
		if sel == nil {
			continue
		}
		if sel = wrapInBooleanConditions(sel, directives, possibleTypes); sel != nil {
			ss.Selections = append(ss.Selections, sel)
		}
	}
	return ss
}

func (b *compiler) compileField(node *language.Field, parent *schema.Type) *Field {
	f := &Field{
		ResponseKey: node.Alias,
		Name:        node.Name,
		Position:    node.Position,
	}
	if f.ResponseKey == "" {
		f.ResponseKey = node.Name
	}
	if node.Alias != "" && node.Alias != node.Name {
		f.Alias = node.Alias
	}

	switch node.Name {
	case "__typename":
		f.Type = schema.NonNullType(schema.NamedType("String"))
		return f
	case "__schema", "__type":
		b.addViolation(violationUnsupportedMetaField(node.Name, node.Position))
		return nil
	}

	def := parent.Field(node.Name)
	if def == nil {
		b.addViolation(violationUnknownField(node.Name, parent.Name, node.Position))
		return nil
	}
	f.Type = def.Type
	f.Description = def.Description
	f.IsDeprecated = def.IsDeprecated
	f.DeprecationReason = def.DeprecationReason
	f.Args = compileArguments(node.Arguments, def)

	named := b.schema.Type(def.Type.GetNamedType())
	if named == nil {
		b.addViolation(violationUnknownType(def.Type.GetNamedType(), node.Position))
		return nil
	}
	b.addTypeUsed(named)
	if named.IsComposite() {
		f.SelectionSet = b.compileSelectionSet(node.SelectionSet, named, b.schema.PossibleTypes(named))
	}
	return f
}

// addTypeUsed records enums, input objects (with their field types) and
// custom scalars.
func (b *compiler) addTypeUsed(t *schema.Type) {
	if t == nil || b.typesSeen[t] {
		return
	}
	switch {
	case t.Kind == schema.TypeKindEnum, t.Kind == schema.TypeKindInputObject:
	case t.Kind == schema.TypeKindScalar && !t.BuiltIn:
	default:
		return
	}
	b.typesSeen[t] = true
	b.typesUsed = append(b.typesUsed, t)
	for _, in := range t.InputFields {
		b.addTypeUsed(b.schema.Type(in.Type.GetNamedType()))
	}
}

func compileArguments(nodes language.ArgumentList, def *schema.Field) []*Argument {
	if len(nodes) == 0 {
		return nil
	}
	args := make([]*Argument, 0, len(nodes))
	for _, node := range nodes {
		arg := &Argument{Name: node.Name, Value: valueFromAST(node.Value)}
		for _, in := range def.Arguments {
			if in.Name == node.Name {
				arg.Type = in.Type
				break
			}
		}
		args = append(args, arg)
	}
	return args
}

func valueFromAST(v *language.Value) any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case language.Variable:
		return map[string]any{"kind": "Variable", "variableName": v.Raw}
	case language.IntValue:
		if n, err := strconv.ParseInt(v.Raw, 10, 64); err == nil {
			return n
		}
		return v.Raw
	case language.FloatValue:
		if n, err := strconv.ParseFloat(v.Raw, 64); err == nil {
			return n
		}
		return v.Raw
	case language.BooleanValue:
		return v.Raw == "true"
	case language.NullValue:
		return nil
	case language.ListValue:
		out := make([]any, 0, len(v.Children))
		for _, child := range v.Children {
			out = append(out, valueFromAST(child.Value))
		}
		return out
	case language.ObjectValue:
		out := make(map[string]any, len(v.Children))
		for _, child := range v.Children {
			out[child.Name] = valueFromAST(child.Value)
		}
		return out
	default:
		// String, Block and Enum values keep their raw text.
		return v.Raw
	}
}

// wrapInBooleanConditions applies @skip/@include. Literal arguments keep or
// drop the selection; variable arguments wrap it in a BooleanCondition over
// the same possible types. A nil result means the selection is never
// included.
func wrapInBooleanConditions(sel Selection, directives language.DirectiveList, possibleTypes []*schema.Type) Selection {
	for _, d := range directives {
		if d.Name != "skip" && d.Name != "include" {
			continue
		}
		arg := d.Arguments.ForName("if")
		if arg == nil || arg.Value == nil {
			continue
		}
		inverted := d.Name == "skip"
		switch arg.Value.Kind {
		case language.BooleanValue:
			if (arg.Value.Raw == "true") == inverted {
				return nil
			}
		case language.Variable:
			sel = &BooleanCondition{
				Condition:    Condition{VariableName: arg.Value.Raw, Inverted: inverted},
				SelectionSet: &SelectionSet{PossibleTypes: possibleTypes, Selections: []Selection{sel}},
			}
		}
	}
	return sel
}

func filePath(pos *language.Position) string {
	if pos == nil || pos.Src == nil {
		return ""
	}
	return pos.Src.Name
}
