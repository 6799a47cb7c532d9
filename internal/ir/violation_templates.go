package ir

import (
	"fmt"

	language "github.com/hanpama/flatgraph/internal/language"
)

// NOTE: Keep messages stable to avoid breaking snapshot tests.

func violationUnknownField(fieldName, typeName string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Cannot query field %q on type %q", fieldName, typeName),
		pos,
	)
}

func violationUnknownType(typeName string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Unknown type %q", typeName),
		pos,
	)
}

func violationMissingRootType(op language.Operation, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Schema does not define a root type for %s operations", op),
		pos,
	)
}

func violationUnsupportedMetaField(fieldName string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Introspection field %q is not supported in compiled documents", fieldName),
		pos,
	)
}

func violationDuplicateDefinition(kind, name string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Duplicate %s %q", kind, name),
		pos,
	)
}
