package ir

import (
	"errors"
	"fmt"

	language "github.com/hanpama/flatgraph/internal/language"
)

type Violation struct {
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

func (v *Violation) String() string {
	if v.File == "" && v.Line == 0 {
		return v.Message
	}
	return fmt.Sprintf("%s %s:%d:%d", v.Message, v.File, v.Line, v.Column)
}

type ValidationError []*Violation

func (e ValidationError) Error() string {
	msg := "violations found:\n"
	for _, v := range e {
		msg += "- " + v.String() + "\n"
	}
	return msg
}

// Core primitive used by all template helpers.
func violationWithPosition(message string, pos *language.Position) *Violation {
	v := &Violation{Message: message}
	if pos == nil {
		return v
	}
	v.Line = pos.Line
	v.Column = pos.Column
	if pos.Src != nil {
		v.File = pos.Src.Name
	}
	return v
}

func violationFromGQLError(err *language.Error) *Violation {
	v := &Violation{Message: err.Message}
	if len(err.Locations) > 0 {
		v.Line = err.Locations[0].Line
		v.Column = err.Locations[0].Column
	}
	if file, ok := err.Extensions["file"].(string); ok {
		v.File = file
	}
	return v
}

func violationsFromError(err error) []*Violation {
	var list language.ErrorList
	if errors.As(err, &list) {
		return violationsFromErrorList(list)
	}
	var gqlErr *language.Error
	if errors.As(err, &gqlErr) {
		return []*Violation{violationFromGQLError(gqlErr)}
	}
	return []*Violation{{Message: err.Error()}}
}

func violationsFromErrorList(list language.ErrorList) []*Violation {
	out := make([]*Violation, 0, len(list))
	for _, err := range list {
		out = append(out, violationFromGQLError(err))
	}
	return out
}
