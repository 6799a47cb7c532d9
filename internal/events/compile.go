package events

import "time"

// CompileStart is emitted before the documents of a run are compiled.
type CompileStart struct {
	Documents int
}

// CompileFinish is emitted after compilation completes, successfully or not.
type CompileFinish struct {
	Documents  int
	Operations int
	Fragments  int
	Err        error
	Duration   time.Duration
}

// SelectionSetFlattened is emitted once per operation or fragment whose
// top-level selection set was flattened.
type SelectionSetFlattened struct {
	Kind          string // "operation" or "fragment"
	Name          string
	PossibleTypes int
	Records       int
}

// TransformStart is emitted before a compiled context is flattened.
type TransformStart struct {
	Operations int
	Fragments  int
}

// TransformFinish is emitted after a compiled context is flattened.
type TransformFinish struct {
	Operations int
	Fragments  int
	Err        error
	Duration   time.Duration
}
