package audio

import "fmt"

// GeneratorError reports a failed tone or silence generation.
type GeneratorError struct {
	Kind string // "tone" or "silence"
	Err  error
}

func (e *GeneratorError) Error() string {
	return fmt.Sprintf("generate %s: %v", e.Kind, e.Err)
}

func (e *GeneratorError) Unwrap() error { return e.Err }

// AssemblyError reports a failed concatenation or encode step. No partial
// artifact survives an assembly failure.
type AssemblyError struct {
	Stage string
	Err   error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assemble (%s): %v", e.Stage, e.Err)
}

func (e *AssemblyError) Unwrap() error { return e.Err }
