package timeline

import "fmt"

// SynthesisError identifies the cue whose narration failed to synthesize.
// A missing narration is a content defect, so the compiler fails the whole
// session instead of substituting silence.
type SynthesisError struct {
	Index int
	Text  string
	Err   error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesize cue %d (%q): %v", e.Index, e.Text, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }
