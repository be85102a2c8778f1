package synth

import (
	"context"
	"math"
	"strings"

	"github.com/BAQ01/run-coach/internal/audio"
)

// MockSynth produces a deterministic hum whose duration follows the
// configured speaking rate. Used by tests and dry runs; no subprocesses.
type MockSynth struct {
	format  audio.Format
	rateWPM int
}

func NewMockSynth(format audio.Format, rateWPM int) *MockSynth {
	if rateWPM <= 0 {
		rateWPM = 140
	}
	return &MockSynth{format: format, rateWPM: rateWPM}
}

func (m *MockSynth) Format() audio.Format { return m.format }

func (m *MockSynth) Synthesize(_ context.Context, text string) (*audio.Clip, error) {
	words := len(strings.Fields(text))
	seconds := float64(words) * 60.0 / float64(m.rateWPM)
	if seconds < 0.4 {
		seconds = 0.4
	}

	rate := float64(m.format.SampleRate)
	frames := int(math.Round(seconds * rate))
	const amplitude = 0.1 * 32767
	data := make([]int, frames*m.format.Channels)
	for i := 0; i < frames; i++ {
		v := int(math.Round(amplitude * math.Sin(2*math.Pi*220*float64(i)/rate)))
		for ch := 0; ch < m.format.Channels; ch++ {
			data[i*m.format.Channels+ch] = v
		}
	}
	return &audio.Clip{Format: m.format, Data: data}, nil
}
