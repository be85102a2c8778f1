package audio

import (
	"errors"
	"math"
)

// Generator produces silence and alert-tone clips in a fixed sample format.
// It is stateless and safe for concurrent use across session builds.
type Generator struct {
	format Format
}

func NewGenerator(format Format) *Generator {
	return &Generator{format: format}
}

func (g *Generator) Format() Format { return g.format }

// Silence returns a clip of zero samples lasting the given number of seconds.
func (g *Generator) Silence(seconds float64) (*Clip, error) {
	if seconds <= 0 {
		return nil, &GeneratorError{Kind: "silence", Err: errors.New("duration must be positive")}
	}
	frames := int(math.Round(seconds * float64(g.format.SampleRate)))
	return &Clip{
		Format: g.format,
		Data:   make([]int, frames*g.format.Channels),
	}, nil
}

// Tone returns a sine tone clip with a short attack/decay ramp so the alert
// does not click at segment boundaries.
func (g *Generator) Tone(seconds float64, freqHz float64) (*Clip, error) {
	if seconds <= 0 {
		return nil, &GeneratorError{Kind: "tone", Err: errors.New("duration must be positive")}
	}
	if freqHz <= 0 {
		return nil, &GeneratorError{Kind: "tone", Err: errors.New("frequency must be positive")}
	}

	rate := float64(g.format.SampleRate)
	frames := int(math.Round(seconds * rate))
	ramp := int(0.005 * rate)
	if ramp > frames/2 {
		ramp = frames / 2
	}

	const amplitude = 0.35 * 32767
	data := make([]int, frames*g.format.Channels)
	for i := 0; i < frames; i++ {
		sample := amplitude * math.Sin(2*math.Pi*freqHz*float64(i)/rate)
		switch {
		case i < ramp:
			sample *= float64(i) / float64(ramp)
		case i >= frames-ramp:
			sample *= float64(frames-1-i) / float64(ramp)
		}
		v := int(math.Round(sample))
		for ch := 0; ch < g.format.Channels; ch++ {
			data[i*g.format.Channels+ch] = v
		}
	}
	return &Clip{Format: g.format, Data: data}, nil
}
