package timeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BAQ01/run-coach/internal/audio"
)

// Synthesizer is the speech boundary: blocking, returns the realized clip
// with its measured duration. Gap math for the next cue depends on that
// duration, so there is nothing to pipeline.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*audio.Clip, error)
}

// Generator is the tone/silence boundary. Both must emit the session's
// canonical sample format.
type Generator interface {
	Silence(seconds float64) (*audio.Clip, error)
	Tone(seconds, freqHz float64) (*audio.Clip, error)
}

// Options carries the per-session timing parameters.
type Options struct {
	// LeadTime is how far the alert tone precedes the cue's timestamp.
	LeadTime float64
	// ToneDuration is the fixed alert length, constant across a session.
	ToneDuration float64
	// ToneFrequency in Hz.
	ToneFrequency float64
	// Epsilon is the smallest gap worth materializing as silence; anything
	// at or below it is dropped so float arithmetic never produces
	// degenerate segments.
	Epsilon float64
}

func DefaultOptions() Options {
	return Options{
		LeadTime:      1.0,
		ToneDuration:  0.08,
		ToneFrequency: 880,
		Epsilon:       0.001,
	}
}

func (o Options) validate() error {
	if o.LeadTime <= 0 {
		return fmt.Errorf("lead time must be positive, got %v", o.LeadTime)
	}
	if o.ToneDuration <= 0 {
		return fmt.Errorf("tone duration must be positive, got %v", o.ToneDuration)
	}
	if o.Epsilon <= 0 {
		return fmt.Errorf("epsilon must be positive, got %v", o.Epsilon)
	}
	return nil
}

// Compiler builds one session's timeline. It processes cues strictly in the
// given order and never reorders or removes a segment once appended.
type Compiler struct {
	opts  Options
	synth Synthesizer
	gen   Generator
	log   *slog.Logger
}

func NewCompiler(opts Options, synth Synthesizer, gen Generator, log *slog.Logger) (*Compiler, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Compiler{
		opts:  opts,
		synth: synth,
		gen:   gen,
		log:   log.With(slog.String("component", "compiler")),
	}, nil
}

// Compile produces the ordered segment sequence realizing the cue schedule.
// Cues with empty or whitespace-only text contribute nothing and leave the
// cursor untouched. Any collaborator failure aborts the session immediately;
// the returned timeline is only valid when err is nil.
func (c *Compiler) Compile(ctx context.Context, cues []Cue) (*Timeline, error) {
	tl := &Timeline{}

	// The alert tone is fixed per session, generate it once.
	tone, err := c.gen.Tone(c.opts.ToneDuration, c.opts.ToneFrequency)
	if err != nil {
		return nil, err
	}
	toneDur := tone.Duration()

	for i, cue := range cues {
		text := strings.TrimSpace(cue.Text)
		if text == "" {
			continue
		}

		// Silence up to the tone's nominal start. If earlier segments ran
		// long the gap collapses and the tone is simply late; the timeline
		// never goes backward.
		toneTime := cue.T - c.opts.LeadTime
		if preGap := toneTime - tl.Cursor(); preGap > c.opts.Epsilon {
			sil, err := c.gen.Silence(preGap)
			if err != nil {
				return nil, err
			}
			tl.append(Segment{Kind: SegmentSilence, Duration: preGap, Clip: sil})
		}

		tl.append(Segment{Kind: SegmentTone, Duration: toneDur, Clip: tone})

		// Fill out to the cue's exact timestamp; if the tone already pushed
		// past it, speech starts immediately.
		if fill := cue.T - tl.Cursor(); fill > c.opts.Epsilon {
			sil, err := c.gen.Silence(fill)
			if err != nil {
				return nil, err
			}
			tl.append(Segment{Kind: SegmentSilence, Duration: fill, Clip: sil})
		}

		speech, err := c.synth.Synthesize(ctx, text)
		if err != nil {
			return nil, &SynthesisError{Index: i, Text: text, Err: err}
		}
		d := speech.Duration()
		tl.append(Segment{Kind: SegmentSpeech, Duration: d, Text: text, Clip: speech})

		c.log.Debug("cue compiled",
			slog.Int("cue", i),
			slog.Float64("target", cue.T),
			slog.Float64("cursor", tl.Cursor()),
			slog.Float64("speech_sec", d))
	}

	return tl, nil
}
