package synth

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/BAQ01/run-coach/internal/audio"
	"github.com/BAQ01/run-coach/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestMockSynthDuration(t *testing.T) {
	m := NewMockSynth(audio.DefaultFormat(), 140)

	clip, err := m.Synthesize(context.Background(), "een twee drie vier vijf zes zeven")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	// 7 words at 140 wpm is exactly 3 seconds.
	if math.Abs(clip.Duration()-3.0) > 1e-6 {
		t.Fatalf("expected 3s, got %v", clip.Duration())
	}
	if clip.Format != audio.DefaultFormat() {
		t.Fatalf("unexpected format %s", clip.Format)
	}
}

func TestMockSynthMinimumDuration(t *testing.T) {
	m := NewMockSynth(audio.DefaultFormat(), 140)
	clip, err := m.Synthesize(context.Background(), "go")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if clip.Duration() < 0.4-1e-6 {
		t.Fatalf("expected at least 0.4s, got %v", clip.Duration())
	}
}

func TestMockSynthDeterministic(t *testing.T) {
	m := NewMockSynth(audio.DefaultFormat(), 140)
	a, err := m.Synthesize(context.Background(), "versnellen naar tempo")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	b, err := m.Synthesize(context.Background(), "versnellen naar tempo")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if len(a.Data) != len(b.Data) {
		t.Fatalf("non-deterministic length: %d vs %d", len(a.Data), len(b.Data))
	}
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatalf("non-deterministic sample %d", i)
		}
	}
}

func TestNewExecSynthParsesExtraArgs(t *testing.T) {
	cfg := config.Default().Synth
	cfg.ExtraArgs = `-g 10 --punct=","`

	e, err := NewExecSynth(cfg, newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(e.extraArgs) != 3 {
		t.Fatalf("expected 3 extra args, got %v", e.extraArgs)
	}
	if e.Format().SampleRate != 48000 || e.Format().Channels != 1 {
		t.Fatalf("unexpected format %s", e.Format())
	}
}

func TestNewExecSynthRejectsBadExtraArgs(t *testing.T) {
	cfg := config.Default().Synth
	cfg.ExtraArgs = `-g "unterminated`

	if _, err := NewExecSynth(cfg, newLogger()); err == nil {
		t.Fatal("expected parse error")
	}
}
