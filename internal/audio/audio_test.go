package audio

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"testing"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSilence(t *testing.T) {
	gen := NewGenerator(DefaultFormat())
	clip, err := gen.Silence(3.92)
	if err != nil {
		t.Fatalf("silence: %v", err)
	}
	if clip.Frames() != 188160 {
		t.Fatalf("expected 188160 frames, got %d", clip.Frames())
	}
	if math.Abs(clip.Duration()-3.92) > 1e-6 {
		t.Fatalf("expected 3.92s, got %v", clip.Duration())
	}
	for i, v := range clip.Data {
		if v != 0 {
			t.Fatalf("sample %d not silent: %d", i, v)
		}
	}
}

func TestSilenceRejectsNonPositive(t *testing.T) {
	gen := NewGenerator(DefaultFormat())
	for _, d := range []float64{0, -0.5} {
		_, err := gen.Silence(d)
		if err == nil {
			t.Fatalf("expected error for duration %v", d)
		}
		var genErr *GeneratorError
		if !errors.As(err, &genErr) {
			t.Fatalf("expected GeneratorError, got %T", err)
		}
	}
}

func TestTone(t *testing.T) {
	gen := NewGenerator(DefaultFormat())
	clip, err := gen.Tone(0.08, 880)
	if err != nil {
		t.Fatalf("tone: %v", err)
	}
	if clip.Frames() != 3840 {
		t.Fatalf("expected 3840 frames, got %d", clip.Frames())
	}

	peak := 0
	for _, v := range clip.Data {
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		t.Fatal("tone is silent")
	}
	if peak > 32767 {
		t.Fatalf("tone clips: peak %d", peak)
	}
	// The attack/decay ramp keeps the edges quiet.
	if abs(clip.Data[0]) > 100 || abs(clip.Data[len(clip.Data)-1]) > 100 {
		t.Fatalf("tone edges not ramped: first=%d last=%d", clip.Data[0], clip.Data[len(clip.Data)-1])
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestMixConcatenates(t *testing.T) {
	gen := NewGenerator(DefaultFormat())
	asm := NewAssembler(DefaultFormat(), "ffmpeg", newLogger())

	a, _ := gen.Silence(1.0)
	b, _ := gen.Tone(0.08, 880)
	c, _ := gen.Silence(0.5)

	mix, err := asm.Mix([]*Clip{a, b, c})
	if err != nil {
		t.Fatalf("mix: %v", err)
	}
	wantFrames := a.Frames() + b.Frames() + c.Frames()
	if mix.Frames() != wantFrames {
		t.Fatalf("expected %d frames, got %d", wantFrames, mix.Frames())
	}
	if math.Abs(mix.Duration()-1.58) > 1e-6 {
		t.Fatalf("expected 1.58s mix, got %v", mix.Duration())
	}
}

func TestMixRejectsFormatMismatch(t *testing.T) {
	asm := NewAssembler(DefaultFormat(), "ffmpeg", newLogger())
	good, _ := NewGenerator(DefaultFormat()).Silence(0.1)
	bad, _ := NewGenerator(Format{SampleRate: 22050, Channels: 1, BitDepth: 16}).Silence(0.1)

	_, err := asm.Mix([]*Clip{good, bad})
	if err == nil {
		t.Fatal("expected format mismatch error")
	}
	var asmErr *AssemblyError
	if !errors.As(err, &asmErr) {
		t.Fatalf("expected AssemblyError, got %T: %v", err, err)
	}
}

func TestMixRejectsEmpty(t *testing.T) {
	asm := NewAssembler(DefaultFormat(), "ffmpeg", newLogger())
	if _, err := asm.Mix(nil); err == nil {
		t.Fatal("expected error for empty clip list")
	}
}

func TestWAVRoundTrip(t *testing.T) {
	gen := NewGenerator(DefaultFormat())
	clip, err := gen.Tone(0.02, 440)
	if err != nil {
		t.Fatalf("tone: %v", err)
	}

	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := WriteWAV(path, clip); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	got, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("read wav: %v", err)
	}
	if got.Format != clip.Format {
		t.Fatalf("format changed: %s vs %s", got.Format, clip.Format)
	}
	if len(got.Data) != len(clip.Data) {
		t.Fatalf("sample count changed: %d vs %d", len(got.Data), len(clip.Data))
	}
	for i := range got.Data {
		if got.Data[i] != clip.Data[i] {
			t.Fatalf("sample %d changed: %d vs %d", i, got.Data[i], clip.Data[i])
		}
	}
}
