// Package synth provides the speech synthesis boundary: text in, one
// measured PCM clip out. The exec engine drives espeak-ng and normalizes its
// output to the session's canonical sample format so every segment
// concatenates losslessly.
package synth

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	shellwords "github.com/mattn/go-shellwords"

	"github.com/BAQ01/run-coach/internal/audio"
	"github.com/BAQ01/run-coach/internal/config"
)

type ExecSynth struct {
	binary    string
	ffmpeg    string
	voice     string
	rate      int
	pitch     int
	gain      int
	extraArgs []string
	format    audio.Format
	log       *slog.Logger
}

// NewExecSynth builds an espeak-ng backed synthesizer from config.
func NewExecSynth(cfg config.SynthConfig, log *slog.Logger) (*ExecSynth, error) {
	var extra []string
	if cfg.ExtraArgs != "" {
		parser := shellwords.NewParser()
		args, err := parser.Parse(cfg.ExtraArgs)
		if err != nil {
			return nil, fmt.Errorf("parse synth extra args: %w", err)
		}
		extra = args
	}

	return &ExecSynth{
		binary:    cfg.Binary,
		ffmpeg:    cfg.FFmpeg,
		voice:     cfg.Voice,
		rate:      cfg.Rate,
		pitch:     cfg.Pitch,
		gain:      cfg.Gain,
		extraArgs: extra,
		format: audio.Format{
			SampleRate: cfg.SampleRate,
			Channels:   cfg.Channels,
			BitDepth:   16,
		},
		log: log.With(slog.String("component", "synth")),
	}, nil
}

func (e *ExecSynth) Format() audio.Format { return e.format }

// Synthesize runs espeak-ng to a temporary WAV, resamples it to the
// canonical format with ffmpeg, and decodes the result. espeak picks its own
// sample rate, so the normalize step is not optional.
func (e *ExecSynth) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	dir, err := os.MkdirTemp("", "coach-tts-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	rawPath := filepath.Join(dir, "raw.wav")
	normPath := filepath.Join(dir, "norm.wav")

	args := []string{
		"-v", e.voice,
		"-s", strconv.Itoa(e.rate),
		"-p", strconv.Itoa(e.pitch),
		"-a", strconv.Itoa(e.gain),
		"-w", rawPath,
	}
	args = append(args, e.extraArgs...)
	args = append(args, "--", text)

	if err := e.run(ctx, e.binary, args); err != nil {
		return nil, fmt.Errorf("espeak-ng: %w", err)
	}

	normArgs := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", rawPath,
		"-ar", strconv.Itoa(e.format.SampleRate),
		"-ac", strconv.Itoa(e.format.Channels),
		"-c:a", "pcm_s16le",
		normPath,
	}
	if err := e.run(ctx, e.ffmpeg, normArgs); err != nil {
		return nil, fmt.Errorf("normalize speech: %w", err)
	}

	clip, err := audio.ReadWAV(normPath)
	if err != nil {
		return nil, err
	}
	if clip.Format != e.format {
		return nil, fmt.Errorf("normalized speech has format %s, want %s", clip.Format, e.format)
	}

	e.log.Debug("synthesized",
		slog.Int("chars", len(text)),
		slog.Float64("duration_sec", clip.Duration()))
	return clip, nil
}

func (e *ExecSynth) run(ctx context.Context, bin string, args []string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return fmt.Errorf("%w (stderr: %s)", err, stderr.String())
		}
		return err
	}
	return nil
}
