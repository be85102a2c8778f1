package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
)

// Assembler concatenates same-format clips into one continuous track and
// encodes it to the distribution formats. Encoding shells out to ffmpeg; the
// mix itself stays in-process.
type Assembler struct {
	format Format
	ffmpeg string
	log    *slog.Logger
}

func NewAssembler(format Format, ffmpeg string, log *slog.Logger) *Assembler {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return &Assembler{
		format: format,
		ffmpeg: ffmpeg,
		log:    log.With(slog.String("component", "assembler")),
	}
}

// Mix concatenates the ordered clips into a single clip. Every clip must
// carry the assembler's canonical format; a mismatch means a generator or
// the synthesizer broke the sample-format precondition.
func (a *Assembler) Mix(clips []*Clip) (*Clip, error) {
	if len(clips) == 0 {
		return nil, &AssemblyError{Stage: "mix", Err: errors.New("no clips to assemble")}
	}

	total := 0
	for i, c := range clips {
		if c.Format != a.format {
			return nil, &AssemblyError{
				Stage: "mix",
				Err:   fmt.Errorf("clip %d has format %s, want %s", i, c.Format, a.format),
			}
		}
		total += len(c.Data)
	}

	data := make([]int, 0, total)
	for _, c := range clips {
		data = append(data, c.Data...)
	}
	return &Clip{Format: a.format, Data: data}, nil
}

// WriteMix writes the mixed clip to a WAV file.
func (a *Assembler) WriteMix(path string, mix *Clip) error {
	if err := WriteWAV(path, mix); err != nil {
		return &AssemblyError{Stage: "write mix", Err: err}
	}
	return nil
}

// EncodeMP3 produces an iOS/Safari-safe MP3: 44.1kHz mono CBR 128k without
// a Xing header.
func (a *Assembler) EncodeMP3(ctx context.Context, wavPath, outPath string) error {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", wavPath,
		"-ar", "44100", "-ac", "1",
		"-c:a", "libmp3lame", "-b:a", "128k",
		"-write_xing", "0", "-map_metadata", "-1",
		outPath,
	}
	return a.runFFmpeg(ctx, "encode mp3", args)
}

// EncodeM4A produces an AAC/M4A export with faststart for progressive playback.
func (a *Assembler) EncodeM4A(ctx context.Context, wavPath, outPath string) error {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", wavPath,
		"-ar", "44100", "-ac", "1",
		"-c:a", "aac", "-b:a", "96k",
		"-movflags", "+faststart", "-map_metadata", "-1",
		outPath,
	}
	return a.runFFmpeg(ctx, "encode m4a", args)
}

func (a *Assembler) runFFmpeg(ctx context.Context, stage string, args []string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			err = fmt.Errorf("%w (stderr: %s)", err, stderr.String())
		}
		return &AssemblyError{Stage: stage, Err: err}
	}
	return nil
}
