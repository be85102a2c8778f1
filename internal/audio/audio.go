// Package audio holds the PCM clip model shared by the generators, the
// synthesizer boundary and the assembler. Every clip in one session build
// carries the same sample format so concatenation stays lossless.
package audio

import (
	"fmt"

	goaudio "github.com/go-audio/audio"
)

// Format is the canonical sample format of a session build.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// DefaultFormat matches the espeak/ffmpeg pipeline: 48kHz mono s16.
func DefaultFormat() Format {
	return Format{SampleRate: 48000, Channels: 1, BitDepth: 16}
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%dbit", f.SampleRate, f.Channels, f.BitDepth)
}

// Clip is one realized audio segment: interleaved integer PCM plus its format.
type Clip struct {
	Format Format
	Data   []int
}

// Frames returns the number of samples per channel.
func (c *Clip) Frames() int {
	if c.Format.Channels == 0 {
		return 0
	}
	return len(c.Data) / c.Format.Channels
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c.Format.SampleRate == 0 {
		return 0
	}
	return float64(c.Frames()) / float64(c.Format.SampleRate)
}

// IntBuffer adapts the clip to the go-audio buffer type used by the WAV codec.
func (c *Clip) IntBuffer() *goaudio.IntBuffer {
	return &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: c.Format.Channels,
			SampleRate:  c.Format.SampleRate,
		},
		Data:           c.Data,
		SourceBitDepth: c.Format.BitDepth,
	}
}

// FromIntBuffer wraps a decoded go-audio buffer as a Clip.
func FromIntBuffer(buf *goaudio.IntBuffer) *Clip {
	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}
	return &Clip{
		Format: Format{
			SampleRate: buf.Format.SampleRate,
			Channels:   buf.Format.NumChannels,
			BitDepth:   bitDepth,
		},
		Data: buf.Data,
	}
}
