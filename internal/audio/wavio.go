package audio

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// WriteWAV writes a clip to path as PCM WAV.
func WriteWAV(path string, clip *Clip) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}

	enc := wav.NewEncoder(f, clip.Format.SampleRate, clip.Format.BitDepth, clip.Format.Channels, 1)
	if err := enc.Write(clip.IntBuffer()); err != nil {
		f.Close()
		return fmt.Errorf("write wav samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalize wav: %w", err)
	}
	return f.Close()
}

// ReadWAV decodes a PCM WAV file into a clip.
func ReadWAV(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s: not a valid wav file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	clip := FromIntBuffer(buf)
	if clip.Format.BitDepth == 0 {
		clip.Format.BitDepth = int(dec.BitDepth)
	}
	return clip, nil
}
