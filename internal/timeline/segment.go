// Package timeline turns an ordered list of timed narration cues into the
// silence/tone/speech segment sequence that realizes the target schedule.
// Speech duration is only known after synthesis, so the running cursor can
// drift past a cue's nominal time; drift is absorbed at the next cue boundary
// by shrinking or dropping the surrounding silences. The timeline runs long
// when it must, it never rewinds.
package timeline

import "github.com/BAQ01/run-coach/internal/audio"

// Cue is one planned narration event: an absolute position on the session
// timeline plus the text to speak there.
type Cue struct {
	T    float64 `yaml:"t" json:"t"`
	Text string  `yaml:"text" json:"text"`
}

type SegmentKind int

const (
	SegmentSilence SegmentKind = iota
	SegmentTone
	SegmentSpeech
)

func (k SegmentKind) String() string {
	switch k {
	case SegmentSilence:
		return "silence"
	case SegmentTone:
		return "tone"
	case SegmentSpeech:
		return "speech"
	default:
		return "unknown"
	}
}

// Segment is one atomic unit of the output track. Duration is in seconds;
// for speech it is the measured duration reported by the synthesizer. Clip
// holds the realized audio, uniform in format across the session.
type Segment struct {
	Kind     SegmentKind
	Duration float64
	Text     string // speech only
	Clip     *audio.Clip
}

// Timeline is the compiler's working state for one session: an append-only
// segment sequence plus the cursor, the absolute time reached so far. The
// cursor always equals the sum of appended durations; it is tracked
// incrementally to avoid re-summing.
type Timeline struct {
	segments []Segment
	cursor   float64
}

func (t *Timeline) append(seg Segment) {
	t.segments = append(t.segments, seg)
	t.cursor += seg.Duration
}

// Segments returns the ordered segment sequence.
func (t *Timeline) Segments() []Segment { return t.segments }

// Cursor returns the absolute time position after all appended segments.
func (t *Timeline) Cursor() float64 { return t.cursor }

// Clips returns the ordered realized clips, ready for assembly.
func (t *Timeline) Clips() []*audio.Clip {
	clips := make([]*audio.Clip, len(t.segments))
	for i, seg := range t.segments {
		clips[i] = seg.Clip
	}
	return clips
}
