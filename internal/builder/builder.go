// Package builder orchestrates the batch: for each session in the catalog it
// applies the staleness gate, compiles the timeline, assembles and encodes
// the artifacts, and records the outcome. Sessions are independent and run
// on a bounded worker pool; within a session everything is sequential.
package builder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/BAQ01/run-coach/internal/audio"
	"github.com/BAQ01/run-coach/internal/buildstore"
	"github.com/BAQ01/run-coach/internal/bus"
	"github.com/BAQ01/run-coach/internal/catalog"
	"github.com/BAQ01/run-coach/internal/config"
	"github.com/BAQ01/run-coach/internal/protocol"
	"github.com/BAQ01/run-coach/internal/timeline"
)

type Status string

const (
	StatusBuilt    Status = "built"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
	StatusCanceled Status = "canceled"
)

// Result is the per-session outcome reported to the caller.
type Result struct {
	Slug        string
	Title       string
	Status      Status
	Err         error
	CueIndex    int // index of the failing cue, -1 otherwise
	CueText     string
	DurationSec float64
	Segments    int
	Artifacts   []string
	Fingerprint string
}

type Builder struct {
	cfg    config.Config
	synth  timeline.Synthesizer
	store  *buildstore.Store
	bus    *bus.Client
	log    *slog.Logger
	clock  func() time.Time
	runID  string
	format audio.Format

	tracer       trace.Tracer
	sessionCount metric.Int64Counter
	audioSeconds metric.Float64Counter
}

func New(cfg config.Config, synth timeline.Synthesizer, store *buildstore.Store, busClient *bus.Client, log *slog.Logger) *Builder {
	meter := otel.Meter("github.com/BAQ01/run-coach/internal/builder")
	sessionCount, _ := meter.Int64Counter("coach_build_sessions_total",
		metric.WithDescription("Session build outcomes by status"))
	audioSeconds, _ := meter.Float64Counter("coach_build_audio_seconds_total",
		metric.WithDescription("Seconds of narrated audio produced"))

	return &Builder{
		cfg:   cfg,
		synth: synth,
		store: store,
		bus:   busClient,
		log:   log.With(slog.String("component", "builder")),
		clock: time.Now,
		runID: uuid.NewString(),
		format: audio.Format{
			SampleRate: cfg.Synth.SampleRate,
			Channels:   cfg.Synth.Channels,
			BitDepth:   16,
		},
		tracer:       otel.Tracer("coach-build"),
		sessionCount: sessionCount,
		audioSeconds: audioSeconds,
	}
}

// Run builds every session in the catalog. It returns one result per session
// in catalog order and a non-nil error when any session did not end up built
// or fresh.
func (b *Builder) Run(ctx context.Context, cat *catalog.Catalog) ([]Result, error) {
	slugs := make([]string, len(cat.Sessions))
	seen := make(map[string]string, len(cat.Sessions))
	for i, sess := range cat.Sessions {
		slug := Slugify(sess.Title)
		if slug == "" {
			return nil, fmt.Errorf("title %q produces an empty slug", sess.Title)
		}
		if prev, ok := seen[slug]; ok {
			return nil, fmt.Errorf("slug collision: titles %q and %q both map to %q", prev, sess.Title, slug)
		}
		seen[slug] = sess.Title
		slugs[i] = slug
	}

	if err := os.MkdirAll(b.cfg.Output.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	b.log.Info("starting build",
		slog.String("run_id", b.runID),
		slog.Int("sessions", len(cat.Sessions)),
		slog.Int("concurrency", b.cfg.Build.Concurrency))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]Result, len(cat.Sessions))
	sem := make(chan struct{}, b.cfg.Build.Concurrency)
	var wg sync.WaitGroup

	for i := range cat.Sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = Result{Slug: slugs[i], Title: cat.Sessions[i].Title, Status: StatusCanceled, Err: ctx.Err(), CueIndex: -1}
				return
			}
			if ctx.Err() != nil {
				results[i] = Result{Slug: slugs[i], Title: cat.Sessions[i].Title, Status: StatusCanceled, Err: ctx.Err(), CueIndex: -1}
				return
			}

			res := b.buildSession(ctx, cat, cat.Sessions[i], slugs[i])
			results[i] = res
			b.report(ctx, res)
			if res.Status == StatusFailed && b.cfg.Build.FailFast {
				cancel()
			}
		}(i)
	}
	wg.Wait()

	var failed int
	for _, res := range results {
		if res.Status == StatusFailed || res.Status == StatusCanceled {
			failed++
		}
	}
	if failed > 0 {
		return results, fmt.Errorf("%d of %d sessions did not build", failed, len(results))
	}
	return results, nil
}

func (b *Builder) buildSession(ctx context.Context, cat *catalog.Catalog, sess catalog.Session, slug string) Result {
	ctx, span := b.tracer.Start(ctx, "build_session", trace.WithAttributes(
		attribute.String("session.slug", slug),
		attribute.String("session.title", sess.Title),
	))
	defer span.End()

	log := b.log.With(slog.String("session", slug))
	fp := fingerprint(sess, b.cfg.Timeline, b.cfg.Synth)

	if !b.cfg.Build.Force && b.fresh(ctx, cat, slug, fp) {
		log.Info("skipping session, artifacts up to date")
		return Result{Slug: slug, Title: sess.Title, Status: StatusSkipped, CueIndex: -1}
	}

	b.bus.PublishStarted(protocol.SessionStarted{
		RunID: b.runID, Slug: slug, Title: sess.Title, Timestamp: b.clock().UTC(),
	})
	log.Info("building session", slog.Int("cues", len(sess.Cues)))

	tl, err := b.compile(ctx, sess)
	if err != nil {
		span.RecordError(err)
		res := Result{Slug: slug, Title: sess.Title, Status: StatusFailed, Err: err, CueIndex: -1, Fingerprint: fp}
		var synthErr *timeline.SynthesisError
		if errors.As(err, &synthErr) {
			res.CueIndex = synthErr.Index
			res.CueText = synthErr.Text
		}
		return res
	}

	segments := tl.Segments()
	if len(segments) == 0 {
		log.Warn("session has no speakable cues, nothing to assemble")
		return Result{Slug: slug, Title: sess.Title, Status: StatusBuilt, CueIndex: -1, Fingerprint: fp}
	}

	artifacts, err := b.assemble(ctx, tl, slug, log)
	if err != nil {
		span.RecordError(err)
		return Result{Slug: slug, Title: sess.Title, Status: StatusFailed, Err: err, CueIndex: -1, Fingerprint: fp}
	}

	log.Info("session built",
		slog.Float64("duration_sec", tl.Cursor()),
		slog.Int("segments", len(segments)))
	return Result{
		Slug:        slug,
		Title:       sess.Title,
		Status:      StatusBuilt,
		CueIndex:    -1,
		DurationSec: tl.Cursor(),
		Segments:    len(segments),
		Artifacts:   artifacts,
		Fingerprint: fp,
	}
}

func (b *Builder) compile(ctx context.Context, sess catalog.Session) (*timeline.Timeline, error) {
	opts := timeline.Options{
		LeadTime:      float64(b.cfg.Timeline.LeadTimeMS) / 1000,
		ToneDuration:  float64(b.cfg.Timeline.ToneDurationMS) / 1000,
		ToneFrequency: float64(b.cfg.Timeline.ToneFrequency),
		Epsilon:       float64(b.cfg.Timeline.EpsilonMS) / 1000,
	}
	compiler, err := timeline.NewCompiler(opts, b.synth, audio.NewGenerator(b.format), b.log)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(ctx, sess.Cues)
}

// assemble mixes the timeline, writes all requested formats to a temp
// directory and moves them into place only when every encode succeeded, so a
// failed session never publishes a partial artifact.
func (b *Builder) assemble(ctx context.Context, tl *timeline.Timeline, slug string, log *slog.Logger) ([]string, error) {
	asm := audio.NewAssembler(b.format, b.cfg.Synth.FFmpeg, log)
	mix, err := asm.Mix(tl.Clips())
	if err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp(b.cfg.Output.Dir, ".tmp-"+slug+"-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	if !b.cfg.Output.KeepTemp {
		defer os.RemoveAll(tmpDir)
	}

	mixPath := filepath.Join(tmpDir, slug+".mix.wav")
	if err := asm.WriteMix(mixPath, mix); err != nil {
		return nil, err
	}

	staged := make(map[string]string, len(b.cfg.Output.Formats))
	for _, format := range b.cfg.Output.Formats {
		out := filepath.Join(tmpDir, slug+"."+format)
		switch format {
		case "wav":
			// The mix already is the wav artifact.
			out = mixPath
		case "mp3":
			if err := asm.EncodeMP3(ctx, mixPath, out); err != nil {
				return nil, err
			}
		case "m4a":
			if err := asm.EncodeM4A(ctx, mixPath, out); err != nil {
				return nil, err
			}
		}
		staged[format] = out
	}

	artifacts := make([]string, 0, len(staged))
	for _, format := range b.cfg.Output.Formats {
		final := filepath.Join(b.cfg.Output.Dir, slug+"."+format)
		if err := os.Rename(staged[format], final); err != nil {
			return nil, fmt.Errorf("publish %s artifact: %w", format, err)
		}
		artifacts = append(artifacts, final)
	}
	return artifacts, nil
}

// fresh reports whether every requested artifact exists, postdates the
// catalog source and matches the recorded build fingerprint. Without a store
// record the gate falls back to the pure mtime comparison.
func (b *Builder) fresh(ctx context.Context, cat *catalog.Catalog, slug, fp string) bool {
	for _, format := range b.cfg.Output.Formats {
		info, err := os.Stat(filepath.Join(b.cfg.Output.Dir, slug+"."+format))
		if err != nil || !info.ModTime().After(cat.ModTime) {
			return false
		}
	}
	rec, err := b.store.Latest(ctx, slug)
	if err != nil {
		b.log.Warn("build store lookup failed", slog.String("error", err.Error()))
		return false
	}
	if rec == nil {
		return true
	}
	return rec.Status == buildstore.StatusBuilt && rec.Fingerprint == fp
}

func (b *Builder) report(ctx context.Context, res Result) {
	b.sessionCount.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(res.Status))))
	if res.Status == StatusBuilt {
		b.audioSeconds.Add(ctx, res.DurationSec)
	}
	if res.Status == StatusSkipped || res.Status == StatusCanceled {
		return
	}

	evt := protocol.SessionResult{
		RunID:       b.runID,
		Slug:        res.Slug,
		Title:       res.Title,
		Status:      string(res.Status),
		DurationSec: res.DurationSec,
		Segments:    res.Segments,
		Timestamp:   b.clock().UTC(),
	}
	rec := buildstore.Record{
		RunID:       b.runID,
		Slug:        res.Slug,
		Title:       res.Title,
		Fingerprint: res.Fingerprint,
		Status:      buildstore.StatusBuilt,
		DurationSec: res.DurationSec,
		Segments:    res.Segments,
	}
	if res.Status == StatusFailed {
		rec.Status = buildstore.StatusFailed
		if res.Err != nil {
			rec.Error = res.Err.Error()
			evt.Error = res.Err.Error()
		}
		evt.CueIndex = res.CueIndex
	}
	if err := b.store.Append(ctx, rec); err != nil {
		b.log.Warn("failed to record build", slog.String("error", err.Error()))
	}
	b.bus.PublishResult(evt)
}

// fingerprint hashes everything that shapes a session's audio: the cue
// content, the timing parameters and the voice parameters. A config change
// invalidates artifacts even when the catalog file is untouched.
func fingerprint(sess catalog.Session, tcfg config.TimelineConfig, scfg config.SynthConfig) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	_ = enc.Encode(struct {
		Title string                `json:"title"`
		Cues  []timeline.Cue        `json:"cues"`
		Time  config.TimelineConfig `json:"timeline"`
		Voice string                `json:"voice"`
		Rate  int                   `json:"rate"`
		Pitch int                   `json:"pitch"`
		Gain  int                   `json:"gain"`
		Extra string                `json:"extra"`
	}{sess.Title, sess.Cues, tcfg, scfg.Voice, scfg.Rate, scfg.Pitch, scfg.Gain, scfg.ExtraArgs})
	return hex.EncodeToString(h.Sum(nil))
}
