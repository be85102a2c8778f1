package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Timeline.LeadTimeMS != 1000 {
		t.Fatalf("expected default lead time 1000ms, got %d", cfg.Timeline.LeadTimeMS)
	}
	if cfg.Timeline.ToneDurationMS != 80 {
		t.Fatalf("expected default tone duration 80ms, got %d", cfg.Timeline.ToneDurationMS)
	}
	if cfg.Synth.Rate != 140 || cfg.Synth.Pitch != 30 || cfg.Synth.Gain != 175 {
		t.Fatalf("unexpected default voice params: rate=%d pitch=%d gain=%d",
			cfg.Synth.Rate, cfg.Synth.Pitch, cfg.Synth.Gain)
	}
	if cfg.Synth.SampleRate != 48000 || cfg.Synth.Channels != 1 {
		t.Fatalf("unexpected default sample format: %d/%d", cfg.Synth.SampleRate, cfg.Synth.Channels)
	}
	if !cfg.Build.FailFast {
		t.Fatal("expected fail_fast default true")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coach.yaml")
	data := `
catalog:
  path: plans/sessions.yaml
output:
  dir: dist
  formats: [wav]
synth:
  mode: mock
  voice: en
build:
  concurrency: 4
  fail_fast: false
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Catalog.Path != "plans/sessions.yaml" {
		t.Fatalf("expected catalog path override, got %q", cfg.Catalog.Path)
	}
	if len(cfg.Output.Formats) != 1 || cfg.Output.Formats[0] != "wav" {
		t.Fatalf("expected formats [wav], got %v", cfg.Output.Formats)
	}
	if cfg.Synth.Mode != "mock" || cfg.Synth.Voice != "en" {
		t.Fatalf("expected synth overrides, got mode=%q voice=%q", cfg.Synth.Mode, cfg.Synth.Voice)
	}
	if cfg.Build.Concurrency != 4 || cfg.Build.FailFast {
		t.Fatalf("expected build overrides, got %+v", cfg.Build)
	}
	// Untouched sections keep defaults.
	if cfg.Timeline.ToneFrequency != 880 {
		t.Fatalf("expected default tone frequency, got %d", cfg.Timeline.ToneFrequency)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ESPEAK_VOICE", "en-us")
	t.Setenv("ESPEAK_RATE", "160")
	t.Setenv("ESPEAK_PITCH", "50")
	t.Setenv("ESPEAK_GAIN", "120")
	t.Setenv("COACH_OUTPUT_FORMATS", "wav, mp3")
	t.Setenv("COACH_BUILD_CONCURRENCY", "8")
	t.Setenv("COACH_BUS_ENABLED", "true")
	t.Setenv("COACH_BUS_SERVERS", "nats://one:4222,nats://two:4222")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Synth.Voice != "en-us" || cfg.Synth.Rate != 160 || cfg.Synth.Pitch != 50 || cfg.Synth.Gain != 120 {
		t.Fatalf("expected espeak env overrides, got %+v", cfg.Synth)
	}
	if len(cfg.Output.Formats) != 2 {
		t.Fatalf("expected 2 formats, got %v", cfg.Output.Formats)
	}
	if cfg.Build.Concurrency != 8 {
		t.Fatalf("expected concurrency 8, got %d", cfg.Build.Concurrency)
	}
	if !cfg.Bus.Enabled || len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected bus overrides, got %+v", cfg.Bus)
	}
}

func TestValidation(t *testing.T) {
	cases := map[string]string{
		"COACH_OUTPUT_FORMATS":            "ogg",
		"COACH_TIMELINE_LEAD_TIME_MS":     "-5",
		"COACH_TIMELINE_TONE_DURATION_MS": "0",
		"COACH_SYNTH_MODE":                "cloud",
		"COACH_BUILD_CONCURRENCY":         "0",
		"ESPEAK_PITCH":                    "120",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(""); err == nil {
				t.Fatalf("expected validation error for %s=%s", key, value)
			}
		})
	}
}
