package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type CatalogConfig struct {
	Path string `yaml:"path"`
}

type OutputConfig struct {
	Dir      string   `yaml:"dir"`
	Formats  []string `yaml:"formats"`
	KeepTemp bool     `yaml:"keep_temp"`
}

type TimelineConfig struct {
	LeadTimeMS     int `yaml:"lead_time_ms"`
	ToneDurationMS int `yaml:"tone_duration_ms"`
	ToneFrequency  int `yaml:"tone_frequency_hz"`
	EpsilonMS      int `yaml:"epsilon_ms"`
}

type SynthConfig struct {
	Mode       string `yaml:"mode"` // mock, exec
	Binary     string `yaml:"binary"`
	FFmpeg     string `yaml:"ffmpeg"`
	Voice      string `yaml:"voice"`
	Rate       int    `yaml:"rate_wpm"`
	Pitch      int    `yaml:"pitch"`
	Gain       int    `yaml:"gain"`
	ExtraArgs  string `yaml:"extra_args"`
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
}

type BuildConfig struct {
	Concurrency int  `yaml:"concurrency"`
	FailFast    bool `yaml:"fail_fast"`
	Force       bool `yaml:"force"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
	MetricsBind  string `yaml:"metrics_bind"`
}

type Config struct {
	BuildName string          `yaml:"build_name"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Output    OutputConfig    `yaml:"output"`
	Timeline  TimelineConfig  `yaml:"timeline"`
	Synth     SynthConfig     `yaml:"synth"`
	Build     BuildConfig     `yaml:"build"`
	Store     StoreConfig     `yaml:"store"`
	Bus       BusConfig       `yaml:"bus"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

func Default() Config {
	return Config{
		BuildName: "coach-build",
		Catalog: CatalogConfig{
			Path: "sessions.yaml",
		},
		Output: OutputConfig{
			Dir:     "audio",
			Formats: []string{"mp3", "m4a"},
		},
		Timeline: TimelineConfig{
			LeadTimeMS:     1000,
			ToneDurationMS: 80,
			ToneFrequency:  880,
			EpsilonMS:      1,
		},
		Synth: SynthConfig{
			Mode:       "exec",
			Binary:     "espeak-ng",
			FFmpeg:     "ffmpeg",
			Voice:      "nl",
			Rate:       140,
			Pitch:      30,
			Gain:       175,
			SampleRate: 48000,
			Channels:   1,
		},
		Build: BuildConfig{
			Concurrency: 2,
			FailFast:    true,
		},
		Store: StoreConfig{
			Path: "./data/coach-builds.db",
		},
		Bus: BusConfig{
			Enabled:        false,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPInsecure: true,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.BuildName, "COACH_BUILD_NAME")
	overrideString(&cfg.Catalog.Path, "COACH_CATALOG_PATH")
	overrideString(&cfg.Output.Dir, "COACH_OUTPUT_DIR")
	overrideStringSlice(&cfg.Output.Formats, "COACH_OUTPUT_FORMATS")
	overrideBool(&cfg.Output.KeepTemp, "COACH_OUTPUT_KEEP_TEMP")
	overrideInt(&cfg.Timeline.LeadTimeMS, "COACH_TIMELINE_LEAD_TIME_MS")
	overrideInt(&cfg.Timeline.ToneDurationMS, "COACH_TIMELINE_TONE_DURATION_MS")
	overrideInt(&cfg.Timeline.ToneFrequency, "COACH_TIMELINE_TONE_FREQUENCY_HZ")
	overrideInt(&cfg.Timeline.EpsilonMS, "COACH_TIMELINE_EPSILON_MS")
	overrideString(&cfg.Synth.Mode, "COACH_SYNTH_MODE")
	overrideString(&cfg.Synth.Binary, "COACH_SYNTH_BINARY")
	overrideString(&cfg.Synth.FFmpeg, "COACH_SYNTH_FFMPEG")
	overrideString(&cfg.Synth.Voice, "ESPEAK_VOICE")
	overrideInt(&cfg.Synth.Rate, "ESPEAK_RATE")
	overrideInt(&cfg.Synth.Pitch, "ESPEAK_PITCH")
	overrideInt(&cfg.Synth.Gain, "ESPEAK_GAIN")
	overrideString(&cfg.Synth.ExtraArgs, "COACH_SYNTH_EXTRA_ARGS")
	overrideInt(&cfg.Synth.SampleRate, "COACH_SYNTH_SAMPLE_RATE")
	overrideInt(&cfg.Synth.Channels, "COACH_SYNTH_CHANNELS")
	overrideInt(&cfg.Build.Concurrency, "COACH_BUILD_CONCURRENCY")
	overrideBool(&cfg.Build.FailFast, "COACH_BUILD_FAIL_FAST")
	overrideBool(&cfg.Build.Force, "COACH_BUILD_FORCE")
	overrideString(&cfg.Store.Path, "COACH_STORE_PATH")
	overrideBool(&cfg.Bus.Enabled, "COACH_BUS_ENABLED")
	overrideStringSlice(&cfg.Bus.Servers, "COACH_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "COACH_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "COACH_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "COACH_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "COACH_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "COACH_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Telemetry.LogLevel, "COACH_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "COACH_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "COACH_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.MetricsBind, "COACH_TELEMETRY_METRICS_BIND")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.BuildName == "" {
		return errors.New("build_name must not be empty")
	}
	if cfg.Catalog.Path == "" {
		return errors.New("catalog.path must not be empty")
	}
	if cfg.Output.Dir == "" {
		return errors.New("output.dir must not be empty")
	}
	if len(cfg.Output.Formats) == 0 {
		return errors.New("output.formats must not be empty")
	}
	for _, f := range cfg.Output.Formats {
		switch f {
		case "wav", "mp3", "m4a":
		default:
			return fmt.Errorf("output.formats entry %q must be one of wav|mp3|m4a", f)
		}
	}
	if cfg.Timeline.LeadTimeMS <= 0 {
		return errors.New("timeline.lead_time_ms must be positive")
	}
	if cfg.Timeline.ToneDurationMS <= 0 {
		return errors.New("timeline.tone_duration_ms must be positive")
	}
	if cfg.Timeline.ToneFrequency <= 0 {
		return errors.New("timeline.tone_frequency_hz must be positive")
	}
	if cfg.Timeline.EpsilonMS <= 0 {
		return errors.New("timeline.epsilon_ms must be positive")
	}
	switch cfg.Synth.Mode {
	case "mock", "exec":
	default:
		return errors.New("synth.mode must be one of mock|exec")
	}
	if cfg.Synth.Mode == "exec" && cfg.Synth.Binary == "" {
		return errors.New("synth.binary must be set when mode=exec")
	}
	if cfg.Synth.Rate <= 0 {
		return errors.New("synth.rate_wpm must be positive")
	}
	if cfg.Synth.Pitch < 0 || cfg.Synth.Pitch > 99 {
		return errors.New("synth.pitch must be between 0 and 99")
	}
	if cfg.Synth.Gain < 0 || cfg.Synth.Gain > 200 {
		return errors.New("synth.gain must be between 0 and 200")
	}
	if cfg.Synth.SampleRate <= 0 {
		return errors.New("synth.sample_rate must be positive")
	}
	if cfg.Synth.Channels <= 0 {
		return errors.New("synth.channels must be positive")
	}
	if cfg.Build.Concurrency < 1 {
		return errors.New("build.concurrency must be >= 1")
	}
	if cfg.Bus.Enabled && len(cfg.Bus.Servers) == 0 {
		return errors.New("bus.servers must not be empty when bus is enabled")
	}
	return nil
}
