// Package config holds the Sync Options recognized by the synchronization
// pipeline: every key, its default, its validation rule, and its Viper binding.
package config

import (
	"fmt"
	"strings"

	"github.com/region23/tts-sync/internal/syncerr"
	"github.com/region23/tts-sync/internal/tempo"
)

// OutputFormat is the final encoded audio container.
type OutputFormat string

const (
	FormatMP3 OutputFormat = "mp3"
	FormatWAV OutputFormat = "wav"
	FormatOGG OutputFormat = "ogg"
)

// Options holds every Sync Option recognized by the pipeline, with the defaults
// and effects documented in SPEC_FULL.md §6.
type Options struct {
	Voice    string       `yaml:"voice" env:"TTS_SYNC_VOICE" envDefault:"alloy"`
	TTSModel string       `yaml:"tts_model" env:"TTS_SYNC_TTS_MODEL" envDefault:"tts-1"`
	OutputFormat OutputFormat `yaml:"output_format" env:"TTS_SYNC_OUTPUT_FORMAT" envDefault:"mp3"`
	SampleRate int          `yaml:"sample_rate" env:"TTS_SYNC_SAMPLE_RATE" envDefault:"44100"`

	// MaxSegmentDuration is accepted but currently unused: future extension for
	// splitting cues whose text exceeds this synthesis duration.
	MaxSegmentDuration float64 `yaml:"max_segment_duration" env:"TTS_SYNC_MAX_SEGMENT_DURATION" envDefault:"10.0"`

	NormalizeVolume  bool `yaml:"normalize_volume" env:"TTS_SYNC_NORMALIZE_VOLUME" envDefault:"true"`
	ApplyCompression bool `yaml:"apply_compression" env:"TTS_SYNC_APPLY_COMPRESSION" envDefault:"false"`
	ApplyEqualization bool `yaml:"apply_equalization" env:"TTS_SYNC_APPLY_EQUALIZATION" envDefault:"false"`

	TempoAlgorithm tempo.Algorithm `yaml:"tempo_algorithm" env:"TTS_SYNC_TEMPO_ALGORITHM" envDefault:"sinc"`
	PreservePauses bool            `yaml:"preserve_pauses" env:"TTS_SYNC_PRESERVE_PAUSES" envDefault:"true"`

	CompressionThresholdDB float64 `yaml:"compression_threshold_db" env:"TTS_SYNC_COMPRESSION_THRESHOLD_DB" envDefault:"-20.0"`
	CompressionRatio       float64 `yaml:"compression_ratio" env:"TTS_SYNC_COMPRESSION_RATIO" envDefault:"4.0"`
	CompressionAttackMs    float64 `yaml:"compression_attack_ms" env:"TTS_SYNC_COMPRESSION_ATTACK_MS" envDefault:"10.0"`
	CompressionReleaseMs   float64 `yaml:"compression_release_ms" env:"TTS_SYNC_COMPRESSION_RELEASE_MS" envDefault:"100.0"`
	CompressionMakeupDB    float64 `yaml:"compression_makeup_db" env:"TTS_SYNC_COMPRESSION_MAKEUP_DB" envDefault:"6.0"`

	EQLowGainDB  float64 `yaml:"eq_low_gain_db" env:"TTS_SYNC_EQ_LOW_GAIN_DB" envDefault:"3.0"`
	EQMidGainDB  float64 `yaml:"eq_mid_gain_db" env:"TTS_SYNC_EQ_MID_GAIN_DB" envDefault:"0.0"`
	EQHighGainDB float64 `yaml:"eq_high_gain_db" env:"TTS_SYNC_EQ_HIGH_GAIN_DB" envDefault:"2.0"`
	EQLowFreqHz  float64 `yaml:"eq_low_freq_hz" env:"TTS_SYNC_EQ_LOW_FREQ_HZ" envDefault:"300.0"`
	EQHighFreqHz float64 `yaml:"eq_high_freq_hz" env:"TTS_SYNC_EQ_HIGH_FREQ_HZ" envDefault:"3000.0"`

	NormalizationTargetDB float64 `yaml:"normalization_target_db" env:"TTS_SYNC_NORMALIZATION_TARGET_DB" envDefault:"-3.0"`

	Concurrency  int `yaml:"concurrency" env:"TTS_SYNC_CONCURRENCY" envDefault:"4"`
	TTSTimeoutS  int `yaml:"tts_timeout_s" env:"TTS_SYNC_TTS_TIMEOUT_S" envDefault:"60"`
	BestEffort   bool `yaml:"best_effort" env:"TTS_SYNC_BEST_EFFORT" envDefault:"false"`
}

// DefaultOptions returns the Sync Options defaults from SPEC_FULL.md §6.
func DefaultOptions() Options {
	return Options{
		Voice:                  "alloy",
		TTSModel:               "tts-1",
		OutputFormat:           FormatMP3,
		SampleRate:             44100,
		MaxSegmentDuration:     10.0,
		NormalizeVolume:        true,
		ApplyCompression:       false,
		ApplyEqualization:      false,
		TempoAlgorithm:         tempo.Sinc,
		PreservePauses:         true,
		CompressionThresholdDB: -20.0,
		CompressionRatio:       4.0,
		CompressionAttackMs:    10.0,
		CompressionReleaseMs:   100.0,
		CompressionMakeupDB:    6.0,
		EQLowGainDB:            3.0,
		EQMidGainDB:            0.0,
		EQHighGainDB:           2.0,
		EQLowFreqHz:            300.0,
		EQHighFreqHz:           3000.0,
		NormalizationTargetDB:  -3.0,
		Concurrency:            4,
		TTSTimeoutS:            60,
		BestEffort:             false,
	}
}

// Validate checks Options for out-of-range or nonsensical values, returning an
// InvalidOption error on the first failure found.
func (o *Options) Validate() error {
	switch o.OutputFormat {
	case FormatMP3, FormatWAV, FormatOGG:
	default:
		return invalid("output_format", fmt.Sprintf("unsupported format %q", o.OutputFormat))
	}
	if o.SampleRate <= 0 {
		return invalid("sample_rate", "must be positive")
	}
	switch o.TempoAlgorithm {
	case tempo.Sinc, tempo.FIR, tempo.Linear:
	default:
		return invalid("tempo_algorithm", fmt.Sprintf("unknown algorithm %q", o.TempoAlgorithm))
	}
	if o.CompressionRatio < 1.0 {
		return invalid("compression_ratio", "must be >= 1.0")
	}
	if o.CompressionAttackMs < 0 || o.CompressionReleaseMs < 0 {
		return invalid("compression_attack_ms/compression_release_ms", "must be non-negative")
	}
	if o.EQLowFreqHz <= 0 || o.EQHighFreqHz <= 0 || o.EQLowFreqHz >= o.EQHighFreqHz {
		return invalid("eq_low_freq_hz/eq_high_freq_hz", "low corner must be positive and below high corner")
	}
	if o.Concurrency <= 0 {
		return invalid("concurrency", "must be positive")
	}
	if o.TTSTimeoutS <= 0 {
		return invalid("tts_timeout_s", "must be positive")
	}
	if strings.TrimSpace(o.Voice) == "" {
		return invalid("voice", "must not be empty")
	}
	return nil
}

func invalid(field, reason string) error {
	return syncerr.New(syncerr.ErrInvalidOption, "config", "validate").
		WithContext("field", field).
		WithContext("reason", reason)
}
