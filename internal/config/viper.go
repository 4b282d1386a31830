package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/region23/tts-sync/internal/tempo"
	"github.com/spf13/viper"
)

// LoadOptionsFromViper builds Options from DefaultOptions, layers in whatever
// the Options struct's `env` tags find in the process environment, then
// overrides each field the caller has set via flag or config file in Viper
// (which takes precedence over both), and finally validates the result.
// Mirrors the teacher's conditional-IsSet-then-Validate loader shape.
func LoadOptionsFromViper(v *viper.Viper) (Options, error) {
	o := DefaultOptions()
	if err := env.Parse(&o); err != nil {
		return o, fmt.Errorf("parse env options: %w", err)
	}
	// Viper's IsSet also reports keys that only carry a SetDefaults value, so
	// those defaults are replaced by the env-layered values before the
	// overrides below read them back.
	setDefaults(v, o)

	if v.IsSet("voice") {
		o.Voice = v.GetString("voice")
	}
	if v.IsSet("tts_model") {
		o.TTSModel = v.GetString("tts_model")
	}
	if v.IsSet("output_format") {
		o.OutputFormat = OutputFormat(v.GetString("output_format"))
	}
	if v.IsSet("sample_rate") {
		o.SampleRate = v.GetInt("sample_rate")
	}
	if v.IsSet("max_segment_duration") {
		o.MaxSegmentDuration = v.GetFloat64("max_segment_duration")
	}
	if v.IsSet("normalize_volume") {
		o.NormalizeVolume = v.GetBool("normalize_volume")
	}
	if v.IsSet("apply_compression") {
		o.ApplyCompression = v.GetBool("apply_compression")
	}
	if v.IsSet("apply_equalization") {
		o.ApplyEqualization = v.GetBool("apply_equalization")
	}
	if v.IsSet("tempo_algorithm") {
		o.TempoAlgorithm = tempo.Algorithm(v.GetString("tempo_algorithm"))
	}
	if v.IsSet("preserve_pauses") {
		o.PreservePauses = v.GetBool("preserve_pauses")
	}
	if v.IsSet("compression_threshold_db") {
		o.CompressionThresholdDB = v.GetFloat64("compression_threshold_db")
	}
	if v.IsSet("compression_ratio") {
		o.CompressionRatio = v.GetFloat64("compression_ratio")
	}
	if v.IsSet("compression_attack_ms") {
		o.CompressionAttackMs = v.GetFloat64("compression_attack_ms")
	}
	if v.IsSet("compression_release_ms") {
		o.CompressionReleaseMs = v.GetFloat64("compression_release_ms")
	}
	if v.IsSet("compression_makeup_db") {
		o.CompressionMakeupDB = v.GetFloat64("compression_makeup_db")
	}
	if v.IsSet("eq_low_gain_db") {
		o.EQLowGainDB = v.GetFloat64("eq_low_gain_db")
	}
	if v.IsSet("eq_mid_gain_db") {
		o.EQMidGainDB = v.GetFloat64("eq_mid_gain_db")
	}
	if v.IsSet("eq_high_gain_db") {
		o.EQHighGainDB = v.GetFloat64("eq_high_gain_db")
	}
	if v.IsSet("eq_low_freq_hz") {
		o.EQLowFreqHz = v.GetFloat64("eq_low_freq_hz")
	}
	if v.IsSet("eq_high_freq_hz") {
		o.EQHighFreqHz = v.GetFloat64("eq_high_freq_hz")
	}
	if v.IsSet("normalization_target_db") {
		o.NormalizationTargetDB = v.GetFloat64("normalization_target_db")
	}
	if v.IsSet("concurrency") {
		o.Concurrency = v.GetInt("concurrency")
	}
	if v.IsSet("tts_timeout_s") {
		o.TTSTimeoutS = v.GetInt("tts_timeout_s")
	}
	if v.IsSet("best_effort") {
		o.BestEffort = v.GetBool("best_effort")
	}

	if err := o.Validate(); err != nil {
		return o, fmt.Errorf("invalid sync options: %w", err)
	}
	return o, nil
}

// SetDefaults registers every Sync Option default into v, so that a config file
// or flag need only mention the keys it wants to override.
func SetDefaults(v *viper.Viper) {
	setDefaults(v, DefaultOptions())
}

// setDefaults registers every field of d as v's default for the matching key.
func setDefaults(v *viper.Viper, d Options) {
	v.SetDefault("voice", d.Voice)
	v.SetDefault("tts_model", d.TTSModel)
	v.SetDefault("output_format", string(d.OutputFormat))
	v.SetDefault("sample_rate", d.SampleRate)
	v.SetDefault("max_segment_duration", d.MaxSegmentDuration)
	v.SetDefault("normalize_volume", d.NormalizeVolume)
	v.SetDefault("apply_compression", d.ApplyCompression)
	v.SetDefault("apply_equalization", d.ApplyEqualization)
	v.SetDefault("tempo_algorithm", string(d.TempoAlgorithm))
	v.SetDefault("preserve_pauses", d.PreservePauses)
	v.SetDefault("compression_threshold_db", d.CompressionThresholdDB)
	v.SetDefault("compression_ratio", d.CompressionRatio)
	v.SetDefault("compression_attack_ms", d.CompressionAttackMs)
	v.SetDefault("compression_release_ms", d.CompressionReleaseMs)
	v.SetDefault("compression_makeup_db", d.CompressionMakeupDB)
	v.SetDefault("eq_low_gain_db", d.EQLowGainDB)
	v.SetDefault("eq_mid_gain_db", d.EQMidGainDB)
	v.SetDefault("eq_high_gain_db", d.EQHighGainDB)
	v.SetDefault("eq_low_freq_hz", d.EQLowFreqHz)
	v.SetDefault("eq_high_freq_hz", d.EQHighFreqHz)
	v.SetDefault("normalization_target_db", d.NormalizationTargetDB)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("tts_timeout_s", d.TTSTimeoutS)
	v.SetDefault("best_effort", d.BestEffort)
}
