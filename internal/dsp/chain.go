package dsp

import (
	"github.com/region23/tts-sync/internal/audio"
	"github.com/region23/tts-sync/internal/config"
)

// Normalize scales samples in place so their peak amplitude sits at
// targetDB dBFS, per spec.md §4.6's peak normalizer.
func Normalize(samples []float32, targetDB float64) {
	audio.NormalizePeak(samples, audio.LinearFromDB(targetDB))
}

// Chain applies the enabled post-processing stages to b's samples in place,
// in the fixed order compression, equalization, normalization, matching the
// PostProcessing phase's step order in SPEC_FULL.md §4.7.
func Chain(b audio.Buffer, opts config.Options) {
	if opts.ApplyCompression {
		Compress(b.Samples, b.SampleRate, CompressorOptions{
			ThresholdDB: opts.CompressionThresholdDB,
			Ratio:       opts.CompressionRatio,
			AttackMs:    opts.CompressionAttackMs,
			ReleaseMs:   opts.CompressionReleaseMs,
			MakeupDB:    opts.CompressionMakeupDB,
		})
	}
	if opts.ApplyEqualization {
		Equalize(b.Samples, b.SampleRate, EQOptions{
			LowGainDB:  opts.EQLowGainDB,
			MidGainDB:  opts.EQMidGainDB,
			HighGainDB: opts.EQHighGainDB,
			LowFreqHz:  opts.EQLowFreqHz,
			HighFreqHz: opts.EQHighFreqHz,
		})
	}
	if opts.NormalizeVolume {
		Normalize(b.Samples, opts.NormalizationTargetDB)
	}
}
