// Package dsp implements the post-processing chain applied after tempo
// adjustment: a feed-forward compressor, a 3-band equalizer, and a
// peak normalizer, per SPEC_FULL.md §4.6.
//
// No teacher or example repo implements audio dynamics processing; these
// filters are written fresh in the numeric style of the corpus's other DSP
// code (internal/tempo's windowed-sinc kernels), grounded on the standard
// feed-forward-compressor and RBJ-cookbook-biquad formulas rather than on any
// specific example file. See DESIGN.md.
package dsp

import (
	"math"

	"github.com/region23/tts-sync/internal/audio"
)

// CompressorOptions configures a feed-forward, RMS-detected, hard-knee
// compressor.
type CompressorOptions struct {
	ThresholdDB float64
	Ratio       float64
	AttackMs    float64
	ReleaseMs   float64
	MakeupDB    float64
}

// Compress applies dynamic range compression in place, using one-pole
// attack/release envelope smoothing on the signal's RMS-estimated level.
func Compress(samples []float32, sampleRate int, opts CompressorOptions) {
	if len(samples) == 0 || sampleRate == 0 {
		return
	}
	attackCoeff := timeConstant(opts.AttackMs, sampleRate)
	releaseCoeff := timeConstant(opts.ReleaseMs, sampleRate)
	makeupLinear := audio.LinearFromDB(opts.MakeupDB)

	var envelope float64
	for i, s := range samples {
		level := math.Abs(float64(s))
		if level > envelope {
			envelope = attackCoeff*envelope + (1-attackCoeff)*level
		} else {
			envelope = releaseCoeff*envelope + (1-releaseCoeff)*level
		}

		levelDB := audio.DBFS(envelope)
		gainDB := 0.0
		if levelDB > opts.ThresholdDB {
			gainDB = (opts.ThresholdDB - levelDB) * (1 - 1/opts.Ratio)
		}
		gain := audio.LinearFromDB(gainDB) * makeupLinear
		samples[i] = clampf(float32(float64(s) * gain))
	}
}

// timeConstant converts a millisecond attack/release time to a one-pole
// smoothing coefficient for the given sample rate.
func timeConstant(ms float64, sampleRate int) float64 {
	if ms <= 0 {
		return 0
	}
	return math.Exp(-1.0 / (ms / 1000 * float64(sampleRate)))
}

func clampf(x float32) float32 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}
