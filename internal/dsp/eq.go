package dsp

import (
	"math"

	"github.com/region23/tts-sync/internal/audio"
)

// biquad is a canonical direct-form-I second-order IIR filter section.
type biquad struct {
	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     float64
}

func (f *biquad) process(x float64) float64 {
	y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
	f.x2, f.x1 = f.x1, x
	f.y2, f.y1 = f.y1, y
	return y
}

// lowpass builds an RBJ-cookbook second-order lowpass biquad at the given
// corner frequency and Q, used to split off the EQ's low band.
func lowpass(sampleRate, freqHz, q float64) *biquad {
	w0 := 2 * math.Pi * freqHz / sampleRate
	cosw0, sinw0 := math.Cos(w0), math.Sin(w0)
	alpha := sinw0 / (2 * q)

	b1 := 1 - cosw0
	b0 := b1 / 2
	b2 := b0
	a0 := 1 + alpha
	a1 := -2 * cosw0
	a2 := 1 - alpha

	return &biquad{b0: b0 / a0, b1: b1 / a0, b2: b2 / a0, a1: a1 / a0, a2: a2 / a0}
}

// highpass builds an RBJ-cookbook second-order highpass biquad, used to split
// off the EQ's high band.
func highpass(sampleRate, freqHz, q float64) *biquad {
	w0 := 2 * math.Pi * freqHz / sampleRate
	cosw0, sinw0 := math.Cos(w0), math.Sin(w0)
	alpha := sinw0 / (2 * q)

	b0 := (1 + cosw0) / 2
	b1 := -(1 + cosw0)
	b2 := b0
	a0 := 1 + alpha
	a1 := -2 * cosw0
	a2 := 1 - alpha

	return &biquad{b0: b0 / a0, b1: b1 / a0, b2: b2 / a0, a1: a1 / a0, a2: a2 / a0}
}

// EQOptions configures the 3-band equalizer: independent gain for the band
// below LowFreqHz, the band above HighFreqHz, and everything between them.
type EQOptions struct {
	LowGainDB  float64
	MidGainDB  float64
	HighGainDB float64
	LowFreqHz  float64
	HighFreqHz float64
}

const bandQ = 0.707

// Equalize applies the 3-band EQ in place using a parallel-subtractive
// topology: the low band is split off with a lowpass filter, the high band
// with a highpass filter, and the mid band is the residual left after
// removing both from the input. Each band is gained independently and the
// three are summed back together, so a mid-band boost only amplifies the
// energy actually between LowFreqHz and HighFreqHz rather than the whole
// already-shelved signal.
func Equalize(samples []float32, sampleRate int, opts EQOptions) {
	if len(samples) == 0 || sampleRate == 0 {
		return
	}
	low := lowpass(float64(sampleRate), opts.LowFreqHz, bandQ)
	high := highpass(float64(sampleRate), opts.HighFreqHz, bandQ)

	lowGain := audio.LinearFromDB(opts.LowGainDB)
	midGain := audio.LinearFromDB(opts.MidGainDB)
	highGain := audio.LinearFromDB(opts.HighGainDB)

	for i, s := range samples {
		x := float64(s)
		lowBand := low.process(x)
		highBand := high.process(x)
		midBand := x - lowBand - highBand
		y := lowBand*lowGain + midBand*midGain + highBand*highGain
		samples[i] = clampf(float32(y))
	}
}
