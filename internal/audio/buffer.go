// Package audio implements the Audio Buffer Model: a uniform interleaved
// float32 PCM representation plus the utility operations (duration, RMS, peak,
// mix, pad, trim) every pipeline stage builds on, and the Silence
// Analyzer that classifies spans of a buffer as silent.
//
// Grounded on the teacher's pkg/tts/pcm.go (PCMFormat, ResamplePCM,
// NormalizePCMVolume, MixPCM, GenerateSilence) and tts/audio/buffer.go's
// exported-utility-method style, reworked from byte-level int16 PCM to the
// spec's interleaved float32 in [-1, 1].
package audio

import (
	"math"

	"github.com/region23/tts-sync/internal/syncerr"
)

// CanonicalSampleRate is the internal PCM rate used by all pipeline stages
// unless Sync Options override it.
const CanonicalSampleRate = 44100

// Buffer is the Audio Buffer Model: interleaved float32 samples in [-1, 1].
type Buffer struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// New constructs a Buffer from the given fields. It does not check the
// samples.len % channels == 0 invariant from SPEC_FULL.md §3.
func New(samples []float32, sampleRate, channels int) Buffer {
	return Buffer{Samples: samples, SampleRate: sampleRate, Channels: channels}
}

// Silence returns a buffer of the given duration filled with zero samples at
// the given format.
func Silence(duration float64, sampleRate, channels int) Buffer {
	n := int(math.Round(duration*float64(sampleRate))) * channels
	if n < 0 {
		n = 0
	}
	return Buffer{Samples: make([]float32, n), SampleRate: sampleRate, Channels: channels}
}

// FrameCount returns the number of per-channel sample frames in the buffer.
func (b Buffer) FrameCount() int {
	if b.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the buffer's length in seconds.
func (b Buffer) Duration() float64 {
	if b.SampleRate == 0 || b.Channels == 0 {
		return 0
	}
	return float64(len(b.Samples)) / (float64(b.Channels) * float64(b.SampleRate))
}

// RMS returns the root-mean-square amplitude of every sample in the buffer.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Peak returns the maximum absolute sample value.
func Peak(samples []float32) float64 {
	var peak float64
	for _, s := range samples {
		a := math.Abs(float64(s))
		if a > peak {
			peak = a
		}
	}
	return peak
}

// DBFS converts a linear amplitude to decibels relative to full scale.
func DBFS(linear float64) float64 {
	if linear <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(linear)
}

// LinearFromDB is the inverse of DBFS.
func LinearFromDB(db float64) float64 {
	return math.Pow(10, db/20)
}

// ToMono downmixes an interleaved multi-channel buffer to mono by averaging
// channels. A mono input is returned unchanged.
func (b Buffer) ToMono() Buffer {
	if b.Channels <= 1 {
		return b
	}
	frames := b.FrameCount()
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		base := i * b.Channels
		for c := 0; c < b.Channels; c++ {
			sum += b.Samples[base+c]
		}
		out[i] = sum / float32(b.Channels)
	}
	return Buffer{Samples: out, SampleRate: b.SampleRate, Channels: 1}
}

// Pad appends n zero-value per-channel frames to the end of the buffer.
func (b Buffer) Pad(frames int) Buffer {
	if frames <= 0 {
		return b
	}
	out := make([]float32, len(b.Samples)+frames*b.Channels)
	copy(out, b.Samples)
	return Buffer{Samples: out, SampleRate: b.SampleRate, Channels: b.Channels}
}

// Trim truncates the buffer to at most frames per-channel frames.
func (b Buffer) Trim(frames int) Buffer {
	if frames < 0 {
		frames = 0
	}
	n := frames * b.Channels
	if n > len(b.Samples) {
		n = len(b.Samples)
	}
	return Buffer{Samples: b.Samples[:n], SampleRate: b.SampleRate, Channels: b.Channels}
}

// FitToFrames pads or trims the buffer so it holds exactly frames per-channel
// frames, satisfying the ±1-sample finalize tolerance from SPEC_FULL.md §4.7.
func (b Buffer) FitToFrames(frames int) Buffer {
	cur := b.FrameCount()
	if cur == frames {
		return b
	}
	if cur < frames {
		return b.Pad(frames - cur)
	}
	return b.Trim(frames)
}

// Mix adds two same-format buffers sample-for-sample, clamping to [-1, 1]. The
// shorter buffer is treated as zero-padded.
func Mix(a, b Buffer) (Buffer, error) {
	if a.SampleRate != b.SampleRate || a.Channels != b.Channels {
		return Buffer{}, syncerr.New(syncerr.ErrAudioResample, "audio", "mix").
			WithContext("reason", "mismatched format")
	}
	n := len(a.Samples)
	if len(b.Samples) > n {
		n = len(b.Samples)
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		var av, bv float32
		if i < len(a.Samples) {
			av = a.Samples[i]
		}
		if i < len(b.Samples) {
			bv = b.Samples[i]
		}
		out[i] = clamp(av + bv)
	}
	return Buffer{Samples: out, SampleRate: a.SampleRate, Channels: a.Channels}, nil
}

// Concat appends the samples of every buffer in order. All buffers must share
// sample rate and channel count.
func Concat(buffers ...Buffer) (Buffer, error) {
	if len(buffers) == 0 {
		return Buffer{}, nil
	}
	rate, ch := buffers[0].SampleRate, buffers[0].Channels
	total := 0
	for _, buf := range buffers {
		if buf.SampleRate != rate || buf.Channels != ch {
			return Buffer{}, syncerr.New(syncerr.ErrAudioResample, "audio", "concat").
				WithContext("reason", "mismatched format")
		}
		total += len(buf.Samples)
	}
	out := make([]float32, 0, total)
	for _, buf := range buffers {
		out = append(out, buf.Samples...)
	}
	return Buffer{Samples: out, SampleRate: rate, Channels: ch}, nil
}

// NormalizePeak scales samples so the maximum absolute value equals the linear
// target amplitude, matching spec.md §4.6's peak normalizer.
func NormalizePeak(samples []float32, targetLinear float64) {
	peak := Peak(samples)
	if peak <= 0 {
		return
	}
	gain := float32(targetLinear / peak)
	for i := range samples {
		samples[i] = clamp(samples[i] * gain)
	}
}

func clamp(x float32) float32 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}
