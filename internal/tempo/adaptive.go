package tempo

import (
	"github.com/region23/tts-sync/internal/audio"
)

// TempoClamped is a non-fatal warning surfaced to the progress channel when a
// stretch ratio had to be clamped to [MinRatio, MaxRatio].
type TempoClamped struct {
	Requested float64
	Applied   float64
}

// FitResult carries the stretched buffer plus any warnings raised while
// fitting it to a target duration.
type FitResult struct {
	Buffer   audio.Buffer
	Warnings []TempoClamped
}

// FitToDuration stretches b to targetSeconds using a single global ratio, per
// SPEC_FULL.md §4.5's non-adaptive path (used when PreservePauses is false or
// when the adaptive fallback triggers).
func FitToDuration(b audio.Buffer, targetSeconds float64, algo Algorithm) (FitResult, error) {
	cur := b.Duration()
	if cur <= 0 {
		return FitResult{Buffer: b}, nil
	}
	ratio := targetSeconds / cur
	applied, clamped := Clamp(ratio)
	out, err := Stretch(b, applied, algo)
	if err != nil {
		return FitResult{}, err
	}
	res := FitResult{Buffer: out}
	if clamped {
		res.Warnings = append(res.Warnings, TempoClamped{Requested: ratio, Applied: applied})
	}
	return res, nil
}

// minVoicedSeconds is the floor below which adaptive per-span stretching is
// abandoned in favor of a single global stretch, per SPEC_FULL.md §4.5 step 3.
const minVoicedSeconds = 0.1

// AdaptiveFit implements the silence-preserving stretch: it holds detected
// silence spans close to their original length and concentrates the stretch
// onto voiced spans, so that padding a caption's target duration doesn't
// stretch out mid-sentence pauses along with speech.
//
// Steps (grounded on original_source's adaptive_tempo_adjustment):
//  1. Detect silence spans in b.
//  2. Compute T_sil (total silence) and T_voiced (= b.Duration() - T_sil).
//  3. Compute T_v_target = targetSeconds - T_sil. If T_v_target <= 100ms,
//     fall back to a single global FitToDuration over the whole buffer.
//  4. Otherwise the per-voiced-span ratio is T_v_target / T_voiced.
//  5. Stretch each voiced span independently at that ratio; copy each
//     silence span through unchanged.
//  6. Splice the stretched voiced spans and untouched silence spans back
//     together in original order.
func AdaptiveFit(b audio.Buffer, targetSeconds float64, algo Algorithm, silenceOpts audio.SilenceOptions) (FitResult, error) {
	totalFrames := b.FrameCount()
	if totalFrames == 0 || b.SampleRate == 0 {
		return FitResult{Buffer: b}, nil
	}

	silences := audio.DetectSilences(b, silenceOpts)
	tSil := audio.TotalSilenceDuration(silences, b.SampleRate)
	tVoiced := b.Duration() - tSil
	tVTarget := targetSeconds - tSil

	if tVTarget <= minVoicedSeconds || tVoiced <= 0 {
		return FitToDuration(b, targetSeconds, algo)
	}

	ratio := tVTarget / tVoiced
	applied, clamped := Clamp(ratio)

	voiced := audio.VoicedSpans(silences, totalFrames)
	pieces := splice(b, silences, voiced, applied, algo)

	out, err := audio.Concat(pieces...)
	if err != nil {
		return FitResult{}, err
	}
	res := FitResult{Buffer: out}
	if clamped {
		res.Warnings = append(res.Warnings, TempoClamped{Requested: ratio, Applied: applied})
	}
	return res, nil
}

// splice walks silence and voiced spans in original frame order, stretching
// voiced spans by ratio and passing silence spans through untouched.
func splice(b audio.Buffer, silences, voiced []audio.SilenceSpan, ratio float64, algo Algorithm) []audio.Buffer {
	type marker struct {
		span    audio.SilenceSpan
		isVoice bool
	}
	all := make([]marker, 0, len(silences)+len(voiced))
	for _, s := range silences {
		all = append(all, marker{s, false})
	}
	for _, v := range voiced {
		all = append(all, marker{v, true})
	}
	// order by start frame; spans are disjoint by construction.
	for i := 1; i < len(all); i++ {
		for j := i; j > 0 && all[j].span.StartFrame < all[j-1].span.StartFrame; j-- {
			all[j], all[j-1] = all[j-1], all[j]
		}
	}

	pieces := make([]audio.Buffer, 0, len(all))
	for _, m := range all {
		sub := sliceFrames(b, m.span.StartFrame, m.span.EndFrame)
		if !m.isVoice {
			pieces = append(pieces, sub)
			continue
		}
		stretched, err := Stretch(sub, ratio, algo)
		if err != nil {
			pieces = append(pieces, sub)
			continue
		}
		pieces = append(pieces, stretched)
	}
	return pieces
}

func sliceFrames(b audio.Buffer, startFrame, endFrame int) audio.Buffer {
	start := startFrame * b.Channels
	end := endFrame * b.Channels
	if start < 0 {
		start = 0
	}
	if end > len(b.Samples) {
		end = len(b.Samples)
	}
	if start > end {
		start = end
	}
	return audio.New(b.Samples[start:end], b.SampleRate, b.Channels)
}
