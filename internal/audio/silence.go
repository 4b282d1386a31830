package audio

// SilenceSpan marks a contiguous run of near-silent per-channel frames.
type SilenceSpan struct {
	StartFrame int
	EndFrame   int
}

// SilenceOptions configures the sliding-window detector.
type SilenceOptions struct {
	WindowMs       float64 // analysis window, default 20ms
	ThresholdLinear float64 // RMS threshold below which a window counts as silent, default 0.01 (-40dBFS)
	MinSpanMs      float64 // spans shorter than this are discarded, default 80ms
}

// DefaultSilenceOptions matches SPEC_FULL.md §4.4's defaults, grounded on
// original_source/src/audio/analysis.rs's detect_silences constants.
func DefaultSilenceOptions() SilenceOptions {
	return SilenceOptions{WindowMs: 20, ThresholdLinear: 0.01, MinSpanMs: 80}
}

// DetectSilences slides a non-overlapping window of opts.WindowMs across a
// mono buffer, marking each window silent when its RMS falls below
// opts.ThresholdLinear, then merges adjacent silent windows into spans and
// discards spans shorter than opts.MinSpanMs.
func DetectSilences(b Buffer, opts SilenceOptions) []SilenceSpan {
	mono := b.ToMono()
	windowFrames := int(opts.WindowMs / 1000 * float64(mono.SampleRate))
	if windowFrames <= 0 {
		windowFrames = 1
	}
	total := len(mono.Samples)
	minSpanFrames := int(opts.MinSpanMs / 1000 * float64(mono.SampleRate))

	var spans []SilenceSpan
	var open bool
	var start int

	for i := 0; i < total; i += windowFrames {
		end := i + windowFrames
		if end > total {
			end = total
		}
		window := mono.Samples[i:end]
		silent := RMS(window) < opts.ThresholdLinear
		switch {
		case silent && !open:
			open = true
			start = i
		case !silent && open:
			open = false
			spans = append(spans, SilenceSpan{StartFrame: start, EndFrame: i})
		}
	}
	if open {
		spans = append(spans, SilenceSpan{StartFrame: start, EndFrame: total})
	}

	kept := spans[:0]
	for _, s := range spans {
		if s.EndFrame-s.StartFrame >= minSpanFrames {
			kept = append(kept, s)
		}
	}
	return kept
}

// TotalSilenceDuration sums the duration in seconds of every span.
func TotalSilenceDuration(spans []SilenceSpan, sampleRate int) float64 {
	if sampleRate == 0 {
		return 0
	}
	var frames int
	for _, s := range spans {
		frames += s.EndFrame - s.StartFrame
	}
	return float64(frames) / float64(sampleRate)
}

// VoicedSpans returns the complement of spans within [0, totalFrames): the
// frame ranges NOT covered by any silence span, in order.
func VoicedSpans(spans []SilenceSpan, totalFrames int) []SilenceSpan {
	var voiced []SilenceSpan
	cursor := 0
	for _, s := range spans {
		if s.StartFrame > cursor {
			voiced = append(voiced, SilenceSpan{StartFrame: cursor, EndFrame: s.StartFrame})
		}
		if s.EndFrame > cursor {
			cursor = s.EndFrame
		}
	}
	if cursor < totalFrames {
		voiced = append(voiced, SilenceSpan{StartFrame: cursor, EndFrame: totalFrames})
	}
	return voiced
}
