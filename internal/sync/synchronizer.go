package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	xsemaphore "golang.org/x/sync/semaphore"

	"github.com/region23/tts-sync/internal/audio"
	"github.com/region23/tts-sync/internal/config"
	"github.com/region23/tts-sync/internal/dsp"
	"github.com/region23/tts-sync/internal/progress"
	"github.com/region23/tts-sync/internal/syncerr"
	"github.com/region23/tts-sync/internal/tempo"
	"github.com/region23/tts-sync/internal/ttsclient"
	"github.com/region23/tts-sync/internal/vtt"
)

// Segment is a single cue's synthesized, tempo-adjusted audio, keyed by its
// position in the caption track.
type Segment struct {
	Index  int
	Cue    vtt.Cue
	Buffer audio.Buffer
	// Substituted is true when this segment is a silence stand-in for a
	// best_effort TTS failure rather than real synthesized speech.
	Substituted bool
	// RawMP3 carries the provider's original MP3 bytes for this segment, when
	// available and still valid. It is cleared the moment anything reshapes
	// the segment's samples (resampling to the canonical rate, tempo
	// stretching), since at that point the raw bytes no longer match Buffer.
	RawMP3 []byte
}

// Result is the Synchronizer's output: the final assembled, post-processed
// track and any non-fatal warnings collected along the way.
type Result struct {
	Buffer   audio.Buffer
	Warnings []string
	// RawMP3, when non-nil, is the original provider MP3 for the whole
	// output: a direct byte-for-byte passthrough candidate for MP3 output,
	// grounded on original_source's try_direct_mp3_save. It is only set when
	// exactly one cue was synthesized and nothing in the pipeline (resample,
	// tempo stretch, silence padding, post-processing, duration fitting)
	// touched the decoded audio.
	RawMP3 []byte
}

// Synchronizer drives a caption track through fetch, tempo adjustment,
// assembly, and post-processing.
type Synchronizer struct {
	Fetcher Fetcher
	Logger  *log.Logger
}

// New constructs a Synchronizer against the given TTS fetcher.
func New(fetcher Fetcher, logger *log.Logger) *Synchronizer {
	if logger == nil {
		logger = log.Default()
	}
	return &Synchronizer{Fetcher: fetcher, Logger: logger}
}

// Synchronize parses vttSource, synthesizes and time-stretches each cue to
// fit its caption window, assembles them (with silence in the gaps) into a
// single track, applies the post-processing chain, and pads or trims the
// result to videoDuration when it is positive.
func (s *Synchronizer) Synchronize(ctx context.Context, cues []vtt.Cue, videoDuration float64, opts config.Options, tracker *progress.Tracker) (Result, error) {
	if tracker == nil {
		tracker = progress.New()
	}
	sm := newStateMachine()

	if err := opts.Validate(); err != nil {
		return Result{}, err
	}

	sm.transition(PhaseParsing)
	tracker.Update(startPercent[PhaseParsing], "parsing")
	if len(cues) == 0 {
		return Result{}, syncerr.New(syncerr.ErrVttParsing, "sync", "synchronize").WithContext("reason", "no cues")
	}

	sm.transition(PhaseFetching)
	tracker.Update(startPercent[PhaseFetching], "fetching")
	segments, warnings, err := s.fetchAll(ctx, cues, opts, tracker.Child(startPercent[PhaseFetching], startPercent[PhaseStretching]))
	if err != nil {
		sm.transition(PhaseFailed)
		return Result{}, err
	}

	sm.transition(PhaseStretching)
	tracker.Update(startPercent[PhaseStretching], "stretching")
	stretchWarnings, err := s.stretchAll(segments, opts, tracker.Child(startPercent[PhaseStretching], startPercent[PhaseAssembling]))
	if err != nil {
		sm.transition(PhaseFailed)
		return Result{}, err
	}
	warnings = append(warnings, stretchWarnings...)

	sm.transition(PhaseAssembling)
	tracker.Update(startPercent[PhaseAssembling], "assembling")
	track, err := s.assemble(segments, opts)
	if err != nil {
		sm.transition(PhaseFailed)
		return Result{}, err
	}

	rawMP3 := directMP3Passthrough(segments, opts, videoDuration)

	sm.transition(PhasePostProcessing)
	tracker.Update(startPercent[PhasePostProcessing], "post_processing")
	dsp.Chain(track, opts)

	sm.transition(PhaseFinalizing)
	tracker.Update(startPercent[PhaseFinalizing], "finalizing")
	if videoDuration > 0 {
		targetFrames := int(videoDuration * float64(track.SampleRate))
		track = track.FitToFrames(targetFrames)
	}

	sm.transition(PhaseDone)
	tracker.Update(startPercent[PhaseDone], "done")

	return Result{Buffer: track, Warnings: warnings, RawMP3: rawMP3}, nil
}

// directMP3Passthrough returns the sole segment's raw provider MP3 bytes when
// nothing has touched the decoded audio: exactly one cue starting at the
// track origin, no post-processing requested, and no explicit video-duration
// fit. Grounded on original_source's try_direct_mp3_save, which skips
// re-encoding whenever the synthesized clip can be written out untouched.
func directMP3Passthrough(segments []Segment, opts config.Options, videoDuration float64) []byte {
	if videoDuration > 0 {
		return nil
	}
	if opts.NormalizeVolume || opts.ApplyCompression || opts.ApplyEqualization {
		return nil
	}
	if len(segments) != 1 || segments[0].RawMP3 == nil {
		return nil
	}
	if segments[0].Cue.Start != 0 {
		return nil
	}
	return segments[0].RawMP3
}

// fetchAll synthesizes every cue concurrently, bounded by opts.Concurrency,
// assembling results back into cue order via an index-keyed map guarded by a
// mutex, per SPEC_FULL.md §5's out-of-order-fetch-then-in-order-assembly
// model.
func (s *Synchronizer) fetchAll(ctx context.Context, cues []vtt.Cue, opts config.Options, tracker *progress.ChildTracker) ([]Segment, []string, error) {
	sem := xsemaphore.NewWeighted(int64(opts.Concurrency))
	results := make(map[int]Segment, len(cues))
	var mu sync.Mutex
	var warnings []string
	var firstErr error

	var wg sync.WaitGroup
	for _, cue := range cues {
		cue := cue
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = syncerr.New(syncerr.ErrCancelled, "sync", "fetch").WithContext("cause", err.Error())
			}
			mu.Unlock()
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			seg, warn, err := s.fetchOne(ctx, cue, opts)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			if warn != "" {
				warnings = append(warnings, warn)
			}
			results[cue.Index] = seg
		}()
	}
	wg.Wait()

	tracker.Update(100, "fetch complete")

	if firstErr != nil {
		return nil, warnings, firstErr
	}

	segments := make([]Segment, len(cues))
	for i, cue := range cues {
		seg, ok := results[cue.Index]
		if !ok {
			return nil, warnings, syncerr.New(syncerr.ErrAssembly, "sync", "fetch").
				WithContext("reason", fmt.Sprintf("missing segment for cue %d", cue.Index))
		}
		segments[i] = seg
	}
	return segments, warnings, nil
}

// fetchOne synthesizes a single cue, substituting silence when the fetch
// fails and best_effort is enabled, per the fallback idiom the corpus uses
// for degraded-mode engine substitution.
func (s *Synchronizer) fetchOne(ctx context.Context, cue vtt.Cue, opts config.Options) (Segment, string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(opts.TTSTimeoutS)*time.Second)
	defer cancel()

	entry, err := s.Fetcher.Fetch(reqCtx, ttsclient.Request{
		Text:                cue.Text,
		Voice:               ttsclient.Voice(opts.Voice),
		Model:               opts.TTSModel,
		Format:              ttsclient.FormatMP3,
		RequestedSampleRate: opts.SampleRate,
	})
	if err != nil {
		if !opts.BestEffort || !syncerr.IsRecoverable(err) {
			return Segment{}, "", err
		}
		s.Logger.Warn("tts fetch failed, substituting silence", "cue", cue.Index, "cause", err)
		duration := (cue.End - cue.Start).Seconds()
		silent := audio.Silence(duration, opts.SampleRate, 1)
		return Segment{Index: cue.Index, Cue: cue, Buffer: silent, Substituted: true},
			fmt.Sprintf("cue %d: tts failed, substituted silence: %v", cue.Index, err), nil
	}

	mono := entry.Buffer.ToMono()
	rawMP3 := entry.RawMP3
	if mono.SampleRate != opts.SampleRate {
		ratio := float64(opts.SampleRate) / float64(mono.SampleRate)
		resampled, err := tempo.Stretch(mono, ratio, tempo.Linear)
		if err != nil {
			return Segment{}, "", err
		}
		mono = audio.New(resampled.Samples, opts.SampleRate, 1)
		rawMP3 = nil
	}
	if entry.Buffer.Channels != 1 {
		rawMP3 = nil
	}
	return Segment{Index: cue.Index, Cue: cue, Buffer: mono, RawMP3: rawMP3}, "", nil
}

// stretchAll fits each segment's audio to its cue window's duration, using
// the adaptive silence-preserving stretch when PreservePauses is set.
func (s *Synchronizer) stretchAll(segments []Segment, opts config.Options, tracker *progress.ChildTracker) ([]string, error) {
	var warnings []string
	silenceOpts := audio.DefaultSilenceOptions()

	for i := range segments {
		target := (segments[i].Cue.End - segments[i].Cue.Start).Seconds()
		framesBefore := segments[i].Buffer.FrameCount()

		var result tempo.FitResult
		var err error
		if opts.PreservePauses {
			result, err = tempo.AdaptiveFit(segments[i].Buffer, target, opts.TempoAlgorithm, silenceOpts)
		} else {
			result, err = tempo.FitToDuration(segments[i].Buffer, target, opts.TempoAlgorithm)
		}
		if err != nil {
			return warnings, err
		}
		// Both fits hand back the input samples untouched whenever the frame
		// count comes out unchanged, so only a length change invalidates RawMP3.
		if result.Buffer.FrameCount() != framesBefore {
			segments[i].RawMP3 = nil
		}
		segments[i].Buffer = result.Buffer
		for _, w := range result.Warnings {
			warnings = append(warnings, fmt.Sprintf("cue %d: tempo ratio clamped %.3f -> %.3f", segments[i].Cue.Index, w.Requested, w.Applied))
		}
		tracker.Update(float32(i+1)/float32(len(segments))*100, "stretching")
	}
	return warnings, nil
}

// assemble places every segment's audio at its cue's start offset within a
// single canonical-rate mono track, filling gaps between cues (and before
// the first cue) with silence. A segment whose stretch ratio was clamped
// (see tempo.Clamp) can still overrun its cue's window; assemble caps each
// segment at the following cue's start frame so the overrun is truncated
// into silence rather than smearing into the next cue's own region, per
// spec §8 Scenario 5.
func (s *Synchronizer) assemble(segments []Segment, opts config.Options) (audio.Buffer, error) {
	if len(segments) == 0 {
		return audio.Buffer{}, syncerr.New(syncerr.ErrAssembly, "sync", "assemble").WithContext("reason", "no segments")
	}
	sampleRate := opts.SampleRate

	starts := make([]int, len(segments))
	caps := make([]int, len(segments))
	totalFrames := 0
	for i, seg := range segments {
		startFrame := int(seg.Cue.Start.Seconds() * float64(sampleRate))
		targetFrames := int((seg.Cue.End - seg.Cue.Start).Seconds() * float64(sampleRate))
		capFrames := seg.Buffer.FrameCount()
		if targetFrames < capFrames {
			capFrames = targetFrames
		}
		if i+1 < len(segments) {
			nextStart := int(segments[i+1].Cue.Start.Seconds() * float64(sampleRate))
			if gapCap := nextStart - startFrame; gapCap < capFrames {
				capFrames = gapCap
			}
		}
		if capFrames < 0 {
			capFrames = 0
		}
		starts[i] = startFrame
		caps[i] = capFrames
		if end := startFrame + capFrames; end > totalFrames {
			totalFrames = end
		}
	}

	track := audio.New(make([]float32, totalFrames), sampleRate, 1)

	for i, seg := range segments {
		startFrame, capFrames := starts[i], caps[i]
		trimmed := seg.Buffer.Trim(capFrames)
		end := startFrame + trimmed.FrameCount()
		if end > len(track.Samples) {
			track = track.Pad(end - len(track.Samples))
		}
		copy(track.Samples[startFrame:end], trimmed.Samples)
	}
	return track, nil
}
