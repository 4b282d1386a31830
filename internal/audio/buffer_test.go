package audio

import "testing"

func TestDurationAndFrameCount(t *testing.T) {
	b := New(make([]float32, 200), 100, 2)
	if b.FrameCount() != 100 {
		t.Fatalf("FrameCount = %d, want 100", b.FrameCount())
	}
	if got, want := b.Duration(), 1.0; got != want {
		t.Fatalf("Duration = %v, want %v", got, want)
	}
}

func TestRMSAndPeak(t *testing.T) {
	samples := []float32{0.5, -0.5, 0.5, -0.5}
	if got := RMS(samples); got < 0.49 || got > 0.51 {
		t.Fatalf("RMS = %v, want ~0.5", got)
	}
	if got := Peak(samples); got != 0.5 {
		t.Fatalf("Peak = %v, want 0.5", got)
	}
}

func TestDBFSRoundtrip(t *testing.T) {
	db := DBFS(0.5)
	if got := LinearFromDB(db); got < 0.49 || got > 0.51 {
		t.Fatalf("LinearFromDB(DBFS(0.5)) = %v, want ~0.5", got)
	}
}

func TestToMonoAverages(t *testing.T) {
	stereo := New([]float32{1, -1, 0.5, -0.5}, 100, 2)
	mono := stereo.ToMono()
	if mono.Channels != 1 {
		t.Fatalf("Channels = %d, want 1", mono.Channels)
	}
	if len(mono.Samples) != 2 || mono.Samples[0] != 0 || mono.Samples[1] != 0 {
		t.Fatalf("unexpected mono samples: %v", mono.Samples)
	}
}

func TestFitToFramesPadsAndTrims(t *testing.T) {
	b := New([]float32{1, 2, 3, 4}, 100, 1)
	padded := b.FitToFrames(6)
	if padded.FrameCount() != 6 {
		t.Fatalf("padded FrameCount = %d, want 6", padded.FrameCount())
	}
	trimmed := b.FitToFrames(2)
	if trimmed.FrameCount() != 2 {
		t.Fatalf("trimmed FrameCount = %d, want 2", trimmed.FrameCount())
	}
}

func TestMixRejectsMismatchedFormat(t *testing.T) {
	a := New([]float32{0.1}, 100, 1)
	b := New([]float32{0.1}, 200, 1)
	if _, err := Mix(a, b); err == nil {
		t.Fatal("expected error mixing mismatched sample rates")
	}
}

func TestMixClamps(t *testing.T) {
	a := New([]float32{0.8}, 100, 1)
	b := New([]float32{0.8}, 100, 1)
	mixed, err := Mix(a, b)
	if err != nil {
		t.Fatalf("Mix: %v", err)
	}
	if mixed.Samples[0] != 1.0 {
		t.Fatalf("Samples[0] = %v, want clamped 1.0", mixed.Samples[0])
	}
}

func TestConcat(t *testing.T) {
	a := New([]float32{1, 2}, 100, 1)
	b := New([]float32{3, 4}, 100, 1)
	c, err := Concat(a, b)
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	want := []float32{1, 2, 3, 4}
	for i, v := range want {
		if c.Samples[i] != v {
			t.Fatalf("Samples[%d] = %v, want %v", i, c.Samples[i], v)
		}
	}
}

func TestNormalizePeak(t *testing.T) {
	samples := []float32{0.25, -0.1}
	NormalizePeak(samples, 0.5)
	if got := Peak(samples); got < 0.49 || got > 0.51 {
		t.Fatalf("Peak after normalize = %v, want ~0.5", got)
	}
}

func TestSilenceRoundtrip(t *testing.T) {
	sr := 1000
	total := sr * 2 // 2 seconds
	samples := make([]float32, total)
	for i := sr / 2; i < sr; i++ {
		samples[i] = 0 // explicit silent window in the middle
	}
	// fill rest with loud signal to isolate the silent region
	for i := 0; i < total; i++ {
		if i < sr/2 || i >= sr {
			samples[i] = 0.9
		}
	}
	buf := New(samples, sr, 1)
	spans := DetectSilences(buf, DefaultSilenceOptions())
	if len(spans) != 1 {
		t.Fatalf("len(spans) = %d, want 1: %v", len(spans), spans)
	}
	voiced := VoicedSpans(spans, total)
	if len(voiced) != 2 {
		t.Fatalf("len(voiced) = %d, want 2: %v", len(voiced), voiced)
	}
}

func TestSilenceDiscardsShortSpans(t *testing.T) {
	sr := 1000
	samples := make([]float32, sr)
	for i := range samples {
		samples[i] = 0.9
	}
	// a single 20ms silent window, below the 80ms MinSpanMs default
	for i := 100; i < 120; i++ {
		samples[i] = 0
	}
	buf := New(samples, sr, 1)
	spans := DetectSilences(buf, DefaultSilenceOptions())
	if len(spans) != 0 {
		t.Fatalf("len(spans) = %d, want 0 (span below MinSpanMs)", len(spans))
	}
}
