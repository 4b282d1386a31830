package encode

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/region23/tts-sync/internal/audio"
	"github.com/region23/tts-sync/internal/ttsclient"
)

func TestWriteWAVRoundTripsThroughDecoder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.wav")

	buf := audio.New([]float32{0, 0.5, -0.5, 0.25}, 8000, 1)
	if err := WriteWAV(path, buf); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	decoded, err := ttsclient.Decode(raw, ttsclient.FormatWAV)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.SampleRate != 8000 || decoded.Channels != 1 {
		t.Fatalf("unexpected format: %+v", decoded)
	}
	if len(decoded.Samples) != len(buf.Samples) {
		t.Fatalf("len(Samples) = %d, want %d", len(decoded.Samples), len(buf.Samples))
	}
}
