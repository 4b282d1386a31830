package encode

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/region23/tts-sync/internal/audio"
	"github.com/region23/tts-sync/internal/syncerr"
)

// ffmpegTimeout bounds a single conversion invocation, mirroring the
// teacher's TimeoutExecutor pattern of wrapping external subprocess calls in
// a context deadline rather than letting them hang indefinitely.
const ffmpegTimeout = 2 * time.Minute

// Save writes b to path in the container named by format. "wav" is written
// directly; any other format goes through an intermediate WAV file and an
// ffmpeg subprocess conversion.
func Save(ctx context.Context, path string, b audio.Buffer, format string) error {
	if format == "wav" {
		return WriteWAV(path, b)
	}

	tmp, err := os.CreateTemp("", "tts-sync-*.wav")
	if err != nil {
		return fmt.Errorf("create temp wav: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := WriteWAV(tmpPath, b); err != nil {
		return err
	}
	return convertWithFFmpeg(ctx, tmpPath, path, format)
}

// SaveRawMP3 writes raw provider MP3 bytes directly to path, bypassing WAV
// decode and ffmpeg re-encoding entirely. Callers must only pass bytes that
// are still known to match the audio the caller would otherwise have
// rendered (see sync.Result.RawMP3).
func SaveRawMP3(path string, raw []byte) error {
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return syncerr.New(syncerr.ErrIo, "encode", "save-raw-mp3").WithContext("cause", err.Error())
	}
	return nil
}

func convertWithFFmpeg(ctx context.Context, inPath, outPath, format string) error {
	ctx, cancel := context.WithTimeout(ctx, ffmpegTimeout)
	defer cancel()

	args := []string{"-y", "-i", inPath, "-f", format, outPath}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return syncerr.New(syncerr.ErrIo, "encode", "ffmpeg").
			WithContext("format", format).
			WithContext("output", string(output))
	}
	return nil
}
