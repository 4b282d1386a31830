// Package encode writes a finished Audio Buffer Model to disk: a direct
// RIFF/WAV writer, and MP3/OGG encoding by shelling out to ffmpeg, grounded
// on original_source/src/sync/core.rs's write_wav_file and
// convert_with_ffmpeg.
package encode

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/region23/tts-sync/internal/audio"
)

// WriteWAV writes b to path as 16-bit PCM RIFF/WAVE, the canonical
// intermediate format every other output encoding is derived from.
func WriteWAV(path string, b audio.Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	dataLen := len(b.Samples) * 2
	byteRate := b.SampleRate * b.Channels * 2
	blockAlign := b.Channels * 2

	w.WriteString("RIFF")
	writeU32(w, uint32(36+dataLen))
	w.WriteString("WAVE")
	w.WriteString("fmt ")
	writeU32(w, 16)
	writeU16(w, 1) // PCM
	writeU16(w, uint16(b.Channels))
	writeU32(w, uint32(b.SampleRate))
	writeU32(w, uint32(byteRate))
	writeU16(w, uint16(blockAlign))
	writeU16(w, 16)
	w.WriteString("data")
	writeU32(w, uint32(dataLen))

	for _, s := range b.Samples {
		writeU16(w, uint16(int16(clampToInt16(s))))
	}

	return w.Flush()
}

func clampToInt16(s float32) int32 {
	v := float64(s) * 32767
	if v > 32767 {
		v = 32767
	}
	if v < -32768 {
		v = -32768
	}
	return int32(math.Round(v))
}

func writeU32(w *bufio.Writer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

func writeU16(w *bufio.Writer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.Write(b[:])
}
