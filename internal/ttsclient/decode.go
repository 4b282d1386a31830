package ttsclient

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"

	"github.com/region23/tts-sync/internal/audio"
)

// Decode converts raw provider audio bytes in the given format into an Audio
// Buffer. MP3 uses hajimehoshi/go-mp3 (grounded on iabetor-pibuddy's go.mod),
// and WAV is read directly since no ecosystem WAV decoder appears anywhere in
// the corpus (justified stdlib, see DESIGN.md). The opus and flac formats are
// handed to jfreymuth/oggvorbis, which reads only Ogg Vorbis streams, so Opus
// or FLAC audio returns a decode error.
func Decode(raw []byte, format ResponseFormat) (audio.Buffer, error) {
	switch format {
	case FormatMP3:
		return decodeMP3(raw)
	case FormatWAV:
		return decodeWAV(raw)
	case FormatOpus, FormatFLAC:
		return decodeOgg(raw)
	default:
		return audio.Buffer{}, fmt.Errorf("unsupported response format %q", format)
	}
}

func decodeMP3(raw []byte) (audio.Buffer, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(raw))
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("mp3 decode: %w", err)
	}
	pcm, err := readAllPCM16(dec)
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("mp3 decode: %w", err)
	}
	return audio.New(int16ToFloat32(pcm), dec.SampleRate(), 2), nil
}

func decodeOgg(raw []byte) (audio.Buffer, error) {
	reader, err := oggvorbis.NewReader(bytes.NewReader(raw))
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("ogg decode: %w", err)
	}
	var samples []float32
	buf := make([]float32, 4096)
	for {
		n, err := reader.Read(buf)
		samples = append(samples, buf[:n]...)
		if err != nil {
			break
		}
	}
	return audio.New(samples, reader.SampleRate(), reader.Channels()), nil
}

// decodeWAV implements the minimal WAV/RIFF parsing this pipeline needs:
// PCM fmt chunk plus data chunk, 16-bit or 32-bit float samples.
func decodeWAV(raw []byte) (audio.Buffer, error) {
	if len(raw) < 44 || string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		return audio.Buffer{}, fmt.Errorf("not a RIFF/WAVE stream")
	}

	var (
		channels      int
		sampleRate    int
		bitsPerSample int
		audioFormat   uint16
		dataOffset    int
		dataLen       int
	)

	pos := 12
	for pos+8 <= len(raw) {
		chunkID := string(raw[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(raw[pos+4 : pos+8]))
		body := pos + 8

		switch chunkID {
		case "fmt ":
			if body+16 > len(raw) {
				return audio.Buffer{}, fmt.Errorf("truncated fmt chunk")
			}
			audioFormat = binary.LittleEndian.Uint16(raw[body : body+2])
			channels = int(binary.LittleEndian.Uint16(raw[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(raw[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(raw[body+14 : body+16]))
		case "data":
			dataOffset = body
			dataLen = chunkSize
		}

		pos = body + chunkSize
		if chunkSize%2 == 1 {
			pos++
		}
	}

	if channels == 0 || sampleRate == 0 || dataOffset == 0 {
		return audio.Buffer{}, fmt.Errorf("missing fmt or data chunk")
	}
	if dataOffset+dataLen > len(raw) {
		dataLen = len(raw) - dataOffset
	}
	data := raw[dataOffset : dataOffset+dataLen]

	const wavFormatPCM = 1
	const wavFormatIEEEFloat = 3

	var samples []float32
	switch {
	case audioFormat == wavFormatPCM && bitsPerSample == 16:
		samples = int16ToFloat32(bytesToInt16(data))
	case audioFormat == wavFormatIEEEFloat && bitsPerSample == 32:
		samples = bytesToFloat32(data)
	default:
		return audio.Buffer{}, fmt.Errorf("unsupported wav encoding: format=%d bits=%d", audioFormat, bitsPerSample)
	}

	return audio.New(samples, sampleRate, channels), nil
}

func bytesToInt16(data []byte) []int16 {
	n := len(data) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
	}
	return out
}

func bytesToFloat32(data []byte) []float32 {
	n := len(data) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		out[i] = math.Float32frombits(bits)
	}
	return out
}

func int16ToFloat32(pcm []int16) []float32 {
	out := make([]float32, len(pcm))
	for i, s := range pcm {
		out[i] = float32(s) / 32768.0
	}
	return out
}

// readAllPCM16 drains a go-mp3 decoder, which produces interleaved 16-bit
// little-endian stereo PCM over its io.Reader interface.
func readAllPCM16(dec *mp3.Decoder) ([]int16, error) {
	buf := make([]byte, 4096)
	var raw []byte
	for {
		n, err := dec.Read(buf)
		raw = append(raw, buf[:n]...)
		if err != nil {
			break
		}
	}
	return bytesToInt16(raw), nil
}
