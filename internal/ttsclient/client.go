// Package ttsclient implements the TTS Fetcher: a client for an
// OpenAI-compatible text-to-speech HTTP endpoint with a content-addressed
// fingerprint cache, single-flight de-duplication, and retry with
// exponential backoff.
//
// Grounded on original_source/src/tts/openai.rs's OpenAiTts client (request
// shape, voice/model/format enums, endpoint) and the corpus's mutex-guarded
// engine idiom (engines.FallbackEngine's failure counting and RWMutex use).
package ttsclient

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/region23/tts-sync/internal/audio"
	"github.com/region23/tts-sync/internal/syncerr"
	"github.com/region23/tts-sync/internal/ttscache"
)

// Voice enumerates the OpenAI-compatible TTS voices, per
// original_source/src/tts/openai.rs's OpenAiVoice.
type Voice string

const (
	VoiceAlloy   Voice = "alloy"
	VoiceEcho    Voice = "echo"
	VoiceFable   Voice = "fable"
	VoiceOnyx    Voice = "onyx"
	VoiceNova    Voice = "nova"
	VoiceShimmer Voice = "shimmer"
)

// ResponseFormat enumerates the audio encodings the remote endpoint may
// return.
type ResponseFormat string

const (
	FormatMP3  ResponseFormat = "mp3"
	FormatOpus ResponseFormat = "opus"
	FormatWAV  ResponseFormat = "wav"
	FormatFLAC ResponseFormat = "flac"
)

// Request describes a single synthesis call.
type Request struct {
	Text               string
	Voice              Voice
	Model              string
	Format             ResponseFormat
	RequestedSampleRate int
}

func (r Request) fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%d", ttscache.NormalizeKeyText(r.Text), r.Voice, r.Model, r.Format, r.RequestedSampleRate)
	return hex.EncodeToString(h.Sum(nil))
}

// CacheEntry is a decoded synthesis result kept in the fingerprint cache.
type CacheEntry struct {
	Buffer  audio.Buffer
	RawMP3  []byte // present only when Format == FormatMP3, for direct passthrough
}

// RetryPolicy configures the exponential backoff applied to retryable HTTP
// failures (429 and 5xx), per SPEC_FULL.md §4.2.
type RetryPolicy struct {
	BaseDelay  time.Duration
	Factor     float64
	MaxAttempts int
	JitterFrac float64
}

// DefaultRetryPolicy matches SPEC_FULL.md §4.2: base 500ms, factor 2, up to 5
// attempts, ±20% jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{BaseDelay: 500 * time.Millisecond, Factor: 2, MaxAttempts: 5, JitterFrac: 0.2}
}

// Client fetches synthesized speech from an OpenAI-compatible endpoint,
// caching decoded results by request fingerprint and collapsing concurrent
// identical requests via singleflight.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	retry      RetryPolicy
	logger     *log.Logger

	mu    sync.Mutex
	cache map[string]CacheEntry

	group singleflight.Group

	// Disk, when set, backs the in-memory cache with a persistent
	// gzip-compressed store so repeated runs against the same captions skip
	// the network entirely.
	Disk *ttscache.Cache
}

// WithDiskCache attaches a persistent on-disk cache to the client.
func (c *Client) WithDiskCache(disk *ttscache.Cache) *Client {
	c.Disk = disk
	return c
}

// NewClient constructs a Client against endpoint, authenticating with apiKey.
func NewClient(endpoint, apiKey string, httpClient *http.Client, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		httpClient: httpClient,
		endpoint:   endpoint,
		apiKey:     apiKey,
		retry:      DefaultRetryPolicy(),
		logger:     logger,
		cache:      make(map[string]CacheEntry),
	}
}

// Fetch synthesizes req, serving from cache when the fingerprint has already
// been fetched, and de-duplicating concurrent identical requests so only one
// HTTP call is ever in flight per fingerprint.
func (c *Client) Fetch(ctx context.Context, req Request) (CacheEntry, error) {
	key := req.fingerprint()

	c.mu.Lock()
	if entry, ok := c.cache[key]; ok {
		c.mu.Unlock()
		c.logger.Debug("tts cache hit", "fingerprint", key[:12])
		return entry, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		entry, err := c.fetchAndDecode(ctx, req)
		if err != nil {
			return CacheEntry{}, err
		}
		c.mu.Lock()
		c.cache[key] = entry
		c.mu.Unlock()
		return entry, nil
	})
	if err != nil {
		return CacheEntry{}, err
	}
	return v.(CacheEntry), nil
}

func (c *Client) fetchAndDecode(ctx context.Context, req Request) (CacheEntry, error) {
	key := req.fingerprint()

	var raw []byte
	if c.Disk != nil {
		if diskRaw, ok, err := c.Disk.Get(key); err == nil && ok {
			raw = diskRaw
			c.logger.Debug("tts disk cache hit", "fingerprint", key[:12])
		}
	}

	if raw == nil {
		fetched, err := c.fetchWithRetry(ctx, req)
		if err != nil {
			return CacheEntry{}, err
		}
		raw = fetched
		if c.Disk != nil {
			if err := c.Disk.Put(key, raw); err != nil {
				c.logger.Warn("tts disk cache write failed", "fingerprint", key[:12], "cause", err)
			}
		}
	}

	buf, err := Decode(raw, req.Format)
	if err != nil {
		return CacheEntry{}, syncerr.New(syncerr.ErrTtsDecode, "ttsclient", "decode").
			WithContext("format", string(req.Format)).
			WithContext("cause", err.Error())
	}
	if buf.FrameCount() == 0 {
		return CacheEntry{}, syncerr.New(syncerr.ErrTtsEmpty, "ttsclient", "decode")
	}
	warnIfSuspiciouslyShort(c.logger, req.Text, buf.Duration())

	entry := CacheEntry{Buffer: buf}
	if req.Format == FormatMP3 {
		entry.RawMP3 = raw
	}
	return entry, nil
}

// minSpeechCharsPerSecond is a generous upper bound on how fast a TTS voice
// speaks; audio shorter than half the duration this implies for the input
// text is very likely truncated or empty synthesis, not just a fast voice.
// Grounded on original_source's validate_tts_data length sanity check.
const minSpeechCharsPerSecond = 25.0

func warnIfSuspiciouslyShort(logger *log.Logger, text string, duration float64) {
	chars := len([]rune(strings.TrimSpace(text)))
	if chars == 0 {
		return
	}
	expectedMin := float64(chars) / minSpeechCharsPerSecond
	if duration < expectedMin*0.5 {
		logger.Warn("synthesized audio suspiciously short for input text",
			"text_chars", chars,
			"duration_s", fmt.Sprintf("%.2f", duration),
			"expected_min_s", fmt.Sprintf("%.2f", expectedMin))
	}
}

type ttsWireRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// fetchWithRetry performs the HTTP POST, retrying 429/5xx responses with
// exponential backoff and jitter, terminal on any other 4xx.
func (c *Client) fetchWithRetry(ctx context.Context, req Request) ([]byte, error) {
	var lastErr error
	delay := c.retry.BaseDelay

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		body, status, err := c.doRequest(ctx, req)
		if err == nil {
			return body, nil
		}
		lastErr = err

		httpErr, ok := err.(*syncerr.TtsHTTP)
		if !ok {
			return nil, err
		}
		retryable := status == http.StatusTooManyRequests || status >= 500
		if !retryable {
			return nil, httpErr
		}
		if attempt == c.retry.MaxAttempts {
			break
		}

		jitter := 1 + (rand.Float64()*2-1)*c.retry.JitterFrac
		wait := time.Duration(float64(delay) * jitter)
		c.logger.Warn("tts request failed, retrying", "attempt", attempt, "status", status, "wait", wait)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		delay = time.Duration(float64(delay) * c.retry.Factor)
	}
	return nil, lastErr
}

func (c *Client) doRequest(ctx context.Context, req Request) ([]byte, int, error) {
	wire := ttsWireRequest{
		Model:          req.Model,
		Input:          req.Text,
		Voice:          string(req.Voice),
		ResponseFormat: string(req.Format),
	}
	payload, err := json.Marshal(wire)
	if err != nil {
		return nil, 0, syncerr.New(syncerr.ErrTtsHTTP, "ttsclient", "marshal").WithContext("cause", err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, syncerr.New(syncerr.ErrTtsHTTP, "ttsclient", "build-request").WithContext("cause", err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, syncerr.New(syncerr.ErrTtsHTTP, "ttsclient", "do").WithContext("cause", err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, syncerr.New(syncerr.ErrTtsHTTP, "ttsclient", "read-body").WithContext("cause", err.Error())
	}

	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, &syncerr.TtsHTTP{Status: resp.StatusCode, Body: string(body)}
	}
	return body, resp.StatusCode, nil
}
