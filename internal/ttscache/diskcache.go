// Package ttscache implements an on-disk, content-addressed cache for
// decoded TTS segments, backing internal/ttsclient.Client's in-memory
// fingerprint cache across process runs.
//
// Grounded on the DOMAIN STACK wiring in SPEC_FULL.md: cache directory
// resolution via mitchellh/go-homedir, a lock file held via gofrs/flock while
// an entry is written (the same library five82-spindle uses to guard a shared
// on-disk index),
// gzip compression of cached payloads via klauspost/compress, byte-size
// logging via dustin/go-humanize, per-run correlation IDs via google/uuid,
// and NFC text normalization via golang.org/x/text so cache keys are stable
// across visually-identical but differently-encoded caption text.
package ttscache

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
	homedir "github.com/mitchellh/go-homedir"
	"golang.org/x/text/unicode/norm"

	klauspostgzip "github.com/klauspost/compress/gzip"

	"github.com/charmbracelet/log"
)

// RunID is a per-process correlation identifier attached to every cache log
// line, so concurrent runs sharing one cache directory can be told apart.
var RunID = uuid.New().String()

// Cache is a directory of gzip-compressed, fingerprint-named payload files
// plus a lock file guarding concurrent writers.
type Cache struct {
	dir    string
	lock   *flock.Flock
	logger *log.Logger
}

// DefaultDir resolves the cache directory under the user's home directory,
// creating it if necessary.
func DefaultDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".cache", "tts-sync")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}
	return dir, nil
}

// Open opens (creating if necessary) a Cache rooted at dir.
func Open(dir string, logger *log.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Cache{
		dir:    dir,
		lock:   flock.New(filepath.Join(dir, ".lock")),
		logger: logger,
	}, nil
}

// NormalizeKeyText applies NFC normalization so cache keys built from
// caption text are stable regardless of the source track's Unicode
// composition.
func NormalizeKeyText(text string) string {
	return norm.NFC.String(text)
}

func (c *Cache) path(fingerprint string) string {
	return filepath.Join(c.dir, fingerprint+".gz")
}

// Get reads and decompresses the payload stored under fingerprint, reporting
// ok=false on a cache miss.
func (c *Cache) Get(fingerprint string) (data []byte, ok bool, err error) {
	f, err := os.Open(c.path(fingerprint))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	gz, err := klauspostgzip.NewReader(f)
	if err != nil {
		return nil, false, fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()

	data, err = io.ReadAll(gz)
	if err != nil {
		return nil, false, fmt.Errorf("read cached payload: %w", err)
	}
	c.logger.Debug("ttscache hit", "run", RunID[:8], "fingerprint", shortKey(fingerprint), "bytes", humanize.Bytes(uint64(len(data))))
	return data, true, nil
}

// shortKey returns at most the first 12 characters of fingerprint, for log
// fields.
func shortKey(fingerprint string) string {
	if len(fingerprint) <= 12 {
		return fingerprint
	}
	return fingerprint[:12]
}

// Put compresses and stores data under fingerprint, holding the cache's
// lock file for the duration of the write so concurrent processes sharing
// the same directory never observe a half-written entry.
func (c *Cache) Put(fingerprint string, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	locked, err := c.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("acquire cache lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("cache lock busy")
	}
	defer c.lock.Unlock()

	tmp := c.path(fingerprint) + ".tmp-" + hex.EncodeToString([]byte(RunID[:8]))
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create cache entry: %w", err)
	}

	gz := klauspostgzip.NewWriter(f)
	if _, err := gz.Write(data); err != nil {
		gz.Close()
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := gz.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("close gzip stream: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, c.path(fingerprint)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("finalize cache entry: %w", err)
	}

	c.logger.Debug("ttscache write", "run", RunID[:8], "fingerprint", shortKey(fingerprint), "bytes", humanize.Bytes(uint64(len(data))))
	return nil
}
