package sync

import (
	"context"

	"github.com/region23/tts-sync/internal/ttsclient"
)

// Fetcher is the subset of ttsclient.Client the Synchronizer depends on,
// narrowed to an interface so tests can substitute a fake TTS backend.
type Fetcher interface {
	Fetch(ctx context.Context, req ttsclient.Request) (ttsclient.CacheEntry, error)
}
