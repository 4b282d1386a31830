package ttsclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/region23/tts-sync/internal/ttscache"
)

func testRequest() Request {
	return Request{Text: "hello world", Voice: VoiceAlloy, Model: "tts-1", Format: FormatWAV, RequestedSampleRate: 8000}
}

func TestFetchCachesByFingerprint(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write(buildWAV(t, 8000, 1, []int16{100, 200, 300}))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", srv.Client(), nil)
	req := testRequest()

	if _, err := c.Fetch(context.Background(), req); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if _, err := c.Fetch(context.Background(), req); err != nil {
		t.Fatalf("Fetch (cached): %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("server calls = %d, want 1 (cache should suppress second call)", got)
	}
}

func TestFetchRetriesOn503ThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(buildWAV(t, 8000, 1, []int16{1, 2, 3}))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", srv.Client(), nil)
	c.retry.BaseDelay = 0

	if _, err := c.Fetch(context.Background(), testRequest()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("server calls = %d, want 2", got)
	}
}

func TestFetchPersistsToDiskCacheAcrossClients(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write(buildWAV(t, 8000, 1, []int16{7, 8, 9}))
	}))
	defer srv.Close()

	disk, err := ttscache.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("ttscache.Open: %v", err)
	}

	req := testRequest()

	c1 := NewClient(srv.URL, "test-key", srv.Client(), nil).WithDiskCache(disk)
	if _, err := c1.Fetch(context.Background(), req); err != nil {
		t.Fatalf("Fetch (client 1): %v", err)
	}

	c2 := NewClient(srv.URL, "test-key", srv.Client(), nil).WithDiskCache(disk)
	if _, err := c2.Fetch(context.Background(), req); err != nil {
		t.Fatalf("Fetch (client 2): %v", err)
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("server calls = %d, want 1 (second client should hit disk cache)", got)
	}
}

func TestFetchTerminalOn400(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad voice"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", srv.Client(), nil)
	c.retry.BaseDelay = 0

	if _, err := c.Fetch(context.Background(), testRequest()); err == nil {
		t.Fatal("expected terminal error on 400")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("server calls = %d, want 1 (no retry on 4xx)", got)
	}
}
