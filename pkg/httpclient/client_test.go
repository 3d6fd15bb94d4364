package httpclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
)

func TestFetchTextDecodesBrotli(t *testing.T) {
	want := "<html>hello</html>"
	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	bw.Write([]byte(want))
	bw.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "br")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	c := New(nil, 5*time.Second, 100, 10)
	got, err := c.FetchText(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("FetchText: %v", err)
	}
	if got != want {
		t.Fatalf("FetchText = %q, want %q", got, want)
	}
}

func TestFetchTextDecodesGzip(t *testing.T) {
	want := "<html>gzipped</html>"
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	gw.Write([]byte(want))
	gw.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	c := New(nil, 5*time.Second, 100, 10)
	got, err := c.FetchText(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("FetchText: %v", err)
	}
	if got != want {
		t.Fatalf("FetchText = %q, want %q", got, want)
	}
}

func TestFetchTextRetriesOnPickyHostStatus(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte("ok on retry"))
	}))
	defer srv.Close()

	c := New(nil, 5*time.Second, 100, 10)
	got, err := c.FetchText(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("FetchText: %v", err)
	}
	if got != "ok on retry" {
		t.Fatalf("FetchText = %q, want %q", got, "ok on retry")
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestFetchTextNonRetryableStatusReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(nil, 5*time.Second, 100, 10)
	if _, err := c.FetchText(context.Background(), srv.URL, nil); err == nil {
		t.Fatal("expected error for 500 status")
	}
}
