package engine

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"jobwatch/pkg/ats"
	"jobwatch/pkg/httpclient"
	"jobwatch/pkg/renderer"
)

func newTestEngine() *Engine {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(
		httpclient.New(log, 5*time.Second, 100, 10),
		renderer.New(log),
		ats.NewRegistry(),
		log,
	)
}

func TestScrapeGenericFollowsPaginationAndDedupes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			w.Write([]byte(`<html><body>
				<a href="/jobs/detail/222">Second Role</a>
			</body></html>`))
			return
		}
		w.Write([]byte(`<html><body>
			<a href="/jobs/detail/111">First Role</a>
			<a rel="next" href="/jobs?page=2">Next</a>
		</body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e := newTestEngine()
	jobs, meta, err := e.Scrape(context.Background(), srv.URL+"/jobs", 5*time.Second, 5, true)
	_ = meta
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs across both pages, got %d: %+v", len(jobs), jobs)
	}
}

func TestScrapeGenericStopsWithoutNextLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><a href="/jobs/detail/999">Only Role</a></body></html>`))
	}))
	defer srv.Close()

	e := newTestEngine()
	jobs, meta, err := e.Scrape(context.Background(), srv.URL+"/jobs", 5*time.Second, 5, true)
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	if meta.AttemptedPages != 1 {
		t.Fatalf("expected 1 attempted page, got %d", meta.AttemptedPages)
	}
}

func TestScrapeGenericHTTPErrorWithNoJobsPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	e := newTestEngine()
	jobs, _, err := e.Scrape(context.Background(), srv.URL+"/jobs", 5*time.Second, 5, true)
	if err == nil {
		t.Fatal("expected error for a wholly failed scrape")
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no jobs, got %d", len(jobs))
	}
}
