package scheduler

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"jobwatch/pkg/engine"
	"jobwatch/pkg/model"
	"jobwatch/pkg/store"
)

func TestComputeNextScrapeAtHonoursMinDelay(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	last := now.Add(-10 * time.Hour)

	next := ComputeNextScrapeAt(r, &last, now, time.Hour, 0, 5*time.Minute)
	if next.Before(now.Add(5 * time.Minute)) {
		t.Fatalf("next %v should never be earlier than now+minDelay", next)
	}
}

func TestComputeNextScrapeAtFirstRunIsSoon(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	next := ComputeNextScrapeAt(r, nil, now, 0, 0, 0)
	if next.Before(now) || next.After(now.Add(time.Minute)) {
		t.Fatalf("expected a near-immediate first run, got %v (now=%v)", next, now)
	}
}

type fakeScraper struct {
	jobs []model.Job
	err  error
}

func (f *fakeScraper) Scrape(ctx context.Context, websiteURL string, timeout time.Duration, maxPages int, sameHostOnly bool) ([]model.Job, engine.Meta, error) {
	return f.jobs, engine.Meta{}, f.err
}

func TestRunOnceScrapesDueBoardAndPersists(t *testing.T) {
	dir := t.TempDir()
	s := store.New(dir, nil)
	board := model.NewJobBoard("Acme", "", "https://acme.example/careers")
	if err := s.Save(board); err != nil {
		t.Fatalf("Save: %v", err)
	}

	scraper := &fakeScraper{jobs: []model.Job{{Title: "Engineer", Link: "https://acme.example/jobs/1"}}}
	cfg := DefaultWorkerConfig()
	cfg.Once = true

	w := New(s, scraper, cfg, nil)
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	reloaded, err := s.Load(s.PathFor(board.Title))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(reloaded.Content) != 1 {
		t.Fatalf("expected 1 job persisted, got %d", len(reloaded.Content))
	}
	if reloaded.LastScraped == nil {
		t.Fatal("expected LastScraped to be set")
	}
	if reloaded.NextScrapeAt == nil {
		t.Fatal("expected NextScrapeAt to be scheduled")
	}
}

func TestRunOnceSkipsPersistenceInDryRun(t *testing.T) {
	dir := t.TempDir()
	s := store.New(dir, nil)
	board := model.NewJobBoard("Acme", "", "https://acme.example/careers")
	if err := s.Save(board); err != nil {
		t.Fatalf("Save: %v", err)
	}

	scraper := &fakeScraper{jobs: []model.Job{{Title: "Engineer", Link: "https://acme.example/jobs/1"}}}
	cfg := DefaultWorkerConfig()
	cfg.Once = true
	cfg.DryRun = true

	w := New(s, scraper, cfg, nil)
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	reloaded, err := s.Load(s.PathFor(board.Title))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(reloaded.Content) != 0 {
		t.Fatalf("dry run should not persist content, got %d jobs", len(reloaded.Content))
	}
}

func TestRunOnceRecordsFailureAndSchedulesBackoff(t *testing.T) {
	dir := t.TempDir()
	s := store.New(dir, nil)
	board := model.NewJobBoard("Acme", "", "https://acme.example/careers")
	if err := s.Save(board); err != nil {
		t.Fatalf("Save: %v", err)
	}

	scraper := &fakeScraper{err: engine.NewScrapeError(engine.ErrorNetwork, errors.New("boom"))}
	cfg := DefaultWorkerConfig()
	cfg.Once = true

	w := New(s, scraper, cfg, nil)
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	reloaded, err := s.Load(s.PathFor(board.Title))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(reloaded.Attempts) != 1 || reloaded.Attempts[0].OK {
		t.Fatalf("expected one failed attempt recorded, got %+v", reloaded.Attempts)
	}
	if reloaded.Attempts[0].ErrorKind != string(engine.ErrorNetwork) {
		t.Fatalf("expected error kind %q, got %q", engine.ErrorNetwork, reloaded.Attempts[0].ErrorKind)
	}
}

func TestRunReturnsImmediatelyWithNoPages(t *testing.T) {
	dir := t.TempDir()
	s := store.New(dir, nil)
	cfg := DefaultWorkerConfig()
	cfg.Once = true

	w := New(s, &fakeScraper{}, cfg, nil)
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
