// Package scheduler runs the recurring board-scrape loop: load page
// documents, pick the ones due for a scrape, dispatch a bounded number of
// them concurrently, reconcile results into each board, and persist.
package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"jobwatch/pkg/engine"
	"jobwatch/pkg/model"
	"jobwatch/pkg/store"
)

// WorkerConfig tunes the scheduler's cadence and dispatch behaviour.
type WorkerConfig struct {
	// Base scrape cadence plus a symmetric jitter window.
	BaseFrequency time.Duration
	Jitter        time.Duration

	// Never schedule a next run earlier than this from "now".
	MinDelay time.Duration

	// Cadence used to schedule a retry after a failed attempt.
	ErrorBackoff time.Duration
	ErrorJitter  time.Duration

	// How many boards to scrape concurrently.
	Concurrency int

	// ScrapeTimeout bounds a single board's scrape attempt.
	ScrapeTimeout time.Duration
	// MaxPages bounds how many listing pages the generic loop will follow.
	MaxPages int
	// SameHostOnly restricts generic-loop pagination to the starting host.
	SameHostOnly bool

	// DryRun skips persistence; Once runs a single tick and returns.
	DryRun bool
	Once   bool
}

// DefaultWorkerConfig mirrors the original worker's tuning values.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		BaseFrequency: time.Hour,
		Jitter:        30 * time.Minute,
		MinDelay:      5 * time.Minute,
		ErrorBackoff:  20 * time.Minute,
		ErrorJitter:   5 * time.Minute,
		Concurrency:   3,
		ScrapeTimeout: 30 * time.Second,
		MaxPages:      5,
		SameHostOnly:  true,
	}
}

// Scraper is the subset of engine.Engine the scheduler depends on, so tests
// can substitute a fake.
type Scraper interface {
	Scrape(ctx context.Context, websiteURL string, timeout time.Duration, maxPages int, sameHostOnly bool) ([]model.Job, engine.Meta, error)
}

// Worker drives the scheduling loop against a page store and a scraper.
type Worker struct {
	Store   *store.Store
	Scraper Scraper
	Config  WorkerConfig
	Log     *logrus.Logger

	randMu sync.Mutex
	rand   *rand.Rand
}

// nextScrapeAt is the concurrency-safe entry point onto ComputeNextScrapeAt:
// math/rand.Rand is not safe for concurrent use, and scrapeOne runs inside
// per-board goroutines.
func (w *Worker) nextScrapeAt(lastScraped *time.Time, now time.Time, base, jitter, minDelay time.Duration) time.Time {
	w.randMu.Lock()
	defer w.randMu.Unlock()
	return ComputeNextScrapeAt(w.rand, lastScraped, now, base, jitter, minDelay)
}

func New(s *store.Store, scraper Scraper, cfg WorkerConfig, log *logrus.Logger) *Worker {
	if log == nil {
		log = logrus.New()
	}
	return &Worker{
		Store:   s,
		Scraper: scraper,
		Config:  cfg,
		Log:     log,
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func randSeconds(r *rand.Rand, span time.Duration) time.Duration {
	if span <= 0 {
		return 0
	}
	n := span.Seconds()
	return time.Duration((r.Float64()*2 - 1) * n * float64(time.Second))
}

// ComputeNextScrapeAt schedules the next attempt: (lastScraped or now) + base
// + U[-jitter, +jitter], never earlier than now + minDelay.
func ComputeNextScrapeAt(r *rand.Rand, lastScraped *time.Time, now time.Time, base, jitter, minDelay time.Duration) time.Time {
	t0 := now
	if lastScraped != nil {
		t0 = *lastScraped
	}
	candidate := t0.Add(base).Add(randSeconds(r, jitter))

	floor := now.Add(minDelay)
	if candidate.Before(floor) {
		candidate = floor.Add(time.Duration(r.Float64() * float64(30*time.Second)))
	}
	return candidate
}

func isDue(b *model.JobBoard, now time.Time) bool {
	return b.NextScrapeAt == nil || !b.NextScrapeAt.After(now)
}

// Run loads page documents and scrapes the due ones, respecting Concurrency,
// until Config.Once is set or ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		now := time.Now()
		pages, err := w.Store.LoadPages()
		if err != nil {
			return fmt.Errorf("scheduler: load pages: %w", err)
		}

		if len(pages) == 0 {
			if w.Config.Once {
				return nil
			}
			if !sleepCtx(ctx, time.Second) {
				return ctx.Err()
			}
			continue
		}

		// First-time pages run now, not a base-frequency away.
		for _, p := range pages {
			if p.Board.NextScrapeAt == nil && p.Board.LastScraped == nil {
				next := w.nextScrapeAt(nil, now, 0, 0, 0)
				p.Board.NextScrapeAt = &next
			}
		}

		due := make([]store.PageEntry, 0, len(pages))
		for _, p := range pages {
			if isDue(p.Board, now) {
				due = append(due, p)
			}
		}

		if len(due) > 0 {
			limit := due
			if max := w.Config.Concurrency * 2; max > 0 && len(limit) > max {
				limit = limit[:max]
			}
			w.dispatch(ctx, limit, now)
		}

		if w.Config.Once {
			return nil
		}
		if !sleepCtx(ctx, time.Second) {
			return ctx.Err()
		}
	}
}

func (w *Worker) dispatch(ctx context.Context, due []store.PageEntry, now time.Time) {
	concurrency := w.Config.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := semaphore.NewWeighted(int64(concurrency))

	results := make(chan store.PageEntry, len(due))
	launched := 0
	for _, p := range due {
		p := p
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		launched++
		go func() {
			defer sem.Release(1)
			w.scrapeOne(ctx, p, now)
			results <- p
		}()
	}

	for i := 0; i < launched; i++ {
		<-results
	}
}

func (w *Worker) scrapeOne(ctx context.Context, p store.PageEntry, now time.Time) {
	board := p.Board

	start := time.Now()
	jobs, meta, err := w.Scraper.Scrape(ctx, board.WebsiteURL, w.Config.ScrapeTimeout, w.Config.MaxPages, w.Config.SameHostOnly)
	durationMS := int(time.Since(start).Milliseconds())

	rendererUsed := meta.RendererUsed
	opts := model.AttemptOptions{DurationMS: &durationMS, RendererUsed: &rendererUsed}

	if err != nil {
		opts.ErrorKind = string(engine.KindOf(err))
		board.ApplyScrape(nil, now, false, opts)
		next := w.nextScrapeAt(&now, now, w.Config.ErrorBackoff, w.Config.ErrorJitter, w.Config.MinDelay)
		board.NextScrapeAt = &next
		w.Log.WithError(err).WithField("board", board.Title).Warn("scheduler: scrape failed")
	} else {
		board.ApplyScrape(jobs, now, true, opts)
		next := w.nextScrapeAt(board.LastScraped, now, w.Config.BaseFrequency, w.Config.Jitter, w.Config.MinDelay)
		board.NextScrapeAt = &next
		w.Log.WithField("board", board.Title).WithField("count", len(jobs)).Info("scheduler: scraped board")
	}

	if w.Config.DryRun {
		w.Log.WithField("path", p.Path).Info("scheduler: dry run, not persisting")
		return
	}
	if err := w.Store.Save(board); err != nil {
		w.Log.WithError(err).WithField("path", p.Path).Error("scheduler: failed to persist board")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
