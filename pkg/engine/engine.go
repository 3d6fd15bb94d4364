package engine

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"jobwatch/pkg/ats"
	"jobwatch/pkg/canonical"
	"jobwatch/pkg/extract"
	"jobwatch/pkg/httpclient"
	"jobwatch/pkg/jsdetect"
	"jobwatch/pkg/model"
	"jobwatch/pkg/renderer"
)

// jobShellWaitSelector is the broad job-like-content selector passed to the
// renderer when the generic loop falls back to a headless render: it has no
// host-specific knowledge, so it just waits for something link-shaped.
const jobShellWaitSelector = `a[href*="job"], a[href*="career"], [role="listitem"], li`

// Meta describes how a single Scrape call was carried out, for attachment to
// the board's recorded attempt.
type Meta struct {
	RendererUsed   bool
	AttemptedPages int
	RenderedPages  int
	ATSAdapter     string
}

// Engine orchestrates a single scrape of a website URL: the ATS registry
// fast-path, or a generic fetch/detect/render/extract/paginate loop.
type Engine struct {
	HTTP     *httpclient.Client
	Renderer *renderer.Renderer
	ATS      *ats.Registry
	Log      *logrus.Logger
}

func New(httpClient *httpclient.Client, r *renderer.Renderer, registry *ats.Registry, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.New()
	}
	return &Engine{HTTP: httpClient, Renderer: r, ATS: registry, Log: log}
}

// Scrape fetches postings from websiteURL: an ATS adapter match takes
// priority; otherwise it runs the generic HTML loop for up to maxPages
// iterations. Any unrecoverable error mid-loop ends the loop but returns
// whatever jobs were already collected; the error is returned only when an
// ATS adapter fails or the generic loop fails with no jobs collected.
func (e *Engine) Scrape(ctx context.Context, websiteURL string, timeout time.Duration, maxPages int, sameHostOnly bool) ([]model.Job, Meta, error) {
	if adapter := e.ATS.Match(websiteURL); adapter != nil {
		jobs, err := adapter.Scrape(ctx, websiteURL, timeout, maxPages)
		meta := Meta{RendererUsed: adapter.Renders(), ATSAdapter: adapter.Name()}
		if err != nil {
			return nil, meta, NewScrapeError(ErrorATS, err)
		}
		return jobs, meta, nil
	}

	return e.scrapeGeneric(ctx, websiteURL, timeout, maxPages, sameHostOnly)
}

func (e *Engine) scrapeGeneric(ctx context.Context, websiteURL string, timeout time.Duration, maxPages int, sameHostOnly bool) ([]model.Job, Meta, error) {
	var meta Meta

	base, err := url.Parse(websiteURL)
	if err != nil {
		return nil, meta, NewScrapeError(ErrorParse, err)
	}
	baseHost := base.Host

	visited := map[string]bool{}
	collected := map[string]model.Job{}

	current := websiteURL
	var lastErr error

	for i := 0; i < maxPages; i++ {
		identity := canonical.ListingIdentity(current)
		if visited[identity] {
			break
		}
		visited[identity] = true
		meta.AttemptedPages++

		html, err := e.HTTP.FetchText(ctx, current, nil)
		if err != nil {
			lastErr = NewScrapeError(classifyHTTPError(err), err)
			break
		}

		if jsdetect.LooksJSShell(html) {
			rendered, renderErr := e.Renderer.Render(ctx, current, jobShellWaitSelector, timeout)
			if renderErr != nil {
				lastErr = NewScrapeError(ErrorRenderError, renderErr)
				break
			}
			html = rendered
			meta.RendererUsed = true
			meta.RenderedPages++
		}

		pageJobs, err := extract.ExtractAll(e.Log, html, current)
		if err != nil {
			lastErr = NewScrapeError(ErrorParse, err)
			break
		}
		for _, j := range pageJobs {
			key := canonical.JobURL(j.Link)
			if _, ok := collected[key]; !ok {
				collected[key] = model.Job{Title: j.Title, Link: key}
			}
		}

		doc, err := parseHTML(html)
		if err != nil {
			lastErr = NewScrapeError(ErrorParse, err)
			break
		}
		next := extract.DiscoverNextPageURL(doc, current, current)
		if next == "" {
			break
		}
		if sameHostOnly {
			if nu, err := url.Parse(next); err == nil && nu.Host != "" && nu.Host != baseHost {
				break
			}
		}
		current = next
	}

	jobs := make([]model.Job, 0, len(collected))
	for _, j := range collected {
		jobs = append(jobs, j)
	}

	// Partial results survive a mid-loop failure: only a failure that leaves
	// zero jobs collected propagates the error upward.
	if lastErr != nil && len(jobs) == 0 {
		return jobs, meta, lastErr
	}
	return jobs, meta, nil
}

func classifyHTTPError(err error) ErrorKind {
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		return ErrorHTTPStatus
	}
	return ErrorNetwork
}

func parseHTML(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}
