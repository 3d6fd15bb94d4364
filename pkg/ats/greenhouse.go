package ats

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobwatch/pkg/canonical"
	"jobwatch/pkg/model"
	"jobwatch/pkg/renderer"
)

var greenhouseHostRe = regexp.MustCompile(`(?i)(?:^|\.)(?:job-boards|boards)\.greenhouse\.io$`)
var ghJobPathRe = regexp.MustCompile(`/jobs/(\d+)(?:/|$)`)

// GreenhouseAdapter scrapes the custom (non-API) Greenhouse job board UI by
// rendering the listing page, collecting each posting's detail link, and
// following through to the detail page for the title — the listing rows
// themselves carry no title text, only the requisition id in the href.
type GreenhouseAdapter struct {
	Renderer *renderer.Renderer
}

func NewGreenhouseAdapter(r *renderer.Renderer) *GreenhouseAdapter {
	return &GreenhouseAdapter{Renderer: r}
}

func (a *GreenhouseAdapter) Name() string  { return "greenhouse" }
func (a *GreenhouseAdapter) Renders() bool { return true }
func (a *GreenhouseAdapter) Matches(u string) bool {
	return greenhouseHostRe.MatchString(hostOf(u))
}

func ghExtractJobID(path string) string {
	m := ghJobPathRe.FindStringSubmatch(path)
	if m == nil {
		return ""
	}
	return m[1]
}

// ghNormalizeJobURL resolves href against base, confirms it lands on a
// Greenhouse host under /jobs/<id>, and strips query/fragment.
func ghNormalizeJobURL(href, base string) string {
	if href == "" {
		return ""
	}
	href = html.UnescapeString(href)
	abs := canonical.Absolute(href, base)

	u, err := url.Parse(abs)
	if err != nil {
		return ""
	}
	if !greenhouseHostRe.MatchString(strings.ToLower(u.Hostname())) {
		return ""
	}
	if ghExtractJobID(u.Path) == "" {
		return ""
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String()
}

func ghExtractTitleFromH1(htmlText string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return ""
	}
	h1 := doc.Find("h1").First()
	if h1.Length() == 0 {
		return ""
	}
	return strings.Join(strings.Fields(h1.Text()), " ")
}

func (a *GreenhouseAdapter) Scrape(ctx context.Context, rawURL string, timeout time.Duration, maxPages int) ([]model.Job, error) {
	listingHTML, err := a.Renderer.Render(ctx, rawURL, `tr.job-post a[href*="/jobs/"]`, timeout)
	if err != nil {
		return nil, fmt.Errorf("greenhouse: render listing: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(listingHTML))
	if err != nil {
		return nil, fmt.Errorf("greenhouse: parse listing: %w", err)
	}

	type candidate struct {
		id   string
		link string
	}
	var candidates []candidate
	seenIDs := map[string]bool{}
	seenLinks := map[string]bool{}

	doc.Find("tr.job-post td.cell a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		link := ghNormalizeJobURL(href, rawURL)
		if link == "" {
			return
		}
		u, err := url.Parse(link)
		if err != nil {
			return
		}
		id := ghExtractJobID(u.Path)
		if id != "" {
			if seenIDs[id] {
				return
			}
			seenIDs[id] = true
		} else if seenLinks[link] {
			return
		} else {
			seenLinks[link] = true
		}
		candidates = append(candidates, candidate{id: id, link: link})
	})

	var jobs []model.Job
	for _, c := range candidates {
		detailHTML, err := a.Renderer.Render(ctx, c.link, "h1", timeout)
		if err != nil {
			continue
		}
		title := ghExtractTitleFromH1(detailHTML)
		if title == "" {
			continue
		}
		jobs = append(jobs, model.Job{Title: title, Link: canonical.JobURL(c.link)})
	}

	return jobs, nil
}
