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

var ashbyHostRe = regexp.MustCompile(`(?i)(?:^|\.)jobs\.ashbyhq\.com$`)
var ashbyUUIDRe = regexp.MustCompile(`/[^/]+/([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})(?:/|$)`)

// AshbyAdapter scrapes Ashby-hosted boards (jobs.ashbyhq.com), which are
// hydrated entirely client-side. Job tiles are anchors whose classes are
// hashed per build, so matching relies on the href shape instead:
// /<org>/<uuid>.
type AshbyAdapter struct {
	Renderer *renderer.Renderer
}

func NewAshbyAdapter(r *renderer.Renderer) *AshbyAdapter {
	return &AshbyAdapter{Renderer: r}
}

func (a *AshbyAdapter) Name() string  { return "ashbyhq" }
func (a *AshbyAdapter) Renders() bool { return true }
func (a *AshbyAdapter) Matches(u string) bool {
	return ashbyHostRe.MatchString(hostOf(u))
}

func ashbyOrgSlug(rawURL string) string {
	segs := pathSegments(rawURL)
	if len(segs) == 0 {
		return ""
	}
	return segs[0]
}

func ashbySelectJobAnchors(doc *goquery.Document, org string) *goquery.Selection {
	if org != "" {
		sel := fmt.Sprintf(`a[href^="/%s/"][href*="-"]`, org)
		anchors := doc.Find(sel)
		if anchors.Length() > 0 {
			return anchors
		}
	}
	return doc.Find(`a[href]`).FilterFunction(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		u, err := url.Parse(href)
		if err != nil {
			return false
		}
		return ashbyUUIDRe.MatchString(u.Path)
	})
}

func ashbyNormalizeJobURL(href, base string) string {
	if href == "" {
		return ""
	}
	href = html.UnescapeString(href)
	abs := canonical.Absolute(href, base)

	u, err := url.Parse(abs)
	if err != nil {
		return ""
	}
	if !ashbyHostRe.MatchString(strings.ToLower(u.Hostname())) {
		return ""
	}
	if !ashbyUUIDRe.MatchString(u.Path) {
		return ""
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func ashbyExtractUUID(path string) string {
	m := ashbyUUIDRe.FindStringSubmatch(path)
	if m == nil {
		return ""
	}
	return m[1]
}

func ashbyExtractTitleFromH1(htmlText string) string {
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

func (a *AshbyAdapter) Scrape(ctx context.Context, rawURL string, timeout time.Duration, maxPages int) ([]model.Job, error) {
	org := ashbyOrgSlug(rawURL)

	waitFor := `a[href*="-"]`
	if org != "" {
		waitFor = fmt.Sprintf(`a[href^="/%s/"][href*="-"]`, org)
	}

	listingHTML, err := a.Renderer.Render(ctx, rawURL, waitFor, timeout)
	if err != nil {
		return nil, fmt.Errorf("ashby: render listing: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(listingHTML))
	if err != nil {
		return nil, fmt.Errorf("ashby: parse listing: %w", err)
	}

	anchors := ashbySelectJobAnchors(doc, org)
	if anchors.Length() == 0 {
		return nil, nil
	}

	type candidate struct {
		id   string
		link string
	}
	var candidates []candidate
	seenIDs := map[string]bool{}
	seenLinks := map[string]bool{}

	anchors.Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		link := ashbyNormalizeJobURL(href, rawURL)
		if link == "" {
			return
		}
		u, err := url.Parse(link)
		if err != nil {
			return
		}
		id := ashbyExtractUUID(u.Path)
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
		candidates = append(candidates, candidate{id: id, link: canonical.JobURL(link)})
	})

	var jobs []model.Job
	for _, c := range candidates {
		detailHTML, err := a.Renderer.Render(ctx, c.link, "h1", timeout)
		if err != nil {
			continue
		}
		title := ashbyExtractTitleFromH1(detailHTML)
		if title == "" {
			continue
		}
		jobs = append(jobs, model.Job{Title: title, Link: c.link})
	}

	return jobs, nil
}
