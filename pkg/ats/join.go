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

var joinHostRe = regexp.MustCompile(`(?i)(?:^|\.)join\.com$`)
var joinJobPathRe = regexp.MustCompile(`^/companies/[^/]+/\d{5,}-[A-Za-z0-9-]+/?$`)

// JoinAdapter scrapes join.com company listings. Cards render as
// a[data-testid="Link"] pointing at /companies/<org>/<id>-<slug>; the
// listing itself uses infinite scroll, so only the initially rendered page
// is scraped.
type JoinAdapter struct {
	Renderer *renderer.Renderer
}

func NewJoinAdapter(r *renderer.Renderer) *JoinAdapter {
	return &JoinAdapter{Renderer: r}
}

func (a *JoinAdapter) Name() string  { return "join.com" }
func (a *JoinAdapter) Renders() bool { return true }
func (a *JoinAdapter) Matches(u string) bool {
	return joinHostRe.MatchString(hostOf(u))
}

func joinNormalizeJobURL(href, base string) string {
	if href == "" {
		return ""
	}
	href = html.UnescapeString(href)
	abs := canonical.Absolute(href, base)

	u, err := url.Parse(abs)
	if err != nil {
		return ""
	}
	if !joinHostRe.MatchString(strings.ToLower(u.Hostname())) {
		return ""
	}
	if !joinJobPathRe.MatchString(u.Path) {
		return ""
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func joinExtractTitleFromH1(htmlText string) string {
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

func (a *JoinAdapter) Scrape(ctx context.Context, rawURL string, timeout time.Duration, maxPages int) ([]model.Job, error) {
	listingHTML, err := a.Renderer.Render(ctx, rawURL, `a[data-testid="Link"][href*="/companies/"][href*="-"]`, timeout)
	if err != nil {
		return nil, fmt.Errorf("join: render listing: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(listingHTML))
	if err != nil {
		return nil, fmt.Errorf("join: parse listing: %w", err)
	}

	var links []string
	seen := map[string]bool{}
	doc.Find(`a[data-testid="Link"][href]`).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		link := joinNormalizeJobURL(href, rawURL)
		if link == "" {
			return
		}
		link = canonical.JobURL(link)
		if seen[link] {
			return
		}
		seen[link] = true
		links = append(links, link)
	})

	var jobs []model.Job
	for _, link := range links {
		detailHTML, err := a.Renderer.Render(ctx, link, "h1", timeout)
		if err != nil {
			continue
		}
		title := joinExtractTitleFromH1(detailHTML)
		if title == "" {
			continue
		}
		jobs = append(jobs, model.Job{Title: title, Link: link})
	}

	return jobs, nil
}
