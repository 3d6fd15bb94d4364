package ats

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobwatch/pkg/canonical"
	"jobwatch/pkg/model"
	"jobwatch/pkg/renderer"
)

var msJobItemIDRe = regexp.MustCompile(`(?i)\bJob item\s+(\d{6,})\b`)
var msAnyDigitsRe = regexp.MustCompile(`(\d{6,})`)

// MicrosoftAdapter renders careers.microsoft.com search result pages and
// composes canonical detail URLs from the job id and a slugified title,
// since the result cards themselves don't link to a usable detail href.
type MicrosoftAdapter struct {
	Renderer *renderer.Renderer
}

func NewMicrosoftAdapter(r *renderer.Renderer) *MicrosoftAdapter {
	return &MicrosoftAdapter{Renderer: r}
}

func (a *MicrosoftAdapter) Name() string  { return "microsoft" }
func (a *MicrosoftAdapter) Renders() bool { return true }
func (a *MicrosoftAdapter) Matches(u string) bool {
	return strings.HasSuffix(hostOf(u), "careers.microsoft.com")
}

// msSlugifyTitle mirrors Microsoft's observed slug rules: trim, replace
// spaces with '-', percent-encode everything outside [A-Za-z0-9-] without
// lowercasing, and never collapse repeated hyphens.
func msSlugifyTitle(title string) string {
	t := strings.TrimSpace(title)
	t = strings.ReplaceAll(t, " ", "-")

	var b strings.Builder
	for i := 0; i < len(t); i++ {
		c := t[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' {
			b.WriteByte(c)
		} else {
			b.WriteString(fmt.Sprintf("%%%02X", c))
		}
	}
	return b.String()
}

func msBuildPageURL(baseURL string, page int) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL
	}
	q := u.Query()
	q.Set("pg", strconv.Itoa(page))
	u.RawQuery = strings.ReplaceAll(q.Encode(), "+", "%20")
	return u.String()
}

func msSelectJobItems(doc *goquery.Document) *goquery.Selection {
	return doc.Find(`#job-search-app [role="listitem"].ms-List-cell, div[role="listitem"].ms-List-cell`)
}

func msExtractTitle(item *goquery.Selection) string {
	h2 := item.Find("h2").First()
	if h2.Length() == 0 {
		return ""
	}
	return strings.Join(strings.Fields(h2.Text()), " ")
}

// msExtractJobID prefers an aria-label like "Job item 1854316"; failing
// that, it scans every descendant attribute value for a 6+ digit run and
// picks the most plausible-length (6-8 digit) candidate.
func msExtractJobID(item *goquery.Selection) string {
	var ariaHit string
	item.Find("[aria-label]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		label, _ := s.Attr("aria-label")
		if m := msJobItemIDRe.FindStringSubmatch(label); m != nil {
			ariaHit = m[1]
			return false
		}
		return true
	})
	if ariaHit != "" {
		return ariaHit
	}

	type candidate struct {
		score int
		value string
	}
	var candidates []candidate
	item.Find("*").Each(func(_ int, s *goquery.Selection) {
		if s.Nodes == nil || len(s.Nodes) == 0 {
			return
		}
		for _, attr := range s.Nodes[0].Attr {
			for _, m := range msAnyDigitsRe.FindAllString(attr.Val, -1) {
				score := 1
				if len(m) >= 6 && len(m) <= 8 {
					score = 0
				}
				candidates = append(candidates, candidate{score: score*100 + len(m), value: m})
			}
		}
	})
	if len(candidates) == 0 {
		return ""
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score < candidates[j].score })
	return candidates[0].value
}

func (a *MicrosoftAdapter) Scrape(ctx context.Context, rawURL string, timeout time.Duration, maxPages int) ([]model.Job, error) {
	startPage := 1
	if u, err := url.Parse(rawURL); err == nil {
		if pg := u.Query().Get("pg"); pg != "" {
			if n, err := strconv.Atoi(pg); err == nil {
				startPage = n
			}
		}
	}

	var jobs []model.Job
	seenIDs := map[string]bool{}

	for i := 0; i < maxPages; i++ {
		pageURL := msBuildPageURL(rawURL, startPage+i)

		pageHTML, err := a.Renderer.Render(ctx, pageURL,
			`#job-search-app [role='listitem'], [data-automationid='ListCell']`, timeout)
		if err != nil {
			return jobs, fmt.Errorf("microsoft: render page %d: %w", startPage+i, err)
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
		if err != nil {
			break
		}

		items := msSelectJobItems(doc)
		if items.Length() == 0 {
			break
		}

		added := 0
		items.Each(func(_ int, item *goquery.Selection) {
			jid := msExtractJobID(item)
			title := msExtractTitle(item)
			if jid == "" || title == "" || seenIDs[jid] {
				return
			}
			slug := msSlugifyTitle(title)
			link := canonical.JobURL(fmt.Sprintf("https://jobs.careers.microsoft.com/global/en/job/%s/%s", jid, slug))
			jobs = append(jobs, model.Job{Title: title, Link: link})
			seenIDs[jid] = true
			added++
		})

		if added == 0 {
			break
		}
	}

	return jobs, nil
}
