package ats

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"

	"jobwatch/pkg/canonical"
	"jobwatch/pkg/model"
	"jobwatch/pkg/renderer"
)

var protonHostRe = regexp.MustCompile(`(?i)(?:^|\.)job-boards\.eu\.greenhouse\.io$`)
var protonLocationSplitRe = regexp.MustCompile(`[;,/|•·]+`)
var protonNonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// ProtonAdapter scrapes Proton's Greenhouse-EU board
// (job-boards.eu.greenhouse.io/proton), optionally filtering rows by a
// fuzzy match against a configured set of location terms.
type ProtonAdapter struct {
	Renderer        *renderer.Renderer
	LocationTerms   []string
	MaxEditDistance int
}

func NewProtonAdapter(r *renderer.Renderer, locationTerms []string, maxEditDistance int) *ProtonAdapter {
	if maxEditDistance <= 0 {
		maxEditDistance = 2
	}
	return &ProtonAdapter{Renderer: r, LocationTerms: locationTerms, MaxEditDistance: maxEditDistance}
}

func (a *ProtonAdapter) Name() string  { return "proton" }
func (a *ProtonAdapter) Renders() bool { return true }
func (a *ProtonAdapter) Matches(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if !protonHostRe.MatchString(host) {
		return false
	}
	path := strings.TrimRight(u.Path, "/")
	return path == "/proton" || strings.HasPrefix(path, "/proton/")
}

func protonStripAccents(s string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func protonNorm(s string) string {
	s = strings.ToLower(protonStripAccents(s))
	s = protonNonAlnumRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func protonSplitLocations(locText string) []string {
	if locText == "" {
		return nil
	}
	var out []string
	for _, p := range protonLocationSplitRe.Split(locText, -1) {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// protonDamerauLevenshteinCapped is a banded Damerau-Levenshtein
// implementation that bails out early once the distance exceeds maxDist,
// since callers only care whether two short location strings are "close
// enough", not the exact distance.
func protonDamerauLevenshteinCapped(a, b string, maxDist int) int {
	if abs(len(a)-len(b)) > maxDist {
		return maxDist + 1
	}
	if len(a) > len(b) {
		a, b = b, a
	}

	prevPrev := make([]int, len(b)+1)
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		minJ := i - maxDist
		if minJ < 1 {
			minJ = 1
		}
		maxJ := i + maxDist
		if maxJ > len(b) {
			maxJ = len(b)
		}
		for j := 1; j < minJ; j++ {
			curr[j] = maxDist + 1
		}
		for j := maxJ + 1; j <= len(b); j++ {
			curr[j] = maxDist + 1
		}

		bestRowVal := maxDist + 1
		for j := minJ; j <= maxJ; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			v := del
			if ins < v {
				v = ins
			}
			if sub < v {
				v = sub
			}
			if i > 1 && j > 1 && a[i-1] == b[j-2] && a[i-2] == b[j-1] {
				if t := prevPrev[j-2] + 1; t < v {
					v = t
				}
			}
			curr[j] = v
			if v < bestRowVal {
				bestRowVal = v
			}
		}
		if bestRowVal > maxDist {
			return maxDist + 1
		}
		prevPrev, prev, curr = prev, curr, prevPrev
	}
	return prev[len(b)]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// protonAnyFuzzyMatch reports whether any candidate location matches any
// search term, either as a normalized substring or within maxEditDistance
// edits. No configured terms means accept everything.
func protonAnyFuzzyMatch(candidates, terms []string, maxEditDistance int) bool {
	var normCands []string
	for _, c := range candidates {
		normCands = append(normCands, protonNorm(c))
	}
	var normTerms []string
	for _, t := range terms {
		if nt := protonNorm(t); nt != "" {
			normTerms = append(normTerms, nt)
		}
	}
	if len(normTerms) == 0 {
		return true
	}

	for _, c := range normCands {
		if c == "" {
			continue
		}
		for _, t := range normTerms {
			if strings.Contains(c, t) || strings.Contains(t, c) {
				return true
			}
			if protonDamerauLevenshteinCapped(t, c, maxEditDistance) <= maxEditDistance {
				return true
			}
		}
	}
	return false
}

func (a *ProtonAdapter) Scrape(ctx context.Context, rawURL string, timeout time.Duration, maxPages int) ([]model.Job, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("proton: parse url: %w", err)
	}
	listURL := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/proton"}).String()
	if u.Scheme == "" {
		listURL = "https://" + u.Host + "/proton"
	}

	listingHTML, err := a.Renderer.Render(ctx, listURL, ".job-posts--table--department tr.job-post a[href]", timeout)
	if err != nil {
		return nil, fmt.Errorf("proton: render listing: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(listingHTML))
	if err != nil {
		return nil, fmt.Errorf("proton: parse listing: %w", err)
	}

	var jobs []model.Job
	doc.Find(".job-posts--table--department tr.job-post a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}

		var title string
		if titleTag := s.Find(".body.body--medium").First(); titleTag.Length() > 0 {
			titleTag.Find(".tag-container").Remove()
			title = strings.Join(strings.Fields(titleTag.Text()), " ")
		} else {
			title = strings.Join(strings.Fields(s.Text()), " ")
		}

		var locText string
		if locTag := s.Find(".body.body__secondary.body--metadata").First(); locTag.Length() > 0 {
			locText = strings.Join(strings.Fields(locTag.Text()), " ")
		}
		locs := protonSplitLocations(locText)

		if !protonAnyFuzzyMatch(locs, a.LocationTerms, a.MaxEditDistance) {
			return
		}

		link := canonical.JobURL(canonical.Absolute(href, listURL))
		if title != "" && link != "" {
			jobs = append(jobs, model.Job{Title: title, Link: link})
		}
	})

	return jobs, nil
}
