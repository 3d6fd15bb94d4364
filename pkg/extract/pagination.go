package extract

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobwatch/pkg/canonical"
)

var altPageKeys = []string{"p", "pg", "pageNo", "pageNumber", "currentPage"}

var nextLabelRe = regexp.MustCompile(`(?i)\b(next|go to next page|weiter|suivant|siguiente)\b`)
var resultsWindowRe = regexp.MustCompile(`(?i)(\d+)\s*[\x{2010}\x{2011}\x{2012}\x{2013}-]\s*(\d+)\s*of\s*(\d+)`)
var pageFromAriaRe = regexp.MustCompile(`(?i)page\s+(\d+)`)
var pageParamRe = func(key string) *regexp.Regexp {
	return regexp.MustCompile(`[?&]` + regexp.QuoteMeta(key) + `=(\d+)\b`)
}
var anyParamRe = regexp.MustCompile(`[?&](\w+)=\d+\b`)

// DiscoverNextPageURL returns the absolute URL of the next results page, or
// "" if none can be found or inferred. Tries, in order: an explicit
// next-link in the DOM, incrementing a known page-number query parameter,
// incrementing an offset-style parameter using an inferred page size from a
// "X-Y of Z" results window, and finally following any paging-looking anchor
// pattern found alongside a detected current/total page count.
func DiscoverNextPageURL(doc *goquery.Document, baseURL, currentURL string) string {
	currentPage := currentPageFromDOM(doc)

	if href := findNextHrefDirect(doc, currentPage); href != "" {
		return canonical.Absolute(href, baseURL)
	}

	totalPages := totalPagesFromDOM(doc)

	u, err := url.Parse(currentURL)
	if err != nil {
		return ""
	}
	qs := u.Query()

	if vals, ok := qs["page"]; ok && len(vals) > 0 {
		if cur, err := strconv.Atoi(vals[0]); err == nil {
			next := cur + 1
			if totalPages != nil && next > *totalPages {
				return ""
			}
			return updateQueryParam(currentURL, "page", strconv.Itoa(next))
		}
	}

	for _, key := range altPageKeys {
		if vals, ok := qs[key]; ok && len(vals) > 0 {
			if cur, err := strconv.Atoi(vals[0]); err == nil {
				next := cur + 1
				if totalPages != nil && next > *totalPages {
					return ""
				}
				return updateQueryParam(currentURL, key, strconv.Itoa(next))
			}
		}
	}

	for _, key := range []string{"start", "offset", "from", "startrow"} {
		if vals, ok := qs[key]; ok && len(vals) > 0 {
			pageSize, total := parseResultsWindow(doc)
			cur, _ := strconv.Atoi(vals[0])
			if pageSize != nil {
				next := cur + *pageSize
				if total != nil && next >= *total {
					return ""
				}
				return updateQueryParam(currentURL, key, strconv.Itoa(next))
			}
		}
	}

	if currentPage != nil && (totalPages == nil || *currentPage < *totalPages) {
		var found string
		doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			m := anyParamRe.FindStringSubmatch(href)
			if m != nil {
				found = updateQueryParam(currentURL, m[1], strconv.Itoa(*currentPage+1))
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}

	return ""
}

func findNextHrefDirect(doc *goquery.Document, currentPage *int) string {
	if a := doc.Find(`a[rel*="next" i]`).First(); a.Length() > 0 {
		if href, ok := a.Attr("href"); ok {
			return href
		}
	}

	var next string
	doc.Find("a[aria-label]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		label := strings.ToLower(attrOr(a, "aria-label", ""))
		if !nextLabelRe.MatchString(label) {
			return true
		}
		disabled := strings.ToLower(attrOr(a, "aria-disabled", ""))
		if disabled == "true" || disabled == "1" {
			return true
		}
		classVal, _ := a.Attr("class")
		for _, c := range strings.Fields(classVal) {
			if c == "disabled" {
				return true
			}
		}
		if href, ok := a.Attr("href"); ok {
			next = href
			return false
		}
		return true
	})
	if next != "" {
		return next
	}

	if btn := doc.Find(`[data-analytics-pagination="next"] a[href]`).First(); btn.Length() > 0 {
		if href, ok := btn.Attr("href"); ok {
			return href
		}
	}

	if nav := doc.Find(`nav[aria-label*="pagination" i]`).First(); nav.Length() > 0 {
		cand := nav.Find(`a[href][rel*="next" i]`).First()
		if cand.Length() == 0 {
			nav.Find("a[href][aria-label]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
				if nextLabelRe.MatchString(strings.ToLower(attrOr(a, "aria-label", ""))) {
					cand = a
					return false
				}
				return true
			})
		}
		if cand.Length() > 0 {
			if href, ok := cand.Attr("href"); ok {
				return href
			}
		}
	}

	keys := append([]string{"page"}, altPageKeys...)
	var candidates []struct {
		n    int
		href string
	}
	doc.Find(`nav[aria-label*="pagination" i] a[aria-label], ul.pagination a[aria-label], .pagination a[aria-label]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		for _, key := range keys {
			m := pageParamRe(key).FindStringSubmatch(href)
			if m == nil {
				continue
			}
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			if currentPage == nil || n > *currentPage {
				candidates = append(candidates, struct {
					n    int
					href string
				}{n, href})
			}
			break
		}
	})
	if len(candidates) > 0 {
		best := candidates[0]
		for _, c := range candidates[1:] {
			if c.n < best.n {
				best = c
			}
		}
		return best.href
	}

	return ""
}

func currentPageFromDOM(doc *goquery.Document) *int {
	inp := doc.Find(`input[data-autom="paginationPageInput"], input.rc-pagination-pageinput`).First()
	if inp.Length() > 0 {
		if v, ok := inp.Attr("value"); ok {
			if n, err := strconv.Atoi(v); err == nil {
				return &n
			}
		}
	}

	var found *int
	doc.Find("[aria-live]").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		text := collapseWhitespace(el.Text())
		if m := pageFromAriaRe.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				found = &n
				return false
			}
		}
		return true
	})
	return found
}

func totalPagesFromDOM(doc *goquery.Document) *int {
	el := doc.Find(".rc-pagination-total-pages").First()
	if el.Length() == 0 {
		return nil
	}
	s := strings.ReplaceAll(collapseWhitespace(el.Text()), ",", "")
	if n, err := strconv.Atoi(s); err == nil {
		return &n
	}
	return nil
}

func parseResultsWindow(doc *goquery.Document) (pageSize, total *int) {
	text := collapseWhitespace(doc.Text())
	m := resultsWindowRe.FindStringSubmatch(text)
	if m == nil {
		return nil, nil
	}
	start, err1 := strconv.Atoi(m[1])
	end, err2 := strconv.Atoi(m[2])
	tot, err3 := strconv.Atoi(m[3])
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, nil
	}
	total = &tot
	if end >= start {
		size := end - start + 1
		pageSize = &size
	}
	return pageSize, total
}

func updateQueryParam(rawURL, key, value string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
