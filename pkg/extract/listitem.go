package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobwatch/pkg/canonical"
	"jobwatch/pkg/model"
)

// ExtractListItems looks inside <ul>/<ol> elements that smell like job
// listings (by aria-label, by a Workday-style jobTitle anchor signature, or
// by a generic count of detail-looking anchors) and falls back to scanning
// every <li>/div[role=listitem] in the document if none qualify.
func ExtractListItems(doc *goquery.Document, baseURL string) []model.Job {
	var jobs []model.Job
	seen := map[string]bool{}

	var candidateLists []*goquery.Selection
	doc.Find("ul, ol").Each(func(_ int, l *goquery.Selection) {
		if listIsJobList(l, baseURL) {
			candidateLists = append(candidateLists, l)
		}
	})

	var items *goquery.Selection
	if len(candidateLists) > 0 {
		items = candidateLists[0].Find(`li, div[role="listitem"]`)
		for _, l := range candidateLists[1:] {
			items = items.AddSelection(l.Find(`li, div[role="listitem"]`))
		}
	} else {
		items = doc.Find(`li, div[role="listitem"]`)
	}

	items.Each(func(_ int, li *goquery.Selection) {
		chosen := li.Find(`a[data-automation-id="jobTitle"][href]`).First()
		var linkAbs string

		if chosen.Length() > 0 {
			href, _ := chosen.Attr("href")
			linkAbs = canonical.Absolute(href, baseURL)
		} else {
			li.Find("a[href]").EachWithBreak(func(_ int, cand *goquery.Selection) bool {
				href, _ := cand.Attr("href")
				abs := canonical.Absolute(href, baseURL)
				if LooksLikeJobDetailURL(abs) {
					chosen = cand
					linkAbs = abs
					return false
				}
				return true
			})
		}

		if chosen.Length() == 0 || linkAbs == "" {
			return
		}
		linkAbs = canonical.JobURL(linkAbs)
		if seen[linkAbs] {
			return
		}

		title := MaxHeadingText(li)
		if title == "" {
			title = TitleFromARIA(chosen)
		}
		if title == "" {
			title = CleanAnchorText(chosen)
		}
		if title == "" {
			li.Find("a[href]").EachWithBreak(func(_ int, other *goquery.Selection) bool {
				t2 := TitleFromARIA(other)
				if t2 == "" {
					t2 = CleanAnchorText(other)
				}
				if strings.TrimSpace(t2) != "" {
					title = t2
					return false
				}
				return true
			})
		}
		if title == "" {
			li.Find("span").EachWithBreak(func(_ int, sp *goquery.Selection) bool {
				classVal, _ := sp.Attr("class")
				for _, c := range strings.Fields(classVal) {
					if strings.Contains(c, "title") {
						if t := strings.TrimSpace(sp.Text()); t != "" {
							title = t
							return false
						}
					}
				}
				return true
			})
		}
		if title == "" {
			return
		}

		seen[linkAbs] = true
		jobs = append(jobs, model.Job{Title: strings.TrimSpace(title), Link: linkAbs})
	})

	return jobs
}

func listIsJobList(l *goquery.Selection, baseURL string) bool {
	label := strings.ToLower(attrOr(l, "aria-label", ""))
	for _, k := range []string{"job", "career", "vacan", "opening", "position"} {
		if strings.Contains(label, k) {
			return true
		}
	}

	if l.Find(`a[data-automation-id="jobTitle"][href]`).Length() >= 2 {
		return true
	}

	count := 0
	found := false
	l.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		abs := canonical.Absolute(href, baseURL)
		if LooksLikeJobDetailURL(abs) {
			count++
			if count >= 2 {
				found = true
				return false
			}
		}
		return true
	})
	return found
}
