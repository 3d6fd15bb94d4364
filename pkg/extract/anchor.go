package extract

import (
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"jobwatch/pkg/canonical"
	"jobwatch/pkg/model"
)

// minStrictAnchorTitleLen rejects short residual CTA-like text ("Go", "Apply
// now" truncations, icon-only labels) that survives CleanAnchorText's named
// -phrase filter. Last-resort extractor: tried only once jsonld, listitem and
// repeated-block all come back empty.
const minStrictAnchorTitleLen = 4

// ExtractAnchorsStrict is the last-resort extractor: every anchor on the page
// that looks like a job-detail link, or explicitly carries Workday's
// data-automation-id="jobTitle" marker, becomes a candidate job.
func ExtractAnchorsStrict(doc *goquery.Document, baseURL string) []model.Job {
	var jobs []model.Job
	seen := map[string]bool{}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		hrefAbs := canonical.Absolute(href, baseURL)

		automationID, _ := a.Attr("data-automation-id")
		if automationID != "jobTitle" && !LooksLikeJobDetailURL(hrefAbs) {
			return
		}

		link := canonical.JobURL(hrefAbs)
		if seen[link] {
			return
		}

		title := TitleFromARIA(a)
		if title == "" {
			title = CleanAnchorText(a)
		}
		if title == "" || utf8.RuneCountInString(title) < minStrictAnchorTitleLen {
			return
		}

		seen[link] = true
		jobs = append(jobs, model.Job{Title: title, Link: link})
	})

	return jobs
}
