// Package jsdetect guesses whether a fetched HTML page is a JavaScript
// application shell that rendered no real listing content server-side.
package jsdetect

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var mountSelectors = []string{
	"#__next", "#root", "#app", "[data-reactroot]", "[ng-app]",
	".search-results-app", "[data-buycard-app]",
}

var jsHintStrings = []string{
	"enable javascript", "turn on javascript", "requires javascript",
	"needs javascript", "please enable cookies", "disabled scripts",
}

// LooksJSShell reports whether html is a near-empty application shell that a
// browser's JavaScript would still need to fill in before listings appear.
func LooksJSShell(html string) bool {
	if strings.TrimSpace(html) == "" {
		return true
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return true
	}

	scripts := doc.Find("script").Length()
	realNodes := doc.Find("*").Length() - doc.Find("script, style").Length()

	bodyText := strings.ToLower(collapseText(doc.Find("body").First()))
	hints := false
	for _, h := range jsHintStrings {
		if strings.Contains(bodyText, h) {
			hints = true
			break
		}
	}

	hasMount := false
	for _, sel := range mountSelectors {
		if doc.Find(sel).Length() > 0 {
			hasMount = true
			break
		}
	}

	main := doc.Find("main").First()
	if main.Length() == 0 {
		main = doc.Find("body").First()
	}
	textLen := len(collapseText(main))
	lowContent := realNodes > 200 && textLen < 800 && scripts >= 3

	esriShell := doc.Find(".sra.search-results-app").Length() > 0 ||
		doc.Find(`[data-buycard-app="careers"]`).Length() > 0

	spinner := doc.Find(".app-loading-spinner").Length() > 0

	smallDOM := realNodes < 15 && scripts >= 3

	return smallDOM || hints || hasMount || lowContent || esriShell || spinner
}

func collapseText(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}
