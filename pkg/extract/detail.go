// Package extract implements the generic, ATS-agnostic HTML extraction
// pipeline: four strategies tried in order of signal strength, a detail-URL
// predicate shared by all of them, and next-page discovery.
package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// badPathSegments strongly indicate a non-detail page (account/legal pages
// that happen to live under a careers site).
var badPathSegments = map[string]bool{
	"saved": true, "alerts": true, "recommendations": true, "dashboard": true,
	"signin": true, "sign-in": true, "login": true, "help": true, "support": true,
	"about": true, "privacy": true, "terms": true, "eeo": true, "how-we-hire": true,
	"legal": true, "saved jobs": true, "saved-jobs": true,
}

var uuidRe = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

var atsHostPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:^|\.)jobs\.lever\.co$`),
	regexp.MustCompile(`(?i)(?:^|\.)boards\.greenhouse\.io$`),
	regexp.MustCompile(`(?i)(?:^|\.)smartrecruiters\.com$`),
	regexp.MustCompile(`(?i)(?:^|\.)workable\.com$`),
	regexp.MustCompile(`(?i)(?:^|\.)jobvite\.com$`),
	regexp.MustCompile(`(?i)(?:^|\.)ashbyhq\.com$`),
	regexp.MustCompile(`(?i)(?:^|\.)(?:[a-z0-9-]+\.wd\d+\.)?myworkdayjobs\.com$`),
}

func hostMatchesATS(host string) bool {
	for _, p := range atsHostPatterns {
		if p.MatchString(host) {
			return true
		}
	}
	return false
}

// jobDetailPatterns are known URL path shapes for actual job detail pages
// across several ATS vendors and hand-rolled careers sites.
var jobDetailPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(^|/)(?:[a-z]{2}-[a-z]{2}/)?details/\d{6,}(?:-\d+)?(?:/|$)`),
	regexp.MustCompile(`(?i)(^|/)(?:app/)?[a-z]{2}-[a-z]{2}/apply/\d{6,}(?:-\d+)?(?:/|$)`),
	regexp.MustCompile(`(?i)(^|/)jobs?/results?/\d`),
	regexp.MustCompile(`(?i)(^|/)careers?/.*/\d`),
	regexp.MustCompile(`(?i)(^|/)positions?/\d`),
	regexp.MustCompile(`(?i)(^|/)vacanc(?:y|ies)/\d`),
	regexp.MustCompile(`(?i)(^|/)job/[^/]+/[^/]+_(?:JR|R|REQ)[-_]?\d{4,}(?:-\d+)?(?:/|$)`),
	regexp.MustCompile(`(?i)(^|/)(?:[a-z]{2}(?:-[a-z]{2})?/)?sites?/jobsearch/job/\d{4,}(?:/|$|\?)`),
	regexp.MustCompile(`(?i)(^|/)wday/(?:jobs|cxs)/[^/]+/[^/]+/job/[^/]+_(?:JR|R|REQ)[-_]?\d{4,}(?:-\d+)?(?:/|$)`),
}

var jobFallbackRe = regexp.MustCompile(`(?i)/job[s]?/[\w-]{6,}(/|$)`)

// LooksLikeJobDetailURL is the conservative detail-URL predicate shared by
// every extractor: it errs toward missing a real posting rather than
// misclassifying a listing/category page as one.
func LooksLikeJobDetailURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	for _, p := range jobDetailPatterns {
		if p.MatchString(path) {
			return true
		}
	}

	if hostMatchesATS(u.Host) {
		segs := splitSegments(path)
		if len(segs) >= 2 {
			last := segs[len(segs)-1]
			if uuidRe.MatchString(last) || isAllDigits(last) {
				return true
			}
		}
		for _, s := range segs {
			if s == "job" || s == "jobs" || s == "openings" {
				return true
			}
		}
	}

	if strings.Contains(path, "job") && !strings.Contains(strings.ToLower(raw), "page=") {
		segs := splitSegments(path)
		bad := false
		for _, s := range segs {
			if badPathSegments[s] {
				bad = true
				break
			}
		}
		if !bad && jobFallbackRe.MatchString(path) {
			return true
		}
	}

	return false
}

func splitSegments(path string) []string {
	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

var ariaTitleRe = regexp.MustCompile(`(?i)^(?:learn more about|view details for)\s+(.+)$`)
var ctaOnlyRe = regexp.MustCompile(`(?i)^(learn more|help|sign in|bookmark|share|apply)$`)

// MaxHeadingText returns the longest heading text found under sel, or "".
func MaxHeadingText(sel *goquery.Selection) string {
	best := ""
	sel.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, h *goquery.Selection) {
		txt := collapseWhitespace(h.Text())
		if len(txt) > len(best) {
			best = txt
		}
	})
	return best
}

// TitleFromARIA extracts a title from an aria-label following the
// "Learn more about X" / "View details for X" convention.
func TitleFromARIA(a *goquery.Selection) string {
	aria := strings.TrimSpace(attrOr(a, "aria-label", ""))
	if m := ariaTitleRe.FindStringSubmatch(aria); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// CleanAnchorText returns the anchor's own text (or title attribute),
// rejecting bare call-to-action labels like "Apply" or "Learn more".
func CleanAnchorText(a *goquery.Selection) string {
	txt := collapseWhitespace(a.Text())
	if txt == "" {
		txt = strings.TrimSpace(attrOr(a, "title", ""))
	}
	if ctaOnlyRe.MatchString(txt) {
		return ""
	}
	return txt
}

// TitleFromAttrs checks aria-label/title attributes directly (used when the
// node itself, not necessarily an anchor, may carry the title).
func TitleFromAttrs(sel *goquery.Selection) string {
	for _, attr := range []string{"aria-label", "title"} {
		v := strings.TrimSpace(attrOr(sel, attr, ""))
		if v == "" {
			continue
		}
		if m := ariaTitleRe.FindStringSubmatch(v); m != nil {
			return strings.TrimSpace(m[1])
		}
		return v
	}
	return ""
}

var genericClassTokens = map[string]bool{
	"row": true, "rows": true, "col": true, "cols": true, "container": true,
	"grid": true, "section": true, "wrapper": true, "content": true,
}

// IsGenericClassKey reports whether a space-joined class string is too
// generic (layout-only) to identify a repeated item prototype.
func IsGenericClassKey(classKey string) bool {
	if classKey == "" {
		return true
	}
	for _, tok := range strings.Fields(classKey) {
		if genericClassTokens[tok] {
			return true
		}
	}
	return false
}

// SelectorFromKey turns a (tag, classKey) prototype back into a CSS selector.
func SelectorFromKey(tag, classKey string) string {
	var b strings.Builder
	b.WriteString(tag)
	for _, c := range strings.Fields(classKey) {
		b.WriteByte('.')
		b.WriteString(c)
	}
	return b.String()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func attrOr(sel *goquery.Selection, name, fallback string) string {
	if v, ok := sel.Attr(name); ok {
		return v
	}
	return fallback
}
