package ats

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"jobwatch/pkg/model"
	"jobwatch/pkg/renderer"
)

var metaHostRe = regexp.MustCompile(`(?i)(?:^|\.)metacareers\.com$|(?:^|\.)facebookcareers\.com$`)
var metaPageOfRe = regexp.MustCompile(`(?i)Page\s+(\d+)\s+of\s+(\d+)`)

var metaCookieSelectors = []string{
	`button[title="Allow all cookies"]`,
	`[data-cookiebanner] button`,
}

var metaCookieTexts = []string{"Allow all", "Accept all", "Accept All", "I agree", "Accept"}
var metaViewJobsTexts = []string{"View jobs", "View Jobs", "Find jobs"}
var metaLoadMoreTexts = []string{"See more", "Load more", "Show more"}

const metaJobURLSelector = `a[href^='/jobs/'], a[href*='https://www.metacareers.com/jobs/'], a[href*='https://www.facebookcareers.com/jobs/']`

// metaCollectJobURLsScript mirrors the original eval_on_selector_all: dedup
// hrefs, absolutize relative ones, and keep only /jobs/<slug> detail links
// (not listing/query variants).
const metaCollectJobURLsScript = `
Array.from(new Set(
  Array.from(document.querySelectorAll(` + "`" + metaJobURLSelector + "`" + `))
    .map(a => a.getAttribute('href') || '')
    .map(h => h.startsWith('http') ? h : new URL(h, location.origin).toString())
    .filter(u => /\/jobs\/[^/?#]+$/.test(u))
))
`

// MetaAdapter drives a real headless session for metacareers.com /
// facebookcareers.com listings: these render their results client-side only
// after a warm-up visit and cookie acceptance, and paginate via a "Next"
// button rather than URL query params.
type MetaAdapter struct {
	Renderer *renderer.Renderer
}

func NewMetaAdapter(r *renderer.Renderer) *MetaAdapter {
	return &MetaAdapter{Renderer: r}
}

func (a *MetaAdapter) Name() string  { return "metacareers" }
func (a *MetaAdapter) Renders() bool { return true }
func (a *MetaAdapter) Matches(u string) bool {
	return metaHostRe.MatchString(hostOf(u))
}

func metaCleanTitle(t string) string {
	t = strings.TrimSpace(t)
	t = strings.TrimSuffix(t, " - Meta")
	t = strings.TrimSpace(t)
	switch strings.ToLower(t) {
	case "find your role", "job openings at meta | meta careers":
		return ""
	}
	return t
}

func (a *MetaAdapter) Scrape(ctx context.Context, rawURL string, timeout time.Duration, maxPages int) ([]model.Job, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("meta: parse url: %w", err)
	}
	baseOrigin := fmt.Sprintf("%s://%s", u.Scheme, u.Host)

	tabCtx, cancel := a.Renderer.NewTab(ctx, timeout)
	defer cancel()

	metaWarmupSession(tabCtx, baseOrigin)

	if err := chromedp.Run(tabCtx, chromedp.Navigate(rawURL)); err != nil {
		return nil, nil
	}
	metaAcceptCookies(tabCtx, false)
	metaEnsureResultsReady(tabCtx)

	urls := metaCollectAllPagesURLs(tabCtx, maxPages)

	var jobs []model.Job
	for _, link := range urls {
		title := metaResolveTitleFromDetail(a.Renderer, ctx, link, timeout)
		if title == "" {
			continue
		}
		jobs = append(jobs, model.Job{Title: title, Link: link})
	}
	return jobs, nil
}

func metaWarmupSession(ctx context.Context, baseOrigin string) {
	if err := chromedp.Run(ctx, chromedp.Navigate(baseOrigin+"/")); err != nil {
		return
	}
	metaAcceptCookies(ctx, true)

	for _, text := range metaViewJobsTexts {
		if metaClickByText(ctx, "a", text, 2500*time.Millisecond) {
			break
		}
		if metaClickByText(ctx, "button", text, 2500*time.Millisecond) {
			break
		}
	}

	var curURL string
	_ = chromedp.Run(ctx, chromedp.Location(&curURL))
	if !strings.Contains(curURL, "/jobs") {
		_ = chromedp.Run(ctx, chromedp.Navigate(baseOrigin+"/jobs"))
	}
}

func metaAcceptCookies(ctx context.Context, firstTime bool) {
	timeout := 1200 * time.Millisecond
	if firstTime {
		timeout = 8000 * time.Millisecond
	}
	for _, sel := range metaCookieSelectors {
		clickCtx, cancel := context.WithTimeout(ctx, timeout)
		err := chromedp.Run(clickCtx, chromedp.Click(sel, chromedp.ByQuery))
		cancel()
		if err == nil {
			return
		}
	}
	for _, text := range metaCookieTexts {
		if metaClickByText(ctx, "button", text, timeout) {
			return
		}
	}
}

// metaClickByText clicks the first element of tag whose trimmed innerText
// contains text, since chromedp has no :has-text() selector. Visibility is
// not checked.
func metaClickByText(ctx context.Context, tag, text string, timeout time.Duration) bool {
	clickCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	script := fmt.Sprintf(`(() => {
		const els = Array.from(document.querySelectorAll(%q));
		const el = els.find(e => (e.innerText || '').trim().includes(%q));
		if (!el) return false;
		el.click();
		return true;
	})()`, tag, text)

	var clicked bool
	if err := chromedp.Run(clickCtx, chromedp.Evaluate(script, &clicked)); err != nil {
		return false
	}
	return clicked
}

// metaEnsureResultsReady nudges the SPA into rendering its results: chromedp
// has no networkidle wait like Playwright's, so a scroll-and-poll-selectors
// loop stands in for it.
func metaEnsureResultsReady(ctx context.Context) {
	scrollCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	_ = chromedp.Run(scrollCtx, chromedp.Evaluate(`window.scrollBy(0, 2000)`, nil))
	cancel()
	time.Sleep(400 * time.Millisecond)

	selectors := []string{
		`a[href^='/jobs/']`,
		`a[href*='https://www.metacareers.com/jobs/']`,
		`a[href*='https://www.facebookcareers.com/jobs/']`,
	}
	for _, sel := range selectors {
		waitCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := chromedp.Run(waitCtx, chromedp.WaitVisible(sel, chromedp.ByQuery))
		cancel()
		if err == nil {
			return
		}
	}

	for i := 0; i < 2; i++ {
		scrollCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_ = chromedp.Run(scrollCtx, chromedp.Evaluate(`window.scrollBy(0, 16000)`, nil))
		cancel()
		time.Sleep(500 * time.Millisecond)
		for _, sel := range selectors {
			waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := chromedp.Run(waitCtx, chromedp.WaitVisible(sel, chromedp.ByQuery))
			cancel()
			if err == nil {
				return
			}
		}
	}
}

func metaCollectJobURLsOnPage(ctx context.Context) map[string]bool {
	var raw []string
	evalCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := chromedp.Run(evalCtx, chromedp.Evaluate(metaCollectJobURLsScript, &raw)); err != nil {
		return map[string]bool{}
	}
	out := map[string]bool{}
	for _, u := range raw {
		out[u] = true
	}
	return out
}

func metaCollectAllPagesURLs(ctx context.Context, maxPages int) []string {
	seen := map[string]bool{}
	visited := 0

	for {
		visited++
		prev := len(seen)
		noProgress := 0
		for i := 0; i < 6; i++ {
			for u := range metaCollectJobURLsOnPage(ctx) {
				seen[u] = true
			}
			if len(seen) == prev {
				noProgress++
			} else {
				noProgress = 0
				prev = len(seen)
			}
			if noProgress >= 2 {
				break
			}
			for _, text := range metaLoadMoreTexts {
				if metaClickByText(ctx, "button", text, 1000*time.Millisecond) {
					break
				}
			}
			scrollCtx, cancel := context.WithTimeout(ctx, 1*time.Second)
			_ = chromedp.Run(scrollCtx, chromedp.Evaluate(`window.scrollBy(0, 16000)`, nil))
			cancel()
			time.Sleep(350 * time.Millisecond)
		}

		cur, total, rawText := metaPaginationInfo(ctx)
		if total == nil {
			break
		}
		if cur != nil && *cur >= *total {
			break
		}
		if visited >= maxPages {
			break
		}

		beforeText := rawText
		beforeURLs := map[string]bool{}
		for u := range seen {
			beforeURLs[u] = true
		}
		if !metaClickNext(ctx) {
			break
		}
		if !metaWaitPageChange(ctx, beforeText, beforeURLs) {
			break
		}
	}

	out := make([]string, 0, len(seen))
	for u := range seen {
		out = append(out, u)
	}
	return out
}

func metaPaginationInfo(ctx context.Context) (cur, total *int, raw string) {
	var texts []string
	evalCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	script := `Array.from(document.querySelectorAll('div')).map(d => (d.innerText||'').trim()).filter(t => t.includes('Page '))`
	if err := chromedp.Run(evalCtx, chromedp.Evaluate(script, &texts)); err != nil {
		return nil, nil, ""
	}
	for _, t := range texts {
		if !strings.Contains(t, "Page") || !strings.Contains(t, "of") {
			continue
		}
		if m := metaPageOfRe.FindStringSubmatch(t); m != nil {
			c, err1 := strconv.Atoi(m[1])
			tt, err2 := strconv.Atoi(m[2])
			if err1 == nil && err2 == nil {
				return &c, &tt, t
			}
		}
		return nil, nil, t
	}
	return nil, nil, ""
}

func metaClickNext(ctx context.Context) bool {
	clickCtx, cancel := context.WithTimeout(ctx, 1200*time.Millisecond)
	defer cancel()
	script := `(() => {
		const els = Array.from(document.querySelectorAll('a'));
		const btn = els.find(e => (e.innerText || '').trim().includes('Next'));
		if (!btn) return false;
		const aria = btn.getAttribute('aria-disabled');
		if (aria === 'true' || aria === 'disabled') return false;
		btn.click();
		return true;
	})()`
	var clicked bool
	if err := chromedp.Run(clickCtx, chromedp.Evaluate(script, &clicked)); err != nil {
		return false
	}
	return clicked
}

func metaWaitPageChange(ctx context.Context, beforeText string, beforeURLs map[string]bool) bool {
	deadline := time.Now().Add(6 * time.Second)
	for time.Now().Before(deadline) {
		_, _, raw := metaPaginationInfo(ctx)
		if raw != "" && raw != beforeText {
			return true
		}
		time.Sleep(300 * time.Millisecond)
	}
	for i := 0; i < 10; i++ {
		cur := metaCollectJobURLsOnPage(ctx)
		for u := range cur {
			if !beforeURLs[u] {
				return true
			}
		}
		time.Sleep(300 * time.Millisecond)
	}
	return false
}

func metaResolveTitleFromDetail(r *renderer.Renderer, ctx context.Context, link string, timeout time.Duration) string {
	tabCtx, cancel := r.NewTab(ctx, timeout)
	defer cancel()

	if err := chromedp.Run(tabCtx, chromedp.Navigate(link)); err != nil {
		return ""
	}
	metaAcceptCookies(tabCtx, false)

	waitCtx, waitCancel := context.WithTimeout(tabCtx, 15*time.Second)
	_ = chromedp.Run(waitCtx, chromedp.WaitVisible(`div[class*='_army'], h1, div[role='heading']`, chromedp.ByQuery))
	waitCancel()

	for _, sel := range []string{`div[class*='_army']`, `div._army`, `div[role='heading']`, `h1`, `h2`} {
		var text string
		evalCtx, cancel := context.WithTimeout(tabCtx, 2*time.Second)
		script := fmt.Sprintf(`(() => { const el = document.querySelector(%q); return el ? el.innerText : ''; })()`, sel)
		err := chromedp.Run(evalCtx, chromedp.Evaluate(script, &text))
		cancel()
		if err == nil {
			if t := metaCleanTitle(text); t != "" {
				return t
			}
		}
	}

	if t := metaTitleFromJSONLD(tabCtx); t != "" {
		if cleaned := metaCleanTitle(t); cleaned != "" {
			return cleaned
		}
	}

	var ogTitle string
	evalCtx, cancel := context.WithTimeout(tabCtx, 2*time.Second)
	_ = chromedp.Run(evalCtx, chromedp.Evaluate(
		`(() => { const el = document.querySelector("meta[property='og:title']"); return el ? el.content : ''; })()`,
		&ogTitle))
	cancel()
	if t := metaCleanTitle(ogTitle); t != "" {
		return t
	}

	var docTitle string
	evalCtx2, cancel2 := context.WithTimeout(tabCtx, 2*time.Second)
	_ = chromedp.Run(evalCtx2, chromedp.Title(&docTitle))
	cancel2()
	return metaCleanTitle(docTitle)
}

func metaTitleFromJSONLD(ctx context.Context) string {
	var raws []string
	evalCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	script := `Array.from(document.querySelectorAll("script[type='application/ld+json']")).map(s => s.innerText || '')`
	if err := chromedp.Run(evalCtx, chromedp.Evaluate(script, &raws)); err != nil {
		return ""
	}
	for _, raw := range raws {
		var single map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &single); err == nil {
			if t := metaTitleField(single); t != "" {
				return t
			}
			continue
		}
		var list []map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &list); err == nil {
			for _, item := range list {
				if t := metaTitleField(item); t != "" {
					return t
				}
			}
		}
	}
	return ""
}

func metaTitleField(m map[string]interface{}) string {
	if t, ok := m["title"].(string); ok && strings.TrimSpace(t) != "" {
		return strings.TrimSpace(t)
	}
	if t, ok := m["name"].(string); ok && strings.TrimSpace(t) != "" {
		return strings.TrimSpace(t)
	}
	return ""
}
