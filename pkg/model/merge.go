package model

import (
	"sort"
	"strings"
	"time"
)

// ApplyScrape reconciles a freshly scraped job set into the board, gated by
// health: a zero-result scrape is only allowed to deactivate existing
// postings once the configured safety condition is met.
func (b *JobBoard) ApplyScrape(scrapedJobs []Job, scrapedAt time.Time, ok bool, opts AttemptOptions) {
	health := b.RecordAttempt(scrapedJobs, ok, scrapedAt, opts)

	count := len(scrapedJobs)
	if count == 0 {
		safe := false
		if b.Policy.RequireTwoSuccessfulZerosToDeactivate {
			var prev *ScrapeAttempt
			if n := len(b.Attempts); n >= 2 {
				prev = &b.Attempts[n-2]
			}
			if ok && prev != nil && prev.OK && prev.Count == 0 && health.Status == HealthNormal {
				safe = true
			}
		} else {
			safe = health.Status == HealthNormal
		}
		if !safe {
			return
		}
	}

	byLink := make(map[string]Job, len(b.Content))
	for _, j := range b.Content {
		byLink[j.Link] = j
	}
	scrapedByLink := make(map[string]Job, len(scrapedJobs))
	for _, j := range scrapedJobs {
		scrapedByLink[j.Link] = j
	}

	for link, newJob := range scrapedByLink {
		if cur, exists := byLink[link]; exists {
			if newJob.Title != "" && newJob.Title != cur.Title {
				cur.Title = newJob.Title
			}
			cur.Mark(StatusActive, scrapedAt)
			byLink[link] = cur
		} else {
			nj := newJob
			nj.History = NormalizeHistory([]Status{{Status: StatusActive, At: scrapedAt}})
			byLink[link] = nj
		}
	}

	for link, existing := range byLink {
		if _, stillPresent := scrapedByLink[link]; !stillPresent && existing.IsActive() {
			existing.Mark(StatusInactive, scrapedAt)
			byLink[link] = existing
		}
	}

	b.Content = b.Content[:0]
	for _, j := range byLink {
		b.Content = append(b.Content, j)
	}

	if count > 0 && ok {
		b.LastSuccessAt = &scrapedAt
		b.ScrapeHealth.LastSuccessAt = &scrapedAt
		b.ScrapeHealth.LastSuccessCount = intPtr(count)
	}

	sort.SliceStable(b.Content, func(i, j int) bool {
		ai, aj := b.Content[i].IsActive(), b.Content[j].IsActive()
		if ai != aj {
			return ai // active first
		}
		return strings.ToLower(b.Content[i].Title) < strings.ToLower(b.Content[j].Title)
	})
}
