// Package ats holds the first-match-wins registry of applicant-tracking-
// system adapters: hand-written scrapers for the handful of ATS vendors
// common enough to warrant bypassing the generic extraction pipeline.
package ats

import (
	"context"
	"net/url"
	"time"

	"jobwatch/pkg/model"
)

// Adapter is a single ATS-specific scraper.
type Adapter interface {
	// Name identifies the adapter in logs and scrape metadata.
	Name() string
	// Renders reports whether this adapter needs a headless browser rather
	// than a plain HTTP fetch.
	Renders() bool
	// Matches reports whether rawURL's host/path belongs to this ATS.
	Matches(rawURL string) bool
	// Scrape fetches postings from rawURL, following pagination up to
	// maxPages, bounded by timeout per request.
	Scrape(ctx context.Context, rawURL string, timeout time.Duration, maxPages int) ([]model.Job, error)
}

// Registry is an ordered, first-match-wins list of adapters.
type Registry struct {
	adapters []Adapter
}

// NewRegistry builds a registry that dispatches in argument order.
// cmd/scheduler passes Lever, Meta, Microsoft, Proton, Workday, join.com,
// Greenhouse, Ashby.
func NewRegistry(adapters ...Adapter) *Registry {
	return &Registry{adapters: adapters}
}

// Match returns the first adapter whose Matches(rawURL) is true, or nil if
// none claims the URL.
func (r *Registry) Match(rawURL string) Adapter {
	for _, a := range r.adapters {
		if a.Matches(rawURL) {
			return a
		}
	}
	return nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

func pathSegments(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	var segs []string
	start := 0
	for i := 0; i <= len(u.Path); i++ {
		if i == len(u.Path) || u.Path[i] == '/' {
			if i > start {
				segs = append(segs, u.Path[start:i])
			}
			start = i + 1
		}
	}
	return segs
}
