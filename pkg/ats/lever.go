package ats

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"jobwatch/pkg/httpclient"
	"jobwatch/pkg/model"
)

var leverHostRe = regexp.MustCompile(`(?i)^(?:www\.)?jobs(?:\.eu)?\.lever\.co(?::\d+)?$`)

var leverAllowedFilters = map[string]bool{
	"location": true, "department": true, "team": true, "commitment": true, "level": true,
}

// LeverAdapter scrapes Lever-hosted boards (jobs.lever.co / jobs.eu.lever.co)
// through Lever's public JSON postings API, cycling between the US and EU
// API hosts when one 404s.
type LeverAdapter struct {
	HTTP *httpclient.Client
}

func NewLeverAdapter(c *httpclient.Client) *LeverAdapter { return &LeverAdapter{HTTP: c} }

func (a *LeverAdapter) Name() string    { return "lever" }
func (a *LeverAdapter) Renders() bool   { return false }
func (a *LeverAdapter) Matches(u string) bool {
	return leverHostRe.MatchString(hostOf(u))
}

func leverAPIHostFor(jobsHost string) string {
	jobsHost = strings.ToLower(jobsHost)
	if strings.HasSuffix(jobsHost, "jobs.eu.lever.co") {
		return "api.eu.lever.co"
	}
	return "api.lever.co"
}

type leverPosting struct {
	Text       string `json:"text"`
	HostedURL  string `json:"hostedUrl"`
	ApplyURL   string `json:"applyUrl"`
	ID         string `json:"id"`
}

func (a *LeverAdapter) Scrape(ctx context.Context, rawURL string, timeout time.Duration, maxPages int) ([]model.Job, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("lever: parse url: %w", err)
	}
	segs := pathSegments(rawURL)
	if len(segs) == 0 {
		return nil, nil
	}
	site := segs[0]
	var postingID string
	if len(segs) > 1 {
		postingID = segs[1]
	}

	baseHost := leverAPIHostFor(u.Host)
	altHost := "api.lever.co"
	if baseHost == "api.lever.co" {
		altHost = "api.eu.lever.co"
	}

	headers := http.Header{}
	headers.Set("Accept", "application/json")
	headers.Set("Cache-Control", "no-cache")

	if postingID != "" {
		for _, host := range []string{baseHost, altHost} {
			apiURL := fmt.Sprintf("https://%s/v0/postings/%s/%s", host, site, postingID)
			data, status, err := a.HTTP.FetchJSON(ctx, apiURL, nil, http.MethodGet, headers)
			if status == http.StatusNotFound {
				continue
			}
			if err != nil {
				continue
			}
			var p leverPosting
			if jsonErr := json.Unmarshal(data, &p); jsonErr != nil {
				continue
			}
			if p.Text != "" && p.HostedURL != "" {
				return []model.Job{{Title: strings.TrimSpace(p.Text), Link: p.HostedURL}}, nil
			}
			return nil, nil
		}
		return nil, nil
	}

	query := u.Query()
	var commonParams [][2]string
	commonParams = append(commonParams, [2]string{"mode", "json"})
	for key := range leverAllowedFilters {
		for _, v := range query[key] {
			if v != "" {
				commonParams = append(commonParams, [2]string{key, v})
			}
		}
	}

	const limit = 50
	skip := 0
	pagesFetched := 0
	hostCycle := [2]string{baseHost, altHost}
	hostIdx := 0

	var jobs []model.Job
	for pagesFetched < maxPages {
		host := hostCycle[hostIdx]
		q := url.Values{}
		for _, kv := range commonParams {
			q.Add(kv[0], kv[1])
		}
		q.Set("skip", strconv.Itoa(skip))
		q.Set("limit", strconv.Itoa(limit))
		apiURL := fmt.Sprintf("https://%s/v0/postings/%s?%s", host, site, q.Encode())

		data, status, err := a.HTTP.FetchJSON(ctx, apiURL, nil, http.MethodGet, headers)
		if status == http.StatusNotFound && hostIdx == 0 {
			hostIdx = 1
			continue
		}
		if err != nil {
			if hostIdx == 0 {
				hostIdx = 1
				continue
			}
			break
		}

		var postings []leverPosting
		if jsonErr := json.Unmarshal(data, &postings); jsonErr != nil {
			var wrapped struct {
				Data []leverPosting `json:"data"`
			}
			if jsonErr2 := json.Unmarshal(data, &wrapped); jsonErr2 != nil {
				break
			}
			postings = wrapped.Data
		}
		if len(postings) == 0 {
			break
		}

		for _, p := range postings {
			link := p.HostedURL
			if link == "" {
				link = p.ApplyURL
			}
			if link == "" && p.ID != "" {
				link = fmt.Sprintf("https://jobs.lever.co/%s/%s", site, p.ID)
			}
			if p.Text != "" && link != "" {
				jobs = append(jobs, model.Job{Title: strings.TrimSpace(p.Text), Link: link})
			}
		}

		pagesFetched++
		if len(postings) < limit {
			break
		}
		skip += limit
	}

	return jobs, nil
}
